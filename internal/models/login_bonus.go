package models

// LoginBonusResult is the immutable outcome of processing one daily login.
// It exists for the UI to display the celebration and is never persisted;
// the durable effects (coins, streak, happiness) land on the profile itself.
type LoginBonusResult struct {
	IsFirstLoginToday bool `json:"is_first_login_today"`
	CoinsEarned       int  `json:"coins_earned"`
	CurrentStreak     int  `json:"current_streak"`
	LongestStreak     int  `json:"longest_streak"`
	IsNewRecord       bool `json:"is_new_record"`
	HitMilestone      bool `json:"hit_milestone"`
	MilestoneDay      int  `json:"milestone_day,omitempty"`

	// Reward breakdown: CoinsEarned = BaseCoins + StreakBonus + MilestoneBonus.
	BaseCoins      int `json:"base_coins"`
	StreakBonus    int `json:"streak_bonus"`
	MilestoneBonus int `json:"milestone_bonus"`
}
