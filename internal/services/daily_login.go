package services

import (
	"log"
	"time"

	"minime/internal/config"
	"minime/internal/events"
	"minime/internal/models"
)

// dateLayout truncates logins to calendar dates; streak math never looks at
// the time of day.
const dateLayout = "2006-01-02"

// DailyLoginSystem computes streak continuation and reward composition for a
// login. It is stateless: the outcome is a pure function of the profile's
// streak fields and the injected "today", plus the mutations it commits to
// the profile. Callers inject today's date rather than the system clock so
// the algorithm is testable.
type DailyLoginSystem struct {
	cfg *config.GameConfig
	bus *events.Bus
}

// NewDailyLoginSystem creates the login processor. A nil config falls back
// to the compiled-in defaults.
func NewDailyLoginSystem(cfg *config.GameConfig, bus *events.Bus) *DailyLoginSystem {
	if cfg == nil {
		cfg = config.Default()
	}
	return &DailyLoginSystem{cfg: cfg, bus: bus}
}

// ProcessLogin applies the daily streak state machine:
//
//   - already logged in today: no-op, no reward, streak unchanged
//   - last login was yesterday: streak continues (+1)
//   - anything else (gap, first ever login, clock skew into the future):
//     streak resets to 1
//
// On the first login of a day it credits coins (base + capped linear streak
// bonus + milestone bonus), a happiness bonus, and the day/streak
// bookkeeping, then returns the breakdown for the UI celebration.
func (s *DailyLoginSystem) ProcessLogin(user *models.UserProfile, today time.Time) *models.LoginBonusResult {
	todayStr := today.Format(dateLayout)
	yesterdayStr := today.AddDate(0, 0, -1).Format(dateLayout)

	// The profile decides first-login-or-not and commits the streak update in
	// one atomic step, so two concurrent logins on the same day can never both
	// come back FirstToday and double-credit the reward.
	outcome := user.RecordDailyLogin(todayStr, yesterdayStr)
	if !outcome.FirstToday {
		return &models.LoginBonusResult{
			IsFirstLoginToday: false,
			CurrentStreak:     outcome.Streak,
			LongestStreak:     outcome.LongestStreak,
		}
	}

	streakBonus := outcome.Streak - 1
	if streakBonus > s.cfg.MaxStreakBonusCoins {
		streakBonus = s.cfg.MaxStreakBonusCoins
	}
	milestoneBonus := s.cfg.MilestoneBonus(outcome.Streak)
	total := s.cfg.DailyLoginBaseCoins + streakBonus + milestoneBonus

	user.AddCoins(total)
	user.IncreaseHappiness(s.cfg.DailyLoginHappinessBonus)

	result := &models.LoginBonusResult{
		IsFirstLoginToday: true,
		CoinsEarned:       total,
		CurrentStreak:     outcome.Streak,
		LongestStreak:     outcome.LongestStreak,
		IsNewRecord:       outcome.IsNewRecord,
		HitMilestone:      milestoneBonus > 0,
		BaseCoins:         s.cfg.DailyLoginBaseCoins,
		StreakBonus:       streakBonus,
		MilestoneBonus:    milestoneBonus,
	}
	if result.HitMilestone {
		result.MilestoneDay = outcome.Streak
	}

	log.Printf("Daily login for %s: streak %d, earned %d coins", user.UserName, outcome.Streak, total)
	s.publishEvents(user, result)
	return result
}

func (s *DailyLoginSystem) publishEvents(user *models.UserProfile, result *models.LoginBonusResult) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Type:     events.LoginBonusAwarded,
		Username: user.UserName,
		Payload: map[string]interface{}{
			"coins_earned":    result.CoinsEarned,
			"current_streak":  result.CurrentStreak,
			"base_coins":      result.BaseCoins,
			"streak_bonus":    result.StreakBonus,
			"milestone_bonus": result.MilestoneBonus,
		},
	})
	if result.HitMilestone {
		s.bus.Publish(events.Event{
			Type:     events.MilestoneReached,
			Username: user.UserName,
			Payload:  map[string]interface{}{"milestone_day": result.MilestoneDay},
		})
	}
	if result.IsNewRecord {
		s.bus.Publish(events.Event{
			Type:     events.NewStreakRecord,
			Username: user.UserName,
			Payload:  map[string]interface{}{"longest_streak": result.LongestStreak},
		})
	}
}
