package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"minime/internal/config"
	"minime/internal/events"
	"minime/internal/models"
	"minime/internal/services"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	assert.NoError(t, err)
	return parsed
}

func newLoginProfile(cfg *config.GameConfig, lastLogin string, streak int) *models.UserProfile {
	user := models.NewUserProfile("streaker", "Streak Er", cfg)
	user.Attach(cfg, nil, nil)
	user.LastLoginDateString = lastLogin
	user.CurrentStreak = streak
	user.LongestStreak = streak
	return user
}

func TestDailyLogin_ContinuesStreakOnConsecutiveDay(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "2024-01-01", 5)
	coinsBefore := user.Coins

	result := system.ProcessLogin(user, date(t, "2024-01-02"))

	assert.True(t, result.IsFirstLoginToday)
	assert.Equal(t, 6, result.CurrentStreak)
	assert.Equal(t, 6, user.CurrentStreak)
	assert.Equal(t, "2024-01-02", user.LastLoginDateString)

	// base + min(streak-1, cap) + no milestone at day 6
	expected := cfg.DailyLoginBaseCoins + 5
	assert.Equal(t, expected, result.CoinsEarned)
	assert.Equal(t, cfg.DailyLoginBaseCoins, result.BaseCoins)
	assert.Equal(t, 5, result.StreakBonus)
	assert.Equal(t, 0, result.MilestoneBonus)
	assert.False(t, result.HitMilestone)
	assert.Equal(t, coinsBefore+expected, user.Coins)
}

func TestDailyLogin_SecondLoginSameDayIsNoOp(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "2024-01-01", 5)

	first := system.ProcessLogin(user, date(t, "2024-01-02"))
	assert.True(t, first.IsFirstLoginToday)
	coinsAfterFirst := user.Coins
	daysActiveAfterFirst := user.DaysActive

	second := system.ProcessLogin(user, date(t, "2024-01-02"))

	assert.False(t, second.IsFirstLoginToday)
	assert.Equal(t, 0, second.CoinsEarned)
	assert.Equal(t, 6, second.CurrentStreak)
	assert.Equal(t, coinsAfterFirst, user.Coins)
	assert.Equal(t, daysActiveAfterFirst, user.DaysActive)
}

func TestDailyLogin_SimultaneousLoginsCreditOnce(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "2024-01-01", 5)
	coinsBefore := user.Coins
	today := date(t, "2024-01-02")

	// A kid mashing the login button on two devices at once: only one call
	// may win the day, and the reward must land exactly once.
	const attempts = 8
	results := make([]*models.LoginBonusResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = system.ProcessLogin(user, today)
		}(i)
	}
	wg.Wait()

	firstLogins := 0
	for _, result := range results {
		if result.IsFirstLoginToday {
			firstLogins++
		}
		assert.Equal(t, 6, result.CurrentStreak)
	}
	assert.Equal(t, 1, firstLogins)
	assert.Equal(t, coinsBefore+cfg.DailyLoginBaseCoins+5, user.Coins)
	assert.Equal(t, 6, user.CurrentStreak)
	assert.Equal(t, 1, user.DaysActive)
}

func TestDailyLogin_GapResetsStreak(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "2024-01-01", 5)

	result := system.ProcessLogin(user, date(t, "2024-01-10"))

	assert.True(t, result.IsFirstLoginToday)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, user.CurrentStreak)
	assert.Equal(t, cfg.DailyLoginBaseCoins, result.CoinsEarned)
	// The old record survives the reset.
	assert.Equal(t, 5, user.LongestStreak)
}

func TestDailyLogin_FirstEverLoginStartsStreak(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "", 0)

	result := system.ProcessLogin(user, date(t, "2024-03-15"))

	assert.True(t, result.IsFirstLoginToday)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.True(t, result.IsNewRecord)
	assert.Equal(t, 1, user.DaysActive)
}

func TestDailyLogin_ClockSkewIntoFutureResets(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "2024-06-20", 4)

	// Last login recorded "in the future" relative to today.
	result := system.ProcessLogin(user, date(t, "2024-06-10"))

	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, "2024-06-10", user.LastLoginDateString)
}

func TestDailyLogin_MilestoneAtSevenDays(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "2024-01-06", 6)

	result := system.ProcessLogin(user, date(t, "2024-01-07"))

	assert.True(t, result.HitMilestone)
	assert.Equal(t, 7, result.MilestoneDay)
	assert.Equal(t, cfg.MilestoneBonus7, result.MilestoneBonus)
	assert.Equal(t, cfg.DailyLoginBaseCoins+6+cfg.MilestoneBonus7, result.CoinsEarned)
}

func TestDailyLogin_StreakBonusIsCapped(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "2024-02-09", 40)

	result := system.ProcessLogin(user, date(t, "2024-02-10"))

	assert.Equal(t, 41, result.CurrentStreak)
	assert.Equal(t, cfg.MaxStreakBonusCoins, result.StreakBonus)
	assert.Equal(t, 0, result.MilestoneBonus)
}

func TestDailyLogin_LongestStreakNeverDecreases(t *testing.T) {
	cfg := config.Default()
	system := services.NewDailyLoginSystem(cfg, nil)
	user := newLoginProfile(cfg, "", 0)

	// Walk through logins with gaps sprinkled in; the invariant must hold
	// after every call.
	days := []string{
		"2024-01-01", "2024-01-02", "2024-01-03", // streak to 3
		"2024-01-07",               // gap, reset
		"2024-01-08", "2024-01-09", // rebuild
		"2024-02-01", // long gap
	}
	longestSeen := 0
	for _, day := range days {
		result := system.ProcessLogin(user, date(t, day))
		assert.GreaterOrEqual(t, user.LongestStreak, user.CurrentStreak)
		assert.GreaterOrEqual(t, user.LongestStreak, longestSeen)
		longestSeen = user.LongestStreak
		assert.Equal(t, user.LongestStreak, result.LongestStreak)
	}
	assert.Equal(t, 3, user.LongestStreak)
}

func TestDailyLogin_NewRecordFlagAndEvents(t *testing.T) {
	cfg := config.Default()
	bus := events.NewBus()
	system := services.NewDailyLoginSystem(cfg, bus)
	user := newLoginProfile(cfg, "2024-01-02", 2)
	user.LongestStreak = 2

	var published []events.EventType
	bus.SubscribeAll(func(e events.Event) {
		published = append(published, e.Type)
	})

	// Day 3: new record and the 3-day milestone at once.
	result := system.ProcessLogin(user, date(t, "2024-01-03"))

	assert.True(t, result.IsNewRecord)
	assert.True(t, result.HitMilestone)
	assert.Equal(t, 3, result.MilestoneDay)
	assert.Contains(t, published, events.LoginBonusAwarded)
	assert.Contains(t, published, events.MilestoneReached)
	assert.Contains(t, published, events.NewStreakRecord)
}
