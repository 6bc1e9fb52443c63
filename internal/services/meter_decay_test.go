package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minime/internal/config"
	"minime/internal/events"
	"minime/internal/models"
	"minime/internal/services"
)

func newDecayProfile(cfg *config.GameConfig) *models.UserProfile {
	user := models.NewUserProfile("sleepy", "Sleepy Kid", cfg)
	user.Attach(cfg, nil, nil)
	return user
}

func TestMeterDecay_AppliesPerMinuteRates(t *testing.T) {
	cfg := config.Default()
	system := services.NewMeterDecaySystem(cfg, nil)
	user := newDecayProfile(cfg)

	system.ApplyDecay(user, 10)

	assert.InDelta(t, cfg.StartingHappiness-cfg.HappinessDecayPerMinute*10, user.CharacterHappiness, 1e-9)
	assert.InDelta(t, cfg.StartingHunger-cfg.HungerDecayPerMinute*10, user.CharacterHunger, 1e-9)
	assert.InDelta(t, cfg.StartingEnergy-cfg.EnergyDecayPerMinute*10, user.CharacterEnergy, 1e-9)
}

func TestMeterDecay_IgnoresNilUserAndNonPositiveElapsed(t *testing.T) {
	cfg := config.Default()
	system := services.NewMeterDecaySystem(cfg, nil)

	system.ApplyDecay(nil, 5) // must not panic

	user := newDecayProfile(cfg)
	system.ApplyDecay(user, 0)
	system.ApplyDecay(user, -3)
	assert.Equal(t, cfg.StartingHappiness, user.CharacterHappiness)
}

func TestMeterDecay_NeverDropsBelowFloor(t *testing.T) {
	cfg := config.Default()
	system := services.NewMeterDecaySystem(cfg, nil)
	user := newDecayProfile(cfg)

	// A week of neglect.
	for i := 0; i < 7*24; i++ {
		system.ApplyDecay(user, 60)
	}

	assert.Equal(t, cfg.HappinessFloor, user.CharacterHappiness)
	assert.Equal(t, cfg.HungerFloor, user.CharacterHunger)
	assert.Equal(t, cfg.EnergyFloor, user.CharacterEnergy)
}

func TestMeterDecay_LowMeterNotificationIsEdgeTriggered(t *testing.T) {
	cfg := config.Default()
	bus := events.NewBus()
	system := services.NewMeterDecaySystem(cfg, bus)
	user := newDecayProfile(cfg)

	lowEvents := make(map[string]int)
	bus.Subscribe(events.MeterLow, func(e events.Event) {
		lowEvents[e.Payload["meter"].(string)]++
	})

	// Park happiness just above the threshold; one tick pushes it below.
	user.DecreaseHappiness(user.CharacterHappiness - (cfg.LowMeterThreshold + 0.05))
	system.ApplyDecay(user, 1)
	assert.Equal(t, 1, lowEvents["happiness"])

	// While it stays below the threshold, no further notifications.
	system.ApplyDecay(user, 1)
	system.ApplyDecay(user, 1)
	assert.Equal(t, 1, lowEvents["happiness"])

	// Recover above the threshold and drop again: a second edge.
	user.IncreaseHappiness(30)
	system.ApplyDecay(user, 400)
	assert.Equal(t, 2, lowEvents["happiness"])
}

func TestMeterDecay_OverallMoodBoundaries(t *testing.T) {
	cfg := config.Default()
	system := services.NewMeterDecaySystem(cfg, nil)
	user := newDecayProfile(cfg)

	setMeters := func(value float64) {
		user.CharacterHappiness = value
		user.CharacterHunger = value
		user.CharacterEnergy = value
	}

	// Thresholds are inclusive at the lower bound of each tier.
	setMeters(80)
	assert.Equal(t, services.MoodVeryHappy, system.OverallMood(user))
	setMeters(79.9)
	assert.Equal(t, services.MoodHappy, system.OverallMood(user))
	setMeters(60)
	assert.Equal(t, services.MoodHappy, system.OverallMood(user))
	setMeters(59.9)
	assert.Equal(t, services.MoodNeutral, system.OverallMood(user))
	setMeters(40)
	assert.Equal(t, services.MoodNeutral, system.OverallMood(user))
	setMeters(20)
	assert.Equal(t, services.MoodSad, system.OverallMood(user))
	setMeters(19.9)
	assert.Equal(t, services.MoodVerySad, system.OverallMood(user))
}

func TestMeterDecay_MoodAveragesMixedMeters(t *testing.T) {
	cfg := config.Default()
	system := services.NewMeterDecaySystem(cfg, nil)
	user := newDecayProfile(cfg)

	user.CharacterHappiness = 100
	user.CharacterHunger = 70
	user.CharacterEnergy = 70
	// Average exactly 80.
	assert.Equal(t, services.MoodVeryHappy, system.OverallMood(user))
}
