package services

import (
	"minime/internal/config"
	"minime/internal/events"
	"minime/internal/models"
)

// Mood buckets the three care meters into five ordered tiers for display.
type Mood string

const (
	MoodVeryHappy Mood = "very_happy" // average >= 80
	MoodHappy     Mood = "happy"      // average >= 60
	MoodNeutral   Mood = "neutral"    // average >= 40
	MoodSad       Mood = "sad"        // average >= 20
	MoodVerySad   Mood = "very_sad"   // below 20
)

// MeterDecaySystem applies time-elapsed decay to a profile's care meters.
// It is stateless; rates, floors and the low-meter threshold come from
// configuration, and the floor enforcement itself lives on the profile.
type MeterDecaySystem struct {
	cfg *config.GameConfig
	bus *events.Bus
}

// NewMeterDecaySystem creates the decay engine. A nil config falls back to
// the compiled-in defaults.
func NewMeterDecaySystem(cfg *config.GameConfig, bus *events.Bus) *MeterDecaySystem {
	if cfg == nil {
		cfg = config.Default()
	}
	return &MeterDecaySystem{cfg: cfg, bus: bus}
}

// ApplyDecay decays each meter by its configured per-minute rate times the
// elapsed minutes, then fires a low-meter notification for every meter that
// crossed below the threshold during this call. The notification is
// edge-triggered: a meter already below the threshold stays silent until it
// recovers and drops again.
func (s *MeterDecaySystem) ApplyDecay(user *models.UserProfile, elapsedMinutes float64) {
	if user == nil || elapsedMinutes <= 0 {
		return
	}

	preHappiness, preHunger, preEnergy := user.Meters()

	user.ApplyMeterDecay(
		s.cfg.HappinessDecayPerMinute*elapsedMinutes,
		s.cfg.HungerDecayPerMinute*elapsedMinutes,
		s.cfg.EnergyDecayPerMinute*elapsedMinutes,
	)

	postHappiness, postHunger, postEnergy := user.Meters()
	s.notifyIfCrossedLow(user, "happiness", preHappiness, postHappiness)
	s.notifyIfCrossedLow(user, "hunger", preHunger, postHunger)
	s.notifyIfCrossedLow(user, "energy", preEnergy, postEnergy)
}

func (s *MeterDecaySystem) notifyIfCrossedLow(user *models.UserProfile, meter string, pre, post float64) {
	if s.bus == nil {
		return
	}
	if pre >= s.cfg.LowMeterThreshold && post < s.cfg.LowMeterThreshold {
		s.bus.Publish(events.Event{
			Type:     events.MeterLow,
			Username: user.UserName,
			Payload:  map[string]interface{}{"meter": meter, "value": post},
		})
	}
}

// OverallMood averages the three meters and classifies the result. Pure
// function, no side effects; used only for display.
func (s *MeterDecaySystem) OverallMood(user *models.UserProfile) Mood {
	happiness, hunger, energy := user.Meters()
	average := (happiness + hunger + energy) / 3.0
	switch {
	case average >= 80:
		return MoodVeryHappy
	case average >= 60:
		return MoodHappy
	case average >= 40:
		return MoodNeutral
	case average >= 20:
		return MoodSad
	default:
		return MoodVerySad
	}
}
