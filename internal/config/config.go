package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// GameConfig carries every tunable numeric and policy value for the game.
// Components take a *GameConfig and fall back to Default() when given nil,
// so the same algorithms run under different balance tuning without code
// changes.
type GameConfig struct {
	// Server
	AppPort   string `mapstructure:"APP_PORT"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Storage
	StorageDriver string `mapstructure:"STORAGE_DRIVER"` // "json", "sqlite" or "postgres"
	SaveFilePath  string `mapstructure:"SAVE_FILE_PATH"`
	DatabaseDSN   string `mapstructure:"DATABASE_DSN"`
	BackupCount   int    `mapstructure:"BACKUP_COUNT"`

	// Event publishing (optional, disabled when the URL is empty)
	AMQPUrl string `mapstructure:"AMQP_URL"`

	// Scheduling
	EnableAutoSave   bool    `mapstructure:"ENABLE_AUTO_SAVE"`
	AutoSaveInterval float64 `mapstructure:"AUTO_SAVE_INTERVAL_SECONDS"`
	DecayInterval    float64 `mapstructure:"DECAY_INTERVAL_SECONDS"`

	// Starting state
	StartingCoins     int     `mapstructure:"STARTING_COINS"`
	StartingHappiness float64 `mapstructure:"STARTING_HAPPINESS"`
	StartingHunger    float64 `mapstructure:"STARTING_HUNGER"`
	StartingEnergy    float64 `mapstructure:"STARTING_ENERGY"`

	// Economy caps
	MaxCoins        int `mapstructure:"MAX_COINS"`
	MaxExperience   int `mapstructure:"MAX_EXPERIENCE"`
	MaxSingleReward int `mapstructure:"MAX_SINGLE_REWARD"`

	// Eye customization
	MinEyeScale float64 `mapstructure:"MIN_EYE_SCALE"`
	MaxEyeScale float64 `mapstructure:"MAX_EYE_SCALE"`

	// Homework rewards
	HomeworkXPReward        int     `mapstructure:"HOMEWORK_XP_REWARD"`
	HomeworkCoinReward      int     `mapstructure:"HOMEWORK_COIN_REWARD"`
	HomeworkHappinessReward float64 `mapstructure:"HOMEWORK_HAPPINESS_REWARD"`
	ExperiencePerLevel      int     `mapstructure:"EXPERIENCE_PER_LEVEL"`

	// Daily login rewards
	DailyLoginBaseCoins      int     `mapstructure:"DAILY_LOGIN_BASE_COINS"`
	MaxStreakBonusCoins      int     `mapstructure:"MAX_STREAK_BONUS_COINS"`
	DailyLoginHappinessBonus float64 `mapstructure:"DAILY_LOGIN_HAPPINESS_BONUS"`
	MilestoneBonus3          int     `mapstructure:"MILESTONE_BONUS_3"`
	MilestoneBonus7          int     `mapstructure:"MILESTONE_BONUS_7"`
	MilestoneBonus14         int     `mapstructure:"MILESTONE_BONUS_14"`
	MilestoneBonus30         int     `mapstructure:"MILESTONE_BONUS_30"`

	// Meter decay
	HappinessDecayPerMinute float64 `mapstructure:"HAPPINESS_DECAY_PER_MINUTE"`
	HungerDecayPerMinute    float64 `mapstructure:"HUNGER_DECAY_PER_MINUTE"`
	EnergyDecayPerMinute    float64 `mapstructure:"ENERGY_DECAY_PER_MINUTE"`
	HappinessFloor          float64 `mapstructure:"HAPPINESS_FLOOR"`
	HungerFloor             float64 `mapstructure:"HUNGER_FLOOR"`
	EnergyFloor             float64 `mapstructure:"ENERGY_FLOOR"`
	LowMeterThreshold       float64 `mapstructure:"LOW_METER_THRESHOLD"`

	// Care actions
	FeedRecovery       float64 `mapstructure:"FEED_RECOVERY"`
	RestRecovery       float64 `mapstructure:"REST_RECOVERY"`
	PlayHappinessBonus float64 `mapstructure:"PLAY_HAPPINESS_BONUS"`
	PlayEnergyCost     float64 `mapstructure:"PLAY_ENERGY_COST"`

	// Name filtering. Substring match, lower-cased.
	ProfanityBlocklist []string `mapstructure:"PROFANITY_BLOCKLIST"`
}

// Default returns the compiled-in configuration (the game constants).
func Default() *GameConfig {
	return &GameConfig{
		AppPort:   ":8080",
		JWTSecret: "minime_dev_secret",

		StorageDriver: "json",
		SaveFilePath:  defaultSavePath(),
		DatabaseDSN:   "",
		BackupCount:   5,

		AMQPUrl: "",

		EnableAutoSave:   true,
		AutoSaveInterval: 30.0,
		DecayInterval:    60.0,

		StartingCoins:     100,
		StartingHappiness: 75.0,
		StartingHunger:    75.0,
		StartingEnergy:    75.0,

		MaxCoins:        999999,
		MaxExperience:   999999,
		MaxSingleReward: 1000,

		MinEyeScale: 0.5,
		MaxEyeScale: 2.0,

		HomeworkXPReward:        10,
		HomeworkCoinReward:      5,
		HomeworkHappinessReward: 5.0,
		ExperiencePerLevel:      100,

		DailyLoginBaseCoins:      10,
		MaxStreakBonusCoins:      20,
		DailyLoginHappinessBonus: 5.0,
		MilestoneBonus3:          15,
		MilestoneBonus7:          40,
		MilestoneBonus14:         75,
		MilestoneBonus30:         150,

		HappinessDecayPerMinute: 0.10,
		HungerDecayPerMinute:    0.15,
		EnergyDecayPerMinute:    0.12,
		HappinessFloor:          20.0,
		HungerFloor:             15.0,
		EnergyFloor:             10.0,
		LowMeterThreshold:       35.0,

		FeedRecovery:       20.0,
		RestRecovery:       25.0,
		PlayHappinessBonus: 10.0,
		PlayEnergyCost:     5.0,

		ProfanityBlocklist: []string{"damn", "hell", "crap", "stupid", "idiot"},
	}
}

// defaultSavePath places the save file under the platform's per-user
// configuration directory, falling back to a local data directory when
// that cannot be resolved.
func defaultSavePath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "data"
	} else {
		base = filepath.Join(base, "minime")
	}
	return filepath.Join(base, "userProfiles.json")
}

// Load reads configuration from the environment and an optional config file,
// layered over the compiled-in defaults. If the merged configuration fails
// validation, the violations are logged and the defaults are returned instead;
// the game never runs on invalid policy values.
func Load() *GameConfig {
	v := viper.New()

	defaults := Default()
	v.SetDefault("APP_PORT", defaults.AppPort)
	v.SetDefault("JWT_SECRET", defaults.JWTSecret)
	v.SetDefault("STORAGE_DRIVER", defaults.StorageDriver)
	v.SetDefault("SAVE_FILE_PATH", defaults.SaveFilePath)
	v.SetDefault("DATABASE_DSN", defaults.DatabaseDSN)
	v.SetDefault("BACKUP_COUNT", defaults.BackupCount)
	v.SetDefault("AMQP_URL", defaults.AMQPUrl)
	v.SetDefault("ENABLE_AUTO_SAVE", defaults.EnableAutoSave)
	v.SetDefault("AUTO_SAVE_INTERVAL_SECONDS", defaults.AutoSaveInterval)
	v.SetDefault("DECAY_INTERVAL_SECONDS", defaults.DecayInterval)
	v.SetDefault("STARTING_COINS", defaults.StartingCoins)
	v.SetDefault("STARTING_HAPPINESS", defaults.StartingHappiness)
	v.SetDefault("STARTING_HUNGER", defaults.StartingHunger)
	v.SetDefault("STARTING_ENERGY", defaults.StartingEnergy)
	v.SetDefault("MAX_COINS", defaults.MaxCoins)
	v.SetDefault("MAX_EXPERIENCE", defaults.MaxExperience)
	v.SetDefault("MAX_SINGLE_REWARD", defaults.MaxSingleReward)
	v.SetDefault("MIN_EYE_SCALE", defaults.MinEyeScale)
	v.SetDefault("MAX_EYE_SCALE", defaults.MaxEyeScale)
	v.SetDefault("HOMEWORK_XP_REWARD", defaults.HomeworkXPReward)
	v.SetDefault("HOMEWORK_COIN_REWARD", defaults.HomeworkCoinReward)
	v.SetDefault("HOMEWORK_HAPPINESS_REWARD", defaults.HomeworkHappinessReward)
	v.SetDefault("EXPERIENCE_PER_LEVEL", defaults.ExperiencePerLevel)
	v.SetDefault("DAILY_LOGIN_BASE_COINS", defaults.DailyLoginBaseCoins)
	v.SetDefault("MAX_STREAK_BONUS_COINS", defaults.MaxStreakBonusCoins)
	v.SetDefault("DAILY_LOGIN_HAPPINESS_BONUS", defaults.DailyLoginHappinessBonus)
	v.SetDefault("MILESTONE_BONUS_3", defaults.MilestoneBonus3)
	v.SetDefault("MILESTONE_BONUS_7", defaults.MilestoneBonus7)
	v.SetDefault("MILESTONE_BONUS_14", defaults.MilestoneBonus14)
	v.SetDefault("MILESTONE_BONUS_30", defaults.MilestoneBonus30)
	v.SetDefault("HAPPINESS_DECAY_PER_MINUTE", defaults.HappinessDecayPerMinute)
	v.SetDefault("HUNGER_DECAY_PER_MINUTE", defaults.HungerDecayPerMinute)
	v.SetDefault("ENERGY_DECAY_PER_MINUTE", defaults.EnergyDecayPerMinute)
	v.SetDefault("HAPPINESS_FLOOR", defaults.HappinessFloor)
	v.SetDefault("HUNGER_FLOOR", defaults.HungerFloor)
	v.SetDefault("ENERGY_FLOOR", defaults.EnergyFloor)
	v.SetDefault("LOW_METER_THRESHOLD", defaults.LowMeterThreshold)
	v.SetDefault("FEED_RECOVERY", defaults.FeedRecovery)
	v.SetDefault("REST_RECOVERY", defaults.RestRecovery)
	v.SetDefault("PLAY_HAPPINESS_BONUS", defaults.PlayHappinessBonus)
	v.SetDefault("PLAY_ENERGY_COST", defaults.PlayEnergyCost)
	v.SetDefault("PROFANITY_BLOCKLIST", defaults.ProfanityBlocklist)

	// An optional config file may override the defaults; the environment
	// overrides both.
	v.SetConfigName("minime")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v. Continuing with defaults and environment.", err)
		}
	}

	var cfg GameConfig
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("Error unmarshalling configuration: %v. Using defaults.", err)
		return defaults
	}

	if violations := cfg.Validate(); len(violations) > 0 {
		for _, violation := range violations {
			log.Printf("Invalid configuration: %s", violation)
		}
		log.Println("Configuration rejected. Falling back to defaults.")
		return defaults
	}

	return &cfg
}

// Validate checks the configuration for internally-inconsistent values and
// returns a list of human-readable violations. An empty list means the
// configuration is safe to run on.
func (c *GameConfig) Validate() []string {
	var violations []string

	if c.MaxCoins <= 0 {
		violations = append(violations, fmt.Sprintf("MaxCoins must be positive, got %d", c.MaxCoins))
	}
	if c.MaxExperience <= 0 {
		violations = append(violations, fmt.Sprintf("MaxExperience must be positive, got %d", c.MaxExperience))
	}
	if c.MaxSingleReward <= 0 {
		violations = append(violations, fmt.Sprintf("MaxSingleReward must be positive, got %d", c.MaxSingleReward))
	}
	if c.StartingCoins < 0 || c.StartingCoins > c.MaxCoins {
		violations = append(violations, fmt.Sprintf("StartingCoins must be within [0, MaxCoins], got %d", c.StartingCoins))
	}
	if c.MinEyeScale >= c.MaxEyeScale {
		violations = append(violations, fmt.Sprintf("MinEyeScale (%.2f) must be less than MaxEyeScale (%.2f)", c.MinEyeScale, c.MaxEyeScale))
	}
	for name, floor := range map[string]float64{
		"HappinessFloor": c.HappinessFloor,
		"HungerFloor":    c.HungerFloor,
		"EnergyFloor":    c.EnergyFloor,
	} {
		if floor <= 0 || floor >= 100 {
			violations = append(violations, fmt.Sprintf("%s must be within (0, 100), got %.2f", name, floor))
		}
	}
	for name, start := range map[string]float64{
		"StartingHappiness": c.StartingHappiness,
		"StartingHunger":    c.StartingHunger,
		"StartingEnergy":    c.StartingEnergy,
	} {
		if start < 0 || start > 100 {
			violations = append(violations, fmt.Sprintf("%s must be within [0, 100], got %.2f", name, start))
		}
	}
	for name, rate := range map[string]float64{
		"HappinessDecayPerMinute": c.HappinessDecayPerMinute,
		"HungerDecayPerMinute":    c.HungerDecayPerMinute,
		"EnergyDecayPerMinute":    c.EnergyDecayPerMinute,
	} {
		if rate < 0 {
			violations = append(violations, fmt.Sprintf("%s must not be negative, got %.4f", name, rate))
		}
	}
	if c.LowMeterThreshold <= 0 || c.LowMeterThreshold >= 100 {
		violations = append(violations, fmt.Sprintf("LowMeterThreshold must be within (0, 100), got %.2f", c.LowMeterThreshold))
	}
	if c.AutoSaveInterval <= 0 {
		violations = append(violations, fmt.Sprintf("AutoSaveInterval must be positive, got %.2f", c.AutoSaveInterval))
	}
	if c.DecayInterval <= 0 {
		violations = append(violations, fmt.Sprintf("DecayInterval must be positive, got %.2f", c.DecayInterval))
	}
	if c.BackupCount < 0 {
		violations = append(violations, fmt.Sprintf("BackupCount must not be negative, got %d", c.BackupCount))
	}
	switch c.StorageDriver {
	case "json", "sqlite", "postgres":
	default:
		violations = append(violations, fmt.Sprintf("StorageDriver must be one of json, sqlite, postgres; got %q", c.StorageDriver))
	}

	return violations
}

// MilestoneBonus returns the fixed coin bonus for hitting the given streak
// exactly, or 0 when the streak is not a milestone day.
func (c *GameConfig) MilestoneBonus(streak int) int {
	switch streak {
	case 3:
		return c.MilestoneBonus3
	case 7:
		return c.MilestoneBonus7
	case 14:
		return c.MilestoneBonus14
	case 30:
		return c.MilestoneBonus30
	default:
		return 0
	}
}

// AutoSaveDuration converts the configured interval to a time.Duration.
func (c *GameConfig) AutoSaveDuration() time.Duration {
	return time.Duration(c.AutoSaveInterval * float64(time.Second))
}

// DecayDuration converts the configured decay tick interval to a time.Duration.
func (c *GameConfig) DecayDuration() time.Duration {
	return time.Duration(c.DecayInterval * float64(time.Second))
}
