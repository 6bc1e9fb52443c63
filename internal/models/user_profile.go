package models

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"minime/internal/config"
	"minime/internal/events"
)

// UserProfile represents one student's persistent state: identity, currency,
// experience, the character's care meters, customization, streak history and
// inventory. All mutation goes through the methods below so that every
// committed change can mark the owning manager dirty and fire the matching
// change event. Direct field assignment from outside is reserved for
// deserialization.
//
// Mutators commit the field change under the profile's own lock, then notify
// (dirty callback, event bus) after releasing it. The manager takes its own
// lock inside those callbacks and also while cloning profiles for a save
// snapshot, so the notify-after-unlock rule is what keeps the two locks from
// ever being held in opposite orders.
type UserProfile struct {
	UserID      string `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	UserName    string `json:"username" gorm:"uniqueIndex;type:varchar(20)" validate:"required,min=3,max=20"`
	DisplayName string `json:"display_name" gorm:"type:varchar(30)" validate:"required,min=2,max=30"`
	CreatedDate string `json:"created_date"`
	IsActive    bool   `json:"is_active"`

	Coins            int `json:"coins"`
	ExperiencePoints int `json:"experience_points"`

	CharacterHappiness float64 `json:"character_happiness"`
	CharacterHunger    float64 `json:"character_hunger"`
	CharacterEnergy    float64 `json:"character_energy"`

	EyeScale         float64 `json:"eye_scale"`
	CurrentOutfit    string  `json:"current_outfit"`
	CurrentAccessory string  `json:"current_accessory"`

	HomeworkCompleted int `json:"homework_completed"`
	DaysActive        int `json:"days_active"`

	LastLoginDateString string `json:"last_login_date"`
	CurrentStreak       int    `json:"current_streak"`
	LongestStreak       int    `json:"longest_streak"`

	OwnedItems []string `json:"owned_items" gorm:"serializer:json"`

	// Wiring set by the owning UserManager; unexported, so neither the JSON
	// codec nor gorm will ever persist it.
	mu      sync.Mutex
	cfg     *config.GameConfig
	bus     *events.Bus
	onDirty func()
}

// NewUserProfile creates a profile with the configured starting state.
// Validation of the username and display name is the UserManager's job.
func NewUserProfile(username, displayName string, cfg *config.GameConfig) *UserProfile {
	if cfg == nil {
		cfg = config.Default()
	}
	return &UserProfile{
		UserID:             uuid.New().String(),
		UserName:           username,
		DisplayName:        displayName,
		CreatedDate:        time.Now().Format(time.RFC3339),
		IsActive:           true,
		Coins:              cfg.StartingCoins,
		CharacterHappiness: cfg.StartingHappiness,
		CharacterHunger:    cfg.StartingHunger,
		CharacterEnergy:    cfg.StartingEnergy,
		EyeScale:           1.0,
		CurrentOutfit:      "default",
		CurrentAccessory:   "none",
		DaysActive:         0,
		OwnedItems:         []string{},
		cfg:                cfg,
	}
}

// Attach wires the profile to its owning manager's config, event bus and
// dirty callback. Called for freshly created profiles and again after load,
// since the wiring is not persisted.
func (u *UserProfile) Attach(cfg *config.GameConfig, bus *events.Bus, onDirty func()) {
	u.cfg = cfg
	u.bus = bus
	u.onDirty = onDirty
}

func (u *UserProfile) config() *config.GameConfig {
	if u.cfg == nil {
		return config.Default()
	}
	return u.cfg
}

func (u *UserProfile) markDirty() {
	if u.onDirty != nil {
		u.onDirty()
	}
}

func (u *UserProfile) publish(t events.EventType, payload map[string]interface{}) {
	if u.bus != nil {
		u.bus.Publish(events.Event{Type: t, Username: u.UserName, Payload: payload})
	}
}

// AddCoins credits the balance, saturating at MaxCoins. Amounts that are
// negative or beyond the per-call reward bound are rejected and logged; a
// single legitimate reward never exceeds MaxSingleReward.
func (u *UserProfile) AddCoins(amount int) {
	cfg := u.config()
	if amount < 0 || amount > cfg.MaxSingleReward {
		log.Printf("Rejected AddCoins(%d) for user %s: amount out of range [0, %d]", amount, u.UserName, cfg.MaxSingleReward)
		return
	}

	u.mu.Lock()
	u.Coins += amount
	if u.Coins > cfg.MaxCoins {
		u.Coins = cfg.MaxCoins
	}
	coins := u.Coins
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.CoinsChanged, map[string]interface{}{"coins": coins})
}

// AddExperience credits experience points, saturating at MaxExperience.
// Experience is monotonic in normal play; there is no matching debit.
func (u *UserProfile) AddExperience(amount int) {
	cfg := u.config()
	if amount < 0 || amount > cfg.MaxSingleReward {
		log.Printf("Rejected AddExperience(%d) for user %s: amount out of range [0, %d]", amount, u.UserName, cfg.MaxSingleReward)
		return
	}

	u.mu.Lock()
	u.ExperiencePoints += amount
	if u.ExperiencePoints > cfg.MaxExperience {
		u.ExperiencePoints = cfg.MaxExperience
	}
	xp := u.ExperiencePoints
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.ExperienceChanged, map[string]interface{}{"experience_points": xp})
}

// SpendCoins attempts to debit the balance. It returns false and leaves the
// balance untouched when the amount is negative or exceeds the balance. This
// is the only resource mutator with a success contract; an insufficient
// balance is a routine outcome, not an error.
func (u *UserProfile) SpendCoins(amount int) bool {
	u.mu.Lock()
	if amount < 0 || amount > u.Coins {
		u.mu.Unlock()
		return false
	}
	u.Coins -= amount
	coins := u.Coins
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.CoinsChanged, map[string]interface{}{"coins": coins})
	return true
}

// Meter adjustments. Increases cap at 100; decreases stop at the meter's
// configured floor on every path, manual or decay, so the meters can never
// reach zero. (The original game clamped manual decreases to 0, which broke
// that promise; all paths now share the floor.)

// IncreaseHappiness raises the happiness meter, capped at 100.
func (u *UserProfile) IncreaseHappiness(amount float64) {
	u.adjustHappiness(amount)
}

// DecreaseHappiness lowers the happiness meter, stopping at its floor.
func (u *UserProfile) DecreaseHappiness(amount float64) {
	u.adjustHappiness(-amount)
}

// IncreaseHunger raises the hunger (fullness) meter, capped at 100.
func (u *UserProfile) IncreaseHunger(amount float64) {
	u.adjustHunger(amount)
}

// DecreaseHunger lowers the hunger meter, stopping at its floor.
func (u *UserProfile) DecreaseHunger(amount float64) {
	u.adjustHunger(-amount)
}

// IncreaseEnergy raises the energy meter, capped at 100.
func (u *UserProfile) IncreaseEnergy(amount float64) {
	u.adjustEnergy(amount)
}

// DecreaseEnergy lowers the energy meter, stopping at its floor.
func (u *UserProfile) DecreaseEnergy(amount float64) {
	u.adjustEnergy(-amount)
}

func (u *UserProfile) adjustHappiness(delta float64) {
	u.mu.Lock()
	u.CharacterHappiness = clampMeter(u.CharacterHappiness+delta, u.config().HappinessFloor)
	value := u.CharacterHappiness
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.HappinessChanged, map[string]interface{}{"value": value})
}

func (u *UserProfile) adjustHunger(delta float64) {
	u.mu.Lock()
	u.CharacterHunger = clampMeter(u.CharacterHunger+delta, u.config().HungerFloor)
	value := u.CharacterHunger
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.HungerChanged, map[string]interface{}{"value": value})
}

func (u *UserProfile) adjustEnergy(delta float64) {
	u.mu.Lock()
	u.CharacterEnergy = clampMeter(u.CharacterEnergy+delta, u.config().EnergyFloor)
	value := u.CharacterEnergy
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.EnergyChanged, map[string]interface{}{"value": value})
}

func clampMeter(value, floor float64) float64 {
	if value > 100 {
		return 100
	}
	if value < floor {
		return floor
	}
	return value
}

// Meters returns a consistent reading of the three care meters.
func (u *UserProfile) Meters() (happiness, hunger, energy float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.CharacterHappiness, u.CharacterHunger, u.CharacterEnergy
}

// Feed restores the hunger meter by the configured recovery amount.
func (u *UserProfile) Feed() {
	u.IncreaseHunger(u.config().FeedRecovery)
}

// Rest restores the energy meter by the configured recovery amount.
func (u *UserProfile) Rest() {
	u.IncreaseEnergy(u.config().RestRecovery)
}

// Play trades a little energy for a happiness bonus.
func (u *UserProfile) Play() {
	cfg := u.config()
	u.IncreaseHappiness(cfg.PlayHappinessBonus)
	u.DecreaseEnergy(cfg.PlayEnergyCost)
}

// ApplyMeterDecay applies time-elapsed decay to the three meters. A meter
// only decays while it is above its floor and never drops below it; this is
// what keeps the pet cozy rather than stressful. Decay amounts must be
// non-negative.
func (u *UserProfile) ApplyMeterDecay(happinessDecay, hungerDecay, energyDecay float64) {
	cfg := u.config()

	u.mu.Lock()
	happinessMoved, hungerMoved, energyMoved := false, false, false
	if u.CharacterHappiness > cfg.HappinessFloor && happinessDecay > 0 {
		u.CharacterHappiness = clampMeter(u.CharacterHappiness-happinessDecay, cfg.HappinessFloor)
		happinessMoved = true
	}
	if u.CharacterHunger > cfg.HungerFloor && hungerDecay > 0 {
		u.CharacterHunger = clampMeter(u.CharacterHunger-hungerDecay, cfg.HungerFloor)
		hungerMoved = true
	}
	if u.CharacterEnergy > cfg.EnergyFloor && energyDecay > 0 {
		u.CharacterEnergy = clampMeter(u.CharacterEnergy-energyDecay, cfg.EnergyFloor)
		energyMoved = true
	}
	happiness, hunger, energy := u.CharacterHappiness, u.CharacterHunger, u.CharacterEnergy
	u.mu.Unlock()

	if !happinessMoved && !hungerMoved && !energyMoved {
		return
	}
	u.markDirty()
	// One event per meter that actually moved; a meter parked at its floor
	// stays silent.
	if happinessMoved {
		u.publish(events.HappinessChanged, map[string]interface{}{"value": happiness})
	}
	if hungerMoved {
		u.publish(events.HungerChanged, map[string]interface{}{"value": hunger})
	}
	if energyMoved {
		u.publish(events.EnergyChanged, map[string]interface{}{"value": energy})
	}
}

// CompleteHomework records a finished homework item and applies the
// configured experience, coin and happiness rewards as one compound
// transaction over the sub-mutators.
func (u *UserProfile) CompleteHomework() {
	cfg := u.config()

	u.mu.Lock()
	u.HomeworkCompleted++
	count := u.HomeworkCompleted
	u.mu.Unlock()

	u.AddExperience(cfg.HomeworkXPReward)
	u.AddCoins(cfg.HomeworkCoinReward)
	u.IncreaseHappiness(cfg.HomeworkHappinessReward)

	u.markDirty()
	u.publish(events.HomeworkCompleted, map[string]interface{}{"homework_completed": count})
}

// DailyLoginOutcome is the committed streak outcome of one login attempt.
type DailyLoginOutcome struct {
	FirstToday    bool
	Streak        int
	LongestStreak int
	IsNewRecord   bool
}

// RecordDailyLogin applies the daily streak state machine in one atomic step:
// it decides whether this is the first login of the calendar day and, if so,
// commits the new streak value, the longest-streak high-water mark, the
// active-day counter and the login date. Deciding and committing under one
// lock is what makes two simultaneous logins credit at most one bonus; reward
// crediting itself is the DailyLoginSystem's job.
func (u *UserProfile) RecordDailyLogin(today, yesterday string) DailyLoginOutcome {
	u.mu.Lock()
	if u.LastLoginDateString == today {
		outcome := DailyLoginOutcome{
			Streak:        u.CurrentStreak,
			LongestStreak: u.LongestStreak,
		}
		u.mu.Unlock()
		return outcome
	}

	newStreak := 1
	if u.LastLoginDateString == yesterday {
		newStreak = u.CurrentStreak + 1
	}
	u.LastLoginDateString = today
	u.CurrentStreak = newStreak
	u.DaysActive++
	isNewRecord := false
	if newStreak > u.LongestStreak {
		u.LongestStreak = newStreak
		isNewRecord = true
	}
	outcome := DailyLoginOutcome{
		FirstToday:    true,
		Streak:        newStreak,
		LongestStreak: u.LongestStreak,
		IsNewRecord:   isNewRecord,
	}
	u.mu.Unlock()

	u.markDirty()
	return outcome
}

// SetEyeScale sets the eye customization, clamped to the configured bounds.
func (u *UserProfile) SetEyeScale(scale float64) {
	cfg := u.config()
	if scale < cfg.MinEyeScale {
		scale = cfg.MinEyeScale
	}
	if scale > cfg.MaxEyeScale {
		scale = cfg.MaxEyeScale
	}

	u.mu.Lock()
	u.EyeScale = scale
	u.mu.Unlock()
	u.markDirty()
}

// SetOutfit changes the equipped outfit.
func (u *UserProfile) SetOutfit(outfit string) {
	u.mu.Lock()
	u.CurrentOutfit = outfit
	u.mu.Unlock()
	u.markDirty()
}

// SetAccessory changes the equipped accessory.
func (u *UserProfile) SetAccessory(accessory string) {
	u.mu.Lock()
	u.CurrentAccessory = accessory
	u.mu.Unlock()
	u.markDirty()
}

// Purchase failure modes. Both are routine outcomes a kid can hit by
// double-tapping a shop button, so they are sentinel errors rather than
// booleans scattered across return values.
var (
	ErrItemAlreadyOwned  = errors.New("item already owned")
	ErrInsufficientCoins = errors.New("insufficient coins")
)

// BuyItem atomically checks ownership, debits the price and adds the item to
// the inventory. Running the whole check-then-act under one lock means two
// simultaneous purchases of the same item can never double-charge: the loser
// sees the item as owned and the balance is debited exactly once.
func (u *UserProfile) BuyItem(itemID string, price int) error {
	u.mu.Lock()
	if u.ownsItemLocked(itemID) {
		u.mu.Unlock()
		return ErrItemAlreadyOwned
	}
	if price < 0 || price > u.Coins {
		u.mu.Unlock()
		return ErrInsufficientCoins
	}
	u.Coins -= price
	coins := u.Coins
	u.OwnedItems = append(u.OwnedItems, itemID)
	sort.Strings(u.OwnedItems)
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.CoinsChanged, map[string]interface{}{"coins": coins})
	u.publish(events.ItemAdded, map[string]interface{}{"item_id": itemID})
	return nil
}

// AddItem adds an item to the inventory. Owning an item twice is not a
// meaningful state, so duplicates are rejected; the inventory stays sorted
// for stable serialization. Returns true when the item was added.
func (u *UserProfile) AddItem(itemID string) bool {
	u.mu.Lock()
	if u.ownsItemLocked(itemID) {
		u.mu.Unlock()
		return false
	}
	u.OwnedItems = append(u.OwnedItems, itemID)
	sort.Strings(u.OwnedItems)
	u.mu.Unlock()

	u.markDirty()
	u.publish(events.ItemAdded, map[string]interface{}{"item_id": itemID})
	return true
}

// OwnsItem reports whether the item is already in the inventory.
func (u *UserProfile) OwnsItem(itemID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ownsItemLocked(itemID)
}

func (u *UserProfile) ownsItemLocked(itemID string) bool {
	for _, owned := range u.OwnedItems {
		if owned == itemID {
			return true
		}
	}
	return false
}

// Level derives the character level from experience points.
func (u *UserProfile) Level() int {
	per := u.config().ExperiencePerLevel
	if per <= 0 {
		per = 100
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ExperiencePoints/per + 1
}

// Sanitize clamps persisted values back into their legal ranges. Save files
// are plain JSON a student can edit, so loaded profiles get the same clamps
// the mutators enforce. Returns true when anything had to be corrected.
func (u *UserProfile) Sanitize() bool {
	cfg := u.config()

	u.mu.Lock()
	defer u.mu.Unlock()
	changed := false

	clampInt := func(v *int, lo, hi int) {
		if *v < lo {
			*v = lo
			changed = true
		}
		if *v > hi {
			*v = hi
			changed = true
		}
	}
	clampFloat := func(v *float64, lo, hi float64) {
		if *v < lo {
			*v = lo
			changed = true
		}
		if *v > hi {
			*v = hi
			changed = true
		}
	}

	clampInt(&u.Coins, 0, cfg.MaxCoins)
	clampInt(&u.ExperiencePoints, 0, cfg.MaxExperience)
	clampFloat(&u.CharacterHappiness, cfg.HappinessFloor, 100)
	clampFloat(&u.CharacterHunger, cfg.HungerFloor, 100)
	clampFloat(&u.CharacterEnergy, cfg.EnergyFloor, 100)
	clampFloat(&u.EyeScale, cfg.MinEyeScale, cfg.MaxEyeScale)
	if u.CurrentStreak < 0 {
		u.CurrentStreak = 0
		changed = true
	}
	if u.LongestStreak < u.CurrentStreak {
		u.LongestStreak = u.CurrentStreak
		changed = true
	}
	if u.OwnedItems == nil {
		u.OwnedItems = []string{}
	}

	return changed
}

// Clone returns a deep copy of the persistent state, detached from the
// manager wiring. Used to snapshot profiles for background writes and to
// render consistent status views while the tickers run.
func (u *UserProfile) Clone() *UserProfile {
	u.mu.Lock()
	defer u.mu.Unlock()

	copied := UserProfile{
		UserID:              u.UserID,
		UserName:            u.UserName,
		DisplayName:         u.DisplayName,
		CreatedDate:         u.CreatedDate,
		IsActive:            u.IsActive,
		Coins:               u.Coins,
		ExperiencePoints:    u.ExperiencePoints,
		CharacterHappiness:  u.CharacterHappiness,
		CharacterHunger:     u.CharacterHunger,
		CharacterEnergy:     u.CharacterEnergy,
		EyeScale:            u.EyeScale,
		CurrentOutfit:       u.CurrentOutfit,
		CurrentAccessory:    u.CurrentAccessory,
		HomeworkCompleted:   u.HomeworkCompleted,
		DaysActive:          u.DaysActive,
		LastLoginDateString: u.LastLoginDateString,
		CurrentStreak:       u.CurrentStreak,
		LongestStreak:       u.LongestStreak,
		OwnedItems:          append([]string(nil), u.OwnedItems...),
	}
	return &copied
}
