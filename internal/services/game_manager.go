package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"minime/internal/config"
	"minime/internal/models"
)

// GameManager drives the periodic ticks: meter decay for the current user
// and dirty-flag-gated auto-saves. It is the only component that spawns
// long-lived goroutines; Stop halts them and forces a final synchronous save
// so nothing is lost on shutdown.
type GameManager struct {
	cfg         *config.GameConfig
	userManager *UserManager
	decaySystem *MeterDecaySystem

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewGameManager creates the game loop coordinator.
func NewGameManager(cfg *config.GameConfig, userManager *UserManager, decaySystem *MeterDecaySystem) *GameManager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &GameManager{
		cfg:         cfg,
		userManager: userManager,
		decaySystem: decaySystem,
	}
}

// Start launches the decay and auto-save tickers. Calling Start on a running
// manager is a no-op.
func (g *GameManager) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return
	}
	g.running = true
	g.stop = make(chan struct{})

	g.wg.Add(1)
	go g.decayLoop(g.stop)

	if g.cfg.EnableAutoSave {
		g.wg.Add(1)
		go g.autoSaveLoop(g.stop)
	}

	log.Println("GameManager started")
}

// Stop halts the tickers, waits for them to finish and forces a final
// synchronous save. Best effort: a failed final save is logged, not retried.
func (g *GameManager) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.stop)
	g.mu.Unlock()

	g.wg.Wait()
	if err := g.userManager.SaveNow(); err != nil {
		log.Printf("Error during final save: %v", err)
	}
	log.Println("GameManager stopped")
}

func (g *GameManager) decayLoop(stop <-chan struct{}) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.DecayDuration())
	defer ticker.Stop()

	elapsedMinutes := g.cfg.DecayInterval / 60.0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if user := g.userManager.CurrentUser(); user != nil {
				g.decaySystem.ApplyDecay(user, elapsedMinutes)
			}
		}
	}
}

func (g *GameManager) autoSaveLoop(stop <-chan struct{}) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.AutoSaveDuration())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.userManager.SaveIfDirty()
		}
	}
}

// CompleteHomework applies the homework rewards to the current user.
func (g *GameManager) CompleteHomework() (*models.UserProfile, error) {
	user := g.userManager.CurrentUser()
	if user == nil {
		return nil, fmt.Errorf("no user logged in")
	}
	user.CompleteHomework()
	return user, nil
}
