package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/user/elemelon/internal/types"
	"go.uber.org/zap"
)

// DataLoader handles loading game data from files
type DataLoader struct{}

// NewDataLoader creates a new data loader
func NewDataLoader() *DataLoader {
	return &DataLoader{}
}

// LoadShopCatalog loads shop item definitions from a JSON file
func (dl *DataLoader) LoadShopCatalog(path string) ([]types.ShopItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shop catalog: %w", err)
	}

	var items []types.ShopItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse shop catalog: %w", err)
	}

	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" || it.Price < 0 || it.Stock < 0 {
			return nil, fmt.Errorf("invalid shop item %q", it.ID)
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("duplicate shop item %q", it.ID)
		}
		seen[it.ID] = true
	}

	return items, nil
}

// DiceRoller handles dice rolling for the game
type DiceRoller struct {
	rng *rand.Rand
}

// NewDiceRoller creates a dice roller. The same seed always yields the same rolls.
func NewDiceRoller(seed int64) *DiceRoller {
	return &DiceRoller{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Roll rolls a dice with the specified number of sides
func (dr *DiceRoller) Roll(sides int) int {
	if sides < 1 {
		return 1
	}
	return dr.rng.Intn(sides) + 1
}

// Float64 returns a uniform value in [0,1)
func (dr *DiceRoller) Float64() float64 {
	return dr.rng.Float64()
}

// TickLoop drives GameManager.Tick at a fixed rate
type TickLoop struct {
	gameManager *GameManager
	interval    time.Duration
}

// NewTickLoop creates a loop running rate ticks per second
func NewTickLoop(gameManager *GameManager, rate int) *TickLoop {
	if rate <= 0 {
		rate = 30
	}
	return &TickLoop{
		gameManager: gameManager,
		interval:    time.Second / time.Duration(rate),
	}
}

// Run ticks until ctx is cancelled. The tick delta is the measured wall
// time since the previous tick.
func (tl *TickLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(tl.interval)
	defer ticker.Stop()

	tl.gameManager.Logger.Info("Starting tick loop", zap.Duration("interval", tl.interval))
	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			tl.gameManager.Tick(dt)
		case <-ctx.Done():
			tl.gameManager.Logger.Info("Tick loop stopped")
			return nil
		}
	}
}
