package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/elemelon/internal/game"
	"github.com/user/elemelon/internal/types"
)

func TestCleanCommand(t *testing.T) {
	assert.Equal(t, "/status", cleanCommand("  /STATUS \n"))
}

func TestProcessRequiresSlash(t *testing.T) {
	cp := NewCommandProcessor(new(MockGameManager))
	assert.Contains(t, cp.Process("status"), "/help")
	assert.Contains(t, cp.Process("/"), "COMMANDS")
	assert.Contains(t, cp.Process("/dance"), "Unknown command")
}

func TestProcessStatus(t *testing.T) {
	gm := new(MockGameManager)
	progress := types.Progress{
		CollectedElements: map[types.Element]bool{types.ElementFire: true},
		CompletedTemples:  1,
		GameProgress:      25,
	}
	gm.On("Status").Return(&types.PlayerStatus{
		Health: 5, MaxHealth: 8, Tokens: 120, StaminaPercent: 50,
		WeaponName: "Wooden Stick", Progress: progress,
	}, nil)
	cp := NewCommandProcessor(gm)

	reply := cp.Process("/status")
	assert.Contains(t, reply, "Health: 5/8")
	assert.Contains(t, reply, "Tokens: 120")
	assert.Contains(t, reply, "Progress: 25% (1/4 temples)")
	assert.Contains(t, reply, "Elements: fire")
}

func TestProcessBuy(t *testing.T) {
	gm := new(MockGameManager)
	gm.On("Buy", "melon").Return(nil)
	gm.On("Buy", "great_axe").Return(game.ErrInsufficientTokens)
	cp := NewCommandProcessor(gm)

	assert.Equal(t, "Bought melon.", cp.Process("/buy melon"))
	assert.Equal(t, "Not enough tokens.", cp.Process("/Buy GREAT_AXE"))
	assert.Contains(t, cp.Process("/buy"), "Which item")
}

func TestProcessSolveAndAttack(t *testing.T) {
	gm := new(MockGameManager)
	gm.On("SolvePuzzle", types.ElementWind, "wind-puzzle-1").Return(nil)
	gm.On("Temples").Return([]types.TempleStatus{
		{Element: types.ElementWind, PuzzlesSolved: 1, PuzzlesTotal: 3},
	})
	gm.On("AttackBoss", "wind").Return(game.ErrOutOfRange)
	gm.On("AttackBoss", "final").Return(nil)
	cp := NewCommandProcessor(gm)

	assert.Equal(t, "Puzzle solved (1/3).", cp.Process("/solve wind wind-puzzle-1"))
	assert.Contains(t, cp.Process("/solve wind"), "/solve [element] [puzzle]")
	assert.Equal(t, "Get closer first.", cp.Process("/attack wind"))
	assert.Equal(t, "Hit!", cp.Process("/attack final"))
}

func TestProcessSlotsAreOneBased(t *testing.T) {
	gm := new(MockGameManager)
	gm.On("UseConsumable", 0).Return(nil)
	gm.On("SelectWeapon", 2).Return(game.ErrEmptySlot)
	cp := NewCommandProcessor(gm)

	assert.Equal(t, "Used slot 1.", cp.Process("/use 1"))
	assert.Contains(t, cp.Process("/use 0"), "/use [slot]")
	assert.Contains(t, cp.Process("/weapon 3"), "Error:")
	gm.AssertExpectations(t)
}

func TestProcessSaveAndLoad(t *testing.T) {
	gm := new(MockGameManager)
	gm.On("SaveGame", types.SaveQuick).Return(&types.SaveSummary{Slot: "quick"}, nil)
	gm.On("SaveGame", types.SaveManual).Return(&types.SaveSummary{Slot: "manual-1717439400"}, nil)
	gm.On("LoadGame", "quick").Return(true, nil)
	gm.On("LoadGame", "auto").Return(false, nil)
	cp := NewCommandProcessor(gm)

	assert.Equal(t, "Saved to quick.", cp.Process("/save quick"))
	assert.Equal(t, "Saved to manual-1717439400.", cp.Process("/save"))
	assert.Equal(t, "Loaded quick.", cp.Process("/load"))
	assert.Contains(t, cp.Process("/load auto"), "fresh game")
}

func TestFormatTemples(t *testing.T) {
	mf := NewMessageFormatter()
	reply := mf.FormatTemples([]types.TempleStatus{
		{Element: types.ElementWater, State: types.TempleLocked.String()},
		{Element: types.ElementFire, State: types.TemplePuzzlesActive.String(), PuzzlesSolved: 2, PuzzlesTotal: 3},
		{Element: types.ElementWind, State: types.TempleBossActive.String(), BossHealth: 4, BossMaxHealth: 10},
	})
	assert.Contains(t, reply, "water: locked")
	assert.Contains(t, reply, "fire: puzzles active (2/3 puzzles)")
	assert.Contains(t, reply, "wind: boss active (boss 4/10)")
}

func TestFormatShop(t *testing.T) {
	mf := NewMessageFormatter()
	reply := mf.FormatShop([]types.ShopItem{
		{ID: "melon", Name: "Melon Slice", Price: 3, Stock: 0},
		{ID: "elemental_blade", Name: "Elemental Blade", Price: 250, Stock: 1, MinTemplesCompleted: 1},
	})
	assert.Contains(t, reply, "melon - Melon Slice: 3 tokens (sold out)")
	assert.Contains(t, reply, "[needs 1 temples]")
}
