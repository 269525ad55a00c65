package game

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/observe"
	"github.com/user/elemelon/internal/types"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// Mock SceneSink for testing
type MockScene struct {
	mock.Mock
}

func (m *MockScene) AddObject(obj *types.WorldObject) {
	m.Called(obj)
}

func (m *MockScene) RemoveObject(id string) {
	m.Called(id)
}

func newStartedManager(t *testing.T, cfg config.Config) *GameManager {
	t.Helper()
	gm := NewGameManager(cfg)
	gm.SetLogger(zaptest.NewLogger(t))
	require.NoError(t, gm.Start(42))
	return gm
}

func withFileStore(t *testing.T, gm *GameManager) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "saves")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	gm.SetSaveStore(store)
	return dir
}

// strongWeapon makes boss fights a single hit
func strongWeapon(gm *GameManager) {
	gm.player.State.Weapons[0] = &types.Weapon{ID: "test_hammer", Name: "Test Hammer", Damage: 1000, Range: 5, Cooldown: 0.1}
	gm.player.State.ActiveWeapon = 0
}

// defeatTemple drives one temple to boss defeat through the manager
func defeatTemple(t *testing.T, gm *GameManager, e types.Element) {
	t.Helper()
	tp := gm.templeByElement[e]
	require.NotNil(t, tp)
	tp.Enter()
	for i := 1; i <= 3; i++ {
		require.NoError(t, gm.SolvePuzzle(e, fmt.Sprintf("%s-puzzle-%d", e, i)))
	}
	gm.player.State.Position = tp.Boss().Position
	strongWeapon(gm)
	gm.player.weaponCooldown = 0
	require.NoError(t, gm.AttackBoss(string(e)))
}

func TestManagerBeforeStart(t *testing.T) {
	gm := NewGameManager(config.DefaultConfig())

	assert.False(t, gm.IsReady())
	gm.Tick(0.1)

	_, err := gm.Status()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, gm.Buy("melon"), ErrNotReady)
	assert.ErrorIs(t, gm.AttackBoss("fire"), ErrNotReady)
	assert.Empty(t, gm.Temples())
	assert.Empty(t, gm.Nearby(100))
	assert.Zero(t, gm.WorldSeed())
}

func TestManagerStart(t *testing.T) {
	scene := new(MockScene)
	scene.On("AddObject", mock.Anything).Return()

	gm := NewGameManager(config.DefaultConfig())
	gm.SetScene(scene)
	require.NoError(t, gm.Start(42))

	assert.True(t, gm.IsReady())
	assert.Equal(t, int64(42), gm.WorldSeed())
	scene.AssertNumberOfCalls(t, "AddObject", len(gm.Objects("")))

	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, types.MaxHealth, status.Health)
	assert.Equal(t, 20, status.Tokens)
	assert.Equal(t, 100.0, status.StaminaPercent)
	assert.Equal(t, "Wooden Stick", status.WeaponName)
	assert.False(t, status.FinalBossOpen)

	temples := gm.Temples()
	require.Len(t, temples, types.TempleCount)
	for i, st := range temples {
		assert.Equal(t, types.AllElements[i], st.Element)
		assert.Equal(t, "locked", st.State)
	}
	assert.Len(t, gm.ShopItems(), len(config.DefaultShopItems()))
}

func TestManagerMovesPlayerFromInput(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())

	gm.SetInput(types.InputState{Intent: types.MovementIntent{Forward: true}})
	gm.Tick(0.1)

	status, err := gm.Status()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, status.Position.Z, 1e-9)
}

func TestManagerPicksUpCollectibles(t *testing.T) {
	scene := new(MockScene)
	scene.On("AddObject", mock.Anything).Return()
	scene.On("RemoveObject", mock.Anything).Return()

	gm := NewGameManager(config.DefaultConfig())
	gm.SetScene(scene)
	require.NoError(t, gm.Start(42))

	collectibles := gm.Objects(types.KindCollectible)
	require.NotEmpty(t, collectibles)
	target := collectibles[0]

	gm.player.State.Position = target.Position
	gm.Tick(0.01)

	status, err := gm.Status()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, status.Tokens, 20+target.Value)
	assert.Less(t, len(gm.Objects(types.KindCollectible)), len(collectibles))
	scene.AssertCalled(t, "RemoveObject", target.ID)
}

func TestManagerTempleFlow(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	water := gm.templeByElement[types.ElementWater]

	// step next to the temple wall to trip the entrance trigger
	gm.player.State.Position = water.Object.Position.Add(types.Vec3{X: 11.5})
	gm.Tick(0.01)
	assert.Equal(t, types.TemplePuzzlesActive, water.State())

	assert.ErrorIs(t, gm.AttackBoss("water"), ErrBossNotActive)
	assert.ErrorIs(t, gm.SolvePuzzle("earth", "earth-puzzle-1"), ErrUnknownTemple)
	assert.ErrorIs(t, gm.SolvePuzzle(types.ElementWater, "nope"), ErrUnknownPuzzle)

	for _, id := range []string{"water-puzzle-1", "water-puzzle-2", "water-puzzle-3"} {
		require.NoError(t, gm.SolvePuzzle(types.ElementWater, id))
	}
	assert.Equal(t, types.TempleBossActive, water.State())

	gm.player.State.Position = water.Boss().Position.Add(types.Vec3{X: 50})
	assert.ErrorIs(t, gm.AttackBoss("water"), ErrOutOfRange)

	gm.player.State.Position = water.Boss().Position
	strongWeapon(gm)
	require.NoError(t, gm.AttackBoss("water"))
	assert.Equal(t, types.TempleBossDefeated, water.State())

	gm.Tick(0.01)
	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, types.TempleRewardsGranted, water.State())
	assert.Equal(t, 25.0, status.Progress.GameProgress)
	assert.Equal(t, 1, status.Progress.CompletedTemples)
	assert.True(t, status.Progress.CollectedElements[types.ElementWater])
	assert.GreaterOrEqual(t, status.Tokens, 120)

	gm.Tick(0.01)
	again, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, again.Progress.CompletedTemples, "rewards are granted once")
}

func TestManagerWeaponCooldown(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	fire := gm.templeByElement[types.ElementFire]
	fire.Enter()
	for _, id := range []string{"fire-puzzle-1", "fire-puzzle-2", "fire-puzzle-3"} {
		require.NoError(t, gm.SolvePuzzle(types.ElementFire, id))
	}
	gm.player.State.Position = fire.Boss().Position

	require.NoError(t, gm.AttackBoss("fire"))
	assert.ErrorIs(t, gm.AttackBoss("fire"), ErrWeaponCooldown)
	assert.Less(t, fire.Boss().Health, fire.Boss().MaxHealth)
}

func TestManagerFinalBoss(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	assert.ErrorIs(t, gm.AttackBoss(FinalBossTarget), ErrBossNotActive)

	for _, e := range types.AllElements {
		defeatTemple(t, gm, e)
		gm.Tick(0.01)
	}

	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, 100.0, status.Progress.GameProgress)
	assert.True(t, status.FinalBossOpen)
	require.NotNil(t, gm.finalBoss)
	assert.Equal(t, gm.finalBoss.MaxHealth, status.FinalBossHP)
	assert.False(t, status.Victory)

	gm.player.State.Position = gm.finalBoss.Position
	gm.player.weaponCooldown = 0
	require.NoError(t, gm.AttackBoss(FinalBossTarget))
	gm.Tick(0.01)

	status, err = gm.Status()
	require.NoError(t, err)
	assert.True(t, status.Victory)
}

func TestManagerEmitsBossesToScene(t *testing.T) {
	scene := new(MockScene)
	scene.On("AddObject", mock.Anything).Return()
	scene.On("RemoveObject", mock.Anything).Return()

	gm := NewGameManager(config.DefaultConfig())
	gm.SetScene(scene)
	require.NoError(t, gm.Start(42))

	isBoss := func(id string) interface{} {
		return mock.MatchedBy(func(obj *types.WorldObject) bool {
			return obj.Kind == types.KindBoss && obj.ID == id
		})
	}

	for _, e := range types.AllElements {
		defeatTemple(t, gm, e)
		gm.Tick(0.01)
		id := "boss-" + string(e)
		scene.AssertCalled(t, "AddObject", isBoss(id))
		scene.AssertCalled(t, "RemoveObject", id)
	}

	require.NotNil(t, gm.finalBoss)
	scene.AssertCalled(t, "AddObject", isBoss("boss-final"))
	scene.AssertNotCalled(t, "RemoveObject", "boss-final")

	gm.player.State.Position = gm.finalBoss.Position
	gm.player.weaponCooldown = 0
	require.NoError(t, gm.AttackBoss(FinalBossTarget))
	gm.Tick(0.01)
	scene.AssertCalled(t, "RemoveObject", "boss-final")
}

func TestManagerRegenerateRemovesLiveBosses(t *testing.T) {
	scene := new(MockScene)
	scene.On("AddObject", mock.Anything).Return()
	scene.On("RemoveObject", mock.Anything).Return()

	gm := NewGameManager(config.DefaultConfig())
	gm.SetScene(scene)
	require.NoError(t, gm.Start(42))

	water := gm.templeByElement[types.ElementWater]
	water.Enter()
	for i := 1; i <= 3; i++ {
		require.NoError(t, gm.SolvePuzzle(types.ElementWater, fmt.Sprintf("water-puzzle-%d", i)))
	}
	scene.AssertNotCalled(t, "RemoveObject", "boss-water")

	require.NoError(t, gm.Regenerate(9))
	scene.AssertCalled(t, "RemoveObject", "boss-water")
}

func TestManagerRespawnsDeadPlayer(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	gm.player.State.Position = types.Vec3{X: 15, Z: 15}
	gm.player.TakeDamage(types.MaxHealth)

	gm.Tick(0.01)

	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, types.MaxHealth, status.Health)
	assert.InDelta(t, 0, status.Position.X, 1e-9)
	assert.InDelta(t, 0, status.Position.Z, 1e-9)
}

func TestManagerCommands(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())

	require.NoError(t, gm.Buy("melon"))
	assert.ErrorIs(t, gm.Buy("dragon_egg"), ErrUnknownItem)
	assert.ErrorIs(t, gm.Buy("elemental_blade"), ErrPrerequisite)

	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, 17, status.Tokens)
	for _, it := range gm.ShopItems() {
		if it.ID == "melon" {
			assert.Equal(t, 19, it.Stock)
		}
	}

	gm.player.TakeDamage(2)
	require.NoError(t, gm.UseConsumable(0))
	assert.ErrorIs(t, gm.UseConsumable(0), ErrEmptySlot)
	status, err = gm.Status()
	require.NoError(t, err)
	assert.Equal(t, types.MaxHealth-1, status.Health)

	assert.ErrorIs(t, gm.SelectWeapon(2), ErrEmptySlot)
	assert.ErrorIs(t, gm.SelectWeapon(-1), ErrInvalidSlot)
	assert.NoError(t, gm.SelectWeapon(0))
}

func TestManagerNearby(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())

	near := gm.Nearby(150)
	require.NotEmpty(t, near)
	last := 0.0
	for _, obj := range near {
		assert.NotEqual(t, types.KindTerrain, obj.Kind)
		assert.NotEqual(t, types.KindStreet, obj.Kind)
		d := obj.Position.DistXZ(types.Vec3{})
		assert.LessOrEqual(t, d, 150.0)
		assert.GreaterOrEqual(t, d, last)
		last = d
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	withFileStore(t, gm)
	defeatTemple(t, gm, types.ElementFire)
	gm.Tick(0.01)
	gm.player.State.Tokens = 321
	gm.player.State.Position = types.Vec3{X: 10, Y: 2, Z: -20}

	summary, err := gm.SaveGame(types.SaveManual)
	require.NoError(t, err)
	assert.Contains(t, summary.Slot, "manual-")
	assert.Equal(t, types.SaveManual, summary.Kind)

	gm.player.State.Tokens = 0
	loaded, err := gm.LoadGame(summary.Slot)
	require.NoError(t, err)
	assert.True(t, loaded)

	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, 321, status.Tokens)
	assert.Equal(t, 10.0, status.Position.X)
	assert.Equal(t, -20.0, status.Position.Z)
	assert.True(t, status.Progress.CollectedElements[types.ElementFire])
	assert.Equal(t, 25.0, status.Progress.GameProgress)
	assert.Equal(t, types.TempleRewardsGranted, gm.templeByElement[types.ElementFire].State())
	assert.Equal(t, types.TempleLocked, gm.templeByElement[types.ElementWater].State())

	saves, err := gm.ListSaves()
	require.NoError(t, err)
	assert.Len(t, saves, 1)
}

func TestManagerManualSavesInSameSecondAreKept(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	withFileStore(t, gm)
	clock := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	gm.SetClock(func() time.Time { return clock })

	gm.player.State.Tokens = 111
	first, err := gm.SaveGame(types.SaveManual)
	require.NoError(t, err)

	clock = clock.Add(500 * time.Millisecond)
	gm.player.State.Tokens = 222
	second, err := gm.SaveGame(types.SaveManual)
	require.NoError(t, err)
	assert.NotEqual(t, first.Slot, second.Slot)

	saves, err := gm.ListSaves()
	require.NoError(t, err)
	assert.Len(t, saves, 2)

	loaded, err := gm.LoadGame(first.Slot)
	require.NoError(t, err)
	require.True(t, loaded)
	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, 111, status.Tokens)
}

func TestManagerLoadIgnoresInflatedTempleCount(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	dir := withFileStore(t, gm)

	data := []byte(`{
		"version": "1.0",
		"timestamp": "2024-06-03T18:30:00Z",
		"player": {"position": [0, 0, 0], "health": 8, "stamina": 100, "tokens": 5},
		"progress": {"collected_elements": {}, "completed_temples": 4, "game_progress": 100},
		"world_seed": 42
	}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quick.json"), data, 0644))

	loaded, err := gm.LoadGame("quick")
	require.NoError(t, err)
	require.True(t, loaded)

	status, err := gm.Status()
	require.NoError(t, err)
	assert.Zero(t, status.Progress.CompletedTemples)
	assert.Zero(t, status.Progress.GameProgress)
	assert.False(t, status.FinalBossOpen)
	assert.Equal(t, types.TempleLocked, gm.templeByElement[types.ElementFire].State())
}

func TestManagerLoadFallsBackToFreshGame(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	dir := withFileStore(t, gm)

	gm.player.State.Tokens = 999
	loaded, err := gm.LoadGame("auto")
	require.NoError(t, err)
	assert.False(t, loaded)
	status, err := gm.Status()
	require.NoError(t, err)
	assert.Equal(t, 20, status.Tokens, "missing save starts a fresh session")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "quick.json"), []byte(`{"version": "1.0"}`), 0644))
	gm.player.State.Tokens = 999
	loaded, err = gm.LoadGame("quick")
	require.NoError(t, err)
	assert.False(t, loaded)
	status, err = gm.Status()
	require.NoError(t, err)
	assert.Equal(t, 20, status.Tokens, "invalid save starts a fresh session")

	_, err = gm.LoadGame("../etc")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestManagerLoadRestoresWorldSeed(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())
	withFileStore(t, gm)

	_, err := gm.SaveGame(types.SaveQuick)
	require.NoError(t, err)
	require.NoError(t, gm.Regenerate(9))
	require.Equal(t, int64(9), gm.WorldSeed())

	loaded, err := gm.LoadGame("quick")
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, int64(42), gm.WorldSeed())
}

func TestManagerWithoutStore(t *testing.T) {
	gm := newStartedManager(t, config.DefaultConfig())

	_, err := gm.SaveGame(types.SaveManual)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = gm.LoadGame("auto")
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = gm.ListSaves()
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestManagerAutosave(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.AutosaveInterval = 1
	gm := newStartedManager(t, cfg)
	withFileStore(t, gm)

	for i := 0; i < 3; i++ {
		gm.Tick(0.25)
	}
	saves, err := gm.ListSaves()
	require.NoError(t, err)
	assert.Empty(t, saves)

	gm.Tick(0.25)
	saves, err = gm.ListSaves()
	require.NoError(t, err)
	require.Len(t, saves, 1)
	assert.Equal(t, "auto", saves[0].Slot)
	assert.Equal(t, types.SaveAuto, saves[0].Kind)
}

func TestManagerRestocksShop(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Shop.RestockInterval = 60
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	gm := NewGameManager(cfg)
	gm.SetClock(func() time.Time { return now })
	require.NoError(t, gm.Start(42))
	require.NoError(t, gm.Buy("health_potion"))

	stock := func() int {
		for _, it := range gm.ShopItems() {
			if it.ID == "health_potion" {
				return it.Stock
			}
		}
		return -1
	}
	require.Equal(t, 4, stock())

	now = now.Add(time.Minute)
	gm.Tick(0.01)
	assert.Equal(t, 5, stock())
}

func TestManagerCatalogFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Shop.CatalogPath = writeFile(t, "catalog.json", `[{"id": "pie", "name": "Melon Pie", "price": 1, "stock": 3, "consumable": "melon"}]`)

	gm := newStartedManager(t, cfg)
	items := gm.ShopItems()
	require.Len(t, items, 1)
	assert.Equal(t, "pie", items[0].ID)

	cfg.Shop.CatalogPath = filepath.Join(t.TempDir(), "missing.json")
	gm = newStartedManager(t, cfg)
	assert.Len(t, gm.ShopItems(), len(config.DefaultShopItems()))
}

func TestManagerRecordsTempleMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	gm := NewGameManager(config.DefaultConfig())
	gm.SetMetrics(m)
	require.NoError(t, gm.Start(42))
	defeatTemple(t, gm, types.ElementWind)
	gm.Tick(0.01)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var transitions int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "elemelon.temple.transitions" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				transitions += dp.Value
			}
		}
	}
	assert.Equal(t, int64(5), transitions, "locked through rewards granted")
}
