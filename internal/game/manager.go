package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/observe"
	"github.com/user/elemelon/internal/types"
	"github.com/user/elemelon/internal/world"
	"go.uber.org/zap"
)

var (
	ErrNotReady       = errors.New("game session not started")
	ErrUnknownTemple  = errors.New("unknown temple")
	ErrBossNotActive  = errors.New("no active boss")
	ErrOutOfRange     = errors.New("target out of range")
	ErrWeaponCooldown = errors.New("weapon is recovering")
	ErrNoStore        = errors.New("no save store configured")
)

// FinalBossTarget names the final boss in AttackBoss
const FinalBossTarget = "final"

// maxTickDelta caps a single tick so a stalled loop does not tunnel the
// player through walls.
const maxTickDelta = 0.25

// GameManager handles the game session and its operations
type GameManager struct {
	config    config.Config
	Logger    *zap.Logger
	stateLock sync.RWMutex

	store   interfaces.SaveStore
	scene   interfaces.SceneSink
	metrics *observe.Metrics
	catalog []types.ShopItem
	now     func() time.Time

	world           *world.World
	player          *Player
	progress        *types.Progress
	temples         []*Temple
	templeByElement map[types.Element]*Temple
	npcs            []*NPC
	shop            *Shop
	dice            *DiceRoller
	finalBoss       *Boss
	victory         bool
	input           types.InputState
	sinceAutosave   float64
	ready           bool
}

// Ensure GameManager satisfies the interfaces.GameManager interface
var _ interfaces.GameManager = (*GameManager)(nil)

// NewGameManager creates a new game manager. Collaborators are wired with
// the Set methods before Start generates the world.
func NewGameManager(cfg config.Config) *GameManager {
	return &GameManager{
		config:  cfg,
		Logger:  zap.NewNop(), // Will be set by the server
		scene:   NopScene{},
		catalog: append([]types.ShopItem(nil), cfg.Shop.Items...),
		now:     time.Now,
	}
}

// SetLogger sets the logger
func (gm *GameManager) SetLogger(logger *zap.Logger) {
	gm.Logger = logger
}

// SetSaveStore sets the store used for saving and loading
func (gm *GameManager) SetSaveStore(store interfaces.SaveStore) {
	gm.store = store
}

// SetScene sets the scene collaborator
func (gm *GameManager) SetScene(scene interfaces.SceneSink) {
	if scene == nil {
		scene = NopScene{}
	}
	gm.scene = scene
}

// SetMetrics sets the metrics recorder
func (gm *GameManager) SetMetrics(m *observe.Metrics) {
	gm.metrics = m
}

// SetClock replaces the wall clock used for shop restocks and save stamps
func (gm *GameManager) SetClock(now func() time.Time) {
	gm.now = now
}

// Start generates the world from seed and begins a fresh session. A catalog
// file configured in shop.catalog_path replaces the built-in items.
func (gm *GameManager) Start(seed int64) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if path := gm.config.Shop.CatalogPath; path != "" {
		items, err := NewDataLoader().LoadShopCatalog(path)
		if err != nil {
			gm.Logger.Warn("Falling back to built-in shop catalog",
				zap.String("path", path),
				zap.Error(err))
		} else {
			gm.catalog = items
			gm.Logger.Info("Loaded shop catalog", zap.Int("count", len(items)))
		}
	}

	if err := gm.generateLocked(seed); err != nil {
		return err
	}
	gm.resetSessionLocked()
	gm.ready = true
	return nil
}

// IsReady reports whether Start completed
func (gm *GameManager) IsReady() bool {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()
	return gm.ready
}

func (gm *GameManager) generateLocked(seed int64) error {
	gen := world.NewGenerator(gm.config.World,
		world.WithLogger(gm.Logger),
		world.WithMetrics(gm.metrics))
	w, err := gen.Generate(seed)
	if err != nil {
		return fmt.Errorf("failed to generate world: %w", err)
	}

	if gm.world != nil {
		for _, obj := range gm.world.Objects {
			gm.scene.RemoveObject(obj.ID)
		}
	}
	gm.world = w
	for _, obj := range w.Objects {
		gm.scene.AddObject(obj)
	}
	return nil
}

// resetSessionLocked builds a new player, temples and shop on the current world
func (gm *GameManager) resetSessionLocked() {
	alive := 0
	for _, t := range gm.temples {
		if t.State() == types.TempleBossActive {
			gm.scene.RemoveObject(t.Boss().Object().ID)
			alive++
		}
	}
	if gm.finalBoss != nil && !gm.finalBoss.IsDefeated() {
		gm.scene.RemoveObject(gm.finalBoss.Object().ID)
		alive++
	}
	gm.metrics.BossesCleared(context.Background(), alive)

	w := gm.world
	gm.player = NewPlayer(gm.config.Player, w.Spawn)
	gm.progress = types.NewProgress()
	gm.dice = NewDiceRoller(w.Seed)
	gm.finalBoss = nil
	gm.victory = false
	gm.input = types.InputState{}
	gm.sinceAutosave = 0

	gm.temples = make([]*Temple, 0, types.TempleCount)
	gm.templeByElement = make(map[types.Element]*Temple, types.TempleCount)
	for _, obj := range w.Temples() {
		if _, dup := gm.templeByElement[obj.Element]; dup || !obj.Element.IsValid() {
			continue
		}
		t := NewTemple(obj, gm.config.Temple)
		t.OnTransition(gm.onTempleTransition)
		t.OnCutscene(func(t *Temple) {
			gm.Logger.Info("Temple entered", zap.String("element", string(t.Element())))
		})
		gm.temples = append(gm.temples, t)
		gm.templeByElement[obj.Element] = t
	}

	gm.npcs = nil
	for _, obj := range w.ByKind(types.KindNPC) {
		gm.npcs = append(gm.npcs, NewNPC(obj))
	}

	interval := time.Duration(gm.config.Shop.RestockInterval) * time.Second
	gm.shop = NewShop(gm.catalog, interval, gm.now())
	gm.shop.SetLogger(gm.Logger)
	gm.shop.SetMetrics(gm.metrics)

	gm.Logger.Info("Session started",
		zap.Int64("seed", w.Seed),
		zap.Int("temples", len(gm.temples)),
		zap.Int("npcs", len(gm.npcs)))
}

func (gm *GameManager) onTempleTransition(t *Temple, from, to types.TempleState) {
	ctx := context.Background()
	gm.Logger.Info("Temple state changed",
		zap.String("element", string(t.Element())),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	gm.metrics.RecordTempleTransition(ctx, string(t.Element()), to.String())
	switch to {
	case types.TempleBossActive:
		gm.metrics.BossSpawned(ctx)
		gm.scene.AddObject(t.Boss().Object())
	case types.TempleBossDefeated:
		gm.metrics.BossDefeated(ctx)
		gm.scene.RemoveObject(t.Boss().Object().ID)
	}
}

// Tick advances the session by dt seconds. It does nothing before Start.
func (gm *GameManager) Tick(dt float64) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready || dt <= 0 {
		return
	}
	start := time.Now()
	dt = min(dt, maxTickDelta)
	p := gm.player

	p.Tick(dt)
	p.Move(gm.input, dt, gm.world.Grid)
	gm.input.Mouse = types.MouseDelta{}

	gm.pickupCollectibles()
	gm.checkTempleTriggers()

	for _, t := range gm.temples {
		p.TakeDamage(t.Update(dt, p.State))
	}
	if gm.finalBoss != nil {
		p.TakeDamage(gm.finalBoss.Update(dt, p.State))
	}

	for _, t := range gm.temples {
		if t.GrantRewards(gm.progress, p.State) {
			gm.Logger.Info("Temple rewards granted",
				zap.String("element", string(t.Element())),
				zap.Int("completed", gm.progress.CompletedTemples),
				zap.Float64("progress", gm.progress.GameProgress))
		}
	}
	gm.checkFinalBoss()

	for _, npc := range gm.npcs {
		npc.Update(dt, gm.dice, gm.world.Grid)
	}

	if p.IsDead() {
		gm.respawnLocked()
	}

	gm.shop.Restock(gm.now())
	gm.autosaveLocked(dt)

	gm.metrics.RecordTick(context.Background(), time.Since(start).Seconds())
}

func (gm *GameManager) pickupCollectibles() {
	p := gm.player
	for _, obj := range gm.world.ByKind(types.KindCollectible) {
		if p.State.Position.DistXZ(obj.Position) > gm.config.Player.PickupRadius+obj.Bounds.Radius {
			continue
		}
		if !gm.world.RemoveObject(obj.ID) {
			continue
		}
		p.AddTokens(obj.Value)
		gm.scene.RemoveObject(obj.ID)
		gm.Logger.Debug("Collectible picked up",
			zap.String("id", obj.ID),
			zap.Int("value", obj.Value),
			zap.Int("tokens", p.State.Tokens))
	}
}

func (gm *GameManager) checkTempleTriggers() {
	pos := gm.player.State.Position
	for _, t := range gm.temples {
		if t.State() == types.TempleLocked && pos.DistXZ(t.Object.Position) <= gm.config.Temple.TriggerRadius {
			t.Enter()
		}
	}
}

func (gm *GameManager) checkFinalBoss() {
	if gm.finalBoss == nil {
		boss, err := NewFinalBoss(gm.temples, gm.world.Spawn)
		if err != nil {
			return
		}
		gm.finalBoss = boss
		gm.metrics.BossSpawned(context.Background())
		gm.scene.AddObject(boss.Object())
		gm.Logger.Info("Final boss awakened", zap.String("name", boss.Name))
		return
	}
	if !gm.victory && gm.finalBoss.IsDefeated() {
		gm.victory = true
		gm.metrics.BossDefeated(context.Background())
		gm.scene.RemoveObject(gm.finalBoss.Object().ID)
		gm.Logger.Info("Final boss defeated")
	}
}

func (gm *GameManager) respawnLocked() {
	s := gm.player.State
	gm.Logger.Warn("Player died, respawning",
		zap.Float64("x", s.Position.X),
		zap.Float64("z", s.Position.Z))
	spawn := gm.world.Spawn
	s.Position = types.Vec3{X: spawn.X, Y: world.Height(spawn.X, spawn.Z), Z: spawn.Z}
	s.Velocity = types.Vec3{}
	s.Grounded = true
	s.Health = max(gm.config.Player.StartingHealth, 1)
	s.Stamina = types.MaxStamina
}

func (gm *GameManager) autosaveLocked(dt float64) {
	interval := float64(gm.config.Database.AutosaveInterval)
	if interval <= 0 || gm.store == nil {
		return
	}
	gm.sinceAutosave += dt
	if gm.sinceAutosave < interval {
		return
	}
	gm.sinceAutosave = 0
	if _, err := gm.saveLocked(types.SaveAuto); err != nil {
		gm.Logger.Error("Autosave failed", zap.Error(err))
	}
}

// Status returns the HUD view of the session
func (gm *GameManager) Status() (*types.PlayerStatus, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	if !gm.ready {
		return nil, ErrNotReady
	}
	s := gm.player.State
	weapon := gm.player.ActiveWeapon()
	status := &types.PlayerStatus{
		Health:         s.Health,
		MaxHealth:      types.MaxHealth,
		Tokens:         s.Tokens,
		StaminaPercent: s.Stamina / types.MaxStamina * 100,
		ActiveWeapon:   s.ActiveWeapon,
		WeaponName:     weapon.Name,
		Position:       s.Position,
		Progress:       copyProgress(gm.progress),
		FinalBossOpen:  AllTemplesComplete(gm.temples),
		Victory:        gm.victory,
		WorldSeed:      gm.world.Seed,
	}
	if gm.finalBoss != nil {
		status.FinalBossHP = gm.finalBoss.Health
	}
	return status, nil
}

func copyProgress(p *types.Progress) types.Progress {
	out := types.Progress{
		CollectedElements: make(map[types.Element]bool, len(p.CollectedElements)),
		CompletedTemples:  p.CompletedTemples,
		GameProgress:      p.GameProgress,
	}
	for e, ok := range p.CollectedElements {
		out.CollectedElements[e] = ok
	}
	return out
}

// Temples returns the status of every temple in element order
func (gm *GameManager) Temples() []types.TempleStatus {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	out := make([]types.TempleStatus, 0, len(gm.temples))
	for _, t := range gm.temples {
		out = append(out, t.Status())
	}
	return out
}

// Objects returns copies of the world objects of one kind, or all of them
// when kind is empty
func (gm *GameManager) Objects(kind types.ObjectKind) []types.WorldObject {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	out := make([]types.WorldObject, 0)
	if gm.world == nil {
		return out
	}
	for _, obj := range gm.world.Objects {
		if kind == "" || obj.Kind == kind {
			out = append(out, *obj)
		}
	}
	return out
}

// Nearby returns placed objects within radius of the player, nearest first.
// Terrain and streets are not included.
func (gm *GameManager) Nearby(radius float64) []types.WorldObject {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	out := make([]types.WorldObject, 0)
	if !gm.ready {
		return out
	}
	pos := gm.player.State.Position
	for _, obj := range gm.world.Objects {
		if obj.Kind == types.KindTerrain || obj.Kind == types.KindStreet {
			continue
		}
		if pos.DistXZ(obj.Position) <= radius {
			out = append(out, *obj)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return pos.DistXZ(out[i].Position) < pos.DistXZ(out[j].Position)
	})
	return out
}

// ShopItems returns the shop catalog with current stock
func (gm *GameManager) ShopItems() []types.ShopItem {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	if gm.shop == nil {
		return []types.ShopItem{}
	}
	return gm.shop.Items()
}

// WorldSeed returns the seed of the current world
func (gm *GameManager) WorldSeed() int64 {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	if gm.world == nil {
		return 0
	}
	return gm.world.Seed
}

// SetInput replaces the input consumed by the next tick
func (gm *GameManager) SetInput(input types.InputState) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()
	gm.input = input
}

// Buy purchases one unit of a shop item
func (gm *GameManager) Buy(itemID string) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready {
		return ErrNotReady
	}
	return gm.shop.Purchase(gm.player, gm.progress, itemID)
}

// SolvePuzzle solves a puzzle of the temple of element
func (gm *GameManager) SolvePuzzle(element types.Element, puzzleID string) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready {
		return ErrNotReady
	}
	t, ok := gm.templeByElement[element]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemple, element)
	}
	return t.SolvePuzzle(puzzleID)
}

// AttackBoss strikes the boss of a temple, or the final boss, with the
// active weapon
func (gm *GameManager) AttackBoss(target string) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready {
		return ErrNotReady
	}

	var (
		temple *Temple
		boss   *Boss
	)
	if target == FinalBossTarget {
		boss = gm.finalBoss
	} else {
		t, ok := gm.templeByElement[types.Element(target)]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTemple, target)
		}
		if t.State() == types.TempleBossActive {
			temple, boss = t, t.Boss()
		}
	}
	if boss == nil || boss.IsDefeated() {
		return ErrBossNotActive
	}

	p := gm.player
	if p.State.Position.DistXZ(boss.Position) > boss.Reach(p.ActiveWeapon().Range) {
		return ErrOutOfRange
	}
	weapon, ok := p.Strike()
	if !ok {
		return ErrWeaponCooldown
	}
	if temple != nil {
		temple.DamageBoss(weapon.Damage)
	} else {
		boss.TakeDamage(weapon.Damage)
	}

	gm.Logger.Debug("Boss hit",
		zap.String("target", target),
		zap.String("weapon", weapon.ID),
		zap.Float64("damage", weapon.Damage),
		zap.Float64("boss_health", boss.Health))
	return nil
}

// UseConsumable applies one item from a consumable slot
func (gm *GameManager) UseConsumable(slot int) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready {
		return ErrNotReady
	}
	return gm.player.UseConsumable(slot)
}

// SelectWeapon activates a weapon slot
func (gm *GameManager) SelectWeapon(index int) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready {
		return ErrNotReady
	}
	return gm.player.SelectWeapon(index)
}

// SaveGame stores a snapshot of the session
func (gm *GameManager) SaveGame(kind types.SaveKind) (*types.SaveSummary, error) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready {
		return nil, ErrNotReady
	}
	return gm.saveLocked(kind)
}

func (gm *GameManager) saveLocked(kind types.SaveKind) (*types.SaveSummary, error) {
	if gm.store == nil {
		return nil, ErrNoStore
	}
	now := gm.now()
	rec := NewSaveRecord(kind, gm.player.State, gm.progress, gm.world.Seed, now)
	slot := SlotFor(rec)

	if err := gm.store.Save(slot, rec); err != nil {
		gm.metrics.RecordSave(context.Background(), "save", string(kind), "error")
		return nil, fmt.Errorf("failed to save game: %w", err)
	}
	gm.metrics.RecordSave(context.Background(), "save", string(kind), "ok")
	gm.Logger.Info("Game saved",
		zap.String("slot", slot),
		zap.String("id", rec.ID),
		zap.String("kind", string(kind)))

	return &types.SaveSummary{Slot: slot, ID: rec.ID, Kind: kind, Timestamp: rec.Timestamp}, nil
}

// LoadGame restores the session from slot. A missing or invalid save starts
// a fresh session on the current world and returns false.
func (gm *GameManager) LoadGame(slot string) (bool, error) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if !gm.ready {
		return false, ErrNotReady
	}
	if gm.store == nil {
		return false, ErrNoStore
	}
	ctx := context.Background()

	data, err := gm.store.Load(slot)
	if err != nil {
		if errors.Is(err, ErrInvalidSlot) {
			return false, err
		}
		gm.metrics.RecordSave(ctx, "load", "", "missing")
		gm.Logger.Info("No save to load, starting fresh", zap.String("slot", slot), zap.Error(err))
		gm.resetSessionLocked()
		if errors.Is(err, ErrNoSave) {
			return false, nil
		}
		return false, err
	}

	rec, err := ParseSaveRecord(data)
	if err != nil {
		gm.metrics.RecordSave(ctx, "load", "", "invalid")
		gm.Logger.Warn("Discarding invalid save", zap.String("slot", slot), zap.Error(err))
		gm.resetSessionLocked()
		return false, nil
	}

	if rec.WorldSeed != 0 && rec.WorldSeed != gm.world.Seed {
		if err := gm.generateLocked(rec.WorldSeed); err != nil {
			gm.metrics.RecordSave(ctx, "load", string(rec.Kind), "error")
			gm.resetSessionLocked()
			return false, err
		}
	}
	gm.resetSessionLocked()
	ApplySave(rec, gm.player.State, gm.progress)
	gm.player.State.Grounded = false
	for _, t := range gm.temples {
		if gm.progress.CollectedElements[t.Element()] {
			t.restoreCompleted()
		}
	}

	gm.metrics.RecordSave(ctx, "load", string(rec.Kind), "ok")
	gm.Logger.Info("Game loaded",
		zap.String("slot", slot),
		zap.String("id", rec.ID),
		zap.Int("completed_temples", gm.progress.CompletedTemples))
	return true, nil
}

// ListSaves lists the stored saves
func (gm *GameManager) ListSaves() ([]types.SaveSummary, error) {
	if gm.store == nil {
		return nil, ErrNoStore
	}
	return gm.store.List()
}

// Regenerate replaces the world with one built from seed and starts a
// fresh session on it
func (gm *GameManager) Regenerate(seed int64) error {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	if err := gm.generateLocked(seed); err != nil {
		return err
	}
	gm.resetSessionLocked()
	gm.ready = true
	return nil
}
