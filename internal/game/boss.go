package game

import (
	"errors"

	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/types"
	"github.com/user/elemelon/internal/world"
)

// ErrFinalBossLocked is returned when the final boss is requested before
// every temple has granted its rewards.
var ErrFinalBossLocked = errors.New("final boss is locked")

// BossKind selects a boss variant
type BossKind string

const (
	BossWater     BossKind = "water"
	BossFire      BossKind = "fire"
	BossWind      BossKind = "wind"
	BossLightning BossKind = "lightning"
	BossFinal     BossKind = "final"
)

// bossStats is one row of the boss table
type bossStats struct {
	Name        string
	Health      float64
	Damage      int
	Speed       float64
	AttackRange float64
	Cooldown    float64
	Radius      float64
}

var bossTable = map[BossKind]bossStats{
	BossWater:     {Name: "Tide Warden", Health: 12, Damage: 1, Speed: 3.5, AttackRange: 4, Cooldown: 1.6, Radius: 2},
	BossFire:      {Name: "Ember Colossus", Health: 15, Damage: 2, Speed: 3, AttackRange: 3.5, Cooldown: 2, Radius: 2.5},
	BossWind:      {Name: "Gale Dancer", Health: 10, Damage: 1, Speed: 6, AttackRange: 3, Cooldown: 1.2, Radius: 1.5},
	BossLightning: {Name: "Storm Herald", Health: 12, Damage: 2, Speed: 4, AttackRange: 7, Cooldown: 2.4, Radius: 2},
	BossFinal:     {Name: "Melon King", Health: 40, Damage: 3, Speed: 4.5, AttackRange: 5, Cooldown: 1.8, Radius: 3},
}

// BossKindFor returns the boss that guards the temple of element e
func BossKindFor(e types.Element) BossKind {
	return BossKind(e)
}

// Boss is an elemental guardian chasing the player
type Boss struct {
	Kind      BossKind
	Name      string
	Position  types.Vec3
	Health    float64
	MaxHealth float64

	stats    bossStats
	cooldown float64
}

var _ interfaces.Combatant = (*Boss)(nil)

// NewBoss creates a boss of the given kind standing on the terrain at pos.
// Unknown kinds fall back to the water guardian.
func NewBoss(kind BossKind, pos types.Vec3) *Boss {
	stats, ok := bossTable[kind]
	if !ok {
		kind = BossWater
		stats = bossTable[BossWater]
	}
	return &Boss{
		Kind:      kind,
		Name:      stats.Name,
		Position:  types.Vec3{X: pos.X, Y: world.Height(pos.X, pos.Z), Z: pos.Z},
		Health:    stats.Health,
		MaxHealth: stats.Health,
		stats:     stats,
		cooldown:  stats.Cooldown,
	}
}

// Object returns the scene view of the boss at its current position
func (b *Boss) Object() *types.WorldObject {
	return &types.WorldObject{
		ID:       "boss-" + string(b.Kind),
		Kind:     types.KindBoss,
		Position: b.Position,
		Bounds:   types.Bounds{Radius: b.stats.Radius},
		Name:     b.Name,
	}
}

// NewFinalBoss spawns the final boss at pos once all temples are complete
func NewFinalBoss(temples []*Temple, pos types.Vec3) (*Boss, error) {
	if !AllTemplesComplete(temples) {
		return nil, ErrFinalBossLocked
	}
	return NewBoss(BossFinal, pos), nil
}

// TakeDamage reduces health, never below zero
func (b *Boss) TakeDamage(amount float64) {
	if amount <= 0 || b.IsDefeated() {
		return
	}
	b.Health -= amount
	if b.Health < 0 {
		b.Health = 0
	}
}

// IsDefeated reports whether the boss has no health left
func (b *Boss) IsDefeated() bool {
	return b.Health <= 0
}

// Reach returns the distance at which an attack of the given range hits the boss
func (b *Boss) Reach(weaponRange float64) float64 {
	return weaponRange + b.stats.Radius
}

// Update chases the player and returns the damage dealt this tick
func (b *Boss) Update(dt float64, player *types.PlayerState) int {
	if b.IsDefeated() || player == nil || dt <= 0 {
		return 0
	}
	if b.cooldown > 0 {
		b.cooldown -= dt
	}

	dist := b.Position.DistXZ(player.Position)
	if dist > b.stats.AttackRange {
		step := min(b.stats.Speed*dt, dist-b.stats.AttackRange)
		dir := player.Position.Sub(b.Position)
		b.Position.X += dir.X / dist * step
		b.Position.Z += dir.Z / dist * step
		b.Position.Y = world.Height(b.Position.X, b.Position.Z)
		dist -= step
	}

	if dist <= b.stats.AttackRange && b.cooldown <= 0 && player.Health > 0 {
		b.cooldown = b.stats.Cooldown
		return b.stats.Damage
	}
	return 0
}
