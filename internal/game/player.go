package game

import (
	"errors"
	"math"

	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/types"
	"github.com/user/elemelon/internal/world"
)

var (
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrInventoryFull      = errors.New("inventory full")
	ErrInvalidSlot        = errors.New("invalid slot")
	ErrEmptySlot          = errors.New("slot is empty")
)

const (
	staminaDrain     = 25.0 // per second while running
	staminaRegen     = 15.0 // per second otherwise
	jumpImpulse      = 8.0
	gravity          = 20.0
	mouseSensitivity = 0.002
	maxStack         = 10
)

// unarmed is used when the active weapon slot is empty
var unarmed = types.Weapon{ID: "fists", Name: "Fists", Damage: 0.5, Range: 2, Cooldown: 0.4}

// starterWeapon fills the first weapon slot of a new player
func starterWeapon() *types.Weapon {
	return &types.Weapon{ID: "wooden_stick", Name: "Wooden Stick", Damage: 1, Range: 2.5, Cooldown: 0.4}
}

// Player drives a PlayerState from normalized input
type Player struct {
	State *types.PlayerState

	cfg            config.PlayerConfig
	weaponCooldown float64
}

// NewPlayer creates a player standing on the terrain at spawn
func NewPlayer(cfg config.PlayerConfig, spawn types.Vec3) *Player {
	state := &types.PlayerState{
		Position: types.Vec3{X: spawn.X, Y: world.Height(spawn.X, spawn.Z), Z: spawn.Z},
		Health:   clampInt(cfg.StartingHealth, 0, types.MaxHealth),
		Stamina:  types.MaxStamina,
		Tokens:   max(cfg.StartingTokens, 0),
		Grounded: true,
	}
	state.Weapons[0] = starterWeapon()
	return &Player{State: state, cfg: cfg}
}

// IsDead reports whether the player has no health left
func (p *Player) IsDead() bool {
	return p.State.Health <= 0
}

// Move advances the player by dt seconds of input. Horizontal movement is
// resolved against the static objects near the player; the player is then
// grounded on the terrain height field.
func (p *Player) Move(in types.InputState, dt float64, grid *world.Grid) {
	if p.IsDead() || dt <= 0 {
		return
	}
	s := p.State

	s.Yaw -= in.Mouse.DX * mouseSensitivity

	var fwd, side float64
	if in.Intent.Forward {
		fwd++
	}
	if in.Intent.Backward {
		fwd--
	}
	if in.Intent.Right {
		side++
	}
	if in.Intent.Left {
		side--
	}

	sin, cos := math.Sincos(s.Yaw)
	dir := types.Vec3{
		X: sin*fwd + cos*side,
		Z: cos*fwd - sin*side,
	}
	moving := fwd != 0 || side != 0
	if moving {
		l := math.Hypot(dir.X, dir.Z)
		dir = dir.Scale(1 / l)
	}

	speed := p.cfg.WalkSpeed
	if moving && in.Intent.Running && s.Stamina > 0 {
		speed = p.cfg.RunSpeed
		s.Stamina -= staminaDrain * dt
	} else {
		s.Stamina += staminaRegen * dt
	}
	s.Stamina = clampFloat(s.Stamina, 0, types.MaxStamina)

	if in.Intent.Jump && s.Grounded {
		s.Velocity.Y = jumpImpulse
		s.Grounded = false
	}
	if !s.Grounded {
		s.Velocity.Y -= gravity * dt
	}

	desired := dir.Scale(speed * dt)
	desired.Y = s.Velocity.Y * dt

	var candidates []*types.WorldObject
	if grid != nil {
		candidates = grid.QueryNear(s.Position)
	}
	allowed := world.Resolve(s.Position, desired, types.Bounds{Radius: p.cfg.Radius}, candidates)
	s.Position = s.Position.Add(allowed)
	s.Velocity.X = allowed.X / dt
	s.Velocity.Z = allowed.Z / dt

	ground := world.Height(s.Position.X, s.Position.Z)
	if s.Grounded || s.Position.Y <= ground {
		s.Position.Y = ground
		s.Velocity.Y = 0
		s.Grounded = true
	}
}

// Tick advances timers that do not depend on input
func (p *Player) Tick(dt float64) {
	if p.weaponCooldown > 0 {
		p.weaponCooldown = math.Max(0, p.weaponCooldown-dt)
	}
}

// TakeDamage removes health, never below zero, and returns what remains
func (p *Player) TakeDamage(amount int) int {
	if amount > 0 {
		p.State.Health = clampInt(p.State.Health-amount, 0, types.MaxHealth)
	}
	return p.State.Health
}

// Heal restores health up to the maximum
func (p *Player) Heal(amount int) {
	if amount > 0 && !p.IsDead() {
		p.State.Health = clampInt(p.State.Health+amount, 0, types.MaxHealth)
	}
}

// AddTokens credits tokens
func (p *Player) AddTokens(amount int) {
	if amount > 0 {
		p.State.Tokens += amount
	}
}

// SpendTokens debits tokens; the balance never goes negative
func (p *Player) SpendTokens(amount int) error {
	if amount < 0 || p.State.Tokens < amount {
		return ErrInsufficientTokens
	}
	p.State.Tokens -= amount
	return nil
}

// consumableRoom returns how many items of type t fit in the slots
func (p *Player) consumableRoom(t types.ConsumableType) int {
	room := 0
	for _, stack := range p.State.Consumables {
		switch {
		case stack == nil:
			room += maxStack
		case stack.Type == t:
			room += maxStack - stack.Count
		}
	}
	return room
}

// AddConsumable stores count items of type t, topping up existing stacks
// before opening new slots. Nothing is stored if not everything fits.
func (p *Player) AddConsumable(t types.ConsumableType, count int) error {
	if count <= 0 {
		return nil
	}
	if p.consumableRoom(t) < count {
		return ErrInventoryFull
	}
	slots := &p.State.Consumables
	for _, stack := range slots {
		if count == 0 {
			return nil
		}
		if stack != nil && stack.Type == t && stack.Count < maxStack {
			n := min(maxStack-stack.Count, count)
			stack.Count += n
			count -= n
		}
	}
	for i := range slots {
		if count == 0 {
			return nil
		}
		if slots[i] == nil {
			n := min(maxStack, count)
			slots[i] = &types.ConsumableStack{Type: t, Count: n}
			count -= n
		}
	}
	return nil
}

// UseConsumable applies one item from the given slot
func (p *Player) UseConsumable(slot int) error {
	if slot < 0 || slot >= types.ConsumableSlots {
		return ErrInvalidSlot
	}
	stack := p.State.Consumables[slot]
	if stack == nil || stack.Count <= 0 {
		return ErrEmptySlot
	}

	switch stack.Type {
	case types.ConsumableHealthPotion:
		p.Heal(4)
	case types.ConsumableStaminaPotion:
		p.State.Stamina = types.MaxStamina
	case types.ConsumableMelon:
		p.Heal(1)
	}

	stack.Count--
	if stack.Count == 0 {
		p.State.Consumables[slot] = nil
	}
	return nil
}

// EquipWeapon puts w into the first empty weapon slot
func (p *Player) EquipWeapon(w *types.Weapon) error {
	if w == nil {
		return nil
	}
	for i, slot := range p.State.Weapons {
		if slot == nil {
			cp := *w
			p.State.Weapons[i] = &cp
			return nil
		}
	}
	return ErrInventoryFull
}

// hasWeaponRoom reports whether EquipWeapon would succeed
func (p *Player) hasWeaponRoom() bool {
	for _, slot := range p.State.Weapons {
		if slot == nil {
			return true
		}
	}
	return false
}

// SelectWeapon makes the weapon in slot index active
func (p *Player) SelectWeapon(index int) error {
	if index < 0 || index >= types.WeaponSlots {
		return ErrInvalidSlot
	}
	if p.State.Weapons[index] == nil {
		return ErrEmptySlot
	}
	p.State.ActiveWeapon = index
	return nil
}

// ActiveWeapon returns the selected weapon, or bare fists
func (p *Player) ActiveWeapon() types.Weapon {
	idx := p.State.ActiveWeapon
	if idx >= 0 && idx < types.WeaponSlots && p.State.Weapons[idx] != nil {
		return *p.State.Weapons[idx]
	}
	return unarmed
}

// Strike returns the active weapon if it is off cooldown and starts the
// cooldown. ok is false while the weapon is still recovering.
func (p *Player) Strike() (weapon types.Weapon, ok bool) {
	if p.IsDead() || p.weaponCooldown > 0 {
		return types.Weapon{}, false
	}
	weapon = p.ActiveWeapon()
	p.weaponCooldown = weapon.Cooldown
	return weapon, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
