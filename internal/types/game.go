package types

import (
	"math"
	"time"
)

// Vec3 is a position or direction in world space. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// DistXZ returns the horizontal distance between v and o, ignoring height.
func (v Vec3) DistXZ(o Vec3) float64 {
	dx := v.X - o.X
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// ObjectKind tags the variant of a WorldObject
type ObjectKind string

const (
	KindTerrain     ObjectKind = "terrain"
	KindStreet      ObjectKind = "street"
	KindBuilding    ObjectKind = "building"
	KindTemple      ObjectKind = "temple"
	KindShop        ObjectKind = "shop"
	KindNPC         ObjectKind = "npc"
	KindCollectible ObjectKind = "collectible"
	KindDecoration  ObjectKind = "decoration"
	KindBoss        ObjectKind = "boss"
)

// Element is the elemental affinity of a temple and its boss
type Element string

const (
	ElementWater     Element = "water"
	ElementFire      Element = "fire"
	ElementWind      Element = "wind"
	ElementLightning Element = "lightning"
)

// AllElements lists the four temple elements in generation order
var AllElements = []Element{ElementWater, ElementFire, ElementWind, ElementLightning}

// IsValid reports whether e is one of the four temple elements.
func (e Element) IsValid() bool {
	switch e {
	case ElementWater, ElementFire, ElementWind, ElementLightning:
		return true
	}
	return false
}

// Bounds is the horizontal footprint of an object. A box (HalfX, HalfZ)
// takes precedence over Radius when both are set.
type Bounds struct {
	Radius float64 `json:"radius,omitempty"`
	HalfX  float64 `json:"half_x,omitempty"`
	HalfZ  float64 `json:"half_z,omitempty"`
}

// IsBox reports whether b describes an axis-aligned box.
func (b Bounds) IsBox() bool {
	return b.HalfX > 0 && b.HalfZ > 0
}

// Extent returns the largest horizontal distance from the center covered by b.
func (b Bounds) Extent() float64 {
	if b.IsBox() {
		return math.Sqrt(b.HalfX*b.HalfX + b.HalfZ*b.HalfZ)
	}
	return b.Radius
}

// WorldObject is any object placed by world generation
type WorldObject struct {
	ID         string     `json:"id"`
	Kind       ObjectKind `json:"kind"`
	Position   Vec3       `json:"position"`
	Bounds     Bounds     `json:"bounds"`
	Collidable bool       `json:"collidable"`

	// Variant payloads
	Element Element `json:"element,omitempty"` // temple
	ShopID  string  `json:"shop_id,omitempty"` // shop
	Name    string  `json:"name,omitempty"`    // npc
	Role    string  `json:"role,omitempty"`    // npc
	Value   int     `json:"value,omitempty"`   // collectible tokens
}

// TempleState is a step in a temple's progression
type TempleState int

const (
	TempleLocked TempleState = iota
	TemplePuzzlesActive
	TemplePuzzlesSolved
	TempleBossActive
	TempleBossDefeated
	TempleRewardsGranted
)

func (s TempleState) String() string {
	switch s {
	case TempleLocked:
		return "locked"
	case TemplePuzzlesActive:
		return "puzzles_active"
	case TemplePuzzlesSolved:
		return "puzzles_solved"
	case TempleBossActive:
		return "boss_active"
	case TempleBossDefeated:
		return "boss_defeated"
	case TempleRewardsGranted:
		return "rewards_granted"
	default:
		return "unknown"
	}
}

// Puzzle is a single temple puzzle
type Puzzle struct {
	ID         string `json:"id"`
	Difficulty int    `json:"difficulty"`
	Solved     bool   `json:"solved"`
}

// Weapon occupies one of the player's weapon slots
type Weapon struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Damage   float64 `json:"damage"`
	Range    float64 `json:"range"`
	Cooldown float64 `json:"cooldown"` // seconds
}

// ConsumableType identifies a stackable consumable
type ConsumableType string

const (
	ConsumableHealthPotion  ConsumableType = "health_potion"
	ConsumableStaminaPotion ConsumableType = "stamina_potion"
	ConsumableMelon         ConsumableType = "melon"
)

// ConsumableStack is the content of one consumable slot
type ConsumableStack struct {
	Type  ConsumableType `json:"type"`
	Count int            `json:"count"`
}

const (
	MaxHealth       = 8
	MaxStamina      = 100
	WeaponSlots     = 3
	ConsumableSlots = 12
	TempleCount     = 4
)

// PlayerState is the mutable state of the local player
type PlayerState struct {
	Position     Vec3                              `json:"position"`
	Velocity     Vec3                              `json:"velocity"`
	Yaw          float64                           `json:"yaw"`
	Health       int                               `json:"health"`
	Stamina      float64                           `json:"stamina"`
	Tokens       int                               `json:"tokens"`
	Weapons      [WeaponSlots]*Weapon              `json:"weapons"`
	Consumables  [ConsumableSlots]*ConsumableStack `json:"consumables"`
	ActiveWeapon int                               `json:"active_weapon"`
	Grounded     bool                              `json:"grounded"`
}

// Progress tracks temple completion across the session
type Progress struct {
	CollectedElements map[Element]bool `json:"collected_elements"`
	CompletedTemples  int              `json:"completed_temples"`
	GameProgress      float64          `json:"game_progress"`
}

// NewProgress returns an empty progress record
func NewProgress() *Progress {
	return &Progress{CollectedElements: make(map[Element]bool)}
}

// Recompute derives GameProgress from CompletedTemples.
func (p *Progress) Recompute() {
	p.GameProgress = float64(p.CompletedTemples) * 100 / TempleCount
}

// ShopItem is an entry in a shop's inventory
type ShopItem struct {
	ID                  string         `json:"id" yaml:"id"`
	Name                string         `json:"name" yaml:"name"`
	Price               int            `json:"price" yaml:"price"`
	Stock               int            `json:"stock" yaml:"stock"`
	MaxStock            int            `json:"max_stock" yaml:"max_stock"`
	RestockAmount       int            `json:"restock_amount" yaml:"restock_amount"`
	MinTemplesCompleted int            `json:"min_temples_completed" yaml:"min_temples_completed"`
	Consumable          ConsumableType `json:"consumable,omitempty" yaml:"consumable,omitempty"`
	Weapon              *Weapon        `json:"weapon,omitempty" yaml:"weapon,omitempty"`
}

// SaveKind records how a save was triggered
type SaveKind string

const (
	SaveManual SaveKind = "manual"
	SaveAuto   SaveKind = "auto"
	SaveQuick  SaveKind = "quick"
)

// SavePlayer is the player section of a SaveRecord
type SavePlayer struct {
	Position     []float64                         `json:"position"`
	Health       int                               `json:"health"`
	Stamina      float64                           `json:"stamina"`
	Tokens       int                               `json:"tokens"`
	Weapons      [WeaponSlots]*Weapon              `json:"weapons"`
	Consumables  [ConsumableSlots]*ConsumableStack `json:"consumables"`
	ActiveWeapon int                               `json:"active_weapon"`
}

// SaveRecord is an immutable snapshot of a session
type SaveRecord struct {
	ID        string     `json:"id"`
	Version   string     `json:"version"`
	Kind      SaveKind   `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	Player    SavePlayer `json:"player"`
	Progress  Progress   `json:"progress"`
	WorldSeed int64      `json:"world_seed"`
}

// SaveSummary lists a stored save without its payload
type SaveSummary struct {
	Slot      string    `json:"slot"`
	ID        string    `json:"id"`
	Kind      SaveKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// MovementIntent is the normalized per-tick movement input
type MovementIntent struct {
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Jump     bool `json:"jump"`
	Running  bool `json:"running"`
}

// MouseDelta is the per-tick mouse movement
type MouseDelta struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// InputState bundles one tick of input
type InputState struct {
	Intent MovementIntent `json:"intent"`
	Mouse  MouseDelta     `json:"mouse"`
}

// TempleStatus is the UI view of a temple
type TempleStatus struct {
	Element       Element  `json:"element"`
	State         string   `json:"state"`
	Position      Vec3     `json:"position"`
	PuzzlesSolved int      `json:"puzzles_solved"`
	PuzzlesTotal  int      `json:"puzzles_total"`
	BossHealth    float64  `json:"boss_health,omitempty"`
	BossMaxHealth float64  `json:"boss_max_health,omitempty"`
	Puzzles       []Puzzle `json:"puzzles,omitempty"`
}

// PlayerStatus is the HUD view of the session
type PlayerStatus struct {
	Health         int      `json:"health"`
	MaxHealth      int      `json:"max_health"`
	Tokens         int      `json:"tokens"`
	StaminaPercent float64  `json:"stamina_percent"`
	ActiveWeapon   int      `json:"active_weapon"`
	WeaponName     string   `json:"weapon_name,omitempty"`
	Position       Vec3     `json:"position"`
	Progress       Progress `json:"progress"`
	FinalBossOpen  bool     `json:"final_boss_open"`
	FinalBossHP    float64  `json:"final_boss_hp,omitempty"`
	Victory        bool     `json:"victory"`
	WorldSeed      int64    `json:"world_seed"`
}
