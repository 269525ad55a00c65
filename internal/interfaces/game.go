package interfaces

import "github.com/user/elemelon/internal/types"

// SceneSink receives the objects the rendering collaborator should show
type SceneSink interface {
	AddObject(obj *types.WorldObject)
	RemoveObject(id string)
}

// SaveStore persists save records by slot. Load returns the raw payload so
// the caller can validate it before accepting it.
type SaveStore interface {
	Save(slot string, record *types.SaveRecord) error
	Load(slot string) ([]byte, error)
	List() ([]types.SaveSummary, error)
	Close() error
}

// Combatant is the common contract of bosses and enemies
type Combatant interface {
	TakeDamage(amount float64)
	// Update advances the combatant by dt seconds and returns the damage it
	// dealt to the player this tick.
	Update(dt float64, player *types.PlayerState) int
	IsDefeated() bool
}

// GameManager defines the session operations exposed to the UI and input
// collaborators
type GameManager interface {
	IsReady() bool
	Status() (*types.PlayerStatus, error)
	Temples() []types.TempleStatus
	Objects(kind types.ObjectKind) []types.WorldObject
	Nearby(radius float64) []types.WorldObject
	ShopItems() []types.ShopItem
	WorldSeed() int64

	SetInput(input types.InputState)
	Buy(itemID string) error
	SolvePuzzle(element types.Element, puzzleID string) error
	// AttackBoss strikes the boss of a temple element, or "final"
	AttackBoss(target string) error
	UseConsumable(slot int) error
	SelectWeapon(index int) error

	SaveGame(kind types.SaveKind) (*types.SaveSummary, error)
	LoadGame(slot string) (bool, error)
	ListSaves() ([]types.SaveSummary, error)
	Regenerate(seed int64) error
}
