package game

import (
	"errors"
	"fmt"

	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/types"
)

var (
	ErrUnknownPuzzle = errors.New("unknown puzzle")
	ErrTempleLocked  = errors.New("temple puzzles are not active")
)

// TransitionFunc observes a temple state change
type TransitionFunc func(t *Temple, from, to types.TempleState)

// Temple runs the progression of one elemental temple. States only move
// forward; every operation is a no-op when called in the wrong state.
type Temple struct {
	Object *types.WorldObject

	cfg     config.TempleConfig
	state   types.TempleState
	puzzles []types.Puzzle
	boss    *Boss
	history []types.TempleState

	onTransition TransitionFunc
	onCutscene   func(t *Temple)
}

// NewTemple wraps a generated temple object in a locked state machine
func NewTemple(obj *types.WorldObject, cfg config.TempleConfig) *Temple {
	if cfg.PuzzleCount < 1 {
		cfg.PuzzleCount = 1
	}
	return &Temple{
		Object:  obj,
		cfg:     cfg,
		state:   types.TempleLocked,
		history: []types.TempleState{types.TempleLocked},
	}
}

// OnTransition registers a listener for state changes
func (t *Temple) OnTransition(fn TransitionFunc) {
	t.onTransition = fn
}

// OnCutscene registers a listener fired when the temple is entered
func (t *Temple) OnCutscene(fn func(t *Temple)) {
	t.onCutscene = fn
}

func (t *Temple) Element() types.Element {
	return t.Object.Element
}

func (t *Temple) State() types.TempleState {
	return t.state
}

// Boss returns the temple boss, nil until the puzzles are solved
func (t *Temple) Boss() *Boss {
	return t.boss
}

// Completed reports whether the temple granted its rewards
func (t *Temple) Completed() bool {
	return t.state == types.TempleRewardsGranted
}

// History returns every state the temple has been in, in order
func (t *Temple) History() []types.TempleState {
	out := make([]types.TempleState, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Temple) transition(to types.TempleState) {
	if to <= t.state {
		return
	}
	from := t.state
	t.state = to
	t.history = append(t.history, to)
	if t.onTransition != nil {
		t.onTransition(t, from, to)
	}
}

// Enter unlocks the puzzles. It returns false if the temple was already entered.
func (t *Temple) Enter() bool {
	if t.state != types.TempleLocked {
		return false
	}
	t.puzzles = make([]types.Puzzle, t.cfg.PuzzleCount)
	for i := range t.puzzles {
		t.puzzles[i] = types.Puzzle{
			ID:         fmt.Sprintf("%s-puzzle-%d", t.Element(), i+1),
			Difficulty: i + 1,
		}
	}
	t.transition(types.TemplePuzzlesActive)
	if t.onCutscene != nil {
		t.onCutscene(t)
	}
	return true
}

// SolvePuzzle marks a puzzle solved. Solving the last puzzle spawns the boss.
func (t *Temple) SolvePuzzle(id string) error {
	if t.state == types.TempleLocked {
		return ErrTempleLocked
	}
	idx := -1
	for i := range t.puzzles {
		if t.puzzles[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPuzzle, id)
	}
	if t.puzzles[idx].Solved {
		return nil
	}
	t.puzzles[idx].Solved = true

	for _, p := range t.puzzles {
		if !p.Solved {
			return nil
		}
	}
	t.transition(types.TemplePuzzlesSolved)
	t.boss = NewBoss(BossKindFor(t.Element()), t.Object.Position)
	t.transition(types.TempleBossActive)
	return nil
}

// PuzzlesSolved returns the number of solved puzzles
func (t *Temple) PuzzlesSolved() int {
	n := 0
	for _, p := range t.puzzles {
		if p.Solved {
			n++
		}
	}
	return n
}

// DamageBoss applies damage to an active boss. It returns false when no
// boss fight is in progress.
func (t *Temple) DamageBoss(amount float64) bool {
	if t.state != types.TempleBossActive {
		return false
	}
	t.boss.TakeDamage(amount)
	t.checkDefeat()
	return true
}

// Update advances the boss fight and returns the damage dealt to the player
func (t *Temple) Update(dt float64, player *types.PlayerState) int {
	if t.state != types.TempleBossActive {
		return 0
	}
	dmg := t.boss.Update(dt, player)
	t.checkDefeat()
	return dmg
}

func (t *Temple) checkDefeat() {
	if t.state == types.TempleBossActive && t.boss.IsDefeated() {
		t.transition(types.TempleBossDefeated)
	}
}

// GrantRewards hands out the element, the token reward and the progress
// increment exactly once. It returns false if nothing was granted.
func (t *Temple) GrantRewards(progress *types.Progress, player *types.PlayerState) bool {
	if t.state != types.TempleBossDefeated || progress == nil {
		return false
	}
	if progress.CollectedElements == nil {
		progress.CollectedElements = make(map[types.Element]bool)
	}
	progress.CollectedElements[t.Element()] = true
	progress.CompletedTemples = min(progress.CompletedTemples+1, types.TempleCount)
	progress.Recompute()
	if player != nil && t.cfg.TokenReward > 0 {
		player.Tokens += t.cfg.TokenReward
	}
	t.transition(types.TempleRewardsGranted)
	return true
}

// restoreCompleted marks a locked temple as completed when a save is loaded.
func (t *Temple) restoreCompleted() {
	if t.state != types.TempleLocked {
		return
	}
	t.state = types.TempleRewardsGranted
	t.history = append(t.history, types.TempleRewardsGranted)
}

// Status returns the UI view of the temple
func (t *Temple) Status() types.TempleStatus {
	st := types.TempleStatus{
		Element:       t.Element(),
		State:         t.state.String(),
		Position:      t.Object.Position,
		PuzzlesSolved: t.PuzzlesSolved(),
		PuzzlesTotal:  t.cfg.PuzzleCount,
	}
	if len(t.puzzles) > 0 {
		st.Puzzles = append([]types.Puzzle(nil), t.puzzles...)
	}
	if t.boss != nil {
		st.BossHealth = t.boss.Health
		st.BossMaxHealth = t.boss.MaxHealth
	}
	return st
}

// AllTemplesComplete reports whether every element temple granted its rewards
func AllTemplesComplete(temples []*Temple) bool {
	done := make(map[types.Element]bool)
	for _, t := range temples {
		if t != nil && t.Completed() {
			done[t.Element()] = true
		}
	}
	for _, e := range types.AllElements {
		if !done[e] {
			return false
		}
	}
	return true
}
