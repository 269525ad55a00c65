package game

import (
	"github.com/user/elemelon/internal/types"
	"github.com/user/elemelon/internal/world"
)

const (
	npcSpeed        = 2.0
	npcWanderRadius = 15.0
	npcRadius       = 0.5
)

// NPC wanders around the point where it was generated
type NPC struct {
	Object *types.WorldObject

	home   types.Vec3
	target types.Vec3
	wait   float64
}

// NewNPC wraps a generated NPC object
func NewNPC(obj *types.WorldObject) *NPC {
	return &NPC{Object: obj, home: obj.Position, target: obj.Position}
}

// Update walks the NPC toward its current target, choosing a new one with
// dice once the target is reached and the idle time has passed.
func (n *NPC) Update(dt float64, dice *DiceRoller, grid *world.Grid) {
	if n.wait > 0 {
		n.wait -= dt
		return
	}

	pos := n.Object.Position
	dist := pos.DistXZ(n.target)
	if dist < 0.1 {
		n.target = n.home.Add(types.Vec3{
			X: (dice.Float64()*2 - 1) * npcWanderRadius,
			Z: (dice.Float64()*2 - 1) * npcWanderRadius,
		})
		n.wait = float64(dice.Roll(4))
		return
	}

	step := min(npcSpeed*dt, dist)
	dir := n.target.Sub(pos)
	desired := types.Vec3{X: dir.X / dist * step, Z: dir.Z / dist * step}

	var candidates []*types.WorldObject
	if grid != nil {
		candidates = grid.QueryNear(pos)
	}
	allowed := world.Resolve(pos, desired, types.Bounds{Radius: npcRadius}, candidates)
	if allowed.X == 0 && allowed.Z == 0 {
		// boxed in; give up on this target
		n.target = pos
		return
	}
	pos = pos.Add(allowed)
	pos.Y = world.Height(pos.X, pos.Z)
	n.Object.Position = pos
}
