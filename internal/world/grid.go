package world

import (
	"math"

	"github.com/user/elemelon/internal/types"
)

// CellSize is the edge length of a spatial grid cell in world units.
const CellSize = 50

// cellKey addresses one grid cell
type cellKey struct {
	X, Z int
}

// Grid is a coarse bucket index from XZ position to static world objects.
// It holds non-owning references; the World owns the objects.
//
// The grid is filled once per generated world and not mutated afterwards,
// so concurrent QueryNear calls are safe once Insert calls have finished.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]*types.WorldObject
	count    int
}

// NewGrid creates an empty grid. A non-positive cellSize falls back to CellSize.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = CellSize
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]*types.WorldObject),
	}
}

func (g *Grid) cellOf(x, z float64) cellKey {
	return cellKey{
		X: int(math.Floor(x / g.cellSize)),
		Z: int(math.Floor(z / g.cellSize)),
	}
}

// Insert registers obj in every cell its horizontal bounds overlap.
func (g *Grid) Insert(obj *types.WorldObject) {
	if obj == nil {
		return
	}
	halfX, halfZ := obj.Bounds.Radius, obj.Bounds.Radius
	if obj.Bounds.IsBox() {
		halfX, halfZ = obj.Bounds.HalfX, obj.Bounds.HalfZ
	}
	lo := g.cellOf(obj.Position.X-halfX, obj.Position.Z-halfZ)
	hi := g.cellOf(obj.Position.X+halfX, obj.Position.Z+halfZ)
	for cx := lo.X; cx <= hi.X; cx++ {
		for cz := lo.Z; cz <= hi.Z; cz++ {
			k := cellKey{cx, cz}
			g.cells[k] = append(g.cells[k], obj)
		}
	}
	g.count++
}

// QueryNear returns every object registered in the 3x3 block of cells
// centered on the cell containing pos. The result is not radius-exact and
// holds each object once. An empty neighbourhood yields an empty slice.
func (g *Grid) QueryNear(pos types.Vec3) []*types.WorldObject {
	center := g.cellOf(pos.X, pos.Z)
	result := make([]*types.WorldObject, 0)
	var seen map[*types.WorldObject]struct{}
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for _, obj := range g.cells[cellKey{center.X + dx, center.Z + dz}] {
				// objects spanning several cells would otherwise repeat
				if seen == nil {
					seen = make(map[*types.WorldObject]struct{})
				}
				if _, dup := seen[obj]; dup {
					continue
				}
				seen[obj] = struct{}{}
				result = append(result, obj)
			}
		}
	}
	return result
}

// Len returns the number of inserted objects.
func (g *Grid) Len() int {
	return g.count
}
