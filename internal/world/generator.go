package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/user/elemelon/config"
	"github.com/user/elemelon/internal/observe"
	"github.com/user/elemelon/internal/types"
	"go.uber.org/zap"
)

// ErrTemplePlacement is returned when fewer than one temple per element fit.
var ErrTemplePlacement = errors.New("could not place a temple for every element")

// streetHalfWidth is half the width of a street band.
const streetHalfWidth = 3

var npcNames = []string{
	"Mira", "Tobin", "Sela", "Orrin", "Kael", "Wren", "Dax", "Luma",
	"Pell", "Juno", "Brisk", "Nessa", "Quill", "Rook", "Tam", "Vessa",
}

var npcRoles = []string{"villager", "merchant", "guard", "sage"}

// World is a generated world. It owns every WorldObject it lists.
type World struct {
	Seed    int64                `json:"seed"`
	Spawn   types.Vec3           `json:"spawn"`
	Objects []*types.WorldObject `json:"objects"`

	// Grid indexes the collidable static objects.
	Grid *Grid `json:"-"`
}

// ByKind returns every object of the given kind in placement order.
func (w *World) ByKind(kind types.ObjectKind) []*types.WorldObject {
	var out []*types.WorldObject
	for _, obj := range w.Objects {
		if obj.Kind == kind {
			out = append(out, obj)
		}
	}
	return out
}

// Temples returns the placed temple objects.
func (w *World) Temples() []*types.WorldObject {
	return w.ByKind(types.KindTemple)
}

// Find returns the object with the given id.
func (w *World) Find(id string) (*types.WorldObject, bool) {
	for _, obj := range w.Objects {
		if obj.ID == id {
			return obj, true
		}
	}
	return nil, false
}

// RemoveObject drops a non-grid object (a picked-up collectible) from the
// master list. Grid-indexed objects cannot be removed; the grid is only
// rebuilt wholesale.
func (w *World) RemoveObject(id string) bool {
	for i, obj := range w.Objects {
		if obj.ID != id {
			continue
		}
		if obj.Collidable {
			return false
		}
		w.Objects = append(w.Objects[:i], w.Objects[i+1:]...)
		return true
	}
	return false
}

// Option configures a Generator
type Option func(*Generator)

// WithLogger sets the logger used to report placement misses.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the metrics instruments placement work is recorded to.
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// Generator runs the world generation pipeline
type Generator struct {
	cfg     config.WorldConfig
	logger  *zap.Logger
	metrics *observe.Metrics
}

// NewGenerator creates a generator for the given configuration.
func NewGenerator(cfg config.WorldConfig, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// run holds the state shared by the stages of one Generate call.
type run struct {
	g       *Generator
	world   *World
	rng     *rand.Rand
	sampler *Sampler
	// placed lists the static objects later stages must keep clear of.
	placed []*types.WorldObject
}

// Generate builds a world from seed. A zero seed picks a time-derived seed,
// which is recorded in World.Seed so the world can be reproduced.
//
// Stages run in a fixed order and each consults everything placed before
// it: terrain, streets, buildings, temples, shops, NPCs, collectibles.
// Objects the sampler cannot fit are skipped and logged; only a shortfall
// of temples is an error.
func (g *Generator) Generate(seed int64) (*World, error) {
	start := time.Now()
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))
	r := &run{
		g:       g,
		world:   &World{Seed: seed, Grid: NewGrid(CellSize)},
		rng:     rng,
		sampler: NewSampler(rng),
	}
	r.world.Spawn = types.Vec3{Y: Height(0, 0)}

	r.terrain()
	r.streets()
	r.buildings()
	if err := r.temples(); err != nil {
		return nil, err
	}
	r.shops()
	r.npcs()
	r.collectibles()

	for _, obj := range r.world.Objects {
		if obj.Collidable {
			r.world.Grid.Insert(obj)
		}
	}

	g.metrics.RecordWorldGeneration(context.Background(), time.Since(start).Seconds())
	g.logger.Info("World generated",
		zap.Int64("seed", seed),
		zap.Int("objects", len(r.world.Objects)),
		zap.Int("indexed", r.world.Grid.Len()),
		zap.Duration("duration", time.Since(start)))

	return r.world, nil
}

func (r *run) add(obj *types.WorldObject, exclusion bool) {
	obj.Position.Y = Height(obj.Position.X, obj.Position.Z)
	r.world.Objects = append(r.world.Objects, obj)
	if exclusion {
		r.placed = append(r.placed, obj)
	}
}

// stage places up to pc.Count objects of one category. build turns an
// accepted position into an object. Returns the number placed.
func (r *run) stage(category string, pc config.PlacementConfig, extra ValidityFunc, exclusion bool, build func(i int, pos types.Vec3) *types.WorldObject) int {
	spawn := []types.Vec3{r.world.Spawn}
	var same []types.Vec3
	before := r.sampler.Stats()

	gen := Annulus(types.Vec3{}, pc.InnerRadius, pc.OuterRadius)
	for i := 0; i < pc.Count; i++ {
		valid := AllOf(
			FarFrom(spawn, r.g.cfg.SpawnClearance),
			FarFrom(same, pc.MinDistance),
			FarFromObjects(r.placed, pc.Clearance),
		)
		if extra != nil {
			valid = AllOf(valid, extra)
		}
		pos, ok := r.sampler.Place(gen, valid, r.g.cfg.MaxAttempts)
		if !ok {
			r.g.logger.Warn("Placement exhausted attempts",
				zap.String("category", category),
				zap.Int("index", i),
				zap.Int("max_attempts", r.g.cfg.MaxAttempts))
			continue
		}
		same = append(same, pos)
		r.add(build(len(same), pos), exclusion)
	}

	after := r.sampler.Stats()
	failed := after.Failed - before.Failed
	r.g.metrics.RecordPlacement(context.Background(), category, after.Attempts-before.Attempts, failed)
	r.g.logger.Debug("Placement stage finished",
		zap.String("category", category),
		zap.Int("requested", pc.Count),
		zap.Int("placed", len(same)),
		zap.Int("failed", failed))

	return len(same)
}

func (r *run) terrain() {
	r.add(&types.WorldObject{
		ID:     "terrain",
		Kind:   types.KindTerrain,
		Bounds: types.Bounds{Radius: r.g.cfg.Radius},
	}, false)
}

// streets lays a square grid of street bands centered on spawn.
func (r *run) streets() {
	spacing, extent := r.g.cfg.StreetSpacing, r.g.cfg.StreetExtent
	if spacing <= 0 || extent <= 0 {
		return
	}
	n := int(extent / spacing)
	for i := -n; i <= n; i++ {
		offset := float64(i) * spacing
		r.add(&types.WorldObject{
			ID:       fmt.Sprintf("street-x-%d", i+n),
			Kind:     types.KindStreet,
			Position: types.Vec3{Z: offset},
			Bounds:   types.Bounds{HalfX: extent, HalfZ: streetHalfWidth},
		}, false)
		r.add(&types.WorldObject{
			ID:       fmt.Sprintf("street-z-%d", i+n),
			Kind:     types.KindStreet,
			Position: types.Vec3{X: offset},
			Bounds:   types.Bounds{HalfX: streetHalfWidth, HalfZ: extent},
		}, false)
	}
}

// offStreet rejects points whose footprint would sit on a street band.
func (r *run) offStreet(margin float64) ValidityFunc {
	spacing, extent := r.g.cfg.StreetSpacing, r.g.cfg.StreetExtent
	return func(p types.Vec3) bool {
		if spacing <= 0 || extent <= 0 {
			return true
		}
		if math.Abs(p.X) > extent+margin || math.Abs(p.Z) > extent+margin {
			return true
		}
		onLine := func(v float64) bool {
			nearest := math.Round(v/spacing) * spacing
			return math.Abs(v-nearest) < streetHalfWidth+margin
		}
		return !onLine(p.X) && !onLine(p.Z)
	}
}

func (r *run) buildings() {
	const maxHalf = 7
	r.stage("building", r.g.cfg.Buildings, r.offStreet(maxHalf), true, func(i int, pos types.Vec3) *types.WorldObject {
		return &types.WorldObject{
			ID:       fmt.Sprintf("building-%d", i),
			Kind:     types.KindBuilding,
			Position: pos,
			Bounds: types.Bounds{
				HalfX: 4 + r.rng.Float64()*(maxHalf-4),
				HalfZ: 4 + r.rng.Float64()*(maxHalf-4),
			},
			Collidable: true,
		}
	})
}

func (r *run) temples() error {
	placed := r.stage("temple", r.g.cfg.Temples, nil, true, func(i int, pos types.Vec3) *types.WorldObject {
		element := types.AllElements[(i-1)%len(types.AllElements)]
		return &types.WorldObject{
			ID:         fmt.Sprintf("temple-%s", element),
			Kind:       types.KindTemple,
			Position:   pos,
			Bounds:     types.Bounds{Radius: 10},
			Collidable: true,
			Element:    element,
		}
	})
	if placed < len(types.AllElements) {
		return fmt.Errorf("%w: placed %d of %d", ErrTemplePlacement, placed, len(types.AllElements))
	}
	return nil
}

func (r *run) shops() {
	r.stage("shop", r.g.cfg.Shops, r.offStreet(5), true, func(i int, pos types.Vec3) *types.WorldObject {
		return &types.WorldObject{
			ID:         fmt.Sprintf("shop-%d", i),
			Kind:       types.KindShop,
			Position:   pos,
			Bounds:     types.Bounds{HalfX: 5, HalfZ: 5},
			Collidable: true,
			ShopID:     fmt.Sprintf("shop-%d", i),
		}
	})
}

// npcs places NPC start positions. NPCs move at runtime, so they are not
// grid-indexed and later stages do not avoid them.
func (r *run) npcs() {
	r.stage("npc", r.g.cfg.NPCs, nil, false, func(i int, pos types.Vec3) *types.WorldObject {
		return &types.WorldObject{
			ID:       fmt.Sprintf("npc-%d", i),
			Kind:     types.KindNPC,
			Position: pos,
			Bounds:   types.Bounds{Radius: 1},
			Name:     npcNames[r.rng.Intn(len(npcNames))],
			Role:     npcRoles[r.rng.Intn(len(npcRoles))],
		}
	})
}

func (r *run) collectibles() {
	r.stage("collectible", r.g.cfg.Collectibles, nil, false, func(i int, pos types.Vec3) *types.WorldObject {
		return &types.WorldObject{
			ID:       fmt.Sprintf("collectible-%d", i),
			Kind:     types.KindCollectible,
			Position: pos,
			Bounds:   types.Bounds{Radius: 0.5},
			Value:    1 + r.rng.Intn(5),
		}
	})
}
