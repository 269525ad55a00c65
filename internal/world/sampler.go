package world

import (
	"math"
	"math/rand"

	"github.com/user/elemelon/internal/types"
)

// DefaultMaxAttempts is the number of candidates drawn per placed object.
const DefaultMaxAttempts = 40

// CandidateFunc proposes a candidate position
type CandidateFunc func(rng *rand.Rand) types.Vec3

// ValidityFunc accepts or rejects a candidate position
type ValidityFunc func(p types.Vec3) bool

// SamplerStats counts the work done by a Sampler
type SamplerStats struct {
	Calls    int
	Placed   int
	Failed   int
	Attempts int
}

// SuccessRate returns the fraction of Place calls that found a position.
func (s SamplerStats) SuccessRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Placed) / float64(s.Calls)
}

// Sampler places objects by rejection sampling
type Sampler struct {
	rng   *rand.Rand
	stats SamplerStats
}

// NewSampler creates a sampler drawing from rng.
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// Place draws up to maxAttempts candidates from gen and returns the first one
// valid accepts. ok is false when every attempt was rejected; callers skip
// the object in that case.
func (s *Sampler) Place(gen CandidateFunc, valid ValidityFunc, maxAttempts int) (pos types.Vec3, ok bool) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	s.stats.Calls++
	for i := 0; i < maxAttempts; i++ {
		s.stats.Attempts++
		candidate := gen(s.rng)
		if valid == nil || valid(candidate) {
			s.stats.Placed++
			return candidate, true
		}
	}
	s.stats.Failed++
	return types.Vec3{}, false
}

// Stats returns the counters accumulated since the sampler was created.
func (s *Sampler) Stats() SamplerStats {
	return s.stats
}

// Disc proposes points uniformly distributed over a disc of the given radius.
func Disc(center types.Vec3, radius float64) CandidateFunc {
	return Annulus(center, 0, radius)
}

// Annulus proposes points uniformly distributed by area between inner and
// outer radius around center.
func Annulus(center types.Vec3, inner, outer float64) CandidateFunc {
	if inner < 0 {
		inner = 0
	}
	if outer < inner {
		outer = inner
	}
	return func(rng *rand.Rand) types.Vec3 {
		angle := rng.Float64() * 2 * math.Pi
		// sqrt keeps density uniform per unit area
		r := math.Sqrt(inner*inner + rng.Float64()*(outer*outer-inner*inner))
		return types.Vec3{
			X: center.X + math.Cos(angle)*r,
			Z: center.Z + math.Sin(angle)*r,
		}
	}
}

// FarFrom accepts points at least minDist (horizontally) from every point.
func FarFrom(points []types.Vec3, minDist float64) ValidityFunc {
	return func(p types.Vec3) bool {
		for _, q := range points {
			if p.DistXZ(q) < minDist {
				return false
			}
		}
		return true
	}
}

// FarFromObjects accepts points whose distance to each object's footprint
// edge is at least minDist.
func FarFromObjects(objs []*types.WorldObject, minDist float64) ValidityFunc {
	return func(p types.Vec3) bool {
		for _, obj := range objs {
			if p.DistXZ(obj.Position)-obj.Bounds.Extent() < minDist {
				return false
			}
		}
		return true
	}
}

// AllOf accepts points every predicate accepts.
func AllOf(preds ...ValidityFunc) ValidityFunc {
	return func(p types.Vec3) bool {
		for _, pred := range preds {
			if !pred(p) {
				return false
			}
		}
		return true
	}
}
