package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/annostore/annotation"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
	next int
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
	r.next = 0
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Vec3 returns a point with coordinates in [minVal, maxVal).
func (r *RNG) Vec3(minVal, maxVal float32) annotation.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vec3Locked(minVal, maxVal)
}

func (r *RNG) vec3Locked(minVal, maxVal float32) annotation.Vec3 {
	span := maxVal - minVal
	return annotation.Vec3{
		minVal + r.rand.Float32()*span,
		minVal + r.rand.Float32()*span,
		minVal + r.rand.Float32()*span,
	}
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Inverse transform over the cumulative weights.
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Segments returns up to count distinct segment ids in [1, universe],
// skewed towards low ids.
func (r *RNG) Segments(count, universe int, s float64) []annotation.SegmentID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.segmentsLocked(count, universe, s)
}

func (r *RNG) segmentsLocked(count, universe int, s float64) []annotation.SegmentID {
	var out []annotation.SegmentID
	for range count {
		id := annotation.SegmentID(r.zipfLocked(universe, s) + 1)
		dup := false
		for _, have := range out {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	return out
}

// AnnTypes are the category labels assigned by the generators.
var AnnTypes = []string{"", "synapse", "soma", "error"}

// Annotation returns a random annotation of kind t with a unique id.
func (r *RNG) Annotation(t annotation.Type) annotation.Annotation {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	base := annotation.Base{
		ID:       fmt.Sprintf("%016x", uint64(r.seed)<<32|uint64(r.next)),
		AnnType:  AnnTypes[r.rand.Intn(len(AnnTypes))],
		Segments: r.segmentsLocked(r.rand.Intn(3), 1000, 1.5),
	}

	switch t {
	case annotation.TypePoint:
		return &annotation.Point{Base: base, Point: r.vec3Locked(-100, 100)}
	case annotation.TypeLine:
		return &annotation.Line{Base: base, PointA: r.vec3Locked(-100, 100), PointB: r.vec3Locked(-100, 100)}
	case annotation.TypeAxisAlignedBoundingBox:
		return &annotation.AxisAlignedBoundingBox{Base: base, PointA: r.vec3Locked(-100, 100), PointB: r.vec3Locked(-100, 100)}
	case annotation.TypeEllipsoid:
		return &annotation.Ellipsoid{Base: base, Center: r.vec3Locked(-100, 100), Radii: r.vec3Locked(0.5, 10)}
	case annotation.TypePolygon:
		return &annotation.Polygon{Base: base, Points: r.pointsLocked(3 + r.rand.Intn(6))}
	case annotation.TypeLineString:
		return &annotation.LineString{Base: base, Points: r.pointsLocked(2 + r.rand.Intn(7))}
	default:
		panic(fmt.Sprintf("testutil: unknown annotation type %v", t))
	}
}

func (r *RNG) pointsLocked(n int) []annotation.Vec3 {
	pts := make([]annotation.Vec3, n)
	for i := range pts {
		pts[i] = r.vec3Locked(-100, 100)
	}
	return pts
}

// Annotations returns n random annotations cycling through every kind.
func (r *RNG) Annotations(n int) []annotation.Annotation {
	out := make([]annotation.Annotation, n)
	types := annotation.Types()
	for i := range out {
		out[i] = r.Annotation(types[i%len(types)])
	}
	return out
}

// ByType groups annotations by kind, preserving their order.
func ByType(as []annotation.Annotation) [annotation.NumTypes][]annotation.Annotation {
	var out [annotation.NumTypes][]annotation.Annotation
	for _, a := range as {
		out[a.Type()] = append(out[a.Type()], a)
	}
	return out
}
