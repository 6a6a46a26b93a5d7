package annotation

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CoordBytes is the packed width of one coordinate (float32).
const CoordBytes = 4

// Vec3Bytes is the packed width of one 3-D coordinate.
const Vec3Bytes = 3 * CoordBytes

// WriteFunc packs annotation a as the index-th instance of its type region.
type WriteFunc func(a Annotation, index int)

// Handler is the per-geometry strategy used for persistence, binary packing
// and picking. Handlers are stateless and safe for concurrent use.
type Handler interface {
	Type() Type

	// ToPlain writes the variant-specific geometry keys into p.
	ToPlain(a Annotation, p *Plain)
	// FromPlain builds the variant from the geometry keys of p. Common
	// fields are filled in by the caller.
	FromPlain(p *Plain) (Annotation, error)

	// PackedByteSize is the exact number of bytes a occupies in its region.
	PackedByteSize(a Annotation) int
	// Stride is the bytes per instance, or per vertex when FixedSize is false.
	Stride() int
	// FixedSize reports whether every instance packs to Stride bytes.
	FixedSize() bool
	// Serializer returns a writer packing count instances into buf starting
	// at byteOffset. Variable-size kinds require indices in ascending order.
	Serializer(buf []byte, byteOffset, count int) WriteFunc
	// Unpack decodes the geometry of one packed instance.
	Unpack(instance []byte) Annotation

	// PickIDsPerInstance is the number of pickable parts per annotation.
	PickIDsPerInstance(as []Annotation) []int
	// Snap maps a picked part of a packed instance to a concrete position,
	// using mouse to choose a point along extended parts.
	Snap(instance []byte, part int, mouse Vec3) Vec3
}

// Handlers is the dispatch table indexed by Type.
var Handlers = [NumTypes]Handler{
	TypePoint:                  pointHandler{},
	TypeLine:                   lineHandler{},
	TypeAxisAlignedBoundingBox: boxHandler{},
	TypeEllipsoid:              ellipsoidHandler{},
	TypePolygon:                polylineHandler{typ: TypePolygon, closed: true},
	TypeLineString:             polylineHandler{typ: TypeLineString},
}

// HandlerFor returns the handler for t. It panics on an invalid type.
func HandlerFor(t Type) Handler {
	if !t.Valid() {
		panic(fmt.Sprintf("annotation: no handler for %v", t))
	}
	return Handlers[t]
}

func putVec3(buf []byte, off int, v Vec3) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v[2]))
}

// ReadVec3 decodes a packed coordinate at off.
func ReadVec3(buf []byte, off int) Vec3 {
	return Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
	}
}

func onePickEach(as []Annotation) []int {
	out := make([]int, len(as))
	for i := range out {
		out[i] = 1
	}
	return out
}

// fixedSerializer packs instances of a constant size.
func fixedSerializer(buf []byte, byteOffset, size int, pack func(dst []byte, a Annotation)) WriteFunc {
	return func(a Annotation, index int) {
		off := byteOffset + index*size
		pack(buf[off:off+size], a)
	}
}

type pointHandler struct{}

func (pointHandler) Type() Type      { return TypePoint }
func (pointHandler) Stride() int     { return Vec3Bytes }
func (pointHandler) FixedSize() bool { return true }

func (pointHandler) ToPlain(a Annotation, p *Plain) {
	p.Point = vec3ToPlain(a.(*Point).Point)
}

func (pointHandler) FromPlain(p *Plain) (Annotation, error) {
	v, err := vec3FromPlain("point", p.Point)
	if err != nil {
		return nil, err
	}
	return &Point{Point: v}, nil
}

func (pointHandler) PackedByteSize(Annotation) int { return Vec3Bytes }

func (pointHandler) Serializer(buf []byte, byteOffset, _ int) WriteFunc {
	return fixedSerializer(buf, byteOffset, Vec3Bytes, func(dst []byte, a Annotation) {
		putVec3(dst, 0, a.(*Point).Point)
	})
}

func (pointHandler) Unpack(b []byte) Annotation { return &Point{Point: ReadVec3(b, 0)} }

func (pointHandler) PickIDsPerInstance(as []Annotation) []int { return onePickEach(as) }

func (pointHandler) Snap(b []byte, _ int, _ Vec3) Vec3 { return ReadVec3(b, 0) }

type lineHandler struct{}

func (lineHandler) Type() Type      { return TypeLine }
func (lineHandler) Stride() int     { return 2 * Vec3Bytes }
func (lineHandler) FixedSize() bool { return true }

func (lineHandler) ToPlain(a Annotation, p *Plain) {
	l := a.(*Line)
	p.PointA = vec3ToPlain(l.PointA)
	p.PointB = vec3ToPlain(l.PointB)
}

func (lineHandler) FromPlain(p *Plain) (Annotation, error) {
	a, err := vec3FromPlain("pointA", p.PointA)
	if err != nil {
		return nil, err
	}
	b, err := vec3FromPlain("pointB", p.PointB)
	if err != nil {
		return nil, err
	}
	return &Line{PointA: a, PointB: b}, nil
}

func (lineHandler) PackedByteSize(Annotation) int { return 2 * Vec3Bytes }

func (lineHandler) Serializer(buf []byte, byteOffset, _ int) WriteFunc {
	return fixedSerializer(buf, byteOffset, 2*Vec3Bytes, func(dst []byte, a Annotation) {
		l := a.(*Line)
		putVec3(dst, 0, l.PointA)
		putVec3(dst, Vec3Bytes, l.PointB)
	})
}

func (lineHandler) Unpack(b []byte) Annotation {
	return &Line{PointA: ReadVec3(b, 0), PointB: ReadVec3(b, Vec3Bytes)}
}

func (lineHandler) PickIDsPerInstance(as []Annotation) []int { return onePickEach(as) }

func (lineHandler) Snap(b []byte, _ int, mouse Vec3) Vec3 {
	return closestOnSegment(ReadVec3(b, 0), ReadVec3(b, Vec3Bytes), mouse)
}

// boxHandler always packs (min, max) so the corner order of the input is not preserved.
type boxHandler struct{}

func (boxHandler) Type() Type      { return TypeAxisAlignedBoundingBox }
func (boxHandler) Stride() int     { return 2 * Vec3Bytes }
func (boxHandler) FixedSize() bool { return true }

func (boxHandler) ToPlain(a Annotation, p *Plain) {
	b := a.(*AxisAlignedBoundingBox)
	p.PointA = vec3ToPlain(b.PointA)
	p.PointB = vec3ToPlain(b.PointB)
}

func (boxHandler) FromPlain(p *Plain) (Annotation, error) {
	a, err := vec3FromPlain("pointA", p.PointA)
	if err != nil {
		return nil, err
	}
	b, err := vec3FromPlain("pointB", p.PointB)
	if err != nil {
		return nil, err
	}
	return &AxisAlignedBoundingBox{PointA: a, PointB: b}, nil
}

func (boxHandler) PackedByteSize(Annotation) int { return 2 * Vec3Bytes }

func (boxHandler) Serializer(buf []byte, byteOffset, _ int) WriteFunc {
	return fixedSerializer(buf, byteOffset, 2*Vec3Bytes, func(dst []byte, a Annotation) {
		b := a.(*AxisAlignedBoundingBox)
		putVec3(dst, 0, b.PointA.Min(b.PointB))
		putVec3(dst, Vec3Bytes, b.PointA.Max(b.PointB))
	})
}

func (boxHandler) Unpack(b []byte) Annotation {
	return &AxisAlignedBoundingBox{PointA: ReadVec3(b, 0), PointB: ReadVec3(b, Vec3Bytes)}
}

func (boxHandler) PickIDsPerInstance(as []Annotation) []int { return onePickEach(as) }

func (boxHandler) Snap(b []byte, _ int, mouse Vec3) Vec3 {
	return mouse.Max(ReadVec3(b, 0)).Min(ReadVec3(b, Vec3Bytes))
}

type ellipsoidHandler struct{}

func (ellipsoidHandler) Type() Type      { return TypeEllipsoid }
func (ellipsoidHandler) Stride() int     { return 2 * Vec3Bytes }
func (ellipsoidHandler) FixedSize() bool { return true }

func (ellipsoidHandler) ToPlain(a Annotation, p *Plain) {
	e := a.(*Ellipsoid)
	p.Center = vec3ToPlain(e.Center)
	p.Radii = vec3ToPlain(e.Radii)
}

func (ellipsoidHandler) FromPlain(p *Plain) (Annotation, error) {
	c, err := vec3FromPlain("center", p.Center)
	if err != nil {
		return nil, err
	}
	r, err := vec3FromPlain("radii", p.Radii)
	if err != nil {
		return nil, err
	}
	if r[0] < 0 || r[1] < 0 || r[2] < 0 {
		return nil, malformed("radii", "negative radius")
	}
	return &Ellipsoid{Center: c, Radii: r}, nil
}

func (ellipsoidHandler) PackedByteSize(Annotation) int { return 2 * Vec3Bytes }

func (ellipsoidHandler) Serializer(buf []byte, byteOffset, _ int) WriteFunc {
	return fixedSerializer(buf, byteOffset, 2*Vec3Bytes, func(dst []byte, a Annotation) {
		e := a.(*Ellipsoid)
		putVec3(dst, 0, e.Center)
		putVec3(dst, Vec3Bytes, e.Radii)
	})
}

func (ellipsoidHandler) Unpack(b []byte) Annotation {
	return &Ellipsoid{Center: ReadVec3(b, 0), Radii: ReadVec3(b, Vec3Bytes)}
}

func (ellipsoidHandler) PickIDsPerInstance(as []Annotation) []int { return onePickEach(as) }

func (ellipsoidHandler) Snap(b []byte, _ int, mouse Vec3) Vec3 {
	return projectOntoEllipsoid(ReadVec3(b, 0), ReadVec3(b, Vec3Bytes), mouse)
}

// polylineHandler serves Polygon (closed) and LineString (open). Instances
// pack their vertices back to back, so the region size follows point count.
// Parts are numbered vertices first, then edges.
type polylineHandler struct {
	typ    Type
	closed bool
}

func (h polylineHandler) Type() Type    { return h.typ }
func (polylineHandler) Stride() int     { return Vec3Bytes }
func (polylineHandler) FixedSize() bool { return false }

func (h polylineHandler) points(a Annotation) []Vec3 {
	if h.closed {
		return a.(*Polygon).Points
	}
	return a.(*LineString).Points
}

func (h polylineHandler) minPoints() int {
	if h.closed {
		return 3
	}
	return 2
}

func (h polylineHandler) ToPlain(a Annotation, p *Plain) {
	p.Points = pointsToPlain(h.points(a))
}

func (h polylineHandler) FromPlain(p *Plain) (Annotation, error) {
	pts, err := pointsFromPlain(p.Points, h.minPoints())
	if err != nil {
		return nil, err
	}
	if h.closed {
		return &Polygon{Points: pts}, nil
	}
	return &LineString{Points: pts}, nil
}

func (h polylineHandler) PackedByteSize(a Annotation) int {
	return len(h.points(a)) * Vec3Bytes
}

func (h polylineHandler) Serializer(buf []byte, byteOffset, _ int) WriteFunc {
	cursor := byteOffset
	next := 0
	return func(a Annotation, index int) {
		if index != next {
			panic(fmt.Sprintf("annotation: %v instances must be written in order: got %d, want %d", h.typ, index, next))
		}
		for _, v := range h.points(a) {
			putVec3(buf, cursor, v)
			cursor += Vec3Bytes
		}
		next++
	}
}

func (h polylineHandler) Unpack(b []byte) Annotation {
	pts := make([]Vec3, len(b)/Vec3Bytes)
	for i := range pts {
		pts[i] = ReadVec3(b, i*Vec3Bytes)
	}
	if h.closed {
		return &Polygon{Points: pts}
	}
	return &LineString{Points: pts}
}

// PickIDsForVertices is the number of parts of an instance with n vertices.
func (h polylineHandler) PickIDsForVertices(n int) int {
	switch {
	case n == 0:
		return 0
	case h.closed:
		return 2 * n
	default:
		return 2*n - 1
	}
}

func (h polylineHandler) PickIDsPerInstance(as []Annotation) []int {
	out := make([]int, len(as))
	for i, a := range as {
		out[i] = h.PickIDsForVertices(len(h.points(a)))
	}
	return out
}

func (h polylineHandler) Snap(b []byte, part int, mouse Vec3) Vec3 {
	n := len(b) / Vec3Bytes
	if n == 0 {
		return mouse
	}
	if part < n {
		return ReadVec3(b, max(part, 0)*Vec3Bytes)
	}
	e := part - n
	if h.closed {
		e %= n
	} else if e >= n-1 {
		e = n - 2
	}
	if e < 0 {
		return ReadVec3(b, 0)
	}
	return closestOnSegment(ReadVec3(b, e*Vec3Bytes), ReadVec3(b, ((e+1)%n)*Vec3Bytes), mouse)
}

func closestOnSegment(a, b, p Vec3) Vec3 {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 == 0 {
		return a
	}
	t := p.Sub(a).Dot(d) / l2
	t = min(max(t, 0), 1)
	return a.Add(d.Scale(t))
}

func projectOntoEllipsoid(center, radii, p Vec3) Vec3 {
	var n Vec3
	for i := range 3 {
		if radii[i] == 0 {
			continue
		}
		n[i] = (p[i] - center[i]) / radii[i]
	}
	l := float32(math.Sqrt(float64(n.Dot(n))))
	if l == 0 {
		return center
	}
	var out Vec3
	for i := range 3 {
		out[i] = center[i] + radii[i]*n[i]/l
	}
	return out
}
