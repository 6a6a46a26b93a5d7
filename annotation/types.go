package annotation

import (
	"fmt"
	"math"
	"slices"
)

// Type is the geometry kind of an annotation.
//
// The numeric order is the region order of the serialized buffer and must not change.
type Type uint8

const (
	TypePoint Type = iota
	TypeLine
	TypeAxisAlignedBoundingBox
	TypeEllipsoid
	TypePolygon
	TypeLineString
)

// NumTypes is the number of geometry kinds.
const NumTypes = 6

var typeNames = [NumTypes]string{
	"point",
	"line",
	"axis_aligned_bounding_box",
	"ellipsoid",
	"polygon",
	"line_string",
}

// String returns the lower-cased persisted type tag.
func (t Type) String() string {
	if int(t) < NumTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Valid reports whether t is one of the known geometry kinds.
func (t Type) Valid() bool { return int(t) < NumTypes }

// ParseType maps a persisted type tag back to its Type.
func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), true
		}
	}
	return 0, false
}

// Types returns all geometry kinds in region order.
func Types() [NumTypes]Type {
	return [NumTypes]Type{TypePoint, TypeLine, TypeAxisAlignedBoundingBox, TypeEllipsoid, TypePolygon, TypeLineString}
}

// Vec3 is a 3-D coordinate stored at GPU precision.
type Vec3 [3]float32

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}
func (v Vec3) Dot(o Vec3) float32 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

// Min returns the component-wise minimum.
func (v Vec3) Min(o Vec3) Vec3 {
	return Vec3{min(v[0], o[0]), min(v[1], o[1]), min(v[2], o[2])}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{max(v[0], o[0]), max(v[1], o[1]), max(v[2], o[2])}
}

func (v Vec3) finite() bool {
	for _, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return false
		}
	}
	return true
}

// SegmentID identifies a segmentation object. Annotations hold these as
// non-owning links.
type SegmentID uint64

// Base carries the fields shared by every geometry kind.
type Base struct {
	ID          string
	Description string
	// AnnType is a free-form category label used for grouping and coloring.
	AnnType  string
	Reviewed bool
	Visited  bool
	Segments []SegmentID
	// Size is optional; nil means the annotation takes no part in size filtering.
	Size *float64
}

// Meta returns the shared fields. It is promoted to every variant.
func (b *Base) Meta() *Base { return b }

// HasSegment reports whether id is among the linked segments.
func (b *Base) HasSegment(id SegmentID) bool {
	return slices.Contains(b.Segments, id)
}

func (b Base) clone() Base {
	c := b
	c.Segments = slices.Clone(b.Segments)
	if b.Size != nil {
		s := *b.Size
		c.Size = &s
	}
	return c
}

// Annotation is one geometric entity. The concrete types are
// *Point, *Line, *AxisAlignedBoundingBox, *Ellipsoid, *Polygon and *LineString.
type Annotation interface {
	Type() Type
	Meta() *Base
	// Clone returns a deep copy.
	Clone() Annotation
}

// Point is a single location.
type Point struct {
	Base
	Point Vec3
}

func (*Point) Type() Type { return TypePoint }

func (a *Point) Clone() Annotation {
	c := *a
	c.Base = a.Base.clone()
	return &c
}

// Line is a segment between two endpoints.
type Line struct {
	Base
	PointA Vec3
	PointB Vec3
}

func (*Line) Type() Type { return TypeLine }

func (a *Line) Clone() Annotation {
	c := *a
	c.Base = a.Base.clone()
	return &c
}

// AxisAlignedBoundingBox is a box given by two opposite corners in any order.
type AxisAlignedBoundingBox struct {
	Base
	PointA Vec3
	PointB Vec3
}

func (*AxisAlignedBoundingBox) Type() Type { return TypeAxisAlignedBoundingBox }

func (a *AxisAlignedBoundingBox) Clone() Annotation {
	c := *a
	c.Base = a.Base.clone()
	return &c
}

// Ellipsoid is an axis-aligned ellipsoid.
type Ellipsoid struct {
	Base
	Center Vec3
	Radii  Vec3
}

func (*Ellipsoid) Type() Type { return TypeEllipsoid }

func (a *Ellipsoid) Clone() Annotation {
	c := *a
	c.Base = a.Base.clone()
	return &c
}

// Polygon is a closed ring of vertices; the last vertex connects to the first.
type Polygon struct {
	Base
	Points []Vec3
}

func (*Polygon) Type() Type { return TypePolygon }

func (a *Polygon) Clone() Annotation {
	c := *a
	c.Base = a.Base.clone()
	c.Points = slices.Clone(a.Points)
	return &c
}

// LineString is an open chain of vertices.
type LineString struct {
	Base
	Points []Vec3
}

func (*LineString) Type() Type { return TypeLineString }

func (a *LineString) Clone() Annotation {
	c := *a
	c.Base = a.Base.clone()
	c.Points = slices.Clone(a.Points)
	return &c
}
