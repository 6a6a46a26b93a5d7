package annotation

import (
	"strconv"
)

// Plain is the JSON-compatible persisted form of an annotation.
//
// Geometry keys are populated according to Type; unused keys are omitted.
type Plain struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	AnnType     string      `json:"anntype,omitempty"`
	Reviewed    bool        `json:"reviewed,omitempty"`
	Visited     bool        `json:"visited,omitempty"`
	Segments    [][2]string `json:"segments,omitempty"`
	Size        *float64    `json:"size,omitempty"`

	Point  []float32   `json:"point,omitempty"`
	PointA []float32   `json:"pointA,omitempty"`
	PointB []float32   `json:"pointB,omitempty"`
	Center []float32   `json:"center,omitempty"`
	Radii  []float32   `json:"radii,omitempty"`
	Points [][]float32 `json:"points,omitempty"`
}

// EncodeSegment splits a segment id into decimal high/low 32-bit halves.
func EncodeSegment(id SegmentID) [2]string {
	return [2]string{
		strconv.FormatUint(uint64(id)>>32, 10),
		strconv.FormatUint(uint64(id)&0xffffffff, 10),
	}
}

// DecodeSegment joins decimal high/low 32-bit halves into a segment id.
func DecodeSegment(p [2]string) (SegmentID, error) {
	hi, err := strconv.ParseUint(p[0], 10, 32)
	if err != nil {
		return 0, &ErrMalformed{Index: -1, Field: "segments", Reason: "invalid high word " + strconv.Quote(p[0]), cause: err}
	}
	lo, err := strconv.ParseUint(p[1], 10, 32)
	if err != nil {
		return 0, &ErrMalformed{Index: -1, Field: "segments", Reason: "invalid low word " + strconv.Quote(p[1]), cause: err}
	}
	return SegmentID(hi<<32 | lo), nil
}

// ToPlain converts an annotation into its persisted form.
func ToPlain(a Annotation) Plain {
	m := a.Meta()
	p := Plain{
		ID:          m.ID,
		Type:        a.Type().String(),
		Description: m.Description,
		AnnType:     m.AnnType,
		Reviewed:    m.Reviewed,
		Visited:     m.Visited,
	}
	if m.Size != nil {
		s := *m.Size
		p.Size = &s
	}
	if len(m.Segments) > 0 {
		p.Segments = make([][2]string, len(m.Segments))
		for i, s := range m.Segments {
			p.Segments[i] = EncodeSegment(s)
		}
	}
	HandlerFor(a.Type()).ToPlain(a, &p)
	return p
}

// FromPlain builds an annotation from its persisted form. An empty id is
// replaced by a fresh one.
func FromPlain(p Plain) (Annotation, error) {
	t, ok := ParseType(p.Type)
	if !ok {
		return nil, &ErrMalformed{Index: -1, Field: "type", Reason: strconv.Quote(p.Type), cause: ErrUnknownType}
	}
	a, err := HandlerFor(t).FromPlain(&p)
	if err != nil {
		return nil, err
	}
	m := a.Meta()
	m.ID = p.ID
	if m.ID == "" {
		m.ID = NewID()
	}
	m.Description = p.Description
	m.AnnType = p.AnnType
	m.Reviewed = p.Reviewed
	m.Visited = p.Visited
	if p.Size != nil {
		s := *p.Size
		m.Size = &s
	}
	if len(p.Segments) > 0 {
		m.Segments = make([]SegmentID, len(p.Segments))
		for i, s := range p.Segments {
			id, err := DecodeSegment(s)
			if err != nil {
				return nil, err
			}
			m.Segments[i] = id
		}
	}
	return a, nil
}

func vec3ToPlain(v Vec3) []float32 { return []float32{v[0], v[1], v[2]} }

func vec3FromPlain(field string, s []float32) (Vec3, error) {
	if len(s) != 3 {
		return Vec3{}, malformed(field, "expected 3 coordinates, got "+strconv.Itoa(len(s)))
	}
	v := Vec3{s[0], s[1], s[2]}
	if !v.finite() {
		return Vec3{}, malformed(field, "non-finite coordinate")
	}
	return v, nil
}

func pointsToPlain(pts []Vec3) [][]float32 {
	out := make([][]float32, len(pts))
	for i, v := range pts {
		out[i] = vec3ToPlain(v)
	}
	return out
}

func pointsFromPlain(s [][]float32, minPoints int) ([]Vec3, error) {
	if len(s) < minPoints {
		return nil, malformed("points", "expected at least "+strconv.Itoa(minPoints)+" points, got "+strconv.Itoa(len(s)))
	}
	out := make([]Vec3, len(s))
	for i, c := range s {
		v, err := vec3FromPlain("points", c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
