package render

import "github.com/gogpu/gputypes"

// Style is the color and size table passed with every draw call.
type Style struct {
	// Default colors annotations without a matching AnnType entry.
	Default gputypes.Color
	// ByAnnType overrides the color per category label.
	ByAnnType map[string]gputypes.Color
	// Highlight is forced onto the selected annotation.
	Highlight gputypes.Color
	PointSize float32
	LineWidth float32
}

// DefaultStyle returns yellow annotations with a white highlight.
func DefaultStyle() Style {
	return Style{
		Default:   gputypes.Color{R: 1, G: 1, B: 0, A: 1},
		Highlight: gputypes.Color{R: 1, G: 1, B: 1, A: 1},
		PointSize: 6,
		LineWidth: 1,
	}
}

// ColorFor returns the color of the category annType.
func (s Style) ColorFor(annType string) gputypes.Color {
	if c, ok := s.ByAnnType[annType]; ok {
		return c
	}
	return s.Default
}
