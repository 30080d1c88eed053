package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ---------- Zoom ----------

// Zoom is the pan offset and scale of a map, serialized as "x,y;scale".
type Zoom struct {
	X     float64
	Y     float64
	Scale float64
}

const (
	minZoomScale = 0.1
	maxZoomScale = 10
	zoomStep     = 1.25
)

// ParseZoom parses a "x,y;scale" zoom string. An empty string is the default zoom.
func ParseZoom(text string) (Zoom, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = DefaultZoom
	}
	translate, scaleText, ok := strings.Cut(text, ";")
	if !ok {
		return Zoom{}, fmt.Errorf("invalid zoom %q: expected x,y;scale", text)
	}
	xText, yText, ok := strings.Cut(translate, ",")
	if !ok {
		return Zoom{}, fmt.Errorf("invalid zoom %q: expected x,y;scale", text)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xText), 64)
	if err != nil {
		return Zoom{}, fmt.Errorf("invalid zoom x %q: %w", xText, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(yText), 64)
	if err != nil {
		return Zoom{}, fmt.Errorf("invalid zoom y %q: %w", yText, err)
	}
	scale, err := strconv.ParseFloat(strings.TrimSpace(scaleText), 64)
	if err != nil {
		return Zoom{}, fmt.Errorf("invalid zoom scale %q: %w", scaleText, err)
	}
	if scale <= 0 {
		return Zoom{}, fmt.Errorf("invalid zoom scale %v: must be positive", scale)
	}
	return Zoom{X: x, Y: y, Scale: scale}, nil
}

func (z Zoom) String() string {
	return strconv.FormatFloat(z.X, 'f', -1, 64) + "," +
		strconv.FormatFloat(z.Y, 'f', -1, 64) + ";" +
		strconv.FormatFloat(z.Scale, 'f', -1, 64)
}

// In returns the zoom one step closer, capped at the maximum scale.
func (z Zoom) In() Zoom {
	z.Scale = min(z.Scale*zoomStep, maxZoomScale)
	return z
}

// Out returns the zoom one step further, capped at the minimum scale.
func (z Zoom) Out() Zoom {
	z.Scale = max(z.Scale/zoomStep, minZoomScale)
	return z
}

// ---------- Categories ----------

// NextCategoryFilter cycles a category filter through "all categories" and then each
// single category in turn.
func NextCategoryFilter(all, current []string) []string {
	if len(all) == 0 {
		return nil
	}
	if len(current) != 1 {
		return []string{all[0]}
	}
	idx := slices.Index(all, current[0])
	if idx < 0 || idx == len(all)-1 {
		return slices.Clone(all)
	}
	return []string{all[idx+1]}
}

// RenderCategories renders a category filter for humans.
func RenderCategories(categories []string) string {
	if len(categories) == 0 {
		return "<all>"
	}
	return strings.Join(categories, ", ")
}

// RenderTopology renders a topology layer for humans.
func RenderTopology(topology int) string {
	switch topology {
	case TopologyLayer2:
		return "Layer 2"
	case TopologyLayer3:
		return "Layer 3"
	default:
		return strconv.Itoa(topology)
	}
}
