package visualization

import (
	"math"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// CircularLayout arranges nodes in a circle, grouped by node type so that
// categories, diseases, symptoms and treatments form contiguous arcs.
type CircularLayout struct {
	config *LayoutConfig
}

// NewCircularLayout creates a new circular layout
func NewCircularLayout(config *LayoutConfig) *CircularLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &CircularLayout{config: config}
}

// ComputeLayout arranges nodes in a circle
func (cl *CircularLayout) ComputeLayout(store *knowledge.Store, names []string) (map[string]Position, error) {
	positions := make(map[string]Position, len(names))
	if len(names) == 0 {
		return positions, nil
	}

	ordered := groupByType(store, names)

	centerX := cl.config.Width / 2
	centerY := cl.config.Height / 2
	radius := math.Min(centerX, centerY) - cl.config.Padding
	angleStep := 2 * math.Pi / float64(len(ordered))

	for i, name := range ordered {
		angle := float64(i) * angleStep
		positions[name] = Position{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		}
	}
	return positions, nil
}

// groupByType orders names by the first appearance of their type, keeping
// input order inside a type.
func groupByType(store *knowledge.Store, names []string) []string {
	var types []knowledge.NodeType
	byType := make(map[knowledge.NodeType][]string)
	for _, n := range names {
		typ := store.Get(n).Type
		if _, ok := byType[typ]; !ok {
			types = append(types, typ)
		}
		byType[typ] = append(byType[typ], n)
	}
	out := make([]string, 0, len(names))
	for _, typ := range types {
		out = append(out, byType[typ]...)
	}
	return out
}
