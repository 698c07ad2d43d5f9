// Package visualization renders the knowledge base: a plain-text report and
// positioned graph exports (JSON for front ends, Graphviz DOT for images).
package visualization

import (
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig configures layout parameters
type LayoutConfig struct {
	Width   float64 // Canvas width
	Height  float64 // Canvas height
	Padding float64 // Padding from edges
}

// DefaultLayoutConfig is the canvas used by the exporters.
func DefaultLayoutConfig() *LayoutConfig {
	return &LayoutConfig{Width: 1200, Height: 800, Padding: 50}
}

// Layout assigns a position to each named node of a store.
type Layout interface {
	ComputeLayout(store *knowledge.Store, names []string) (map[string]Position, error)
}

// Visualization represents a graph visualization with layout
type Visualization struct {
	Nodes     []knowledge.Node
	Relations []knowledge.Relation
	Positions map[string]Position
}
