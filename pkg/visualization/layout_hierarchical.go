package visualization

import (
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// HierarchicalLayout arranges nodes in levels: categories on top, their
// subtypes below, then the nodes diseases point at (symptoms, treatments).
//
// A node's children are the sources of its incoming is-subtype-of relations
// and the targets of its other outgoing relations.
type HierarchicalLayout struct {
	config *LayoutConfig
}

// NewHierarchicalLayout creates a new hierarchical layout
func NewHierarchicalLayout(config *LayoutConfig) *HierarchicalLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &HierarchicalLayout{config: config}
}

// Levels groups names by depth from the roots, in input order within a
// level. Nodes unreachable from any root go to the last level.
func (hl *HierarchicalLayout) Levels(store *knowledge.Store, names []string) [][]string {
	if len(names) == 0 {
		return nil
	}

	included := make(map[string]bool, len(names))
	for _, n := range names {
		included[n] = true
	}

	hasParent := make(map[string]bool)
	children := make(map[string][]string)
	for _, r := range store.Relations() {
		if !included[r.Source] || !included[r.Target] || r.Source == r.Target {
			continue
		}
		parent, child := r.Source, r.Target
		if r.Label == knowledge.LabelSubtypeOf {
			parent, child = r.Target, r.Source
		}
		children[parent] = append(children[parent], child)
		hasParent[child] = true
	}

	roots := make([]string, 0)
	for _, n := range names {
		if !hasParent[n] {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 {
		// every node sits on a cycle
		roots = []string{names[0]}
	}

	levels := make([][]string, 0)
	visited := make(map[string]bool)
	for _, r := range roots {
		visited[r] = true
	}
	current := roots

	for len(current) > 0 {
		levels = append(levels, current)
		next := make([]string, 0)
		for _, n := range current {
			for _, c := range children[n] {
				if !visited[c] {
					visited[c] = true
					next = append(next, c)
				}
			}
		}
		current = next
	}

	for _, n := range names {
		if !visited[n] {
			levels[len(levels)-1] = append(levels[len(levels)-1], n)
		}
	}
	return levels
}

// ComputeLayout arranges nodes hierarchically
func (hl *HierarchicalLayout) ComputeLayout(store *knowledge.Store, names []string) (map[string]Position, error) {
	positions := make(map[string]Position, len(names))

	levels := hl.Levels(store, names)
	if len(levels) == 0 {
		return positions, nil
	}

	levelHeight := (hl.config.Height - 2*hl.config.Padding) / float64(len(levels))
	levelWidth := hl.config.Width - 2*hl.config.Padding

	for levelIdx, level := range levels {
		y := hl.config.Padding + float64(levelIdx)*levelHeight + levelHeight/2
		spacing := levelWidth / float64(len(level)+1)

		for nodeIdx, name := range level {
			x := hl.config.Padding + spacing*float64(nodeIdx+1)
			positions[name] = Position{X: x, Y: y}
		}
	}

	return positions, nil
}
