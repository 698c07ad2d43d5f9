package visualization

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// Visualize lays out every node of store.
func Visualize(store *knowledge.Store, layout Layout) (*Visualization, error) {
	positions, err := layout.ComputeLayout(store, store.Names())
	if err != nil {
		return nil, fmt.Errorf("failed to compute layout: %w", err)
	}
	return &Visualization{
		Nodes:     store.Nodes(),
		Relations: store.Relations(),
		Positions: positions,
	}, nil
}

// ExportJSON exports the visualization to JSON
func (v *Visualization) ExportJSON() ([]byte, error) {
	type nodeViz struct {
		Name       string         `json:"name"`
		Type       string         `json:"type"`
		Attributes map[string]any `json:"attributes,omitempty"`
		X          float64        `json:"x"`
		Y          float64        `json:"y"`
	}
	type relationViz struct {
		Source string `json:"source"`
		Label  string `json:"label"`
		Target string `json:"target"`
	}
	type vizData struct {
		Nodes     []nodeViz     `json:"nodes"`
		Relations []relationViz `json:"relations"`
	}

	data := vizData{
		Nodes:     make([]nodeViz, 0, len(v.Nodes)),
		Relations: make([]relationViz, 0, len(v.Relations)),
	}
	for _, n := range v.Nodes {
		pos := v.Positions[n.Name]
		attrs := n.Fields()
		delete(attrs, "type")
		if len(attrs) == 0 {
			attrs = nil
		}
		data.Nodes = append(data.Nodes, nodeViz{
			Name:       n.Name,
			Type:       string(n.Type),
			Attributes: attrs,
			X:          pos.X,
			Y:          pos.Y,
		})
	}
	for _, r := range v.Relations {
		data.Relations = append(data.Relations, relationViz{Source: r.Source, Label: r.Label, Target: r.Target})
	}
	return json.Marshal(data)
}

// Graphviz styling per node type and relation label.
var (
	nodeShapes = map[knowledge.NodeType]string{
		knowledge.TypeCategory:  `shape=box, style="rounded,filled", fillcolor="#d0e1f9"`,
		knowledge.TypeDisease:   `shape=ellipse, style=filled, fillcolor="#f9d0d0"`,
		knowledge.TypeSymptom:   `shape=note, style=filled, fillcolor="#fdf3c4"`,
		knowledge.TypeTreatment: `shape=component, style=filled, fillcolor="#d4f0d4"`,
	}
	edgeStyles = map[string]string{
		knowledge.LabelSubtypeOf: `style=solid, penwidth=2`,
		knowledge.LabelHasSymptom:  `style=dotted`,
		knowledge.LabelTreatedBy:   `style=bold, color="#2e7d32"`,
	}
)

// pointsPerInch converts canvas units to Graphviz inches.
const pointsPerInch = 72.0

// WriteDOT writes the visualization as a Graphviz digraph. Positions are
// pinned ("pos" with "!") so `neato -n` reproduces the layout; `dot` ignores
// them and lays the graph out itself.
func (v *Visualization) WriteDOT(w io.Writer, config *LayoutConfig) error {
	positions := normalizePositions(v.Positions, config.Width, config.Height, config.Padding)

	var b strings.Builder
	b.WriteString("digraph semnet {\n")
	b.WriteString("  rankdir=BT;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=9];\n")

	for _, n := range v.Nodes {
		attrs := []string{"label=" + dotQuote(n.Name)}
		if shape, ok := nodeShapes[n.Type]; ok {
			attrs = append(attrs, shape)
		}
		if pos, ok := positions[n.Name]; ok {
			// Graphviz y grows upwards
			attrs = append(attrs, fmt.Sprintf(`pos="%.1f,%.1f!"`, pos.X/pointsPerInch, (config.Height-pos.Y)/pointsPerInch))
		}
		fmt.Fprintf(&b, "  %s [%s];\n", dotQuote(n.Name), strings.Join(attrs, ", "))
	}
	for _, r := range v.Relations {
		attrs := []string{"label=" + dotQuote(r.Label)}
		if style, ok := edgeStyles[r.Label]; ok {
			attrs = append(attrs, style)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotQuote(r.Source), dotQuote(r.Target), strings.Join(attrs, ", "))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func dotQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}
