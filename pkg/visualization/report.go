package visualization

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

const (
	ruleWidth  = 70
	boxWidth   = 68
	noneMarker = "(none)"
)

// Order in which node types and relation labels appear in listings. Types
// and labels outside these lists follow in sorted order.
var (
	typeOrder  = []knowledge.NodeType{knowledge.TypeCategory, knowledge.TypeDisease, knowledge.TypeSymptom, knowledge.TypeTreatment}
	labelOrder = []string{knowledge.LabelSubtypeOf, knowledge.LabelHasSymptom, knowledge.LabelTreatedBy}

	typeTitles = map[knowledge.NodeType]string{
		knowledge.TypeCategory:  "CATEGORIES",
		knowledge.TypeDisease:   "DISEASES",
		knowledge.TypeSymptom:   "SYMPTOMS",
		knowledge.TypeTreatment: "TREATMENTS",
	}
	labelArrows = map[string]string{
		knowledge.LabelSubtypeOf:  "───>",
		knowledge.LabelHasSymptom: "···>",
		knowledge.LabelTreatedBy:  "═══>",
	}
)

// Reporter renders plain-text views of a knowledge base.
type Reporter struct {
	store *knowledge.Store
}

// NewReporter creates a reporter over store.
func NewReporter(store *knowledge.Store) *Reporter {
	return &Reporter{store: store}
}

func header(b *strings.Builder, title string) {
	rule := strings.Repeat("=", ruleWidth)
	b.WriteString(rule + "\n")
	b.WriteString(title + "\n")
	b.WriteString(rule + "\n\n")
}

// Roots returns the categories that are not a subtype of anything.
func (r *Reporter) Roots() []string {
	var roots []string
	for _, name := range r.store.NodesByType(knowledge.TypeCategory) {
		if len(r.store.TargetsFrom(name, knowledge.LabelSubtypeOf)) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}

// Hierarchy draws the subtype tree below every root category.
func (r *Reporter) Hierarchy() string {
	var b strings.Builder
	header(&b, "CATEGORY AND DISEASE HIERARCHY")

	roots := r.Roots()
	for i, root := range roots {
		r.tree(&b, root, "", i == len(roots)-1, map[string]bool{})
	}
	b.WriteString("\n")
	return b.String()
}

func (r *Reporter) tree(b *strings.Builder, name, prefix string, last bool, onPath map[string]bool) {
	connector := "├── "
	extension := "│   "
	if last {
		connector = "└── "
		extension = "    "
	}
	b.WriteString(prefix + connector + r.describe(name) + "\n")

	if onPath[name] {
		return
	}
	onPath[name] = true
	defer delete(onPath, name)

	var children []string
	seen := make(map[string]bool)
	for _, rel := range r.store.RelationsTo(name) {
		if rel.Label == knowledge.LabelSubtypeOf && !seen[rel.Source] {
			seen[rel.Source] = true
			children = append(children, rel.Source)
		}
	}
	sort.Strings(children)
	for i, child := range children {
		r.tree(b, child, prefix+extension, i == len(children)-1, onPath)
	}
}

func (r *Reporter) describe(name string) string {
	n := r.store.Get(name)
	switch n.Type {
	case knowledge.TypeCategory:
		return "[Category] " + name
	case knowledge.TypeDisease:
		severity := n.Severity
		if severity == "" {
			severity = "unknown"
		}
		return fmt.Sprintf("[Disease] %s (severity: %s)", name, severity)
	}
	return name
}

// DiseaseSymptoms lists every disease with its symptoms.
func (r *Reporter) DiseaseSymptoms() string {
	return r.diseaseTargets("RELATIONS: DISEASES → SYMPTOMS", knowledge.LabelHasSymptom)
}

// DiseaseTreatments lists every disease with its treatments.
func (r *Reporter) DiseaseTreatments() string {
	return r.diseaseTargets("RELATIONS: DISEASES → TREATMENTS", knowledge.LabelTreatedBy)
}

func (r *Reporter) diseaseTargets(title, label string) string {
	var b strings.Builder
	header(&b, title)

	diseases := r.store.NodesByType(knowledge.TypeDisease)
	sort.Strings(diseases)
	for _, disease := range diseases {
		b.WriteString("┌─ " + disease + "\n")
		targets := r.store.TargetsFrom(disease, label)
		sort.Strings(targets)
		if len(targets) == 0 {
			b.WriteString("│  └── " + noneMarker + "\n")
		}
		for i, t := range targets {
			connector := "├──"
			if i == len(targets)-1 {
				connector = "└──"
			}
			fmt.Fprintf(&b, "│  %s %s\n", connector, t)
		}
		b.WriteString("│\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Statistics shows node and relation counts as bar charts.
func (r *Reporter) Statistics() string {
	var b strings.Builder
	header(&b, "KNOWLEDGE BASE STATISTICS")

	st := r.store.Statistics()
	fmt.Fprintf(&b, "Total nodes: %d\n\n", st.Nodes)
	b.WriteString("Nodes by type:\n")
	types := make([]string, 0, len(st.NodesByType))
	for t := range st.NodesByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		count := st.NodesByType[knowledge.NodeType(t)]
		fmt.Fprintf(&b, "  %-20s │ %s %d\n", t, strings.Repeat("█", count*2), count)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Total relations: %d\n\n", st.Relations)
	b.WriteString("Relations by label:\n")
	labels := make([]string, 0, len(st.RelationsByLabel))
	for l := range st.RelationsByLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		count := st.RelationsByLabel[l]
		fmt.Fprintf(&b, "  %-25s │ %s %d\n", l, strings.Repeat("█", count/2), count)
	}
	b.WriteString("\n")
	return b.String()
}

// NodeList lists every node with its attributes, grouped by type.
func (r *Reporter) NodeList() string {
	var b strings.Builder
	header(&b, "SEMANTIC NETWORK NODES")

	for _, typ := range r.types() {
		names := r.store.NodesByType(typ)
		sort.Strings(names)
		title, ok := typeTitles[typ]
		if !ok {
			title = strings.ToUpper(string(typ))
		}
		b.WriteString("\n" + title + ":\n")
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n")

		for _, name := range names {
			n := r.store.Get(name)
			b.WriteString("\n• " + name + "\n")
			if n.Description != "" {
				b.WriteString("  Description: " + n.Description + "\n")
			}
			fields := n.Fields()
			keys := make([]string, 0, len(fields))
			for k := range fields {
				if k != "type" && k != "description" {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "  %s: %v\n", k, fields[k])
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}

// types returns the node types present in the store in display order.
func (r *Reporter) types() []knowledge.NodeType {
	present := r.store.Statistics().NodesByType
	out := make([]knowledge.NodeType, 0, len(present))
	for _, t := range typeOrder {
		if present[t] > 0 {
			out = append(out, t)
			delete(present, t)
		}
	}
	rest := make([]string, 0, len(present))
	for t := range present {
		rest = append(rest, string(t))
	}
	sort.Strings(rest)
	for _, t := range rest {
		out = append(out, knowledge.NodeType(t))
	}
	return out
}

// GraphStructure lists every relation grouped by label, with arrows.
func (r *Reporter) GraphStructure() string {
	var b strings.Builder
	header(&b, "SEMANTIC NETWORK STRUCTURE (GRAPH)")

	b.WriteString("Legend:\n")
	for _, l := range labelOrder {
		fmt.Fprintf(&b, "  %s %s\n", labelArrows[l], l)
	}
	b.WriteString("\n")

	groups := make(map[string][][2]string)
	for _, rel := range r.store.Relations() {
		groups[rel.Label] = append(groups[rel.Label], [2]string{rel.Source, rel.Target})
	}

	labels := append([]string(nil), labelOrder...)
	var extra []string
	for l := range groups {
		if _, ok := labelArrows[l]; !ok {
			extra = append(extra, l)
		}
	}
	sort.Strings(extra)
	labels = append(labels, extra...)

	for _, l := range labels {
		pairs, ok := groups[l]
		if !ok {
			continue
		}
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i][0] != pairs[j][0] {
				return pairs[i][0] < pairs[j][0]
			}
			return pairs[i][1] < pairs[j][1]
		})
		arrow, ok := labelArrows[l]
		if !ok {
			arrow = "--->"
		}
		b.WriteString("\n" + strings.ToUpper(l) + ":\n")
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
		for _, p := range pairs {
			fmt.Fprintf(&b, "  %-30s %s %s\n", p[0], arrow, p[1])
		}
	}
	b.WriteString("\n")
	return b.String()
}

// FullReport joins every section under a boxed title.
func (r *Reporter) FullReport() string {
	var b strings.Builder
	b.WriteString("╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString("║" + strings.Repeat(" ", boxWidth) + "║\n")
	b.WriteString("║" + center("SEMANTIC NETWORK REPORT", boxWidth) + "║\n")
	b.WriteString("║" + center("Medical diagnosis expert system", boxWidth) + "║\n")
	b.WriteString("║" + strings.Repeat(" ", boxWidth) + "║\n")
	b.WriteString("╚" + strings.Repeat("═", boxWidth) + "╝\n")

	sections := []string{
		r.Statistics(),
		r.Hierarchy(),
		r.DiseaseSymptoms(),
		r.DiseaseTreatments(),
		r.NodeList(),
		r.GraphStructure(),
	}
	for _, s := range sections {
		b.WriteString("\n\n")
		b.WriteString(s)
	}
	return b.String()
}

// WriteReport writes the full report to path.
func (r *Reporter) WriteReport(path string) error {
	if err := os.WriteFile(path, []byte(r.FullReport()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
