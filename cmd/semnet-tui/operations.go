package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-semnet/pkg/explain"
	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/visualization"
)

// operation is one menu entry. Prompt is empty for operations that take no
// input; run receives the raw input line.
type operation struct {
	title  string
	desc   string
	prompt string
	hint   string
	run    func(e *inference.Engine, input string) (string, error)
}

func (o operation) Title() string       { return o.title }
func (o operation) Description() string { return o.desc }
func (o operation) FilterValue() string { return o.title }

var errNoInput = errors.New("input required")

var operations = []operation{
	{
		title:  "Diagnose",
		desc:   "Rank diseases by observed symptoms",
		prompt: "Symptoms (comma separated): ",
		hint:   "Fever, Cough, ChestPain",
		run: func(e *inference.Engine, input string) (string, error) {
			observed := splitInput(input)
			if len(observed) == 0 {
				return "", errNoInput
			}
			results, _ := e.Diagnose(observed)
			return explain.New(e).Diagnosis(observed, results), nil
		},
	},
	{
		title:  "Subtype check",
		desc:   "Is X a subtype of Y?",
		prompt: "Concept, ancestor: ",
		hint:   "Flu, Disease",
		run: func(e *inference.Engine, input string) (string, error) {
			parts := splitInput(input)
			if len(parts) != 2 {
				return "", errors.New("enter exactly two concepts")
			}
			ok, trace := e.IsSubtypeOf(parts[0], parts[1])
			return explain.Subtype(parts[0], parts[1], ok, trace), nil
		},
	},
	{
		title:  "Symptoms",
		desc:   "Symptoms of a disease",
		prompt: "Disease: ",
		hint:   "Flu",
		run: func(e *inference.Engine, input string) (string, error) {
			return oneHop(e, input, "Symptoms", e.Symptoms)
		},
	},
	{
		title:  "Treatments",
		desc:   "Treatments of a disease",
		prompt: "Disease: ",
		hint:   "Pneumonia",
		run: func(e *inference.Engine, input string) (string, error) {
			return oneHop(e, input, "Treatments", e.Treatments)
		},
	},
	{
		title:  "Category",
		desc:   "Diseases in a category",
		prompt: "Category: ",
		hint:   "RespiratoryDisease",
		run: func(e *inference.Engine, input string) (string, error) {
			if input == "" {
				return "", errNoInput
			}
			names, trace := e.DiseasesByCategory(input)
			return explain.Why("Which diseases are a kind of "+input+"?", strings.Join(names, ", "), trace), nil
		},
	},
	{
		title:  "Concept info",
		desc:   "Attributes and relations of a concept",
		prompt: "Concept: ",
		hint:   "Fever",
		run: func(e *inference.Engine, input string) (string, error) {
			if input == "" {
				return "", errNoInput
			}
			info, _ := e.RelatedInfo(input)
			return explain.Concept(input, info), nil
		},
	},
	{
		title:  "Connection",
		desc:   "Relation chains between two concepts",
		prompt: "From, to: ",
		hint:   "Flu, Disease",
		run: func(e *inference.Engine, input string) (string, error) {
			parts := splitInput(input)
			if len(parts) != 2 {
				return "", errors.New("enter exactly two concepts")
			}
			paths, _ := e.FindConnection(parts[0], parts[1])
			var b strings.Builder
			fmt.Fprintf(&b, "Paths from %s to %s (%d):\n", parts[0], parts[1], len(paths))
			for i, p := range paths {
				fmt.Fprintf(&b, "  %d. %s\n", i+1, inference.FormatPath(p))
			}
			b.WriteString("\n")
			b.WriteString(explain.New(e).LastInference())
			return b.String(), nil
		},
	},
	{
		title: "Summary",
		desc:  "Knowledge base summary",
		run: func(e *inference.Engine, _ string) (string, error) {
			return explain.Summary(e.Store()), nil
		},
	},
	{
		title: "Hierarchy",
		desc:  "Category and disease tree",
		run: func(e *inference.Engine, _ string) (string, error) {
			return visualization.NewReporter(e.Store()).Hierarchy(), nil
		},
	},
	{
		title: "Full report",
		desc:  "Every section of the text report",
		run: func(e *inference.Engine, _ string) (string, error) {
			return visualization.NewReporter(e.Store()).FullReport(), nil
		},
	},
}

func oneHop(e *inference.Engine, disease, title string, query func(string) ([]string, *inference.Trace)) (string, error) {
	if disease == "" {
		return "", errNoInput
	}
	names, _ := query(disease)
	var b strings.Builder
	fmt.Fprintf(&b, "%s of %s:\n", title, disease)
	if len(names) == 0 {
		b.WriteString("  (none found)\n")
	}
	for _, n := range names {
		fmt.Fprintf(&b, "  • %s\n", n)
	}
	b.WriteString("\n")
	b.WriteString(explain.New(e).LastInference())
	return b.String(), nil
}

func splitInput(input string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// knownNames lists node names of typ for the input hint line.
func knownNames(e *inference.Engine, typ knowledge.NodeType) string {
	return strings.Join(e.Store().NodesByType(typ), ", ")
}
