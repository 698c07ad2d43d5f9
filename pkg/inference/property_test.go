package inference

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// hierarchyEngine builds an engine over nodeCount nodes with hierarchy edges
// taken pairwise from ends. Cycles and self loops are allowed.
func hierarchyEngine(nodeCount int, ends []int) *Engine {
	s := knowledge.NewStore()
	for i := 0; i < nodeCount; i++ {
		s.AddNode(fmt.Sprintf("c%d", i), knowledge.TypeCategory, knowledge.Attributes{})
	}
	for i := 0; i+1 < len(ends); i += 2 {
		_ = s.AddRelation(
			fmt.Sprintf("c%d", ends[i]%nodeCount),
			knowledge.LabelSubtypeOf,
			fmt.Sprintf("c%d", ends[i+1]%nodeCount),
		)
	}
	return New(s)
}

func TestSubtypeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every node is a subtype of itself", prop.ForAll(
		func(nodeCount int, ends []int, pick int) bool {
			e := hierarchyEngine(nodeCount, ends)
			name := fmt.Sprintf("c%d", pick%nodeCount)
			ok, _ := e.IsSubtypeOf(name, name)
			return ok
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.IntRange(0, 40),
	))

	properties.Property("subtype is transitive", prop.ForAll(
		func(nodeCount int, ends []int) bool {
			e := hierarchyEngine(nodeCount, ends)
			reach := make([][]bool, nodeCount)
			for a := 0; a < nodeCount; a++ {
				reach[a] = make([]bool, nodeCount)
				for b := 0; b < nodeCount; b++ {
					reach[a][b], _ = e.IsSubtypeOf(fmt.Sprintf("c%d", a), fmt.Sprintf("c%d", b))
				}
			}
			for a := 0; a < nodeCount; a++ {
				for b := 0; b < nodeCount; b++ {
					for c := 0; c < nodeCount; c++ {
						if reach[a][b] && reach[b][c] && !reach[a][c] {
							return false
						}
					}
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.Property("diagnosis is sorted with exact ratios", prop.ForAll(
		func(symptomCount int, links []int, observed []int) bool {
			s := knowledge.NewStore()
			for i := 0; i < symptomCount; i++ {
				s.AddNode(fmt.Sprintf("s%d", i), knowledge.TypeSymptom, knowledge.Attributes{})
			}
			for d := 0; d < 4; d++ {
				s.AddNode(fmt.Sprintf("d%d", d), knowledge.TypeDisease, knowledge.Attributes{})
			}
			for i, l := range links {
				_ = s.AddRelation(fmt.Sprintf("d%d", i%4), knowledge.LabelHasSymptom, fmt.Sprintf("s%d", l%symptomCount))
			}
			names := make([]string, len(observed))
			for i, o := range observed {
				names[i] = fmt.Sprintf("s%d", o%symptomCount)
			}

			results, _ := New(s).Diagnose(names)
			for i, r := range results {
				if r.Total == 0 || len(r.Matched) == 0 {
					return false
				}
				if r.Confidence != float64(len(r.Matched))/float64(r.Total) {
					return false
				}
				if i > 0 && results[i-1].Confidence < r.Confidence {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.SliceOf(gen.IntRange(0, 30)),
	))

	properties.TestingRun(t)
}
