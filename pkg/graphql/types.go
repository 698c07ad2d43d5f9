package graphql

import (
	"encoding/json"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

var nodeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"type":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"severity":    &graphql.Field{Type: graphql.String},
		"contagious":  &graphql.Field{Type: graphql.Boolean},
		"description": &graphql.Field{Type: graphql.String},
		// Extension attributes as a JSON object string
		"extra": &graphql.Field{Type: graphql.String},
	},
})

var relationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Relation",
	Fields: graphql.Fields{
		"source": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"label":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"target": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var pairType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Pair",
	Fields: graphql.Fields{
		"key":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"value": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var stepType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Step",
	Fields: graphql.Fields{
		"label": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"kind":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"text":  &graphql.Field{Type: graphql.String},
		"items": &graphql.Field{Type: graphql.NewList(graphql.String)},
		"pairs": &graphql.Field{Type: graphql.NewList(pairType)},
	},
})

var traceType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Trace",
	Fields: graphql.Fields{
		"queryId":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"kind":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"durationMs": &graphql.Field{Type: graphql.Float},
		"failed":     &graphql.Field{Type: graphql.Boolean},
		"steps":      &graphql.Field{Type: graphql.NewList(stepType)},
	},
})

var diagnosisType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Diagnosis",
	Fields: graphql.Fields{
		"disease":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"confidence": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"matched":    &graphql.Field{Type: graphql.NewList(graphql.String)},
		"total":      &graphql.Field{Type: graphql.Int},
	},
})

var labelGroupType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LabelGroup",
	Fields: graphql.Fields{
		"label": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"names": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var pathType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Path",
	Fields: graphql.Fields{
		"relations": &graphql.Field{Type: graphql.NewList(relationType)},
		"nodes":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"text":      &graphql.Field{Type: graphql.String},
	},
})

var countType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Count",
	Fields: graphql.Fields{
		"key":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"count": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var statisticsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Statistics",
	Fields: graphql.Fields{
		"nodes":            &graphql.Field{Type: graphql.Int},
		"relations":        &graphql.Field{Type: graphql.Int},
		"nodesByType":      &graphql.Field{Type: graphql.NewList(countType)},
		"relationsByLabel": &graphql.Field{Type: graphql.NewList(countType)},
	},
})

// resultType builds "<name>Result { <field>: <typ>, trace: Trace }".
func resultType(name, field string, typ graphql.Output) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Result",
		Fields: graphql.Fields{
			field:   &graphql.Field{Type: typ},
			"trace": &graphql.Field{Type: traceType},
		},
	})
}

var (
	subtypeResultType    = resultType("Subtype", "result", graphql.NewNonNull(graphql.Boolean))
	namesResultType      = resultType("Names", "names", graphql.NewList(graphql.String))
	diagnosisResultType  = resultType("Diagnose", "results", graphql.NewList(diagnosisType))
	connectionResultType = resultType("Connection", "paths", graphql.NewList(pathType))
)

var conceptResultType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ConceptResult",
	Fields: graphql.Fields{
		"found":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"node":     &graphql.Field{Type: nodeType},
		"outgoing": &graphql.Field{Type: graphql.NewList(labelGroupType)},
		"incoming": &graphql.Field{Type: graphql.NewList(labelGroupType)},
		"trace":    &graphql.Field{Type: traceType},
	},
})

func nodeValue(n knowledge.Node) map[string]any {
	v := map[string]any{
		"name": n.Name,
		"type": string(n.Type),
	}
	if n.Severity != "" {
		v["severity"] = n.Severity
	}
	if n.Contagious != nil {
		v["contagious"] = *n.Contagious
	}
	if n.Description != "" {
		v["description"] = n.Description
	}
	if len(n.Extra) > 0 {
		if data, err := json.Marshal(n.Extra); err == nil {
			v["extra"] = string(data)
		}
	}
	return v
}

func relationValue(r knowledge.Relation) map[string]any {
	return map[string]any{"source": r.Source, "label": r.Label, "target": r.Target}
}

func payloadKind(k inference.PayloadKind) string {
	switch k {
	case inference.PayloadList:
		return "list"
	case inference.PayloadPairs:
		return "pairs"
	default:
		return "text"
	}
}

func traceValue(t *inference.Trace) map[string]any {
	if t == nil {
		return nil
	}
	steps := make([]map[string]any, len(t.Steps))
	for i, s := range t.Steps {
		step := map[string]any{
			"label": s.Label,
			"kind":  payloadKind(s.Payload.Kind),
		}
		switch s.Payload.Kind {
		case inference.PayloadList:
			step["items"] = s.Payload.Items
		case inference.PayloadPairs:
			pairs := make([]map[string]any, len(s.Payload.Pairs))
			for j, p := range s.Payload.Pairs {
				pairs[j] = map[string]any{"key": p.Key, "value": p.Value}
			}
			step["pairs"] = pairs
		default:
			step["text"] = s.Payload.Text
		}
		steps[i] = step
	}
	return map[string]any{
		"queryId":    t.QueryID,
		"kind":       string(t.Kind),
		"durationMs": float64(t.Duration.Microseconds()) / 1000,
		"failed":     t.Failed(),
		"steps":      steps,
	}
}

func groupsValue(groups []inference.LabelGroup) []map[string]any {
	out := make([]map[string]any, len(groups))
	for i, g := range groups {
		out[i] = map[string]any{"label": g.Label, "names": g.Names}
	}
	return out
}

func pathValue(p knowledge.Path) map[string]any {
	rels := make([]map[string]any, len(p))
	for i, r := range p {
		rels[i] = relationValue(r)
	}
	return map[string]any{
		"relations": rels,
		"nodes":     p.Nodes(),
		"text":      inference.FormatPath(p),
	}
}
