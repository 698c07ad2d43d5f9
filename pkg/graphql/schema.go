// Package graphql exposes the inference engine over GraphQL. Each query field
// maps to one engine operation and returns its result together with the
// reasoning trace.
package graphql

import (
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// MaxConnectionDepth caps the maxDepth argument of findConnection.
const MaxConnectionDepth = 10

var nameArg = graphql.FieldConfigArgument{
	"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
}

func stringArg(name string) *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{
		Type:        graphql.NewNonNull(graphql.String),
		Description: name,
	}
}

// GenerateSchema builds the query schema over engine.
func GenerateSchema(engine *inference.Engine) (graphql.Schema, error) {
	if engine == nil {
		return graphql.Schema{}, fmt.Errorf("engine is required")
	}
	store := engine.Store()

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"node": &graphql.Field{
				Type: nodeType,
				Args: nameArg,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					n, ok := store.Lookup(p.Args["name"].(string))
					if !ok {
						return nil, nil
					}
					return nodeValue(n), nil
				},
			},
			"nodes": &graphql.Field{
				Type: graphql.NewList(nodeType),
				Args: graphql.FieldConfigArgument{
					"type": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					typ, _ := p.Args["type"].(string)
					var out []map[string]any
					for _, n := range store.Nodes() {
						if typ == "" || string(n.Type) == typ {
							out = append(out, nodeValue(n))
						}
					}
					return out, nil
				},
			},
			"relations": &graphql.Field{
				Type: graphql.NewList(relationType),
				Args: graphql.FieldConfigArgument{
					"label": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					rels := store.Relations()
					if label, _ := p.Args["label"].(string); label != "" {
						rels = store.RelationsByLabel(label)
					}
					out := make([]map[string]any, len(rels))
					for i, r := range rels {
						out[i] = relationValue(r)
					}
					return out, nil
				},
			},
			"isSubtypeOf": &graphql.Field{
				Type: subtypeResultType,
				Args: graphql.FieldConfigArgument{
					"concept":  stringArg("Concept to test"),
					"ancestor": stringArg("Candidate ancestor"),
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					ok, t := engine.IsSubtypeOf(p.Args["concept"].(string), p.Args["ancestor"].(string))
					return map[string]any{"result": ok, "trace": traceValue(t)}, nil
				},
			},
			"symptoms": &graphql.Field{
				Type: namesResultType,
				Args: graphql.FieldConfigArgument{"disease": stringArg("Disease name")},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					names, t := engine.Symptoms(p.Args["disease"].(string))
					return map[string]any{"names": names, "trace": traceValue(t)}, nil
				},
			},
			"treatments": &graphql.Field{
				Type: namesResultType,
				Args: graphql.FieldConfigArgument{"disease": stringArg("Disease name")},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					names, t := engine.Treatments(p.Args["disease"].(string))
					return map[string]any{"names": names, "trace": traceValue(t)}, nil
				},
			},
			"diagnose": &graphql.Field{
				Type: diagnosisResultType,
				Args: graphql.FieldConfigArgument{
					"symptoms": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
					},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					raw, _ := p.Args["symptoms"].([]any)
					observed := make([]string, 0, len(raw))
					for _, v := range raw {
						if s, ok := v.(string); ok {
							observed = append(observed, s)
						}
					}
					results, t := engine.Diagnose(observed)
					out := make([]map[string]any, len(results))
					for i, d := range results {
						out[i] = map[string]any{
							"disease":    d.Disease,
							"confidence": d.Confidence,
							"matched":    d.Matched,
							"total":      d.Total,
						}
					}
					return map[string]any{"results": out, "trace": traceValue(t)}, nil
				},
			},
			"diseasesByCategory": &graphql.Field{
				Type: namesResultType,
				Args: graphql.FieldConfigArgument{"category": stringArg("Category name")},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					names, t := engine.DiseasesByCategory(p.Args["category"].(string))
					return map[string]any{"names": names, "trace": traceValue(t)}, nil
				},
			},
			"relatedInfo": &graphql.Field{
				Type: conceptResultType,
				Args: graphql.FieldConfigArgument{"concept": stringArg("Concept name")},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					info, t := engine.RelatedInfo(p.Args["concept"].(string))
					v := map[string]any{
						"found":    info.Node.Exists(),
						"outgoing": groupsValue(info.Outgoing),
						"incoming": groupsValue(info.Incoming),
						"trace":    traceValue(t),
					}
					if info.Node.Exists() {
						v["node"] = nodeValue(info.Node)
					}
					return v, nil
				},
			},
			"findConnection": &graphql.Field{
				Type: connectionResultType,
				Args: graphql.FieldConfigArgument{
					"from": stringArg("Start concept"),
					"to":   stringArg("End concept"),
					"maxDepth": &graphql.ArgumentConfig{
						Type:         graphql.Int,
						DefaultValue: knowledge.DefaultMaxDepth,
					},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					depth, _ := p.Args["maxDepth"].(int)
					if depth < 1 || depth > MaxConnectionDepth {
						return nil, fmt.Errorf("maxDepth must be between 1 and %d, got %d", MaxConnectionDepth, depth)
					}
					paths, t := engine.FindConnectionDepth(p.Args["from"].(string), p.Args["to"].(string), depth)
					out := make([]map[string]any, len(paths))
					for i, path := range paths {
						out[i] = pathValue(path)
					}
					return map[string]any{"paths": out, "trace": traceValue(t)}, nil
				},
			},
			"statistics": &graphql.Field{
				Type: statisticsType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					stats := store.Statistics()
					byType := make(map[string]int, len(stats.NodesByType))
					for k, v := range stats.NodesByType {
						byType[string(k)] = v
					}
					return map[string]any{
						"nodes":            stats.Nodes,
						"relations":        stats.Relations,
						"nodesByType":      counts(byType),
						"relationsByLabel": counts(stats.RelationsByLabel),
					}, nil
				},
			},
			"lastTrace": &graphql.Field{
				Type: traceType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return traceValue(engine.LastTrace()), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// counts turns a map into key-sorted Count objects.
func counts(m map[string]int) []map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]any, len(keys))
	for i, k := range keys {
		out[i] = map[string]any{"key": k, "count": m[k]}
	}
	return out
}
