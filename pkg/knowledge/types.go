// Package knowledge holds the semantic network: named, typed concepts joined
// by labeled directed relations.
//
// A Store is filled once through AddNode and AddRelation and is read-only
// afterwards. Node names are unique and re-adding a name overwrites the node
// in place. Relations are kept as an ordered list; adding the same triple twice
// yields two entries and every lookup and traversal sees both.
package knowledge

import (
	"fmt"
)

// NodeType tags what kind of concept a node is. The set is open: values other
// than the constants below are stored verbatim.
type NodeType string

const (
	TypeConcept   NodeType = "concept"
	TypeCategory  NodeType = "category"
	TypeDisease   NodeType = "disease"
	TypeSymptom   NodeType = "symptom"
	TypeTreatment NodeType = "treatment"
)

// Known reports whether t is one of the types the engine gives meaning to.
func (t NodeType) Known() bool {
	switch t {
	case TypeConcept, TypeCategory, TypeDisease, TypeSymptom, TypeTreatment:
		return true
	}
	return false
}

// Relation labels with special meaning to the inference engine.
const (
	LabelSubtypeOf  = "is-subtype-of"
	LabelHasSymptom = "has-symptom"
	LabelTreatedBy  = "treated-by"
)

// Attributes are the optional facts attached to a node. Severity, Contagious
// and Description cover the medical dataset; anything else goes to Extra.
type Attributes struct {
	Severity    string
	Contagious  *bool
	Description string
	Extra       map[string]any
}

// Empty reports whether no attribute is set.
func (a Attributes) Empty() bool {
	return a.Severity == "" && a.Contagious == nil && a.Description == "" && len(a.Extra) == 0
}

func (a Attributes) clone() Attributes {
	c := Attributes{
		Severity:    a.Severity,
		Description: a.Description,
	}
	if a.Contagious != nil {
		v := *a.Contagious
		c.Contagious = &v
	}
	if a.Extra != nil {
		c.Extra = make(map[string]any, len(a.Extra))
		for k, v := range a.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Bool returns a pointer to b, for filling Attributes.Contagious.
func Bool(b bool) *bool {
	return &b
}

// Node is a named concept. The zero Node (empty Type) stands for "no such node".
type Node struct {
	Name string
	Type NodeType
	Attributes
}

// Exists reports whether n came from the store rather than a failed lookup.
func (n Node) Exists() bool {
	return n.Type != ""
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	return Node{Name: n.Name, Type: n.Type, Attributes: n.Attributes.clone()}
}

// Fields flattens the node into the attribute mapping used by the exchange
// document. The "type" key is always present.
func (n Node) Fields() map[string]any {
	m := make(map[string]any, 4+len(n.Extra))
	for k, v := range n.Extra {
		m[k] = v
	}
	m["type"] = string(n.Type)
	if n.Severity != "" {
		m["severity"] = n.Severity
	}
	if n.Contagious != nil {
		m["contagious"] = *n.Contagious
	}
	if n.Description != "" {
		m["description"] = n.Description
	}
	return m
}

// NodeFromFields is the inverse of Node.Fields. Known keys holding a value of
// the wrong kind are kept in Extra rather than dropped.
func NodeFromFields(name string, fields map[string]any) Node {
	n := Node{Name: name, Type: TypeConcept}
	for k, v := range fields {
		switch k {
		case "type":
			if s, ok := v.(string); ok && s != "" {
				n.Type = NodeType(s)
				continue
			}
		case "severity":
			if s, ok := v.(string); ok {
				n.Severity = s
				continue
			}
		case "contagious":
			if b, ok := v.(bool); ok {
				n.Contagious = Bool(b)
				continue
			}
		case "description":
			if s, ok := v.(string); ok {
				n.Description = s
				continue
			}
		}
		if n.Extra == nil {
			n.Extra = make(map[string]any)
		}
		n.Extra[k] = v
	}
	return n
}

// Relation is a labeled directed edge between two node names.
type Relation struct {
	Source string
	Label  string
	Target string
}

func (r Relation) String() string {
	return fmt.Sprintf("%s -> %s -> %s", r.Source, r.Label, r.Target)
}

// Triple returns the relation as a [source, label, target] array.
func (r Relation) Triple() [3]string {
	return [3]string{r.Source, r.Label, r.Target}
}

// Statistics summarises a store.
type Statistics struct {
	Nodes            int
	Relations        int
	NodesByType      map[NodeType]int
	RelationsByLabel map[string]int
}
