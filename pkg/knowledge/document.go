package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the exchange form of a store:
//
//	{"nodes": {name: {"type": ..., attr: value}}, "relations": [[source, label, target], ...]}
//
// Nodes are kept in store order. The JSON and YAML encodings write the nodes
// mapping in that order and read it back in document order, so a round trip
// preserves NodesByType ordering as well as the relation list.
type Document struct {
	Nodes     []Node
	Relations []Relation
}

// Export snapshots the store into a Document.
func (s *Store) Export() Document {
	return Document{
		Nodes:     s.Nodes(),
		Relations: s.Relations(),
	}
}

// Import builds a new store from doc. It accepts every node AddNode accepts,
// so Import(s.Export()) reproduces any store. A relation naming an absent
// node aborts the import with an error wrapping ErrUnknownEndpoint.
func Import(doc Document) (*Store, error) {
	s := NewStore()
	for _, n := range doc.Nodes {
		s.AddNode(n.Name, n.Type, n.Attributes)
	}
	for i, r := range doc.Relations {
		if err := s.AddRelation(r.Source, r.Label, r.Target); err != nil {
			return nil, fmt.Errorf("import relation %d: %w", i, err)
		}
	}
	return s, nil
}

// MarshalJSON writes the relation as a three-element array.
func (r Relation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Triple())
}

// UnmarshalJSON reads a three-element array.
func (r *Relation) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: relation: %v", ErrInvalidDocument, err)
	}
	return r.setParts(parts)
}

// MarshalYAML writes the relation as a three-element sequence.
func (r Relation) MarshalYAML() (any, error) {
	return []string{r.Source, r.Label, r.Target}, nil
}

// UnmarshalYAML reads a three-element sequence.
func (r *Relation) UnmarshalYAML(value *yaml.Node) error {
	var parts []string
	if err := value.Decode(&parts); err != nil {
		return fmt.Errorf("%w: relation at line %d: %v", ErrInvalidDocument, value.Line, err)
	}
	return r.setParts(parts)
}

func (r *Relation) setParts(parts []string) error {
	if len(parts) != 3 {
		return fmt.Errorf("%w: relation must have 3 elements, got %d", ErrInvalidDocument, len(parts))
	}
	r.Source, r.Label, r.Target = parts[0], parts[1], parts[2]
	return nil
}

// MarshalJSON writes nodes as an object in store order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"nodes":{`)
	for i, n := range d.Nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(n.Fields())
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`},"relations":`)

	rels := d.Relations
	if rels == nil {
		rels = []Relation{}
	}
	data, err := json.Marshal(rels)
	if err != nil {
		return nil, err
	}
	buf.Write(data)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the nodes object keeping key order.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes     json.RawMessage `json:"nodes"`
		Relations []Relation      `json:"relations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Relations = raw.Relations
	d.Nodes = nil

	if len(raw.Nodes) == 0 || string(raw.Nodes) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Nodes))
	if tok, err := dec.Token(); err != nil {
		return err
	} else if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return NewError("decode").Document().Cause(fmt.Errorf("%w: nodes must be an object", ErrInvalidDocument)).Err()
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return NewError("decode").Node(name).Cause(fmt.Errorf("%w: %v", ErrInvalidDocument, err)).Err()
		}
		fields, err := DecodeFields(raw)
		if err != nil {
			return NewError("decode").Node(name).Cause(fmt.Errorf("%w: %v", ErrInvalidDocument, err)).Err()
		}
		d.Nodes = append(d.Nodes, NodeFromFields(name, fields))
	}
	_, err := dec.Token()
	return err
}

// DecodeFields reads a JSON attribute object. Whole numbers come back as int
// (int64 when they overflow int) and other numbers as float64, matching what
// the YAML decoder produces for the same values.
func DecodeFields(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		fields[k] = fromJSONNumbers(v)
	}
	return fields, nil
}

func fromJSONNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			if int64(int(i)) == i {
				return int(i)
			}
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = fromJSONNumbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = fromJSONNumbers(e)
		}
	}
	return v
}

// MarshalYAML builds a mapping node so the nodes keep store order.
func (d Document) MarshalYAML() (any, error) {
	nodes := &yaml.Node{Kind: yaml.MappingNode}
	for _, n := range d.Nodes {
		var val yaml.Node
		if err := val.Encode(n.Fields()); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		nodes.Content = append(nodes.Content, yamlString(n.Name), &val)
	}

	rels := d.Relations
	if rels == nil {
		rels = []Relation{}
	}
	var relNode yaml.Node
	if err := relNode.Encode(rels); err != nil {
		return nil, err
	}

	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			yamlString("nodes"), nodes,
			yamlString("relations"), &relNode,
		},
	}, nil
}

// UnmarshalYAML reads the nodes mapping keeping key order.
func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: document must be a mapping (line %d)", ErrInvalidDocument, value.Line)
	}
	d.Nodes = nil
	d.Relations = nil

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch key.Value {
		case "nodes":
			if val.Kind != yaml.MappingNode {
				return fmt.Errorf("%w: nodes must be a mapping (line %d)", ErrInvalidDocument, val.Line)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				name := val.Content[j].Value
				var fields map[string]any
				if err := val.Content[j+1].Decode(&fields); err != nil {
					return NewError("decode").Node(name).Cause(fmt.Errorf("%w: %v", ErrInvalidDocument, err)).Err()
				}
				d.Nodes = append(d.Nodes, NodeFromFields(name, fields))
			}
		case "relations":
			if err := val.Decode(&d.Relations); err != nil {
				return err
			}
		}
	}
	return nil
}

func yamlString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
