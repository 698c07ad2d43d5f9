package knowledge

import (
	"sync"
)

// Store owns the node table and the relation list.
//
// Nodes keep the position of their first insertion, so NodesByType and Names
// are deterministic. Relations are indexed by source and target; both indexes
// hold positions into the relation list in insertion order, so lookups return
// the same sequence a linear scan would.
//
// A Store is loaded by a single goroutine and may then be read concurrently.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	order     []string
	relations []Relation
	outgoing  map[string][]int
	incoming  map[string][]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]int),
		incoming: make(map[string][]int),
	}
}

// AddNode inserts or overwrites the node called name. An empty type becomes
// TypeConcept. It never fails.
func (s *Store) AddNode(name string, typ NodeType, attrs Attributes) {
	if typ == "" {
		typ = TypeConcept
	}
	n := &Node{Name: name, Type: typ, Attributes: attrs.clone()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[name]; !ok {
		s.order = append(s.order, name)
	}
	s.nodes[name] = n
}

// AddRelation appends source -label-> target. Both endpoints must already be
// nodes; otherwise the store is left untouched and the error wraps
// ErrUnknownEndpoint.
func (s *Store) AddRelation(source, label, target string) error {
	r := Relation{Source: source, Label: label, Target: target}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[source]; !ok {
		return UnknownEndpointError(r, source)
	}
	if _, ok := s.nodes[target]; !ok {
		return UnknownEndpointError(r, target)
	}

	idx := len(s.relations)
	s.relations = append(s.relations, r)
	s.outgoing[source] = append(s.outgoing[source], idx)
	s.incoming[target] = append(s.incoming[target], idx)
	return nil
}

// Get returns a copy of the node, or the zero Node if name is absent.
func (s *Store) Get(name string) Node {
	n, _ := s.Lookup(name)
	return n
}

// Lookup returns a copy of the node and whether it exists.
func (s *Store) Lookup(name string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[name]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// Has reports whether a node called name exists.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[name]
	return ok
}

// NodeCount returns the number of distinct node names.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// RelationCount returns the number of relations, duplicates included.
func (s *Store) RelationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.relations)
}

// Names returns every node name in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Nodes returns copies of every node in insertion order.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.nodes[name].Clone())
	}
	return out
}

// Relations returns the full relation list in insertion order.
func (s *Store) Relations() []Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Relation, len(s.relations))
	copy(out, s.relations)
	return out
}
