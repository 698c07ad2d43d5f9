package knowledge

// RelationsFrom returns the relations whose source is name, in insertion order.
func (s *Store) RelationsFrom(name string) []Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.outgoing[name])
}

// RelationsTo returns the relations whose target is name, in insertion order.
func (s *Store) RelationsTo(name string) []Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.incoming[name])
}

// RelationsByLabel returns the relations carrying label, in insertion order.
func (s *Store) RelationsByLabel(label string) []Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Relation, 0)
	for _, r := range s.relations {
		if r.Label == label {
			out = append(out, r)
		}
	}
	return out
}

// TargetsFrom returns the targets of name's outgoing relations labeled label.
func (s *Store) TargetsFrom(name, label string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for _, idx := range s.outgoing[name] {
		if r := s.relations[idx]; r.Label == label {
			out = append(out, r.Target)
		}
	}
	return out
}

// NodesByType returns the names of nodes of type typ in insertion order.
func (s *Store) NodesByType(typ NodeType) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for _, name := range s.order {
		if s.nodes[name].Type == typ {
			out = append(out, name)
		}
	}
	return out
}

// Statistics counts nodes per type and relations per label.
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Statistics{
		Nodes:            len(s.order),
		Relations:        len(s.relations),
		NodesByType:      make(map[NodeType]int),
		RelationsByLabel: make(map[string]int),
	}
	for _, name := range s.order {
		st.NodesByType[s.nodes[name].Type]++
	}
	for _, r := range s.relations {
		st.RelationsByLabel[r.Label]++
	}
	return st
}

func (s *Store) collect(indexes []int) []Relation {
	out := make([]Relation, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, s.relations[idx])
	}
	return out
}
