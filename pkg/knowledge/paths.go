package knowledge

const (
	// DefaultMaxDepth bounds FindPaths when callers have no better limit.
	DefaultMaxDepth = 5
	// MaxAllowedDepth caps the path length; enumeration is exponential in
	// branching factor, so deeper searches are clamped.
	MaxAllowedDepth = 32
)

// Path is an ordered list of relations, each starting where the previous ended.
type Path []Relation

// Nodes returns the node names visited by the path, start first.
func (p Path) Nodes() []string {
	if len(p) == 0 {
		return nil
	}
	out := make([]string, 0, len(p)+1)
	out = append(out, p[0].Source)
	for _, r := range p {
		out = append(out, r.Target)
	}
	return out
}

// FindPaths enumerates every simple path from start to end that follows
// outgoing relations and has at most maxDepth edges. A node on the current
// path is never expanded again within that path; it may appear on other
// branches. Reaching end closes the branch. Paths come out in depth-first
// order over relation insertion order.
func (s *Store) FindPaths(start, end string, maxDepth int) []Path {
	if maxDepth > MaxAllowedDepth {
		maxDepth = MaxAllowedDepth
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f := pathFinder{
		store:    s,
		end:      end,
		maxDepth: maxDepth,
		onPath:   make(map[string]bool),
		paths:    make([]Path, 0),
	}
	f.walk(start, 0)
	return f.paths
}

type pathFinder struct {
	store    *Store
	end      string
	maxDepth int
	onPath   map[string]bool
	current  Path
	paths    []Path
}

func (f *pathFinder) walk(node string, depth int) {
	if depth > f.maxDepth {
		return
	}
	if node == f.end && len(f.current) > 0 {
		found := make(Path, len(f.current))
		copy(found, f.current)
		f.paths = append(f.paths, found)
		return
	}
	if f.onPath[node] {
		return
	}

	f.onPath[node] = true
	for _, idx := range f.store.outgoing[node] {
		r := f.store.relations[idx]
		f.current = append(f.current, r)
		f.walk(r.Target, depth+1)
		f.current = f.current[:len(f.current)-1]
	}
	delete(f.onPath, node)
}
