package netlist

import "sort"

// DisjointSet tracks connectivity between string keys (pin keys, position
// keys) using union-find with union by rank and path compression.
type DisjointSet struct {
	parent map[string]string // Maps key to parent key
	rank   map[string]int    // Rank for union-by-rank optimization
	order  []string          // Insertion order, for deterministic grouping
}

// NewDisjointSet creates an empty set.
func NewDisjointSet() *DisjointSet {
	return &DisjointSet{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// Add registers key as its own singleton component if it is new.
func (d *DisjointSet) Add(key string) {
	if _, ok := d.parent[key]; ok {
		return
	}
	d.parent[key] = key
	d.rank[key] = 0
	d.order = append(d.order, key)
}

// Union marks two keys as connected. It reports whether two distinct
// components were merged.
func (d *DisjointSet) Union(a, b string) bool {
	rootA := d.Find(a)
	rootB := d.Find(b)

	if rootA == rootB {
		return false // Already in the same component
	}

	// Union by rank
	switch {
	case d.rank[rootA] < d.rank[rootB]:
		d.parent[rootA] = rootB
	case d.rank[rootA] > d.rank[rootB]:
		d.parent[rootB] = rootA
	default:
		d.parent[rootB] = rootA
		d.rank[rootA]++
	}
	return true
}

// Find returns the representative key of the component containing key,
// adding key if it was never seen.
func (d *DisjointSet) Find(key string) string {
	d.Add(key)

	root := key
	for d.parent[root] != root {
		root = d.parent[root]
	}

	// Path compression: make all nodes on the path point directly to root
	current := key
	for current != root {
		next := d.parent[current]
		d.parent[current] = root
		current = next
	}

	return root
}

// Connected reports whether a and b are in the same component.
func (d *DisjointSet) Connected(a, b string) bool {
	return d.Find(a) == d.Find(b)
}

// Groups returns every component as a sorted key list. Components are
// ordered by their first inserted key.
func (d *DisjointSet) Groups() [][]string {
	index := make(map[string]int)
	var groups [][]string
	for _, key := range d.order {
		root := d.Find(key)
		i, ok := index[root]
		if !ok {
			i = len(groups)
			index[root] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], key)
	}
	for _, g := range groups {
		sort.Strings(g)
	}
	return groups
}
