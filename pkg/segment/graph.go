/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: graph.go
Description: Undirected weighted entity graph used by the segmenter. Foreign keys give
the edges; union-find groups connected entities and a greedy modularity pass splits
components that grow too large.
*/

package segment

import (
	"sort"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/schema"
)

// graph holds entities as dense indexes. Node order is the sorted entity name order, which
// keeps every traversal deterministic.
type graph struct {
	names    []string
	index    map[string]int // upper-case name to node
	fk       [][]float64    // foreign key counts, symmetric
	prefixes []map[string]bool
}

func newGraph(names []string) *graph {
	g := &graph{
		names:    names,
		index:    make(map[string]int, len(names)),
		fk:       make([][]float64, len(names)),
		prefixes: make([]map[string]bool, len(names)),
	}
	for i, n := range names {
		g.index[strings.ToUpper(n)] = i
		g.fk[i] = make([]float64, len(names))
		g.prefixes[i] = map[string]bool{}
	}
	return g
}

func (g *graph) lookup(name string) (int, bool) {
	i, ok := g.index[strings.ToUpper(name)]
	return i, ok
}

// link adds one reference between a and b. Self references carry no grouping signal.
func (g *graph) link(a, b int) {
	if a == b {
		return
	}
	g.fk[a][b]++
	g.fk[b][a]++
}

// fieldPrefix returns the leading token of a field name. Single-token AS/400 names such as
// CSNAME or CSADDR share their first two characters instead.
func fieldPrefix(name string) string {
	tokens := schema.Tokenize(name)
	switch {
	case len(tokens) == 0:
		return ""
	case len(tokens) > 1:
		return tokens[0]
	case len(tokens[0]) > 2:
		return tokens[0][:2]
	default:
		return tokens[0]
	}
}

// jaccard is the overlap of two prefix sets
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for p := range a {
		if b[p] {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// components groups nodes joined by at least one foreign key. Groups are ordered by their
// lowest node and members ascend.
func (g *graph) components() [][]int {
	parent := make([]int, len(g.names))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	for i := range g.fk {
		for j := i + 1; j < len(g.fk); j++ {
			if g.fk[i][j] == 0 {
				continue
			}
			ri, rj := find(i), find(j)
			if ri == rj {
				continue
			}
			// lower root wins so roots stay stable
			if rj < ri {
				ri, rj = rj, ri
			}
			parent[rj] = ri
		}
	}

	groups := map[int][]int{}
	var roots []int
	for i := range parent {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}
	sort.Ints(roots)
	out := make([][]int, len(roots))
	for i, r := range roots {
		out[i] = groups[r]
	}
	return out
}

// split partitions one component into communities of at most maxSize nodes by greedy
// modularity merging. Edge weight is the foreign key count plus prefixWeight times the
// field prefix similarity. Starting from singletons, the pair of communities with the
// highest positive modularity gain is merged until no allowed merge improves modularity.
func (g *graph) split(members []int, maxSize int, prefixWeight float64) [][]int {
	n := len(members)
	w := make([][]float64, n)
	degree := make([]float64, n)
	total := 0.0
	for a := range members {
		w[a] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			i, j := members[a], members[b]
			weight := g.fk[i][j] + prefixWeight*jaccard(g.prefixes[i], g.prefixes[j])
			w[a][b], w[b][a] = weight, weight
			degree[a] += weight
			degree[b] += weight
			total += weight
		}
	}

	communities := make([][]int, n)
	for a := range communities {
		communities[a] = []int{a}
	}
	if total == 0 {
		return g.resolve(members, communities)
	}

	between := func(x, y []int) float64 {
		s := 0.0
		for _, a := range x {
			for _, b := range y {
				s += w[a][b]
			}
		}
		return s
	}
	sumDegree := func(x []int) float64 {
		s := 0.0
		for _, a := range x {
			s += degree[a]
		}
		return s
	}

	for {
		bestGain, bi, bj := 0.0, -1, -1
		for x := 0; x < len(communities); x++ {
			for y := x + 1; y < len(communities); y++ {
				if len(communities[x])+len(communities[y]) > maxSize {
					continue
				}
				wxy := between(communities[x], communities[y])
				if wxy == 0 {
					continue
				}
				gain := wxy/total - sumDegree(communities[x])*sumDegree(communities[y])/(2*total*total)
				if gain > bestGain {
					bestGain, bi, bj = gain, x, y
				}
			}
		}
		if bi < 0 {
			break
		}
		merged := append(append([]int(nil), communities[bi]...), communities[bj]...)
		sort.Ints(merged)
		communities[bi] = merged
		communities = append(communities[:bj], communities[bj+1:]...)
	}
	return g.resolve(members, communities)
}

// resolve maps community positions back to graph nodes
func (g *graph) resolve(members []int, communities [][]int) [][]int {
	out := make([][]int, len(communities))
	for c, community := range communities {
		for _, a := range community {
			out[c] = append(out[c], members[a])
		}
		sort.Ints(out[c])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// anchor is the member with the most foreign key weight, ties going to the earlier name
func (g *graph) anchor(members []int) int {
	best, bestDegree := members[0], -1.0
	for _, i := range members {
		d := 0.0
		for _, c := range g.fk[i] {
			d += c
		}
		if d > bestDegree {
			best, bestDegree = i, d
		}
	}
	return best
}
