package graph

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// OpCount tallies live nodes per operator kind. Structural tests and
// tooling compare graphs by census before and after a rewrite.
func OpCount(g *Graph) map[OpKind]int {
	counts := make(map[OpKind]int)
	for _, n := range g.Nodes() {
		counts[n.Op()]++
	}
	return counts
}

// CountOf returns the number of live nodes of one kind.
func CountOf(g *Graph, kind OpKind) int {
	count := 0
	for _, n := range g.Nodes() {
		if n.Op() == kind {
			count++
		}
	}
	return count
}

// CensusString renders an op census as "Add:2 Gather:1 ...", sorted by
// op name.
func CensusString(counts map[OpKind]int) string {
	kinds := maps.Keys(counts)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].String() < kinds[j].String() })

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s:%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
