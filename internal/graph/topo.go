package graph

import "github.com/pkg/errors"

// TopologicalOrder returns the live nodes in an order where every
// producer precedes its consumers. The order is deterministic for a
// given graph state (ties break by arena index). Returns ErrCycle when
// the node dependencies are cyclic.
func (g *Graph) TopologicalOrder() ([]*Node, error) {
	alive := g.Nodes()

	indegree := make(map[NodeIndex]int, len(alive))
	for _, n := range alive {
		count := 0
		for _, in := range n.inputs {
			if in == "" {
				continue
			}
			if _, produced := g.producers[in]; produced {
				count++
			}
		}
		indegree[n.idx] = count
	}

	queue := make([]*Node, 0, len(alive))
	for _, n := range alive {
		if indegree[n.idx] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]*Node, 0, len(alive))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		for _, out := range n.outputs {
			if out == "" {
				continue
			}
			for _, consumer := range g.ConsumersOf(out) {
				// A consumer may reach n through several slots; one
				// decrement per referencing slot keeps the counts exact.
				for _, in := range consumer.inputs {
					if in != out {
						continue
					}
					indegree[consumer.idx]--
					if indegree[consumer.idx] == 0 {
						queue = append(queue, consumer)
					}
				}
			}
		}
	}

	if len(order) != len(alive) {
		return nil, errors.Wrapf(ErrCycle, "%d of %d nodes unreachable from graph inputs", len(alive)-len(order), len(alive))
	}
	return order, nil
}
