package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// checkAcyclic verifies that adding the edge parent→child keeps the group
// hierarchy a DAG. It builds a directed graph over the existing parent/child
// edges plus the candidate edge and topologically sorts it; an unorderable
// graph means the candidate closes a cycle.
func (g *Graph) checkAcyclic(parentID, childID int64) error {
	dg := simple.NewDirectedGraph()

	ensure := func(id int64) {
		if dg.Node(id) == nil {
			dg.AddNode(simple.Node(id))
		}
	}

	for _, grp := range g.groups {
		ensure(grp.ID)
		for child := range grp.children {
			ensure(child)
			dg.SetEdge(dg.NewEdge(simple.Node(grp.ID), simple.Node(child)))
		}
	}

	ensure(parentID)
	ensure(childID)
	dg.SetEdge(dg.NewEdge(simple.Node(parentID), simple.Node(childID)))

	if _, err := topo.Sort(dg); err != nil {
		return fmt.Errorf("edge group %d -> group %d: %w", parentID, childID, ErrCycleDetected)
	}
	return nil
}

// ancestorGroups walks parent edges upward from the given group ids and
// returns the full ancestor closure, including the starting groups. The walk
// uses an explicit visited set keyed by id, so arbitrary hierarchy depth is
// safe.
func (g *Graph) ancestorGroups(start []int64) map[int64]*Group {
	closure := make(map[int64]*Group)
	queue := append([]int64(nil), start...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := closure[id]; seen {
			continue
		}
		grp, ok := g.groups[id]
		if !ok {
			continue
		}
		closure[id] = grp
		for parent := range grp.parents {
			queue = append(queue, parent)
		}
	}
	return closure
}
