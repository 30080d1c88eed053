package domain

import (
	"slices"
)

// Graph is a topology snapshot: the nodes and links one map shows.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	return &Graph{
		Nodes: slices.Clone(g.Nodes),
		Links: slices.Clone(g.Links),
	}
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// ToggleFixed pins or unpins a node and reports its new state.
func (g *Graph) ToggleFixed(id string) (bool, bool) {
	n := g.NodeByID(id)
	if n == nil {
		return false, false
	}
	n.Fixed = !n.Fixed
	return n.Fixed, true
}

// ApplyFixed unpins every node and then pins the nodes of a saved view at their saved
// positions. Saved nodes that are no longer in the graph are ignored.
func (g *Graph) ApplyFixed(saved []Node) {
	for i := range g.Nodes {
		g.Nodes[i].Fixed = false
	}
	for _, s := range saved {
		n := g.NodeByID(s.ID)
		if n == nil {
			continue
		}
		n.Fixed = true
		n.X = s.X
		n.Y = s.Y
	}
}

// Categories returns the distinct node categories in sorted order.
func (g *Graph) Categories() []string {
	var categories []string
	for _, n := range g.Nodes {
		if n.Data.Category == "" || slices.Contains(categories, n.Data.Category) {
			continue
		}
		categories = append(categories, n.Data.Category)
	}
	slices.Sort(categories)
	return categories
}

// IsOrphan reports whether a node has no links.
func (g *Graph) IsOrphan(id string) bool {
	for _, l := range g.Links {
		if l.Source == id || l.Target == id {
			return false
		}
	}
	return true
}

// Neighbors returns the ids of nodes linked to id, in link order.
func (g *Graph) Neighbors(id string) []string {
	var neighbors []string
	for _, l := range g.Links {
		var other string
		switch id {
		case l.Source:
			other = l.Target
		case l.Target:
			other = l.Source
		default:
			continue
		}
		if !slices.Contains(neighbors, other) {
			neighbors = append(neighbors, other)
		}
	}
	return neighbors
}

// Visible returns the nodes a view shows: nodes of the selected categories (all
// categories when none are selected), minus orphans unless displayOrphans is set.
func (g *Graph) Visible(categories []string, displayOrphans bool) []Node {
	visible := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if len(categories) > 0 && !slices.Contains(categories, n.Data.Category) {
			continue
		}
		if !displayOrphans && g.IsOrphan(n.ID) {
			continue
		}
		visible = append(visible, n)
	}
	return visible
}

// FixedNodes returns the pinned nodes of g in snapshot order. Elink nodes are never
// included, whatever their fixed flag.
func FixedNodes(g *Graph) []Node {
	if g == nil {
		return []Node{}
	}
	fixed := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Fixed && n.Data.Category != CategoryElink {
			fixed = append(fixed, n)
		}
	}
	return fixed
}
