package organizations

import "github.com/google/uuid"

// Edge is one (node, parent) pair of the organization tree.
type Edge struct {
	ID       uuid.UUID  `gorm:"column:id"`
	ParentID *uuid.UUID `gorm:"column:parent_id"`
}

// Hierarchy is an in-memory arena of the organization tree keyed by id.
type Hierarchy struct {
	parent   map[uuid.UUID]uuid.UUID
	children map[uuid.UUID][]uuid.UUID
}

// NewHierarchy indexes edges. Nodes without a parent are roots.
func NewHierarchy(edges []Edge) *Hierarchy {
	h := &Hierarchy{
		parent:   make(map[uuid.UUID]uuid.UUID, len(edges)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, e := range edges {
		if e.ParentID == nil || *e.ParentID == uuid.Nil {
			continue
		}
		h.parent[e.ID] = *e.ParentID
		h.children[*e.ParentID] = append(h.children[*e.ParentID], e.ID)
	}
	return h
}

func (h *Hierarchy) Parent(id uuid.UUID) (uuid.UUID, bool) {
	p, ok := h.parent[id]
	return p, ok
}

func (h *Hierarchy) Children(id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(h.children[id]))
	copy(out, h.children[id])
	return out
}

// Ancestors walks from id toward the root, nearest first. The walk stops if a
// node repeats so corrupted data cannot loop forever.
func (h *Hierarchy) Ancestors(id uuid.UUID) []uuid.UUID {
	visited := map[uuid.UUID]struct{}{id: {}}
	var out []uuid.UUID
	current := id
	for {
		p, ok := h.parent[current]
		if !ok {
			return out
		}
		if _, seen := visited[p]; seen {
			return out
		}
		visited[p] = struct{}{}
		out = append(out, p)
		current = p
	}
}

// Descendants returns every node below id, breadth first.
func (h *Hierarchy) Descendants(id uuid.UUID) []uuid.UUID {
	visited := map[uuid.UUID]struct{}{id: {}}
	queue := []uuid.UUID{id}
	var out []uuid.UUID
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range h.children[next] {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// IsAncestor reports whether ancestor sits strictly above node.
func (h *Hierarchy) IsAncestor(ancestor, node uuid.UUID) bool {
	for _, id := range h.Ancestors(node) {
		if id == ancestor {
			return true
		}
	}
	return false
}

// WouldCreateCycle reports whether attaching node under newParent would make
// node its own ancestor.
func (h *Hierarchy) WouldCreateCycle(node, newParent uuid.UUID) bool {
	if node == newParent {
		return true
	}
	return h.IsAncestor(node, newParent)
}
