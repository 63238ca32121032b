// Package category maintains the in-memory app category forest: hierarchy
// lookups, ancestor paths, and incrementally propagated app counts.
//
// A Tree is not safe for concurrent use. Owners serialize access.
package category

import (
	"fmt"
	"slices"
	"strings"

	"github.com/iplantc/decat/internal/apperr"
)

// Category is a category descriptor as returned by a catalog listing.
// Nested categories are already materialized.
type Category struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AppCount   int        `json:"app_count"`
	Categories []Category `json:"categories,omitempty"`
}

// Node is a category registered in a Tree.
// ItemCount must only be changed through Tree.AdjustItemCount.
type Node struct {
	ID        string
	Name      string
	ItemCount int

	children []*Node
}

// Tree is an ordered forest of category nodes.
type Tree struct {
	nodes   map[string]*Node
	parent  map[string]string // child id -> parent id
	roots   []*Node
	rootSet map[string]struct{}
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		nodes:   make(map[string]*Node),
		parent:  make(map[string]string),
		rootSet: make(map[string]struct{}),
	}
}

type batch struct {
	parent   *Node
	children []Category
}

// AddCategories registers children, and every category nested under them,
// beneath parent. A nil parent adds them as roots after the existing ones.
// The batch is rejected as a whole if any id is already registered.
func (t *Tree) AddCategories(parent *Node, children []Category) error {
	if len(children) == 0 {
		return nil
	}
	if parent != nil && !t.registered(parent) {
		return fmt.Errorf("category: parent %q: %w", parent.ID, apperr.ErrNotFound)
	}
	if err := t.validate(children); err != nil {
		return err
	}

	// Parents are registered before their children; a whole sibling batch
	// is attached before descending into it.
	stack := []batch{{parent: parent, children: children}}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		added := t.attach(b.parent, b.children)
		for i := len(added) - 1; i >= 0; i-- {
			if nested := b.children[i].Categories; len(nested) > 0 {
				stack = append(stack, batch{parent: added[i], children: nested})
			}
		}
	}
	return nil
}

// validate checks a nested batch for empty, duplicate, or already
// registered ids and negative counts without touching the tree.
func (t *Tree) validate(children []Category) error {
	seen := make(map[string]struct{})
	pending := slices.Clone(children)
	for len(pending) > 0 {
		c := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if c.ID == "" {
			return fmt.Errorf("category: %q has no id", c.Name)
		}
		if _, ok := t.nodes[c.ID]; ok {
			return fmt.Errorf("category: id %q: %w", c.ID, apperr.ErrAlreadyExists)
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("category: id %q repeated in batch: %w", c.ID, apperr.ErrAlreadyExists)
		}
		if c.AppCount < 0 {
			return fmt.Errorf("category: %q app count %d: %w", c.ID, c.AppCount, apperr.ErrInvalidCount)
		}
		seen[c.ID] = struct{}{}
		pending = append(pending, c.Categories...)
	}
	return nil
}

func (t *Tree) attach(parent *Node, children []Category) []*Node {
	added := make([]*Node, 0, len(children))
	for _, c := range children {
		n := &Node{ID: c.ID, Name: c.Name, ItemCount: c.AppCount}
		t.nodes[n.ID] = n
		if parent == nil {
			t.roots = append(t.roots, n)
			t.rootSet[n.ID] = struct{}{}
		} else {
			parent.children = append(parent.children, n)
			t.parent[n.ID] = parent.ID
		}
		added = append(added, n)
	}
	if parent != nil {
		slices.SortStableFunc(parent.children, t.compare)
	}
	return added
}

// compare orders siblings by case-insensitive name. Roots compare equal to
// everything so server order is kept for them.
func (t *Tree) compare(a, b *Node) int {
	if t.IsRoot(a) || t.IsRoot(b) {
		return 0
	}
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

// FindByID returns the node registered under id.
func (t *Tree) FindByID(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// FindByName returns the first node, in traversal order, whose name matches
// name ignoring case. Names are not unique across the tree.
func (t *Tree) FindByName(name string) (*Node, bool) {
	var found *Node
	t.Walk(func(n *Node) bool {
		if strings.EqualFold(n.Name, name) {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Walk visits nodes depth first, parents before children, roots in
// insertion order. It stops when fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	stack := make([]*Node, 0, len(t.roots))
	for i := len(t.roots) - 1; i >= 0; i-- {
		stack = append(stack, t.roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
}

// AncestorPath returns the names from the owning root down to n.
func (t *Tree) AncestorPath(n *Node) ([]string, error) {
	if !t.registered(n) {
		return nil, fmt.Errorf("category: ancestor path: %w", apperr.ErrNotFound)
	}
	var names []string
	cur := n
	for range len(t.nodes) {
		names = append(names, cur.Name)
		if t.IsRoot(cur) {
			slices.Reverse(names)
			return names, nil
		}
		pid, ok := t.parent[cur.ID]
		if !ok {
			break
		}
		cur = t.nodes[pid]
	}
	return nil, fmt.Errorf("category: ancestor path of %q: %w", n.ID, apperr.ErrDisconnected)
}

// AdjustItemCount sets n's count to newCount and shifts every ancestor by
// the same difference. If any count on the chain would go negative the call
// fails with apperr.ErrNegativeCount and nothing is changed.
func (t *Tree) AdjustItemCount(n *Node, newCount int) error {
	if newCount < 0 {
		return fmt.Errorf("category: count %d: %w", newCount, apperr.ErrInvalidCount)
	}
	if !t.registered(n) {
		return fmt.Errorf("category: adjust count: %w", apperr.ErrNotFound)
	}
	delta := n.ItemCount - newCount
	if delta == 0 {
		return nil
	}

	chain := t.lineage(n)
	for _, c := range chain {
		if c.ItemCount-delta < 0 {
			return fmt.Errorf("category: %q count %d minus %d: %w", c.ID, c.ItemCount, delta, apperr.ErrNegativeCount)
		}
	}
	for _, c := range chain {
		c.ItemCount -= delta
	}
	return nil
}

// lineage returns n followed by its ancestors up to the root.
func (t *Tree) lineage(n *Node) []*Node {
	chain := []*Node{n}
	cur := n
	for len(chain) <= len(t.nodes) && !t.IsRoot(cur) {
		pid, ok := t.parent[cur.ID]
		if !ok {
			break
		}
		cur = t.nodes[pid]
		chain = append(chain, cur)
	}
	return chain
}

// Parent returns the parent of n, if n is registered and not a root.
func (t *Tree) Parent(n *Node) (*Node, bool) {
	if !t.registered(n) {
		return nil, false
	}
	pid, ok := t.parent[n.ID]
	if !ok {
		return nil, false
	}
	p, ok := t.nodes[pid]
	return p, ok
}

// IsRoot reports whether n is one of the registered roots.
func (t *Tree) IsRoot(n *Node) bool {
	if n == nil {
		return false
	}
	_, ok := t.rootSet[n.ID]
	return ok
}

// Roots returns the root nodes in insertion order.
func (t *Tree) Roots() []*Node {
	return slices.Clone(t.roots)
}

// Children returns the children of n in sibling order.
func (t *Tree) Children(n *Node) []*Node {
	if !t.registered(n) {
		return nil
	}
	return slices.Clone(n.children)
}

// Len returns the number of registered nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Snapshot copies the forest back into nested descriptors.
func (t *Tree) Snapshot() []Category {
	out := make([]Category, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, t.Subtree(r))
	}
	return out
}

// Subtree copies n and its descendants into a descriptor.
func (t *Tree) Subtree(n *Node) Category {
	c := Category{ID: n.ID, Name: n.Name, AppCount: n.ItemCount}
	for _, child := range n.children {
		c.Categories = append(c.Categories, t.Subtree(child))
	}
	return c
}

func (t *Tree) registered(n *Node) bool {
	return n != nil && t.nodes[n.ID] == n
}
