package domain

import (
	"fmt"
	"slices"

	apperrors "github.com/storeloom/console/pkg/errors"
)

// BuildCategoryTree assembles a flat category list into a nested tree.
// Root categories (nil parent) appear at the top level; children are nested
// under their parents. At every level siblings are sorted ascending by
// SortOrder; the sort is stable, so equal sort orders keep the flat list's
// relative order. Categories whose parent ID references a missing entry are
// promoted to roots.
//
// The input is never mutated and the returned nodes are copies: the tree is
// a pure derivation of the flat list and is rebuilt in full after every
// mutation, never patched in place.
//
// A parent graph containing a cycle is reported as a corrupt-hierarchy error
// instead of recursing unboundedly.
func BuildCategoryTree(flat []Category) ([]*Category, error) {
	nodes := make([]*Category, len(flat))
	byID := make(map[string]*Category, len(flat))

	for i, c := range flat {
		node := c
		node.Children = []*Category{}
		nodes[i] = &node
		byID[c.ID] = &node
	}

	roots := []*Category{}

	for _, node := range nodes {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*node.ParentID]
		if !ok || parent == node {
			// A self-parenting node is corruption; an orphan whose parent
			// was filtered out or is missing upstream becomes a root.
			if parent == node {
				return nil, apperrors.CorruptHierarchy(fmt.Sprintf("category %s is its own parent", node.ID))
			}
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Every node must be reachable from a root; nodes trapped in a parent
	// cycle are not, since none of them qualifies as a root.
	reachable := 0
	queue := slices.Clone(roots)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		reachable++
		queue = append(queue, node.Children...)
	}
	if reachable != len(nodes) {
		return nil, apperrors.CorruptHierarchy(
			fmt.Sprintf("%d of %d categories are unreachable from any root", len(nodes)-reachable, len(nodes)))
	}

	sortSiblings(roots)
	for _, node := range nodes {
		sortSiblings(node.Children)
	}

	return roots, nil
}

// sortSiblings orders a sibling set ascending by sort order, keeping the
// original relative order of equal sort orders.
func sortSiblings(siblings []*Category) {
	slices.SortStableFunc(siblings, func(a, b *Category) int {
		return a.SortOrder - b.SortOrder
	})
}

// FlattenCategoryTree walks a tree depth-first and returns the entities with
// Children cleared, in traversal order.
func FlattenCategoryTree(tree []*Category) []Category {
	var flat []Category
	var walk func(nodes []*Category)
	walk = func(nodes []*Category) {
		for _, node := range nodes {
			c := *node
			c.Children = nil
			flat = append(flat, c)
			walk(node.Children)
		}
	}
	walk(tree)
	return flat
}

// Breadcrumb walks parent references upward from the given category ID and
// returns the path from the topmost ancestor down to the category itself.
// The walk stops at a nil parent or a parent missing from the collection.
// A cyclic parent graph is reported as a corrupt-hierarchy error.
func Breadcrumb(flat []Category, id string) ([]Category, error) {
	byID := make(map[string]Category, len(flat))
	for _, c := range flat {
		byID[c.ID] = c
	}

	current, ok := byID[id]
	if !ok {
		return nil, apperrors.NotFound("category", id)
	}

	visited := map[string]struct{}{}
	path := []Category{}
	for {
		if _, seen := visited[current.ID]; seen {
			return nil, apperrors.CorruptHierarchy(fmt.Sprintf("parent cycle through category %s", current.ID))
		}
		visited[current.ID] = struct{}{}
		path = append([]Category{current}, path...)

		if current.ParentID == nil {
			break
		}
		parent, ok := byID[*current.ParentID]
		if !ok {
			break
		}
		current = parent
	}

	return path, nil
}
