package domain

import (
	"context"
	"fmt"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
)

// ParentLookup returns the parent of node, or nil for a root.
type ParentLookup func(ctx context.Context, node id.ID) (*id.ID, error)

// CheckParent rejects a parent assignment that would make the tree cyclic:
// the node itself or any of its descendants.
func CheckParent(ctx context.Context, entityName string, self id.ID, parent *id.ID, lookup ParentLookup) error {
	if parent == nil || id.IsNil(*parent) {
		return nil
	}
	if *parent == self {
		return apperror.NewValidation(fmt.Sprintf("a %s cannot be its own parent", entityName)).
			WithDetail("field", "parentId")
	}

	visited := map[id.ID]struct{}{}
	current := parent
	for current != nil {
		if *current == self {
			return apperror.NewValidation(fmt.Sprintf("a %s cannot be moved under its own descendant", entityName)).
				WithDetail("field", "parentId")
		}
		if _, seen := visited[*current]; seen {
			// pre-existing loop that does not include self
			return nil
		}
		visited[*current] = struct{}{}

		next, err := lookup(ctx, *current)
		if err != nil {
			if apperror.IsNotFound(err) && *current == *parent {
				return apperror.NewValidation(fmt.Sprintf("parent %s not found", entityName)).
					WithDetail("field", "parentId").
					WithDetail("value", parent.String())
			}
			return err
		}
		current = next
	}
	return nil
}
