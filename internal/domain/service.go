package domain

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/tx"
)

// UsageProbe reports whether a dependent record references entityID.
type UsageProbe func(ctx context.Context, entityID id.ID) (bool, error)

// dependent is a named usage probe consulted before delete.
type dependent struct {
	name  string
	probe UsageProbe
}

// CatalogService provides business logic for catalog entities.
// Every write runs in one transaction together with its hooks, so a hook
// that touches other rows (clearing a default flag) commits or rolls back
// with the entity itself.
type CatalogService[T CatalogEntity] struct {
	repo       CatalogRepository[T]
	txManager  tx.Manager
	hooks      *HookRegistry[T]
	dependents []dependent

	// entityName for error messages
	entityName string
	// keyField names the unique key in error details ("sku", "code", "slug")
	keyField string
}

// CatalogServiceConfig configures the catalog service.
type CatalogServiceConfig[T CatalogEntity] struct {
	Repo       CatalogRepository[T]
	TxManager  tx.Manager
	EntityName string
	KeyField   string
}

// NewCatalogService creates a new catalog service.
func NewCatalogService[T CatalogEntity](cfg CatalogServiceConfig[T]) *CatalogService[T] {
	keyField := cfg.KeyField
	if keyField == "" {
		keyField = "code"
	}
	return &CatalogService[T]{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
		keyField:   keyField,
	}
}

// Hooks returns the hook registry for external registration.
func (s *CatalogService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// EntityName returns the name used in error messages.
func (s *CatalogService[T]) EntityName() string {
	return s.entityName
}

// BlockDeleteWhen registers a dependent that prevents deletion while probe
// reports usage. name appears in the error ("stock levels", "child locations").
func (s *CatalogService[T]) BlockDeleteWhen(name string, probe UsageProbe) {
	s.dependents = append(s.dependents, dependent{name: name, probe: probe})
}

func (s *CatalogService[T]) normalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *CatalogService[T]) normalizeGetErr(err error, idOrKey any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, idOrKey)
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", idOrKey)
}

// resolveKey makes the entity's unique key free, suffixing "-N" on collision.
func (s *CatalogService[T]) resolveKey(ctx context.Context, e T, excludeID *id.ID) error {
	base := strings.TrimSpace(e.UniqueKey())
	if base == "" {
		return apperror.NewValidation(s.keyField + " is required").WithDetail("field", s.keyField)
	}
	key, err := ResolveUnique(ctx, base, excludeID, s.repo.ExistsByKey)
	if err != nil {
		return fmt.Errorf("resolve %s %s: %w", s.entityName, s.keyField, err)
	}
	e.SetUniqueKey(key)
	return nil
}

// Create creates a new catalog entity.
func (s *CatalogService[T]) Create(ctx context.Context, e T) error {
	// 1. Validate entity invariants
	if err := e.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// 2. Hooks fill generated fields and enforce cross-row rules
		if err := s.hooks.Run(ctx, BeforeCreate, e); err != nil {
			return err
		}

		// 3. Unique key auto-resolution
		if err := s.resolveKey(ctx, e, nil); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}

		return s.hooks.Run(ctx, AfterCreate, e)
	})
}

// GetByID retrieves entity by ID.
func (s *CatalogService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return e, s.normalizeGetErr(err, entityID.String())
	}
	return e, nil
}

// GetByKey retrieves entity by its unique key.
func (s *CatalogService[T]) GetByKey(ctx context.Context, key string) (T, error) {
	e, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return e, s.normalizeGetErr(err, key)
	}
	return e, nil
}

// Update updates an existing entity.
func (s *CatalogService[T]) Update(ctx context.Context, e T) error {
	if err := e.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		entityID := e.GetID()
		exists, err := s.repo.Exists(ctx, entityID)
		if err != nil {
			return fmt.Errorf("check %s: %w", s.entityName, err)
		}
		if !exists {
			return apperror.NewNotFound(s.entityName, entityID.String())
		}

		if err := s.hooks.Run(ctx, BeforeUpdate, e); err != nil {
			return err
		}

		if err := s.resolveKey(ctx, e, &entityID); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}

		return s.hooks.Run(ctx, AfterUpdate, e)
	})
}

// Delete physically removes the entity unless a dependent still uses it.
func (s *CatalogService[T]) Delete(ctx context.Context, entityID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetByID(ctx, entityID)
		if err != nil {
			return s.normalizeGetErr(err, entityID.String())
		}

		for _, d := range s.dependents {
			inUse, err := d.probe(ctx, entityID)
			if err != nil {
				return fmt.Errorf("check %s %s: %w", s.entityName, d.name, err)
			}
			if inUse {
				return apperror.NewConstraint(s.entityName, d.name).WithDetail("id", entityID.String())
			}
		}

		if err := s.hooks.Run(ctx, BeforeDelete, e); err != nil {
			return err
		}

		if err := s.repo.Delete(ctx, entityID); err != nil {
			return fmt.Errorf("delete %s: %w", s.entityName, err)
		}
		return nil
	})
}

// List retrieves entities with filtering.
func (s *CatalogService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Exists checks if entity exists.
func (s *CatalogService[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return s.repo.Exists(ctx, entityID)
}

// Children returns the direct children of a tree node.
func (s *CatalogService[T]) Children(ctx context.Context, parentID id.ID) ([]T, error) {
	res, err := s.repo.List(ctx, ListFilter{ParentID: &parentID, Limit: MaxPageSize, OrderBy: "name"})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// HasChildren is a UsageProbe for tree-shaped catalogs.
func (s *CatalogService[T]) HasChildren(ctx context.Context, parentID id.ID) (bool, error) {
	res, err := s.repo.List(ctx, ListFilter{ParentID: &parentID, Limit: 1})
	if err != nil {
		return false, err
	}
	return res.TotalCount > 0, nil
}

// ParentOf is a ParentLookup over this catalog.
func (s *CatalogService[T]) ParentOf(ctx context.Context, node id.ID) (*id.ID, error) {
	e, err := s.repo.GetByID(ctx, node)
	if err != nil {
		return nil, s.normalizeGetErr(err, node.String())
	}
	h, ok := any(e).(Hierarchical)
	if !ok {
		return nil, nil
	}
	return h.GetParentID(), nil
}
