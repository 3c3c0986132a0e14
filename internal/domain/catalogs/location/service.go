package location

import (
	"context"
	"fmt"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/tx"
	"stockroom/internal/domain"
)

const entityName = "location"

// Service provides business logic for the Location catalog.
type Service struct {
	*domain.CatalogService[*Location]
	repo Repository
}

// NewService creates a new Location service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Location]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: entityName,
		KeyField:   "code",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
	}

	base.Hooks().OnBeforeCreate(svc.prepare)
	base.Hooks().OnBeforeUpdate(svc.prepare)
	base.Hooks().OnBeforeCreate(svc.enforceSingleDefault)
	base.Hooks().OnBeforeUpdate(svc.enforceSingleDefault)
	base.BlockDeleteWhen("child locations", base.HasChildren)

	return svc
}

// prepare handles code generation and parent checks.
func (s *Service) prepare(ctx context.Context, loc *Location) error {
	if loc.Code == "" {
		loc.Code = GenerateCode(loc.Name, loc.Type)
	}
	return domain.CheckParent(ctx, entityName, loc.ID, loc.ParentID, s.ParentOf)
}

// enforceSingleDefault clears the other defaults before loc is written,
// holding the default lock until commit.
func (s *Service) enforceSingleDefault(ctx context.Context, loc *Location) error {
	if !loc.IsDefault {
		return nil
	}
	if err := s.repo.LockDefault(ctx); err != nil {
		return fmt.Errorf("lock default location: %w", err)
	}
	if err := s.repo.ClearDefault(ctx, loc.ID); err != nil {
		return fmt.Errorf("clear default locations: %w", err)
	}
	return nil
}

// GetDefault returns the default location.
func (s *Service) GetDefault(ctx context.Context) (*Location, error) {
	loc, err := s.repo.GetDefault(ctx)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("default location", nil)
		}
		return nil, err
	}
	return loc, nil
}

// ReceivingResolver picks the location purchase orders are received into:
// the configured code when set, otherwise the default location.
type ReceivingResolver struct {
	svc  *Service
	code string
}

// NewReceivingResolver creates a resolver. An empty code falls back to the
// default location.
func NewReceivingResolver(svc *Service, code string) *ReceivingResolver {
	return &ReceivingResolver{svc: svc, code: code}
}

// ReceivingLocation returns the id of the receiving location.
func (r *ReceivingResolver) ReceivingLocation(ctx context.Context) (id.ID, error) {
	if r.code != "" {
		loc, err := r.svc.repo.GetByKey(ctx, r.code)
		if err != nil {
			if apperror.IsNotFound(err) {
				return id.ID{}, apperror.NewInvalidState("configured receiving location does not exist").
					WithDetail("code", r.code)
			}
			return id.ID{}, err
		}
		if !loc.IsActive {
			return id.ID{}, apperror.NewInvalidState("configured receiving location is inactive").
				WithDetail("code", r.code)
		}
		return loc.ID, nil
	}

	loc, err := r.svc.repo.GetDefault(ctx)
	if err != nil {
		if apperror.IsNotFound(err) {
			return id.ID{}, apperror.NewInvalidState("no receiving location configured and no default location set")
		}
		return id.ID{}, err
	}
	return loc.ID, nil
}
