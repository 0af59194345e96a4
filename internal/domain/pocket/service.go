package pocket

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"amanah/internal/shared/auth"
)

// Service contains the business logic for the pocket registry.
type Service struct {
	repo Repository
}

// NewService creates a new pocket service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreatePocket creates a new pocket with a zero balance. Requires an
// administrator.
func (s *Service) CreatePocket(ctx context.Context, actor auth.Identity, params CreateParams) (*Pocket, error) {
	if !actor.CanAdminister() {
		return nil, ErrForbidden
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Pocket{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(params.Name),
		Description: params.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPocket retrieves a pocket by ID.
func (s *Service) GetPocket(ctx context.Context, id string) (*Pocket, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPockets lists pockets, active only by default.
func (s *Service) ListPockets(ctx context.Context, includeInactive bool) ([]*Pocket, error) {
	return s.repo.List(ctx, includeInactive)
}

// UpdatePocket patches a pocket. Requires an administrator. Deactivating a
// pocket still referenced by transactions fails with ErrPocketInUse.
func (s *Service) UpdatePocket(ctx context.Context, actor auth.Identity, id string, params UpdateParams) (*Pocket, error) {
	if !actor.CanAdminister() {
		return nil, ErrForbidden
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Name != nil {
		trimmed := strings.TrimSpace(*params.Name)
		params.Name = &trimmed
	}
	return s.repo.Update(ctx, id, params)
}

// GetSummary aggregates the pocket's totals, counts and balance.
func (s *Service) GetSummary(ctx context.Context, id string) (*Summary, error) {
	return s.repo.Summary(ctx, id)
}

// Reconcile forces a full balance recalculation and reports any drift
// between the cached value and the re-derived one. With no intervening
// mutation the drift is always zero; a non-zero drift means the cache was
// corrupted outside the engine.
func (s *Service) Reconcile(ctx context.Context, actor auth.Identity, id string) (*Reconciliation, error) {
	if !actor.CanAdminister() {
		return nil, ErrForbidden
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	after, err := s.repo.RecalculateBalance(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Reconciliation{
		PocketID:      id,
		BalanceBefore: before.CurrentBalance,
		BalanceAfter:  after,
		Drift:         after - before.CurrentBalance,
	}, nil
}
