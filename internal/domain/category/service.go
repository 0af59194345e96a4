package category

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"amanah/internal/shared/auth"
)

// Service contains the business logic for the category registry.
type Service struct {
	repo Repository
}

// NewService creates a new category service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateCategory creates a new category. Requires an administrator.
func (s *Service) CreateCategory(ctx context.Context, actor auth.Identity, params CreateParams) (*Category, error) {
	if !actor.CanAdminister() {
		return nil, ErrForbidden
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Category{
		ID:          uuid.NewString(),
		Kind:        params.Kind,
		Name:        strings.TrimSpace(params.Name),
		Description: params.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategory retrieves a category by ID.
func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

// ListCategories lists categories of one kind, active only by default.
func (s *Service) ListCategories(ctx context.Context, kind Kind, includeInactive bool) ([]*Category, error) {
	if !IsValidKind(kind) {
		return nil, ErrCategoryNotFound
	}
	return s.repo.List(ctx, kind, includeInactive)
}

// UpdateCategory renames or re-describes a category, or toggles its active
// flag. Requires an administrator. Deactivating a category still referenced
// by line items fails with ErrCategoryInUse.
func (s *Service) UpdateCategory(ctx context.Context, actor auth.Identity, id string, params UpdateParams) (*Category, error) {
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

// DeleteCategory removes a category. Requires an administrator. Fails with
// ErrCategoryInUse while any line item references the category.
func (s *Service) DeleteCategory(ctx context.Context, actor auth.Identity, id string) error {
	if !actor.CanAdminister() {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
