package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"amanah/internal/domain/category"
)

type CategoryRepository struct {
	store *Store
}

func NewCategoryRepository(store *Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Kind == c.Kind && strings.EqualFold(existing.Name, c.Name) {
			return category.ErrDuplicateName
		}
	}

	s.categories[c.ID] = cloneCategory(c)
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	return cloneCategory(c), nil
}

func (r *CategoryRepository) List(ctx context.Context, kind category.Kind, includeInactive bool) ([]*category.Category, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*category.Category
	for _, c := range s.categories {
		if c.Kind != kind {
			continue
		}
		if !includeInactive && !c.Active {
			continue
		}
		out = append(out, cloneCategory(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id string, params category.UpdateParams) (*category.Category, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}

	if params.Name != nil {
		for otherID, other := range s.categories {
			if otherID != id && other.Kind == c.Kind && strings.EqualFold(other.Name, *params.Name) {
				return nil, category.ErrDuplicateName
			}
		}
		c.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		c.Description = *params.Description
	}
	if params.Active != nil {
		if !*params.Active && s.categoryReferencedLocked(id) {
			return nil, category.ErrCategoryInUse
		}
		c.Active = *params.Active
	}
	c.UpdatedAt = time.Now().UTC()

	return cloneCategory(c), nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return category.ErrCategoryNotFound
	}
	if s.categoryReferencedLocked(id) {
		return category.ErrCategoryInUse
	}

	delete(s.categories, id)
	return nil
}
