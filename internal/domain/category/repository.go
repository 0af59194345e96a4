package category

import "context"

// Repository defines the persistence operations for categories.
type Repository interface {
	// Create persists a new category. Returns ErrDuplicateName when the name
	// already exists within the same kind.
	Create(ctx context.Context, c *Category) error

	// GetByID returns the category or ErrCategoryNotFound.
	GetByID(ctx context.Context, id string) (*Category, error)

	// List returns categories of the given kind, active ones only unless
	// includeInactive is set, ordered by name.
	List(ctx context.Context, kind Kind, includeInactive bool) ([]*Category, error)

	// Update patches the category and returns the updated row, or
	// ErrCategoryNotFound. Deactivation of a category still referenced by
	// line items fails with ErrCategoryInUse.
	Update(ctx context.Context, id string, params UpdateParams) (*Category, error)

	// Delete removes a category. Returns ErrCategoryInUse while any line
	// item references it, ErrCategoryNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
