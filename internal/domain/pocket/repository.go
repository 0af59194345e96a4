package pocket

import "context"

// Repository defines the persistence operations for pockets.
type Repository interface {
	// Create persists a new pocket. Returns ErrDuplicateName when the name
	// is already taken.
	Create(ctx context.Context, p *Pocket) error

	// GetByID returns the pocket or ErrPocketNotFound.
	GetByID(ctx context.Context, id string) (*Pocket, error)

	// List returns pockets, active ones only unless includeInactive is set,
	// ordered by name.
	List(ctx context.Context, includeInactive bool) ([]*Pocket, error)

	// Update patches the pocket and returns the updated row, or
	// ErrPocketNotFound. Deactivation while transactions reference the
	// pocket fails with ErrPocketInUse.
	Update(ctx context.Context, id string, params UpdateParams) (*Pocket, error)

	// Summary aggregates the pocket's donation and approved-expense totals
	// and transaction counts.
	Summary(ctx context.Context, id string) (*Summary, error)

	// RecalculateBalance re-derives the cached balance from the pocket's
	// line items and writes it back, returning the fresh value. The
	// recalculation is a full re-aggregation and therefore idempotent.
	RecalculateBalance(ctx context.Context, id string) (int64, error)
}
