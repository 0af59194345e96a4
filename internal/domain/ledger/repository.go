package ledger

import "context"

// DonationRepository persists donation headers with their owned items. Every
// mutating operation is one atomic unit: the header write, the item writes
// and the balance recalculation of every affected pocket commit together or
// not at all. A failure after a partial write must leave no orphan header
// observable by a subsequent read.
type DonationRepository interface {
	// Create persists the header and its items, then recalculates the
	// owning pocket's balance, atomically.
	Create(ctx context.Context, d *Donation) error

	// GetByID returns the donation with its items, or ErrDonationNotFound.
	GetByID(ctx context.Context, id string) (*Donation, error)

	// List returns donations (with items) matching the filter, newest
	// first.
	List(ctx context.Context, filter DonationFilter, page Page) ([]*Donation, error)

	// Update rewrites the header and, when d.Items differs from the stored
	// set, replaces the entire item set (delete-all then insert-all). It
	// recalculates d.PocketID and, when the donation moved between pockets,
	// prevPocketID as well. Returns ErrDonationNotFound for unknown ids.
	Update(ctx context.Context, d *Donation, prevPocketID string) error

	// Delete cascades the item deletion and recalculates the affected
	// pocket. Returns ErrDonationNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
}

// ExpenseRepository mirrors DonationRepository for expenses and adds the
// approval-status write, which also recalculates the pocket since only
// approved expenses subtract from the balance.
type ExpenseRepository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id string) (*Expense, error)
	List(ctx context.Context, filter ExpenseFilter, page Page) ([]*Expense, error)
	Update(ctx context.Context, e *Expense, prevPocketID string) error
	Delete(ctx context.Context, id string) error

	// SetStatus writes the approval status and approvedBy stamp, then
	// recalculates the expense's pocket, atomically. Returns the updated
	// expense or ErrExpenseNotFound.
	SetStatus(ctx context.Context, id string, status Status, approvedBy *int64) (*Expense, error)
}
