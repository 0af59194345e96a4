package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"amanah/internal/domain/category"
	"amanah/internal/domain/pocket"
	"amanah/internal/shared/auth"
)

// CreateExpenseParams contains parameters for recording an expense with its
// full item set in one call. Every expense starts pending and does not count
// toward the pocket balance until approved.
type CreateExpenseParams struct {
	PocketID    string
	Description string
	ReceiptRef  string
	Notes       string
	Date        time.Time
	Items       []ItemInput
}

// ExpensePatch patches header fields independently. A nil Items leaves the
// existing item set untouched; a non-nil Items replaces it wholesale. The
// approval status is not patchable here; it moves only through SetStatus.
type ExpensePatch struct {
	PocketID    *string
	Description *string
	ReceiptRef  *string
	Notes       *string
	Date        *time.Time
	Items       []ItemInput
}

// ExpenseService is the transaction manager for expenses, including the
// approval workflow.
type ExpenseService struct {
	expenses   ExpenseRepository
	pockets    pocket.Repository
	categories category.Repository
}

// NewExpenseService creates a new expense service
func NewExpenseService(expenses ExpenseRepository, pockets pocket.Repository, categories category.Repository) *ExpenseService {
	return &ExpenseService{expenses: expenses, pockets: pockets, categories: categories}
}

// Create records a pending expense. Requires a recording role (admin or
// treasurer). Nothing is written when any validation fails.
func (s *ExpenseService) Create(ctx context.Context, actor auth.Identity, params CreateExpenseParams) (*Expense, error) {
	if !actor.CanRecord() {
		return nil, ErrForbidden
	}

	if strings.TrimSpace(params.Description) == "" {
		return nil, invalidf("description", "description is required")
	}
	if params.Date.IsZero() {
		return nil, invalidf("date", "date is required")
	}
	if err := validatePocket(ctx, s.pockets, params.PocketID); err != nil {
		return nil, err
	}
	if err := validateItems(ctx, s.categories, category.KindExpense, params.Items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	e := &Expense{
		ID:          uuid.NewString(),
		PocketID:    params.PocketID,
		Description: strings.TrimSpace(params.Description),
		ReceiptRef:  params.ReceiptRef,
		Notes:       params.Notes,
		Date:        params.Date,
		Status:      StatusPending,
		RecordedBy:  actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.Items = buildItems(e.ID, params.Items)

	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get retrieves an expense with its items.
func (s *ExpenseService) Get(ctx context.Context, id string) (*Expense, error) {
	return s.expenses.GetByID(ctx, id)
}

// List returns expenses matching the filter, newest first.
func (s *ExpenseService) List(ctx context.Context, filter ExpenseFilter, page Page) ([]*Expense, error) {
	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, invalidf("status", "unknown status %q", filter.Status)
	}
	return s.expenses.List(ctx, filter, page.Normalize())
}

// Update patches an expense header and optionally replaces its entire item
// set. When the patch moves the expense to another pocket, both the previous
// and the new pocket's balances are recalculated.
func (s *ExpenseService) Update(ctx context.Context, actor auth.Identity, id string, patch ExpensePatch) (*Expense, error) {
	if !actor.CanRecord() {
		return nil, ErrForbidden
	}

	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevPocketID := e.PocketID

	if patch.PocketID != nil && *patch.PocketID != e.PocketID {
		if err := validatePocket(ctx, s.pockets, *patch.PocketID); err != nil {
			return nil, err
		}
		e.PocketID = *patch.PocketID
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return nil, invalidf("description", "description is required")
		}
		e.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ReceiptRef != nil {
		e.ReceiptRef = *patch.ReceiptRef
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	if patch.Date != nil {
		if patch.Date.IsZero() {
			return nil, invalidf("date", "date is required")
		}
		e.Date = *patch.Date
	}
	if patch.Items != nil {
		if err := validateItems(ctx, s.categories, category.KindExpense, patch.Items); err != nil {
			return nil, err
		}
		e.Items = buildItems(e.ID, patch.Items)
	}

	e.UpdatedAt = time.Now().UTC()
	if err := s.expenses.Update(ctx, e, prevPocketID); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an expense and its items, cascading, and recalculates the
// affected pocket. Requires an administrator.
func (s *ExpenseService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if !actor.CanAdminister() {
		return ErrForbidden
	}
	return s.expenses.Delete(ctx, id)
}

// SetApprovalStatus moves an expense through the approval workflow. Only
// approved and rejected are acceptable targets; pending is initial-only.
// Approving stamps approvedBy with the acting administrator; rejecting
// clears the stamp, so approvedBy always names the actor responsible for the
// current approved state. The pocket balance is recalculated either way.
func (s *ExpenseService) SetApprovalStatus(ctx context.Context, actor auth.Identity, id string, status Status) (*Expense, error) {
	if !actor.CanAdminister() {
		return nil, ErrForbidden
	}
	if status != StatusApproved && status != StatusRejected {
		return nil, invalidf("status", "must be approved or rejected, got %q", status)
	}

	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Status.CanTransitionTo(status) {
		return nil, invalidf("status", "cannot move from %s to %s", e.Status, status)
	}

	var approvedBy *int64
	if status == StatusApproved {
		approvedBy = &actor.UserID
	}
	return s.expenses.SetStatus(ctx, id, status, approvedBy)
}
