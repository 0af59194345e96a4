package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"amanah/internal/domain/ledger"
)

type ExpenseRepository struct {
	store *Store
}

func NewExpenseRepository(store *Store) *ExpenseRepository {
	return &ExpenseRepository{store: store}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *ledger.Expense) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	header := cloneExpense(e)
	header.Items = nil
	s.expenses[e.ID] = header

	if err := s.takeItemWriteErrLocked(); err != nil {
		delete(s.expenses, e.ID)
		return fmt.Errorf("write expense items: %w", err)
	}
	header.Items = cloneItems(e.Items)

	// Pending expenses do not move the balance, but the recalculation runs
	// unconditionally; it is idempotent.
	s.recalcPocketLocked(e.PocketID)
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*ledger.Expense, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, ledger.ErrExpenseNotFound
	}
	return cloneExpense(e), nil
}

func (r *ExpenseRepository) List(ctx context.Context, filter ledger.ExpenseFilter, page ledger.Page) ([]*ledger.Expense, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Expense
	for _, e := range s.expenses {
		if !expenseMatches(e, filter) {
			continue
		}
		out = append(out, cloneExpense(e))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	page = page.Normalize()
	if page.Offset >= len(out) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[page.Offset:end], nil
}

func (r *ExpenseRepository) Update(ctx context.Context, e *ledger.Expense, prevPocketID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[e.ID]; !ok {
		return ledger.ErrExpenseNotFound
	}

	if err := s.takeItemWriteErrLocked(); err != nil {
		return fmt.Errorf("write expense items: %w", err)
	}

	s.expenses[e.ID] = cloneExpense(e)

	s.recalcPocketLocked(e.PocketID)
	if prevPocketID != e.PocketID {
		s.recalcPocketLocked(prevPocketID)
	}
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok {
		return ledger.ErrExpenseNotFound
	}

	delete(s.expenses, id)
	s.recalcPocketLocked(e.PocketID)
	return nil
}

func (r *ExpenseRepository) SetStatus(ctx context.Context, id string, status ledger.Status, approvedBy *int64) (*ledger.Expense, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, ledger.ErrExpenseNotFound
	}

	e.Status = status
	e.ApprovedBy = nil
	if approvedBy != nil {
		v := *approvedBy
		e.ApprovedBy = &v
	}
	e.UpdatedAt = time.Now().UTC()

	s.recalcPocketLocked(e.PocketID)
	return cloneExpense(e), nil
}

func expenseMatches(e *ledger.Expense, f ledger.ExpenseFilter) bool {
	if f.PocketID != "" && e.PocketID != f.PocketID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.CategoryID != "" {
		found := false
		for _, it := range e.Items {
			if it.CategoryID == f.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	return true
}
