// Package memory implements the repository interfaces on an in-process
// store. It backs local development (DATA_BACKEND=memory) and the service
// and handler tests, and mirrors the Postgres store's semantics: every
// mutating operation takes the store lock once, so the header write, item
// writes and balance recalculation are observed atomically.
package memory

import (
	"sync"
	"time"

	"amanah/internal/domain/category"
	"amanah/internal/domain/ledger"
	"amanah/internal/domain/pocket"
	"amanah/internal/domain/user"
)

type Store struct {
	mu sync.Mutex

	pockets    map[string]*pocket.Pocket
	categories map[string]*category.Category
	donations  map[string]*ledger.Donation
	expenses   map[string]*ledger.Expense

	users        map[int64]*user.User
	usersByEmail map[string]int64
	nextUserID   int64

	// itemWriteErr makes the next item-set write fail after the header
	// write succeeded, exercising the compensating delete path.
	itemWriteErr error
}

func NewStore() *Store {
	return &Store{
		pockets:      make(map[string]*pocket.Pocket),
		categories:   make(map[string]*category.Category),
		donations:    make(map[string]*ledger.Donation),
		expenses:     make(map[string]*ledger.Expense),
		users:        make(map[int64]*user.User),
		usersByEmail: make(map[string]int64),
		nextUserID:   1,
	}
}

// FailNextItemWrite arms a one-shot failure of the next item-set write.
func (s *Store) FailNextItemWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemWriteErr = err
}

func (s *Store) takeItemWriteErrLocked() error {
	err := s.itemWriteErr
	s.itemWriteErr = nil
	return err
}

// recalcPocketLocked fully re-aggregates one pocket's balance from its
// donation items and approved expense items. Must hold s.mu.
func (s *Store) recalcPocketLocked(pocketID string) {
	p, ok := s.pockets[pocketID]
	if !ok {
		return
	}

	var balance int64
	for _, d := range s.donations {
		if d.PocketID == pocketID {
			balance += d.TotalAmount()
		}
	}
	for _, e := range s.expenses {
		if e.PocketID == pocketID && e.Status == ledger.StatusApproved {
			balance -= e.TotalAmount()
		}
	}

	p.CurrentBalance = balance
	p.UpdatedAt = time.Now().UTC()
}

// pocketReferencedLocked reports whether any transaction belongs to the
// pocket. Must hold s.mu.
func (s *Store) pocketReferencedLocked(pocketID string) bool {
	for _, d := range s.donations {
		if d.PocketID == pocketID {
			return true
		}
	}
	for _, e := range s.expenses {
		if e.PocketID == pocketID {
			return true
		}
	}
	return false
}

// categoryReferencedLocked reports whether any line item references the
// category. Must hold s.mu.
func (s *Store) categoryReferencedLocked(categoryID string) bool {
	for _, d := range s.donations {
		for _, it := range d.Items {
			if it.CategoryID == categoryID {
				return true
			}
		}
	}
	for _, e := range s.expenses {
		for _, it := range e.Items {
			if it.CategoryID == categoryID {
				return true
			}
		}
	}
	return false
}

func clonePocket(p *pocket.Pocket) *pocket.Pocket {
	cp := *p
	return &cp
}

func cloneCategory(c *category.Category) *category.Category {
	cc := *c
	return &cc
}

func cloneItems(items []ledger.LineItem) []ledger.LineItem {
	if items == nil {
		return nil
	}
	out := make([]ledger.LineItem, len(items))
	copy(out, items)
	return out
}

func cloneDonation(d *ledger.Donation) *ledger.Donation {
	cd := *d
	cd.Items = cloneItems(d.Items)
	return &cd
}

func cloneExpense(e *ledger.Expense) *ledger.Expense {
	ce := *e
	ce.Items = cloneItems(e.Items)
	if e.ApprovedBy != nil {
		v := *e.ApprovedBy
		ce.ApprovedBy = &v
	}
	return &ce
}

func cloneUser(u *user.User) *user.User {
	cu := *u
	return &cu
}
