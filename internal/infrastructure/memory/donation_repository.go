package memory

import (
	"context"
	"fmt"
	"sort"

	"amanah/internal/domain/ledger"
)

type DonationRepository struct {
	store *Store
}

func NewDonationRepository(store *Store) *DonationRepository {
	return &DonationRepository{store: store}
}

func (r *DonationRepository) Create(ctx context.Context, d *ledger.Donation) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Header first, then items, mirroring the two-step relational write.
	header := cloneDonation(d)
	header.Items = nil
	s.donations[d.ID] = header

	if err := s.takeItemWriteErrLocked(); err != nil {
		// Compensating delete: no orphan header may survive a failed item
		// write.
		delete(s.donations, d.ID)
		return fmt.Errorf("write donation items: %w", err)
	}
	header.Items = cloneItems(d.Items)

	s.recalcPocketLocked(d.PocketID)
	return nil
}

func (r *DonationRepository) GetByID(ctx context.Context, id string) (*ledger.Donation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[id]
	if !ok {
		return nil, ledger.ErrDonationNotFound
	}
	return cloneDonation(d), nil
}

func (r *DonationRepository) List(ctx context.Context, filter ledger.DonationFilter, page ledger.Page) ([]*ledger.Donation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Donation
	for _, d := range s.donations {
		if !donationMatches(d, filter) {
			continue
		}
		out = append(out, cloneDonation(d))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return pageDonations(out, page), nil
}

func (r *DonationRepository) Update(ctx context.Context, d *ledger.Donation, prevPocketID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donations[d.ID]; !ok {
		return ledger.ErrDonationNotFound
	}

	if err := s.takeItemWriteErrLocked(); err != nil {
		// Nothing was mutated: the whole update rolls back as a unit.
		return fmt.Errorf("write donation items: %w", err)
	}

	s.donations[d.ID] = cloneDonation(d)

	s.recalcPocketLocked(d.PocketID)
	if prevPocketID != d.PocketID {
		s.recalcPocketLocked(prevPocketID)
	}
	return nil
}

func (r *DonationRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[id]
	if !ok {
		return ledger.ErrDonationNotFound
	}

	delete(s.donations, id)
	s.recalcPocketLocked(d.PocketID)
	return nil
}

func donationMatches(d *ledger.Donation, f ledger.DonationFilter) bool {
	if f.PocketID != "" && d.PocketID != f.PocketID {
		return false
	}
	if f.PaymentMethod != "" && d.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.CategoryID != "" {
		found := false
		for _, it := range d.Items {
			if it.CategoryID == f.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && d.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.Date.After(f.To) {
		return false
	}
	return true
}

func pageDonations(all []*ledger.Donation, page ledger.Page) []*ledger.Donation {
	page = page.Normalize()
	if page.Offset >= len(all) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end]
}
