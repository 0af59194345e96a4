package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"amanah/internal/domain/ledger"
	"amanah/internal/domain/pocket"
)

type PocketRepository struct {
	store *Store
}

func NewPocketRepository(store *Store) *PocketRepository {
	return &PocketRepository{store: store}
}

func (r *PocketRepository) Create(ctx context.Context, p *pocket.Pocket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.pockets {
		if strings.EqualFold(existing.Name, p.Name) {
			return pocket.ErrDuplicateName
		}
	}

	s.pockets[p.ID] = clonePocket(p)
	return nil
}

func (r *PocketRepository) GetByID(ctx context.Context, id string) (*pocket.Pocket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pockets[id]
	if !ok {
		return nil, pocket.ErrPocketNotFound
	}
	return clonePocket(p), nil
}

func (r *PocketRepository) List(ctx context.Context, includeInactive bool) ([]*pocket.Pocket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*pocket.Pocket
	for _, p := range s.pockets {
		if !includeInactive && !p.Active {
			continue
		}
		out = append(out, clonePocket(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *PocketRepository) Update(ctx context.Context, id string, params pocket.UpdateParams) (*pocket.Pocket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pockets[id]
	if !ok {
		return nil, pocket.ErrPocketNotFound
	}

	if params.Name != nil {
		for otherID, other := range s.pockets {
			if otherID != id && strings.EqualFold(other.Name, *params.Name) {
				return nil, pocket.ErrDuplicateName
			}
		}
		p.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Active != nil {
		if !*params.Active && s.pocketReferencedLocked(id) {
			return nil, pocket.ErrPocketInUse
		}
		p.Active = *params.Active
	}
	p.UpdatedAt = time.Now().UTC()

	return clonePocket(p), nil
}

func (r *PocketRepository) Summary(ctx context.Context, id string) (*pocket.Summary, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pockets[id]; !ok {
		return nil, pocket.ErrPocketNotFound
	}

	sum := &pocket.Summary{PocketID: id}
	for _, d := range s.donations {
		if d.PocketID == id {
			sum.DonationCount++
			sum.TotalDonations += d.TotalAmount()
		}
	}
	for _, e := range s.expenses {
		if e.PocketID == id {
			sum.ExpenseCount++
			if e.Status == ledger.StatusApproved {
				sum.TotalApprovedExpenses += e.TotalAmount()
			}
		}
	}
	sum.Balance = sum.TotalDonations - sum.TotalApprovedExpenses
	return sum, nil
}

func (r *PocketRepository) RecalculateBalance(ctx context.Context, id string) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pockets[id]
	if !ok {
		return 0, pocket.ErrPocketNotFound
	}
	s.recalcPocketLocked(id)
	return p.CurrentBalance, nil
}
