package ledger

import "testing"

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"Pending to approved", StatusPending, StatusApproved, true},
		{"Pending to rejected", StatusPending, StatusRejected, true},
		{"Approved to rejected", StatusApproved, StatusRejected, true},
		{"Rejected to approved", StatusRejected, StatusApproved, true},
		{"Approved to approved", StatusApproved, StatusApproved, true},
		{"Approved back to pending", StatusApproved, StatusPending, false},
		{"Rejected back to pending", StatusRejected, StatusPending, false},
		{"Unknown target", StatusPending, Status("archived"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want Page
	}{
		{"Zero value gets defaults", Page{}, Page{Limit: 50}},
		{"Negative offset clamped", Page{Limit: 10, Offset: -1}, Page{Limit: 10, Offset: 0}},
		{"Oversized limit clamped", Page{Limit: 1000, Offset: 20}, Page{Limit: 200, Offset: 20}},
		{"In-range untouched", Page{Limit: 25, Offset: 75}, Page{Limit: 25, Offset: 75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Normalize(); got != tt.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tt.page, got, tt.want)
			}
		})
	}
}

func TestTotalAmount(t *testing.T) {
	d := &Donation{Items: []LineItem{{Amount: 100}, {Amount: 250}, {Amount: 7}}}
	if got := d.TotalAmount(); got != 357 {
		t.Errorf("TotalAmount() = %d, want 357", got)
	}

	e := &Expense{}
	if got := e.TotalAmount(); got != 0 {
		t.Errorf("TotalAmount() with no items = %d, want 0", got)
	}
}
