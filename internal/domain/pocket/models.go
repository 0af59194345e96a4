package pocket

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors
var (
	ErrPocketNotFound = errors.New("pocket not found")
	ErrPocketInUse    = errors.New("pocket is referenced by transactions")
	ErrDuplicateName  = errors.New("pocket name already exists")
	ErrForbidden      = errors.New("access forbidden")
)

// ValidationError carries the offending field of a rejected write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Pocket is a named sub-account. CurrentBalance is a derived cache: the sum
// of its donation line items minus the sum of its approved expense line
// items, in minor currency units. It is rewritten by the balance
// recalculation on every affecting mutation and never patched directly.
type Pocket struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CurrentBalance int64     `json:"currentBalance"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Summary aggregates a pocket's transaction activity.
type Summary struct {
	PocketID              string `json:"pocketId"`
	TotalDonations        int64  `json:"totalDonations"`
	TotalApprovedExpenses int64  `json:"totalApprovedExpenses"`
	Balance               int64  `json:"balance"`
	DonationCount         int64  `json:"donationCount"`
	ExpenseCount          int64  `json:"expenseCount"`
}

// Reconciliation reports a forced full recalculation of a pocket balance.
type Reconciliation struct {
	PocketID      string `json:"pocketId"`
	BalanceBefore int64  `json:"balanceBefore"`
	BalanceAfter  int64  `json:"balanceAfter"`
	Drift         int64  `json:"drift"`
}

// CreateParams contains parameters for creating a new pocket.
type CreateParams struct {
	Name        string
	Description string
}

// Validate validates the create parameters.
func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "pocket name is required"}
	}
	return nil
}

// UpdateParams contains parameters for patching a pocket. The cached balance
// is deliberately not patchable.
type UpdateParams struct {
	Name        *string
	Description *string
	Active      *bool
}

// Validate validates the update parameters.
func (p UpdateParams) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "pocket name cannot be empty"}
	}
	return nil
}
