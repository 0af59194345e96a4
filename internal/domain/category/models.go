package category

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind separates the two disjoint category namespaces. A donation line item
// may only reference a donation category, and symmetrically for expenses.
type Kind string

const (
	KindDonation Kind = "donation"
	KindExpense  Kind = "expense"
)

// IsValidKind checks if the provided kind is valid.
func IsValidKind(k Kind) bool {
	return k == KindDonation || k == KindExpense
}

// Domain errors
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category is referenced by line items")
	ErrDuplicateName    = errors.New("category name already exists for this kind")
	ErrForbidden        = errors.New("access forbidden")
)

// ValidationError carries the offending field of a rejected write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Category represents a donation or expense category entry.
type Category struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateParams contains parameters for creating a new category.
type CreateParams struct {
	Kind        Kind
	Name        string
	Description string
}

// Validate validates the create parameters.
func (p CreateParams) Validate() error {
	if !IsValidKind(p.Kind) {
		return &ValidationError{Field: "kind", Reason: "kind must be donation or expense"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "category name is required"}
	}
	return nil
}

// UpdateParams contains parameters for patching a category.
type UpdateParams struct {
	Name        *string
	Description *string
	Active      *bool
}

// Validate validates the update parameters.
func (p UpdateParams) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "category name cannot be empty"}
	}
	return nil
}
