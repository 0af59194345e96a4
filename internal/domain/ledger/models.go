package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrDonationNotFound = errors.New("donation not found")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrForbidden        = errors.New("access forbidden")
)

// ValidationError carries the offending field of a rejected write. It is
// never retried; the caller must fix the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Payment methods accepted on donation headers.
const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
	PaymentQRIS     = "qris"
	PaymentOther    = "other"
)

var paymentMethods = map[string]struct{}{
	PaymentCash:     {},
	PaymentTransfer: {},
	PaymentQRIS:     {},
	PaymentOther:    {},
}

// IsValidPaymentMethod checks if the provided payment method is valid.
func IsValidPaymentMethod(m string) bool {
	_, ok := paymentMethods[m]
	return ok
}

// LineItem is a categorized monetary entry owned by exactly one transaction.
// Amount is in minor currency units and is always strictly positive.
type LineItem struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	CategoryID    string `json:"categoryId"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// ItemInput is the caller-supplied shape of a line item. On update the
// entire existing item set is replaced by the supplied inputs; there are no
// granular item edits.
type ItemInput struct {
	CategoryID  string `json:"categoryId"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
}

// Donation is a donation transaction header together with its owned items.
type Donation struct {
	ID            string     `json:"id"`
	PocketID      string     `json:"pocketId"`
	DonorName     string     `json:"donorName,omitempty"`
	Anonymous     bool       `json:"anonymous"`
	PaymentMethod string     `json:"paymentMethod"`
	ReceiptRef    string     `json:"receiptRef,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Date          time.Time  `json:"date"`
	RecordedBy    int64      `json:"recordedBy"`
	Items         []LineItem `json:"items"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TotalAmount is the sum of the donation's item amounts. It is derived at
// read time and never stored, so there is no second source of truth.
func (d *Donation) TotalAmount() int64 {
	return sumItems(d.Items)
}

// Expense is an expense transaction header together with its owned items.
// Only approved expenses subtract from the pocket balance.
type Expense struct {
	ID          string     `json:"id"`
	PocketID    string     `json:"pocketId"`
	Description string     `json:"description"`
	ReceiptRef  string     `json:"receiptRef,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Date        time.Time  `json:"date"`
	Status      Status     `json:"status"`
	ApprovedBy  *int64     `json:"approvedBy,omitempty"`
	RecordedBy  int64      `json:"recordedBy"`
	Items       []LineItem `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TotalAmount is the sum of the expense's item amounts.
func (e *Expense) TotalAmount() int64 {
	return sumItems(e.Items)
}

func sumItems(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Amount
	}
	return total
}

// Page is limit/offset pagination for list operations.
type Page struct {
	Limit  int
	Offset int
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// DonationFilter narrows donation list operations. Zero values match all.
type DonationFilter struct {
	PocketID      string
	CategoryID    string
	PaymentMethod string
	From          time.Time
	To            time.Time
}

// ExpenseFilter narrows expense list operations. Zero values match all.
type ExpenseFilter struct {
	PocketID   string
	CategoryID string
	Status     Status
	From       time.Time
	To         time.Time
}
