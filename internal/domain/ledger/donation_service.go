package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"amanah/internal/domain/category"
	"amanah/internal/domain/pocket"
	"amanah/internal/shared/auth"
)

// CreateDonationParams contains parameters for recording a donation with its
// full item set in one call.
type CreateDonationParams struct {
	PocketID      string
	DonorName     string
	Anonymous     bool
	PaymentMethod string
	ReceiptRef    string
	Notes         string
	Date          time.Time
	Items         []ItemInput
}

// DonationPatch patches header fields independently. A nil Items leaves the
// existing item set untouched; a non-nil Items replaces it wholesale.
type DonationPatch struct {
	PocketID      *string
	DonorName     *string
	Anonymous     *bool
	PaymentMethod *string
	ReceiptRef    *string
	Notes         *string
	Date          *time.Time
	Items         []ItemInput
}

// DonationService is the transaction manager for donations. It validates
// against the category and pocket registries, then hands the write to the
// repository, which persists header, items and balance recalculation as one
// atomic unit.
type DonationService struct {
	donations  DonationRepository
	pockets    pocket.Repository
	categories category.Repository
}

// NewDonationService creates a new donation service
func NewDonationService(donations DonationRepository, pockets pocket.Repository, categories category.Repository) *DonationService {
	return &DonationService{donations: donations, pockets: pockets, categories: categories}
}

// Create records a donation. Requires a recording role (admin or treasurer).
// Nothing is written when any validation fails.
func (s *DonationService) Create(ctx context.Context, actor auth.Identity, params CreateDonationParams) (*Donation, error) {
	if !actor.CanRecord() {
		return nil, ErrForbidden
	}

	if params.Date.IsZero() {
		return nil, invalidf("date", "date is required")
	}
	if !IsValidPaymentMethod(params.PaymentMethod) {
		return nil, invalidf("paymentMethod", "unknown payment method %q", params.PaymentMethod)
	}
	if err := validatePocket(ctx, s.pockets, params.PocketID); err != nil {
		return nil, err
	}
	if err := validateItems(ctx, s.categories, category.KindDonation, params.Items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &Donation{
		ID:            uuid.NewString(),
		PocketID:      params.PocketID,
		DonorName:     params.DonorName,
		Anonymous:     params.Anonymous,
		PaymentMethod: params.PaymentMethod,
		ReceiptRef:    params.ReceiptRef,
		Notes:         params.Notes,
		Date:          params.Date,
		RecordedBy:    actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	d.Items = buildItems(d.ID, params.Items)

	if err := s.donations.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get retrieves a donation with its items.
func (s *DonationService) Get(ctx context.Context, id string) (*Donation, error) {
	return s.donations.GetByID(ctx, id)
}

// List returns donations matching the filter, newest first.
func (s *DonationService) List(ctx context.Context, filter DonationFilter, page Page) ([]*Donation, error) {
	if filter.PaymentMethod != "" && !IsValidPaymentMethod(filter.PaymentMethod) {
		return nil, invalidf("paymentMethod", "unknown payment method %q", filter.PaymentMethod)
	}
	return s.donations.List(ctx, filter, page.Normalize())
}

// Update patches a donation header and optionally replaces its entire item
// set. When the patch moves the donation to another pocket, both the
// previous and the new pocket's balances are recalculated.
func (s *DonationService) Update(ctx context.Context, actor auth.Identity, id string, patch DonationPatch) (*Donation, error) {
	if !actor.CanRecord() {
		return nil, ErrForbidden
	}

	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevPocketID := d.PocketID

	if patch.PocketID != nil && *patch.PocketID != d.PocketID {
		if err := validatePocket(ctx, s.pockets, *patch.PocketID); err != nil {
			return nil, err
		}
		d.PocketID = *patch.PocketID
	}
	if patch.DonorName != nil {
		d.DonorName = *patch.DonorName
	}
	if patch.Anonymous != nil {
		d.Anonymous = *patch.Anonymous
	}
	if patch.PaymentMethod != nil {
		if !IsValidPaymentMethod(*patch.PaymentMethod) {
			return nil, invalidf("paymentMethod", "unknown payment method %q", *patch.PaymentMethod)
		}
		d.PaymentMethod = *patch.PaymentMethod
	}
	if patch.ReceiptRef != nil {
		d.ReceiptRef = *patch.ReceiptRef
	}
	if patch.Notes != nil {
		d.Notes = *patch.Notes
	}
	if patch.Date != nil {
		if patch.Date.IsZero() {
			return nil, invalidf("date", "date is required")
		}
		d.Date = *patch.Date
	}
	if patch.Items != nil {
		if err := validateItems(ctx, s.categories, category.KindDonation, patch.Items); err != nil {
			return nil, err
		}
		d.Items = buildItems(d.ID, patch.Items)
	}

	d.UpdatedAt = time.Now().UTC()
	if err := s.donations.Update(ctx, d, prevPocketID); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes a donation and its items, cascading, and recalculates the
// affected pocket. Requires an administrator.
func (s *DonationService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if !actor.CanAdminister() {
		return ErrForbidden
	}
	return s.donations.Delete(ctx, id)
}
