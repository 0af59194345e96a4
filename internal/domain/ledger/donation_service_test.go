package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"amanah/internal/domain/category"
	"amanah/internal/domain/pocket"
	"amanah/internal/shared/auth"
)

// MockDonationRepository is a mock implementation of DonationRepository
type MockDonationRepository struct {
	CreateFunc  func(ctx context.Context, d *Donation) error
	GetByIDFunc func(ctx context.Context, id string) (*Donation, error)
	ListFunc    func(ctx context.Context, filter DonationFilter, page Page) ([]*Donation, error)
	UpdateFunc  func(ctx context.Context, d *Donation, prevPocketID string) error
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockDonationRepository) Create(ctx context.Context, d *Donation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, d)
	}
	return nil
}

func (m *MockDonationRepository) GetByID(ctx context.Context, id string) (*Donation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrDonationNotFound
}

func (m *MockDonationRepository) List(ctx context.Context, filter DonationFilter, page Page) ([]*Donation, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, page)
	}
	return nil, nil
}

func (m *MockDonationRepository) Update(ctx context.Context, d *Donation, prevPocketID string) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, d, prevPocketID)
	}
	return nil
}

func (m *MockDonationRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockPocketRepository is a mock implementation of pocket.Repository
type MockPocketRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*pocket.Pocket, error)
}

func (m *MockPocketRepository) Create(ctx context.Context, p *pocket.Pocket) error { return nil }

func (m *MockPocketRepository) GetByID(ctx context.Context, id string) (*pocket.Pocket, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, pocket.ErrPocketNotFound
}

func (m *MockPocketRepository) List(ctx context.Context, includeInactive bool) ([]*pocket.Pocket, error) {
	return nil, nil
}

func (m *MockPocketRepository) Update(ctx context.Context, id string, params pocket.UpdateParams) (*pocket.Pocket, error) {
	return nil, nil
}

func (m *MockPocketRepository) Summary(ctx context.Context, id string) (*pocket.Summary, error) {
	return nil, nil
}

func (m *MockPocketRepository) RecalculateBalance(ctx context.Context, id string) (int64, error) {
	return 0, nil
}

// MockCategoryRepository is a mock implementation of category.Repository
type MockCategoryRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*category.Category, error)
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *category.Category) error {
	return nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, category.ErrCategoryNotFound
}

func (m *MockCategoryRepository) List(ctx context.Context, kind category.Kind, includeInactive bool) ([]*category.Category, error) {
	return nil, nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, id string, params category.UpdateParams) (*category.Category, error) {
	return nil, nil
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id string) error { return nil }

var (
	testAdmin     = auth.Identity{UserID: 1, Email: "admin@example.org", Role: auth.RoleAdmin}
	testTreasurer = auth.Identity{UserID: 2, Email: "treasurer@example.org", Role: auth.RoleTreasurer}
	testViewer    = auth.Identity{UserID: 3, Email: "viewer@example.org", Role: auth.RoleViewer}
)

func knownPockets(ids ...string) *MockPocketRepository {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return &MockPocketRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*pocket.Pocket, error) {
			if set[id] {
				return &pocket.Pocket{ID: id, Name: id, Active: true}, nil
			}
			return nil, pocket.ErrPocketNotFound
		},
	}
}

func knownCategories(cats ...*category.Category) *MockCategoryRepository {
	byID := make(map[string]*category.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return &MockCategoryRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*category.Category, error) {
			if c, ok := byID[id]; ok {
				return c, nil
			}
			return nil, category.ErrCategoryNotFound
		},
	}
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return ve.Field
}

func TestDonationServiceCreate(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	zakat := &category.Category{ID: "cat-zakat", Kind: category.KindDonation, Name: "Zakat", Active: true}
	retired := &category.Category{ID: "cat-old", Kind: category.KindDonation, Name: "Old", Active: false}
	electricity := &category.Category{ID: "cat-power", Kind: category.KindExpense, Name: "Electricity", Active: true}

	valid := CreateDonationParams{
		PocketID:      "pocket-1",
		DonorName:     "Hamba Allah",
		PaymentMethod: PaymentTransfer,
		Date:          date,
		Items: []ItemInput{
			{CategoryID: "cat-zakat", Amount: 500_000},
		},
	}

	tests := []struct {
		name      string
		actor     auth.Identity
		params    CreateDonationParams
		wantErr   error
		wantField string
	}{
		{
			name:   "Success as treasurer",
			actor:  testTreasurer,
			params: valid,
		},
		{
			name:    "Viewer forbidden",
			actor:   testViewer,
			params:  valid,
			wantErr: ErrForbidden,
		},
		{
			name:  "Missing date",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: PaymentCash,
				Items:         []ItemInput{{CategoryID: "cat-zakat", Amount: 100}},
			},
			wantField: "date",
		},
		{
			name:  "Unknown payment method",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: "barter",
				Date:          date,
				Items:         []ItemInput{{CategoryID: "cat-zakat", Amount: 100}},
			},
			wantField: "paymentMethod",
		},
		{
			name:  "Unknown pocket",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-missing",
				PaymentMethod: PaymentCash,
				Date:          date,
				Items:         []ItemInput{{CategoryID: "cat-zakat", Amount: 100}},
			},
			wantField: "pocketId",
		},
		{
			name:  "Empty item set",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: PaymentCash,
				Date:          date,
			},
			wantField: "items",
		},
		{
			name:  "Zero amount",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: PaymentCash,
				Date:          date,
				Items:         []ItemInput{{CategoryID: "cat-zakat", Amount: 0}},
			},
			wantField: "items[0].amount",
		},
		{
			name:  "Negative amount",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: PaymentCash,
				Date:          date,
				Items: []ItemInput{
					{CategoryID: "cat-zakat", Amount: 100},
					{CategoryID: "cat-zakat", Amount: -50},
				},
			},
			wantField: "items[1].amount",
		},
		{
			name:  "Unknown category",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: PaymentCash,
				Date:          date,
				Items:         []ItemInput{{CategoryID: "cat-missing", Amount: 100}},
			},
			wantField: "items[0].categoryId",
		},
		{
			name:  "Expense category on donation",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: PaymentCash,
				Date:          date,
				Items:         []ItemInput{{CategoryID: "cat-power", Amount: 100}},
			},
			wantField: "items[0].categoryId",
		},
		{
			name:  "Inactive category",
			actor: testAdmin,
			params: CreateDonationParams{
				PocketID:      "pocket-1",
				PaymentMethod: PaymentCash,
				Date:          date,
				Items:         []ItemInput{{CategoryID: "cat-old", Amount: 100}},
			},
			wantField: "items[0].categoryId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			repo := &MockDonationRepository{
				CreateFunc: func(ctx context.Context, d *Donation) error {
					created = true
					return nil
				},
			}
			svc := NewDonationService(repo, knownPockets("pocket-1"), knownCategories(zakat, retired, electricity))

			d, err := svc.Create(ctx, tt.actor, tt.params)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if created {
					t.Error("repository write should not happen on a rejected create")
				}
				return
			}
			if tt.wantField != "" {
				if got := validationField(t, err); got != tt.wantField {
					t.Errorf("expected field %q, got %q", tt.wantField, got)
				}
				if created {
					t.Error("repository write should not happen on a rejected create")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !created {
				t.Fatal("expected repository write")
			}
			if d.ID == "" {
				t.Error("expected a generated id")
			}
			if d.RecordedBy != tt.actor.UserID {
				t.Errorf("expected recordedBy %d, got %d", tt.actor.UserID, d.RecordedBy)
			}
			if len(d.Items) != 1 || d.Items[0].TransactionID != d.ID {
				t.Error("items should be owned by the created donation")
			}
			if d.TotalAmount() != 500_000 {
				t.Errorf("expected total 500000, got %d", d.TotalAmount())
			}
		})
	}
}

func TestDonationServiceUpdate(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	zakat := &category.Category{ID: "cat-zakat", Kind: category.KindDonation, Name: "Zakat", Active: true}
	infaq := &category.Category{ID: "cat-infaq", Kind: category.KindDonation, Name: "Infaq", Active: true}

	existing := func() *Donation {
		return &Donation{
			ID:            "don-1",
			PocketID:      "pocket-1",
			PaymentMethod: PaymentCash,
			Date:          date,
			RecordedBy:    2,
			Items: []LineItem{
				{ID: "item-1", TransactionID: "don-1", CategoryID: "cat-zakat", Amount: 300},
			},
		}
	}

	strPtr := func(s string) *string { return &s }

	t.Run("Patches header without touching items", func(t *testing.T) {
		var updated *Donation
		repo := &MockDonationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*Donation, error) {
				return existing(), nil
			},
			UpdateFunc: func(ctx context.Context, d *Donation, prevPocketID string) error {
				updated = d
				if prevPocketID != "pocket-1" {
					t.Errorf("expected prev pocket pocket-1, got %s", prevPocketID)
				}
				return nil
			},
		}
		svc := NewDonationService(repo, knownPockets("pocket-1"), knownCategories(zakat, infaq))

		d, err := svc.Update(ctx, testTreasurer, "don-1", DonationPatch{DonorName: strPtr("Fulan")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated == nil {
			t.Fatal("expected repository update")
		}
		if d.DonorName != "Fulan" {
			t.Errorf("expected patched donor name, got %q", d.DonorName)
		}
		if len(d.Items) != 1 || d.Items[0].ID != "item-1" {
			t.Error("nil Items patch must leave the item set untouched")
		}
	})

	t.Run("Replaces item set wholesale", func(t *testing.T) {
		repo := &MockDonationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*Donation, error) {
				return existing(), nil
			},
		}
		svc := NewDonationService(repo, knownPockets("pocket-1"), knownCategories(zakat, infaq))

		d, err := svc.Update(ctx, testTreasurer, "don-1", DonationPatch{
			Items: []ItemInput{
				{CategoryID: "cat-infaq", Amount: 100},
				{CategoryID: "cat-zakat", Amount: 250},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(d.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(d.Items))
		}
		for _, it := range d.Items {
			if it.ID == "item-1" {
				t.Error("replacement must mint new item ids")
			}
			if it.TransactionID != "don-1" {
				t.Errorf("item owned by %s, want don-1", it.TransactionID)
			}
		}
		if d.TotalAmount() != 350 {
			t.Errorf("expected total 350, got %d", d.TotalAmount())
		}
	})

	t.Run("Moving pockets passes the previous pocket", func(t *testing.T) {
		var gotPrev string
		repo := &MockDonationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*Donation, error) {
				return existing(), nil
			},
			UpdateFunc: func(ctx context.Context, d *Donation, prevPocketID string) error {
				gotPrev = prevPocketID
				return nil
			},
		}
		svc := NewDonationService(repo, knownPockets("pocket-1", "pocket-2"), knownCategories(zakat))

		d, err := svc.Update(ctx, testAdmin, "don-1", DonationPatch{PocketID: strPtr("pocket-2")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.PocketID != "pocket-2" {
			t.Errorf("expected pocket-2, got %s", d.PocketID)
		}
		if gotPrev != "pocket-1" {
			t.Errorf("expected previous pocket pocket-1, got %s", gotPrev)
		}
	})

	t.Run("Viewer forbidden", func(t *testing.T) {
		svc := NewDonationService(&MockDonationRepository{}, knownPockets("pocket-1"), knownCategories(zakat))
		if _, err := svc.Update(ctx, testViewer, "don-1", DonationPatch{}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("Unknown donation", func(t *testing.T) {
		svc := NewDonationService(&MockDonationRepository{}, knownPockets("pocket-1"), knownCategories(zakat))
		if _, err := svc.Update(ctx, testAdmin, "don-missing", DonationPatch{}); !errors.Is(err, ErrDonationNotFound) {
			t.Fatalf("expected ErrDonationNotFound, got %v", err)
		}
	})

	t.Run("Empty replacement item set rejected", func(t *testing.T) {
		repo := &MockDonationRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*Donation, error) {
				return existing(), nil
			},
			UpdateFunc: func(ctx context.Context, d *Donation, prevPocketID string) error {
				t.Error("repository write should not happen on a rejected update")
				return nil
			},
		}
		svc := NewDonationService(repo, knownPockets("pocket-1"), knownCategories(zakat))

		_, err := svc.Update(ctx, testAdmin, "don-1", DonationPatch{Items: []ItemInput{}})
		if got := validationField(t, err); got != "items" {
			t.Errorf("expected field items, got %q", got)
		}
	})
}

func TestDonationServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Admin deletes", func(t *testing.T) {
		deleted := false
		repo := &MockDonationRepository{
			DeleteFunc: func(ctx context.Context, id string) error {
				deleted = true
				return nil
			},
		}
		svc := NewDonationService(repo, &MockPocketRepository{}, &MockCategoryRepository{})
		if err := svc.Delete(ctx, testAdmin, "don-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !deleted {
			t.Fatal("expected repository delete")
		}
	})

	t.Run("Treasurer forbidden", func(t *testing.T) {
		svc := NewDonationService(&MockDonationRepository{}, &MockPocketRepository{}, &MockCategoryRepository{})
		if err := svc.Delete(ctx, testTreasurer, "don-1"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestDonationServiceList(t *testing.T) {
	ctx := context.Background()

	t.Run("Normalizes the page", func(t *testing.T) {
		var gotPage Page
		repo := &MockDonationRepository{
			ListFunc: func(ctx context.Context, filter DonationFilter, page Page) ([]*Donation, error) {
				gotPage = page
				return nil, nil
			},
		}
		svc := NewDonationService(repo, &MockPocketRepository{}, &MockCategoryRepository{})
		if _, err := svc.List(ctx, DonationFilter{}, Page{Limit: -1, Offset: -5}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotPage.Limit != 50 || gotPage.Offset != 0 {
			t.Errorf("expected normalized page {50 0}, got %+v", gotPage)
		}
	})

	t.Run("Rejects unknown payment method filter", func(t *testing.T) {
		svc := NewDonationService(&MockDonationRepository{}, &MockPocketRepository{}, &MockCategoryRepository{})
		_, err := svc.List(ctx, DonationFilter{PaymentMethod: "barter"}, Page{})
		if got := validationField(t, err); got != "paymentMethod" {
			t.Errorf("expected field paymentMethod, got %q", got)
		}
	})
}
