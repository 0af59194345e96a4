package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"amanah/internal/domain/category"
	"amanah/internal/domain/ledger"
	"amanah/internal/domain/pocket"
	"amanah/internal/infrastructure/memory"
	"amanah/internal/shared/auth"
	"amanah/internal/shared/middleware"
)

var (
	adminIdentity     = auth.Identity{UserID: 1, Email: "admin@example.com", Role: auth.RoleAdmin}
	treasurerIdentity = auth.Identity{UserID: 2, Email: "treasurer@example.com", Role: auth.RoleTreasurer}
	viewerIdentity    = auth.Identity{UserID: 3, Email: "viewer@example.com", Role: auth.RoleViewer}
)

// testEnv wires the handlers to the in-memory backend with one pocket and
// one category of each kind already registered.
type testEnv struct {
	pockets    *PocketHandler
	categories *CategoryHandler
	donations  *DonationHandler
	expenses   *ExpenseHandler

	pocketID      string
	donationCatID string
	expenseCatID  string

	donationSvc *ledger.DonationService
	expenseSvc  *ledger.ExpenseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	pocketSvc := pocket.NewService(memory.NewPocketRepository(store))
	categorySvc := category.NewService(memory.NewCategoryRepository(store))
	donationSvc := ledger.NewDonationService(memory.NewDonationRepository(store), memory.NewPocketRepository(store), memory.NewCategoryRepository(store))
	expenseSvc := ledger.NewExpenseService(memory.NewExpenseRepository(store), memory.NewPocketRepository(store), memory.NewCategoryRepository(store))

	p, err := pocketSvc.CreatePocket(ctx, adminIdentity, pocket.CreateParams{Name: "Operational"})
	if err != nil {
		t.Fatalf("seed pocket: %v", err)
	}
	dc, err := categorySvc.CreateCategory(ctx, adminIdentity, category.CreateParams{Kind: category.KindDonation, Name: "Zakat"})
	if err != nil {
		t.Fatalf("seed donation category: %v", err)
	}
	ec, err := categorySvc.CreateCategory(ctx, adminIdentity, category.CreateParams{Kind: category.KindExpense, Name: "Electricity"})
	if err != nil {
		t.Fatalf("seed expense category: %v", err)
	}

	return &testEnv{
		pockets:       NewPocketHandler(pocketSvc),
		categories:    NewCategoryHandler(categorySvc),
		donations:     NewDonationHandler(donationSvc),
		expenses:      NewExpenseHandler(expenseSvc),
		pocketID:      p.ID,
		donationCatID: dc.ID,
		expenseCatID:  ec.ID,
		donationSvc:   donationSvc,
		expenseSvc:    expenseSvc,
	}
}

func withIdentity(r *http.Request, id auth.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.IdentityKey, id)
	return r.WithContext(ctx)
}

func (e *testEnv) seedDonation(t *testing.T, amount int64) *ledger.Donation {
	t.Helper()
	d, err := e.donationSvc.Create(context.Background(), treasurerIdentity, ledger.CreateDonationParams{
		PocketID:      e.pocketID,
		DonorName:     "Budi",
		PaymentMethod: "cash",
		Date:          time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Items:         []ledger.ItemInput{{CategoryID: e.donationCatID, Amount: amount}},
	})
	if err != nil {
		t.Fatalf("seed donation: %v", err)
	}
	return d
}

func approveExpense(t *testing.T, e *testEnv, id string) {
	t.Helper()
	if _, err := e.expenseSvc.SetApprovalStatus(context.Background(), adminIdentity, id, ledger.StatusApproved); err != nil {
		t.Fatalf("approve expense: %v", err)
	}
}

func (e *testEnv) seedExpense(t *testing.T, amount int64) *ledger.Expense {
	t.Helper()
	x, err := e.expenseSvc.Create(context.Background(), treasurerIdentity, ledger.CreateExpenseParams{
		PocketID:    e.pocketID,
		Description: "March electricity bill",
		Date:        time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Items:       []ledger.ItemInput{{CategoryID: e.expenseCatID, Amount: amount}},
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return x
}
