package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"amanah/internal/domain/category"
	"amanah/internal/domain/ledger"
	"amanah/internal/domain/pocket"
	"amanah/internal/shared/auth"
)

// The tests here run the full engine over the in-memory store: services on
// top of the real repositories, asserting the cached balance after every
// kind of mutation.

var (
	admin     = auth.Identity{UserID: 1, Email: "admin@example.org", Role: auth.RoleAdmin}
	treasurer = auth.Identity{UserID: 2, Email: "treasurer@example.org", Role: auth.RoleTreasurer}
)

type engine struct {
	store      *Store
	pockets    *pocket.Service
	categories *category.Service
	donations  *ledger.DonationService
	expenses   *ledger.ExpenseService

	operational string
	building    string
	zakat       string
	power       string
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	ctx := context.Background()

	store := NewStore()
	pocketRepo := NewPocketRepository(store)
	categoryRepo := NewCategoryRepository(store)

	e := &engine{
		store:      store,
		pockets:    pocket.NewService(pocketRepo),
		categories: category.NewService(categoryRepo),
		donations:  ledger.NewDonationService(NewDonationRepository(store), pocketRepo, categoryRepo),
		expenses:   ledger.NewExpenseService(NewExpenseRepository(store), pocketRepo, categoryRepo),
	}

	op, err := e.pockets.CreatePocket(ctx, admin, pocket.CreateParams{Name: "Operational"})
	if err != nil {
		t.Fatalf("create pocket: %v", err)
	}
	bld, err := e.pockets.CreatePocket(ctx, admin, pocket.CreateParams{Name: "Building Fund"})
	if err != nil {
		t.Fatalf("create pocket: %v", err)
	}
	zakat, err := e.categories.CreateCategory(ctx, admin, category.CreateParams{Kind: category.KindDonation, Name: "Zakat"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	power, err := e.categories.CreateCategory(ctx, admin, category.CreateParams{Kind: category.KindExpense, Name: "Electricity"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	e.operational = op.ID
	e.building = bld.ID
	e.zakat = zakat.ID
	e.power = power.ID
	return e
}

func (e *engine) balance(t *testing.T, pocketID string) int64 {
	t.Helper()
	p, err := e.pockets.GetPocket(context.Background(), pocketID)
	if err != nil {
		t.Fatalf("get pocket: %v", err)
	}
	return p.CurrentBalance
}

func (e *engine) donate(t *testing.T, pocketID string, amounts ...int64) *ledger.Donation {
	t.Helper()
	items := make([]ledger.ItemInput, len(amounts))
	for i, a := range amounts {
		items[i] = ledger.ItemInput{CategoryID: e.zakat, Amount: a}
	}
	d, err := e.donations.Create(context.Background(), treasurer, ledger.CreateDonationParams{
		PocketID:      pocketID,
		PaymentMethod: ledger.PaymentCash,
		Date:          time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Items:         items,
	})
	if err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return d
}

func (e *engine) spend(t *testing.T, pocketID string, amounts ...int64) *ledger.Expense {
	t.Helper()
	items := make([]ledger.ItemInput, len(amounts))
	for i, a := range amounts {
		items[i] = ledger.ItemInput{CategoryID: e.power, Amount: a}
	}
	x, err := e.expenses.Create(context.Background(), treasurer, ledger.CreateExpenseParams{
		PocketID:    pocketID,
		Description: "utilities",
		Date:        time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Items:       items,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return x
}

func TestBalanceFollowsDonationLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	d := e.donate(t, e.operational, 300, 200)
	if got := e.balance(t, e.operational); got != 500 {
		t.Fatalf("balance after create = %d, want 500", got)
	}

	// Wholesale item replacement re-derives the balance from the new set.
	if _, err := e.donations.Update(ctx, treasurer, d.ID, ledger.DonationPatch{
		Items: []ledger.ItemInput{{CategoryID: e.zakat, Amount: 150}},
	}); err != nil {
		t.Fatalf("update donation: %v", err)
	}
	if got := e.balance(t, e.operational); got != 150 {
		t.Fatalf("balance after item replacement = %d, want 150", got)
	}

	if err := e.donations.Delete(ctx, admin, d.ID); err != nil {
		t.Fatalf("delete donation: %v", err)
	}
	if got := e.balance(t, e.operational); got != 0 {
		t.Fatalf("balance after delete = %d, want 0", got)
	}
	if _, err := e.donations.Get(ctx, d.ID); !errors.Is(err, ledger.ErrDonationNotFound) {
		t.Fatalf("expected ErrDonationNotFound after delete, got %v", err)
	}
}

func TestBalanceFollowsApprovalWorkflow(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	e.donate(t, e.operational, 1000)
	x := e.spend(t, e.operational, 400)

	// Pending expenses never count.
	if got := e.balance(t, e.operational); got != 1000 {
		t.Fatalf("balance with pending expense = %d, want 1000", got)
	}

	approved, err := e.expenses.SetApprovalStatus(ctx, admin, x.ID, ledger.StatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != admin.UserID {
		t.Fatalf("expected approvedBy %d, got %v", admin.UserID, approved.ApprovedBy)
	}
	if got := e.balance(t, e.operational); got != 600 {
		t.Fatalf("balance after approval = %d, want 600", got)
	}

	rejected, err := e.expenses.SetApprovalStatus(ctx, admin, x.ID, ledger.StatusRejected)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.ApprovedBy != nil {
		t.Fatal("rejecting must clear the approvedBy stamp")
	}
	if got := e.balance(t, e.operational); got != 1000 {
		t.Fatalf("balance after rejection = %d, want 1000", got)
	}

	// Rejected expenses can re-enter approved.
	if _, err := e.expenses.SetApprovalStatus(ctx, admin, x.ID, ledger.StatusApproved); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if got := e.balance(t, e.operational); got != 600 {
		t.Fatalf("balance after re-approval = %d, want 600", got)
	}

	if err := e.expenses.Delete(ctx, admin, x.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if got := e.balance(t, e.operational); got != 1000 {
		t.Fatalf("balance after expense delete = %d, want 1000", got)
	}
}

func TestMovingTransactionsRecalculatesBothPockets(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	d := e.donate(t, e.operational, 500)
	x := e.spend(t, e.operational, 200)
	if _, err := e.expenses.SetApprovalStatus(ctx, admin, x.ID, ledger.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := e.balance(t, e.operational); got != 300 {
		t.Fatalf("operational balance = %d, want 300", got)
	}

	if _, err := e.donations.Update(ctx, treasurer, d.ID, ledger.DonationPatch{PocketID: &e.building}); err != nil {
		t.Fatalf("move donation: %v", err)
	}
	if got := e.balance(t, e.operational); got != -200 {
		t.Fatalf("operational balance after move = %d, want -200", got)
	}
	if got := e.balance(t, e.building); got != 500 {
		t.Fatalf("building balance after move = %d, want 500", got)
	}

	if _, err := e.expenses.Update(ctx, treasurer, x.ID, ledger.ExpensePatch{PocketID: &e.building}); err != nil {
		t.Fatalf("move expense: %v", err)
	}
	if got := e.balance(t, e.operational); got != 0 {
		t.Fatalf("operational balance after expense move = %d, want 0", got)
	}
	if got := e.balance(t, e.building); got != 300 {
		t.Fatalf("building balance after expense move = %d, want 300", got)
	}
}

func TestFailedItemWriteLeavesNoOrphanHeader(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	e.donate(t, e.operational, 1000)

	e.store.FailNextItemWrite(errors.New("disk full"))
	_, err := e.donations.Create(ctx, treasurer, ledger.CreateDonationParams{
		PocketID:      e.operational,
		PaymentMethod: ledger.PaymentCash,
		Date:          time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		Items:         []ledger.ItemInput{{CategoryID: e.zakat, Amount: 999}},
	})
	if err == nil {
		t.Fatal("expected the injected failure to surface")
	}

	// The header written before the failure must not be observable.
	list, err := e.donations.List(ctx, ledger.DonationFilter{PocketID: e.operational}, ledger.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 donation after rolled-back create, got %d", len(list))
	}
	if got := e.balance(t, e.operational); got != 1000 {
		t.Fatalf("balance after rolled-back create = %d, want 1000", got)
	}
}

func TestFailedItemWriteRollsBackUpdate(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	d := e.donate(t, e.operational, 1000)

	e.store.FailNextItemWrite(errors.New("disk full"))
	_, err := e.donations.Update(ctx, treasurer, d.ID, ledger.DonationPatch{
		Items: []ledger.ItemInput{{CategoryID: e.zakat, Amount: 5}},
	})
	if err == nil {
		t.Fatal("expected the injected failure to surface")
	}

	got, err := e.donations.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalAmount() != 1000 {
		t.Fatalf("stored donation total = %d, want the pre-update 1000", got.TotalAmount())
	}
	if bal := e.balance(t, e.operational); bal != 1000 {
		t.Fatalf("balance after rolled-back update = %d, want 1000", bal)
	}
}

func TestReconcileReportsZeroDrift(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	e.donate(t, e.operational, 800)
	x := e.spend(t, e.operational, 300)
	if _, err := e.expenses.SetApprovalStatus(ctx, admin, x.ID, ledger.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Recalculation is a full re-aggregation, so repeating it cannot move
	// the balance.
	for i := 0; i < 3; i++ {
		rec, err := e.pockets.Reconcile(ctx, admin, e.operational)
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if rec.Drift != 0 {
			t.Fatalf("drift = %d, want 0", rec.Drift)
		}
		if rec.BalanceAfter != 500 {
			t.Fatalf("balance after reconcile = %d, want 500", rec.BalanceAfter)
		}
	}
}

func TestConcurrentMutationsKeepBalanceConsistent(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	// Interleaved donations and approvals on one pocket must leave the
	// cached balance equal to the full re-aggregation: a recalculation that
	// misses a concurrent writer's items is a lost update.
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.donations.Create(ctx, treasurer, ledger.CreateDonationParams{
				PocketID:      e.operational,
				PaymentMethod: ledger.PaymentCash,
				Date:          time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
				Items:         []ledger.ItemInput{{CategoryID: e.zakat, Amount: 100}},
			}); err != nil {
				t.Errorf("create donation: %v", err)
				return
			}

			x, err := e.expenses.Create(ctx, treasurer, ledger.CreateExpenseParams{
				PocketID:    e.operational,
				Description: "utilities",
				Date:        time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
				Items:       []ledger.ItemInput{{CategoryID: e.power, Amount: 30}},
			})
			if err != nil {
				t.Errorf("create expense: %v", err)
				return
			}
			if _, err := e.expenses.SetApprovalStatus(ctx, admin, x.ID, ledger.StatusApproved); err != nil {
				t.Errorf("approve: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := e.balance(t, e.operational); got != writers*(100-30) {
		t.Errorf("balance = %d, want %d", got, writers*(100-30))
	}
	rec, err := e.pockets.Reconcile(ctx, admin, e.operational)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rec.Drift != 0 {
		t.Errorf("drift = %d, want 0", rec.Drift)
	}
}

func TestPocketSummary(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	e.donate(t, e.operational, 600)
	e.donate(t, e.operational, 400)
	x := e.spend(t, e.operational, 250)
	e.spend(t, e.operational, 50) // stays pending
	if _, err := e.expenses.SetApprovalStatus(ctx, admin, x.ID, ledger.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}

	sum, err := e.pockets.GetSummary(ctx, e.operational)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalDonations != 1000 {
		t.Errorf("TotalDonations = %d, want 1000", sum.TotalDonations)
	}
	if sum.TotalApprovedExpenses != 250 {
		t.Errorf("TotalApprovedExpenses = %d, want 250", sum.TotalApprovedExpenses)
	}
	if sum.Balance != 750 {
		t.Errorf("Balance = %d, want 750", sum.Balance)
	}
	if sum.DonationCount != 2 || sum.ExpenseCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", sum.DonationCount, sum.ExpenseCount)
	}
}

func TestReferencedRegistryEntriesAreProtected(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	e.donate(t, e.operational, 100)

	inactive := false
	if _, err := e.pockets.UpdatePocket(ctx, admin, e.operational, pocket.UpdateParams{Active: &inactive}); !errors.Is(err, pocket.ErrPocketInUse) {
		t.Fatalf("expected ErrPocketInUse, got %v", err)
	}

	if err := e.categories.DeleteCategory(ctx, admin, e.zakat); !errors.Is(err, category.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse on delete, got %v", err)
	}
	if _, err := e.categories.UpdateCategory(ctx, admin, e.zakat, category.UpdateParams{Active: &inactive}); !errors.Is(err, category.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse on deactivation, got %v", err)
	}

	// Unreferenced entries can go.
	if err := e.categories.DeleteCategory(ctx, admin, e.power); err != nil {
		t.Fatalf("delete unreferenced category: %v", err)
	}

	// The building pocket has no transactions and deactivates cleanly.
	if _, err := e.pockets.UpdatePocket(ctx, admin, e.building, pocket.UpdateParams{Active: &inactive}); err != nil {
		t.Fatalf("deactivate unreferenced pocket: %v", err)
	}
}

func TestListOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	dates := []time.Time{
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, date := range dates {
		if _, err := e.donations.Create(ctx, treasurer, ledger.CreateDonationParams{
			PocketID:      e.operational,
			PaymentMethod: ledger.PaymentCash,
			Date:          date,
			Items:         []ledger.ItemInput{{CategoryID: e.zakat, Amount: int64(i+1) * 10}},
		}); err != nil {
			t.Fatalf("create donation: %v", err)
		}
	}

	list, err := e.donations.List(ctx, ledger.DonationFilter{}, ledger.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 donations, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Date.After(list[i-1].Date) {
			t.Fatal("expected newest-first ordering")
		}
	}

	page, err := e.donations.List(ctx, ledger.DonationFilter{}, ledger.Page{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 donation on the last page, got %d", len(page))
	}
	offEnd, err := e.donations.List(ctx, ledger.DonationFilter{}, ledger.Page{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(offEnd) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(offEnd))
	}
}
