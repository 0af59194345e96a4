package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"amanah/internal/domain/ledger"
)

type ExpenseRepository struct {
	db *DB
}

func NewExpenseRepository(db *DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *ledger.Expense) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO expenses (id, pocket_id, description, receipt_ref, notes,
				date, status, approved_by, recorded_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.ExecContext(
			ctx, query,
			e.ID, e.PocketID, e.Description, e.ReceiptRef, e.Notes,
			e.Date, e.Status, e.ApprovedBy, e.RecordedBy, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		if err := insertExpenseItems(ctx, tx, e.Items); err != nil {
			return err
		}

		_, err = recalculatePocket(ctx, tx, e.PocketID)
		return err
	})
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*ledger.Expense, error) {
	query := `
		SELECT id, pocket_id, description, receipt_ref, notes,
			date, status, approved_by, recorded_by, created_at, updated_at
		FROM expenses
		WHERE id = $1
	`

	var e ledger.Expense
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.PocketID, &e.Description, &e.ReceiptRef, &e.Notes,
		&e.Date, &e.Status, &e.ApprovedBy, &e.RecordedBy, &e.CreatedAt, &e.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ledger.ErrExpenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	items, err := r.loadItems(ctx, []string{e.ID})
	if err != nil {
		return nil, err
	}
	e.Items = items[e.ID]

	return &e, nil
}

func (r *ExpenseRepository) List(ctx context.Context, filter ledger.ExpenseFilter, page ledger.Page) ([]*ledger.Expense, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PocketID != "" {
		conditions = append(conditions, "pocket_id = "+arg(filter.PocketID))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+arg(filter.Status))
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM expense_items ei WHERE ei.expense_id = expenses.id AND ei.category_id = "+arg(filter.CategoryID)+")")
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "date >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "date <= "+arg(filter.To))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, pocket_id, description, receipt_ref, notes,
			date, status, approved_by, recorded_by, created_at, updated_at
		FROM expenses
		%s
		ORDER BY date DESC, created_at DESC
		LIMIT %s OFFSET %s
	`, where, arg(page.Limit), arg(page.Offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*ledger.Expense
	var ids []string
	for rows.Next() {
		var e ledger.Expense
		err := rows.Scan(
			&e.ID, &e.PocketID, &e.Description, &e.ReceiptRef, &e.Notes,
			&e.Date, &e.Status, &e.ApprovedBy, &e.RecordedBy, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, &e)
		ids = append(ids, e.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		e.Items = items[e.ID]
	}

	return expenses, nil
}

func (r *ExpenseRepository) Update(ctx context.Context, e *ledger.Expense, prevPocketID string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Both pockets are locked before any write so the recalculations
		// run against committed state in a deadlock-free order.
		if err := lockPockets(ctx, tx, e.PocketID, prevPocketID); err != nil {
			return err
		}

		query := `
			UPDATE expenses
			SET pocket_id = $1, description = $2, receipt_ref = $3, notes = $4,
			    date = $5, updated_at = $6
			WHERE id = $7
		`
		result, err := tx.ExecContext(
			ctx, query,
			e.PocketID, e.Description, e.ReceiptRef, e.Notes,
			e.Date, e.UpdatedAt, e.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ledger.ErrExpenseNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_items WHERE expense_id = $1`, e.ID); err != nil {
			return fmt.Errorf("failed to delete expense items: %w", err)
		}
		if err := insertExpenseItems(ctx, tx, e.Items); err != nil {
			return err
		}

		if _, err := recalculatePocket(ctx, tx, e.PocketID); err != nil {
			return err
		}
		if prevPocketID != e.PocketID {
			if _, err := recalculatePocket(ctx, tx, prevPocketID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var pocketID string
		err := tx.QueryRowContext(ctx, `SELECT pocket_id FROM expenses WHERE id = $1`, id).Scan(&pocketID)
		if err == sql.ErrNoRows {
			return ledger.ErrExpenseNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get expense: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}

		_, err = recalculatePocket(ctx, tx, pocketID)
		return err
	})
}

func (r *ExpenseRepository) SetStatus(ctx context.Context, id string, status ledger.Status, approvedBy *int64) (*ledger.Expense, error) {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE expenses
			SET status = $1, approved_by = $2, updated_at = CURRENT_TIMESTAMP
			WHERE id = $3
			RETURNING pocket_id
		`
		var pocketID string
		err := tx.QueryRowContext(ctx, query, status, approvedBy, id).Scan(&pocketID)
		if err == sql.ErrNoRows {
			return ledger.ErrExpenseNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to set expense status: %w", err)
		}

		_, err = recalculatePocket(ctx, tx, pocketID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *ExpenseRepository) loadItems(ctx context.Context, expenseIDs []string) (map[string][]ledger.LineItem, error) {
	byExpense := make(map[string][]ledger.LineItem)
	if len(expenseIDs) == 0 {
		return byExpense, nil
	}

	query := `
		SELECT id, expense_id, category_id, amount, description
		FROM expense_items
		WHERE expense_id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(expenseIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load expense items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it ledger.LineItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.CategoryID, &it.Amount, &it.Description); err != nil {
			return nil, fmt.Errorf("failed to scan expense item: %w", err)
		}
		byExpense[it.TransactionID] = append(byExpense[it.TransactionID], it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense items: %w", err)
	}

	return byExpense, nil
}

func insertExpenseItems(ctx context.Context, tx *sql.Tx, items []ledger.LineItem) error {
	query := `
		INSERT INTO expense_items (id, expense_id, category_id, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, query, it.ID, it.TransactionID, it.CategoryID, it.Amount, it.Description); err != nil {
			return fmt.Errorf("failed to insert expense item: %w", err)
		}
	}
	return nil
}
