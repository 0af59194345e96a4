package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"amanah/internal/domain/pocket"
)

type PocketRepository struct {
	db *DB
}

func NewPocketRepository(db *DB) *PocketRepository {
	return &PocketRepository{db: db}
}

func (r *PocketRepository) Create(ctx context.Context, p *pocket.Pocket) error {
	query := `
		INSERT INTO pockets (id, name, description, current_balance, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		p.ID, p.Name, p.Description, p.CurrentBalance, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return pocket.ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("failed to create pocket: %w", err)
	}

	return nil
}

func (r *PocketRepository) GetByID(ctx context.Context, id string) (*pocket.Pocket, error) {
	query := `
		SELECT id, name, description, current_balance, active, created_at, updated_at
		FROM pockets
		WHERE id = $1
	`

	var p pocket.Pocket
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.CurrentBalance, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, pocket.ErrPocketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pocket: %w", err)
	}

	return &p, nil
}

func (r *PocketRepository) List(ctx context.Context, includeInactive bool) ([]*pocket.Pocket, error) {
	query := `
		SELECT id, name, description, current_balance, active, created_at, updated_at
		FROM pockets
		WHERE active OR $1
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list pockets: %w", err)
	}
	defer rows.Close()

	var pockets []*pocket.Pocket
	for rows.Next() {
		var p pocket.Pocket
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.CurrentBalance, &p.Active,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pocket: %w", err)
		}
		pockets = append(pockets, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pockets: %w", err)
	}

	return pockets, nil
}

func (r *PocketRepository) Update(ctx context.Context, id string, params pocket.UpdateParams) (*pocket.Pocket, error) {
	var p pocket.Pocket
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Lock the row so the in-use check and the deactivation cannot race
		// a concurrent transaction insert.
		if err := lockPockets(ctx, tx, id); err != nil {
			return err
		}

		if params.Active != nil && !*params.Active {
			referenced, err := pocketReferenced(ctx, tx, id)
			if err != nil {
				return err
			}
			if referenced {
				return pocket.ErrPocketInUse
			}
		}

		query := `
			UPDATE pockets
			SET name = COALESCE($1, name),
			    description = COALESCE($2, description),
			    active = COALESCE($3, active),
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = $4
			RETURNING id, name, description, current_balance, active, created_at, updated_at
		`
		err := tx.QueryRowContext(
			ctx, query,
			params.Name, params.Description, params.Active, id,
		).Scan(
			&p.ID, &p.Name, &p.Description, &p.CurrentBalance, &p.Active,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return pocket.ErrDuplicateName
		}
		if err != nil {
			return fmt.Errorf("failed to update pocket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PocketRepository) Summary(ctx context.Context, id string) (*pocket.Summary, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	query := `
		SELECT
			COALESCE((SELECT SUM(di.amount) FROM donation_items di
				JOIN donations d ON d.id = di.donation_id
				WHERE d.pocket_id = $1), 0),
			COALESCE((SELECT SUM(ei.amount) FROM expense_items ei
				JOIN expenses e ON e.id = ei.expense_id
				WHERE e.pocket_id = $1 AND e.status = 'approved'), 0),
			(SELECT COUNT(*) FROM donations WHERE pocket_id = $1),
			(SELECT COUNT(*) FROM expenses WHERE pocket_id = $1)
	`

	sum := pocket.Summary{PocketID: id}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sum.TotalDonations, &sum.TotalApprovedExpenses,
		&sum.DonationCount, &sum.ExpenseCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize pocket: %w", err)
	}

	sum.Balance = sum.TotalDonations - sum.TotalApprovedExpenses
	return &sum, nil
}

func (r *PocketRepository) RecalculateBalance(ctx context.Context, id string) (int64, error) {
	var balance int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		balance, err = recalculatePocket(ctx, tx, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// lockPockets takes the pocket row locks in sorted ID order so concurrent
// mutations touching the same pockets cannot deadlock.
func lockPockets(ctx context.Context, tx *sql.Tx, pocketIDs ...string) error {
	ids := append([]string(nil), pocketIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		var locked bool
		err := tx.QueryRowContext(ctx, `SELECT TRUE FROM pockets WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err == sql.ErrNoRows {
			return pocket.ErrPocketNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock pocket: %w", err)
		}
	}
	return nil
}

// recalculatePocket rewrites the cached balance from a full re-aggregation of
// the pocket's donation items and approved expense items. Every ledger
// mutation calls this inside its own transaction. The pocket row is locked
// first: under READ COMMITTED a blocked UPDATE re-evaluates only the target
// row against its original snapshot, so without the lock a concurrent
// mutation's items would be missing from the aggregation.
func recalculatePocket(ctx context.Context, tx *sql.Tx, pocketID string) (int64, error) {
	if err := lockPockets(ctx, tx, pocketID); err != nil {
		return 0, err
	}

	query := `
		UPDATE pockets
		SET current_balance =
			COALESCE((SELECT SUM(di.amount) FROM donation_items di
				JOIN donations d ON d.id = di.donation_id
				WHERE d.pocket_id = pockets.id), 0)
			-
			COALESCE((SELECT SUM(ei.amount) FROM expense_items ei
				JOIN expenses e ON e.id = ei.expense_id
				WHERE e.pocket_id = pockets.id AND e.status = 'approved'), 0),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING current_balance
	`

	var balance int64
	err := tx.QueryRowContext(ctx, query, pocketID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, pocket.ErrPocketNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to recalculate pocket balance: %w", err)
	}
	return balance, nil
}

func pocketReferenced(ctx context.Context, tx *sql.Tx, pocketID string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM donations WHERE pocket_id = $1)
		    OR EXISTS (SELECT 1 FROM expenses WHERE pocket_id = $1)
	`

	var referenced bool
	if err := tx.QueryRowContext(ctx, query, pocketID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("failed to check pocket references: %w", err)
	}
	return referenced, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
