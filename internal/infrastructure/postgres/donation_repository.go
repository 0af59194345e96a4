package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"amanah/internal/domain/ledger"
)

type DonationRepository struct {
	db *DB
}

func NewDonationRepository(db *DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) Create(ctx context.Context, d *ledger.Donation) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO donations (id, pocket_id, donor_name, anonymous, payment_method,
				receipt_ref, notes, date, recorded_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.ExecContext(
			ctx, query,
			d.ID, d.PocketID, d.DonorName, d.Anonymous, d.PaymentMethod,
			d.ReceiptRef, d.Notes, d.Date, d.RecordedBy, d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create donation: %w", err)
		}

		if err := insertDonationItems(ctx, tx, d.Items); err != nil {
			return err
		}

		_, err = recalculatePocket(ctx, tx, d.PocketID)
		return err
	})
}

func (r *DonationRepository) GetByID(ctx context.Context, id string) (*ledger.Donation, error) {
	query := `
		SELECT id, pocket_id, donor_name, anonymous, payment_method,
			receipt_ref, notes, date, recorded_by, created_at, updated_at
		FROM donations
		WHERE id = $1
	`

	var d ledger.Donation
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.PocketID, &d.DonorName, &d.Anonymous, &d.PaymentMethod,
		&d.ReceiptRef, &d.Notes, &d.Date, &d.RecordedBy, &d.CreatedAt, &d.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ledger.ErrDonationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}

	items, err := r.loadItems(ctx, []string{d.ID})
	if err != nil {
		return nil, err
	}
	d.Items = items[d.ID]

	return &d, nil
}

func (r *DonationRepository) List(ctx context.Context, filter ledger.DonationFilter, page ledger.Page) ([]*ledger.Donation, error) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PocketID != "" {
		conditions = append(conditions, "pocket_id = "+arg(filter.PocketID))
	}
	if filter.PaymentMethod != "" {
		conditions = append(conditions, "payment_method = "+arg(filter.PaymentMethod))
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM donation_items di WHERE di.donation_id = donations.id AND di.category_id = "+arg(filter.CategoryID)+")")
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
		SELECT id, pocket_id, donor_name, anonymous, payment_method,
			receipt_ref, notes, date, recorded_by, created_at, updated_at
		FROM donations
		%s
		ORDER BY date DESC, created_at DESC
		LIMIT %s OFFSET %s
	`, where, arg(page.Limit), arg(page.Offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	var donations []*ledger.Donation
	var ids []string
	for rows.Next() {
		var d ledger.Donation
		err := rows.Scan(
			&d.ID, &d.PocketID, &d.DonorName, &d.Anonymous, &d.PaymentMethod,
			&d.ReceiptRef, &d.Notes, &d.Date, &d.RecordedBy, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, &d)
		ids = append(ids, d.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donations: %w", err)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range donations {
		d.Items = items[d.ID]
	}

	return donations, nil
}

func (r *DonationRepository) Update(ctx context.Context, d *ledger.Donation, prevPocketID string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Both pockets are locked before any write so the recalculations
		// run against committed state in a deadlock-free order.
		if err := lockPockets(ctx, tx, d.PocketID, prevPocketID); err != nil {
			return err
		}

		query := `
			UPDATE donations
			SET pocket_id = $1, donor_name = $2, anonymous = $3, payment_method = $4,
			    receipt_ref = $5, notes = $6, date = $7, updated_at = $8
			WHERE id = $9
		`
		result, err := tx.ExecContext(
			ctx, query,
			d.PocketID, d.DonorName, d.Anonymous, d.PaymentMethod,
			d.ReceiptRef, d.Notes, d.Date, d.UpdatedAt, d.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update donation: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ledger.ErrDonationNotFound
		}

		// Item replacement is wholesale: delete all, insert all.
		if _, err := tx.ExecContext(ctx, `DELETE FROM donation_items WHERE donation_id = $1`, d.ID); err != nil {
			return fmt.Errorf("failed to delete donation items: %w", err)
		}
		if err := insertDonationItems(ctx, tx, d.Items); err != nil {
			return err
		}

		if _, err := recalculatePocket(ctx, tx, d.PocketID); err != nil {
			return err
		}
		if prevPocketID != d.PocketID {
			if _, err := recalculatePocket(ctx, tx, prevPocketID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *DonationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var pocketID string
		err := tx.QueryRowContext(ctx, `SELECT pocket_id FROM donations WHERE id = $1`, id).Scan(&pocketID)
		if err == sql.ErrNoRows {
			return ledger.ErrDonationNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get donation: %w", err)
		}

		// Items go with the header via ON DELETE CASCADE.
		if _, err := tx.ExecContext(ctx, `DELETE FROM donations WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete donation: %w", err)
		}

		_, err = recalculatePocket(ctx, tx, pocketID)
		return err
	})
}

func (r *DonationRepository) loadItems(ctx context.Context, donationIDs []string) (map[string][]ledger.LineItem, error) {
	byDonation := make(map[string][]ledger.LineItem)
	if len(donationIDs) == 0 {
		return byDonation, nil
	}

	query := `
		SELECT id, donation_id, category_id, amount, description
		FROM donation_items
		WHERE donation_id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(donationIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load donation items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it ledger.LineItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.CategoryID, &it.Amount, &it.Description); err != nil {
			return nil, fmt.Errorf("failed to scan donation item: %w", err)
		}
		byDonation[it.TransactionID] = append(byDonation[it.TransactionID], it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donation items: %w", err)
	}

	return byDonation, nil
}

func insertDonationItems(ctx context.Context, tx *sql.Tx, items []ledger.LineItem) error {
	query := `
		INSERT INTO donation_items (id, donation_id, category_id, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, query, it.ID, it.TransactionID, it.CategoryID, it.Amount, it.Description); err != nil {
			return fmt.Errorf("failed to insert donation item: %w", err)
		}
	}
	return nil
}
