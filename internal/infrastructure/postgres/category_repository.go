package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"amanah/internal/domain/category"
)

type CategoryRepository struct {
	db *DB
}

func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (id, kind, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		c.ID, c.Kind, c.Name, c.Description, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return category.ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	query := `
		SELECT id, kind, name, description, active, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	var c category.Category
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Kind, &c.Name, &c.Description, &c.Active,
		&c.CreatedAt, &c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, category.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context, kind category.Kind, includeInactive bool) ([]*category.Category, error) {
	query := `
		SELECT id, kind, name, description, active, created_at, updated_at
		FROM categories
		WHERE kind = $1 AND (active OR $2)
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, kind, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*category.Category
	for rows.Next() {
		var c category.Category
		err := rows.Scan(
			&c.ID, &c.Kind, &c.Name, &c.Description, &c.Active,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id string, params category.UpdateParams) (*category.Category, error) {
	var c category.Category
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT TRUE FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return category.ErrCategoryNotFound
			}
			return fmt.Errorf("failed to lock category: %w", err)
		}

		if params.Active != nil && !*params.Active {
			referenced, err := categoryReferenced(ctx, tx, id)
			if err != nil {
				return err
			}
			if referenced {
				return category.ErrCategoryInUse
			}
		}

		query := `
			UPDATE categories
			SET name = COALESCE($1, name),
			    description = COALESCE($2, description),
			    active = COALESCE($3, active),
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = $4
			RETURNING id, kind, name, description, active, created_at, updated_at
		`
		err := tx.QueryRowContext(
			ctx, query,
			params.Name, params.Description, params.Active, id,
		).Scan(
			&c.ID, &c.Kind, &c.Name, &c.Description, &c.Active,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return category.ErrDuplicateName
		}
		if err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM categories WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if isForeignKeyViolation(err) {
		// Line items reference categories with ON DELETE RESTRICT.
		return category.ErrCategoryInUse
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return category.ErrCategoryNotFound
	}

	return nil
}

func categoryReferenced(ctx context.Context, tx *sql.Tx, categoryID string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM donation_items WHERE category_id = $1)
		    OR EXISTS (SELECT 1 FROM expense_items WHERE category_id = $1)
	`

	var referenced bool
	if err := tx.QueryRowContext(ctx, query, categoryID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("failed to check category references: %w", err)
	}
	return referenced, nil
}
