package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"amanah/internal/domain/category"
	"amanah/internal/domain/pocket"
)

// validateItems re-checks the two item invariants on every create and every
// wholesale replacement: the set is non-empty and every amount is strictly
// positive. Each item's category must resolve to an active category of the
// transaction's kind; shape validation upstream cannot catch dangling
// references, so the engine resolves them itself.
func validateItems(ctx context.Context, categories category.Repository, kind category.Kind, inputs []ItemInput) error {
	if len(inputs) == 0 {
		return invalidf("items", "at least one item required")
	}

	for i, in := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		if in.Amount <= 0 {
			return invalidf(field+".amount", "must be strictly positive")
		}
		if in.CategoryID == "" {
			return invalidf(field+".categoryId", "category is required")
		}

		c, err := categories.GetByID(ctx, in.CategoryID)
		if err != nil {
			if errors.Is(err, category.ErrCategoryNotFound) {
				return invalidf(field+".categoryId", "unknown category %s", in.CategoryID)
			}
			return fmt.Errorf("resolve category %s: %w", in.CategoryID, err)
		}
		if c.Kind != kind {
			return invalidf(field+".categoryId", "category %s is a %s category, want %s", in.CategoryID, c.Kind, kind)
		}
		if !c.Active {
			return invalidf(field+".categoryId", "category %s is inactive", in.CategoryID)
		}
	}

	return nil
}

// validatePocket resolves the header's pocket reference.
func validatePocket(ctx context.Context, pockets pocket.Repository, pocketID string) error {
	if pocketID == "" {
		return invalidf("pocketId", "pocket is required")
	}
	if _, err := pockets.GetByID(ctx, pocketID); err != nil {
		if errors.Is(err, pocket.ErrPocketNotFound) {
			return invalidf("pocketId", "unknown pocket %s", pocketID)
		}
		return fmt.Errorf("resolve pocket %s: %w", pocketID, err)
	}
	return nil
}

// buildItems materializes validated inputs into owned line items.
func buildItems(transactionID string, inputs []ItemInput) []LineItem {
	items := make([]LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = LineItem{
			ID:            uuid.NewString(),
			TransactionID: transactionID,
			CategoryID:    in.CategoryID,
			Amount:        in.Amount,
			Description:   in.Description,
		}
	}
	return items
}
