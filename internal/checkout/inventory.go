package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DecrementInventory atomically reduces a product's stock by qty. The WHERE
// clause guards against concurrent checkouts: when another transaction has
// already taken the stock, no row matches and the caller must reject the
// order. A product whose stock reaches zero is deactivated in the same
// statement so it drops out of the catalog immediately.
func DecrementInventory(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}

	result := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET inventory = inventory - ?,
		    is_active = CASE WHEN inventory - ? <= 0 THEN ? ELSE is_active END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND inventory >= ?`,
		qty, qty, false, productID, qty,
	)
	if result.Error != nil {
		return false, fmt.Errorf("decrementing inventory: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}
