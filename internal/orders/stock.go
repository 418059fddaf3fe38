package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

// An order holds stock while orders.stock_reserved is true. Callers run these
// inside the transaction that changes the order.

// ReserveStock takes the order's item quantities out of the product rows. It
// returns a conflict naming the first product that can no longer cover its
// line. An order that already holds its stock is left alone.
func (r *repository) ReserveStock(ctx context.Context, orderID uuid.UUID) error {
	claimed, err := r.flipReservation(ctx, orderID, true)
	if err != nil || !claimed {
		return err
	}
	items, err := r.itemsOf(ctx, orderID)
	if err != nil {
		return err
	}
	for _, item := range items {
		res := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", item.ProductID, item.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", item.Quantity))
		if res.Error != nil {
			return fmt.Errorf("reserve stock for %s: %w", item.ProductID, res.Error)
		}
		if res.RowsAffected == 0 {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "only limited stock of %s remains", item.ProductName).
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
	}
	return nil
}

// ReleaseStock puts the order's item quantities back. It reports false when
// the order held nothing.
func (r *repository) ReleaseStock(ctx context.Context, orderID uuid.UUID) (bool, error) {
	released, err := r.flipReservation(ctx, orderID, false)
	if err != nil || !released {
		return false, err
	}
	items, err := r.itemsOf(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		err := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity)).
			Error
		if err != nil {
			return false, fmt.Errorf("release stock for %s: %w", item.ProductID, err)
		}
	}
	return true, nil
}

func (r *repository) flipReservation(ctx context.Context, orderID uuid.UUID, held bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND stock_reserved = ?", orderID, !held).
		UpdateColumn("stock_reserved", held)
	if res.Error != nil {
		return false, db.MapError(res.Error, "order")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) itemsOf(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Select("product_id", "product_name", "quantity").
		Where("order_id = ?", orderID).
		Order("product_id").
		Find(&items).
		Error
	if err != nil {
		return nil, db.MapError(err, "order item")
	}
	return items, nil
}
