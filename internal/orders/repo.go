package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// unsettledPayments are the payment states an unpaid order can sit in.
var unsettledPayments = []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusFailed}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	items := order.Items
	order.Items = nil
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
	order.Items = items
	if err != nil {
		return db.MapError(err, "order")
	}
	return nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return db.MapError(err, "order item")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, db.MapError(err, "order")
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction on
// postgres. Other dialects ignore the locking clause.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	qb := r.db.WithContext(ctx)
	if qb.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := qb.First(&order, "id = ?", id).Error; err != nil {
		return nil, db.MapError(err, "order")
	}
	return &order, nil
}

func (r *repository) FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "payment_reference = ?", reference).Error; err != nil {
		return nil, db.MapError(err, "order")
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	qb := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Order
	err := qb.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error
	if err != nil {
		return nil, db.MapError(err, "order")
	}
	return rows, nil
}

func (r *repository) ListInRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, db.MapError(err, "order")
	}
	return rows, nil
}

func (r *repository) ListStalePending(ctx context.Context, cutoff time.Time, methods []enums.PaymentMethod, limit int) ([]models.Order, error) {
	var rows []models.Order
	qb := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("payment_status IN ?", unsettledPayments).
		Where("created_at < ?", cutoff)
	if len(methods) > 0 {
		qb = qb.Where("payment_method IN ?", methods)
	}
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	if err := qb.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, db.MapError(err, "order")
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return db.MapError(res.Error, "order")
	}
	if res.RowsAffected == 0 {
		return db.MapError(gorm.ErrRecordNotFound, "order")
	}
	return nil
}
