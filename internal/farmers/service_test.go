package farmers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/internal/products"
	"github.com/farmersbracket/farmersbracket-backend/internal/users"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/dbtest"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	dbtypes "github.com/farmersbracket/farmersbracket-backend/pkg/db/types"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus, farmerID uuid.UUID, quantity int, unitCents int64) {
	t.Helper()
	orderID := uuid.New()
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&models.Order{
		ID:              orderID,
		UserID:          uuid.New(),
		CustomerName:    "Buyer",
		CustomerEmail:   "buyer@example.com",
		Phone:           "0821234567",
		SubtotalCents:   int64(quantity) * unitCents,
		TotalCents:      int64(quantity)*unitCents + 2000,
		Currency:        "ZAR",
		Status:          status,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   enums.PaymentMethodCash,
		ShippingAddress: "12 Main Road, Paarl",
		CreatedAt:       now,
		UpdatedAt:       now,
	}).Error)
	require.NoError(t, conn.Create(&models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductID:      uuid.New(),
		FarmerID:       farmerID,
		ProductName:    "Apples",
		Category:       "fruit",
		Unit:           "kg",
		Quantity:       quantity,
		UnitPriceCents: unitCents,
		LineTotalCents: int64(quantity) * unitCents,
		CreatedAt:      now,
	}).Error)
}

func TestProfileComputesRating(t *testing.T) {
	conn := dbtest.Open(t, dbtest.UsersDDL, dbtest.ProductsDDL, dbtest.OrdersDDL, dbtest.OrderItemsDDL)
	ctx := context.Background()
	userRepo := users.NewRepository(conn)
	farmer, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "farm@example.com", PasswordHash: "x", FullName: "Green Valley", Role: enums.RoleFarmer})
	require.NoError(t, err)

	seedOrder(t, conn, enums.OrderStatusDelivered, farmer.ID, 2, 25000)
	seedOrder(t, conn, enums.OrderStatusProcessing, farmer.ID, 1, 10000)
	seedOrder(t, conn, enums.OrderStatusCancelled, farmer.ID, 5, 99900)
	require.NoError(t, conn.Create(&models.Product{
		ID: uuid.New(), FarmerID: farmer.ID, Name: "Apples", PriceCents: 2500, Unit: "kg",
		Category: "fruit", Images: dbtypes.StringList{}, Quantity: 3,
	}).Error)

	svc, err := NewService(NewRepository(conn), products.NewRepository(conn), userRepo)
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.Sales)
	assert.Equal(t, int64(3), profile.UnitsSold)
	assert.Equal(t, int64(60000), profile.RevenueCents)
	assert.Equal(t, "600.00", profile.Revenue)
	assert.Equal(t, 1, profile.Products)
	// 3 + (0.2 + 0.6 + 0.2) * 2
	assert.Equal(t, 5.0, profile.Rating)

	customer, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "c@example.com", PasswordHash: "x", FullName: "C"})
	require.NoError(t, err)
	_, err = svc.Profile(ctx, customer.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
