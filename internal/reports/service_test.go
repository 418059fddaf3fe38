package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/internal/users"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/dbtest"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

var reportNow = time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

type reportFixture struct {
	conn    *gorm.DB
	svc     Service
	farmerA uuid.UUID
	farmerB uuid.UUID
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	conn := dbtest.Open(t, dbtest.UsersDDL, dbtest.FarmsDDL, dbtest.ProductsDDL, dbtest.OrdersDDL, dbtest.OrderItemsDDL)
	ctx := context.Background()
	userRepo := users.NewRepository(conn)
	a, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "a@farm.test", PasswordHash: "x", FullName: "Ayanda", Role: enums.RoleFarmer})
	require.NoError(t, err)
	b, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "b@farm.test", PasswordHash: "x", FullName: "Bongani", Role: enums.RoleFarmer})
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.Farm{ID: uuid.New(), FarmerID: a.ID, Name: "Sunrise Farm", Location: "Paarl"}).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return reportNow }
	return &reportFixture{conn: conn, svc: svc, farmerA: a.ID, farmerB: b.ID}
}

func (f *reportFixture) placeOrder(t *testing.T, email string, at time.Time, lines ...models.OrderItem) *models.Order {
	t.Helper()
	repo := orders.NewRepository(f.conn)
	var subtotal int64
	for i := range lines {
		lines[i].LineTotalCents = int64(lines[i].Quantity) * lines[i].UnitPriceCents
		lines[i].CreatedAt = at
		subtotal += lines[i].LineTotalCents
	}
	order := &models.Order{
		UserID:           uuid.New(),
		CustomerName:     "Customer",
		CustomerEmail:    email,
		Phone:            "0821234567",
		SubtotalCents:    subtotal,
		DeliveryFeeCents: 2500,
		TotalCents:       subtotal + 2500,
		Currency:         "ZAR",
		Status:           enums.OrderStatusPending,
		PaymentStatus:    enums.PaymentStatusPending,
		PaymentMethod:    enums.PaymentMethodCash,
		ShippingAddress:  "1 Long Street, Cape Town",
		CreatedAt:        at,
		UpdatedAt:        at,
	}
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, order))
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	require.NoError(t, repo.CreateItems(ctx, lines))
	order.Items = lines
	return order
}

func line(farmerID uuid.UUID, name string, qty int, unit int64) models.OrderItem {
	return models.OrderItem{
		ProductID:      uuid.New(),
		FarmerID:       farmerID,
		ProductName:    name,
		Category:       "vegetables",
		Unit:           "kg",
		Quantity:       qty,
		UnitPriceCents: unit,
	}
}

func TestGenerateRoundTripsCreatedOrder(t *testing.T) {
	f := newReportFixture(t)
	created := f.placeOrder(t, "ann@example.com", reportNow.Add(-time.Hour),
		line(f.farmerA, "Kale", 2, 1800),
		line(f.farmerB, "Beetroot", 3, 1200),
	)

	report, err := f.svc.Generate(context.Background(), Request{ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, report.Orders, 1)
	assert.Equal(t, EntityMarketplace, report.Entity)
	assert.Equal(t, created.ItemCount(), report.Orders[0].ItemCount())
	assert.Equal(t, created.TotalCents, report.Orders[0].TotalCents)
	assert.Equal(t, created.TotalCents, report.TotalRevenueCents)
	require.Len(t, report.Farmers, 2)
	assert.Equal(t, "Sunrise Farm", report.Farmers[0].Farm)
}

func TestGenerateFarmerScope(t *testing.T) {
	f := newReportFixture(t)
	f.placeOrder(t, "ann@example.com", reportNow.Add(-2*time.Hour),
		line(f.farmerA, "Kale", 2, 1800),
		line(f.farmerB, "Beetroot", 3, 1200),
	)
	f.placeOrder(t, "bob@example.com", reportNow.Add(-time.Hour), line(f.farmerB, "Beetroot", 1, 1200))

	report, err := f.svc.Generate(context.Background(), Request{ActorID: f.farmerA, ActorRole: enums.RoleFarmer})
	require.NoError(t, err)
	assert.Equal(t, EntityFarmer, report.Entity)
	assert.Equal(t, 1, report.TotalOrders)
	assert.Equal(t, int64(3600), report.TotalRevenueCents)
	require.Len(t, report.Farmers, 1)
	assert.Equal(t, "Ayanda", report.Farmers[0].Name)
}

func TestGenerateWindowAndAccess(t *testing.T) {
	f := newReportFixture(t)
	f.placeOrder(t, "old@example.com", reportNow.Add(-45*24*time.Hour), line(f.farmerA, "Kale", 1, 1800))
	ctx := context.Background()

	report, err := f.svc.Generate(ctx, Request{ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Zero(t, report.TotalOrders, "default window is thirty days")

	report, err = f.svc.Generate(ctx, Request{ActorRole: enums.RoleAdmin, From: reportNow.Add(-60 * 24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalOrders)

	_, err = f.svc.Generate(ctx, Request{ActorRole: enums.RoleAdmin, From: reportNow, To: reportNow.Add(-time.Hour)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.Generate(ctx, Request{ActorID: uuid.New(), ActorRole: enums.RoleCustomer})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}
