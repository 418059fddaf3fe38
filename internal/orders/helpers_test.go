package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/internal/farms"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/dbtest"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	dbtypes "github.com/farmersbracket/farmersbracket-backend/pkg/db/types"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
)

type sentNotification struct {
	userID uuid.UUID
	kind   enums.NotificationType
	link   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{userID: userID, kind: kind, link: link})
	return nil
}

type harness struct {
	conn     *gorm.DB
	repo     Repository
	svc      Service
	notifier *recordingNotifier
	farms    *farms.Repository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t,
		dbtest.FarmsDDL,
		dbtest.ProductsDDL,
		dbtest.OrdersDDL,
		dbtest.OrderItemsDDL,
		dbtest.OutboxEventsDDL,
		dbtest.OutboxOrderPaidIndexDDL,
	)
	repo := NewRepository(conn)
	farmRepo := farms.NewRepository(conn)
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       db.FromGorm(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Farms:    farmRepo,
		Notifier: notifier,
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	return &harness{conn: conn, repo: repo, svc: svc, notifier: notifier, farms: farmRepo}
}

const seedStock = 5

type orderSeed struct {
	userID   uuid.UUID
	farmerID uuid.UUID
	method   enums.PaymentMethod
	status   enums.OrderStatus
	payment  enums.PaymentStatus
	created  time.Time
}

func (h *harness) seedOrder(t *testing.T, seed orderSeed) *models.Order {
	t.Helper()
	if seed.userID == uuid.Nil {
		seed.userID = uuid.New()
	}
	if seed.farmerID == uuid.Nil {
		seed.farmerID = uuid.New()
	}
	if seed.method == "" {
		seed.method = enums.PaymentMethodCard
	}
	if seed.status == "" {
		seed.status = enums.OrderStatusPending
	}
	if seed.payment == "" {
		seed.payment = enums.PaymentStatusPending
	}
	if seed.created.IsZero() {
		seed.created = time.Now().UTC()
	}
	ctx := context.Background()
	tomatoes := h.seedProduct(t, "Tomatoes", seed.farmerID)
	basil := h.seedProduct(t, "Basil", seed.farmerID)
	order := &models.Order{
		UserID:           seed.userID,
		CustomerName:     "Thandi Nkosi",
		CustomerEmail:    "thandi@example.com",
		Phone:            "0821234567",
		SubtotalCents:    2550,
		DeliveryFeeCents: 2000,
		TotalCents:       4550,
		Currency:         "ZAR",
		Status:           seed.status,
		PaymentStatus:    seed.payment,
		PaymentMethod:    seed.method,
		ShippingAddress:  "12 Bree Street, Cape Town",
		CreatedAt:        seed.created,
		UpdatedAt:        seed.created,
	}
	require.NoError(t, h.repo.Create(ctx, order))
	items := []models.OrderItem{
		{OrderID: order.ID, ProductID: tomatoes, FarmerID: seed.farmerID, ProductName: "Tomatoes", Category: "vegetables", Unit: "kg", Quantity: 2, UnitPriceCents: 1000, LineTotalCents: 2000, CreatedAt: seed.created},
		{OrderID: order.ID, ProductID: basil, FarmerID: seed.farmerID, ProductName: "Basil", Category: "herbs", Unit: "bunch", Quantity: 1, UnitPriceCents: 550, LineTotalCents: 550, CreatedAt: seed.created},
	}
	require.NoError(t, h.repo.CreateItems(ctx, items))
	require.NoError(t, h.repo.ReserveStock(ctx, order.ID))
	order.Items = items
	order.StockReserved = true
	return order
}

// seedProduct lists a product with seedStock units on hand.
func (h *harness) seedProduct(t *testing.T, name string, farmerID uuid.UUID) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		FarmerID:   farmerID,
		Name:       name,
		PriceCents: 1000,
		Unit:       "kg",
		Category:   "vegetables",
		Images:     dbtypes.StringList{},
		Quantity:   seedStock,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, h.conn.Create(&product).Error)
	return product.ID
}

// stockLeft returns what each of the order's products still has on hand, in
// item order.
func (h *harness) stockLeft(t *testing.T, order *models.Order) []int {
	t.Helper()
	left := make([]int, 0, len(order.Items))
	for _, item := range order.Items {
		var product models.Product
		require.NoError(t, h.conn.First(&product, "id = ?", item.ProductID).Error)
		left = append(left, product.Quantity)
	}
	return left
}

func (h *harness) outboxCount(t *testing.T, eventType enums.OutboxEventType, orderID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", eventType, orderID).
		Count(&count).Error)
	return count
}
