package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/internal/cart"
	"github.com/farmersbracket/farmersbracket-backend/internal/farms"
	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/internal/products"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/dbtest"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	dbtypes "github.com/farmersbracket/farmersbracket-backend/pkg/db/types"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/payfast"
)

type notice struct {
	userID uuid.UUID
	kind   enums.NotificationType
	link   string
}

type stubNotifier struct {
	mu      sync.Mutex
	notices []notice
	err     error
}

func (n *stubNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice{userID: userID, kind: kind, link: link})
	return nil
}

type stubCard struct {
	created     int
	confirmed   int
	createErr   error
	declineWith string
}

func (c *stubCard) Name() string { return "stripe" }

func (c *stubCard) CreateIntent(ctx context.Context, charge CardCharge) (*CardIntent, error) {
	c.created++
	if c.createErr != nil {
		return nil, c.createErr
	}
	return &CardIntent{ID: "pi_" + charge.OrderID.String()[:8], ClientSecret: "secret_" + charge.OrderID.String()[:8]}, nil
}

func (c *stubCard) ConfirmIntent(ctx context.Context, intentID, token string, charge CardCharge) (*CardIntent, error) {
	c.confirmed++
	if c.declineWith != "" {
		return &CardIntent{ID: intentID, FailureMessage: c.declineWith}, nil
	}
	return &CardIntent{ID: intentID, Succeeded: true}, nil
}

type stubWallet struct {
	err error
}

func (w stubWallet) Name() string { return "wallet" }

func (w stubWallet) Charge(ctx context.Context, charge WalletCharge) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	return "wallet_" + charge.OrderID.String()[:8], nil
}

type stubPayFast struct{}

func (stubPayFast) RedirectURL(req payfast.PaymentRequest) (string, error) {
	return "https://sandbox.payfast.co.za/eng/process?m_payment_id=" + req.OrderID, nil
}

type flakyCart struct {
	*cart.Store
	clearErr error
}

func (c flakyCart) Clear(ctx context.Context, userID uuid.UUID) error {
	if c.clearErr != nil {
		return c.clearErr
	}
	return c.Store.Clear(ctx, userID)
}

type harness struct {
	conn     *gorm.DB
	svc      Service
	orders   orders.Service
	store    *cart.Store
	notifier *stubNotifier
	card     *stubCard
	userID   uuid.UUID
}

type harnessOptions struct {
	walletErr error
	clearErr  error
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	conn := dbtest.Open(t,
		dbtest.FarmsDDL,
		dbtest.ProductsDDL,
		dbtest.OrdersDDL,
		dbtest.OrderItemsDDL,
		dbtest.OutboxEventsDDL,
		dbtest.OutboxOrderPaidIndexDDL,
	)
	tx := db.FromGorm(conn)
	events := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	notifier := &stubNotifier{}
	repo := orders.NewRepository(conn)

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     repo,
		Tx:       tx,
		Outbox:   events,
		Farms:    farms.NewRepository(conn),
		Notifier: notifier,
	})
	require.NoError(t, err)

	store, err := cart.NewStore(cart.NewMemoryKV(), time.Hour)
	require.NoError(t, err)

	card := &stubCard{}
	svc, err := NewService(ServiceParams{
		Tx:       tx,
		Orders:   repo,
		Payments: orderSvc,
		Cart:     flakyCart{Store: store, clearErr: opts.clearErr},
		Products: products.NewRepository(conn),
		Outbox:   events,
		Notifier: notifier,
		Card:     card,
		Wallet:   stubWallet{err: opts.walletErr},
		PayFast:  stubPayFast{},
		Pricing: Pricing{
			BaseDeliveryCents: 2000,
			Currency:          "ZAR",
			Slots:             map[string]int64{"standard": 0, "express": 1500, "evening": 500},
		},
	})
	require.NoError(t, err)

	return &harness{
		conn:     conn,
		svc:      svc,
		orders:   orderSvc,
		store:    store,
		notifier: notifier,
		card:     card,
		userID:   uuid.New(),
	}
}

func (h *harness) seedProduct(t *testing.T, name string, priceCents int64, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		FarmerID:   uuid.New(),
		Name:       name,
		PriceCents: priceCents,
		Unit:       "kg",
		Category:   "vegetables",
		Images:     dbtypes.StringList{},
		Quantity:   stock,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, h.conn.Create(&product).Error)
	return product
}

func (h *harness) stock(t *testing.T, product models.Product) int {
	t.Helper()
	var row models.Product
	require.NoError(t, h.conn.First(&row, "id = ?", product.ID).Error)
	return row.Quantity
}

func (h *harness) addToCart(t *testing.T, product models.Product, qty int) {
	t.Helper()
	_, err := h.store.Add(context.Background(), h.userID, cart.Item{
		ProductID:  product.ID,
		FarmerID:   product.FarmerID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Unit:       product.Unit,
		Quantity:   qty,
	})
	require.NoError(t, err)
}

// fillScenarioCart loads 10.00 x 2 and 5.50 x 1.
func (h *harness) fillScenarioCart(t *testing.T) (models.Product, models.Product) {
	t.Helper()
	carrots := h.seedProduct(t, "Carrots", 1000, 10)
	honey := h.seedProduct(t, "Honey", 550, 3)
	h.addToCart(t, carrots, 2)
	h.addToCart(t, honey, 1)
	return carrots, honey
}

func (h *harness) input(method string) SubmitInput {
	return SubmitInput{
		UserID:          h.userID,
		Email:           "thandi@example.com",
		FullName:        "Thandi Nkosi",
		Phone:           "082 123 4567",
		ShippingAddress: "12 Long Street, Cape Town",
		PaymentMethod:   method,
	}
}

func (h *harness) count(t *testing.T, model any, where ...any) int64 {
	t.Helper()
	var n int64
	query := h.conn.Model(model)
	if len(where) > 0 {
		query = query.Where(where[0], where[1:]...)
	}
	require.NoError(t, query.Count(&n).Error)
	return n
}

var errBoom = errors.New("boom")
