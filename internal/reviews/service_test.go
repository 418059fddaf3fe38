package reviews

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
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

func setup(t *testing.T) (Service, *gorm.DB, uuid.UUID) {
	t.Helper()
	conn := dbtest.Open(t, dbtest.UsersDDL, dbtest.ProductsDDL, dbtest.ReviewsDDL)
	product := &models.Product{
		ID:         uuid.New(),
		FarmerID:   uuid.New(),
		Name:       "Heirloom Tomatoes",
		PriceCents: 3500,
		Unit:       "kg",
		Category:   "vegetables",
		Images:     dbtypes.StringList{},
		Quantity:   10,
	}
	require.NoError(t, conn.Create(product).Error)

	svc, err := NewService(NewRepository(conn), products.NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn, product.ID
}

func seedUser(t *testing.T, conn *gorm.DB, name string) uuid.UUID {
	t.Helper()
	user, err := users.NewRepository(conn).Create(context.Background(), users.CreateUserDTO{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FullName:     name,
	})
	require.NoError(t, err)
	return user.ID
}

func TestCreateReviewOncePerUser(t *testing.T) {
	svc, conn, productID := setup(t)
	ctx := context.Background()
	userID := seedUser(t, conn, "Naledi")

	review, err := svc.Create(ctx, CreateInput{UserID: userID, ProductID: productID, Rating: 5, Comment: "  juicy  "})
	require.NoError(t, err)
	require.NotNil(t, review.Comment)
	assert.Equal(t, "juicy", *review.Comment)

	_, err = svc.Create(ctx, CreateInput{UserID: userID, ProductID: productID, Rating: 4})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestCreateReviewValidation(t *testing.T) {
	svc, conn, productID := setup(t)
	ctx := context.Background()
	userID := seedUser(t, conn, "Pieter")

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(ctx, CreateInput{UserID: userID, ProductID: productID, Rating: rating})
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "rating %d", rating)
	}

	_, err := svc.Create(ctx, CreateInput{UserID: userID, ProductID: uuid.New(), Rating: 3})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestSummaryRoundsToOneDecimal(t *testing.T) {
	svc, conn, productID := setup(t)
	ctx := context.Background()

	empty, err := svc.Summary(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Count)
	assert.Equal(t, 0.0, empty.Average)

	for _, rating := range []int{5, 4, 4} {
		_, err := svc.Create(ctx, CreateInput{UserID: seedUser(t, conn, "R"), ProductID: productID, Rating: rating})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Count)
	assert.Equal(t, 4.3, summary.Average)
}

func TestListByProductPaginates(t *testing.T) {
	svc, conn, productID := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		userID := seedUser(t, conn, "Reviewer")
		require.NoError(t, conn.Create(&models.Review{
			ID:        uuid.New(),
			ProductID: productID,
			UserID:    userID,
			Rating:    i + 1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	first, err := svc.ListByProduct(ctx, productID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, 3, first.Items[0].Rating)
	assert.Equal(t, "Reviewer", first.Items[0].ReviewerName)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListByProduct(ctx, productID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, 1, second.Items[0].Rating)
	assert.Empty(t, second.NextCursor)

	_, err = svc.ListByProduct(ctx, productID, pagination.Params{Cursor: "nope"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
