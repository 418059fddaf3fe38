package reviews

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

const (
	minRating        = 1
	maxRating        = 5
	maxCommentLength = 2000
)

// ErrAlreadyReviewed is returned when the user already reviewed the product.
var ErrAlreadyReviewed = pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")

type reviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error)
	Totals(ctx context.Context, productID uuid.UUID) (count, sum int64, err error)
}

type productLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type userNamer interface {
	Names(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Service manages product reviews.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ReviewDTO, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[ReviewDTO], error)
	Summary(ctx context.Context, productID uuid.UUID) (*Summary, error)
}

// CreateInput is a new review from the signed-in user.
type CreateInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

type service struct {
	repo     reviewStore
	products productLookup
	users    userNamer
}

// NewService builds the review service. users is optional and only used to
// show reviewer names.
func NewService(repo reviewStore, products productLookup, users userNamer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &service{repo: repo, products: products, users: users}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ReviewDTO, error) {
	fields := pkgerrors.FieldErrors{}
	if input.ProductID == uuid.Nil {
		fields["product_id"] = "is required"
	}
	if input.Rating < minRating || input.Rating > maxRating {
		fields["rating"] = fmt.Sprintf("must be between %d and %d", minRating, maxRating)
	}
	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		fields["comment"] = fmt.Sprintf("must be at most %d characters", maxCommentLength)
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}

	found, err := s.products.FindByIDs(ctx, []uuid.UUID{input.ProductID})
	if err != nil {
		return nil, err
	}
	if _, ok := found[input.ProductID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	review := &models.Review{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
	}
	if comment != "" {
		review.Comment = &comment
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}
	dto := newDTO(*review, "")
	return &dto, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[ReviewDTO], error) {
	cursor, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByProduct(ctx, productID, cursor, limit)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, limit, func(r models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})

	names := map[uuid.UUID]string{}
	if s.users != nil && len(page.Items) > 0 {
		ids := make([]uuid.UUID, 0, len(page.Items))
		for _, row := range page.Items {
			ids = append(ids, row.UserID)
		}
		if names, err = s.users.Names(ctx, ids); err != nil {
			return nil, err
		}
	}

	items := make([]ReviewDTO, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, newDTO(row, names[row.UserID]))
	}
	return &pagination.Page[ReviewDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

// Summary averages ratings to one decimal place. A product without reviews
// averages 0.
func (s *service) Summary(ctx context.Context, productID uuid.UUID) (*Summary, error) {
	count, sum, err := s.repo.Totals(ctx, productID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{ProductID: productID, Count: count}
	if count > 0 {
		summary.Average = decimal.NewFromInt(sum).
			Div(decimal.NewFromInt(count)).
			Round(1).
			InexactFloat64()
	}
	return summary, nil
}
