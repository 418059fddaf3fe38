package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
)

// ReviewDTO is a review as shown on a product page.
type ReviewDTO struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	UserID       uuid.UUID `json:"user_id"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary is the aggregate rating for a product.
type Summary struct {
	ProductID uuid.UUID `json:"product_id"`
	Average   float64   `json:"average"`
	Count     int64     `json:"count"`
}

func newDTO(review models.Review, name string) ReviewDTO {
	return ReviewDTO{
		ID:           review.ID,
		ProductID:    review.ProductID,
		UserID:       review.UserID,
		ReviewerName: name,
		Rating:       review.Rating,
		Comment:      review.Comment,
		CreatedAt:    review.CreatedAt,
	}
}
