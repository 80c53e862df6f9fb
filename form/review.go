package form

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hrygo/reviewflow/client"
	"github.com/hrygo/reviewflow/internal/errors"
)

// ReviewService is the remote surface consumed by the review form.
type ReviewService interface {
	SubmitReview(ctx context.Context, input client.ReviewInput) (*client.Review, error)
}

// ReviewForm is the customer-facing form for writing a product review. It has
// no suggestion operation; rating and product are validated locally before
// the content reaches the orchestrator.
type ReviewForm struct {
	*Orchestrator[*client.Review]

	mu        sync.Mutex
	productID string
	rating    int
}

// NewReviewForm builds the review submission form.
func NewReviewForm(svc ReviewService, onCreated func(*client.Review), logger *slog.Logger) *ReviewForm {
	f := &ReviewForm{}
	f.Orchestrator = New(Config[*client.Review]{
		Submit: func(ctx context.Context, content string) (*client.Review, error) {
			f.mu.Lock()
			productID, rating := f.productID, f.rating
			f.mu.Unlock()
			return svc.SubmitReview(ctx, client.ReviewInput{
				ProductID: productID,
				Rating:    rating,
				Content:   content,
			})
		},
		OnCreated:       onCreated,
		RequiredMessage: "Review content is required",
		Logger:          logger,
	})
	return f
}

// SetProduct selects the reviewed product.
func (f *ReviewForm) SetProduct(productID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productID = productID
}

// SetRating records the star rating.
func (f *ReviewForm) SetRating(rating int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rating = rating
}

// Submit validates product and rating locally, then defers to the
// orchestrator for the content check and the remote call.
func (f *ReviewForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	productID, rating := f.productID, f.rating
	f.mu.Unlock()

	if productID == "" {
		return errors.Validation("Product is required")
	}
	if rating < 1 || rating > 5 {
		return errors.Validation("Rating must be between 1 and 5")
	}
	return f.Orchestrator.Submit(ctx)
}
