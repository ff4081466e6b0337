// Package rating manages product ratings: one per user and product, with
// admin-moderated approval and per-user "helpful" marks.
package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a referenced rating does not exist.
	ErrNotFound = errors.New("rating not found")
	// ErrDuplicate is returned when the user already rated the product.
	ErrDuplicate = errors.New("user has already rated this product")
	// ErrAlreadyMarked is returned when the user already marked the rating
	// helpful.
	ErrAlreadyMarked = errors.New("rating already marked helpful")
	// ErrNotMarked is returned when removing a helpful mark that was never set.
	ErrNotMarked = errors.New("rating not marked helpful")
)

// StarsRangeError rejects a star value outside 1..5.
type StarsRangeError struct {
	Stars int
}

func (e *StarsRangeError) Error() string {
	return fmt.Sprintf("stars must be between 1 and 5, got %d", e.Stars)
}

// AuthorizationError rejects a mutation by someone who neither owns the
// rating nor is an admin.
type AuthorizationError struct {
	UserID   string
	RatingID string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s is not allowed to modify rating %s", e.UserID, e.RatingID)
}

// Rating is one user's review of a product.
type Rating struct {
	ID           string
	ProductID    string
	UserID       string
	Stars        int
	Title        string
	Comment      string
	Approved     bool
	HelpfulCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor identifies who performs a mutation; admins bypass ownership checks.
type Actor struct {
	UserID string
	Admin  bool
}

func (a Actor) mayModify(r *Rating) bool {
	return a.Admin || a.UserID == r.UserID
}

// Page bounds a listing request.
type Page struct {
	Number  int
	PerPage int
}

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = 20
	}
	return p
}

// Repository is the rating persistence boundary. MarkHelpful and
// UnmarkHelpful maintain the per-user uniqueness and the helpful counter
// atomically; they return ErrAlreadyMarked / ErrNotMarked respectively.
type Repository interface {
	Get(ctx context.Context, id string) (*Rating, error)
	FindByProductAndUser(ctx context.Context, productID, userID string) (*Rating, error)
	ListByProduct(ctx context.Context, productID string, approvedOnly bool, page Page) ([]Rating, int, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]Rating, int, error)
	Create(ctx context.Context, r *Rating) error
	Update(ctx context.Context, r *Rating) error
	Delete(ctx context.Context, id string) error
	SetApproved(ctx context.Context, id string, approved bool) error
	SetApprovedBulk(ctx context.Context, ids []string, approved bool) (int, error)
	MarkHelpful(ctx context.Context, ratingID, userID string) error
	UnmarkHelpful(ctx context.Context, ratingID, userID string) error
}
