package rating

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service applies the rating business rules over a Repository.
type Service struct {
	repo Repository
	lg   *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, lg *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		lg:    lg,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// CreateRequest carries a new rating. Ratings start unapproved and become
// visible after moderation.
type CreateRequest struct {
	ProductID string
	UserID    string
	Stars     int
	Title     string
	Comment   string
}

// Create stores a new rating after validating the star range and the
// one-rating-per-user-and-product rule.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Rating, error) {
	if req.Stars < 1 || req.Stars > 5 {
		return nil, &StarsRangeError{Stars: req.Stars}
	}

	existing, err := s.repo.FindByProductAndUser(ctx, req.ProductID, req.UserID)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicate
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "check existing rating")
	}

	now := s.now()
	r := &Rating{
		ID:        s.newID(),
		ProductID: req.ProductID,
		UserID:    req.UserID,
		Stars:     req.Stars,
		Title:     req.Title,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create rating")
	}

	s.lg.Info("Rating created",
		zap.String("rating_id", r.ID),
		zap.String("product_id", r.ProductID),
		zap.Int("stars", r.Stars),
	)
	return r, nil
}

// UpdateRequest carries rating changes; nil fields are left untouched.
type UpdateRequest struct {
	Stars   *int
	Title   *string
	Comment *string
}

// Update modifies a rating. Only the owner or an admin may do so; an
// updated rating goes back to unapproved for re-moderation.
func (s *Service) Update(ctx context.Context, id string, actor Actor, req UpdateRequest) (*Rating, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayModify(r) {
		return nil, &AuthorizationError{UserID: actor.UserID, RatingID: id}
	}

	if req.Stars != nil {
		if *req.Stars < 1 || *req.Stars > 5 {
			return nil, &StarsRangeError{Stars: *req.Stars}
		}
		r.Stars = *req.Stars
	}
	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Comment != nil {
		r.Comment = *req.Comment
	}
	r.Approved = false
	r.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, errors.Wrap(err, "update rating")
	}
	return r, nil
}

// Delete removes a rating, owner or admin only.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.mayModify(r) {
		return &AuthorizationError{UserID: actor.UserID, RatingID: id}
	}
	return s.repo.Delete(ctx, id)
}

// SetApproved toggles a rating's moderation state.
func (s *Service) SetApproved(ctx context.Context, id string, approved bool) error {
	return s.repo.SetApproved(ctx, id, approved)
}

// ApproveBulk approves a batch of ratings and returns how many changed.
func (s *Service) ApproveBulk(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.SetApprovedBulk(ctx, ids, true)
	if err != nil {
		return 0, errors.Wrap(err, "bulk approve")
	}
	s.lg.Info("Ratings approved", zap.Int("count", n))
	return n, nil
}

// MarkHelpful records that the user found the rating helpful, once per user.
func (s *Service) MarkHelpful(ctx context.Context, ratingID, userID string) error {
	if _, err := s.repo.Get(ctx, ratingID); err != nil {
		return err
	}
	return s.repo.MarkHelpful(ctx, ratingID, userID)
}

// UnmarkHelpful removes the user's helpful mark.
func (s *Service) UnmarkHelpful(ctx context.Context, ratingID, userID string) error {
	if _, err := s.repo.Get(ctx, ratingID); err != nil {
		return err
	}
	return s.repo.UnmarkHelpful(ctx, ratingID, userID)
}

// Get loads one rating.
func (s *Service) Get(ctx context.Context, id string) (*Rating, error) {
	return s.repo.Get(ctx, id)
}

// ListByProduct pages a product's ratings. Non-admin callers only see
// approved ones.
func (s *Service) ListByProduct(ctx context.Context, productID string, actor Actor, page Page) ([]Rating, int, error) {
	return s.repo.ListByProduct(ctx, productID, !actor.Admin, page.normalized())
}

// ListByUser pages one user's own ratings.
func (s *Service) ListByUser(ctx context.Context, userID string, page Page) ([]Rating, int, error) {
	return s.repo.ListByUser(ctx, userID, page.normalized())
}
