// Package slider manages the home-page promotional sliders: position-ordered
// banners with an active toggle.
package slider

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a referenced slider does not exist.
	ErrNotFound = errors.New("slider not found")
)

// ValidationError reports required slider input that is missing.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.MissingFields, ", ")
}

// Slider is one home-page banner.
type Slider struct {
	ID        string
	Title     string
	Subtitle  string
	ImageURL  string
	LinkURL   string
	Position  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the slider persistence boundary. Reorder rewrites every
// listed slider's position in one transaction, first id first.
type Repository interface {
	Get(ctx context.Context, id string) (*Slider, error)
	List(ctx context.Context, activeOnly bool) ([]Slider, error)
	NextPosition(ctx context.Context) (int, error)
	Create(ctx context.Context, s *Slider) error
	Update(ctx context.Context, s *Slider) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	Reorder(ctx context.Context, orderedIDs []string) error
}

// Service applies slider business rules over a Repository.
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

// CreateRequest carries a new slider; it is appended at the end of the
// current ordering and starts active.
type CreateRequest struct {
	Title    string
	Subtitle string
	ImageURL string
	LinkURL  string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Slider, error) {
	var missing []string
	if req.Title == "" {
		missing = append(missing, "title")
	}
	if req.ImageURL == "" {
		missing = append(missing, "imageUrl")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	pos, err := s.repo.NextPosition(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "next position")
	}

	now := s.now()
	sl := &Slider{
		ID:        s.newID(),
		Title:     req.Title,
		Subtitle:  req.Subtitle,
		ImageURL:  req.ImageURL,
		LinkURL:   req.LinkURL,
		Position:  pos,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sl); err != nil {
		return nil, errors.Wrap(err, "create slider")
	}

	s.lg.Info("Slider created", zap.String("slider_id", sl.ID), zap.Int("position", sl.Position))
	return sl, nil
}

// UpdateRequest carries slider changes; nil fields are left untouched.
type UpdateRequest struct {
	Title    *string
	Subtitle *string
	ImageURL *string
	LinkURL  *string
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Slider, error) {
	sl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, &ValidationError{MissingFields: []string{"title"}}
		}
		sl.Title = *req.Title
	}
	if req.Subtitle != nil {
		sl.Subtitle = *req.Subtitle
	}
	if req.ImageURL != nil {
		if *req.ImageURL == "" {
			return nil, &ValidationError{MissingFields: []string{"imageUrl"}}
		}
		sl.ImageURL = *req.ImageURL
	}
	if req.LinkURL != nil {
		sl.LinkURL = *req.LinkURL
	}
	sl.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, sl); err != nil {
		return nil, errors.Wrap(err, "update slider")
	}
	return sl, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

// Reorder rewrites slider positions to match orderedIDs. Every listed id
// must exist.
func (s *Service) Reorder(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return &ValidationError{MissingFields: []string{"sliderIds"}}
	}
	for _, id := range orderedIDs {
		if _, err := s.repo.Get(ctx, id); err != nil {
			return errors.Wrapf(err, "slider %s", id)
		}
	}
	if err := s.repo.Reorder(ctx, orderedIDs); err != nil {
		return errors.Wrap(err, "reorder sliders")
	}
	s.lg.Info("Sliders reordered", zap.Int("count", len(orderedIDs)))
	return nil
}

// Get loads one slider.
func (s *Service) Get(ctx context.Context, id string) (*Slider, error) {
	return s.repo.Get(ctx, id)
}

// List returns sliders in display order. Customers get active ones only.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Slider, error) {
	return s.repo.List(ctx, activeOnly)
}
