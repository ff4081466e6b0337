package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubcategoryService manages subcategory records and their uniqueness rules.
type SubcategoryService struct {
	repo SubcategoryRepository
	lg   *zap.Logger
	now  func() time.Time
}

// NewSubcategoryService creates a SubcategoryService.
func NewSubcategoryService(repo SubcategoryRepository, lg *zap.Logger) *SubcategoryService {
	return &SubcategoryService{repo: repo, lg: lg, now: time.Now}
}

// CreateSubcategoryRequest holds the input for creating a subcategory.
type CreateSubcategoryRequest struct {
	CategoryID  string
	Name        string
	Description string
	ImageURL    string
	Active      bool
}

// Create validates category existence and name uniqueness within the
// category, then persists a new subcategory.
func (s *SubcategoryService) Create(ctx context.Context, req CreateSubcategoryRequest) (*Subcategory, error) {
	if req.Name == "" || req.CategoryID == "" {
		return nil, ErrSubcategoryInvalid
	}

	ok, err := s.repo.CategoryExists(ctx, req.CategoryID)
	if err != nil {
		return nil, errors.Wrap(err, "check category")
	}
	if !ok {
		return nil, ErrCategoryNotFound
	}

	existing, err := s.repo.FindByName(ctx, req.CategoryID, req.Name)
	if err != nil && !errors.Is(err, ErrSubcategoryNotFound) {
		return nil, errors.Wrap(err, "check name")
	}
	if existing != nil {
		return nil, ErrSubcategoryNameTaken
	}

	now := s.now()
	sub := &Subcategory{
		ID:          uuid.New().String(),
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Active:      req.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, errors.Wrap(err, "create subcategory")
	}

	s.lg.Info("Subcategory created", zap.String("id", sub.ID), zap.String("name", sub.Name))
	return sub, nil
}

// UpdateSubcategoryRequest holds the mutable subcategory fields. Nil pointers
// leave the field unchanged.
type UpdateSubcategoryRequest struct {
	Name        *string
	Description *string
	ImageURL    *string
	CategoryID  *string
	Active      *bool
}

// Update applies the given changes, re-checking name uniqueness when the name
// or category moves.
func (s *SubcategoryService) Update(ctx context.Context, id string, req UpdateSubcategoryRequest) (*Subcategory, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil && *req.CategoryID != sub.CategoryID {
		ok, err := s.repo.CategoryExists(ctx, *req.CategoryID)
		if err != nil {
			return nil, errors.Wrap(err, "check category")
		}
		if !ok {
			return nil, ErrCategoryNotFound
		}
		sub.CategoryID = *req.CategoryID
	}

	if req.Name != nil && *req.Name != sub.Name {
		existing, err := s.repo.FindByName(ctx, sub.CategoryID, *req.Name)
		if err != nil && !errors.Is(err, ErrSubcategoryNotFound) {
			return nil, errors.Wrap(err, "check name")
		}
		if existing != nil && existing.ID != id {
			return nil, ErrSubcategoryNameTaken
		}
		sub.Name = *req.Name
	}

	if req.Description != nil {
		sub.Description = *req.Description
	}
	if req.ImageURL != nil {
		sub.ImageURL = *req.ImageURL
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}
	sub.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, errors.Wrap(err, "update subcategory")
	}

	s.lg.Info("Subcategory updated", zap.String("id", id))
	return sub, nil
}

// Delete removes a subcategory, refusing when it still owns products.
func (s *SubcategoryService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return errors.Wrap(err, "count products")
	}
	if count > 0 {
		return ErrSubcategoryHasProducts
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete subcategory")
	}

	s.lg.Info("Subcategory deleted", zap.String("id", id))
	return nil
}

// Get loads one subcategory.
func (s *SubcategoryService) Get(ctx context.Context, id string) (*Subcategory, error) {
	return s.repo.Get(ctx, id)
}

// List returns subcategories, optionally narrowed to one category and to
// active ones only.
func (s *SubcategoryService) List(ctx context.Context, categoryID string, activeOnly bool) ([]Subcategory, error) {
	return s.repo.List(ctx, categoryID, activeOnly)
}

// SetActive toggles the active flag.
func (s *SubcategoryService) SetActive(ctx context.Context, id string, active bool) (*Subcategory, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sub.Active = active
	sub.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, errors.Wrap(err, "update subcategory")
	}

	s.lg.Info("Subcategory status updated", zap.String("id", id), zap.Bool("active", active))
	return sub, nil
}
