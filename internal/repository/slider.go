package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftline/storefront/internal/domain/slider"
)

const (
	sliderColumns = `id, title, subtitle, image_url, link_url, position, active, created_at, updated_at`

	getSliderSQL = `SELECT ` + sliderColumns + ` FROM home_sliders WHERE id = $1`

	listSlidersSQL = `SELECT ` + sliderColumns + ` FROM home_sliders
		WHERE (NOT $1 OR active) ORDER BY position`

	nextSliderPositionSQL = `SELECT COALESCE(max(position), 0) + 1 FROM home_sliders`

	insertSliderSQL = `INSERT INTO home_sliders (id, title, subtitle, image_url, link_url, position, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateSliderSQL = `UPDATE home_sliders SET title = $2, subtitle = $3, image_url = $4, link_url = $5, updated_at = $6
		WHERE id = $1`

	deleteSliderSQL = `DELETE FROM home_sliders WHERE id = $1`

	setSliderActiveSQL = `UPDATE home_sliders SET active = $2, updated_at = now() WHERE id = $1`

	setSliderPositionSQL = `UPDATE home_sliders SET position = $2, updated_at = now() WHERE id = $1`
)

var _ slider.Repository = (*SliderRepository)(nil)

// SliderRepository implements slider.Repository backed by PostgreSQL.
type SliderRepository struct {
	pool *pgxpool.Pool
}

// NewSliderRepository returns a SliderRepository that uses the given pool.
func NewSliderRepository(pool *pgxpool.Pool) *SliderRepository {
	return &SliderRepository{pool: pool}
}

func (r *SliderRepository) Get(ctx context.Context, id string) (*slider.Slider, error) {
	rows, err := r.pool.Query(ctx, getSliderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting slider %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSlider)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, slider.ErrNotFound
		}
		return nil, fmt.Errorf("getting slider %q: %w", id, err)
	}
	return &s, nil
}

func (r *SliderRepository) List(ctx context.Context, activeOnly bool) ([]slider.Slider, error) {
	rows, err := r.pool.Query(ctx, listSlidersSQL, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("listing sliders: %w", err)
	}
	return pgx.CollectRows(rows, scanSlider)
}

func (r *SliderRepository) NextPosition(ctx context.Context) (int, error) {
	var pos int
	if err := r.pool.QueryRow(ctx, nextSliderPositionSQL).Scan(&pos); err != nil {
		return 0, fmt.Errorf("next slider position: %w", err)
	}
	return pos, nil
}

func (r *SliderRepository) Create(ctx context.Context, s *slider.Slider) error {
	_, err := r.pool.Exec(ctx, insertSliderSQL,
		s.ID, s.Title, s.Subtitle, s.ImageURL, s.LinkURL, s.Position, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating slider %q: %w", s.Title, err)
	}
	return nil
}

func (r *SliderRepository) Update(ctx context.Context, s *slider.Slider) error {
	tag, err := r.pool.Exec(ctx, updateSliderSQL,
		s.ID, s.Title, s.Subtitle, s.ImageURL, s.LinkURL, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating slider %q: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return slider.ErrNotFound
	}
	return nil
}

func (r *SliderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteSliderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting slider %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return slider.ErrNotFound
	}
	return nil
}

func (r *SliderRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, setSliderActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("toggling slider %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return slider.ErrNotFound
	}
	return nil
}

// Reorder rewrites every listed slider's position in one transaction, first
// id first.
func (r *SliderRepository) Reorder(ctx context.Context, orderedIDs []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i, id := range orderedIDs {
			tag, err := tx.Exec(ctx, setSliderPositionSQL, id, i+1)
			if err != nil {
				return fmt.Errorf("positioning slider %q: %w", id, err)
			}
			if tag.RowsAffected() == 0 {
				return slider.ErrNotFound
			}
		}
		return nil
	})
}

func scanSlider(row pgx.CollectableRow) (slider.Slider, error) {
	var s slider.Slider
	err := row.Scan(&s.ID, &s.Title, &s.Subtitle, &s.ImageURL, &s.LinkURL,
		&s.Position, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
