package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftline/storefront/internal/domain/rating"
)

const (
	ratingColumns = `id, product_id, user_id, stars, title, comment, approved, helpful_count, created_at, updated_at`

	getRatingSQL = `SELECT ` + ratingColumns + ` FROM ratings WHERE id = $1`

	findRatingByProductAndUserSQL = `SELECT ` + ratingColumns + ` FROM ratings
		WHERE product_id = $1 AND user_id = $2`

	listRatingsByProductSQL = `SELECT ` + ratingColumns + ` FROM ratings
		WHERE product_id = $1 AND (NOT $2 OR approved)
		ORDER BY helpful_count DESC, created_at DESC
		LIMIT $3 OFFSET $4`

	countRatingsByProductSQL = `SELECT count(*) FROM ratings
		WHERE product_id = $1 AND (NOT $2 OR approved)`

	listRatingsByUserSQL = `SELECT ` + ratingColumns + ` FROM ratings
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	countRatingsByUserSQL = `SELECT count(*) FROM ratings WHERE user_id = $1`

	insertRatingSQL = `INSERT INTO ratings (id, product_id, user_id, stars, title, comment, approved, helpful_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	updateRatingSQL = `UPDATE ratings SET stars = $2, title = $3, comment = $4, approved = $5, updated_at = $6
		WHERE id = $1`

	deleteRatingSQL = `DELETE FROM ratings WHERE id = $1`

	setRatingApprovedSQL = `UPDATE ratings SET approved = $2, updated_at = now() WHERE id = $1`

	setRatingApprovedBulkSQL = `UPDATE ratings SET approved = $2, updated_at = now()
		WHERE id = ANY($1) AND approved <> $2`

	insertHelpfulSQL = `INSERT INTO helpful_ratings (id, rating_id, user_id)
		VALUES ($1, $2, $3) ON CONFLICT (rating_id, user_id) DO NOTHING`

	deleteHelpfulSQL = `DELETE FROM helpful_ratings WHERE rating_id = $1 AND user_id = $2`

	bumpHelpfulCountSQL = `UPDATE ratings SET helpful_count = helpful_count + $2 WHERE id = $1`
)

var _ rating.Repository = (*RatingRepository)(nil)

// RatingRepository implements rating.Repository backed by PostgreSQL.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository returns a RatingRepository that uses the given pool.
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

func (r *RatingRepository) Get(ctx context.Context, id string) (*rating.Rating, error) {
	rows, err := r.pool.Query(ctx, getRatingSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting rating %q: %w", id, err)
	}

	rt, err := pgx.CollectExactlyOneRow(rows, scanRating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rating.ErrNotFound
		}
		return nil, fmt.Errorf("getting rating %q: %w", id, err)
	}
	return &rt, nil
}

func (r *RatingRepository) FindByProductAndUser(ctx context.Context, productID, userID string) (*rating.Rating, error) {
	rows, err := r.pool.Query(ctx, findRatingByProductAndUserSQL, productID, userID)
	if err != nil {
		return nil, fmt.Errorf("finding rating for product %q: %w", productID, err)
	}

	rt, err := pgx.CollectExactlyOneRow(rows, scanRating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rating.ErrNotFound
		}
		return nil, fmt.Errorf("finding rating for product %q: %w", productID, err)
	}
	return &rt, nil
}

func (r *RatingRepository) ListByProduct(ctx context.Context, productID string, approvedOnly bool, page rating.Page) ([]rating.Rating, int, error) {
	offset := (page.Number - 1) * page.PerPage
	rows, err := r.pool.Query(ctx, listRatingsByProductSQL, productID, approvedOnly, page.PerPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing ratings for product %q: %w", productID, err)
	}
	out, err := pgx.CollectRows(rows, scanRating)
	if err != nil {
		return nil, 0, fmt.Errorf("listing ratings for product %q: %w", productID, err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countRatingsByProductSQL, productID, approvedOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting ratings for product %q: %w", productID, err)
	}
	return out, total, nil
}

func (r *RatingRepository) ListByUser(ctx context.Context, userID string, page rating.Page) ([]rating.Rating, int, error) {
	offset := (page.Number - 1) * page.PerPage
	rows, err := r.pool.Query(ctx, listRatingsByUserSQL, userID, page.PerPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing ratings by user %q: %w", userID, err)
	}
	out, err := pgx.CollectRows(rows, scanRating)
	if err != nil {
		return nil, 0, fmt.Errorf("listing ratings by user %q: %w", userID, err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countRatingsByUserSQL, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting ratings by user %q: %w", userID, err)
	}
	return out, total, nil
}

func (r *RatingRepository) Create(ctx context.Context, rt *rating.Rating) error {
	_, err := r.pool.Exec(ctx, insertRatingSQL,
		rt.ID, rt.ProductID, rt.UserID, rt.Stars, rt.Title, rt.Comment,
		rt.Approved, rt.HelpfulCount, rt.CreatedAt, rt.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return rating.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("creating rating: %w", err)
	}
	return nil
}

func (r *RatingRepository) Update(ctx context.Context, rt *rating.Rating) error {
	tag, err := r.pool.Exec(ctx, updateRatingSQL,
		rt.ID, rt.Stars, rt.Title, rt.Comment, rt.Approved, rt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating rating %q: %w", rt.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return rating.ErrNotFound
	}
	return nil
}

func (r *RatingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM helpful_ratings WHERE rating_id = $1`, id); err != nil {
		return fmt.Errorf("deleting helpful marks for %q: %w", id, err)
	}
	tag, err := r.pool.Exec(ctx, deleteRatingSQL, id)
	if err != nil {
		return fmt.Errorf("deleting rating %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rating.ErrNotFound
	}
	return nil
}

func (r *RatingRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	tag, err := r.pool.Exec(ctx, setRatingApprovedSQL, id, approved)
	if err != nil {
		return fmt.Errorf("approving rating %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rating.ErrNotFound
	}
	return nil
}

func (r *RatingRepository) SetApprovedBulk(ctx context.Context, ids []string, approved bool) (int, error) {
	tag, err := r.pool.Exec(ctx, setRatingApprovedBulkSQL, ids, approved)
	if err != nil {
		return 0, fmt.Errorf("bulk approving ratings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// MarkHelpful inserts the per-user mark and bumps the counter inside one
// transaction; a conflicting insert reports ErrAlreadyMarked.
func (r *RatingRepository) MarkHelpful(ctx context.Context, ratingID, userID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertHelpfulSQL, uuid.NewString(), ratingID, userID)
		if err != nil {
			return fmt.Errorf("marking rating %q helpful: %w", ratingID, err)
		}
		if tag.RowsAffected() == 0 {
			return rating.ErrAlreadyMarked
		}
		_, err = tx.Exec(ctx, bumpHelpfulCountSQL, ratingID, 1)
		return err
	})
}

// UnmarkHelpful removes the per-user mark and lowers the counter;
// ErrNotMarked when there was nothing to remove.
func (r *RatingRepository) UnmarkHelpful(ctx context.Context, ratingID, userID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteHelpfulSQL, ratingID, userID)
		if err != nil {
			return fmt.Errorf("unmarking rating %q: %w", ratingID, err)
		}
		if tag.RowsAffected() == 0 {
			return rating.ErrNotMarked
		}
		_, err = tx.Exec(ctx, bumpHelpfulCountSQL, ratingID, -1)
		return err
	})
}

func scanRating(row pgx.CollectableRow) (rating.Rating, error) {
	var rt rating.Rating
	err := row.Scan(&rt.ID, &rt.ProductID, &rt.UserID, &rt.Stars, &rt.Title, &rt.Comment,
		&rt.Approved, &rt.HelpfulCount, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}
