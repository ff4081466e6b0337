package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftline/storefront/internal/domain/catalog"
)

const (
	getProductSQL = `SELECT id, COALESCE(subcategory_id, ''), name, status, normal_price, offer_price, created_at
		FROM products WHERE id = $1`

	getVariantSQL = `SELECT id, product_id, color, size, stock, created_at
		FROM product_variants WHERE id = $1`

	activeQuantityRulesSQL = `SELECT id, subcategory_id, quantity, price_type, value, active
		FROM subcategory_quantity_prices
		WHERE subcategory_id = $1 AND active AND quantity <= $2
		ORDER BY quantity DESC`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetProduct returns a single product by its identifier.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetVariant returns a single product variant by its identifier.
func (r *CatalogRepository) GetVariant(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// ActiveQuantityRules returns the active rules whose threshold is at most
// quantity, highest threshold first.
func (r *CatalogRepository) ActiveQuantityRules(ctx context.Context, subcategoryID string, quantity int) ([]catalog.QuantityPriceRule, error) {
	rows, err := r.pool.Query(ctx, activeQuantityRulesSQL, subcategoryID, quantity)
	if err != nil {
		return nil, fmt.Errorf("listing quantity rules for %q: %w", subcategoryID, err)
	}
	return pgx.CollectRows(rows, scanQuantityRule)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.SubcategoryID, &p.Name, &p.Status,
		&p.NormalPrice, &p.OfferPrice, &p.CreatedAt)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Stock, &v.CreatedAt)
	return v, err
}

func scanQuantityRule(row pgx.CollectableRow) (catalog.QuantityPriceRule, error) {
	var q catalog.QuantityPriceRule
	err := row.Scan(&q.ID, &q.SubcategoryID, &q.Quantity, &q.Kind, &q.Value, &q.Active)
	return q, err
}

const (
	getSubcategorySQL = `SELECT id, category_id, name, description, image_url, active, created_at, updated_at
		FROM subcategories WHERE id = $1`

	listSubcategoriesSQL = `SELECT id, category_id, name, description, image_url, active, created_at, updated_at
		FROM subcategories
		WHERE ($1 = '' OR category_id = $1) AND (NOT $2 OR active)
		ORDER BY name`

	findSubcategoryByNameSQL = `SELECT id, category_id, name, description, image_url, active, created_at, updated_at
		FROM subcategories WHERE category_id = $1 AND lower(name) = lower($2)`

	insertSubcategorySQL = `INSERT INTO subcategories (id, category_id, name, description, image_url, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateSubcategorySQL = `UPDATE subcategories
		SET name = $2, description = $3, image_url = $4, active = $5, updated_at = $6
		WHERE id = $1`

	deleteSubcategorySQL = `DELETE FROM subcategories WHERE id = $1`

	countSubcategoryProductsSQL = `SELECT count(*) FROM products WHERE subcategory_id = $1`
)

var _ catalog.SubcategoryRepository = (*SubcategoryRepository)(nil)

// SubcategoryRepository implements catalog.SubcategoryRepository backed by
// PostgreSQL.
type SubcategoryRepository struct {
	pool *pgxpool.Pool
}

// NewSubcategoryRepository returns a SubcategoryRepository that uses the
// given pool.
func NewSubcategoryRepository(pool *pgxpool.Pool) *SubcategoryRepository {
	return &SubcategoryRepository{pool: pool}
}

func (r *SubcategoryRepository) Get(ctx context.Context, id string) (*catalog.Subcategory, error) {
	rows, err := r.pool.Query(ctx, getSubcategorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting subcategory %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSubcategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrSubcategoryNotFound
		}
		return nil, fmt.Errorf("getting subcategory %q: %w", id, err)
	}
	return &s, nil
}

func (r *SubcategoryRepository) List(ctx context.Context, categoryID string, activeOnly bool) ([]catalog.Subcategory, error) {
	rows, err := r.pool.Query(ctx, listSubcategoriesSQL, categoryID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("listing subcategories: %w", err)
	}
	return pgx.CollectRows(rows, scanSubcategory)
}

func (r *SubcategoryRepository) FindByName(ctx context.Context, categoryID, name string) (*catalog.Subcategory, error) {
	rows, err := r.pool.Query(ctx, findSubcategoryByNameSQL, categoryID, name)
	if err != nil {
		return nil, fmt.Errorf("finding subcategory %q: %w", name, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSubcategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrSubcategoryNotFound
		}
		return nil, fmt.Errorf("finding subcategory %q: %w", name, err)
	}
	return &s, nil
}

func (r *SubcategoryRepository) Create(ctx context.Context, s *catalog.Subcategory) error {
	_, err := r.pool.Exec(ctx, insertSubcategorySQL,
		s.ID, s.CategoryID, s.Name, s.Description, s.ImageURL, s.Active, s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return catalog.ErrSubcategoryNameTaken
	}
	if err != nil {
		return fmt.Errorf("creating subcategory %q: %w", s.Name, err)
	}
	return nil
}

func (r *SubcategoryRepository) Update(ctx context.Context, s *catalog.Subcategory) error {
	tag, err := r.pool.Exec(ctx, updateSubcategorySQL,
		s.ID, s.Name, s.Description, s.ImageURL, s.Active, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return catalog.ErrSubcategoryNameTaken
	}
	if err != nil {
		return fmt.Errorf("updating subcategory %q: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrSubcategoryNotFound
	}
	return nil
}

func (r *SubcategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteSubcategorySQL, id)
	if err != nil {
		return fmt.Errorf("deleting subcategory %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrSubcategoryNotFound
	}
	return nil
}

func (r *SubcategoryRepository) CountProducts(ctx context.Context, subcategoryID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countSubcategoryProductsSQL, subcategoryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products in %q: %w", subcategoryID, err)
	}
	return n, nil
}

func (r *SubcategoryRepository) CategoryExists(ctx context.Context, categoryID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, categoryID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking category %q: %w", categoryID, err)
	}
	return exists, nil
}

func scanSubcategory(row pgx.CollectableRow) (catalog.Subcategory, error) {
	var s catalog.Subcategory
	err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description,
		&s.ImageURL, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
