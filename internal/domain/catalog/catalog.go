// Package catalog holds the product, variant, and subcategory records the
// pricing and order flows read from, plus the subcategory management service.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ProductStatus enumerates catalog availability states.
type ProductStatus string

const (
	ProductActive   ProductStatus = "ACTIVE"
	ProductInactive ProductStatus = "INACTIVE"
	ProductArchived ProductStatus = "ARCHIVED"
)

// RuleKind enumerates quantity-price rule strategies.
type RuleKind string

const (
	// RulePercentage discounts the line total by value percent.
	RulePercentage RuleKind = "PERCENTAGE"
	// RuleFixed replaces the line total with a flat amount.
	RuleFixed RuleKind = "FIXED"
)

var (
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound is returned when a requested variant does not exist.
	ErrVariantNotFound = errors.New("product variant not found")
	// ErrSubcategoryNotFound is returned when a requested subcategory does not exist.
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	// ErrCategoryNotFound is returned when the parent category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrSubcategoryNameTaken is returned when a subcategory name already
	// exists within the same category.
	ErrSubcategoryNameTaken = errors.New("subcategory name already exists in this category")
	// ErrSubcategoryHasProducts blocks deletion of a subcategory that still
	// owns products.
	ErrSubcategoryHasProducts = errors.New("cannot delete subcategory with existing products")
	// ErrSubcategoryInvalid is returned when required subcategory input is
	// missing.
	ErrSubcategoryInvalid = errors.New("subcategory name and category are required")
)

// ProductUnavailableError indicates a product exists but is not purchasable.
type ProductUnavailableError struct {
	ProductID string
	Status    ProductStatus
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available for purchase (status %s)", e.ProductID, e.Status)
}

// InsufficientStockError indicates a variant cannot cover the requested quantity.
type InsufficientStockError struct {
	VariantID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: available %d, requested %d",
		e.VariantID, e.Available, e.Requested)
}

// Product is a catalog item. OfferPrice, when valid, takes precedence over
// NormalPrice as the pricing base.
type Product struct {
	ID            string
	SubcategoryID string
	Name          string
	Status        ProductStatus
	NormalPrice   decimal.Decimal
	OfferPrice    decimal.NullDecimal
	CreatedAt     time.Time
}

// BasePrice returns the effective unit price: the offer price when present,
// the normal price otherwise.
func (p Product) BasePrice() decimal.Decimal {
	if p.OfferPrice.Valid {
		return p.OfferPrice.Decimal
	}
	return p.NormalPrice
}

// Variant is a sellable variation of a product carrying its own stock.
type Variant struct {
	ID        string
	ProductID string
	Color     string
	Size      string
	Stock     int
	CreatedAt time.Time
}

// QuantityPriceRule is a subcategory-level threshold discount. Quantity is
// the minimum purchased quantity for the rule to apply.
type QuantityPriceRule struct {
	ID            string
	SubcategoryID string
	Quantity      int
	Kind          RuleKind
	Value         decimal.Decimal
	Active        bool
}

// Subcategory groups products and carries the quantity-price rules.
type Subcategory struct {
	ID          string
	CategoryID  string
	Name        string
	Description string
	ImageURL    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines the catalog reads the pricing engine depends on.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	// ActiveQuantityRules returns the active rules for a subcategory whose
	// threshold is <= quantity, ordered by threshold descending.
	ActiveQuantityRules(ctx context.Context, subcategoryID string, quantity int) ([]QuantityPriceRule, error)
}

// SubcategoryRepository defines persistence for subcategory management.
type SubcategoryRepository interface {
	Get(ctx context.Context, id string) (*Subcategory, error)
	List(ctx context.Context, categoryID string, activeOnly bool) ([]Subcategory, error)
	FindByName(ctx context.Context, categoryID, name string) (*Subcategory, error)
	Create(ctx context.Context, s *Subcategory) error
	Update(ctx context.Context, s *Subcategory) error
	Delete(ctx context.Context, id string) error
	CountProducts(ctx context.Context, subcategoryID string) (int, error)
	CategoryExists(ctx context.Context, categoryID string) (bool, error)
}
