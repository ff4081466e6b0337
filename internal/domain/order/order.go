// Package order owns the order lifecycle: creation over the pricing engine
// (cash-on-delivery and verified online payment), status transitions with an
// append-only tracking log, refunds through the payment provider, and
// soft/hard deletion. Every multi-step mutation runs inside one store
// transaction.
package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates order fulfillment states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// PaymentStatus enumerates payment settlement states.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod enumerates how an order is paid.
type PaymentMethod string

const (
	MethodOnline PaymentMethod = "ONLINE"
	MethodCOD    PaymentMethod = "COD"
)

var validStatuses = map[Status]struct{}{
	StatusPending: {}, StatusConfirmed: {}, StatusProcessing: {},
	StatusShipped: {}, StatusDelivered: {}, StatusCancelled: {},
	StatusRefunded: {},
}

// ValidStatus reports whether s is one of the seven known statuses.
func ValidStatus(s Status) bool {
	_, ok := validStatuses[s]
	return ok
}

var statusDescriptions = map[Status]string{
	StatusPending:    "Order placed and awaiting confirmation",
	StatusConfirmed:  "Order confirmed and will be processed soon",
	StatusProcessing: "Order is being prepared for shipment",
	StatusShipped:    "Order has been shipped",
	StatusDelivered:  "Order has been delivered",
	StatusCancelled:  "Order has been cancelled",
	StatusRefunded:   "Order has been refunded",
}

// DescribeStatus returns the customer-facing description for a status.
func DescribeStatus(s Status) string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return string(s)
}

// terminal statuses admit no further transition through UpdateStatus.
func terminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// checkTransition validates an admin-driven status change. Refunds go
// through ProcessRefund, never through a plain status update.
func checkTransition(from, to Status) error {
	if terminal(from) {
		return &InvalidStatusError{Status: to, Current: from,
			Reason: fmt.Sprintf("order is already %s", from)}
	}
	if to == StatusRefunded {
		return &InvalidStatusError{Status: to, Current: from,
			Reason: "refunds must go through refund processing"}
	}
	if to == StatusCancelled {
		switch from {
		case StatusPending, StatusConfirmed, StatusProcessing:
		default:
			return &InvalidStatusError{Status: to, Current: from,
				Reason: fmt.Sprintf("cannot cancel an order that is %s", from)}
		}
	}
	return nil
}

// ShippingInfo is the delivery snapshot captured at creation time. It never
// follows later changes to the user's profile.
type ShippingInfo struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

// missingFields returns the names of required shipping fields left empty.
func (s ShippingInfo) missingFields() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"name", s.Name}, {"email", s.Email}, {"phone", s.Phone},
		{"address", s.Address}, {"city", s.City}, {"state", s.State},
		{"pincode", s.Pincode},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// OrderItem is a purchase line. Price is the unit price snapshot at purchase
// time and never follows later catalog changes.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	VariantID string
	Quantity  int
	Price     decimal.Decimal
}

// CustomImage is a customer-supplied image attached to an order.
type CustomImage struct {
	ID       string
	OrderID  string
	ImageURL string
	Remarks  string
}

// TrackingEntry is one append-only row in an order's tracking history.
type TrackingEntry struct {
	ID          string
	OrderID     string
	Status      Status
	Description string
	Location    string
	CreatedAt   time.Time
}

// AuditNotes is the structured audit record serialized into the order's
// notes column. Soft delete sets the deletion markers and remembers the
// prior status; restore clears the markers and stamps the restore fields.
type AuditNotes struct {
	SoftDeleted bool       `json:"softDeleted,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	DeletedBy   string     `json:"deletedBy,omitempty"`
	PriorStatus Status     `json:"priorStatus,omitempty"`
	RestoredAt  *time.Time `json:"restoredAt,omitempty"`
	RestoredBy  string     `json:"restoredBy,omitempty"`
}

// Order is the aggregate lifecycle record.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string

	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod

	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	ShippingCost decimal.Decimal
	TotalAmount  decimal.Decimal
	CouponID     string

	Shipping ShippingInfo

	// Gateway correlation. ProviderTransactionID is the captured payment
	// the provider refunds against.
	ProviderOrderID       string
	ProviderPaymentID     string
	ProviderSignature     string
	ProviderTransactionID string

	TrackingNumber    string
	Carrier           string
	TrackingURL       string
	EstimatedDelivery *time.Time

	AdminNotes string
	Notes      AuditNotes

	Items  []OrderItem
	Images []CustomImage

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	DeletedAt   *time.Time
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber builds a human-facing order number of the form
// ORD-<unix-millis>-<random6>. Uniqueness is probabilistic; the storage
// layer's unique constraint is the backstop.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.IntN(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// ListFilter narrows and pages order listings. Zero values mean "any".
type ListFilter struct {
	UserID        string
	Status        Status
	PaymentStatus PaymentStatus
	// IncludeDeleted lists soft-deleted orders too.
	IncludeDeleted bool
	Page           int
	PerPage        int
}

// Stats aggregates order counts and revenue for the admin dashboard.
type Stats struct {
	TotalOrders    int
	ByStatus       map[Status]int
	TotalRevenue   decimal.Decimal
	PendingRevenue decimal.Decimal
}

// Tx is the set of writes available inside one lifecycle transaction.
// Implementations map InsufficientStock from the conditional decrement.
type Tx interface {
	InsertOrder(ctx context.Context, o *Order) error
	UpdateOrder(ctx context.Context, o *Order) error
	// GetOrderForUpdate loads the order row with its items, locked for the
	// duration of the transaction.
	GetOrderForUpdate(ctx context.Context, id string) (*Order, error)
	InsertItems(ctx context.Context, orderID string, items []OrderItem) error
	InsertImages(ctx context.Context, orderID string, images []CustomImage) error
	// DecrementStock atomically subtracts quantity if enough stock remains,
	// returning catalog.InsufficientStockError otherwise.
	DecrementStock(ctx context.Context, variantID string, quantity int) error
	RestoreStock(ctx context.Context, variantID string, quantity int) error
	IncrementCouponUsage(ctx context.Context, couponID string) error
	AppendTracking(ctx context.Context, entry *TrackingEntry) error
	// DeleteOrderCascade removes tracking history, custom images, items,
	// then the order row.
	DeleteOrderCascade(ctx context.Context, id string) error
}

// Store is the order persistence boundary. InTx runs fn inside a single
// transaction, committing on nil and rolling back on error.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error)
	Stats(ctx context.Context) (*Stats, error)
	// ListExpiredPending returns live orders still PENDING/PENDING created
	// before the cutoff.
	ListExpiredPending(ctx context.Context, before time.Time) ([]Order, error)
	// ListTracking returns an order's tracking history oldest first.
	ListTracking(ctx context.Context, orderID string) ([]TrackingEntry, error)
}
