// Package notify delivers best-effort notifications for order lifecycle
// events. Dispatch failures are logged and swallowed by callers; a lost
// notification never fails the operation that produced it.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event kinds, used as routing keys by the AMQP dispatcher.
const (
	KindOrderConfirmed      = "order.confirmed"
	KindOrderConfirmedAdmin = "order.confirmed.admin"
	KindStatusChanged       = "order.status_changed"
	KindRefundProcessed     = "order.refund_processed"
)

// OrderSnapshot is the slice of an order a notification template needs.
// It is a copy taken at dispatch time; the order may change afterwards.
type OrderSnapshot struct {
	OrderID       string          `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	UserID        string          `json:"userId"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	ItemCount     int             `json:"itemCount"`
}

// Event is one notification to deliver.
type Event struct {
	Kind       string            `json:"kind"`
	OccurredAt time.Time         `json:"occurredAt"`
	Order      OrderSnapshot     `json:"order"`
	// Extras carries kind-specific fields: previous/new status for
	// status changes, refund amount and provider refund id for refunds.
	Extras map[string]string `json:"extras,omitempty"`
}

// Dispatcher delivers events. Implementations must be safe for concurrent
// use; callers treat errors as log-and-continue.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}
