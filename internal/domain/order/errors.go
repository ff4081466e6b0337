package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrOrderNotFound is returned when a referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyDeleted is returned when soft-deleting an order that already
	// carries a delete marker.
	ErrAlreadyDeleted = errors.New("order is already deleted")
	// ErrNotDeleted is returned when restoring an order that is not
	// soft-deleted.
	ErrNotDeleted = errors.New("order is not deleted")
)

// ValidationError reports required creation input that is missing.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.MissingFields, ", ")
}

// InvalidStatusError rejects a status update, naming the offending value and
// the order's current state.
type InvalidStatusError struct {
	Status  Status
	Current Status
	Reason  string
}

func (e *InvalidStatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid status change to %s: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("invalid order status: %s", e.Status)
}

// NotDeletableError refuses hard deletion of an order whose status means
// inventory was consumed.
type NotDeletableError struct {
	OrderID string
	Status  Status
}

func (e *NotDeletableError) Error() string {
	return fmt.Sprintf("order %s cannot be deleted while %s", e.OrderID, e.Status)
}

// RefundNotEligibleError rejects a refund attempt, naming the failed
// precondition.
type RefundNotEligibleError struct {
	OrderID string
	Reason  string
}

func (e *RefundNotEligibleError) Error() string {
	return fmt.Sprintf("order %s is not eligible for refund: %s", e.OrderID, e.Reason)
}

// BulkNotFoundError aborts a bulk delete when any requested id is unknown.
type BulkNotFoundError struct {
	Missing []string
}

func (e *BulkNotFoundError) Error() string {
	return "orders not found: " + strings.Join(e.Missing, ", ")
}
