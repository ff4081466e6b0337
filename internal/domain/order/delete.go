package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// DeleteType selects between soft and hard bulk deletion.
type DeleteType string

const (
	DeleteSoft DeleteType = "soft"
	DeleteHard DeleteType = "hard"
)

// hardDeletable reports whether a status permits hard deletion. Orders in
// flight or already fulfilled keep their rows.
func hardDeletable(s Status) bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered:
		return false
	}
	return true
}

// DeleteOrder permanently removes an order with its tracking history,
// custom images, and items. Refused while the order is PROCESSING, SHIPPED,
// or DELIVERED. No stock or coupon reversal happens here: hard delete is
// for orders that never consumed inventory meaningfully.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !hardDeletable(o.Status) {
			return &NotDeletableError{OrderID: o.ID, Status: o.Status}
		}
		if err := tx.DeleteOrderCascade(ctx, o.ID); err != nil {
			return errors.Wrap(err, "delete order")
		}
		s.lg.Info("Order deleted", zap.String("order_number", o.OrderNumber))
		return nil
	})
}

// SoftDeleteOrder hides an order: sets the delete marker, forces status to
// CANCELLED, and records the prior state in the audit notes. Fails with
// ErrAlreadyDeleted when a delete marker is already present.
func (s *Service) SoftDeleteOrder(ctx context.Context, id, actorID string) (*Order, error) {
	var updated *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.DeletedAt != nil {
			return ErrAlreadyDeleted
		}

		now := s.now()
		o.Notes.SoftDeleted = true
		o.Notes.DeletedAt = &now
		o.Notes.DeletedBy = actorID
		o.Notes.PriorStatus = o.Status
		o.DeletedAt = &now
		o.Status = StatusCancelled
		o.UpdatedAt = now

		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		if err := tx.AppendTracking(ctx, &TrackingEntry{
			ID:          s.newID(),
			OrderID:     o.ID,
			Status:      StatusCancelled,
			Description: "Order removed by admin",
			CreatedAt:   now,
		}); err != nil {
			return errors.Wrap(err, "append tracking")
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.lg.Info("Order soft-deleted", zap.String("order_number", updated.OrderNumber))
	return updated, nil
}

// RestoreOrder clears the delete marker of a soft-deleted order. The status
// stays CANCELLED as set at soft-delete time; it is not reverted to the
// recorded prior status.
func (s *Service) RestoreOrder(ctx context.Context, id, actorID string) (*Order, error) {
	var updated *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.DeletedAt == nil {
			return ErrNotDeleted
		}

		now := s.now()
		o.Notes.SoftDeleted = false
		o.Notes.DeletedAt = nil
		o.Notes.DeletedBy = ""
		o.Notes.RestoredAt = &now
		o.Notes.RestoredBy = actorID
		o.DeletedAt = nil
		o.UpdatedAt = now

		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		if err := tx.AppendTracking(ctx, &TrackingEntry{
			ID:          s.newID(),
			OrderID:     o.ID,
			Status:      o.Status,
			Description: "Order restored by admin",
			CreatedAt:   now,
		}); err != nil {
			return errors.Wrap(err, "append tracking")
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.lg.Info("Order restored", zap.String("order_number", updated.OrderNumber))
	return updated, nil
}

// BulkFailure records one order that a bulk delete could not process.
type BulkFailure struct {
	OrderID string
	Reason  string
}

// BulkDeleteReport summarizes a bulk delete run.
type BulkDeleteReport struct {
	Requested int
	Deleted   []string
	Failed    []BulkFailure
}

// BulkDeleteOrders deletes a batch of orders by id. Every id must exist,
// otherwise the call fails up front listing the missing ones. Hard mode
// additionally validates every order's status before touching anything, so
// one undeletable order rejects the whole batch with nothing removed.
// Failures during processing are collected into the report rather than
// aborting the remainder.
func (s *Service) BulkDeleteOrders(ctx context.Context, ids []string, deleteType DeleteType) (*BulkDeleteReport, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{MissingFields: []string{"orderIds"}}
	}
	if deleteType != DeleteSoft && deleteType != DeleteHard {
		return nil, errors.Errorf("unknown delete type: %q", deleteType)
	}

	orders := make(map[string]*Order, len(ids))
	var missing []string
	for _, id := range ids {
		o, err := s.store.GetOrder(ctx, id)
		switch {
		case errors.Is(err, ErrOrderNotFound):
			missing = append(missing, id)
		case err != nil:
			return nil, errors.Wrapf(err, "load order %s", id)
		default:
			orders[id] = o
		}
	}
	if len(missing) > 0 {
		return nil, &BulkNotFoundError{Missing: missing}
	}

	if deleteType == DeleteHard {
		for _, id := range ids {
			if o := orders[id]; !hardDeletable(o.Status) {
				return nil, &NotDeletableError{OrderID: o.ID, Status: o.Status}
			}
		}
	}

	report := &BulkDeleteReport{Requested: len(ids)}
	for _, id := range ids {
		var err error
		if deleteType == DeleteHard {
			err = s.DeleteOrder(ctx, id)
		} else {
			_, err = s.SoftDeleteOrder(ctx, id, "")
		}
		if err != nil {
			report.Failed = append(report.Failed, BulkFailure{OrderID: id, Reason: err.Error()})
			continue
		}
		report.Deleted = append(report.Deleted, id)
	}

	s.lg.Info("Bulk delete finished",
		zap.String("type", string(deleteType)),
		zap.Int("requested", report.Requested),
		zap.Int("deleted", len(report.Deleted)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}
