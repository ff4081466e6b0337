package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/craftline/storefront/internal/domain/payment"
	"github.com/craftline/storefront/internal/domain/pricing"
	"github.com/craftline/storefront/internal/notify"
)

// expiryWindow is how long a PENDING online payment may stay unsettled
// before the expiry job cancels the order.
const expiryWindow = 24 * time.Hour

// currency is fixed under current policy.
const currency = "INR"

// Pricer computes order totals. Satisfied by *pricing.Engine.
type Pricer interface {
	QuoteOrder(ctx context.Context, items []pricing.Item, couponCode string) (*pricing.OrderQuote, error)
}

// Service coordinates the order lifecycle over a transactional store, the
// pricing engine, one payment provider, and a best-effort notifier.
type Service struct {
	store      Store
	pricer     Pricer
	provider   payment.Provider
	dispatcher notify.Dispatcher
	lg         *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires a Service with real time and uuid generation.
func NewService(store Store, pricer Pricer, provider payment.Provider, dispatcher notify.Dispatcher, lg *zap.Logger) *Service {
	return &Service{
		store:      store,
		pricer:     pricer,
		provider:   provider,
		dispatcher: dispatcher,
		lg:         lg,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// CustomImageInput is a customer-supplied image attached at creation time.
type CustomImageInput struct {
	ImageURL string
	Remarks  string
}

// CreateRequest carries everything needed to place an order.
type CreateRequest struct {
	UserID       string
	Shipping     ShippingInfo
	Items        []pricing.Item
	CouponCode   string
	CustomImages []CustomImageInput
}

// PaymentInitiation is the quote-stage result for the online flow: the
// provider order the client pays against, sized by a provisional quote.
type PaymentInitiation struct {
	ProviderOrderID string
	Amount          decimal.Decimal
	Currency        string
}

// PaymentCapture is the client's proof of payment for the confirmation stage.
type PaymentCapture struct {
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// CreateCODOrder places a cash-on-delivery order: quote, then one
// transaction persisting the order, its items and images, the stock and
// coupon adjustments, and the initial tracking entry.
func (s *Service) CreateCODOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	if missing := req.Shipping.missingFields(); len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	quote, err := s.pricer.QuoteOrder(ctx, req.Items, req.CouponCode)
	if err != nil {
		return nil, err
	}

	o := s.buildOrder(req, quote)
	o.PaymentMethod = MethodCOD
	o.PaymentStatus = PaymentPending

	if err := s.persistCreate(ctx, o); err != nil {
		return nil, err
	}

	s.lg.Info("COD order created",
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.TotalAmount.String()),
	)
	s.notifyConfirmed(ctx, o)
	return o, nil
}

// InitiatePayment is the quote stage of the online flow: price the order and
// register a provider payment intent. Nothing is persisted; the client
// returns through ConfirmPayment with the capture proof.
func (s *Service) InitiatePayment(ctx context.Context, req CreateRequest) (*PaymentInitiation, error) {
	if missing := req.Shipping.missingFields(); len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	quote, err := s.pricer.QuoteOrder(ctx, req.Items, req.CouponCode)
	if err != nil {
		return nil, err
	}

	intent, err := s.provider.CreateIntent(ctx, quote.TotalAmount, currency)
	if err != nil {
		return nil, err
	}

	s.lg.Info("Payment initiated",
		zap.String("provider_order_id", intent.ProviderOrderID),
		zap.String("amount", quote.TotalAmount.String()),
	)
	return &PaymentInitiation{
		ProviderOrderID: intent.ProviderOrderID,
		Amount:          quote.TotalAmount,
		Currency:        currency,
	}, nil
}

// ConfirmPayment finalizes an online order. The signature is verified
// first; totals are then recomputed from current catalog state, which is
// authoritative and may differ from the quote-stage amount if catalog or
// coupon state changed in between.
func (s *Service) ConfirmPayment(ctx context.Context, req CreateRequest, capture PaymentCapture) (*Order, error) {
	if missing := req.Shipping.missingFields(); len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	if !s.provider.VerifySignature(capture.ProviderOrderID, capture.ProviderPaymentID, capture.Signature) {
		return nil, payment.ErrVerificationFailed
	}

	quote, err := s.pricer.QuoteOrder(ctx, req.Items, req.CouponCode)
	if err != nil {
		return nil, err
	}

	o := s.buildOrder(req, quote)
	o.PaymentMethod = MethodOnline
	o.PaymentStatus = PaymentPaid
	o.ProviderOrderID = capture.ProviderOrderID
	o.ProviderPaymentID = capture.ProviderPaymentID
	o.ProviderSignature = capture.Signature
	o.ProviderTransactionID = capture.ProviderPaymentID

	if err := s.persistCreate(ctx, o); err != nil {
		return nil, err
	}

	s.lg.Info("Online order created",
		zap.String("order_number", o.OrderNumber),
		zap.String("provider_order_id", o.ProviderOrderID),
		zap.String("total", o.TotalAmount.String()),
	)
	s.notifyConfirmed(ctx, o)
	return o, nil
}

// buildOrder assembles the order record from the request and authoritative
// quote. Item prices snapshot the quoted per-unit price.
func (s *Service) buildOrder(req CreateRequest, quote *pricing.OrderQuote) *Order {
	now := s.now()
	o := &Order{
		ID:           s.newID(),
		OrderNumber:  NewOrderNumber(now),
		UserID:       req.UserID,
		Status:       StatusConfirmed,
		Subtotal:     quote.Subtotal,
		Discount:     quote.CouponDiscount,
		ShippingCost: quote.ShippingCost,
		TotalAmount:  quote.TotalAmount,
		Shipping:     req.Shipping,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if quote.AppliedCoupon != nil {
		o.CouponID = quote.AppliedCoupon.ID
	}

	for _, line := range quote.Items {
		o.Items = append(o.Items, OrderItem{
			ID:        s.newID(),
			OrderID:   o.ID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Price:     line.Quote.PricePerItem.Round(2),
		})
	}
	for _, img := range req.CustomImages {
		o.Images = append(o.Images, CustomImage{
			ID:       s.newID(),
			OrderID:  o.ID,
			ImageURL: img.ImageURL,
			Remarks:  img.Remarks,
		})
	}
	return o
}

// persistCreate runs the creation transaction: order + items + images,
// conditional stock decrements, coupon usage, and the initial tracking row.
func (s *Service) persistCreate(ctx context.Context, o *Order) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.InsertOrder(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		if err := tx.InsertItems(ctx, o.ID, o.Items); err != nil {
			return errors.Wrap(err, "insert order items")
		}
		if len(o.Images) > 0 {
			if err := tx.InsertImages(ctx, o.ID, o.Images); err != nil {
				return errors.Wrap(err, "insert custom images")
			}
		}
		for _, item := range o.Items {
			if item.VariantID == "" {
				continue
			}
			if err := tx.DecrementStock(ctx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		if o.CouponID != "" {
			if err := tx.IncrementCouponUsage(ctx, o.CouponID); err != nil {
				return errors.Wrap(err, "increment coupon usage")
			}
		}
		return tx.AppendTracking(ctx, &TrackingEntry{
			ID:          s.newID(),
			OrderID:     o.ID,
			Status:      StatusConfirmed,
			Description: DescribeStatus(StatusConfirmed),
			CreatedAt:   s.now(),
		})
	})
}

// UpdateStatus applies an admin-driven status change. A no-op update (new
// status equals current) still records admin notes but skips both the
// tracking entry and the notification. ShippedAt and DeliveredAt are set
// once, on first entry into the corresponding status.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, newStatus Status, adminNotes string) (*Order, error) {
	if !ValidStatus(newStatus) {
		return nil, &InvalidStatusError{Status: newStatus}
	}

	var updated *Order
	var previous Status
	var noop bool
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		previous = o.Status

		if o.Status == newStatus {
			noop = true
			if adminNotes != "" {
				o.AdminNotes = adminNotes
				o.UpdatedAt = s.now()
				if err := tx.UpdateOrder(ctx, o); err != nil {
					return errors.Wrap(err, "update order")
				}
			}
			updated = o
			return nil
		}

		if err := checkTransition(o.Status, newStatus); err != nil {
			return err
		}

		now := s.now()
		o.Status = newStatus
		o.UpdatedAt = now
		if adminNotes != "" {
			o.AdminNotes = adminNotes
		}
		if newStatus == StatusShipped && o.ShippedAt == nil {
			o.ShippedAt = &now
		}
		if newStatus == StatusDelivered && o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}

		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		if err := tx.AppendTracking(ctx, &TrackingEntry{
			ID:          s.newID(),
			OrderID:     o.ID,
			Status:      newStatus,
			Description: DescribeStatus(newStatus),
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

	if !noop {
		s.dispatch(ctx, notify.KindStatusChanged, updated, map[string]string{
			"previousStatus": string(previous),
			"newStatus":      string(updated.Status),
		})
	}
	return updated, nil
}

// TrackingUpdate carries shipment details from the carrier.
type TrackingUpdate struct {
	TrackingNumber    string
	Carrier           string
	TrackingURL       string
	EstimatedDelivery *time.Time
}

// UpdateTracking records shipment details. The order is forced to SHIPPED
// and ShippedAt is reset to now regardless of its current status, even past
// DELIVERED; callers relying on forward-only progression must not route
// through here.
func (s *Service) UpdateTracking(ctx context.Context, orderID string, upd TrackingUpdate) (*Order, error) {
	var missing []string
	if upd.TrackingNumber == "" {
		missing = append(missing, "trackingNumber")
	}
	if upd.Carrier == "" {
		missing = append(missing, "carrier")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	var updated *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		now := s.now()
		o.TrackingNumber = upd.TrackingNumber
		o.Carrier = upd.Carrier
		o.TrackingURL = upd.TrackingURL
		o.EstimatedDelivery = upd.EstimatedDelivery
		o.Status = StatusShipped
		o.ShippedAt = &now
		o.UpdatedAt = now

		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		if err := tx.AppendTracking(ctx, &TrackingEntry{
			ID:          s.newID(),
			OrderID:     o.ID,
			Status:      StatusShipped,
			Description: fmt.Sprintf("Shipped via %s, tracking number %s", upd.Carrier, upd.TrackingNumber),
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

	s.dispatch(ctx, notify.KindStatusChanged, updated, map[string]string{
		"newStatus":      string(StatusShipped),
		"trackingNumber": upd.TrackingNumber,
		"carrier":        upd.Carrier,
	})
	return updated, nil
}

// RefundRequest describes an admin-initiated refund. A nil Amount refunds
// the full order total.
type RefundRequest struct {
	Amount     *decimal.Decimal
	Reason     string
	AdminNotes string
}

// ProcessRefund refunds a paid order through the payment provider, then
// marks the order refunded and restores stock for every variant-bearing
// item. Stock restoration is full regardless of a partial refund amount;
// coupon usage is never reversed.
func (s *Service) ProcessRefund(ctx context.Context, orderID string, req RefundRequest) (*Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case o.PaymentStatus != PaymentPaid:
		return nil, &RefundNotEligibleError{OrderID: orderID, Reason: "order is not paid"}
	case o.Status == StatusRefunded:
		return nil, &RefundNotEligibleError{OrderID: orderID, Reason: "order is already refunded"}
	case o.ProviderTransactionID == "":
		return nil, &RefundNotEligibleError{OrderID: orderID, Reason: "no provider transaction id recorded"}
	}

	amount := o.TotalAmount
	if req.Amount != nil {
		amount = *req.Amount
	}

	result, err := s.provider.Refund(ctx, o.ProviderTransactionID, amount, "REFUND_"+o.OrderNumber)
	if err != nil {
		return nil, err
	}

	var updated *Order
	err = s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		now := s.now()
		o.Status = StatusRefunded
		o.PaymentStatus = PaymentRefunded
		o.UpdatedAt = now
		if req.AdminNotes != "" {
			o.AdminNotes = req.AdminNotes
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		for _, item := range o.Items {
			if item.VariantID == "" {
				continue
			}
			if err := tx.RestoreStock(ctx, item.VariantID, item.Quantity); err != nil {
				return errors.Wrap(err, "restore stock")
			}
		}

		desc := fmt.Sprintf("Refund of %s processed (ref %s)", amount.StringFixed(2), result.ProviderRefundID)
		if req.Reason != "" {
			desc += ": " + req.Reason
		}
		if err := tx.AppendTracking(ctx, &TrackingEntry{
			ID:          s.newID(),
			OrderID:     o.ID,
			Status:      StatusRefunded,
			Description: desc,
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

	s.lg.Info("Refund processed",
		zap.String("order_number", updated.OrderNumber),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("provider_refund_id", result.ProviderRefundID),
	)
	s.dispatch(ctx, notify.KindRefundProcessed, updated, map[string]string{
		"refundAmount":     amount.StringFixed(2),
		"reason":           req.Reason,
		"providerRefundId": result.ProviderRefundID,
	})
	return updated, nil
}

// CancelExpiredPendingOrders cancels live orders stuck in PENDING/PENDING
// for longer than the expiry window, marking payment FAILED. Per-order
// failures are logged and skipped; the count of cancelled orders is
// returned.
func (s *Service) CancelExpiredPendingOrders(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-expiryWindow)
	expired, err := s.store.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "list expired orders")
	}

	cancelled := 0
	for _, stale := range expired {
		err := s.store.InTx(ctx, func(tx Tx) error {
			o, err := tx.GetOrderForUpdate(ctx, stale.ID)
			if err != nil {
				return err
			}
			if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
				return nil
			}

			now := s.now()
			o.Status = StatusCancelled
			o.PaymentStatus = PaymentFailed
			o.UpdatedAt = now
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return errors.Wrap(err, "update order")
			}
			return tx.AppendTracking(ctx, &TrackingEntry{
				ID:          s.newID(),
				OrderID:     o.ID,
				Status:      StatusCancelled,
				Description: "Order cancelled automatically: payment not completed in time",
				CreatedAt:   now,
			})
		})
		if err != nil {
			s.lg.Error("Failed to cancel expired order",
				zap.String("order_id", stale.ID), zap.Error(err))
			continue
		}
		cancelled++
	}

	if cancelled > 0 {
		s.lg.Info("Expired pending orders cancelled", zap.Int("count", cancelled))
	}
	return cancelled, nil
}

// GetOrder loads one order with its items and images.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

// GetOrderByNumber loads one order by its human-facing number.
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.store.GetOrderByNumber(ctx, orderNumber)
}

// ListOrders pages orders by the given filter, returning the page and the
// total match count.
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}
	return s.store.ListOrders(ctx, filter)
}

// ListUserOrders pages the live orders belonging to one user.
func (s *Service) ListUserOrders(ctx context.Context, userID string, page, perPage int) ([]Order, int, error) {
	return s.ListOrders(ctx, ListFilter{UserID: userID, Page: page, PerPage: perPage})
}

// TrackingHistory returns the order's tracking entries oldest first.
func (s *Service) TrackingHistory(ctx context.Context, orderID string) ([]TrackingEntry, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListTracking(ctx, orderID)
}

// OrderStats aggregates counts and revenue for the admin dashboard.
func (s *Service) OrderStats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

// notifyConfirmed fires the customer and admin confirmation events.
func (s *Service) notifyConfirmed(ctx context.Context, o *Order) {
	s.dispatch(ctx, notify.KindOrderConfirmed, o, nil)
	s.dispatch(ctx, notify.KindOrderConfirmedAdmin, o, nil)
}

// dispatch delivers one notification best-effort: failures are logged and
// never propagated to the caller.
func (s *Service) dispatch(ctx context.Context, kind string, o *Order, extras map[string]string) {
	ev := notify.Event{
		Kind:       kind,
		OccurredAt: s.now(),
		Order: notify.OrderSnapshot{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			UserID:        o.UserID,
			CustomerName:  o.Shipping.Name,
			CustomerEmail: o.Shipping.Email,
			TotalAmount:   o.TotalAmount,
			Status:        string(o.Status),
			PaymentMethod: string(o.PaymentMethod),
			ItemCount:     len(o.Items),
		},
		Extras: extras,
	}
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		s.lg.Warn("Notification dispatch failed",
			zap.String("kind", kind),
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
	}
}
