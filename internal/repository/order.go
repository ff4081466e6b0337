package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftline/storefront/internal/domain/catalog"
	"github.com/craftline/storefront/internal/domain/order"
)

const orderColumns = `id, order_number, user_id, name, email, phone, address, city, state, pincode,
	status, subtotal, discount, shipping_cost, total_amount, payment_status, payment_method,
	COALESCE(coupon_id, ''), provider_order_id, provider_payment_id, provider_signature,
	provider_transaction_id, tracking_number, carrier, tracking_url, estimated_delivery,
	admin_notes, notes, deleted_at, shipped_at, delivered_at, created_at, updated_at`

const (
	getOrderSQL          = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	getOrderByNumberSQL  = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR payment_status = $3)
		  AND ($4 OR deleted_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6`

	countOrdersSQL = `SELECT count(*) FROM orders
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR payment_status = $3)
		  AND ($4 OR deleted_at IS NULL)`

	listExpiredPendingSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'PENDING' AND payment_status = 'PENDING'
		  AND created_at < $1 AND deleted_at IS NULL
		ORDER BY created_at`

	orderStatsSQL = `SELECT count(*),
			COALESCE(sum(total_amount) FILTER (WHERE payment_status = 'PAID'), 0),
			COALESCE(sum(total_amount) FILTER (WHERE payment_status = 'PENDING'), 0)
		FROM orders WHERE deleted_at IS NULL`

	orderStatusCountsSQL = `SELECT status, count(*) FROM orders
		WHERE deleted_at IS NULL GROUP BY status`

	listOrderItemsSQL = `SELECT id, order_id, product_id, COALESCE(product_variant_id, ''), quantity, price
		FROM order_items WHERE order_id = $1`

	listOrderImagesSQL = `SELECT id, order_id, image_url, remarks
		FROM custom_order_images WHERE order_id = $1`

	insertOrderSQL = `INSERT INTO orders (id, order_number, user_id, name, email, phone, address,
			city, state, pincode, status, subtotal, discount, shipping_cost, total_amount,
			payment_status, payment_method, coupon_id, provider_order_id, provider_payment_id,
			provider_signature, provider_transaction_id, admin_notes, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			NULLIF($18, ''), $19, $20, $21, $22, $23, $24, $25, $26)`

	updateOrderSQL = `UPDATE orders SET status = $2, payment_status = $3,
			tracking_number = $4, carrier = $5, tracking_url = $6, estimated_delivery = $7,
			admin_notes = $8, notes = $9, deleted_at = $10, shipped_at = $11, delivered_at = $12,
			updated_at = $13
		WHERE id = $1`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, product_variant_id, quantity, price)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

	insertOrderImageSQL = `INSERT INTO custom_order_images (id, order_id, image_url, remarks)
		VALUES ($1, $2, $3, $4)`

	decrementStockSQL = `UPDATE product_variants SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	variantStockSQL = `SELECT stock FROM product_variants WHERE id = $1 FOR UPDATE`

	restoreStockSQL = `UPDATE product_variants SET stock = stock + $2 WHERE id = $1`

	incrementCouponUsageSQL = `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`

	insertTrackingSQL = `INSERT INTO tracking_history (id, order_id, status, description, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	listTrackingSQL = `SELECT id, order_id, status, description, location, created_at
		FROM tracking_history WHERE order_id = $1 ORDER BY created_at`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// InTx runs fn inside a single database transaction.
func (s *OrderStore) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&orderTx{tx: tx})
	})
}

// GetOrder loads one order with its items and images.
func (s *OrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return s.getOrder(ctx, s.pool, getOrderSQL, id)
}

// GetOrderByNumber loads one order by its human-facing number.
func (s *OrderStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.getOrder(ctx, s.pool, getOrderByNumberSQL, orderNumber)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *OrderStore) getOrder(ctx context.Context, q querier, sql, key string) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}
	if err := loadOrderChildren(ctx, q, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders pages orders by the filter, returning the page and the total
// match count.
func (s *OrderStore) ListOrders(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	offset := (f.Page - 1) * f.PerPage
	rows, err := s.pool.Query(ctx, listOrdersSQL,
		f.UserID, string(f.Status), string(f.PaymentStatus), f.IncludeDeleted, f.PerPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}

	var total int
	err = s.pool.QueryRow(ctx, countOrdersSQL,
		f.UserID, string(f.Status), string(f.PaymentStatus), f.IncludeDeleted).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	for i := range out {
		if err := loadOrderChildren(ctx, s.pool, &out[i]); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// Stats aggregates order counts and revenue over live orders.
func (s *OrderStore) Stats(ctx context.Context) (*order.Stats, error) {
	st := &order.Stats{ByStatus: map[order.Status]int{}}
	err := s.pool.QueryRow(ctx, orderStatsSQL).
		Scan(&st.TotalOrders, &st.TotalRevenue, &st.PendingRevenue)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, orderStatusCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("order status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status order.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("order status counts: %w", err)
		}
		st.ByStatus[status] = n
	}
	return st, rows.Err()
}

// ListExpiredPending returns live orders still awaiting payment created
// before the cutoff.
func (s *OrderStore) ListExpiredPending(ctx context.Context, before time.Time) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listExpiredPendingSQL, before)
	if err != nil {
		return nil, fmt.Errorf("listing expired orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

var _ order.Tx = (*orderTx)(nil)

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.UserID,
		o.Shipping.Name, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address,
		o.Shipping.City, o.Shipping.State, o.Shipping.Pincode,
		o.Status, o.Subtotal, o.Discount, o.ShippingCost, o.TotalAmount,
		o.PaymentStatus, o.PaymentMethod, o.CouponID,
		o.ProviderOrderID, o.ProviderPaymentID, o.ProviderSignature, o.ProviderTransactionID,
		o.AdminNotes, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.OrderNumber, err)
	}
	return nil
}

func (t *orderTx) UpdateOrder(ctx context.Context, o *order.Order) error {
	tag, err := t.tx.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.PaymentStatus,
		o.TrackingNumber, o.Carrier, o.TrackingURL, o.EstimatedDelivery,
		o.AdminNotes, o.Notes, o.DeletedAt, o.ShippedAt, o.DeliveredAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (t *orderTx) GetOrderForUpdate(ctx context.Context, id string) (*order.Order, error) {
	rows, err := t.tx.Query(ctx, getOrderForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}
	if err := loadOrderChildren(ctx, t.tx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *orderTx) InsertItems(ctx context.Context, orderID string, items []order.OrderItem) error {
	for _, item := range items {
		_, err := t.tx.Exec(ctx, insertOrderItemSQL,
			item.ID, orderID, item.ProductID, item.VariantID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("inserting item for order %q: %w", orderID, err)
		}
	}
	return nil
}

func (t *orderTx) InsertImages(ctx context.Context, orderID string, images []order.CustomImage) error {
	for _, img := range images {
		_, err := t.tx.Exec(ctx, insertOrderImageSQL, img.ID, orderID, img.ImageURL, img.Remarks)
		if err != nil {
			return fmt.Errorf("inserting image for order %q: %w", orderID, err)
		}
	}
	return nil
}

// DecrementStock is a conditional update: zero affected rows means the
// variant either lacks stock or does not exist, distinguished by a locked
// re-read.
func (t *orderTx) DecrementStock(ctx context.Context, variantID string, quantity int) error {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, variantID, quantity)
	if err != nil {
		return fmt.Errorf("decrementing stock for %q: %w", variantID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var available int
	err = t.tx.QueryRow(ctx, variantStockSQL, variantID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrVariantNotFound
	}
	if err != nil {
		return fmt.Errorf("reading stock for %q: %w", variantID, err)
	}
	return &catalog.InsufficientStockError{VariantID: variantID, Available: available, Requested: quantity}
}

func (t *orderTx) RestoreStock(ctx context.Context, variantID string, quantity int) error {
	tag, err := t.tx.Exec(ctx, restoreStockSQL, variantID, quantity)
	if err != nil {
		return fmt.Errorf("restoring stock for %q: %w", variantID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrVariantNotFound
	}
	return nil
}

func (t *orderTx) IncrementCouponUsage(ctx context.Context, couponID string) error {
	_, err := t.tx.Exec(ctx, incrementCouponUsageSQL, couponID)
	if err != nil {
		return fmt.Errorf("incrementing usage for coupon %q: %w", couponID, err)
	}
	return nil
}

func (t *orderTx) AppendTracking(ctx context.Context, entry *order.TrackingEntry) error {
	_, err := t.tx.Exec(ctx, insertTrackingSQL,
		entry.ID, entry.OrderID, entry.Status, entry.Description, entry.Location, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending tracking for order %q: %w", entry.OrderID, err)
	}
	return nil
}

func (t *orderTx) DeleteOrderCascade(ctx context.Context, id string) error {
	for _, sql := range []string{
		`DELETE FROM tracking_history WHERE order_id = $1`,
		`DELETE FROM custom_order_images WHERE order_id = $1`,
		`DELETE FROM order_items WHERE order_id = $1`,
		`DELETE FROM orders WHERE id = $1`,
	} {
		if _, err := t.tx.Exec(ctx, sql, id); err != nil {
			return fmt.Errorf("deleting order %q: %w", id, err)
		}
	}
	return nil
}

// ListTracking returns an order's tracking history oldest first.
func (s *OrderStore) ListTracking(ctx context.Context, orderID string) ([]order.TrackingEntry, error) {
	rows, err := s.pool.Query(ctx, listTrackingSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing tracking for %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanTracking)
}

func loadOrderChildren(ctx context.Context, q querier, o *order.Order) error {
	itemRows, err := q.Query(ctx, listOrderItemsSQL, o.ID)
	if err != nil {
		return fmt.Errorf("listing items for order %q: %w", o.ID, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("listing items for order %q: %w", o.ID, err)
	}

	imageRows, err := q.Query(ctx, listOrderImagesSQL, o.ID)
	if err != nil {
		return fmt.Errorf("listing images for order %q: %w", o.ID, err)
	}
	o.Images, err = pgx.CollectRows(imageRows, scanOrderImage)
	if err != nil {
		return fmt.Errorf("listing images for order %q: %w", o.ID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID,
		&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address,
		&o.Shipping.City, &o.Shipping.State, &o.Shipping.Pincode,
		&o.Status, &o.Subtotal, &o.Discount, &o.ShippingCost, &o.TotalAmount,
		&o.PaymentStatus, &o.PaymentMethod, &o.CouponID,
		&o.ProviderOrderID, &o.ProviderPaymentID, &o.ProviderSignature, &o.ProviderTransactionID,
		&o.TrackingNumber, &o.Carrier, &o.TrackingURL, &o.EstimatedDelivery,
		&o.AdminNotes, &o.Notes, &o.DeletedAt, &o.ShippedAt, &o.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var i order.OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.VariantID, &i.Quantity, &i.Price)
	return i, err
}

func scanOrderImage(row pgx.CollectableRow) (order.CustomImage, error) {
	var img order.CustomImage
	err := row.Scan(&img.ID, &img.OrderID, &img.ImageURL, &img.Remarks)
	return img, err
}

func scanTracking(row pgx.CollectableRow) (order.TrackingEntry, error) {
	var e order.TrackingEntry
	err := row.Scan(&e.ID, &e.OrderID, &e.Status, &e.Description, &e.Location, &e.CreatedAt)
	return e, err
}
