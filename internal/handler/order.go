package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftline/storefront/internal/domain/catalog"
	"github.com/craftline/storefront/internal/domain/order"
	"github.com/craftline/storefront/internal/domain/payment"
	"github.com/craftline/storefront/internal/domain/pricing"
)

type shippingPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type customImagePayload struct {
	ImageURL string `json:"imageUrl"`
	Remarks  string `json:"remarks,omitempty"`
}

type createOrderRequest struct {
	UserID       string               `json:"userId"`
	Shipping     shippingPayload      `json:"shipping"`
	Items        []orderItemPayload   `json:"items"`
	CouponCode   string               `json:"couponCode,omitempty"`
	CustomImages []customImagePayload `json:"customImages,omitempty"`
}

func (req createOrderRequest) toDomain() order.CreateRequest {
	items := make([]pricing.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = pricing.Item{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	}
	images := make([]order.CustomImageInput, len(req.CustomImages))
	for i, img := range req.CustomImages {
		images[i] = order.CustomImageInput{ImageURL: img.ImageURL, Remarks: img.Remarks}
	}
	return order.CreateRequest{
		UserID: req.UserID,
		Shipping: order.ShippingInfo{
			Name: req.Shipping.Name, Email: req.Shipping.Email, Phone: req.Shipping.Phone,
			Address: req.Shipping.Address, City: req.Shipping.City,
			State: req.Shipping.State, Pincode: req.Shipping.Pincode,
		},
		Items:        items,
		CouponCode:   req.CouponCode,
		CustomImages: images,
	}
}

type orderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type trackingEntryResponse struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type orderResponse struct {
	ID                string  `json:"id"`
	OrderNumber       string  `json:"orderNumber"`
	UserID            string  `json:"userId"`
	Status            string  `json:"status"`
	StatusDescription string  `json:"statusDescription"`
	PaymentStatus     string  `json:"paymentStatus"`
	PaymentMethod     string  `json:"paymentMethod"`
	Subtotal          float64 `json:"subtotal"`
	Discount          float64 `json:"discount"`
	ShippingCost      float64 `json:"shippingCost"`
	TotalAmount       float64 `json:"totalAmount"`

	Shipping shippingPayload `json:"shipping"`

	TrackingNumber    string     `json:"trackingNumber,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
	TrackingURL       string     `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`

	Items  []orderItemResponse  `json:"items"`
	Images []customImagePayload `json:"customImages,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ID: it.ID, ProductID: it.ProductID, VariantID: it.VariantID,
			Quantity: it.Quantity, Price: it.Price.InexactFloat64(),
		}
	}
	images := make([]customImagePayload, len(o.Images))
	for i, img := range o.Images {
		images[i] = customImagePayload{ImageURL: img.ImageURL, Remarks: img.Remarks}
	}
	return orderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		Status:            string(o.Status),
		StatusDescription: order.DescribeStatus(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		PaymentMethod:     string(o.PaymentMethod),
		Subtotal:          o.Subtotal.InexactFloat64(),
		Discount:          o.Discount.InexactFloat64(),
		ShippingCost:      o.ShippingCost.InexactFloat64(),
		TotalAmount:       o.TotalAmount.InexactFloat64(),
		Shipping: shippingPayload{
			Name: o.Shipping.Name, Email: o.Shipping.Email, Phone: o.Shipping.Phone,
			Address: o.Shipping.Address, City: o.Shipping.City,
			State: o.Shipping.State, Pincode: o.Shipping.Pincode,
		},
		TrackingNumber:    o.TrackingNumber,
		Carrier:           o.Carrier,
		TrackingURL:       o.TrackingURL,
		EstimatedDelivery: o.EstimatedDelivery,
		Items:             items,
		Images:            images,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		ShippedAt:         o.ShippedAt,
		DeliveredAt:       o.DeliveredAt,
		DeletedAt:         o.DeletedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.CreateCODOrder(r.Context(), req.toDomain())
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

type paymentInitiationResponse struct {
	ProviderOrderID string  `json:"providerOrderId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	init, err := h.orders.InitiatePayment(r.Context(), req.toDomain())
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentInitiationResponse{
		ProviderOrderID: init.ProviderOrderID,
		Amount:          init.Amount.InexactFloat64(),
		Currency:        init.Currency,
	})
}

type confirmPaymentRequest struct {
	createOrderRequest
	ProviderOrderID   string `json:"providerOrderId"`
	ProviderPaymentID string `json:"providerPaymentId"`
	Signature         string `json:"signature"`
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.ConfirmPayment(r.Context(), req.toDomain(), order.PaymentCapture{
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		Signature:         req.Signature,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrderByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type orderListResponse struct {
	Orders  []orderResponse `json:"orders"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"perPage"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := order.ListFilter{
		UserID:         q.Get("userId"),
		Status:         order.Status(q.Get("status")),
		PaymentStatus:  order.PaymentStatus(q.Get("paymentStatus")),
		IncludeDeleted: q.Get("includeDeleted") == "true",
		Page:           intQuery(q.Get("page")),
		PerPage:        intQuery(q.Get("perPage")),
	}

	orders, total, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	h.writeOrderList(w, orders, total, filter.Page, filter.PerPage)
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := intQuery(q.Get("page")), intQuery(q.Get("perPage"))

	orders, total, err := h.orders.ListUserOrders(r.Context(), chi.URLParam(r, "userID"), page, perPage)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	h.writeOrderList(w, orders, total, page, perPage)
}

func (h *Handler) writeOrderList(w http.ResponseWriter, orders []order.Order, total, page, perPage int) {
	resp := orderListResponse{
		Orders:  make([]orderResponse, len(orders)),
		Total:   total,
		Page:    max(page, 1),
		PerPage: perPage,
	}
	for i := range orders {
		resp.Orders[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) trackingHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.orders.TrackingHistory(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	resp := make([]trackingEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = trackingEntryResponse{
			Status:      string(e.Status),
			Description: e.Description,
			Location:    e.Location,
			CreatedAt:   e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking": resp})
}

type statsResponse struct {
	TotalOrders    int            `json:"totalOrders"`
	ByStatus       map[string]int `json:"byStatus"`
	TotalRevenue   float64        `json:"totalRevenue"`
	PendingRevenue float64        `json:"pendingRevenue"`
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.OrderStats(r.Context())
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for s, n := range stats.ByStatus {
		byStatus[string(s)] = n
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalOrders:    stats.TotalOrders,
		ByStatus:       byStatus,
		TotalRevenue:   stats.TotalRevenue.InexactFloat64(),
		PendingRevenue: stats.PendingRevenue.InexactFloat64(),
	})
}

type updateStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes,omitempty"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), order.Status(req.Status), req.AdminNotes)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateTrackingRequest struct {
	TrackingNumber    string     `json:"trackingNumber"`
	Carrier           string     `json:"carrier"`
	TrackingURL       string     `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

func (h *Handler) updateTracking(w http.ResponseWriter, r *http.Request) {
	var req updateTrackingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateTracking(r.Context(), chi.URLParam(r, "orderID"), order.TrackingUpdate{
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		TrackingURL:       req.TrackingURL,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type refundRequest struct {
	Amount     *float64 `json:"amount,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	AdminNotes string   `json:"adminNotes,omitempty"`
}

func (h *Handler) processRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	domainReq := order.RefundRequest{Reason: req.Reason, AdminNotes: req.AdminNotes}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		domainReq.Amount = &amount
	}

	o, err := h.orders.ProcessRefund(r.Context(), chi.URLParam(r, "orderID"), domainReq)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// deleteOrder removes an order. ?type=soft marks it deleted and cancels it;
// the default hard delete cascades the rows away.
func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	if r.URL.Query().Get("type") == string(order.DeleteSoft) {
		o, err := h.orders.SoftDeleteOrder(r.Context(), id, actorFrom(r).UserID)
		if err != nil {
			h.writeOrderError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(o))
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

func (h *Handler) restoreOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.RestoreOrder(r.Context(), chi.URLParam(r, "orderID"), actorFrom(r).UserID)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type bulkDeleteRequest struct {
	OrderIDs   []string `json:"orderIds"`
	DeleteType string   `json:"deleteType"`
}

type bulkFailureResponse struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type bulkDeleteResponse struct {
	Requested int                   `json:"requested"`
	Deleted   []string              `json:"deleted"`
	Failed    []bulkFailureResponse `json:"failed,omitempty"`
}

func (h *Handler) bulkDeleteOrders(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	deleteType := order.DeleteType(req.DeleteType)
	if req.DeleteType == "" {
		deleteType = order.DeleteSoft
	}

	report, err := h.orders.BulkDeleteOrders(r.Context(), req.OrderIDs, deleteType)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	resp := bulkDeleteResponse{
		Requested: report.Requested,
		Deleted:   report.Deleted,
		Failed:    make([]bulkFailureResponse, len(report.Failed)),
	}
	for i, f := range report.Failed {
		resp.Failed[i] = bulkFailureResponse{OrderID: f.OrderID, Reason: f.Reason}
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeOrderError maps domain errors from the order lifecycle (and the
// pricing, catalog, and payment collaborators underneath it) to HTTP
// responses.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *order.ValidationError
		invalidItemErr *pricing.InvalidItemError
		unavailableErr *catalog.ProductUnavailableError
		stockErr       *catalog.InsufficientStockError
		statusErr      *order.InvalidStatusError
		deletableErr   *order.NotDeletableError
		refundErr      *order.RefundNotEligibleError
		bulkErr        *order.BulkNotFoundError
		providerErr    *payment.ProviderError
		gwRefundErr    *payment.RefundError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &invalidItemErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrVerificationFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &bulkErr):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrVariantNotFound),
		errors.As(err, &unavailableErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &statusErr),
		errors.As(err, &deletableErr),
		errors.As(err, &refundErr),
		errors.Is(err, order.ErrAlreadyDeleted),
		errors.Is(err, order.ErrNotDeleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &providerErr), errors.As(err, &gwRefundErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		serverError(w, r, err)
	}
}

func intQuery(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
