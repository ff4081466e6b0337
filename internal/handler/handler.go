// Package handler is the HTTP adapter: a chi router over the domain
// services, JSON request/response structs, and the error-to-status mapping.
// It carries no business rules of its own.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/craftline/storefront/internal/domain/catalog"
	"github.com/craftline/storefront/internal/domain/order"
	"github.com/craftline/storefront/internal/domain/rating"
	"github.com/craftline/storefront/internal/domain/slider"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Handler wires the domain services into HTTP routes.
type Handler struct {
	orders        *order.Service
	ratings       *rating.Service
	sliders       *slider.Service
	subcategories *catalog.SubcategoryService
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(
	orders *order.Service,
	ratings *rating.Service,
	sliders *slider.Service,
	subcategories *catalog.SubcategoryService,
) *Handler {
	return &Handler{
		orders:        orders,
		ratings:       ratings,
		sliders:       sliders,
		subcategories: subcategories,
	}
}

// Routes mounts every endpoint under /api.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/stats", h.orderStats)
			r.Post("/bulk-delete", h.bulkDeleteOrders)
			r.Get("/number/{orderNumber}", h.getOrderByNumber)

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", h.getOrder)
				r.Delete("/", h.deleteOrder)
				r.Get("/tracking", h.trackingHistory)
				r.Put("/status", h.updateOrderStatus)
				r.Put("/tracking", h.updateTracking)
				r.Post("/refund", h.processRefund)
				r.Post("/restore", h.restoreOrder)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", h.initiatePayment)
			r.Post("/confirm", h.confirmPayment)
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Post("/", h.createRating)
			r.Post("/bulk-approve", h.bulkApproveRatings)

			r.Route("/{ratingID}", func(r chi.Router) {
				r.Get("/", h.getRating)
				r.Put("/", h.updateRating)
				r.Delete("/", h.deleteRating)
				r.Put("/approve", h.approveRating)
				r.Post("/helpful", h.markHelpful)
				r.Delete("/helpful", h.unmarkHelpful)
			})
		})

		r.Route("/sliders", func(r chi.Router) {
			r.Get("/", h.listSliders)
			r.Post("/", h.createSlider)
			r.Put("/reorder", h.reorderSliders)

			r.Route("/{sliderID}", func(r chi.Router) {
				r.Get("/", h.getSlider)
				r.Put("/", h.updateSlider)
				r.Delete("/", h.deleteSlider)
				r.Put("/active", h.setSliderActive)
			})
		})

		r.Route("/subcategories", func(r chi.Router) {
			r.Get("/", h.listSubcategories)
			r.Post("/", h.createSubcategory)

			r.Route("/{subcategoryID}", func(r chi.Router) {
				r.Get("/", h.getSubcategory)
				r.Put("/", h.updateSubcategory)
				r.Delete("/", h.deleteSubcategory)
				r.Put("/active", h.setSubcategoryActive)
			})
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/orders", h.listUserOrders)
			r.Get("/ratings", h.listUserRatings)
		})

		r.Get("/products/{productID}/ratings", h.listProductRatings)
	})
}

// actor identifies the request's acting user. Authentication happens
// upstream; this layer only reads the identity headers it forwards.
func actorFrom(r *http.Request) rating.Actor {
	return rating.Actor{
		UserID: r.Header.Get("X-User-ID"),
		Admin:  r.Header.Get("X-User-Role") == "admin",
	}
}

// errorResponse is the uniform JSON error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// decodeJSON parses the request body into v, rejecting unknown fields and
// oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// serverError logs err and responds 500 without leaking internals.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
