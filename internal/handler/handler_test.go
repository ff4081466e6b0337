package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/craftline/storefront/internal/domain/catalog"
	"github.com/craftline/storefront/internal/domain/order"
	"github.com/craftline/storefront/internal/domain/rating"
	"github.com/craftline/storefront/internal/domain/slider"
)

// --- Mock implementations ---

// stubOrderStore serves a single canned order (or error) for handler-level
// tests; lifecycle behavior itself is covered by the order package tests.
type stubOrderStore struct {
	order *order.Order
	err   error
}

func (s *stubOrderStore) InTx(_ context.Context, fn func(tx order.Tx) error) error {
	return fn(&stubOrderTx{store: s})
}

func (s *stubOrderStore) GetOrder(context.Context, string) (*order.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.order
	return &cp, nil
}

func (s *stubOrderStore) GetOrderByNumber(context.Context, string) (*order.Order, error) {
	return s.GetOrder(context.Background(), "")
}

func (s *stubOrderStore) ListOrders(context.Context, order.ListFilter) ([]order.Order, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return []order.Order{*s.order}, 1, nil
}

func (s *stubOrderStore) Stats(context.Context) (*order.Stats, error) {
	return &order.Stats{
		TotalOrders:    1,
		ByStatus:       map[order.Status]int{order.StatusConfirmed: 1},
		TotalRevenue:   decimal.RequireFromString("750.00"),
		PendingRevenue: decimal.Zero,
	}, nil
}

func (s *stubOrderStore) ListExpiredPending(context.Context, time.Time) ([]order.Order, error) {
	return nil, nil
}

func (s *stubOrderStore) ListTracking(context.Context, string) ([]order.TrackingEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []order.TrackingEntry{{
		OrderID:     s.order.ID,
		Status:      order.StatusConfirmed,
		Description: "Order confirmed",
		CreatedAt:   s.order.CreatedAt,
	}}, nil
}

type stubOrderTx struct {
	store *stubOrderStore
}

func (t *stubOrderTx) InsertOrder(context.Context, *order.Order) error { return nil }
func (t *stubOrderTx) UpdateOrder(_ context.Context, o *order.Order) error {
	t.store.order = o
	return nil
}

func (t *stubOrderTx) GetOrderForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return t.store.GetOrder(ctx, id)
}
func (t *stubOrderTx) InsertItems(context.Context, string, []order.OrderItem) error    { return nil }
func (t *stubOrderTx) InsertImages(context.Context, string, []order.CustomImage) error { return nil }
func (t *stubOrderTx) DecrementStock(context.Context, string, int) error               { return nil }
func (t *stubOrderTx) RestoreStock(context.Context, string, int) error                 { return nil }
func (t *stubOrderTx) IncrementCouponUsage(context.Context, string) error              { return nil }
func (t *stubOrderTx) AppendTracking(context.Context, *order.TrackingEntry) error      { return nil }
func (t *stubOrderTx) DeleteOrderCascade(context.Context, string) error                { return nil }

type memRatingRepo struct {
	ratings map[string]*rating.Rating
	helpful map[string]map[string]bool
}

func newMemRatingRepo() *memRatingRepo {
	return &memRatingRepo{
		ratings: make(map[string]*rating.Rating),
		helpful: make(map[string]map[string]bool),
	}
}

func (m *memRatingRepo) Get(_ context.Context, id string) (*rating.Rating, error) {
	r, ok := m.ratings[id]
	if !ok {
		return nil, rating.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRatingRepo) FindByProductAndUser(_ context.Context, productID, userID string) (*rating.Rating, error) {
	for _, r := range m.ratings {
		if r.ProductID == productID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, rating.ErrNotFound
}

func (m *memRatingRepo) ListByProduct(_ context.Context, productID string, approvedOnly bool, _ rating.Page) ([]rating.Rating, int, error) {
	var out []rating.Rating
	for _, r := range m.ratings {
		if r.ProductID == productID && (!approvedOnly || r.Approved) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRatingRepo) ListByUser(_ context.Context, userID string, _ rating.Page) ([]rating.Rating, int, error) {
	var out []rating.Rating
	for _, r := range m.ratings {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

func (m *memRatingRepo) Create(_ context.Context, r *rating.Rating) error {
	cp := *r
	m.ratings[r.ID] = &cp
	return nil
}

func (m *memRatingRepo) Update(_ context.Context, r *rating.Rating) error {
	cp := *r
	m.ratings[r.ID] = &cp
	return nil
}

func (m *memRatingRepo) Delete(_ context.Context, id string) error {
	delete(m.ratings, id)
	return nil
}

func (m *memRatingRepo) SetApproved(_ context.Context, id string, approved bool) error {
	r, ok := m.ratings[id]
	if !ok {
		return rating.ErrNotFound
	}
	r.Approved = approved
	return nil
}

func (m *memRatingRepo) SetApprovedBulk(_ context.Context, ids []string, approved bool) (int, error) {
	n := 0
	for _, id := range ids {
		if r, ok := m.ratings[id]; ok && r.Approved != approved {
			r.Approved = approved
			n++
		}
	}
	return n, nil
}

func (m *memRatingRepo) MarkHelpful(_ context.Context, ratingID, userID string) error {
	r, ok := m.ratings[ratingID]
	if !ok {
		return rating.ErrNotFound
	}
	if m.helpful[ratingID][userID] {
		return rating.ErrAlreadyMarked
	}
	if m.helpful[ratingID] == nil {
		m.helpful[ratingID] = make(map[string]bool)
	}
	m.helpful[ratingID][userID] = true
	r.HelpfulCount++
	return nil
}

func (m *memRatingRepo) UnmarkHelpful(_ context.Context, ratingID, userID string) error {
	r, ok := m.ratings[ratingID]
	if !ok {
		return rating.ErrNotFound
	}
	if !m.helpful[ratingID][userID] {
		return rating.ErrNotMarked
	}
	delete(m.helpful[ratingID], userID)
	r.HelpfulCount--
	return nil
}

type memSliderRepo struct {
	sliders map[string]*slider.Slider
}

func newMemSliderRepo() *memSliderRepo {
	return &memSliderRepo{sliders: make(map[string]*slider.Slider)}
}

func (m *memSliderRepo) Get(_ context.Context, id string) (*slider.Slider, error) {
	s, ok := m.sliders[id]
	if !ok {
		return nil, slider.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSliderRepo) List(_ context.Context, activeOnly bool) ([]slider.Slider, error) {
	var out []slider.Slider
	for _, s := range m.sliders {
		if !activeOnly || s.Active {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memSliderRepo) NextPosition(context.Context) (int, error) {
	maxPos := 0
	for _, s := range m.sliders {
		if s.Position > maxPos {
			maxPos = s.Position
		}
	}
	return maxPos + 1, nil
}

func (m *memSliderRepo) Create(_ context.Context, s *slider.Slider) error {
	cp := *s
	m.sliders[s.ID] = &cp
	return nil
}

func (m *memSliderRepo) Update(_ context.Context, s *slider.Slider) error {
	cp := *s
	m.sliders[s.ID] = &cp
	return nil
}

func (m *memSliderRepo) Delete(_ context.Context, id string) error {
	delete(m.sliders, id)
	return nil
}

func (m *memSliderRepo) SetActive(_ context.Context, id string, active bool) error {
	s, ok := m.sliders[id]
	if !ok {
		return slider.ErrNotFound
	}
	s.Active = active
	return nil
}

func (m *memSliderRepo) Reorder(_ context.Context, orderedIDs []string) error {
	for i, id := range orderedIDs {
		s, ok := m.sliders[id]
		if !ok {
			return slider.ErrNotFound
		}
		s.Position = i + 1
	}
	return nil
}

type memSubcategoryRepo struct {
	subs       map[string]*catalog.Subcategory
	categories map[string]bool
	products   map[string]int
}

func newMemSubcategoryRepo() *memSubcategoryRepo {
	return &memSubcategoryRepo{
		subs:       make(map[string]*catalog.Subcategory),
		categories: map[string]bool{"cat-1": true},
		products:   make(map[string]int),
	}
}

func (m *memSubcategoryRepo) Get(_ context.Context, id string) (*catalog.Subcategory, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, catalog.ErrSubcategoryNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubcategoryRepo) List(_ context.Context, categoryID string, activeOnly bool) ([]catalog.Subcategory, error) {
	var out []catalog.Subcategory
	for _, s := range m.subs {
		if categoryID != "" && s.CategoryID != categoryID {
			continue
		}
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memSubcategoryRepo) FindByName(_ context.Context, categoryID, name string) (*catalog.Subcategory, error) {
	for _, s := range m.subs {
		if s.CategoryID == categoryID && s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, catalog.ErrSubcategoryNotFound
}

func (m *memSubcategoryRepo) Create(_ context.Context, s *catalog.Subcategory) error {
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *memSubcategoryRepo) Update(_ context.Context, s *catalog.Subcategory) error {
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *memSubcategoryRepo) Delete(_ context.Context, id string) error {
	delete(m.subs, id)
	return nil
}

func (m *memSubcategoryRepo) CountProducts(_ context.Context, subcategoryID string) (int, error) {
	return m.products[subcategoryID], nil
}

func (m *memSubcategoryRepo) CategoryExists(_ context.Context, categoryID string) (bool, error) {
	return m.categories[categoryID], nil
}

// --- Fixtures ---

type fixture struct {
	router     *chi.Mux
	orderStore *stubOrderStore
	ratings    *memRatingRepo
	sliders    *memSliderRepo
	subs       *memSubcategoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lg := zaptest.NewLogger(t)

	f := &fixture{
		orderStore: &stubOrderStore{},
		ratings:    newMemRatingRepo(),
		sliders:    newMemSliderRepo(),
		subs:       newMemSubcategoryRepo(),
	}

	h := NewHandler(
		order.NewService(f.orderStore, nil, nil, nil, lg),
		rating.NewService(f.ratings, lg),
		slider.NewService(f.sliders, lg),
		catalog.NewSubcategoryService(f.subs, lg),
	)
	f.router = chi.NewRouter()
	h.Routes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

var adminHeaders = map[string]string{"X-User-ID": "admin-1", "X-User-Role": "admin"}

func seededOrder() *order.Order {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:            "ord-1",
		OrderNumber:   "ORD-1750000000000-ABC123",
		UserID:        "user-1",
		Status:        order.StatusConfirmed,
		PaymentStatus: order.PaymentPending,
		PaymentMethod: order.MethodCOD,
		Subtotal:      decimal.RequireFromString("750.00"),
		TotalAmount:   decimal.RequireFromString("750.00"),
		Shipping: order.ShippingInfo{
			Name: "Asha", Email: "asha@example.com", Phone: "9999999999",
			Address: "1 Main St", City: "Pune", State: "MH", Pincode: "411001",
		},
		Items: []order.OrderItem{{
			ID: "item-1", OrderID: "ord-1", ProductID: "prod-1",
			VariantID: "var-1", Quantity: 3,
			Price: decimal.RequireFromString("250.00"),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Order endpoints ---

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	f.orderStore.order = seededOrder()

	rec := f.do(t, http.MethodGet, "/api/orders/ord-1", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[orderResponse](t, rec)
	assert.Equal(t, "ORD-1750000000000-ABC123", resp.OrderNumber)
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, "Order confirmed and will be processed soon", resp.StatusDescription)
	assert.InDelta(t, 750.0, resp.TotalAmount, 0.001)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	f.orderStore.err = order.ErrOrderNotFound

	rec := f.do(t, http.MethodGet, "/api/orders/missing", nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Message, "order not found")
}

func TestUpdateOrderStatus_InvalidTransitionMapsToConflict(t *testing.T) {
	f := newFixture(t)
	delivered := seededOrder()
	delivered.Status = order.StatusDelivered
	f.orderStore.order = delivered

	rec := f.do(t, http.MethodPut, "/api/orders/ord-1/status",
		map[string]string{"status": "PROCESSING"}, adminHeaders)

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "already DELIVERED")
}

func TestUpdateOrderStatus_UnknownValueMapsToConflict(t *testing.T) {
	f := newFixture(t)
	f.orderStore.order = seededOrder()

	rec := f.do(t, http.MethodPut, "/api/orders/ord-1/status",
		map[string]string{"status": "TELEPORTED"}, adminHeaders)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateTracking_MissingFieldsMapToBadRequest(t *testing.T) {
	f := newFixture(t)
	f.orderStore.order = seededOrder()

	rec := f.do(t, http.MethodPut, "/api/orders/ord-1/tracking",
		map[string]string{"trackingUrl": "https://track.example.com"}, adminHeaders)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "trackingNumber")
	assert.Contains(t, resp.Message, "carrier")
}

func TestProcessRefund_NotPaidMapsToConflict(t *testing.T) {
	f := newFixture(t)
	f.orderStore.order = seededOrder()

	rec := f.do(t, http.MethodPost, "/api/orders/ord-1/refund",
		map[string]string{"reason": "customer request"}, adminHeaders)

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "not paid")
}

func TestDeleteOrder_HardRefusedInFlightMapsToConflict(t *testing.T) {
	f := newFixture(t)
	shipped := seededOrder()
	shipped.Status = order.StatusShipped
	f.orderStore.order = shipped

	rec := f.do(t, http.MethodDelete, "/api/orders/ord-1", nil, adminHeaders)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestBulkDelete_MissingIDsMapToBadRequest(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders/bulk-delete",
		map[string]any{"orderIds": []string{}, "deleteType": "hard"}, adminHeaders)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackingHistory(t *testing.T) {
	f := newFixture(t)
	f.orderStore.order = seededOrder()

	rec := f.do(t, http.MethodGet, "/api/orders/ord-1/tracking", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string][]trackingEntryResponse](t, rec)
	require.Len(t, resp["tracking"], 1)
	assert.Equal(t, "CONFIRMED", resp["tracking"][0].Status)
}

func TestOrderStats(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders/stats", nil, adminHeaders)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[statsResponse](t, rec)
	assert.Equal(t, 1, resp.TotalOrders)
	assert.InDelta(t, 750.0, resp.TotalRevenue, 0.001)
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Rating endpoints ---

func TestRatingLifecycle(t *testing.T) {
	f := newFixture(t)
	user := map[string]string{"X-User-ID": "user-1"}

	rec := f.do(t, http.MethodPost, "/api/ratings/", map[string]any{
		"productId": "prod-1", "stars": 4, "title": "Solid", "comment": "Works well",
	}, user)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[ratingResponse](t, rec)
	assert.Equal(t, "user-1", created.UserID)
	assert.False(t, created.Approved)

	// Second rating by the same user conflicts.
	rec = f.do(t, http.MethodPost, "/api/ratings/", map[string]any{
		"productId": "prod-1", "stars": 5,
	}, user)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Out-of-range stars are a bad request.
	rec = f.do(t, http.MethodPost, "/api/ratings/", map[string]any{
		"productId": "prod-2", "stars": 6,
	}, user)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// A stranger may not modify it.
	rec = f.do(t, http.MethodPut, "/api/ratings/"+created.ID,
		map[string]any{"stars": 1}, map[string]string{"X-User-ID": "intruder"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Approval, then the unapproved->approved listing distinction.
	rec = f.do(t, http.MethodPut, "/api/ratings/"+created.ID+"/approve",
		map[string]bool{"approved": true}, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products/prod-1/ratings", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[ratingListResponse](t, rec)
	require.Len(t, listed.Ratings, 1)
	assert.True(t, listed.Ratings[0].Approved)
}

func TestMarkHelpful_DuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	f.ratings.ratings["r1"] = &rating.Rating{ID: "r1", ProductID: "prod-1", UserID: "author"}
	voter := map[string]string{"X-User-ID": "voter-1"}

	rec := f.do(t, http.MethodPost, "/api/ratings/r1/helpful", nil, voter)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/ratings/r1/helpful", nil, voter)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/ratings/r1/helpful", nil, voter)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/ratings/r1/helpful", nil, voter)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestBulkApproveRatings(t *testing.T) {
	f := newFixture(t)
	f.ratings.ratings["r1"] = &rating.Rating{ID: "r1", ProductID: "p"}
	f.ratings.ratings["r2"] = &rating.Rating{ID: "r2", ProductID: "p", Approved: true}

	rec := f.do(t, http.MethodPost, "/api/ratings/bulk-approve",
		map[string][]string{"ratingIds": {"r1", "r2"}}, adminHeaders)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]int](t, rec)
	assert.Equal(t, 1, resp["approved"])
}

// --- Slider endpoints ---

func TestSliderLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sliders/", map[string]string{
		"title": "Summer Sale", "imageUrl": "https://cdn.example.com/sale.jpg",
	}, adminHeaders)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeBody[sliderResponse](t, rec)
	assert.Equal(t, 1, first.Position)
	assert.True(t, first.Active)

	rec = f.do(t, http.MethodPost, "/api/sliders/", map[string]string{
		"title": "New Arrivals", "imageUrl": "https://cdn.example.com/new.jpg",
	}, adminHeaders)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeBody[sliderResponse](t, rec)
	assert.Equal(t, 2, second.Position)

	// Missing image is a bad request.
	rec = f.do(t, http.MethodPost, "/api/sliders/", map[string]string{"title": "Broken"}, adminHeaders)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Reorder swaps positions.
	rec = f.do(t, http.MethodPut, "/api/sliders/reorder",
		map[string][]string{"sliderIds": {second.ID, first.ID}}, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sliders/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[map[string][]sliderResponse](t, rec)
	require.Len(t, listed["sliders"], 2)
	assert.Equal(t, second.ID, listed["sliders"][0].ID)

	// Deactivated sliders disappear from the public listing.
	rec = f.do(t, http.MethodPut, "/api/sliders/"+first.ID+"/active",
		map[string]bool{"active": false}, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sliders/", nil, nil)
	listed = decodeBody[map[string][]sliderResponse](t, rec)
	require.Len(t, listed["sliders"], 1)

	// Admins can still see everything.
	rec = f.do(t, http.MethodGet, "/api/sliders/?all=true", nil, adminHeaders)
	listed = decodeBody[map[string][]sliderResponse](t, rec)
	require.Len(t, listed["sliders"], 2)
}

func TestSliderNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sliders/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Subcategory endpoints ---

func TestSubcategoryLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/subcategories/", map[string]any{
		"categoryId": "cat-1", "name": "Mugs",
	}, adminHeaders)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[subcategoryResponse](t, rec)
	assert.True(t, created.Active)

	// Duplicate name in the same category conflicts.
	rec = f.do(t, http.MethodPost, "/api/subcategories/", map[string]any{
		"categoryId": "cat-1", "name": "Mugs",
	}, adminHeaders)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Unknown category is a 404.
	rec = f.do(t, http.MethodPost, "/api/subcategories/", map[string]any{
		"categoryId": "nope", "name": "Plates",
	}, adminHeaders)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Missing name is a bad request.
	rec = f.do(t, http.MethodPost, "/api/subcategories/", map[string]any{
		"categoryId": "cat-1",
	}, adminHeaders)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Deletion is refused while products remain.
	f.subs.products[created.ID] = 2
	rec = f.do(t, http.MethodDelete, "/api/subcategories/"+created.ID, nil, adminHeaders)
	require.Equal(t, http.StatusConflict, rec.Code)

	f.subs.products[created.ID] = 0
	rec = f.do(t, http.MethodDelete, "/api/subcategories/"+created.ID, nil, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListOrders_Pagination(t *testing.T) {
	f := newFixture(t)
	f.orderStore.order = seededOrder()

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/orders/?page=%d&perPage=%d", 2, 10), nil, adminHeaders)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[orderListResponse](t, rec)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 2, resp.Page)
}
