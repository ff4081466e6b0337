package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/craftline/storefront/internal/domain/catalog"
)

type subcategoryResponse struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoryId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toSubcategoryResponse(s *catalog.Subcategory) subcategoryResponse {
	return subcategoryResponse{
		ID:          s.ID,
		CategoryID:  s.CategoryID,
		Name:        s.Name,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (h *Handler) listSubcategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := !(actorFrom(r).Admin && q.Get("all") == "true")

	subs, err := h.subcategories.List(r.Context(), q.Get("categoryId"), activeOnly)
	if err != nil {
		h.writeSubcategoryError(w, r, err)
		return
	}

	resp := make([]subcategoryResponse, len(subs))
	for i := range subs {
		resp[i] = toSubcategoryResponse(&subs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"subcategories": resp})
}

type createSubcategoryRequest struct {
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

func (h *Handler) createSubcategory(w http.ResponseWriter, r *http.Request) {
	var req createSubcategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	sub, err := h.subcategories.Create(r.Context(), catalog.CreateSubcategoryRequest{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Active:      active,
	})
	if err != nil {
		h.writeSubcategoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubcategoryResponse(sub))
}

func (h *Handler) getSubcategory(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subcategories.Get(r.Context(), chi.URLParam(r, "subcategoryID"))
	if err != nil {
		h.writeSubcategoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubcategoryResponse(sub))
}

type updateSubcategoryRequest struct {
	CategoryID  *string `json:"categoryId,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

func (h *Handler) updateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req updateSubcategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.subcategories.Update(r.Context(), chi.URLParam(r, "subcategoryID"), catalog.UpdateSubcategoryRequest{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Active:      req.Active,
	})
	if err != nil {
		h.writeSubcategoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubcategoryResponse(sub))
}

func (h *Handler) deleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := h.subcategories.Delete(r.Context(), chi.URLParam(r, "subcategoryID")); err != nil {
		h.writeSubcategoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "subcategory deleted"})
}

func (h *Handler) setSubcategoryActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.subcategories.SetActive(r.Context(), chi.URLParam(r, "subcategoryID"), req.Active)
	if err != nil {
		h.writeSubcategoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubcategoryResponse(sub))
}

func (h *Handler) writeSubcategoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrSubcategoryInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrSubcategoryNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrSubcategoryNameTaken),
		errors.Is(err, catalog.ErrSubcategoryHasProducts):
		writeError(w, http.StatusConflict, err.Error())
	default:
		serverError(w, r, err)
	}
}
