package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/craftline/storefront/internal/domain/slider"
)

type sliderResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle,omitempty"`
	ImageURL  string    `json:"imageUrl"`
	LinkURL   string    `json:"linkUrl,omitempty"`
	Position  int       `json:"position"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSliderResponse(s *slider.Slider) sliderResponse {
	return sliderResponse{
		ID:        s.ID,
		Title:     s.Title,
		Subtitle:  s.Subtitle,
		ImageURL:  s.ImageURL,
		LinkURL:   s.LinkURL,
		Position:  s.Position,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// listSliders returns sliders in display order. Admins see inactive ones too
// with ?all=true.
func (h *Handler) listSliders(w http.ResponseWriter, r *http.Request) {
	activeOnly := !(actorFrom(r).Admin && r.URL.Query().Get("all") == "true")

	sliders, err := h.sliders.List(r.Context(), activeOnly)
	if err != nil {
		h.writeSliderError(w, r, err)
		return
	}

	resp := make([]sliderResponse, len(sliders))
	for i := range sliders {
		resp[i] = toSliderResponse(&sliders[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"sliders": resp})
}

type createSliderRequest struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl"`
	LinkURL  string `json:"linkUrl,omitempty"`
}

func (h *Handler) createSlider(w http.ResponseWriter, r *http.Request) {
	var req createSliderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sl, err := h.sliders.Create(r.Context(), slider.CreateRequest{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		ImageURL: req.ImageURL,
		LinkURL:  req.LinkURL,
	})
	if err != nil {
		h.writeSliderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSliderResponse(sl))
}

func (h *Handler) getSlider(w http.ResponseWriter, r *http.Request) {
	sl, err := h.sliders.Get(r.Context(), chi.URLParam(r, "sliderID"))
	if err != nil {
		h.writeSliderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSliderResponse(sl))
}

type updateSliderRequest struct {
	Title    *string `json:"title,omitempty"`
	Subtitle *string `json:"subtitle,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
	LinkURL  *string `json:"linkUrl,omitempty"`
}

func (h *Handler) updateSlider(w http.ResponseWriter, r *http.Request) {
	var req updateSliderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sl, err := h.sliders.Update(r.Context(), chi.URLParam(r, "sliderID"), slider.UpdateRequest{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		ImageURL: req.ImageURL,
		LinkURL:  req.LinkURL,
	})
	if err != nil {
		h.writeSliderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSliderResponse(sl))
}

func (h *Handler) deleteSlider(w http.ResponseWriter, r *http.Request) {
	if err := h.sliders.Delete(r.Context(), chi.URLParam(r, "sliderID")); err != nil {
		h.writeSliderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "slider deleted"})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) setSliderActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.sliders.SetActive(r.Context(), chi.URLParam(r, "sliderID"), req.Active); err != nil {
		h.writeSliderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

type reorderSlidersRequest struct {
	SliderIDs []string `json:"sliderIds"`
}

func (h *Handler) reorderSliders(w http.ResponseWriter, r *http.Request) {
	var req reorderSlidersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.sliders.Reorder(r.Context(), req.SliderIDs); err != nil {
		h.writeSliderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "sliders reordered"})
}

func (h *Handler) writeSliderError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *slider.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, slider.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		serverError(w, r, err)
	}
}
