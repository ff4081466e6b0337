package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/craftline/storefront/internal/domain/rating"
)

type createRatingRequest struct {
	ProductID string `json:"productId"`
	Stars     int    `json:"stars"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

type ratingResponse struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"productId"`
	UserID       string    `json:"userId"`
	Stars        int       `json:"stars"`
	Title        string    `json:"title,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	Approved     bool      `json:"approved"`
	HelpfulCount int       `json:"helpfulCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toRatingResponse(r *rating.Rating) ratingResponse {
	return ratingResponse{
		ID:           r.ID,
		ProductID:    r.ProductID,
		UserID:       r.UserID,
		Stars:        r.Stars,
		Title:        r.Title,
		Comment:      r.Comment,
		Approved:     r.Approved,
		HelpfulCount: r.HelpfulCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (h *Handler) createRating(w http.ResponseWriter, r *http.Request) {
	var req createRatingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	rt, err := h.ratings.Create(r.Context(), rating.CreateRequest{
		ProductID: req.ProductID,
		UserID:    actor.UserID,
		Stars:     req.Stars,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRatingResponse(rt))
}

func (h *Handler) getRating(w http.ResponseWriter, r *http.Request) {
	rt, err := h.ratings.Get(r.Context(), chi.URLParam(r, "ratingID"))
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRatingResponse(rt))
}

type updateRatingRequest struct {
	Stars   *int    `json:"stars,omitempty"`
	Title   *string `json:"title,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

func (h *Handler) updateRating(w http.ResponseWriter, r *http.Request) {
	var req updateRatingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rt, err := h.ratings.Update(r.Context(), chi.URLParam(r, "ratingID"), actorFrom(r), rating.UpdateRequest{
		Stars:   req.Stars,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRatingResponse(rt))
}

func (h *Handler) deleteRating(w http.ResponseWriter, r *http.Request) {
	if err := h.ratings.Delete(r.Context(), chi.URLParam(r, "ratingID"), actorFrom(r)); err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rating deleted"})
}

type approveRatingRequest struct {
	Approved bool `json:"approved"`
}

func (h *Handler) approveRating(w http.ResponseWriter, r *http.Request) {
	var req approveRatingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.ratings.SetApproved(r.Context(), chi.URLParam(r, "ratingID"), req.Approved); err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"approved": req.Approved})
}

type bulkApproveRequest struct {
	RatingIDs []string `json:"ratingIds"`
}

func (h *Handler) bulkApproveRatings(w http.ResponseWriter, r *http.Request) {
	var req bulkApproveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	approved, err := h.ratings.ApproveBulk(r.Context(), req.RatingIDs)
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"approved": approved})
}

func (h *Handler) markHelpful(w http.ResponseWriter, r *http.Request) {
	err := h.ratings.MarkHelpful(r.Context(), chi.URLParam(r, "ratingID"), actorFrom(r).UserID)
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "marked helpful"})
}

func (h *Handler) unmarkHelpful(w http.ResponseWriter, r *http.Request) {
	err := h.ratings.UnmarkHelpful(r.Context(), chi.URLParam(r, "ratingID"), actorFrom(r).UserID)
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "helpful mark removed"})
}

type ratingListResponse struct {
	Ratings []ratingResponse `json:"ratings"`
	Total   int              `json:"total"`
}

func (h *Handler) listProductRatings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := rating.Page{Number: intQuery(q.Get("page")), PerPage: intQuery(q.Get("perPage"))}

	ratings, total, err := h.ratings.ListByProduct(r.Context(), chi.URLParam(r, "productID"), actorFrom(r), page)
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	h.writeRatingList(w, ratings, total)
}

func (h *Handler) listUserRatings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := rating.Page{Number: intQuery(q.Get("page")), PerPage: intQuery(q.Get("perPage"))}

	ratings, total, err := h.ratings.ListByUser(r.Context(), chi.URLParam(r, "userID"), page)
	if err != nil {
		h.writeRatingError(w, r, err)
		return
	}
	h.writeRatingList(w, ratings, total)
}

func (h *Handler) writeRatingList(w http.ResponseWriter, ratings []rating.Rating, total int) {
	resp := ratingListResponse{Ratings: make([]ratingResponse, len(ratings)), Total: total}
	for i := range ratings {
		resp.Ratings[i] = toRatingResponse(&ratings[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeRatingError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		starsErr *rating.StarsRangeError
		authErr  *rating.AuthorizationError
	)

	switch {
	case errors.As(err, &starsErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rating.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &authErr):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, rating.ErrDuplicate),
		errors.Is(err, rating.ErrAlreadyMarked),
		errors.Is(err, rating.ErrNotMarked):
		writeError(w, http.StatusConflict, err.Error())
	default:
		serverError(w, r, err)
	}
}
