package handlers

import (
	"net/http"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/response"
	"github.com/go-chi/chi/v5"
)

// CreateBooking records a booking for the caller. Any email in the body is
// ignored.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var in domain.BookingReq
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Email = caller(r)

	res, err := h.Bookings.Create(r.Context(), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, res)
}

func (h *Handlers) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.ListForUser(r.Context(), caller(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, bookings)
}

func (h *Handlers) CancelOwnBooking(w http.ResponseWriter, r *http.Request) {
	res, err := h.Bookings.CancelOwn(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// ListAllBookings optionally filters by exact email with ?search=. A missing
// or empty search returns every booking.
func (h *Handlers) ListAllBookings(w http.ResponseWriter, r *http.Request) {
	var (
		bookings []domain.Booking
		err      error
	)
	q := r.URL.Query()
	switch {
	case !q.Has("search"):
		bookings, err = h.Bookings.ListAll(r.Context())
	case q.Get("search") == "":
		bookings, err = h.Bookings.ListAll(r.Context())
	default:
		bookings, err = h.Bookings.ListByEmail(r.Context(), q.Get("search"))
	}
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, bookings)
}

func (h *Handlers) UpdateReport(w http.ResponseWriter, r *http.Request) {
	var in domain.ReportPatch
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Bookings.UpdateReport(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	res, err := h.Bookings.Cancel(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}
