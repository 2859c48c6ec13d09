package handlers

import (
	"net/http"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/response"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) ListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.Tests.List(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, tests)
}

func (h *Handlers) GetTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tests.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, t)
}

// ListTestsByDate filters on an exact date. A missing or empty date returns
// every test.
func (h *Handlers) ListTestsByDate(w http.ResponseWriter, r *http.Request) {
	var (
		tests []domain.LabTest
		err   error
	)
	q := r.URL.Query()
	switch {
	case !q.Has("date"):
		tests, err = h.Tests.List(r.Context())
	case q.Get("date") == "":
		tests, err = h.Tests.List(r.Context())
	default:
		tests, err = h.Tests.ListByDate(r.Context(), q.Get("date"))
	}
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, tests)
}

func (h *Handlers) CreateTest(w http.ResponseWriter, r *http.Request) {
	var in domain.LabTestReq
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Tests.Create(r.Context(), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, res)
}

func (h *Handlers) UpdateTest(w http.ResponseWriter, r *http.Request) {
	var in domain.LabTestPatch
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Tests.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// ReserveSlot takes one slot after the client has recorded its booking.
func (h *Handlers) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	res, err := h.Tests.ReserveSlot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

func (h *Handlers) DeleteTest(w http.ResponseWriter, r *http.Request) {
	res, err := h.Tests.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}
