package handlers

import (
	"net/http"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/response"
	"github.com/go-chi/chi/v5"
)

// RegisterUser stores a user on first sign-in. A known email is not an
// error; the client gets a message and a null insertedId.
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterUserReq
	if !decodeJSON(w, r, &in) {
		return
	}

	user, exists, err := h.Users.Register(r.Context(), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if exists {
		response.JSON(w, http.StatusOK, domain.AlreadyExistsRes{Message: "user already exists"})
		return
	}
	response.JSON(w, http.StatusCreated, domain.Inserted(user.ID))
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, users)
}

func (h *Handlers) UserStatus(w http.ResponseWriter, r *http.Request) {
	active, err := h.Users.IsActive(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, domain.UserStatusRes{UserStatus: active})
}

// IsAdmin answers only for the caller's own email.
func (h *Handlers) IsAdmin(w http.ResponseWriter, r *http.Request) {
	email := domain.NormalizeEmail(chi.URLParam(r, "email"))
	if email != caller(r) {
		response.Forbidden(w, "forbidden access")
		return
	}

	admin, err := h.Users.IsAdmin(r.Context(), email)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, domain.AdminRes{Admin: admin})
}

// ToggleStatus flips ?status= (the current value) for the user.
func (h *Handlers) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.Users.ToggleStatus(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// ToggleRole flips ?role= (the current value) for the user.
func (h *Handlers) ToggleRole(w http.ResponseWriter, r *http.Request) {
	res, err := h.Users.ToggleRole(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("role"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}
