package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/response"
	"github.com/diagnosis/elevro/pkg/auth"
	"github.com/diagnosis/elevro/pkg/logger"
)

// IssueToken signs the identity the client posts after its own sign-in.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	var in auth.Identity
	if !decodeJSON(w, r, &in) {
		return
	}
	if !domain.IsValidEmail(in.Email) {
		response.BadRequest(w, "a valid email is required")
		return
	}

	token, err := h.Tokens.Issue(in)
	if errors.Is(err, auth.ErrMissingEmail) {
		response.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign token", "error", err)
		response.InternalError(w, "failed to issue token")
		return
	}

	response.JSON(w, http.StatusOK, domain.TokenRes{Token: token})
}
