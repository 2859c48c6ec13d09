package handlers

import (
	"net/http"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/response"
)

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var in domain.PaymentIntentReq
	if !decodeJSON(w, r, &in) {
		return
	}

	secret, err := h.Payments.CreateIntent(r.Context(), in.Price)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, domain.PaymentIntentRes{ClientSecret: secret})
}
