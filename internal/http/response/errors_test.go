package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/payments"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", fmt.Errorf("%w: name: is required", domain.ErrValidation), http.StatusBadRequest, CodeInvalidInput},
		{"amount", payments.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidInput},
		{"amount too large", payments.ErrAmountTooLarge, http.StatusBadRequest, CodeInvalidInput},
		{"not found wrapped", fmt.Errorf("failed to load test: %w", repository.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"not owner", service.ErrNotOwner, http.StatusForbidden, CodeForbidden},
		{"no slots", repository.ErrNoSlotsLeft, http.StatusConflict, CodeNoSlots},
		{"conflict", repository.ErrConflict, http.StatusConflict, CodeConflict},
		{"stripe missing", payments.ErrNotConfigured, http.StatusServiceUnavailable, CodeUnavailable},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body.Code)
			assert.NotContains(t, body.Error, "connection refused")
		})
	}
}
