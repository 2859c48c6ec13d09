package gate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/gate"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookup struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (l *lookup) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	if u, ok := l.users[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func setup(t *testing.T) (*auth.Issuer, *lookup) {
	t.Helper()
	return auth.NewIssuer("gate-secret"), &lookup{users: map[string]*domain.User{
		"admin@example.com": {Email: "admin@example.com", Role: domain.RoleAdmin},
		"user@example.com":  {Email: "user@example.com", Role: domain.RoleUser},
	}}
}

func bearer(t *testing.T, iss *auth.Issuer, email string) string {
	t.Helper()
	tok, err := iss.Issue(auth.Identity{Email: email})
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequire_AdminRoute(t *testing.T) {
	iss, users := setup(t)
	expired, err := iss.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Issue(auth.Identity{Email: "admin@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		authz      string
		wantStatus int
		wantLookup bool
	}{
		{"no header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, false},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, false},
		{"malformed token", "Bearer not-a-jwt", http.StatusUnauthorized, false},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, false},
		{"unknown user", bearer(t, iss, "ghost@example.com"), http.StatusForbidden, true},
		{"plain user", bearer(t, iss, "user@example.com"), http.StatusForbidden, true},
		{"admin", bearer(t, iss, "admin@example.com"), http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users.calls = 0
			reached := false
			h := gate.Require(gate.Access{Tokens: iss}, gate.Admin(users))(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					reached = true
					w.WriteHeader(http.StatusOK)
				}))

			rec := serve(h, tt.authz)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, reached)
			assert.Equal(t, tt.wantLookup, users.calls > 0, "store lookup")
		})
	}
}

func TestAccess_AttachesIdentity(t *testing.T) {
	iss, _ := setup(t)

	var got *auth.Claims
	h := gate.Require(gate.Access{Tokens: iss})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = gate.Identity(r.Context())
	}))

	serve(h, bearer(t, iss, "user@example.com"))

	require.NotNil(t, got)
	assert.Equal(t, "user@example.com", got.Email)
}

func TestRole_WithoutAccessGate(t *testing.T) {
	_, users := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := gate.Admin(users).Check(req)

	assert.ErrorIs(t, err, gate.ErrUnauthorized)
	assert.Zero(t, users.calls)
}

func TestRole_StoreFailure(t *testing.T) {
	iss, users := setup(t)
	users.err = errors.New("connection reset")

	h := gate.Require(gate.Access{Tokens: iss}, gate.Admin(users))(http.NotFoundHandler())
	rec := serve(h, bearer(t, iss, "admin@example.com"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequire_Order(t *testing.T) {
	var order []string
	mk := func(name string, err error) gate.Gate {
		return gate.Func(func(r *http.Request) (*http.Request, error) {
			order = append(order, name)
			return r, err
		})
	}

	h := gate.Require(mk("first", nil), mk("second", gate.ErrForbidden), mk("third", nil))(http.NotFoundHandler())
	rec := serve(h, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{"first", "second"}, order)
}
