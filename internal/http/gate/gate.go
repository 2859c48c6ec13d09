// Package gate holds the request gates that run before protected handlers.
// A gate either lets the request through, possibly with a richer context,
// or stops it with ErrUnauthorized or ErrForbidden. Gates compose in order
// with Require, so each one can be tested alone.
package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/http/response"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/pkg/auth"
	"github.com/diagnosis/elevro/pkg/logger"
)

var (
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden access")
)

type Gate interface {
	Check(r *http.Request) (*http.Request, error)
}

// Func adapts a function to Gate.
type Func func(r *http.Request) (*http.Request, error)

func (f Func) Check(r *http.Request) (*http.Request, error) {
	return f(r)
}

// Require runs gates in order and stops at the first failure.
func Require(gates ...Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range gates {
				var err error
				r, err = g.Check(r)
				if err != nil {
					reject(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		rejections.WithLabelValues("unauthorized").Inc()
		response.Unauthorized(w, ErrUnauthorized.Error())
	case errors.Is(err, ErrForbidden):
		rejections.WithLabelValues("forbidden").Inc()
		response.Forbidden(w, ErrForbidden.Error())
	default:
		response.FromError(w, r, err)
	}
}

type ctxKey struct{}

// WithIdentity returns a context carrying the authenticated caller.
func WithIdentity(ctx context.Context, c *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, c)
	return context.WithValue(ctx, logger.UserEmailKey, c.Email)
}

// Identity returns the caller attached by the access gate, or nil.
func Identity(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(ctxKey{}).(*auth.Claims)
	return c
}

// TokenParser verifies a raw bearer token.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Access requires a valid "Authorization: Bearer <token>" header.
type Access struct {
	Tokens TokenParser
}

func (a Access) Check(r *http.Request) (*http.Request, error) {
	authz := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return r, ErrUnauthorized
	}

	claims, err := a.Tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return r, ErrUnauthorized
	}
	return r.WithContext(WithIdentity(r.Context(), claims)), nil
}

// RoleLookup reads a stored user by email.
type RoleLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Role requires the caller's stored role to match. It reads the store on
// every request; the decision is never cached.
type Role struct {
	Users RoleLookup
	Want  domain.Role
}

func Admin(users RoleLookup) Role {
	return Role{Users: users, Want: domain.RoleAdmin}
}

func (g Role) Check(r *http.Request) (*http.Request, error) {
	id := Identity(r.Context())
	if id == nil {
		return r, ErrUnauthorized
	}

	user, err := g.Users.FindByEmail(r.Context(), id.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return r, ErrForbidden
	}
	if err != nil {
		return r, err
	}
	if user.Role != g.Want {
		return r, ErrForbidden
	}
	return r, nil
}
