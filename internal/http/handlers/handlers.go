package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/diagnosis/elevro/internal/http/gate"
	"github.com/diagnosis/elevro/internal/http/response"
	"github.com/diagnosis/elevro/internal/service"
	"github.com/diagnosis/elevro/pkg/auth"
	"github.com/go-chi/chi/v5"
)

// PaymentCreator creates a payment intent and returns its client secret.
type PaymentCreator interface {
	CreateIntent(ctx context.Context, price float64) (string, error)
}

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Tokens   *auth.Issuer
	Users    service.UserService
	Tests    service.TestService
	Bookings service.BookingService
	Banners  service.BannerService
	Blogs    service.BlogService
	Payments PaymentCreator

	// Idempotency wraps POST routes that create money-bearing records.
	// Nil disables replay.
	Idempotency func(http.Handler) http.Handler

	// RateLimit guards the unauthenticated write routes. Nil disables it.
	RateLimit func(http.Handler) http.Handler
}

type Handlers struct {
	Deps
}

func New(d Deps) *Handlers {
	if d.Idempotency == nil {
		d.Idempotency = passthrough
	}
	if d.RateLimit == nil {
		d.RateLimit = passthrough
	}
	return &Handlers{Deps: d}
}

// Routes mounts every public, token and admin route.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	access := gate.Require(gate.Access{Tokens: h.Tokens})
	admin := gate.Require(gate.Access{Tokens: h.Tokens}, gate.Admin(h.Users))

	r.Get("/", h.Home)
	r.With(h.RateLimit).Post("/jwt", h.IssueToken)

	// Tests
	r.Get("/allTests", h.ListTests)
	r.Get("/allTests/{id}", h.GetTest)
	r.Get("/allTestsData", h.ListTestsByDate)
	r.With(admin).Post("/addTest", h.CreateTest)
	r.With(admin).Put("/allTests/{id}", h.UpdateTest)
	r.With(access).Patch("/allTests/{id}", h.ReserveSlot)
	r.With(admin).Delete("/allTests/{id}", h.DeleteTest)

	// Bookings
	r.With(access, h.Idempotency).Post("/bookedTest", h.CreateBooking)
	r.With(access).Get("/userBookings", h.ListUserBookings)
	r.With(access).Delete("/userBookings/{id}", h.CancelOwnBooking)
	r.With(admin).Get("/allBookings", h.ListAllBookings)
	r.With(admin).Patch("/allBookings/{id}", h.UpdateReport)
	r.With(admin).Delete("/allBookings/{id}", h.CancelBooking)

	// Users
	r.With(h.RateLimit).Post("/users", h.RegisterUser)
	r.With(admin).Get("/users", h.ListUsers)
	r.With(access).Get("/users/{email}", h.UserStatus)
	r.With(access).Get("/users/admin/{email}", h.IsAdmin)
	r.With(admin).Patch("/users/{id}", h.ToggleStatus)
	r.With(admin).Patch("/users/admin/{id}", h.ToggleRole)

	// Banners
	r.Get("/banners/status", h.ActiveBanner)
	r.With(admin).Get("/banners", h.ListBanners)
	r.With(admin).Post("/addBanner", h.CreateBanner)
	r.With(admin).Patch("/banners/{id}", h.UpdateBanner)
	r.With(admin).Delete("/banners/{id}", h.DeleteBanner)

	// Blogs
	r.Get("/blogs", h.ListBlogs)
	r.Get("/blogs/{id}", h.GetBlog)
	r.With(admin).Post("/addBlog", h.CreateBlog)
	r.With(admin).Delete("/blogs/{id}", h.DeleteBlog)

	// Payments
	r.With(h.RateLimit, h.Idempotency).Post("/create-payment-intent", h.CreatePaymentIntent)

	return r
}

func passthrough(next http.Handler) http.Handler { return next }

// Home answers the liveness check the web client pings on load.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "Elevro server running successfully!")
}

// decodeJSON reads a JSON body into v. An empty or malformed body is a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			response.BadRequest(w, "request body is required")
			return false
		}
		response.BadRequest(w, "invalid json")
		return false
	}
	return true
}

// caller returns the email the access gate attached. Routes behind the gate
// always have one.
func caller(r *http.Request) string {
	if id := gate.Identity(r.Context()); id != nil {
		return id.Email
	}
	return ""
}
