// Package repotest provides in-memory repositories for tests. They follow
// the same error contract as the Postgres implementations.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/repository"
)

// Store holds every collection behind one lock and counts writes, so tests
// can assert that a rejected request touched nothing.
type Store struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	tests    map[string]*domain.LabTest
	bookings map[string]*domain.Booking
	banners  map[string]*domain.Banner
	blogs    map[string]*domain.Blog

	Reads  int
	Writes int
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		tests:    make(map[string]*domain.LabTest),
		bookings: make(map[string]*domain.Booking),
		banners:  make(map[string]*domain.Banner),
		blogs:    make(map[string]*domain.Blog),
	}
}

// Calls returns the total number of repository calls so far.
func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Reads + s.Writes
}

func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Tests() repository.TestRepository       { return testRepo{s} }
func (s *Store) Bookings() repository.BookingRepository { return bookingRepo{s} }
func (s *Store) Banners() repository.BannerRepository   { return bannerRepo{s} }
func (s *Store) Blogs() repository.BlogRepository       { return blogRepo{s} }

func (s *Store) read() func() {
	s.mu.Lock()
	s.Reads++
	return s.mu.Unlock
}

func (s *Store) write() func() {
	s.mu.Lock()
	s.Writes++
	return s.mu.Unlock
}

// Users

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	defer r.s.write()()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.s.read()()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	defer r.s.read()()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) List(_ context.Context) ([]domain.User, error) {
	defer r.s.read()()
	out := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r userRepo) SetRole(_ context.Context, id string, role domain.Role) (int64, error) {
	defer r.s.write()()
	u, ok := r.s.users[id]
	if !ok {
		return 0, nil
	}
	u.Role = role
	return 1, nil
}

func (r userRepo) SetStatus(_ context.Context, id string, status domain.UserStatus) (int64, error) {
	defer r.s.write()()
	u, ok := r.s.users[id]
	if !ok {
		return 0, nil
	}
	u.Status = status
	return 1, nil
}

// Tests

type testRepo struct{ s *Store }

func (r testRepo) Create(_ context.Context, t *domain.LabTest) error {
	defer r.s.write()()
	t.Bookings = 0
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.s.tests[t.ID] = &cp
	return nil
}

func (r testRepo) GetByID(_ context.Context, id string) (*domain.LabTest, error) {
	defer r.s.read()()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r testRepo) List(_ context.Context) ([]domain.LabTest, error) {
	defer r.s.read()()
	return r.filter(func(*domain.LabTest) bool { return true }), nil
}

func (r testRepo) ListByDate(_ context.Context, date string) ([]domain.LabTest, error) {
	defer r.s.read()()
	return r.filter(func(t *domain.LabTest) bool { return t.Date == date }), nil
}

func (r testRepo) filter(keep func(*domain.LabTest) bool) []domain.LabTest {
	out := make([]domain.LabTest, 0, len(r.s.tests))
	for _, t := range r.s.tests {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r testRepo) Update(_ context.Context, id string, p domain.LabTestPatch) (*domain.LabTest, error) {
	defer r.s.write()()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Image != nil {
		t.Image = *p.Image
	}
	if p.Details != nil {
		t.Details = *p.Details
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Slots != nil {
		t.Slots = *p.Slots
	}
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (r testRepo) Delete(_ context.Context, id string) (int64, error) {
	defer r.s.write()()
	if _, ok := r.s.tests[id]; !ok {
		return 0, nil
	}
	delete(r.s.tests, id)
	return 1, nil
}

func (r testRepo) Reserve(_ context.Context, id string) (*domain.LabTest, error) {
	defer r.s.write()()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.Slots <= 0 {
		return nil, repository.ErrNoSlotsLeft
	}
	t.Slots--
	t.Bookings++
	cp := *t
	return &cp, nil
}

func (r testRepo) Release(_ context.Context, id string) (*domain.LabTest, error) {
	defer r.s.write()()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.Bookings <= 0 {
		return nil, repository.ErrConflict
	}
	t.Slots++
	t.Bookings--
	cp := *t
	return &cp, nil
}

// Bookings

type bookingRepo struct{ s *Store }

func (r bookingRepo) Create(_ context.Context, b *domain.Booking) error {
	defer r.s.write()()
	b.CreatedAt = time.Now()
	cp := *b
	r.s.bookings[b.ID] = &cp
	return nil
}

func (r bookingRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	defer r.s.read()()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r bookingRepo) List(_ context.Context) ([]domain.Booking, error) {
	defer r.s.read()()
	return r.filter(func(*domain.Booking) bool { return true }), nil
}

func (r bookingRepo) ListByEmail(_ context.Context, email string) ([]domain.Booking, error) {
	defer r.s.read()()
	return r.filter(func(b *domain.Booking) bool { return strings.EqualFold(b.Email, email) }), nil
}

func (r bookingRepo) filter(keep func(*domain.Booking) bool) []domain.Booking {
	out := make([]domain.Booking, 0, len(r.s.bookings))
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r bookingRepo) UpdateReport(_ context.Context, id string, p domain.ReportPatch) (*domain.Booking, error) {
	defer r.s.write()()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.ReportStatus != nil {
		b.ReportStatus = *p.ReportStatus
	}
	if p.ReportURL != nil {
		b.ReportURL = *p.ReportURL
	}
	cp := *b
	return &cp, nil
}

func (r bookingRepo) Delete(_ context.Context, id string) (int64, error) {
	defer r.s.write()()
	if _, ok := r.s.bookings[id]; !ok {
		return 0, nil
	}
	delete(r.s.bookings, id)
	return 1, nil
}

// Banners

type bannerRepo struct{ s *Store }

func (r bannerRepo) Create(_ context.Context, b *domain.Banner) error {
	defer r.s.write()()
	b.CreatedAt = time.Now()
	cp := *b
	r.s.banners[b.ID] = &cp
	return nil
}

func (r bannerRepo) List(_ context.Context) ([]domain.Banner, error) {
	defer r.s.read()()
	out := make([]domain.Banner, 0, len(r.s.banners))
	for _, b := range r.s.banners {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r bannerRepo) GetActive(_ context.Context) (*domain.Banner, error) {
	defer r.s.read()()
	var active *domain.Banner
	for _, b := range r.s.banners {
		if b.Active && (active == nil || b.CreatedAt.After(active.CreatedAt)) {
			active = b
		}
	}
	if active == nil {
		return nil, repository.ErrNotFound
	}
	cp := *active
	return &cp, nil
}

func (r bannerRepo) Update(_ context.Context, id string, p domain.BannerPatch) (*domain.Banner, error) {
	defer r.s.write()()
	b, ok := r.s.banners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Image != nil {
		b.Image = *p.Image
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.CouponCode != nil {
		b.CouponCode = *p.CouponCode
	}
	if p.DiscountRate != nil {
		b.DiscountRate = *p.DiscountRate
	}
	if p.Active != nil {
		b.Active = *p.Active
	}
	cp := *b
	return &cp, nil
}

func (r bannerRepo) Delete(_ context.Context, id string) (int64, error) {
	defer r.s.write()()
	if _, ok := r.s.banners[id]; !ok {
		return 0, nil
	}
	delete(r.s.banners, id)
	return 1, nil
}

// Blogs

type blogRepo struct{ s *Store }

func (r blogRepo) Create(_ context.Context, b *domain.Blog) error {
	defer r.s.write()()
	b.CreatedAt = time.Now()
	cp := *b
	r.s.blogs[b.ID] = &cp
	return nil
}

func (r blogRepo) GetByID(_ context.Context, id string) (*domain.Blog, error) {
	defer r.s.read()()
	b, ok := r.s.blogs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r blogRepo) List(_ context.Context) ([]domain.Blog, error) {
	defer r.s.read()()
	out := make([]domain.Blog, 0, len(r.s.blogs))
	for _, b := range r.s.blogs {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r blogRepo) Delete(_ context.Context, id string) (int64, error) {
	defer r.s.write()()
	if _, ok := r.s.blogs[id]; !ok {
		return 0, nil
	}
	delete(r.s.blogs, id)
	return 1, nil
}
