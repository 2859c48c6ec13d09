package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/internal/repository/repotest"
	"github.com/diagnosis/elevro/internal/service"
	"github.com/diagnosis/elevro/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    interface{}
}

type recordingBus struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (b *recordingBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, published{subject, data})
	return b.err
}

func (b *recordingBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.msgs))
	for _, m := range b.msgs {
		out = append(out, m.subject)
	}
	return out
}

// failingRelease wraps a TestService and fails every ReleaseSlot.
type failingRelease struct {
	service.TestService
	err error
}

func (f failingRelease) ReleaseSlot(context.Context, string) error { return f.err }

func newTest(t *testing.T, svc service.TestService, slots int) string {
	t.Helper()
	res, err := svc.Create(context.Background(), domain.LabTestReq{
		Name: "Glucose", Date: "2026-12-01", Price: 12.5, Slots: slots,
	})
	require.NoError(t, err)
	return res.InsertedID
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	svc := service.NewUserService(store.Users())

	u, exists, err := svc.Register(ctx, domain.RegisterUserReq{Email: "  Pat@Example.com ", Name: "Pat"})
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "pat@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.Equal(t, domain.StatusActive, u.Status)

	_, exists, err = svc.Register(ctx, domain.RegisterUserReq{Email: "pat@example.com"})
	require.NoError(t, err)
	assert.True(t, exists)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, _, err = svc.Register(ctx, domain.RegisterUserReq{Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// conflictOnCreate loses the race between lookup and insert.
type conflictOnCreate struct {
	repository.UserRepository
}

func (conflictOnCreate) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (conflictOnCreate) Create(context.Context, *domain.User) error {
	return repository.ErrConflict
}

func TestUserService_RegisterRace(t *testing.T) {
	svc := service.NewUserService(conflictOnCreate{})

	u, exists, err := svc.Register(context.Background(), domain.RegisterUserReq{Email: "race@example.com"})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Nil(t, u)
}

func TestUserService_Toggles(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	svc := service.NewUserService(store.Users())
	u, _, err := svc.Register(ctx, domain.RegisterUserReq{Email: "sam@example.com"})
	require.NoError(t, err)

	_, err = svc.ToggleStatus(ctx, u.ID, "active")
	require.NoError(t, err)
	active, err := svc.IsActive(ctx, "SAM@example.com")
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.ToggleStatus(ctx, u.ID, "blocked")
	require.NoError(t, err)
	active, err = svc.IsActive(ctx, u.Email)
	require.NoError(t, err)
	assert.True(t, active)

	res, err := svc.ToggleRole(ctx, u.ID, "user")
	require.NoError(t, err)
	assert.Equal(t, domain.Updated(1), res)
	admin, err := svc.IsAdmin(ctx, u.Email)
	require.NoError(t, err)
	assert.True(t, admin)

	_, err = svc.ToggleRole(ctx, u.ID, "root")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ToggleStatus(ctx, "missing", "active")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	admin, err = svc.IsAdmin(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.False(t, admin)
}

func TestTestService_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	bus := &recordingBus{}
	svc := service.NewTestService(store.Tests(), bus)
	id := newTest(t, svc, 1)

	_, err := svc.ReserveSlot(ctx, id)
	require.NoError(t, err)

	_, err = svc.ReserveSlot(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNoSlotsLeft)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Slots)
	assert.Equal(t, 1, got.Bookings)

	require.NoError(t, svc.ReleaseSlot(ctx, id))
	assert.ErrorIs(t, svc.ReleaseSlot(ctx, id), repository.ErrConflict)

	got, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Slots)
	assert.Equal(t, 0, got.Bookings)

	assert.Equal(t, []string{events.SlotReserved, events.SlotReleased}, bus.subjects())
}

func TestTestService_PublishFailureDoesNotFailReserve(t *testing.T) {
	store := repotest.NewStore()
	bus := &recordingBus{err: errors.New("nats down")}
	svc := service.NewTestService(store.Tests(), bus)
	id := newTest(t, svc, 2)

	_, err := svc.ReserveSlot(context.Background(), id)
	assert.NoError(t, err)
}

func TestBookingService_CreateFillsFromTest(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	bus := &recordingBus{}
	tests := service.NewTestService(store.Tests(), bus)
	svc := service.NewBookingService(store.Bookings(), store.Tests(), tests, bus)
	id := newTest(t, tests, 3)

	res, err := svc.Create(ctx, domain.BookingReq{TestID: id, Email: "Kim@Example.com", TransactionID: "pi_1"})
	require.NoError(t, err)

	b, err := store.Bookings().GetByID(ctx, res.InsertedID)
	require.NoError(t, err)
	assert.Equal(t, "Glucose", b.TestName)
	assert.Equal(t, "2026-12-01", b.Date)
	assert.Equal(t, 12.5, b.Price)
	assert.Equal(t, "kim@example.com", b.Email)
	assert.Equal(t, domain.ReportPending, b.ReportStatus)

	got, err := tests.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Slots, "create does not reserve")

	assert.Contains(t, bus.subjects(), events.BookingCreated)

	_, err = svc.Create(ctx, domain.BookingReq{TestID: id})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBookingService_UpdateReportPublishes(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	bus := &recordingBus{}
	tests := service.NewTestService(store.Tests(), bus)
	svc := service.NewBookingService(store.Bookings(), store.Tests(), tests, bus)
	res, err := svc.Create(ctx, domain.BookingReq{TestID: newTest(t, tests, 1), Email: "kim@example.com", Name: "Kim"})
	require.NoError(t, err)

	status := domain.ReportDelivered
	url := "https://files.example.com/kim.pdf"
	_, err = svc.UpdateReport(ctx, res.InsertedID, domain.ReportPatch{ReportStatus: &status, ReportURL: &url})
	require.NoError(t, err)

	last := bus.msgs[len(bus.msgs)-1]
	require.Equal(t, events.BookingReportUpdated, last.subject)
	ev := last.data.(events.ReportUpdatedEvent)
	assert.Equal(t, "delivered", ev.ReportStatus)
	assert.Equal(t, url, ev.ReportURL)
	assert.Equal(t, "kim@example.com", ev.Email)

	_, err = svc.UpdateReport(ctx, "missing", domain.ReportPatch{ReportStatus: &status})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookingService_Cancel(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	bus := &recordingBus{}
	tests := service.NewTestService(store.Tests(), bus)
	svc := service.NewBookingService(store.Bookings(), store.Tests(), tests, bus)
	id := newTest(t, tests, 2)

	res, err := svc.Create(ctx, domain.BookingReq{TestID: id, Email: "kim@example.com"})
	require.NoError(t, err)
	_, err = tests.ReserveSlot(ctx, id)
	require.NoError(t, err)

	_, err = svc.CancelOwn(ctx, res.InsertedID, "lee@example.com")
	assert.ErrorIs(t, err, service.ErrNotOwner)

	del, err := svc.CancelOwn(ctx, res.InsertedID, "KIM@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.Deleted(1), del)

	got, err := tests.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Slots)
	assert.Equal(t, 0, got.Bookings)
	assert.Contains(t, bus.subjects(), events.BookingCanceled)

	_, err = svc.Cancel(ctx, res.InsertedID, "admin@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookingService_CancelReleaseFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		releaseErr error
		wantErr    bool
	}{
		{"test already deleted", repository.ErrNotFound, false},
		{"counter already zero", repository.ErrConflict, false},
		{"store failure", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.NewStore()
			bus := &recordingBus{}
			base := service.NewTestService(store.Tests(), bus)
			svc := service.NewBookingService(store.Bookings(), store.Tests(),
				failingRelease{TestService: base, err: tt.releaseErr}, bus)

			res, err := svc.Create(ctx, domain.BookingReq{TestID: newTest(t, base, 1), Email: "kim@example.com"})
			require.NoError(t, err)

			_, err = svc.Cancel(ctx, res.InsertedID, "admin@example.com")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			_, err = store.Bookings().GetByID(ctx, res.InsertedID)
			assert.ErrorIs(t, err, repository.ErrNotFound, "booking stays deleted")
		})
	}
}

func TestContentServices(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	banners := service.NewBannerService(store.Banners())
	blogs := service.NewBlogService(store.Blogs())

	_, err := banners.Active(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	res, err := banners.Create(ctx, domain.BannerReq{Name: "Spring", Active: true})
	require.NoError(t, err)
	active, err := banners.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.InsertedID, active.ID)

	off := false
	_, err = banners.Update(ctx, res.InsertedID, domain.BannerPatch{Active: &off})
	require.NoError(t, err)
	_, err = banners.Active(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = banners.Update(ctx, res.InsertedID, domain.BannerPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = blogs.Create(ctx, domain.BlogReq{Title: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	blog, err := blogs.Create(ctx, domain.BlogReq{Title: "Why fast", Author: "Lab"})
	require.NoError(t, err)
	del, err := blogs.Delete(ctx, blog.InsertedID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), del.DeletedCount)
	_, err = blogs.Delete(ctx, blog.InsertedID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
