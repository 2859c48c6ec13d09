package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/pkg/events"
	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/google/uuid"
)

// ErrNotOwner is returned when a user acts on a booking that is not theirs.
var ErrNotOwner = errors.New("booking belongs to another user")

type BookingService interface {
	Create(ctx context.Context, req domain.BookingReq) (domain.InsertResult, error)
	ListForUser(ctx context.Context, email string) ([]domain.Booking, error)
	ListAll(ctx context.Context) ([]domain.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Booking, error)
	UpdateReport(ctx context.Context, id string, patch domain.ReportPatch) (domain.UpdateResult, error)
	CancelOwn(ctx context.Context, id, email string) (domain.DeleteResult, error)
	Cancel(ctx context.Context, id, actor string) (domain.DeleteResult, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	testRepo    repository.TestRepository
	tests       TestService
	eventBus    events.Publisher
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	testRepo repository.TestRepository,
	tests TestService,
	eventBus events.Publisher,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		testRepo:    testRepo,
		tests:       tests,
		eventBus:    eventBus,
	}
}

// Create records a booking for an existing test. Missing display fields are
// filled from the test. Capacity is not touched here; the client reserves the
// slot with a separate call.
func (s *bookingService) Create(ctx context.Context, req domain.BookingReq) (domain.InsertResult, error) {
	if err := req.Validate(); err != nil {
		return domain.InsertResult{}, err
	}

	test, err := s.testRepo.GetByID(ctx, req.TestID)
	if err != nil {
		return domain.InsertResult{}, fmt.Errorf("failed to load test: %w", err)
	}

	b := &domain.Booking{
		ID:            uuid.NewString(),
		TestID:        test.ID,
		TestName:      req.TestName,
		Email:         domain.NormalizeEmail(req.Email),
		Name:          req.Name,
		Date:          req.Date,
		Price:         req.Price,
		TransactionID: req.TransactionID,
		ReportStatus:  domain.ReportPending,
	}
	if b.TestName == "" {
		b.TestName = test.Name
	}
	if b.Date == "" {
		b.Date = test.Date
	}
	if b.Price == 0 {
		b.Price = test.Price
	}

	if err := s.bookingRepo.Create(ctx, b); err != nil {
		return domain.InsertResult{}, fmt.Errorf("failed to create booking: %w", err)
	}

	event := events.BookingCreatedEvent{
		BookingID: b.ID,
		TestID:    b.TestID,
		Email:     b.Email,
		Date:      b.Date,
		CreatedAt: b.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", b.ID)
	}

	return domain.Inserted(b.ID), nil
}

func (s *bookingService) ListForUser(ctx context.Context, email string) ([]domain.Booking, error) {
	return s.bookingRepo.ListByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *bookingService) ListAll(ctx context.Context) ([]domain.Booking, error) {
	return s.bookingRepo.List(ctx)
}

func (s *bookingService) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	return s.bookingRepo.ListByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *bookingService) UpdateReport(ctx context.Context, id string, patch domain.ReportPatch) (domain.UpdateResult, error) {
	if err := patch.Validate(); err != nil {
		return domain.UpdateResult{}, err
	}

	b, err := s.bookingRepo.UpdateReport(ctx, id, patch)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	event := events.ReportUpdatedEvent{
		BookingID:    b.ID,
		Email:        b.Email,
		Name:         b.Name,
		TestName:     b.TestName,
		ReportStatus: string(b.ReportStatus),
		ReportURL:    b.ReportURL,
	}
	if err := s.eventBus.Publish(ctx, events.BookingReportUpdated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish report updated event", "error", err, "booking_id", b.ID)
	}

	return domain.Updated(1), nil
}

// CancelOwn cancels a booking on behalf of its owner.
func (s *bookingService) CancelOwn(ctx context.Context, id, email string) (domain.DeleteResult, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if !b.IsOwner(email) {
		return domain.DeleteResult{}, ErrNotOwner
	}
	return s.cancel(ctx, b, email)
}

// Cancel removes any booking. Callers are expected to have passed the role gate.
func (s *bookingService) Cancel(ctx context.Context, id, actor string) (domain.DeleteResult, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return s.cancel(ctx, b, actor)
}

// cancel deletes the booking row, then gives the slot back. The two writes
// are independent: if the release fails the booking stays deleted and the
// counters stay as they were.
func (s *bookingService) cancel(ctx context.Context, b *domain.Booking, actor string) (domain.DeleteResult, error) {
	n, err := s.bookingRepo.Delete(ctx, b.ID)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("failed to delete booking: %w", err)
	}
	if n == 0 {
		return domain.DeleteResult{}, repository.ErrNotFound
	}

	if err := s.tests.ReleaseSlot(ctx, b.TestID); err != nil {
		logger.ErrorContext(ctx, "Booking deleted but slot not released",
			"error", err, "booking_id", b.ID, "test_id", b.TestID)
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrConflict) {
			return domain.DeleteResult{}, fmt.Errorf("failed to release slot: %w", err)
		}
	}

	event := events.BookingCanceledEvent{
		BookingID:  b.ID,
		TestID:     b.TestID,
		Email:      b.Email,
		CanceledBy: actor,
		CanceledAt: time.Now().UTC(),
	}
	if err := s.eventBus.Publish(ctx, events.BookingCanceled, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking canceled event", "error", err, "booking_id", b.ID)
	}

	return domain.Deleted(n), nil
}
