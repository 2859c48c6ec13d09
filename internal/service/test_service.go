package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/pkg/events"
	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/google/uuid"
)

type TestService interface {
	Create(ctx context.Context, req domain.LabTestReq) (domain.InsertResult, error)
	Get(ctx context.Context, id string) (*domain.LabTest, error)
	List(ctx context.Context) ([]domain.LabTest, error)
	ListByDate(ctx context.Context, date string) ([]domain.LabTest, error)
	Update(ctx context.Context, id string, patch domain.LabTestPatch) (domain.UpdateResult, error)
	Delete(ctx context.Context, id string) (domain.DeleteResult, error)
	ReserveSlot(ctx context.Context, id string) (domain.UpdateResult, error)
	ReleaseSlot(ctx context.Context, id string) error
}

type testService struct {
	testRepo repository.TestRepository
	eventBus events.Publisher
}

func NewTestService(testRepo repository.TestRepository, eventBus events.Publisher) TestService {
	return &testService{testRepo: testRepo, eventBus: eventBus}
}

func (s *testService) Create(ctx context.Context, req domain.LabTestReq) (domain.InsertResult, error) {
	if err := req.Validate(); err != nil {
		return domain.InsertResult{}, err
	}

	t := &domain.LabTest{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Image:   req.Image,
		Details: req.Details,
		Price:   req.Price,
		Date:    req.Date,
		Slots:   req.Slots,
	}
	if err := s.testRepo.Create(ctx, t); err != nil {
		return domain.InsertResult{}, fmt.Errorf("failed to create test: %w", err)
	}
	return domain.Inserted(t.ID), nil
}

func (s *testService) Get(ctx context.Context, id string) (*domain.LabTest, error) {
	return s.testRepo.GetByID(ctx, id)
}

func (s *testService) List(ctx context.Context) ([]domain.LabTest, error) {
	return s.testRepo.List(ctx)
}

func (s *testService) ListByDate(ctx context.Context, date string) ([]domain.LabTest, error) {
	return s.testRepo.ListByDate(ctx, date)
}

func (s *testService) Update(ctx context.Context, id string, patch domain.LabTestPatch) (domain.UpdateResult, error) {
	if err := patch.Validate(); err != nil {
		return domain.UpdateResult{}, err
	}
	if _, err := s.testRepo.Update(ctx, id, patch); err != nil {
		return domain.UpdateResult{}, err
	}
	return domain.Updated(1), nil
}

func (s *testService) Delete(ctx context.Context, id string) (domain.DeleteResult, error) {
	n, err := s.testRepo.Delete(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("failed to delete test: %w", err)
	}
	if n == 0 {
		return domain.DeleteResult{}, repository.ErrNotFound
	}
	return domain.Deleted(n), nil
}

// ReserveSlot moves one unit of capacity from slots to bookings. It is issued
// by the client after the booking row is created and is not transactional
// with it.
func (s *testService) ReserveSlot(ctx context.Context, id string) (domain.UpdateResult, error) {
	t, err := s.testRepo.Reserve(ctx, id)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	logger.InfoContext(ctx, "Slot reserved", "test_id", id, "slots", t.Slots, "bookings", t.Bookings)
	if err := s.eventBus.Publish(ctx, events.SlotReserved, events.SlotEvent{TestID: id}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish slot reserved event", "error", err, "test_id", id)
	}
	return domain.Updated(1), nil
}

func (s *testService) ReleaseSlot(ctx context.Context, id string) error {
	t, err := s.testRepo.Release(ctx, id)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Slot released", "test_id", id, "slots", t.Slots, "bookings", t.Bookings)
	if err := s.eventBus.Publish(ctx, events.SlotReleased, events.SlotEvent{TestID: id}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish slot released event", "error", err, "test_id", id)
	}
	return nil
}
