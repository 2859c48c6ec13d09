package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/google/uuid"
)

type UserService interface {
	Register(ctx context.Context, req domain.RegisterUserReq) (user *domain.User, exists bool, err error)
	List(ctx context.Context) ([]domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	IsActive(ctx context.Context, email string) (bool, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
	ToggleStatus(ctx context.Context, id, current string) (domain.UpdateResult, error)
	ToggleRole(ctx context.Context, id, current string) (domain.UpdateResult, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// Register inserts a user unless one with the same email exists. The lookup
// and the insert are separate round trips; a concurrent duplicate is caught
// by the unique index and reported the same way.
func (s *userService) Register(ctx context.Context, req domain.RegisterUserReq) (*domain.User, bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	user := &domain.User{
		ID:     uuid.NewString(),
		Email:  req.Email,
		Name:   req.Name,
		Photo:  req.Photo,
		Role:   domain.RoleUser,
		Status: domain.StatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	return user, false, nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *userService) IsActive(ctx context.Context, email string) (bool, error) {
	user, err := s.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsActive(), nil
}

func (s *userService) IsAdmin(ctx context.Context, email string) (bool, error) {
	user, err := s.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// ToggleStatus flips the status the caller reports as current:
// active becomes blocked and blocked becomes active.
func (s *userService) ToggleStatus(ctx context.Context, id, current string) (domain.UpdateResult, error) {
	status, ok := domain.ParseUserStatus(current)
	if !ok {
		return domain.UpdateResult{}, fmt.Errorf("%w: status: must be active or blocked", domain.ErrValidation)
	}

	n, err := s.userRepo.SetStatus(ctx, id, status.Toggled())
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("failed to update status: %w", err)
	}
	if n == 0 {
		return domain.UpdateResult{}, repository.ErrNotFound
	}

	logger.InfoContext(ctx, "User status changed", "user_id", id, "status", status.Toggled())
	return domain.Updated(n), nil
}

// ToggleRole flips the role the caller reports as current:
// admin becomes user and user becomes admin.
func (s *userService) ToggleRole(ctx context.Context, id, current string) (domain.UpdateResult, error) {
	role, ok := domain.ParseRole(current)
	if !ok {
		return domain.UpdateResult{}, fmt.Errorf("%w: role: must be admin or user", domain.ErrValidation)
	}

	n, err := s.userRepo.SetRole(ctx, id, role.Toggled())
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("failed to update role: %w", err)
	}
	if n == 0 {
		return domain.UpdateResult{}, repository.ErrNotFound
	}

	logger.InfoContext(ctx, "User role changed", "user_id", id, "role", role.Toggled())
	return domain.Updated(n), nil
}
