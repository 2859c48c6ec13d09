package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/diagnosis/elevro/internal/repository"
	"github.com/google/uuid"
)

type BannerService interface {
	Create(ctx context.Context, req domain.BannerReq) (domain.InsertResult, error)
	List(ctx context.Context) ([]domain.Banner, error)
	Active(ctx context.Context) (*domain.Banner, error)
	Update(ctx context.Context, id string, patch domain.BannerPatch) (domain.UpdateResult, error)
	Delete(ctx context.Context, id string) (domain.DeleteResult, error)
}

type BlogService interface {
	Create(ctx context.Context, req domain.BlogReq) (domain.InsertResult, error)
	Get(ctx context.Context, id string) (*domain.Blog, error)
	List(ctx context.Context) ([]domain.Blog, error)
	Delete(ctx context.Context, id string) (domain.DeleteResult, error)
}

type bannerService struct {
	repo repository.BannerRepository
}

func NewBannerService(repo repository.BannerRepository) BannerService {
	return &bannerService{repo: repo}
}

func (s *bannerService) Create(ctx context.Context, req domain.BannerReq) (domain.InsertResult, error) {
	if err := req.Validate(); err != nil {
		return domain.InsertResult{}, err
	}
	b := &domain.Banner{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Image:        req.Image,
		Title:        req.Title,
		Description:  req.Description,
		CouponCode:   req.CouponCode,
		DiscountRate: req.DiscountRate,
		Active:       req.Active,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return domain.InsertResult{}, fmt.Errorf("failed to create banner: %w", err)
	}
	return domain.Inserted(b.ID), nil
}

func (s *bannerService) List(ctx context.Context) ([]domain.Banner, error) {
	return s.repo.List(ctx)
}

func (s *bannerService) Active(ctx context.Context) (*domain.Banner, error) {
	return s.repo.GetActive(ctx)
}

func (s *bannerService) Update(ctx context.Context, id string, patch domain.BannerPatch) (domain.UpdateResult, error) {
	if err := patch.Validate(); err != nil {
		return domain.UpdateResult{}, err
	}
	if _, err := s.repo.Update(ctx, id, patch); err != nil {
		return domain.UpdateResult{}, err
	}
	return domain.Updated(1), nil
}

func (s *bannerService) Delete(ctx context.Context, id string) (domain.DeleteResult, error) {
	return deleted(s.repo.Delete(ctx, id))
}

type blogService struct {
	repo repository.BlogRepository
}

func NewBlogService(repo repository.BlogRepository) BlogService {
	return &blogService{repo: repo}
}

func (s *blogService) Create(ctx context.Context, req domain.BlogReq) (domain.InsertResult, error) {
	if err := req.Validate(); err != nil {
		return domain.InsertResult{}, err
	}
	b := &domain.Blog{
		ID:      uuid.NewString(),
		Title:   req.Title,
		Content: req.Content,
		Author:  req.Author,
		Image:   req.Image,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return domain.InsertResult{}, fmt.Errorf("failed to create blog: %w", err)
	}
	return domain.Inserted(b.ID), nil
}

func (s *blogService) Get(ctx context.Context, id string) (*domain.Blog, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *blogService) List(ctx context.Context) ([]domain.Blog, error) {
	return s.repo.List(ctx)
}

func (s *blogService) Delete(ctx context.Context, id string) (domain.DeleteResult, error) {
	return deleted(s.repo.Delete(ctx, id))
}

func deleted(n int64, err error) (domain.DeleteResult, error) {
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if n == 0 {
		return domain.DeleteResult{}, repository.ErrNotFound
	}
	return domain.Deleted(n), nil
}
