package repository

import (
	"context"
	"time"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BannerRepository interface {
	Create(ctx context.Context, b *domain.Banner) error
	List(ctx context.Context) ([]domain.Banner, error)
	GetActive(ctx context.Context) (*domain.Banner, error)
	Update(ctx context.Context, id string, patch domain.BannerPatch) (*domain.Banner, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type BlogRepository interface {
	Create(ctx context.Context, b *domain.Blog) error
	GetByID(ctx context.Context, id string) (*domain.Blog, error)
	List(ctx context.Context) ([]domain.Blog, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type bannerRepository struct {
	pool DB
}

func NewBannerRepository(pool DB) BannerRepository {
	return &bannerRepository{pool: pool}
}

const bannerCols = `id, name, image, title, description, coupon_code, discount_rate, active, created_at`

func scanBanner(row pgx.Row) (*domain.Banner, error) {
	var b domain.Banner
	if err := row.Scan(
		&b.ID, &b.Name, &b.Image, &b.Title, &b.Description,
		&b.CouponCode, &b.DiscountRate, &b.Active, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bannerRepository) Create(ctx context.Context, b *domain.Banner) error {
	const q = `INSERT INTO banners (id, name, image, title, description, coupon_code, discount_rate, active)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	RETURNING created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q,
		b.ID, b.Name, b.Image, b.Title, b.Description, b.CouponCode, b.DiscountRate, b.Active,
	).Scan(&b.CreatedAt)
	return mapErr(err)
}

func (r *bannerRepository) List(ctx context.Context) ([]domain.Banner, error) {
	const q = `SELECT ` + bannerCols + ` FROM banners ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	banners := []domain.Banner{}
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, err
		}
		banners = append(banners, *b)
	}
	return banners, rows.Err()
}

// GetActive returns the most recently created active banner. More than one
// may be flagged active; nothing prevents it.
func (r *bannerRepository) GetActive(ctx context.Context) (*domain.Banner, error) {
	const q = `SELECT ` + bannerCols + ` FROM banners WHERE active ORDER BY created_at DESC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBanner(r.pool.QueryRow(ctx, q))
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (r *bannerRepository) Update(ctx context.Context, id string, patch domain.BannerPatch) (*domain.Banner, error) {
	const q = `
		UPDATE banners
		SET
			name          = COALESCE($2, name),
			image         = COALESCE($3, image),
			title         = COALESCE($4, title),
			description   = COALESCE($5, description),
			coupon_code   = COALESCE($6, coupon_code),
			discount_rate = COALESCE($7, discount_rate),
			active        = COALESCE($8, active)
		WHERE id=$1
		RETURNING ` + bannerCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBanner(r.pool.QueryRow(ctx, q, id,
		patch.Name, patch.Image, patch.Title, patch.Description,
		patch.CouponCode, patch.DiscountRate, patch.Active,
	))
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (r *bannerRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByID(ctx, r.pool, `DELETE FROM banners WHERE id=$1`, id)
}

type blogRepository struct {
	pool DB
}

func NewBlogRepository(pool DB) BlogRepository {
	return &blogRepository{pool: pool}
}

const blogCols = `id, title, content, author, image, created_at`

func scanBlog(row pgx.Row) (*domain.Blog, error) {
	var b domain.Blog
	if err := row.Scan(&b.ID, &b.Title, &b.Content, &b.Author, &b.Image, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *blogRepository) Create(ctx context.Context, b *domain.Blog) error {
	const q = `INSERT INTO blogs (id, title, content, author, image)
	VALUES ($1,$2,$3,$4,$5)
	RETURNING created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q, b.ID, b.Title, b.Content, b.Author, b.Image).Scan(&b.CreatedAt)
	return mapErr(err)
}

func (r *blogRepository) GetByID(ctx context.Context, id string) (*domain.Blog, error) {
	const q = `SELECT ` + blogCols + ` FROM blogs WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBlog(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (r *blogRepository) List(ctx context.Context) ([]domain.Blog, error) {
	const q = `SELECT ` + blogCols + ` FROM blogs ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []domain.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
	}
	return blogs, rows.Err()
}

func (r *blogRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByID(ctx, r.pool, `DELETE FROM blogs WHERE id=$1`, id)
}

func deleteByID(ctx context.Context, pool DB, q, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := pool.Exec(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
