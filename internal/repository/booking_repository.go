package repository

import (
	"context"
	"time"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Booking, error)
	UpdateReport(ctx context.Context, id string, patch domain.ReportPatch) (*domain.Booking, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type bookingRepository struct {
	pool DB
}

func NewBookingRepository(pool DB) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, test_id, test_name, email, name, date, price,
transaction_id, report_status, report_url, created_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(
		&b.ID, &b.TestID, &b.TestName, &b.Email, &b.Name, &b.Date, &b.Price,
		&b.TransactionID, &b.ReportStatus, &b.ReportURL, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	const q = `INSERT INTO bookings (
		id, test_id, test_name, email, name, date, price, transaction_id, report_status
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	RETURNING created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q,
		b.ID, b.TestID, b.TestName, b.Email, b.Name, b.Date, b.Price, b.TransactionID, b.ReportStatus,
	).Scan(&b.CreatedAt)
	return mapErr(err)
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings ORDER BY created_at DESC`
	return r.query(ctx, q)
}

func (r *bookingRepository) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE email=$1 ORDER BY created_at DESC`
	return r.query(ctx, q, email)
}

func (r *bookingRepository) query(ctx context.Context, q string, args ...any) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) UpdateReport(ctx context.Context, id string, patch domain.ReportPatch) (*domain.Booking, error) {
	const q = `
		UPDATE bookings
		SET
			report_status = COALESCE($2, report_status),
			report_url    = COALESCE($3, report_url)
		WHERE id=$1
		RETURNING ` + bookingCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, patch.ReportStatus, patch.ReportURL))
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (r *bookingRepository) Delete(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
