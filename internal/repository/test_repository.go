package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/elevro/internal/domain"
	"github.com/jackc/pgx/v5"
)

type TestRepository interface {
	Create(ctx context.Context, t *domain.LabTest) error
	GetByID(ctx context.Context, id string) (*domain.LabTest, error)
	List(ctx context.Context) ([]domain.LabTest, error)
	ListByDate(ctx context.Context, date string) ([]domain.LabTest, error)
	Update(ctx context.Context, id string, patch domain.LabTestPatch) (*domain.LabTest, error)
	Delete(ctx context.Context, id string) (int64, error)
	Reserve(ctx context.Context, id string) (*domain.LabTest, error)
	Release(ctx context.Context, id string) (*domain.LabTest, error)
}

type testRepository struct {
	pool DB
}

func NewTestRepository(pool DB) TestRepository {
	return &testRepository{pool: pool}
}

const testCols = `id, name, image, details, price, date, slots, bookings, created_at, updated_at`

func scanTest(row pgx.Row) (*domain.LabTest, error) {
	var t domain.LabTest
	if err := row.Scan(
		&t.ID, &t.Name, &t.Image, &t.Details, &t.Price, &t.Date,
		&t.Slots, &t.Bookings, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *testRepository) Create(ctx context.Context, t *domain.LabTest) error {
	const q = `INSERT INTO tests (id, name, image, details, price, date, slots, bookings)
	VALUES ($1,$2,$3,$4,$5,$6,$7,0)
	RETURNING bookings, created_at, updated_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q, t.ID, t.Name, t.Image, t.Details, t.Price, t.Date, t.Slots).
		Scan(&t.Bookings, &t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

func (r *testRepository) GetByID(ctx context.Context, id string) (*domain.LabTest, error) {
	const q = `SELECT ` + testCols + ` FROM tests WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTest(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (r *testRepository) List(ctx context.Context) ([]domain.LabTest, error) {
	const q = `SELECT ` + testCols + ` FROM tests ORDER BY date, name`
	return r.query(ctx, q)
}

func (r *testRepository) ListByDate(ctx context.Context, date string) ([]domain.LabTest, error) {
	const q = `SELECT ` + testCols + ` FROM tests WHERE date=$1 ORDER BY name`
	return r.query(ctx, q, date)
}

func (r *testRepository) query(ctx context.Context, q string, args ...any) ([]domain.LabTest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tests := []domain.LabTest{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

func (r *testRepository) Update(ctx context.Context, id string, patch domain.LabTestPatch) (*domain.LabTest, error) {
	const q = `
		UPDATE tests
		SET
			name       = COALESCE($2, name),
			image      = COALESCE($3, image),
			details    = COALESCE($4, details),
			price      = COALESCE($5, price),
			date       = COALESCE($6, date),
			slots      = COALESCE($7, slots),
			updated_at = now()
		WHERE id=$1
		RETURNING ` + testCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTest(r.pool.QueryRow(ctx, q, id,
		patch.Name, patch.Image, patch.Details, patch.Price, patch.Date, patch.Slots,
	))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (r *testRepository) Delete(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM tests WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Reserve takes one slot in a single conditional update. The WHERE guard
// makes the check and the decrement one atomic step, so slots never go
// negative under concurrent reservations.
func (r *testRepository) Reserve(ctx context.Context, id string) (*domain.LabTest, error) {
	const q = `
		UPDATE tests
		SET bookings = bookings + 1, slots = slots - 1, updated_at = now()
		WHERE id=$1 AND slots > 0
		RETURNING ` + testCols
	return r.moveSlot(ctx, q, id, ErrNoSlotsLeft)
}

// Release gives a slot back after a cancellation.
func (r *testRepository) Release(ctx context.Context, id string) (*domain.LabTest, error) {
	const q = `
		UPDATE tests
		SET bookings = bookings - 1, slots = slots + 1, updated_at = now()
		WHERE id=$1 AND bookings > 0
		RETURNING ` + testCols
	return r.moveSlot(ctx, q, id, ErrConflict)
}

func (r *testRepository) moveSlot(ctx context.Context, q, id string, guardErr error) (*domain.LabTest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTest(r.pool.QueryRow(ctx, q, id))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row updated: either the test is gone or the guard failed.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tests WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, guardErr
}
