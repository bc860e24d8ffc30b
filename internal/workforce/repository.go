package workforce

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// Repository persists workers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workerColumns = `id::text, user_id::text, name, COALESCE(role, ''), COALESCE(phone, ''), salary::text, COALESCE(image_url, ''), created_at`

// Create inserts a worker.
func (r *Repository) Create(ctx context.Context, w Worker) (Worker, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO workers (user_id, name, role, phone, salary, image_url)
		VALUES ($1::uuid, $2, NULLIF($3, ''), NULLIF($4, ''), $5::numeric, NULLIF($6, ''))
		RETURNING `+workerColumns,
		w.UserID, w.Name, w.Role, w.Phone, w.Salary.String(), w.ImageURL)
	return scanWorker(row)
}

// Update overwrites a worker's fields.
func (r *Repository) Update(ctx context.Context, w Worker) (Worker, error) {
	row := r.pool.QueryRow(ctx, `UPDATE workers
		SET name = $3, role = NULLIF($4, ''), phone = NULLIF($5, ''), salary = $6::numeric, image_url = NULLIF($7, '')
		WHERE id = $1::uuid AND user_id = $2::uuid
		RETURNING `+workerColumns,
		w.ID, w.UserID, w.Name, w.Role, w.Phone, w.Salary.String(), w.ImageURL)
	updated, err := scanWorker(row)
	if db.IsNoRows(err) {
		return Worker{}, shared.ErrNotFound
	}
	return updated, err
}

// Get loads one worker.
func (r *Repository) Get(ctx context.Context, userID, id string) (Worker, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1::uuid AND user_id = $2::uuid`, id, userID)
	w, err := scanWorker(row)
	if db.IsNoRows(err) {
		return Worker{}, shared.ErrNotFound
	}
	return w, err
}

// List returns workers, newest first, optionally matching name or role.
func (r *Repository) List(ctx context.Context, userID, search string) ([]Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE user_id = $1::uuid`
	args := []any{userID}
	if search != "" {
		query += ` AND (name ILIKE $2 OR role ILIKE $2)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var workers []Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// Delete removes a worker. Foreign key violations are returned untouched.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workers WHERE id = $1::uuid AND user_id = $2::uuid`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanWorker(row pgx.Row) (Worker, error) {
	var (
		w      Worker
		salary string
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Role, &w.Phone, &salary, &w.ImageURL, &w.CreatedAt); err != nil {
		return Worker{}, err
	}
	parsed, err := decimal.NewFromString(salary)
	if err != nil {
		return Worker{}, err
	}
	w.Salary = parsed
	return w, nil
}
