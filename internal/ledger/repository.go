package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// Repository persists transactions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Insert(ctx context.Context, t Transaction) (Transaction, error)
	Update(ctx context.Context, t Transaction) (Transaction, error)
	GetForUpdate(ctx context.Context, userID, id string) (Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	LockProductStock(ctx context.Context, userID, productID string) (int, error)
	SetProductStock(ctx context.Context, userID, productID string, stock int) error
	ProductExists(ctx context.Context, userID, productID string) (bool, error)
	WorkerExists(ctx context.Context, userID, workerID string) (bool, error)
}

type txRepository struct {
	tx pgx.Tx
}

const transactionColumns = `t.id::text, t.user_id::text, t.type, t.amount::text, t.category, COALESCE(t.description, ''),
	to_char(t.date, 'YYYY-MM-DD'), t.product_id::text, t.worker_id::text, t.quantity, t.payment_method, t.payment_status,
	COALESCE(p.name, ''), COALESCE(w.name, ''), t.created_at`

const transactionJoins = `FROM transactions t
	LEFT JOIN products p ON p.id = t.product_id
	LEFT JOIN workers w ON w.id = t.worker_id`

// WithTx runs fn in one store transaction; product rows locked inside it stay
// locked until commit.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get loads one transaction.
func (r *Repository) Get(ctx context.Context, userID, id string) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` `+transactionJoins+`
		WHERE t.id = $1::uuid AND t.user_id = $2::uuid`, id, userID)
	t, err := scanTransaction(row)
	if db.IsNoRows(err) {
		return Transaction{}, shared.ErrNotFound
	}
	return t, err
}

// List returns transactions matching filter.
func (r *Repository) List(ctx context.Context, userID string, filter Filter) ([]Transaction, error) {
	query, args := buildListQuery(userID, filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func buildListQuery(userID string, filter Filter) (string, []any) {
	var (
		where = []string{"t.user_id = $1::uuid"}
		args  = []any{userID}
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Type != "" {
		add("t.type = $%d", string(filter.Type))
	}
	if filter.Category != "" {
		add("t.category = $%d", filter.Category)
	}
	if filter.PaymentStatus != "" {
		add("t.payment_status = $%d", filter.PaymentStatus)
	}
	if filter.PaymentMethod != "" {
		add("t.payment_method = $%d", filter.PaymentMethod)
	}
	if filter.From != "" {
		add("t.date >= $%d::date", filter.From)
	}
	if filter.To != "" {
		add("t.date <= $%d::date", filter.To)
	}
	if filter.ProductID != "" {
		add("t.product_id = $%d::uuid", filter.ProductID)
	}
	if filter.WorkerID != "" {
		add("t.worker_id = $%d::uuid", filter.WorkerID)
	}
	if filter.WorkerOnly {
		where = append(where, "t.worker_id IS NOT NULL")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(t.description ILIKE $%d OR t.category ILIKE $%d OR p.name ILIKE $%d OR w.name ILIKE $%d)", n, n, n, n))
	}
	direction := "DESC"
	if filter.Order == OrderDateAsc {
		direction = "ASC"
	}
	args = append(args, filter.Limit)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY t.date %s, t.created_at %s LIMIT $%d`,
		transactionColumns, transactionJoins, strings.Join(where, " AND "), direction, direction, len(args))
	return query, args
}

func (t *txRepository) Insert(ctx context.Context, in Transaction) (Transaction, error) {
	var id string
	err := t.tx.QueryRow(ctx, `INSERT INTO transactions
		(user_id, type, amount, category, description, date, product_id, worker_id, quantity, payment_method, payment_status)
		VALUES ($1::uuid, $2, $3::numeric, $4, NULLIF($5, ''), $6::date, $7::uuid, $8::uuid, $9, $10, $11)
		RETURNING id::text`,
		in.UserID, string(in.Type), in.Amount.String(), in.Category, in.Description, in.Date,
		in.ProductID, in.WorkerID, in.Quantity, in.PaymentMethod, in.PaymentStatus).Scan(&id)
	if err != nil {
		return Transaction{}, err
	}
	return t.load(ctx, in.UserID, id, false)
}

func (t *txRepository) Update(ctx context.Context, in Transaction) (Transaction, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE transactions SET
		type = $3, amount = $4::numeric, category = $5, description = NULLIF($6, ''), date = $7::date,
		product_id = $8::uuid, worker_id = $9::uuid, quantity = $10, payment_method = $11, payment_status = $12
		WHERE id = $1::uuid AND user_id = $2::uuid`,
		in.ID, in.UserID, string(in.Type), in.Amount.String(), in.Category, in.Description, in.Date,
		in.ProductID, in.WorkerID, in.Quantity, in.PaymentMethod, in.PaymentStatus)
	if err != nil {
		return Transaction{}, err
	}
	if tag.RowsAffected() == 0 {
		return Transaction{}, shared.ErrNotFound
	}
	return t.load(ctx, in.UserID, in.ID, false)
}

func (t *txRepository) GetForUpdate(ctx context.Context, userID, id string) (Transaction, error) {
	return t.load(ctx, userID, id, true)
}

func (t *txRepository) load(ctx context.Context, userID, id string, lock bool) (Transaction, error) {
	query := `SELECT ` + transactionColumns + ` ` + transactionJoins + `
		WHERE t.id = $1::uuid AND t.user_id = $2::uuid`
	if lock {
		query += ` FOR UPDATE OF t`
	}
	row := t.tx.QueryRow(ctx, query, id, userID)
	tr, err := scanTransaction(row)
	if db.IsNoRows(err) {
		return Transaction{}, shared.ErrNotFound
	}
	return tr, err
}

func (t *txRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1::uuid AND user_id = $2::uuid`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) LockProductStock(ctx context.Context, userID, productID string) (int, error) {
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1::uuid AND user_id = $2::uuid FOR UPDATE`,
		productID, userID).Scan(&stock)
	if db.IsNoRows(err) {
		return 0, shared.ErrNotFound
	}
	return stock, err
}

func (t *txRepository) SetProductStock(ctx context.Context, userID, productID string, stock int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET stock = $3 WHERE id = $1::uuid AND user_id = $2::uuid`,
		productID, userID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) ProductExists(ctx context.Context, userID, productID string) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1::uuid AND user_id = $2::uuid)`,
		productID, userID).Scan(&ok)
	return ok, err
}

func (t *txRepository) WorkerExists(ctx context.Context, userID, workerID string) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workers WHERE id = $1::uuid AND user_id = $2::uuid)`,
		workerID, userID).Scan(&ok)
	return ok, err
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		t      Transaction
		typ    string
		amount string
	)
	err := row.Scan(&t.ID, &t.UserID, &typ, &amount, &t.Category, &t.Description, &t.Date,
		&t.ProductID, &t.WorkerID, &t.Quantity, &t.PaymentMethod, &t.PaymentStatus,
		&t.ProductName, &t.WorkerName, &t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	t.Type = Type(typ)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return Transaction{}, fmt.Errorf("ledger: parse amount %q: %w", amount, err)
	}
	return t, nil
}
