package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetForUpdate(ctx context.Context, userID, id string) (Product, error)
	SetStock(ctx context.Context, userID, id string, stock int) error
}

type txRepository struct {
	tx pgx.Tx
}

const productColumns = `id::text, user_id::text, name, COALESCE(sku, ''), stock, min_stock_level, initial_stock, COALESCE(image_url, ''), created_at`

// WithTx runs fn in one store transaction; product rows locked inside it stay
// locked until commit.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (user_id, name, sku, stock, min_stock_level, initial_stock, image_url)
		VALUES ($1::uuid, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''))
		RETURNING `+productColumns,
		p.UserID, p.Name, p.SKU, p.Stock, p.MinStockLevel, p.InitialStock, p.ImageURL)
	return scanProduct(row)
}

// Update edits descriptive fields. min_stock_level is kept when absent.
func (r *Repository) Update(ctx context.Context, userID, id string, in ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
		SET name = $3, sku = NULLIF($4, ''), min_stock_level = COALESCE($5, min_stock_level), image_url = NULLIF($6, '')
		WHERE id = $1::uuid AND user_id = $2::uuid
		RETURNING `+productColumns,
		id, userID, in.Name, in.SKU, in.MinStockLevel, in.ImageURL)
	p, err := scanProduct(row)
	if db.IsNoRows(err) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

// Get loads one product.
func (r *Repository) Get(ctx context.Context, userID, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1::uuid AND user_id = $2::uuid`, id, userID)
	p, err := scanProduct(row)
	if db.IsNoRows(err) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

// List returns products matching filter.
func (r *Repository) List(ctx context.Context, userID string, filter ListFilter) ([]Product, error) {
	var (
		where = []string{"user_id = $1::uuid"}
		args  = []any{userID}
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", len(args), len(args)))
	}
	switch filter.Status {
	case StatusOutOfStock:
		where = append(where, "stock <= 0")
	case StatusLowStock:
		where = append(where, "stock > 0 AND stock <= min_stock_level")
	case StatusInStock:
		where = append(where, "stock > min_stock_level")
	}
	order := "created_at DESC"
	switch filter.OrderBy {
	case OrderStockAsc:
		order = "stock ASC, name ASC"
	case OrderNameAsc:
		order = "name ASC"
	}
	args = append(args, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s LIMIT $%d`,
		productColumns, strings.Join(where, " AND "), order, len(args))
	return r.queryProducts(ctx, query, args...)
}

// LowStock lists products with stock at or below min_stock_level.
func (r *Repository) LowStock(ctx context.Context, userID string) ([]Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products
		WHERE user_id = $1::uuid AND stock <= min_stock_level
		ORDER BY stock ASC, name ASC`, userID)
}

// Delete removes a product. Foreign key violations are returned untouched so
// the service can classify them.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1::uuid AND user_id = $2::uuid`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// OwnerLowStock groups low-stock products by owner for the alert job.
type OwnerLowStock struct {
	UserID   string
	Email    string
	ShopName string
	Products []Product
}

// LowStockByOwner scans every owner with an email on file.
func (r *Repository) LowStockByOwner(ctx context.Context) ([]OwnerLowStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT pr.id::text, pr.email, COALESCE(pr.shop_name, ''),
			p.id::text, p.user_id::text, p.name, COALESCE(p.sku, ''), p.stock, p.min_stock_level, p.initial_stock, COALESCE(p.image_url, ''), p.created_at
		FROM products p
		JOIN profiles pr ON pr.id = p.user_id
		WHERE p.stock <= p.min_stock_level AND COALESCE(pr.email, '') <> ''
		ORDER BY pr.id, p.stock ASC, p.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OwnerLowStock
	for rows.Next() {
		var (
			owner OwnerLowStock
			p     Product
		)
		if err := rows.Scan(&owner.UserID, &owner.Email, &owner.ShopName,
			&p.ID, &p.UserID, &p.Name, &p.SKU, &p.Stock, &p.MinStockLevel, &p.InitialStock, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		if n := len(result); n > 0 && result[n-1].UserID == owner.UserID {
			result[n-1].Products = append(result[n-1].Products, p.withStatus())
			continue
		}
		owner.Products = []Product{p.withStatus()}
		result = append(result, owner)
	}
	return result, rows.Err()
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (t *txRepository) GetForUpdate(ctx context.Context, userID, id string) (Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1::uuid AND user_id = $2::uuid FOR UPDATE`, id, userID)
	p, err := scanProduct(row)
	if db.IsNoRows(err) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (t *txRepository) SetStock(ctx context.Context, userID, id string, stock int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET stock = $3 WHERE id = $1::uuid AND user_id = $2::uuid`, id, userID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.SKU, &p.Stock, &p.MinStockLevel, &p.InitialStock, &p.ImageURL, &p.CreatedAt)
	return p, err
}
