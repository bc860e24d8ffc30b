package profile

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// Repository persists profiles in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id::text, COALESCE(email, ''), COALESCE(shop_name, ''), COALESCE(shop_type, ''), COALESCE(theme_preference, ''), updated_at`

// Get loads a profile.
func (r *Repository) Get(ctx context.Context, id string) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1::uuid`, id)
	p, err := scanProfile(row)
	if db.IsNoRows(err) {
		return Profile{}, shared.ErrNotFound
	}
	return p, err
}

// Upsert inserts or merges a profile; empty strings keep the stored value.
func (r *Repository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO profiles (id, email, shop_name, shop_type, theme_preference)
		VALUES ($1::uuid, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (id) DO UPDATE SET
			email = COALESCE(EXCLUDED.email, profiles.email),
			shop_name = COALESCE(EXCLUDED.shop_name, profiles.shop_name),
			shop_type = COALESCE(EXCLUDED.shop_type, profiles.shop_type),
			theme_preference = COALESCE(EXCLUDED.theme_preference, profiles.theme_preference),
			updated_at = NOW()
		RETURNING `+profileColumns,
		p.ID, p.Email, p.ShopName, p.ShopType, p.ThemePreference)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.ShopName, &p.ShopType, &p.ThemePreference, &p.UpdatedAt)
	return p, err
}
