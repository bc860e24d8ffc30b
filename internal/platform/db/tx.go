package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn inside a read-committed transaction, rolling back when fn
// fails. Stock adjustments rely on SELECT ... FOR UPDATE inside fn: under read
// committed a waiter re-reads the row after the holder commits, whereas
// repeatable read would abort it with a serialization failure.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	if pool == nil {
		return fmt.Errorf("platform/db: pool not initialised")
	}
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}
