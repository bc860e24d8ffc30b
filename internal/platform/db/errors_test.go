package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestClassifyStoreErrors(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", Message: "update or delete on table \"products\" violates foreign key constraint", Detail: "Key is still referenced"}
	wrapped := fmt.Errorf("delete product: %w", fk)

	require.True(t, IsForeignKeyViolation(wrapped))
	require.False(t, IsUniqueViolation(wrapped))
	require.Equal(t, fk.Message+": Key is still referenced", Message(wrapped))

	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	require.False(t, IsForeignKeyViolation(errors.New("boom")))
	require.Equal(t, "boom", Message(errors.New("boom")))
	require.Empty(t, Message(nil))
}
