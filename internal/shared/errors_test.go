package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	vErr := fmt.Errorf("record: %w", NewValidationError("worker_id", "required for Salary"))
	require.True(t, IsValidation(vErr))
	require.False(t, IsReferential(vErr))
	assert.Equal(t, "validation: worker_id: required for Salary", UserSafeMessage(vErr))

	cause := errors.New("fk")
	rErr := &ReferentialError{Entity: "product", Message: "cannot delete product", Err: cause}
	require.True(t, IsReferential(rErr))
	require.ErrorIs(t, rErr, cause)
	assert.Equal(t, "cannot delete product", UserSafeMessage(rErr))

	pErr := &PersistenceError{Op: "insert transaction", Message: "connection reset", Err: cause}
	require.True(t, IsPersistence(pErr))
	assert.Equal(t, "persistence: insert transaction: connection reset", pErr.Error())
	assert.Equal(t, "connection reset", UserSafeMessage(pErr))

	assert.Equal(t, "please log in to continue", UserSafeMessage(ErrUnauthenticated))
	assert.Equal(t, "something went wrong, please try again", UserSafeMessage(errors.New("x")))
}

func TestActingUserFromContext(t *testing.T) {
	_, err := ActingUser(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	ctx := ContextWithActingUser(context.Background(), "user-1")
	id, err := ActingUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "user-1", id)

	_, err = ActingUser(ContextWithActingUser(context.Background(), ""))
	require.ErrorIs(t, err, ErrUnauthenticated)
}
