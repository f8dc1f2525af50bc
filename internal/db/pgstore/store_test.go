package pgstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/paper-builder/internal/db/model"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), model.ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), model.ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "staff_email_key"}
	err := mapError(unique)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Contains(t, err.Error(), "staff_email_key")

	other := errors.New("connection reset by peer")
	assert.Equal(t, other, mapError(other))
}
