package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClampPage(t *testing.T) {
	page, size := ClampPage(0, 101)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = ClampPage(-3, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = ClampPage(1, MaxPageSize)
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxPageSize, size)

	page, size = ClampPage(4, 25)
	assert.Equal(t, 4, page)
	assert.Equal(t, 25, size)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "projects_user_id_project_code_key"}
	err := mapError(dup)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "projects_user_id_project_code_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}
