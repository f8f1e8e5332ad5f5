package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewDealRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewDealRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewSyncRunRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewSyncRunRepository(pool)
	assert.NotNil(t, repo)
}

// The loser of a concurrent CreateStarted race hits the partial unique index
// on STARTED runs; that unique violation must read as "sync in progress", not
// as a hard failure.
func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert run: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))
}
