package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert store: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("constraint failed: UNIQUE constraint failed: stores.chain_key (2067)")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "pricewatch.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN(""))
	assert.Equal(t, "file::memory:?cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN("file::memory:?cache=shared"))
}
