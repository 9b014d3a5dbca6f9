package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect(Config{Driver: DriverSQLite, DSN: ":memory:", Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE items (name TEXT)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(1) FROM items`))
	return n
}

func TestWithTxCommits(t *testing.T) {
	db := memoryDB(t)
	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO items (name) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
}

func TestWithTxRollsBack(t *testing.T) {
	db := memoryDB(t)
	boom := errors.New("boom")
	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect(Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "no settings",
			cfg:  Config{DSN: "postgres://u:p@db:5432/debts?sslmode=disable"},
			want: "postgres://u:p@db:5432/debts?sslmode=disable",
		},
		{
			name: "url",
			cfg:  Config{DSN: "postgres://u:p@db:5432/debts?sslmode=disable", TimeZone: "Europe/Kyiv", ClientEncoding: "utf-8"},
			want: "postgres://u:p@db:5432/debts?client_encoding=UTF8&sslmode=disable&timezone=Europe%2FKyiv",
		},
		{
			name: "key value",
			cfg:  Config{DSN: "host=db dbname=debts", TimeZone: "it's"},
			want: `host=db dbname=debts timezone='it\'s'`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := postgresDSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgresDSNRejectsNonUTF8(t *testing.T) {
	_, err := postgresDSN(Config{DSN: "host=db", ClientEncoding: "LATIN1"})
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", DriverSQLite)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_TIMEOUT", "bogus")
	cfg := ConfigFromEnv()
	assert.Equal(t, "debts.db", cfg.DSN)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}
