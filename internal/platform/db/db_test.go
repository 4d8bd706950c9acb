package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSqliteInMemory(t *testing.T) {
	db, err := OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&n))
	require.Equal(t, 1, n)
}
