package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Runs against a real database: DATABASE_URL=postgres://... go test ./internal/storage
func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	s, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}
