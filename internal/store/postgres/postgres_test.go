package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/app?sslmode=disable",
		DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "app"}))
	assert.Equal(t, "postgres://u:p@db:6543/app?sslmode=require",
		DSN(ClientConfig{Host: "db", Port: 6543, User: "u", Password: "p", Database: "app", SSLMode: "require"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_sector_labels.sql", names[0])
	assert.IsNonDecreasing(t, names)
}

// TestLabelStoreIntegration runs against a real database when
// POLYPORTFOLIO_TEST_POSTGRES_DSN is set.
func TestLabelStoreIntegration(t *testing.T) {
	dsn := os.Getenv("POLYPORTFOLIO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POLYPORTFOLIO_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	c, err := New(ctx, ClientConfig{DSN: dsn})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.RunMigrations(ctx))

	s := NewLabelStore(c.Pool())
	require.NoError(t, s.Save(ctx, map[string]string{"a": "Politics", "b": "Other"}))
	require.NoError(t, s.Save(ctx, map[string]string{"a": "Sports"}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "Sports"}, got)
}
