package database

import (
	"strings"
	"testing"

	"github.com/drummonds/bookview/config"
)

func TestEphemeralPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ephemeral postgres test in short mode")
	}
	setupTestLogger()

	t.Log("Starting ephemeral PostgreSQL repository...")
	db, err := NewRepository(config.ServerConfig{DatabaseType: "ephemeral"})
	if err != nil && strings.Contains(err.Error(), "failed to start ephemeral postgres") {
		t.Skipf("postgres not available: %v", err)
	}
	if err != nil {
		t.Fatalf("Failed to setup ephemeral postgres database: %v", err)
	}
	defer db.Close()

	t.Log("Ephemeral database setup successfully, migrations applied")
	exerciseRepository(t, db)
}
