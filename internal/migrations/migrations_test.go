package migrations_test

import (
	"context"
	"testing"

	"github.com/playperu/harvest/internal/database"
	"github.com/playperu/harvest/internal/migrations"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	n, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	if n == 0 {
		t.Error("expected at least one migration to run")
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='blobs'").Scan(&name)
	if err != nil {
		t.Errorf("table blobs not found: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	n, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Errorf("second run applied %d migrations, want 0", n)
	}
}
