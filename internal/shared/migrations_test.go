package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		if migrations[0].Name != "create_kv_store" {
			t.Errorf("expected first migration create_kv_store, got %q", migrations[0].Name)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		applied, err := RunMigrations(db)
		if err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if applied == 0 {
			t.Error("expected at least one migration to be applied")
		}

		if _, err := db.Exec("SELECT 1 FROM kv_store LIMIT 1"); err != nil {
			t.Errorf("kv_store table should exist after migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		versions, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("AppliedVersions() error = %v", err)
		}
		if len(versions) != applied-1 {
			t.Errorf("expected %d applied migrations after rollback, got %d", applied-1, len(versions))
		}

		if _, err := db.Exec("SELECT 1 FROM kv_store LIMIT 1"); err == nil {
			t.Error("kv_store table should be dropped after rolling back the only migration")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error rolling back with nothing applied")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		again, err := RunMigrations(db)
		if err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
		if again != 0 {
			t.Errorf("expected no migrations on second run, got %d", again)
		}

		versions, err := AppliedVersions(db)
		if err != nil {
			t.Fatalf("AppliedVersions() error = %v", err)
		}
		migrations, _ := loadMigrations()
		if len(versions) != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), len(versions))
		}
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- header\nCREATE TABLE t (id INTEGER) -- trailing\n\n")
		if got != "CREATE TABLE t (id INTEGER)" {
			t.Errorf("removeComments() = %q", got)
		}
	})
}
