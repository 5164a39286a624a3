package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConstraintViolationDetection(t *testing.T) {
	unique := fmt.Errorf("insert lead: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	if !IsUniqueViolation(unique) {
		t.Fatal("expected wrapped 23505 to be detected as unique violation")
	}
	if IsUniqueViolation(fk) {
		t.Fatal("foreign key violation must not be reported as unique violation")
	}
	if !IsForeignKeyViolation(fk) {
		t.Fatal("expected 23503 to be detected as foreign key violation")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Fatal("plain error must not be a unique violation")
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
}
