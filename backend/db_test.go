package main

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
)

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	requireDB(t)

	// TestMain already applied everything once
	if err := applyMigrations(context.Background(), db); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE filename = '001_init.sql'`).Scan(&n); err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 001_init.sql recorded once, got %d", n)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("Expected 23505 to be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("Expected 23503 not to be a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("Expected plain error not to be a unique violation")
	}
}

func TestSchemaRejectsSelfInterest(t *testing.T) {
	requireDB(t)
	u := createTestUser(t, "selfie")

	_, err := db.Exec(`INSERT INTO interests (sender_id, recipient_id) VALUES ($1, $1)`, u.ID)
	if err == nil {
		t.Error("Expected check constraint to reject a self edge")
	}
}
