package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// --- Response helpers ---
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// currentUserID returns the id placed in the context by authenticate.
func currentUserID(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)
	return id
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// withTx wraps a function in a database transaction.
// - Ensures COMMIT on success, ROLLBACK on errors or panics.
// - Keeps handler bodies tiny and all state changes atomic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		// If the callback panics, make sure to rollback before re-panicking
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// interestRow is one directed edge as stored in the interests table.
type interestRow struct {
	ID          int
	SenderID    int
	RecipientID int
	Status      string
	SentAt      time.Time
	UpdatedAt   time.Time
}

func (r *interestRow) edge() Edge {
	return Edge{SenderID: r.SenderID, RecipientID: r.RecipientID, Status: r.Status, SentAt: r.SentAt}
}

// loadEdgeForUpdate returns the edge sender→recipient and locks it until the
// transaction ends. Returns (nil, nil) if no row exists yet.
// Only this direction is read: the reverse edge is independent.
func loadEdgeForUpdate(ctx context.Context, tx *sql.Tx, sender, recipient int) (*interestRow, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, sender_id, recipient_id, status, sent_at, updated_at
		FROM interests
		WHERE sender_id = $1 AND recipient_id = $2
		FOR UPDATE
	`, sender, recipient)

	var e interestRow
	if err := row.Scan(&e.ID, &e.SenderID, &e.RecipientID, &e.Status, &e.SentAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// profileExists reports whether a user with a profile row exists.
func profileExists(ctx context.Context, q queryer, userID int) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)`, userID,
	).Scan(&exists)
	return exists, err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func logDBError(where string, err error) {
	logger.Error("database error", zap.String("where", where), zap.Error(err))
}
