package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Test helper structures and types
type TestUser struct {
	ID       int
	Email    string
	Password string
	Token    string
}

var userSeq atomic.Int64

func TestMain(m *testing.M) {
	logger = zap.NewNop()
	jwtSecret = []byte("test-secret")
	tokenTTL = time.Hour

	mediaDir, err := os.MkdirTemp("", "saathi-media")
	if err != nil {
		panic(err)
	}
	cfg = Config{
		JWTSecret:         jwtSecret,
		TokenTTL:          tokenTTL,
		MediaDir:          mediaDir,
		CORSOrigins:       []string{"http://localhost:5173"},
		LoginRatePerMin:   1000,
		DefaultPageSize:   12,
		MaxPageSize:       50,
		RequestTimeout:    10 * time.Second,
		MaxAvatarBytes:    3 << 20,
		AvatarMaxPixels:   800,
		AvatarJPEGQuality: 82,

		AvatarMaxSourcePixels: 40_000_000,
	}

	// DB-backed tests skip when no database is reachable
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		conn, err := sql.Open("postgres", dsn)
		if err == nil && conn.PingContext(ctx) == nil && applyMigrations(ctx, conn) == nil {
			db = conn
		}
		cancel()
	}

	code := m.Run()
	if db != nil {
		db.Close()
	}
	os.RemoveAll(mediaDir)
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if db == nil {
		t.Skip("set TEST_DATABASE_URL to a reachable Postgres to run database tests")
	}
}

// doRequest sends a JSON request through the full router.
func doRequest(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	newRouter(db, cfg).ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// createTestUser registers a fresh user with a unique email.
func createTestUser(t *testing.T, name string) TestUser {
	t.Helper()
	email := fmt.Sprintf("%s_%d_%d@example.com", name, time.Now().UnixNano(), userSeq.Add(1))
	password := "testpassword123"

	w := doRequest(t, http.MethodPost, "/register", "", map[string]string{
		"email":         email,
		"password":      password,
		"display_name":  name,
		"gender":        "female",
		"date_of_birth": "1994-05-17",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		ID    int    `json:"id"`
	}
	decodeBody(t, w, &resp)
	t.Cleanup(func() {
		db.Exec("DELETE FROM users WHERE id = $1", resp.ID)
	})
	return TestUser{ID: resp.ID, Email: email, Password: password, Token: resp.Token}
}

// setGuardian fills the guardian block so disclosure can be observed.
func setGuardian(t *testing.T, u TestUser, name, contact string) {
	t.Helper()
	_, err := db.Exec(`UPDATE profiles SET guardian_name = $2, guardian_contact = $3 WHERE user_id = $1`,
		u.ID, name, contact)
	require.NoError(t, err)
}
