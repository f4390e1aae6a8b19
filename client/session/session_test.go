package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.kood.tech/saathi/matchmaking/client/api"
)

type fakeStore struct {
	srv        *httptest.Server
	validToken atomic.Value
	logouts    atomic.Int32
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	fs := &fakeStore{}
	fs.validToken.Store("good")
	token := func() string { return fs.validToken.Load().(string) }
	authed := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+token()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_credentials"})
			return
		}
		writeJSON(w, http.StatusOK, api.AuthResult{Token: token(), ID: 7})
	})
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, api.AuthResult{Token: token(), ID: 7})
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		fs.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, api.CurrentUser{
			Profile: api.Profile{ID: 7, DisplayName: "Asha"},
			ReceivedInterests: []api.InterestEntry{
				{User: api.Profile{ID: 3, DisplayName: "Ravi"}, Status: api.StatusPending},
			},
		})
	})
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func TestLoginStoresCredentialAndUser(t *testing.T) {
	fs := newFakeStore(t)
	store := &MemoryStore{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(api.New(fs.srv.URL), store, WithClock(func() time.Time { return now }))

	require.NoError(t, s.Login(context.Background(), "asha@example.com", "secret123"))

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, 7, s.UserID())
	assert.Equal(t, "good", s.Token())
	cred, _ := store.Load()
	assert.Equal(t, Credential{Token: "good", UserID: 7, SavedAt: now}, cred)
}

func TestLoginFailureLeavesSessionAnonymous(t *testing.T) {
	fs := newFakeStore(t)
	s := New(api.New(fs.srv.URL), nil)

	err := s.Login(context.Background(), "asha@example.com", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
}

func TestRegisterSignsIn(t *testing.T) {
	fs := newFakeStore(t)
	s := New(api.New(fs.srv.URL), nil)

	require.NoError(t, s.Register(context.Background(), api.RegisterRequest{Email: "asha@example.com"}))
	assert.Equal(t, "Asha", s.User().DisplayName)
}

func TestInitRestoresStoredCredential(t *testing.T) {
	fs := newFakeStore(t)
	store := &MemoryStore{}
	require.NoError(t, store.Save(Credential{Token: "good", UserID: 7}))

	s := New(api.New(fs.srv.URL), store)
	require.NoError(t, s.Init(context.Background()))
	assert.True(t, s.IsAuthenticated())
	assert.Len(t, s.User().ReceivedInterests, 1)
}

func TestInitDropsRejectedCredential(t *testing.T) {
	fs := newFakeStore(t)
	store := &MemoryStore{}
	require.NoError(t, store.Save(Credential{Token: "stale", UserID: 7}))

	client := api.New(fs.srv.URL)
	s := New(client, store)
	require.NoError(t, s.Init(context.Background()))

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, client.Token())
	cred, _ := store.Load()
	assert.True(t, cred.Empty())
}

func TestInitDropsUnreadableCredential(t *testing.T) {
	fs := newFakeStore(t)
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: [unterminated"), 0o600))
	store := FileStore{Path: path}

	_, err := store.Load()
	require.ErrorIs(t, err, ErrCorruptCredential)

	s := New(api.New(fs.srv.URL), store)
	require.NoError(t, s.Init(context.Background()))
	assert.False(t, s.IsAuthenticated())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "unreadable file removed")

	require.NoError(t, s.Login(context.Background(), "asha@example.com", "secret123"))
	assert.True(t, s.IsAuthenticated())
}

func TestLogoutIsBestEffort(t *testing.T) {
	fs := newFakeStore(t)
	s := New(api.New(fs.srv.URL), nil)
	require.NoError(t, s.Login(context.Background(), "a@example.com", "secret123"))

	s.Logout(context.Background())
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, int32(1), fs.logouts.Load())

	// anonymous logout does not call the store
	s.Logout(context.Background())
	assert.Equal(t, int32(1), fs.logouts.Load())
}

func TestRefreshUserSignsOutOnExpiredToken(t *testing.T) {
	fs := newFakeStore(t)
	s := New(api.New(fs.srv.URL), nil)
	require.NoError(t, s.Login(context.Background(), "a@example.com", "secret123"))

	fs.validToken.Store("rotated")
	err := s.RefreshUser(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, s.IsAuthenticated())
}

func TestRefreshUserRequiresSession(t *testing.T) {
	s := New(api.New("http://127.0.0.1:0"), nil)
	assert.ErrorIs(t, s.RefreshUser(context.Background()), ErrNotAuthenticated)
}

func TestApplyInterest(t *testing.T) {
	fs := newFakeStore(t)
	s := New(api.New(fs.srv.URL), nil)
	require.NoError(t, s.Login(context.Background(), "a@example.com", "secret123"))

	sent := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	// new outgoing edge
	s.ApplyInterest(api.Edge{SenderID: 7, RecipientID: 3, Status: api.StatusPending, SentAt: sent})
	u := s.User()
	require.Len(t, u.ExpressedInterests, 1)
	assert.Equal(t, "Ravi", u.ExpressedInterests[0].User.DisplayName, "profile reused from the received side")
	assert.Equal(t, api.StatusPending, u.ExpressedInterests[0].Status)

	// accepting the incoming edge touches only the received side
	s.ApplyInterest(api.Edge{SenderID: 3, RecipientID: 7, Status: api.StatusAccepted, SentAt: sent})
	u = s.User()
	assert.Equal(t, api.StatusAccepted, u.ReceivedInterests[0].Status)
	assert.Equal(t, api.StatusPending, u.ExpressedInterests[0].Status)

	s.DropInterest(3)
	u = s.User()
	assert.Empty(t, u.ExpressedInterests)
	assert.Len(t, u.ReceivedInterests, 1)
}

func TestUserReturnsCopy(t *testing.T) {
	fs := newFakeStore(t)
	s := New(api.New(fs.srv.URL), nil)
	require.NoError(t, s.Login(context.Background(), "a@example.com", "secret123"))

	u := s.User()
	u.ReceivedInterests[0].Status = api.StatusRejected
	u.DisplayName = "changed"

	again := s.User()
	assert.Equal(t, api.StatusPending, again.ReceivedInterests[0].Status)
	assert.Equal(t, "Asha", again.DisplayName)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	fs := FileStore{Path: path}

	cred, err := fs.Load()
	require.NoError(t, err)
	assert.True(t, cred.Empty())

	want := Credential{Token: "tok", UserID: 4, SavedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, fs.Save(want))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.UserID, got.UserID)
	assert.True(t, want.SavedAt.Equal(got.SavedAt))

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear(), "clearing twice is fine")
	got, err = fs.Load()
	require.NoError(t, err)
	assert.True(t, got.Empty())
}
