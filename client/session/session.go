// Package session holds the authenticated viewer for one client.
//
// A Context is created explicitly and passed to whatever needs the viewer;
// there is no package-level state. Its lifecycle is Init on start-up,
// Login/Register to sign in, Logout to clear, and RefreshUser on demand.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitea.kood.tech/saathi/matchmaking/client/api"
)

var ErrNotAuthenticated = errors.New("session: not authenticated")

// Backend is the part of the store client a session needs. *api.Client satisfies it.
type Backend interface {
	SetToken(token string)
	Register(ctx context.Context, req api.RegisterRequest) (api.AuthResult, error)
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*api.CurrentUser, error)
}

type Context struct {
	backend Backend
	store   CredentialStore
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	token string
	user  *api.CurrentUser
}

type Option func(*Context)

func WithLogger(l *zap.Logger) Option {
	return func(c *Context) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

func New(backend Backend, store CredentialStore, opts ...Option) *Context {
	if store == nil {
		store = &MemoryStore{}
	}
	c := &Context{
		backend: backend,
		store:   store,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init restores a stored credential. When the credential is unreadable or the
// store no longer accepts it, it is dropped and the viewer stays anonymous;
// that is not an error.
func (c *Context) Init(ctx context.Context) error {
	cred, err := c.store.Load()
	if errors.Is(err, ErrCorruptCredential) {
		c.logger.Warn("stored credential unreadable, continuing anonymously", zap.Error(err))
		c.clear()
		return nil
	}
	if err != nil {
		return err
	}
	if cred.Empty() {
		return nil
	}

	c.backend.SetToken(cred.Token)
	user, err := c.backend.CurrentUser(ctx)
	if err != nil {
		c.logger.Info("stored credential rejected, continuing anonymously", zap.Error(err))
		c.clear()
		return nil
	}
	c.set(cred.Token, user)
	return nil
}

func (c *Context) Register(ctx context.Context, req api.RegisterRequest) error {
	res, err := c.backend.Register(ctx, req)
	if err != nil {
		return err
	}
	return c.signIn(ctx, res)
}

// Login stores the credential and the user on success.
func (c *Context) Login(ctx context.Context, email, password string) error {
	res, err := c.backend.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return c.signIn(ctx, res)
}

func (c *Context) signIn(ctx context.Context, res api.AuthResult) error {
	c.backend.SetToken(res.Token)
	user, err := c.backend.CurrentUser(ctx)
	if err != nil {
		c.backend.SetToken("")
		return fmt.Errorf("load signed-in user: %w", err)
	}
	if err := c.store.Save(Credential{Token: res.Token, UserID: res.ID, SavedAt: c.now()}); err != nil {
		c.logger.Warn("credential not persisted", zap.Error(err))
	}
	c.set(res.Token, user)
	return nil
}

// Logout clears the credential and the user. Server-side revocation is best effort.
func (c *Context) Logout(ctx context.Context) {
	if c.IsAuthenticated() {
		if err := c.backend.Logout(ctx); err != nil {
			c.logger.Warn("server logout failed", zap.Error(err))
		}
	}
	c.clear()
}

// RefreshUser re-fetches the current user without a new login. An expired
// credential signs the viewer out.
func (c *Context) RefreshUser(ctx context.Context) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	user, err := c.backend.CurrentUser(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		c.clear()
		return ErrNotAuthenticated
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.user = user
	c.mu.Unlock()
	return nil
}

func (c *Context) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}

// UserID is 0 for an anonymous viewer.
func (c *Context) UserID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return 0
	}
	return c.user.ID
}

func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User returns a copy of the current user, or nil when anonymous.
func (c *Context) User() *api.CurrentUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	cp := *c.user
	cp.ExpressedInterests = append([]api.InterestEntry(nil), c.user.ExpressedInterests...)
	cp.ReceivedInterests = append([]api.InterestEntry(nil), c.user.ReceivedInterests...)
	return &cp
}

// ApplyInterest writes an edge returned by the store into the cached
// collections, on whichever side the viewer is.
func (c *Context) ApplyInterest(e api.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return
	}
	switch c.user.ID {
	case e.SenderID:
		c.user.ExpressedInterests = upsertEntry(c.user.ExpressedInterests, c.peer(e.RecipientID), e)
	case e.RecipientID:
		c.user.ReceivedInterests = upsertEntry(c.user.ReceivedInterests, c.peer(e.SenderID), e)
	}
}

// DropInterest removes the viewer's sent edge to recipientID from the cache.
func (c *Context) DropInterest(recipientID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return
	}
	out := c.user.ExpressedInterests[:0:0]
	for _, en := range c.user.ExpressedInterests {
		if en.User.ID != recipientID {
			out = append(out, en)
		}
	}
	c.user.ExpressedInterests = out
}

// peer finds a cached profile for id in either collection. Caller holds mu.
func (c *Context) peer(id int) api.Profile {
	for _, list := range [][]api.InterestEntry{c.user.ExpressedInterests, c.user.ReceivedInterests} {
		for _, en := range list {
			if en.User.ID == id {
				return en.User
			}
		}
	}
	return api.Profile{ID: id}
}

func upsertEntry(list []api.InterestEntry, peer api.Profile, e api.Edge) []api.InterestEntry {
	out := append([]api.InterestEntry(nil), list...)
	for i := range out {
		if out[i].User.ID == peer.ID {
			out[i].Status = e.Status
			out[i].SentAt = e.SentAt
			return out
		}
	}
	return append([]api.InterestEntry{{User: peer, SentAt: e.SentAt, Status: e.Status}}, out...)
}

func (c *Context) set(token string, user *api.CurrentUser) {
	c.mu.Lock()
	c.token = token
	c.user = user
	c.mu.Unlock()
}

func (c *Context) clear() {
	c.backend.SetToken("")
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("credential not cleared", zap.Error(err))
	}
	c.set("", nil)
}
