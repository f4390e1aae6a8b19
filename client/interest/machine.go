// Package interest drives the directed interest edge between the viewer and
// another member. The store is the record; the machine checks request shape
// against the viewer's cached collections and keeps the cache current.
package interest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gitea.kood.tech/saathi/matchmaking/client/api"
)

var (
	ErrAuthRequired      = errors.New("interest: sign in required")
	ErrSelfInterest      = errors.New("interest: cannot express interest in yourself")
	ErrAlreadyActive     = errors.New("interest: an active interest already exists")
	ErrNoPendingInterest = errors.New("interest: no pending interest from this member")
)

// Store is the remote side of every transition. *api.Client satisfies it.
type Store interface {
	ExpressInterest(ctx context.Context, recipientID int) (api.Edge, error)
	AcceptInterest(ctx context.Context, senderID int) (api.Edge, error)
	RejectInterest(ctx context.Context, senderID int) (api.Edge, error)
	RemoveInterest(ctx context.Context, recipientID int) error
	ResendInterest(ctx context.Context, recipientID int) (api.Edge, error)
}

// Viewer is the signed-in member's cached state. *session.Context satisfies it.
type Viewer interface {
	UserID() int
	User() *api.CurrentUser
	ApplyInterest(e api.Edge)
	DropInterest(recipientID int)
	RefreshUser(ctx context.Context) error
}

type Machine struct {
	store  Store
	viewer Viewer
	logger *zap.Logger
}

func NewMachine(store Store, viewer Viewer, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{store: store, viewer: viewer, logger: logger}
}

// SentTo returns the viewer's edge to id, or nil.
func SentTo(u *api.CurrentUser, id int) *api.InterestEntry {
	if u == nil {
		return nil
	}
	for i := range u.ExpressedInterests {
		if u.ExpressedInterests[i].User.ID == id {
			return &u.ExpressedInterests[i]
		}
	}
	return nil
}

// ReceivedFrom returns the edge from id to the viewer, or nil.
func ReceivedFrom(u *api.CurrentUser, id int) *api.InterestEntry {
	if u == nil {
		return nil
	}
	for i := range u.ReceivedInterests {
		if u.ReceivedInterests[i].User.ID == id {
			return &u.ReceivedInterests[i]
		}
	}
	return nil
}

func active(status string) bool {
	return status == api.StatusPending || status == api.StatusAccepted
}

func (m *Machine) signedIn() (*api.CurrentUser, error) {
	u := m.viewer.User()
	if u == nil {
		return nil, ErrAuthRequired
	}
	return u, nil
}

// Express sends a new pending interest to recipientID.
func (m *Machine) Express(ctx context.Context, recipientID int) (api.Edge, error) {
	u, err := m.signedIn()
	if err != nil {
		return api.Edge{}, err
	}
	if recipientID == u.ID {
		return api.Edge{}, ErrSelfInterest
	}
	if sent := SentTo(u, recipientID); sent != nil && active(sent.Status) {
		return api.Edge{}, ErrAlreadyActive
	}

	e, err := m.store.ExpressInterest(ctx, recipientID)
	if err != nil {
		return api.Edge{}, fmt.Errorf("express interest in %d: %w", recipientID, err)
	}
	m.settle(ctx, "express", e)
	return e, nil
}

// Accept accepts the interest senderID sent to the viewer. Accepting twice is safe.
func (m *Machine) Accept(ctx context.Context, senderID int) (api.Edge, error) {
	u, err := m.signedIn()
	if err != nil {
		return api.Edge{}, err
	}
	if recv := ReceivedFrom(u, senderID); recv == nil || recv.Status == api.StatusRejected {
		return api.Edge{}, ErrNoPendingInterest
	}

	e, err := m.store.AcceptInterest(ctx, senderID)
	if err != nil {
		return api.Edge{}, fmt.Errorf("accept interest from %d: %w", senderID, err)
	}
	m.settle(ctx, "accept", e)
	return e, nil
}

// Reject declines the interest senderID sent to the viewer. Rejecting twice is safe.
func (m *Machine) Reject(ctx context.Context, senderID int) (api.Edge, error) {
	u, err := m.signedIn()
	if err != nil {
		return api.Edge{}, err
	}
	if recv := ReceivedFrom(u, senderID); recv == nil || recv.Status == api.StatusAccepted {
		return api.Edge{}, ErrNoPendingInterest
	}

	e, err := m.store.RejectInterest(ctx, senderID)
	if err != nil {
		return api.Edge{}, fmt.Errorf("reject interest from %d: %w", senderID, err)
	}
	m.settle(ctx, "reject", e)
	return e, nil
}

// Remove deletes the viewer's edge to recipientID whatever its status.
func (m *Machine) Remove(ctx context.Context, recipientID int) error {
	if _, err := m.signedIn(); err != nil {
		return err
	}
	err := m.store.RemoveInterest(ctx, recipientID)
	switch {
	case errors.Is(err, api.ErrNotFound):
		m.logger.Debug("interest already gone", zap.Int("recipient", recipientID))
	case err != nil:
		return fmt.Errorf("remove interest in %d: %w", recipientID, err)
	}
	m.viewer.DropInterest(recipientID)
	m.refresh(ctx, "remove")
	return nil
}

// Resend replaces the viewer's edge to recipientID with a fresh pending one.
// Stores without the atomic endpoint get a remove that must be confirmed
// before the new edge is sent.
func (m *Machine) Resend(ctx context.Context, recipientID int) (api.Edge, error) {
	u, err := m.signedIn()
	if err != nil {
		return api.Edge{}, err
	}
	if recipientID == u.ID {
		return api.Edge{}, ErrSelfInterest
	}

	e, err := m.store.ResendInterest(ctx, recipientID)
	if api.IsRouteMissing(err) {
		m.logger.Info("atomic resend unavailable, removing then expressing", zap.Int("recipient", recipientID))
		e, err = m.removeThenExpress(ctx, recipientID)
	}
	if err != nil {
		return api.Edge{}, fmt.Errorf("resend interest to %d: %w", recipientID, err)
	}
	m.settle(ctx, "resend", e)
	return e, nil
}

func (m *Machine) removeThenExpress(ctx context.Context, recipientID int) (api.Edge, error) {
	if err := m.store.RemoveInterest(ctx, recipientID); err != nil && !errors.Is(err, api.ErrNotFound) {
		return api.Edge{}, err
	}
	m.viewer.DropInterest(recipientID)
	return m.store.ExpressInterest(ctx, recipientID)
}

// settle applies the returned edge, then refreshes for changes made elsewhere.
func (m *Machine) settle(ctx context.Context, action string, e api.Edge) {
	m.viewer.ApplyInterest(e)
	m.refresh(ctx, action)
}

func (m *Machine) refresh(ctx context.Context, action string) {
	if err := m.viewer.RefreshUser(ctx); err != nil {
		m.logger.Warn("refresh after interest change failed",
			zap.String("action", action),
			zap.Error(err))
	}
}
