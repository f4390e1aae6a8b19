package coordinator

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.kood.tech/saathi/matchmaking/client/api"
	"gitea.kood.tech/saathi/matchmaking/client/interest"
)

func entry(id int, status string) api.InterestEntry {
	return api.InterestEntry{User: api.Profile{ID: id}, Status: status}
}

func viewer(sent, received []api.InterestEntry) *api.CurrentUser {
	return &api.CurrentUser{Profile: api.Profile{ID: 1}, ExpressedInterests: sent, ReceivedInterests: received}
}

func actions(v View) []Action {
	var out []Action
	for _, b := range v.Buttons {
		out = append(out, b.Action)
	}
	return out
}

func TestResolve(t *testing.T) {
	cases := []struct {
		name    string
		user    *api.CurrentUser
		state   State
		actions []Action
		label   string
	}{
		{"anonymous", nil, StateNone, []Action{ActionExpress}, "Send Interest"},
		{"no edge", viewer(nil, nil), StateNone, []Action{ActionExpress}, "Send Interest"},
		{"sent pending", viewer([]api.InterestEntry{entry(2, "pending")}, nil), StateSentPending, []Action{ActionRemove}, "Remove"},
		{"sent accepted", viewer([]api.InterestEntry{entry(2, "accepted")}, nil), StateSentAccepted, []Action{ActionRemove}, "Remove"},
		{"sent rejected", viewer([]api.InterestEntry{entry(2, "rejected")}, nil), StateSentRejected, []Action{ActionRemove}, "Remove"},
		{"received pending", viewer(nil, []api.InterestEntry{entry(2, "pending")}), StateReceivedPending, []Action{ActionAccept, ActionReject}, "Accept"},
		{"received accepted", viewer(nil, []api.InterestEntry{entry(2, "accepted")}), StateReceivedAccepted, []Action{ActionResend}, "Send Interest"},
		{"received rejected", viewer(nil, []api.InterestEntry{entry(2, "rejected")}), StateReceivedRejected, []Action{ActionResend}, "Send Interest"},
		{
			"sent pending wins over received accepted",
			viewer([]api.InterestEntry{entry(2, "pending")}, []api.InterestEntry{entry(2, "accepted")}),
			StateSentPending, []Action{ActionRemove}, "Remove",
		},
		{
			"edges to other members are ignored",
			viewer([]api.InterestEntry{entry(3, "pending")}, []api.InterestEntry{entry(4, "pending")}),
			StateNone, []Action{ActionExpress}, "Send Interest",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Resolve(tc.user, 2)
			assert.Equal(t, tc.state, v.State)
			assert.Equal(t, tc.actions, actions(v))
			assert.Equal(t, tc.label, v.Buttons[0].Label)
			assert.False(t, v.Own)
		})
	}
}

func TestResolveOwnProfile(t *testing.T) {
	v := Resolve(viewer(nil, nil), 1)
	assert.True(t, v.Own)
	assert.Empty(t, v.Buttons)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "received-pending", StateReceivedPending.String())
	assert.Equal(t, "unknown", State(42).String())
}

type staticViewer struct{ u *api.CurrentUser }

func (s staticViewer) User() *api.CurrentUser { return s.u }

// fakeActor records calls and can block until released.
type fakeActor struct {
	mu      sync.Mutex
	calls   []string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeActor) run(name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return f.err
}

func (f *fakeActor) Express(context.Context, int) (api.Edge, error) { return api.Edge{}, f.run("express") }
func (f *fakeActor) Accept(context.Context, int) (api.Edge, error) { return api.Edge{}, f.run("accept") }
func (f *fakeActor) Reject(context.Context, int) (api.Edge, error) { return api.Edge{}, f.run("reject") }
func (f *fakeActor) Remove(context.Context, int) error { return f.run("remove") }
func (f *fakeActor) Resend(context.Context, int) (api.Edge, error) { return api.Edge{}, f.run("resend") }

func (f *fakeActor) GetProfile(_ context.Context, id int) (*api.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.Profile{ID: id}, nil
}

func TestPerformSuccess(t *testing.T) {
	actor := &fakeActor{}
	c := New(actor, staticViewer{viewer(nil, []api.InterestEntry{entry(2, "pending")})}, actor, nil)

	n := c.Perform(context.Background(), 2, ActionAccept)
	assert.True(t, n.OK())
	assert.Contains(t, n.Message, "accepted")
	assert.Equal(t, []string{"accept"}, actor.calls)
}

func TestPerformRefusesActionNotOffered(t *testing.T) {
	actor := &fakeActor{}
	c := New(actor, staticViewer{viewer([]api.InterestEntry{entry(2, "rejected")}, nil)}, actor, nil)

	n := c.Perform(context.Background(), 2, ActionResend)
	assert.Equal(t, LevelError, n.Level)
	assert.Empty(t, actor.calls)
}

func TestPerformFailureNotices(t *testing.T) {
	cases := []struct {
		name          string
		user          *api.CurrentUser
		err           error
		redirectLogin bool
		notFound      bool
	}{
		{"anonymous viewer", nil, interest.ErrAuthRequired, true, false},
		{"expired token", viewer(nil, nil), &api.Error{Status: http.StatusUnauthorized, Code: "unauthorized"}, true, false},
		{"missing profile", viewer(nil, nil), &api.Error{Status: http.StatusNotFound, Code: "not_found"}, false, true},
		{"duplicate", viewer(nil, nil), interest.ErrAlreadyActive, false, false},
		{"remote failure", viewer(nil, nil), &api.Error{Status: http.StatusBadGateway}, false, false},
		{"network failure", viewer(nil, nil), errors.New("dial tcp: connection refused"), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actor := &fakeActor{err: tc.err}
			c := New(actor, staticViewer{tc.user}, actor, nil)

			n := c.Perform(context.Background(), 2, ActionExpress)
			assert.Equal(t, LevelError, n.Level)
			assert.NotEmpty(t, n.Message)
			assert.Equal(t, tc.redirectLogin, n.RedirectLogin)
			assert.Equal(t, tc.notFound, n.NotFound)
		})
	}
}

func TestInFlightDisablesAndSerializes(t *testing.T) {
	actor := &fakeActor{started: make(chan struct{}), release: make(chan struct{})}
	c := New(actor, staticViewer{viewer(nil, []api.InterestEntry{entry(2, "pending")})}, actor, nil)

	done := make(chan Notice)
	go func() { done <- c.Perform(context.Background(), 2, ActionAccept) }()
	<-actor.started

	v := c.View(2)
	require.Len(t, v.Buttons, 2)
	assert.True(t, v.Buttons[0].Disabled)
	assert.True(t, v.Buttons[1].Disabled)

	n := c.Perform(context.Background(), 2, ActionReject)
	assert.Equal(t, LevelInfo, n.Level)

	// other targets are not blocked
	assert.False(t, c.View(3).Buttons[0].Disabled)

	close(actor.release)
	assert.True(t, (<-done).OK())
	assert.Equal(t, []string{"accept"}, actor.calls)
	assert.False(t, c.View(2).Buttons[0].Disabled)
}

func TestOpen(t *testing.T) {
	actor := &fakeActor{}
	c := New(actor, staticViewer{viewer(nil, nil)}, actor, nil)

	p, n := c.Open(context.Background(), 5)
	require.True(t, n.OK())
	assert.Equal(t, 5, p.Profile.ID)
	assert.Equal(t, StateNone, p.View.State)

	actor.err = &api.Error{Status: http.StatusNotFound, Code: "not_found"}
	_, n = c.Open(context.Background(), 6)
	assert.True(t, n.NotFound)
}
