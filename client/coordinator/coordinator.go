package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gitea.kood.tech/saathi/matchmaking/client/api"
	"gitea.kood.tech/saathi/matchmaking/client/interest"
)

// Actor runs interest transitions. *interest.Machine satisfies it.
type Actor interface {
	Express(ctx context.Context, recipientID int) (api.Edge, error)
	Accept(ctx context.Context, senderID int) (api.Edge, error)
	Reject(ctx context.Context, senderID int) (api.Edge, error)
	Remove(ctx context.Context, recipientID int) error
	Resend(ctx context.Context, recipientID int) (api.Edge, error)
}

type Viewer interface {
	User() *api.CurrentUser
}

type ProfileSource interface {
	GetProfile(ctx context.Context, id int) (*api.Profile, error)
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is the user-facing outcome of an action. Failures end up here and
// never as errors.
type Notice struct {
	Level         Level
	Message       string
	RedirectLogin bool
	NotFound      bool
}

func (n Notice) OK() bool { return n.Level == LevelSuccess }

type Coordinator struct {
	actor    Actor
	viewer   Viewer
	profiles ProfileSource
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[int]Action
}

func New(actor Actor, viewer Viewer, profiles ProfileSource, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		actor:    actor,
		viewer:   viewer,
		profiles: profiles,
		logger:   logger,
		inflight: map[int]Action{},
	}
}

// View resolves the relation to targetID; every button is disabled while an
// action on that target is running.
func (c *Coordinator) View(targetID int) View {
	v := Resolve(c.viewer.User(), targetID)
	if c.busy(targetID) {
		for i := range v.Buttons {
			v.Buttons[i].Disabled = true
		}
	}
	return v
}

// Profile is a fetched profile with the actions it offers.
type Profile struct {
	Profile *api.Profile
	View    View
}

// Open loads targetID for display.
func (c *Coordinator) Open(ctx context.Context, targetID int) (Profile, Notice) {
	p, err := c.profiles.GetProfile(ctx, targetID)
	if err != nil {
		return Profile{}, c.failure("open", targetID, err)
	}
	return Profile{Profile: p, View: c.View(targetID)}, Notice{Level: LevelSuccess}
}

// Perform runs action against targetID. A second action on the same target
// is refused until the first finishes.
func (c *Coordinator) Perform(ctx context.Context, targetID int, action Action) Notice {
	c.mu.Lock()
	if running, ok := c.inflight[targetID]; ok {
		c.mu.Unlock()
		return Notice{Level: LevelInfo, Message: fmt.Sprintf("Still working on %s, please wait.", running)}
	}
	u := c.viewer.User()
	if u != nil && !Resolve(u, targetID).Offers(action) {
		c.mu.Unlock()
		return Notice{Level: LevelError, Message: "That action is no longer available."}
	}
	c.inflight[targetID] = action
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, targetID)
		c.mu.Unlock()
	}()

	var err error
	switch action {
	case ActionExpress:
		_, err = c.actor.Express(ctx, targetID)
	case ActionAccept:
		_, err = c.actor.Accept(ctx, targetID)
	case ActionReject:
		_, err = c.actor.Reject(ctx, targetID)
	case ActionRemove:
		err = c.actor.Remove(ctx, targetID)
	case ActionResend:
		_, err = c.actor.Resend(ctx, targetID)
	default:
		return Notice{Level: LevelError, Message: "Unknown action."}
	}
	if err != nil {
		return c.failure(string(action), targetID, err)
	}
	return Notice{Level: LevelSuccess, Message: successMessages[action]}
}

var successMessages = map[Action]string{
	ActionExpress: "Interest sent.",
	ActionAccept:  "Interest accepted. Contact details are now visible to both of you.",
	ActionReject:  "Interest declined.",
	ActionRemove:  "Interest removed.",
	ActionResend:  "Interest sent.",
}

func (c *Coordinator) busy(targetID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[targetID]
	return ok
}

func (c *Coordinator) failure(action string, targetID int, err error) Notice {
	switch {
	case errors.Is(err, interest.ErrAuthRequired), errors.Is(err, api.ErrUnauthorized):
		return Notice{Level: LevelError, Message: "Please sign in to continue.", RedirectLogin: true}
	case errors.Is(err, api.ErrNotFound):
		return Notice{Level: LevelError, Message: "This profile is not available.", NotFound: true}
	case errors.Is(err, interest.ErrSelfInterest):
		return Notice{Level: LevelError, Message: "You cannot send interest to yourself."}
	case errors.Is(err, interest.ErrAlreadyActive):
		return Notice{Level: LevelError, Message: "You have already sent interest to this member."}
	case errors.Is(err, interest.ErrNoPendingInterest):
		return Notice{Level: LevelError, Message: "There is no pending interest from this member."}
	}
	c.logger.Warn("interest action failed",
		zap.String("action", action),
		zap.Int("target", targetID),
		zap.Error(err))
	return Notice{Level: LevelError, Message: "Something went wrong. Please try again."}
}
