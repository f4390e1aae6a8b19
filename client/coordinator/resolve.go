// Package coordinator maps the viewer's relation to a profile onto the
// interest actions it offers, and runs those actions.
package coordinator

import (
	"gitea.kood.tech/saathi/matchmaking/client/api"
	"gitea.kood.tech/saathi/matchmaking/client/interest"
)

// State is the viewer's relation to one profile.
type State int

const (
	StateNone State = iota
	StateSentPending
	StateSentAccepted
	StateSentRejected
	StateReceivedPending
	StateReceivedAccepted
	StateReceivedRejected
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSentPending:
		return "sent-pending"
	case StateSentAccepted:
		return "sent-accepted"
	case StateSentRejected:
		return "sent-rejected"
	case StateReceivedPending:
		return "received-pending"
	case StateReceivedAccepted:
		return "received-accepted"
	case StateReceivedRejected:
		return "received-rejected"
	}
	return "unknown"
}

type Action string

const (
	ActionExpress Action = "express"
	ActionRemove  Action = "remove"
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionResend  Action = "resend"
)

// Button is one offered action.
type Button struct {
	Action   Action
	Label    string
	Disabled bool
}

// View is what the viewer can do on a profile. Own is set for the viewer's
// own profile, which offers nothing.
type View struct {
	State   State
	Own     bool
	Buttons []Button
}

// Offers reports whether a is one of the enabled buttons.
func (v View) Offers(a Action) bool {
	for _, b := range v.Buttons {
		if b.Action == a && !b.Disabled {
			return true
		}
	}
	return false
}

// Resolve computes the relation between u and targetID. A sent edge wins
// over a received one. An anonymous viewer gets the none state.
func Resolve(u *api.CurrentUser, targetID int) View {
	if u != nil && u.ID == targetID {
		return View{Own: true}
	}
	if sent := interest.SentTo(u, targetID); sent != nil {
		st := StateSentPending
		switch sent.Status {
		case api.StatusAccepted:
			st = StateSentAccepted
		case api.StatusRejected:
			// the sender can only remove a declined interest
			st = StateSentRejected
		}
		return View{State: st, Buttons: []Button{{Action: ActionRemove, Label: "Remove"}}}
	}
	if recv := interest.ReceivedFrom(u, targetID); recv != nil {
		switch recv.Status {
		case api.StatusPending:
			return View{State: StateReceivedPending, Buttons: []Button{
				{Action: ActionAccept, Label: "Accept"},
				{Action: ActionReject, Label: "Reject"},
			}}
		case api.StatusAccepted:
			return View{State: StateReceivedAccepted, Buttons: []Button{{Action: ActionResend, Label: "Send Interest"}}}
		case api.StatusRejected:
			return View{State: StateReceivedRejected, Buttons: []Button{{Action: ActionResend, Label: "Send Interest"}}}
		}
	}
	return View{State: StateNone, Buttons: []Button{{Action: ActionExpress, Label: "Send Interest"}}}
}
