package main

import (
	"context"
	"database/sql"
	"net/http"

	"go.uber.org/zap"
)

// Interest endpoints. Every edge is directed (sender → recipient) and the
// reverse edge is never read or written by an action on this one.
//
// TERMINOLOGY
// express: none → pending (sender).
// accept: pending → accepted (recipient).
// reject: pending → rejected (recipient).
// remove: any → none (sender).
// resend: any → none → pending in one transaction (sender).

type interestAction string

const (
	actionExpress interestAction = "express"
	actionAccept  interestAction = "accept"
	actionReject  interestAction = "reject"
	actionRemove  interestAction = "remove"
	actionResend  interestAction = "resend"
)

type edgeOp int

const (
	opNone    edgeOp = iota // leave the row as it is
	opInsert                // create a pending row
	opUpdate                // set status
	opDelete                // delete the row
	opReplace               // delete then create a pending row
	opFail                  // refuse with status/code
)

// transition is what an action does to the edge it addresses.
type transition struct {
	Op     edgeOp
	Status string // resulting status for opInsert/opUpdate/opReplace/opNone
	HTTP   int
	Code   string // error code when Op == opFail
}

// decideTransition is the interest state machine. current is the edge the
// action addresses (viewer→target for express/remove/resend, target→viewer
// for accept/reject), nil when absent.
func decideTransition(action interestAction, current *interestRow) transition {
	switch action {
	case actionExpress:
		if current == nil {
			return transition{Op: opInsert, Status: statusPending, HTTP: http.StatusCreated}
		}
		if current.Status == statusRejected {
			return transition{Op: opFail, HTTP: http.StatusConflict, Code: "invalid_state"}
		}
		return transition{Op: opNone, Status: current.Status, HTTP: http.StatusOK}

	case actionAccept, actionReject:
		want := statusAccepted
		if action == actionReject {
			want = statusRejected
		}
		if current == nil {
			return transition{Op: opFail, HTTP: http.StatusNotFound, Code: "not_found"}
		}
		switch current.Status {
		case statusPending:
			return transition{Op: opUpdate, Status: want, HTTP: http.StatusOK}
		case want:
			return transition{Op: opNone, Status: want, HTTP: http.StatusOK}
		default:
			return transition{Op: opFail, HTTP: http.StatusConflict, Code: "invalid_state"}
		}

	case actionRemove:
		if current == nil {
			return transition{Op: opFail, HTTP: http.StatusNotFound, Code: "not_found"}
		}
		return transition{Op: opDelete, HTTP: http.StatusOK}

	case actionResend:
		if current == nil {
			return transition{Op: opInsert, Status: statusPending, HTTP: http.StatusCreated}
		}
		return transition{Op: opReplace, Status: statusPending, HTTP: http.StatusCreated}
	}
	return transition{Op: opFail, HTTP: http.StatusBadRequest, Code: "invalid_action"}
}

// POST /interests/{id}
func expressInterestHandler(db *sql.DB) http.HandlerFunc {
	return interestActionHandler(db, actionExpress)
}

// POST /interests/{id}/accept
func acceptInterestHandler(db *sql.DB) http.HandlerFunc {
	return interestActionHandler(db, actionAccept)
}

// POST /interests/{id}/reject
func rejectInterestHandler(db *sql.DB) http.HandlerFunc {
	return interestActionHandler(db, actionReject)
}

// DELETE /interests/{id}
func removeInterestHandler(db *sql.DB) http.HandlerFunc {
	return interestActionHandler(db, actionRemove)
}

// POST /interests/{id}/resend
// Replaces whatever edge the viewer had towards {id} with a fresh pending one.
func resendInterestHandler(db *sql.DB) http.HandlerFunc {
	return interestActionHandler(db, actionResend)
}

func interestActionHandler(db *sql.DB, action interestAction) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		// 1) Path parsing
		targetID, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		me := currentUserID(r)
		if targetID == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}

		// 2) Direction: accept/reject address the edge the target sent to me
		sender, recipient := me, targetID
		if action == actionAccept || action == actionReject {
			sender, recipient = targetID, me
		}

		ctx := r.Context()
		exists, err := profileExists(ctx, db, targetID)
		if err != nil {
			logDBError("interest target lookup", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		// 3) Lock, decide, apply
		var (
			decided transition
			result  *interestRow
		)
		err = withTx(ctx, db, func(tx *sql.Tx) error {
			current, err := loadEdgeForUpdate(ctx, tx, sender, recipient)
			if err != nil {
				return err
			}
			decided = decideTransition(action, current)
			result, err = applyTransition(ctx, tx, decided, current, sender, recipient)
			return err
		})
		if err != nil {
			if isUniqueViolation(err) {
				// a concurrent express won the race for this pair
				interestTransitions.WithLabelValues(string(action), "conflict").Inc()
				writeError(w, http.StatusConflict, "duplicate_interest")
				return
			}
			logger.Error("interest transaction failed",
				zap.String("action", string(action)),
				zap.Int("user_id", me),
				zap.Int("target_id", targetID),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		if decided.Op == opFail {
			interestTransitions.WithLabelValues(string(action), decided.Code).Inc()
			writeError(w, decided.HTTP, decided.Code)
			return
		}
		interestTransitions.WithLabelValues(string(action), "ok").Inc()

		if decided.Op == opDelete {
			writeJSON(w, decided.HTTP, map[string]string{"state": "none"})
			return
		}
		writeJSON(w, decided.HTTP, result.edge())
	})
}

func applyTransition(ctx context.Context, tx *sql.Tx, t transition, current *interestRow, sender, recipient int) (*interestRow, error) {
	insert := func() (*interestRow, error) {
		out := interestRow{SenderID: sender, RecipientID: recipient, Status: statusPending}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO interests (sender_id, recipient_id, status)
			VALUES ($1, $2, 'pending')
			RETURNING id, sent_at, updated_at
		`, sender, recipient).Scan(&out.ID, &out.SentAt, &out.UpdatedAt)
		return &out, err
	}

	switch t.Op {
	case opNone, opFail:
		return current, nil
	case opInsert:
		return insert()
	case opUpdate:
		out := *current
		out.Status = t.Status
		err := tx.QueryRowContext(ctx, `
			UPDATE interests SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`, current.ID, t.Status).Scan(&out.UpdatedAt)
		return &out, err
	case opDelete:
		_, err := tx.ExecContext(ctx, `DELETE FROM interests WHERE id = $1`, current.ID)
		return nil, err
	case opReplace:
		if _, err := tx.ExecContext(ctx, `DELETE FROM interests WHERE id = $1`, current.ID); err != nil {
			return nil, err
		}
		return insert()
	}
	return current, nil
}
