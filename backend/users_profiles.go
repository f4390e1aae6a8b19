package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// meResponse is the current user with both interest collections.
type meResponse struct {
	*Profile
	ExpressedInterests []InterestEntry `json:"expressed_interests"`
	ReceivedInterests  []InterestEntry `json:"received_interests"`
}

type interestRef struct {
	PeerID int
	SentAt time.Time
	Status string
}

// GET /me
func meHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := currentUserID(r)

		me, err := scanProfile(db.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM profiles p WHERE p.user_id = $1`, userID))
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		if err != nil {
			logDBError("me", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		applyDisclosure(userID, []*Profile{me}, nil)

		// 1) Both directions concurrently
		var sent, received []interestRef
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			sent, err = loadInterestRefs(gctx, db, userID, true)
			return err
		})
		g.Go(func() (err error) {
			received, err = loadInterestRefs(gctx, db, userID, false)
			return err
		})
		if err := g.Wait(); err != nil {
			logDBError("me interests", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		// 2) Peer profiles in one batch
		ids := make([]int, 0, len(sent)+len(received))
		accepted := make(map[int]bool)
		for _, refs := range [][]interestRef{sent, received} {
			for _, ref := range refs {
				ids = append(ids, ref.PeerID)
				if ref.Status == statusAccepted {
					accepted[ref.PeerID] = true
				}
			}
		}
		peers, err := loadProfiles(ctx, db, ids)
		if err != nil {
			logDBError("me peers", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		all := make([]*Profile, 0, len(peers))
		for _, p := range peers {
			all = append(all, p)
		}
		applyDisclosure(userID, all, accepted)

		writeJSON(w, http.StatusOK, meResponse{
			Profile:            me,
			ExpressedInterests: toEntries(sent, peers),
			ReceivedInterests:  toEntries(received, peers),
		})
	})
}

// loadInterestRefs lists edges the user sent (sent=true) or received, newest first.
func loadInterestRefs(ctx context.Context, db *sql.DB, userID int, sent bool) ([]interestRef, error) {
	query := `
		SELECT recipient_id, sent_at, status FROM interests
		WHERE sender_id = $1 ORDER BY sent_at DESC, id DESC`
	if !sent {
		query = `
		SELECT sender_id, sent_at, status FROM interests
		WHERE recipient_id = $1 ORDER BY sent_at DESC, id DESC`
	}
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []interestRef
	for rows.Next() {
		var ref interestRef
		if err := rows.Scan(&ref.PeerID, &ref.SentAt, &ref.Status); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func toEntries(refs []interestRef, peers map[int]*Profile) []InterestEntry {
	out := make([]InterestEntry, 0, len(refs))
	for _, ref := range refs {
		peer, ok := peers[ref.PeerID]
		if !ok {
			continue
		}
		out = append(out, InterestEntry{User: peer, SentAt: ref.SentAt, Status: ref.Status})
	}
	return out
}

// PUT /me/profile
func updateProfileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		var req profileUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		req.normalize()
		if code := req.check(); code != "" {
			writeError(w, http.StatusBadRequest, code)
			return
		}
		children, err := json.Marshal(req.Children)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_children")
			return
		}

		ctx := r.Context()
		userID := currentUserID(r)
		res, err := db.ExecContext(ctx, `
			UPDATE profiles SET
				display_name = $2, date_of_birth = $3, gender = $4,
				marital_status = NULLIF($5, ''), divorce_finalized = $6, children = $7,
				education = NULLIF($8, ''), profession = $9, caste = $10, religion = NULLIF($11, ''),
				village = $12, tehsil = $13, district = $14, state = $15,
				guardian_name = $16, guardian_contact = $17,
				interests = $18, about = $19, updated_at = NOW()
			WHERE user_id = $1
		`,
			userID, req.DisplayName, req.DateOfBirth, req.Gender,
			req.MaritalStatus, req.DivorceFinalized, string(children),
			req.Education, req.Profession, req.Caste, req.Religion,
			req.Location.Village, req.Location.Tehsil, req.Location.District, req.Location.State,
			req.Guardian.Name, req.Guardian.Contact,
			req.Interests, req.About,
		)
		if err != nil {
			logDBError("profile update", err)
			writeError(w, http.StatusInternalServerError, "profile_save_error")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}

		p, err := scanProfile(db.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM profiles p WHERE p.user_id = $1`, userID))
		if err != nil {
			logDBError("profile reload", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		applyDisclosure(userID, []*Profile{p}, nil)
		logger.Info("profile updated", zap.Int("user_id", userID))
		writeJSON(w, http.StatusOK, p)
	})
}

// GET /profiles
// Filters are ANDed; results exclude the viewer and are newest first.
func listProfilesHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		viewer := currentUserID(r)

		search, code := parseProfileSearch(r.URL.Query(), cfg.DefaultPageSize, cfg.MaxPageSize)
		if code != "" {
			writeError(w, http.StatusBadRequest, code)
			return
		}
		where, args := search.where(viewer)

		var total int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM profiles p WHERE `+where, args...,
		).Scan(&total); err != nil {
			logDBError("profile count", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		offset := (search.Page - 1) * search.Limit
		listArgs := append(append([]interface{}{}, args...), search.Limit, offset)
		rows, err := db.QueryContext(ctx,
			`SELECT `+profileColumns+` FROM profiles p WHERE `+where+
				` ORDER BY p.created_at DESC, p.user_id DESC`+
				` LIMIT $`+strconv.Itoa(len(args)+1)+` OFFSET $`+strconv.Itoa(len(args)+2),
			listArgs...,
		)
		if err != nil {
			logDBError("profile list", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		defer rows.Close()

		profiles := make([]*Profile, 0, search.Limit)
		ids := make([]int, 0, search.Limit)
		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				logDBError("profile scan", err)
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			profiles = append(profiles, p)
			ids = append(ids, p.ID)
		}
		if err := rows.Err(); err != nil {
			logDBError("profile rows", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		accepted, err := acceptedPeers(ctx, db, viewer, ids)
		if err != nil {
			logDBError("disclosure lookup", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		applyDisclosure(viewer, profiles, accepted)

		searchDuration.Observe(time.Since(start).Seconds())
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"profiles":   profiles,
			"pagination": paginationFor(search.Page, search.Limit, total),
		})
	})
}

// GET /profiles/{id}
func getProfileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		targetID, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		ctx := r.Context()
		viewer := currentUserID(r)

		peers, err := loadProfiles(ctx, db, []int{targetID})
		if err != nil {
			logDBError("profile get", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		p, found := peers[targetID]
		if !found {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		accepted, err := acceptedPeers(ctx, db, viewer, []int{targetID})
		if err != nil {
			logDBError("disclosure lookup", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		applyDisclosure(viewer, []*Profile{p}, accepted)
		writeJSON(w, http.StatusOK, p)
	})
}
