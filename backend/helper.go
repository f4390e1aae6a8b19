package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// profileColumns is the SELECT list read by scanProfile, in order.
const profileColumns = `
	p.user_id, p.display_name,
	COALESCE(to_char(p.date_of_birth, 'YYYY-MM-DD'), ''),
	COALESCE(p.gender, ''), COALESCE(p.marital_status, ''), p.divorce_finalized, p.children,
	COALESCE(p.education, ''), COALESCE(p.profession, ''), COALESCE(p.caste, ''), COALESCE(p.religion, ''),
	COALESCE(p.village, ''), COALESCE(p.tehsil, ''), COALESCE(p.district, ''), COALESCE(p.state, ''),
	COALESCE(p.guardian_name, ''), COALESCE(p.guardian_contact, ''),
	COALESCE(p.interests, ''), COALESCE(p.about, ''), COALESCE(p.profile_photo, ''),
	p.is_verified, p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProfile reads one profileColumns row. The guardian block is always
// filled in; callers decide disclosure with applyDisclosure.
func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p        Profile
		children []byte
		guardian Guardian
	)
	err := row.Scan(
		&p.ID, &p.DisplayName, &p.DateOfBirth,
		&p.Gender, &p.MaritalStatus, &p.DivorceFinalized, &children,
		&p.Education, &p.Profession, &p.Caste, &p.Religion,
		&p.Location.Village, &p.Location.Tehsil, &p.Location.District, &p.Location.State,
		&guardian.Name, &guardian.Contact,
		&p.Interests, &p.About, &p.ProfilePhoto,
		&p.IsVerified, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Children = []Child{}
	if len(children) > 0 {
		if err := json.Unmarshal(children, &p.Children); err != nil {
			return nil, fmt.Errorf("decode children of user %d: %w", p.ID, err)
		}
	}
	p.ChildrenCount = len(p.Children)
	if guardian.Name != "" || guardian.Contact != "" {
		p.Guardian = &guardian
	}
	return &p, nil
}

// acceptedPeers returns the subset of peers that share an accepted interest
// with viewer, in either direction.
func acceptedPeers(ctx context.Context, q queryer, viewer int, peers []int) (map[int]bool, error) {
	out := make(map[int]bool)
	if len(peers) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END
		FROM interests
		WHERE status = 'accepted'
		  AND ((sender_id = $1 AND recipient_id = ANY($2))
		    OR (recipient_id = $1 AND sender_id = ANY($2)))
	`, viewer, pq.Array(peers))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// applyDisclosure hides the guardian block unless the profile is the viewer's
// own or the pair has an accepted interest.
func applyDisclosure(viewer int, profiles []*Profile, accepted map[int]bool) {
	for _, p := range profiles {
		if p == nil {
			continue
		}
		visible := p.ID == viewer || accepted[p.ID]
		p.ContactVisible = visible
		if !visible {
			p.Guardian = nil
		}
	}
}

// maxPage keeps (page-1)*limit well inside the OFFSET range.
const maxPage = 100_000

// profileSearch is the parsed query of GET /profiles.
type profileSearch struct {
	Name       string
	Location   string
	Profession string
	Caste      string
	Religion   string
	Education  string
	YearFrom   int
	YearTo     int
	Page       int
	Limit      int
}

func parseProfileSearch(q url.Values, defaultLimit, maxLimit int) (profileSearch, string) {
	s := profileSearch{
		Name:       strings.TrimSpace(q.Get("name")),
		Location:   strings.TrimSpace(q.Get("location")),
		Profession: strings.TrimSpace(q.Get("profession")),
		Caste:      strings.TrimSpace(q.Get("caste")),
		Religion:   strings.TrimSpace(q.Get("religion")),
		Education:  strings.TrimSpace(q.Get("education")),
		Page:       1,
		Limit:      defaultLimit,
	}

	ints := []struct {
		key  string
		dest *int
		code string
	}{
		{"yearOfBirthFrom", &s.YearFrom, "invalid_year_of_birth_from"},
		{"yearOfBirthTo", &s.YearTo, "invalid_year_of_birth_to"},
		{"page", &s.Page, "invalid_page"},
		{"limit", &s.Limit, "invalid_limit"},
	}
	for _, f := range ints {
		raw := strings.TrimSpace(q.Get(f.key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return s, f.code
		}
		*f.dest = v
	}

	if s.Page < 1 {
		s.Page = 1
	}
	if s.Page > maxPage {
		return s, "invalid_page"
	}
	if s.Limit < 1 {
		s.Limit = defaultLimit
	}
	if s.Limit > maxLimit {
		s.Limit = maxLimit
	}
	if s.YearFrom > 0 && s.YearTo > 0 && s.YearFrom > s.YearTo {
		return s, "invalid_year_range"
	}
	return s, ""
}

// where builds the shared WHERE clause for the listing and its count.
// The viewer never appears in their own results.
func (s profileSearch) where(viewer int) (string, []interface{}) {
	clauses := []string{"p.user_id <> $1"}
	args := []interface{}{viewer}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if s.Name != "" {
		clauses = append(clauses, "p.display_name ILIKE "+arg(likePattern(s.Name)))
	}
	if s.Profession != "" {
		clauses = append(clauses, "p.profession ILIKE "+arg(likePattern(s.Profession)))
	}
	if s.Location != "" {
		n := arg(likePattern(s.Location))
		clauses = append(clauses, fmt.Sprintf(
			"(p.village ILIKE %[1]s OR p.tehsil ILIKE %[1]s OR p.district ILIKE %[1]s OR p.state ILIKE %[1]s)", n))
	}
	if s.Caste != "" {
		clauses = append(clauses, "LOWER(p.caste) = LOWER("+arg(s.Caste)+")")
	}
	if s.Religion != "" {
		clauses = append(clauses, "p.religion = "+arg(s.Religion))
	}
	if s.Education != "" {
		clauses = append(clauses, "p.education = "+arg(s.Education))
	}
	if s.YearFrom > 0 {
		clauses = append(clauses, "EXTRACT(YEAR FROM p.date_of_birth) >= "+arg(s.YearFrom))
	}
	if s.YearTo > 0 {
		clauses = append(clauses, "EXTRACT(YEAR FROM p.date_of_birth) <= "+arg(s.YearTo))
	}
	return strings.Join(clauses, " AND "), args
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func paginationFor(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
