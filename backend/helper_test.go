package main

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileSearch(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, code := parseProfileSearch(url.Values{}, 12, 50)
		require.Empty(t, code)
		assert.Equal(t, 1, s.Page)
		assert.Equal(t, 12, s.Limit)
		assert.Zero(t, s.YearFrom)
		assert.Zero(t, s.YearTo)
	})

	t.Run("all filters", func(t *testing.T) {
		q := url.Values{
			"name":            {" Asha "},
			"location":        {"Pune"},
			"profession":      {"teacher"},
			"caste":           {"Maratha"},
			"religion":        {"hindu"},
			"education":       {"graduate"},
			"yearOfBirthFrom": {"1985"},
			"yearOfBirthTo":   {"1995"},
			"page":            {"3"},
			"limit":           {"20"},
		}
		s, code := parseProfileSearch(q, 12, 50)
		require.Empty(t, code)
		assert.Equal(t, "Asha", s.Name)
		assert.Equal(t, "Pune", s.Location)
		assert.Equal(t, 1985, s.YearFrom)
		assert.Equal(t, 1995, s.YearTo)
		assert.Equal(t, 3, s.Page)
		assert.Equal(t, 20, s.Limit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		s, code := parseProfileSearch(url.Values{"limit": {"500"}}, 12, 50)
		require.Empty(t, code)
		assert.Equal(t, 50, s.Limit)
	})

	t.Run("page zero becomes one", func(t *testing.T) {
		s, _ := parseProfileSearch(url.Values{"page": {"0"}}, 12, 50)
		assert.Equal(t, 1, s.Page)
	})

	errorCases := []struct {
		name string
		q    url.Values
		code string
	}{
		{"non-numeric year", url.Values{"yearOfBirthFrom": {"abc"}}, "invalid_year_of_birth_from"},
		{"negative page", url.Values{"page": {"-2"}}, "invalid_page"},
		{"page past the last allowed", url.Values{"page": {"100001"}}, "invalid_page"},
		{"page that overflows the offset", url.Values{"page": {"9223372036854775807"}}, "invalid_page"},
		{"bad limit", url.Values{"limit": {"x"}}, "invalid_limit"},
		{"inverted range", url.Values{"yearOfBirthFrom": {"1995"}, "yearOfBirthTo": {"1985"}}, "invalid_year_range"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, code := parseProfileSearch(tc.q, 12, 50)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestListProfilesRejectsHugePage(t *testing.T) {
	token, err := issueToken(1)
	require.NoError(t, err)

	w := doRequest(t, http.MethodGet, "/profiles?page=9223372036854775807", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Equal(t, "invalid_page", resp["error"])
}

func TestProfileSearchWhere(t *testing.T) {
	t.Run("viewer only", func(t *testing.T) {
		where, args := profileSearch{}.where(7)
		assert.Equal(t, "p.user_id <> $1", where)
		assert.Equal(t, []interface{}{7}, args)
	})

	t.Run("filters are ANDed with numbered args", func(t *testing.T) {
		s := profileSearch{
			Name:     "asha",
			Location: "delhi",
			Religion: "hindu",
			YearFrom: 1985,
			YearTo:   1995,
		}
		where, args := s.where(7)

		parts := strings.Split(where, " AND ")
		require.Len(t, parts, 6)
		assert.Equal(t, "p.display_name ILIKE $2", parts[1])
		assert.Contains(t, parts[2], "p.district ILIKE $3")
		assert.Equal(t, "p.religion = $4", parts[3])
		assert.Equal(t, "EXTRACT(YEAR FROM p.date_of_birth) >= $5", parts[4])
		assert.Equal(t, "EXTRACT(YEAR FROM p.date_of_birth) <= $6", parts[5])
		assert.Equal(t, []interface{}{7, "%asha%", "%delhi%", "hindu", 1985, 1995}, args)
	})
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestPaginationFor(t *testing.T) {
	cases := []struct {
		name             string
		page, limit, tot int
		pages            int
		hasNext, hasPrev bool
	}{
		{"empty", 1, 12, 0, 0, false, false},
		{"single page", 1, 12, 5, 1, false, false},
		{"first of three", 1, 12, 30, 3, true, false},
		{"middle", 2, 12, 30, 3, true, true},
		{"last", 3, 12, 30, 3, false, true},
		{"exact fit", 2, 10, 20, 2, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := paginationFor(tc.page, tc.limit, tc.tot)
			assert.Equal(t, tc.page, p.CurrentPage)
			assert.Equal(t, tc.pages, p.TotalPages)
			assert.Equal(t, tc.tot, p.TotalCount)
			assert.Equal(t, tc.hasNext, p.HasNextPage)
			assert.Equal(t, tc.hasPrev, p.HasPrevPage)
		})
	}
}

func TestApplyDisclosure(t *testing.T) {
	guardian := func() *Guardian { return &Guardian{Name: "G", Contact: "123"} }
	own := &Profile{ID: 1, Guardian: guardian()}
	matched := &Profile{ID: 2, Guardian: guardian()}
	stranger := &Profile{ID: 3, Guardian: guardian()}

	applyDisclosure(1, []*Profile{own, matched, stranger, nil}, map[int]bool{2: true})

	assert.NotNil(t, own.Guardian)
	assert.True(t, own.ContactVisible)
	assert.NotNil(t, matched.Guardian)
	assert.True(t, matched.ContactVisible)
	assert.Nil(t, stranger.Guardian)
	assert.False(t, stranger.ContactVisible)
}

func TestListProfiles(t *testing.T) {
	requireDB(t)

	viewer := createTestUser(t, "lister")
	other := createTestUser(t, "listed")
	_, err := db.Exec(`UPDATE profiles SET district = 'New Delhi', profession = 'Engineer' WHERE user_id = $1`, other.ID)
	require.NoError(t, err)

	var resp struct {
		Profiles   []Profile  `json:"profiles"`
		Pagination Pagination `json:"pagination"`
	}
	w := doRequest(t, "GET", "/profiles?location=delhi&profession=engineer&limit=50", viewer.Token, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	decodeBody(t, w, &resp)

	found := false
	for _, p := range resp.Profiles {
		assert.NotEqual(t, viewer.ID, p.ID, "viewer must not list themselves")
		assert.Nil(t, p.Guardian)
		if p.ID == other.ID {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, 1, resp.Pagination.CurrentPage)
	assert.GreaterOrEqual(t, resp.Pagination.TotalCount, 1)

	w = doRequest(t, "GET", "/profiles/999999999", viewer.Token, nil)
	assert.Equal(t, 404, w.Code)
}
