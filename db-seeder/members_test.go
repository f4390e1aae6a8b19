package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomMemberIsConsistent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		m := randomMember(r, now)
		dob, err := time.Parse("2006-01-02", m.DateOfBirth)
		require.NoError(t, err)
		assert.True(t, dob.Before(now.AddDate(-18, 0, 0)), "adult: %s", m.DateOfBirth)

		assert.Contains(t, []string{"male", "female"}, m.Gender)
		assert.Contains(t, religions, m.Religion)
		assert.Contains(t, educations, m.Education)
		assert.NotNil(t, m.Children)
		if m.MaritalStatus == "never_married" {
			assert.Empty(t, m.Children)
			assert.False(t, m.DivorceFinalized)
		}
		if m.MaritalStatus != "divorced" {
			assert.False(t, m.DivorceFinalized)
		}
		for _, c := range m.Children {
			assert.Positive(t, c.Age)
		}
	}
}

func TestRandomMemberDeterministic(t *testing.T) {
	now := time.Now()
	a := randomMember(rand.New(rand.NewSource(1)), now)
	b := randomMember(rand.New(rand.NewSource(1)), now)
	assert.Equal(t, a, b)
}

func TestRandomEdges(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	c := cfg{AcceptRate: 0.3, RejectRate: 0.3, InterestsPP: 3}
	taken := map[[2]int]bool{{0, 1}: true}

	edges := randomEdges(r, 40, c, taken)
	require.Len(t, edges, 38*3)

	seen := map[[2]int]bool{}
	statuses := map[string]int{}
	for _, e := range edges {
		assert.NotEqual(t, e.From, e.To)
		assert.GreaterOrEqual(t, e.From, 2, "test members are left alone")
		assert.GreaterOrEqual(t, e.To, 2)
		k := [2]int{e.From, e.To}
		assert.False(t, seen[k], "one edge per ordered pair")
		seen[k] = true
		statuses[e.Status]++
	}
	assert.Positive(t, statuses["pending"])
	assert.Positive(t, statuses["accepted"])
	assert.Positive(t, statuses["rejected"])
}

func TestRandomEdgesCapped(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	edges := randomEdges(r, 5, cfg{InterestsPP: 10}, map[[2]int]bool{})
	assert.Len(t, edges, 6, "three members have six ordered pairs")
	assert.Empty(t, randomEdges(r, 3, cfg{InterestsPP: 1}, map[[2]int]bool{}))
}

func TestCfgCheck(t *testing.T) {
	ok := cfg{DSN: "postgres://x", Count: 10, AcceptRate: 0.3, RejectRate: 0.2, InterestsPP: 1}
	assert.NoError(t, ok.check())

	bad := ok
	bad.DSN = ""
	assert.Error(t, bad.check())

	bad = ok
	bad.AcceptRate, bad.RejectRate = 0.7, 0.5
	assert.Error(t, bad.check())

	bad = ok
	bad.Count = 1
	assert.Error(t, bad.check())
}

func TestUniqueEmail(t *testing.T) {
	used := map[string]struct{}{}
	assert.Equal(t, "neha.singh1@example.org", uniqueEmail("Neha Singh", used))
	assert.Equal(t, "neha.singh2@example.org", uniqueEmail("Neha Singh", used))
}
