package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

type child struct {
	Gender string `json:"gender"`
	Age    int    `json:"age"`
}

type member struct {
	Email            string
	DisplayName      string
	DateOfBirth      string
	Gender           string
	MaritalStatus    string
	DivorceFinalized bool
	Children         []child
	Education        string
	Profession       string
	Caste            string
	Religion         string
	Village          string
	Tehsil           string
	District         string
	State            string
	GuardianName     string
	GuardianContact  string
	Interests        string
	About            string
	Verified         bool
}

// edge indexes into the member slice.
type edge struct {
	From, To int
	Status   string
}

// Fixed accounts for manual testing; both log in with --password.
var testMembers = []member{
	{
		Email:           "user1@test.local",
		DisplayName:     "Asha Verma",
		DateOfBirth:     "1994-03-12",
		Gender:          "female",
		MaritalStatus:   "never_married",
		Children:        []child{},
		Education:       "postgraduate",
		Profession:      "School teacher",
		Caste:           "Jat",
		Religion:        "hindu",
		Village:         "Rampur",
		Tehsil:          "Sadar",
		District:        "Rohtak",
		State:           "Haryana",
		GuardianName:    "Suresh Verma",
		GuardianContact: "+91 98120 00001",
		Interests:       "Reading, gardening, classical music",
		About:           "I teach mathematics and look after my parents' farm on weekends.",
		Verified:        true,
	},
	{
		Email:            "user2@test.local",
		DisplayName:      "Ravi Malik",
		DateOfBirth:      "1990-11-02",
		Gender:           "male",
		MaritalStatus:    "divorced",
		DivorceFinalized: true,
		Children:         []child{{Gender: "female", Age: 6}},
		Education:        "graduate",
		Profession:       "Civil engineer",
		Caste:            "Jat",
		Religion:         "hindu",
		Village:          "Kharkhoda",
		Tehsil:           "Kharkhoda",
		District:         "Sonipat",
		State:            "Haryana",
		GuardianName:     "Kamla Malik",
		GuardianContact:  "+91 98120 00002",
		Interests:        "Cricket, cooking, road trips",
		About:            "Engineer with the state PWD, raising a daughter with my mother's help.",
		Verified:         true,
	},
}

var (
	femaleNames = []string{"Anjali", "Pooja", "Neha", "Sunita", "Kavita", "Priya", "Meera", "Rekha", "Sita", "Geeta", "Lakshmi", "Farah", "Simran", "Nisha"}
	maleNames   = []string{"Rahul", "Amit", "Vikram", "Sunil", "Rajesh", "Manoj", "Arjun", "Deepak", "Imran", "Harpreet", "Sanjay", "Mohan", "Karan", "Ajay"}
	surnames    = []string{"Sharma", "Singh", "Yadav", "Malik", "Chauhan", "Gupta", "Khan", "Gill", "Patel", "Rathore", "Dahiya", "Saini"}
	castes      = []string{"Jat", "Brahmin", "Rajput", "Yadav", "Saini", "Gujjar", "Agarwal", "Kamboj"}
	religions   = []string{"hindu", "hindu", "hindu", "sikh", "muslim", "christian", "jain", "buddhist"}
	educations  = []string{"primary", "secondary", "higher_secondary", "diploma", "graduate", "graduate", "postgraduate", "doctorate"}
	professions = []string{"Farmer", "Teacher", "Nurse", "Shopkeeper", "Software developer", "Accountant", "Police constable", "Tailor", "Doctor", "Electrician"}
	hobbies     = []string{"cooking", "cricket", "reading", "devotional music", "gardening", "embroidery", "kabaddi", "films", "travel", "yoga"}
)

var places = []struct{ Village, Tehsil, District, State string }{
	{"Rampur", "Sadar", "Rohtak", "Haryana"},
	{"Badli", "Badli", "Jhajjar", "Haryana"},
	{"Narela", "Narela", "North Delhi", "Delhi"},
	{"Mehrauli", "Saket", "South Delhi", "Delhi"},
	{"Khanna", "Khanna", "Ludhiana", "Punjab"},
	{"Phagi", "Phagi", "Jaipur", "Rajasthan"},
	{"Shamli", "Shamli", "Shamli", "Uttar Pradesh"},
	{"Dharavi", "Kurla", "Mumbai Suburban", "Maharashtra"},
}

func pick(r *rand.Rand, opts []string) string {
	return opts[r.Intn(len(opts))]
}

// randomMember builds an adult profile whose children and marital status agree.
func randomMember(r *rand.Rand, now time.Time) member {
	m := member{Gender: "female"}
	first := pick(r, femaleNames)
	if r.Intn(2) == 0 {
		m.Gender = "male"
		first = pick(r, maleNames)
	}
	last := pick(r, surnames)
	m.DisplayName = first + " " + last

	age := 21 + r.Intn(25)
	dob := now.AddDate(-age, -r.Intn(12), -r.Intn(28))
	m.DateOfBirth = dob.Format("2006-01-02")

	switch p := r.Float64(); {
	case p < 0.70:
		m.MaritalStatus = "never_married"
	case p < 0.85:
		m.MaritalStatus = "divorced"
		m.DivorceFinalized = r.Intn(4) != 0
	case p < 0.95:
		m.MaritalStatus = "widowed"
	default:
		m.MaritalStatus = "separated"
	}
	m.Children = []child{}
	if m.MaritalStatus != "never_married" {
		for i, n := 0, r.Intn(3); i < n; i++ {
			m.Children = append(m.Children, child{Gender: pick(r, []string{"male", "female"}), Age: 1 + r.Intn(min(age-18, 17))})
		}
	}

	m.Education = pick(r, educations)
	m.Profession = pick(r, professions)
	m.Caste = pick(r, castes)
	m.Religion = pick(r, religions)
	pl := places[r.Intn(len(places))]
	m.Village, m.Tehsil, m.District, m.State = pl.Village, pl.Tehsil, pl.District, pl.State

	m.GuardianName = pick(r, maleNames) + " " + last
	m.GuardianContact = fmt.Sprintf("+91 9%04d %05d", r.Intn(10000), r.Intn(100000))
	m.Interests = strings.Join([]string{pick(r, hobbies), pick(r, hobbies)}, ", ")
	m.About = fmt.Sprintf("%s from %s, %s.", m.Profession, pl.District, pl.State)
	m.Verified = r.Float64() < 0.6
	return m
}

// randomEdges draws directed interests between members 2..n-1, at most one
// per ordered pair, with statuses split by the configured rates. taken holds
// pairs that already exist.
func randomEdges(r *rand.Rand, n int, c cfg, taken map[[2]int]bool) []edge {
	if n < 4 || c.InterestsPP <= 0 {
		return nil
	}
	pool := n - 2
	want := int(float64(pool) * c.InterestsPP)
	if maxPairs := pool * (pool - 1); want > maxPairs {
		want = maxPairs
	}

	out := make([]edge, 0, want)
	for len(out) < want {
		a, b := 2+r.Intn(pool), 2+r.Intn(pool)
		if a == b || taken[[2]int{a, b}] {
			continue
		}
		taken[[2]int{a, b}] = true

		status := "pending"
		switch p := r.Float64(); {
		case p < c.AcceptRate:
			status = "accepted"
		case p < c.AcceptRate+c.RejectRate:
			status = "rejected"
		}
		out = append(out, edge{From: a, To: b, Status: status})
	}
	return out
}

func uniqueEmail(name string, used map[string]struct{}) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	for i := 1; ; i++ {
		email := fmt.Sprintf("%s%d@example.org", local, i)
		if _, ok := used[email]; !ok {
			used[email] = struct{}{}
			return email
		}
	}
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
