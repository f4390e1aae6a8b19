package api

import "time"

// Interest statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type Location struct {
	Village  string `json:"village"`
	Tehsil   string `json:"tehsil"`
	District string `json:"district"`
	State    string `json:"state"`
}

type Guardian struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type Child struct {
	Gender string `json:"gender"`
	Age    int    `json:"age"`
}

// Profile is a member as returned by the store. Guardian is nil unless the
// viewer owns the profile or shares an accepted interest with it.
type Profile struct {
	ID               int       `json:"id"`
	DisplayName      string    `json:"display_name"`
	DateOfBirth      string    `json:"date_of_birth,omitempty"`
	Gender           string    `json:"gender,omitempty"`
	MaritalStatus    string    `json:"marital_status,omitempty"`
	DivorceFinalized bool      `json:"divorce_finalized"`
	Children         []Child   `json:"children"`
	ChildrenCount    int       `json:"children_count"`
	Education        string    `json:"education,omitempty"`
	Profession       string    `json:"profession,omitempty"`
	Caste            string    `json:"caste,omitempty"`
	Religion         string    `json:"religion,omitempty"`
	Location         Location  `json:"location"`
	Guardian         *Guardian `json:"guardian,omitempty"`
	ContactVisible   bool      `json:"contact_visible"`
	Interests        string    `json:"interests,omitempty"`
	About            string    `json:"about,omitempty"`
	ProfilePhoto     string    `json:"profile_photo,omitempty"`
	IsVerified       bool      `json:"is_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// InterestEntry is one element of a user's expressed or received interests.
type InterestEntry struct {
	User   Profile   `json:"user"`
	SentAt time.Time `json:"sentAt"`
	Status string    `json:"status"`
}

// CurrentUser is the authenticated member plus both sides of their interests.
type CurrentUser struct {
	Profile
	ExpressedInterests []InterestEntry `json:"expressed_interests"`
	ReceivedInterests  []InterestEntry `json:"received_interests"`
}

// Edge is the resulting interest returned by a mutation.
type Edge struct {
	SenderID    int       `json:"sender_id"`
	RecipientID int       `json:"recipient_id"`
	Status      string    `json:"status"`
	SentAt      time.Time `json:"sentAt"`
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// ProfilePage is one page of GET /profiles.
type ProfilePage struct {
	Profiles   []Profile  `json:"profiles"`
	Pagination Pagination `json:"pagination"`
}

type AuthResult struct {
	Token string `json:"token"`
	ID    int    `json:"id"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
}

// ProfileUpdate replaces every editable field of the caller's profile.
type ProfileUpdate struct {
	DisplayName      string   `json:"display_name"`
	DateOfBirth      string   `json:"date_of_birth"`
	Gender           string   `json:"gender"`
	MaritalStatus    string   `json:"marital_status,omitempty"`
	DivorceFinalized bool     `json:"divorce_finalized"`
	Children         []Child  `json:"children"`
	Education        string   `json:"education,omitempty"`
	Profession       string   `json:"profession"`
	Caste            string   `json:"caste"`
	Religion         string   `json:"religion,omitempty"`
	Location         Location `json:"location"`
	Guardian         Guardian `json:"guardian"`
	Interests        string   `json:"interests"`
	About            string   `json:"about"`
}

// UpdateFrom copies the editable fields of p.
func UpdateFrom(p Profile) ProfileUpdate {
	u := ProfileUpdate{
		DisplayName:      p.DisplayName,
		DateOfBirth:      p.DateOfBirth,
		Gender:           p.Gender,
		MaritalStatus:    p.MaritalStatus,
		DivorceFinalized: p.DivorceFinalized,
		Children:         p.Children,
		Education:        p.Education,
		Profession:       p.Profession,
		Caste:            p.Caste,
		Religion:         p.Religion,
		Location:         p.Location,
		Interests:        p.Interests,
		About:            p.About,
	}
	if p.Guardian != nil {
		u.Guardian = *p.Guardian
	}
	return u
}
