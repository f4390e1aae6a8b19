package main

import "time"

// Interest statuses stored in interests.status
const (
	statusPending  = "pending"
	statusAccepted = "accepted"
	statusRejected = "rejected"
)

// Location is where a member lives, from village up to state.
type Location struct {
	Village  string `json:"village"`
	Tehsil   string `json:"tehsil"`
	District string `json:"district"`
	State    string `json:"state"`
}

// Guardian holds the contact details that are only disclosed after an accepted interest.
type Guardian struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// Child is one entry of a member's children list.
type Child struct {
	Gender string `json:"gender" validate:"required,oneof=male female"`
	Age    int    `json:"age" validate:"min=0,max=40"`
}

// Profile is the member record returned to clients.
// ChildrenCount is always len(Children); the list is the stored value.
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

// InterestEntry is one element of expressed_interests / received_interests.
type InterestEntry struct {
	User   *Profile  `json:"user"`
	SentAt time.Time `json:"sentAt"`
	Status string    `json:"status"`
}

// Edge is the wire form of a single interest returned by the mutation endpoints.
type Edge struct {
	SenderID    int       `json:"sender_id"`
	RecipientID int       `json:"recipient_id"`
	Status      string    `json:"status"`
	SentAt      time.Time `json:"sentAt"`
}

// Pagination mirrors the store's paging metadata.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}
