package models

import "github.com/mmynk/justsplit/internal/idset"

// User represents a person known to the application.
type User struct {
	// ID is the document identifier of the user.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email, Phone and Avatar are optional profile fields.
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Avatar string `json:"avatar,omitempty"`

	// PreferredCurrency is an ISO 4217 code used as the default for new
	// expenses created by this user.
	PreferredCurrency string `json:"preferredCurrency,omitempty"`

	// Balance is the user's running balance. Positive means they are owed.
	Balance float64 `json:"balance"`

	// Friends are users who accepted a friend request from, or sent one to,
	// this user. The relation is symmetric.
	Friends idset.Set `json:"friends"`

	// FriendRequestsSent holds users this user asked to be friends with.
	FriendRequestsSent idset.Set `json:"friendRequestsSent"`

	// FriendRequestsReceived holds users waiting for this user's answer.
	FriendRequestsReceived idset.Set `json:"friendRequestsReceived"`
}

// UserPatch is a partial update of a user profile. Nil fields are left
// untouched.
type UserPatch struct {
	Name              *string  `json:"name,omitempty"`
	Email             *string  `json:"email,omitempty"`
	Phone             *string  `json:"phone,omitempty"`
	Avatar            *string  `json:"avatar,omitempty"`
	PreferredCurrency *string  `json:"preferredCurrency,omitempty"`
	Balance           *float64 `json:"balance,omitempty"`
}

// Apply returns a copy of u with the non-nil fields of p merged in.
func (u User) Apply(p UserPatch) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.PreferredCurrency != nil {
		u.PreferredCurrency = *p.PreferredCurrency
	}
	if p.Balance != nil {
		u.Balance = *p.Balance
	}
	return u
}

// IsEmpty reports whether the patch would change nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil &&
		p.Avatar == nil && p.PreferredCurrency == nil && p.Balance == nil
}
