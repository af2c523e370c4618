package models

import "github.com/mmynk/justsplit/internal/idset"

// Group represents a recurring circle of users. Groups own references to
// events and expenses so their history can be listed together.
type Group struct {
	// ID is the unique identifier for the group.
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Ski trip").
	Name string `json:"name"`

	Description string `json:"description,omitempty"`

	// Members, EventIDs and ExpenseIDs are sets; adding an identifier twice
	// has no effect.
	Members    idset.Set `json:"members"`
	EventIDs   idset.Set `json:"eventIds"`
	ExpenseIDs idset.Set `json:"expenseIds"`

	// CreatedAt and UpdatedAt are ISO-8601 timestamps.
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}
