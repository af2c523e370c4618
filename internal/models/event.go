package models

import "github.com/mmynk/justsplit/internal/idset"

// Event represents a trip or occasion that collects expenses.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// StartDate and EndDate are ISO-8601 dates. EndDate is optional.
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`

	// Members are the user IDs taking part.
	Members []string `json:"members"`

	// ExpenseIDs lists expenses whose EventID points at this event.
	ExpenseIDs idset.Set `json:"expenseIds"`

	PreferredCurrency string `json:"preferredCurrency,omitempty"`
	GroupID           string `json:"groupId,omitempty"`
}
