package models

// Expense represents an amount paid by one user on behalf of participants.
type Expense struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`

	// Date is when the expense happened (ISO-8601).
	Date string `json:"date"`

	// PaidBy is the user ID of the payer.
	PaidBy string `json:"paidBy"`

	// Participants are the user IDs sharing the expense. The payer is
	// usually, but not necessarily, one of them.
	Participants []string `json:"participants"`

	// Settled flips to true when a settlement referencing the expense is
	// recorded. It never reverts on its own.
	Settled bool `json:"settled"`

	// EventID and GroupID are optional owners. Empty means none.
	EventID string `json:"eventId,omitempty"`
	GroupID string `json:"groupId,omitempty"`

	Notes    string `json:"notes,omitempty"`
	Category string `json:"category,omitempty"`
}

// HasParticipant reports whether userID shares the expense.
func (e Expense) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
