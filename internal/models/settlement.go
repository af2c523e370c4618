package models

// Settlement represents a payment between two users that clears a list of
// expenses.
type Settlement struct {
	// ID is the unique identifier for the settlement.
	ID string `json:"id"`

	// FromUser is the user who paid (debtor settling up).
	FromUser string `json:"fromUser"`

	// ToUser is the user who received payment (creditor being paid).
	ToUser string `json:"toUser"`

	// Amount and Currency describe the payment.
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	// ExpenseIDs are the expenses this payment settles. Every one of them is
	// marked settled when the settlement is recorded.
	ExpenseIDs []string `json:"expenseIds"`

	// Date is when the payment happened (ISO-8601).
	Date string `json:"date"`
}
