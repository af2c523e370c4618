package calculator

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmynk/justsplit/internal/models"
)

// MemberBalance represents the balance information for one user.
type MemberBalance struct {
	UserID     string  `json:"userId"`
	NetBalance float64 `json:"netBalance"` // Positive = owed money, Negative = owes money
	TotalPaid  float64 `json:"totalPaid"`
	TotalOwed  float64 `json:"totalOwed"`
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string  `json:"from"` // Person who owes
	To     string  `json:"to"`   // Person who is owed
	Amount float64 `json:"amount"`
}

// Result holds the balances of every user involved and the simplified
// payments that would settle them.
type Result struct {
	Members []MemberBalance `json:"members"`
	Debts   []DebtEdge      `json:"debts"`
}

// Balances computes balances across expenses and settlements.
//
// Algorithm:
//   - For each expense: the payer contributed +amount, each participant owes
//     an equal share
//   - For each settlement: the payer's balance improves, the receiver's
//     balance decreases
//   - net_balance = total_paid - total_owed
//   - Debts are simplified by greedily matching the largest debtor with the
//     largest creditor
//
// Settled expenses still count: the settlement that cleared them carries the
// matching payment.
func Balances(expenses []models.Expense, settlements []models.Settlement) (Result, error) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		b, ok := balances[id]
		if !ok {
			b = &MemberBalance{UserID: id}
			balances[id] = b
		}
		return b
	}

	for _, e := range expenses {
		// Skip expenses without payer (can't calculate balances)
		if e.PaidBy == "" || len(e.Participants) == 0 {
			continue
		}
		shares, err := EqualShares(e.Amount, e.Participants)
		if err != nil {
			return Result{}, fmt.Errorf("failed to split expense %s: %w", e.ID, err)
		}
		get(e.PaidBy).TotalPaid += e.Amount
		for participant, share := range shares {
			get(participant).TotalOwed += share
		}
	}

	for _, s := range settlements {
		get(s.FromUser).TotalPaid += s.Amount
		get(s.ToUser).TotalOwed += s.Amount
	}

	members := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = round(b.TotalPaid - b.TotalOwed)
		members = append(members, *b)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })

	return Result{Members: members, Debts: simplify(members)}, nil
}

// simplify matches debtors with creditors to minimise transactions.
func simplify(members []MemberBalance) []DebtEdge {
	var creditors, debtors []MemberBalance
	for _, m := range members {
		if m.NetBalance > 0 {
			creditors = append(creditors, m)
		} else if m.NetBalance < 0 {
			m.NetBalance = -m.NetBalance
			debtors = append(debtors, m)
		}
	}
	byAmount := func(list []MemberBalance) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].NetBalance > list[j].NetBalance })
	}
	byAmount(creditors)
	byAmount(debtors)

	debts := []DebtEdge{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].NetBalance
		if creditors[j].NetBalance < amount {
			amount = creditors[j].NetBalance
		}
		if amount > 0.01 { // Avoid floating point noise
			debts = append(debts, DebtEdge{From: debtors[i].UserID, To: creditors[j].UserID, Amount: round(amount)})
		}

		debtors[i].NetBalance -= amount
		creditors[j].NetBalance -= amount
		if debtors[i].NetBalance < 0.01 {
			i++
		}
		if creditors[j].NetBalance < 0.01 {
			j++
		}
	}
	return debts
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
