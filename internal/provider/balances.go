package provider

import (
	"fmt"

	"github.com/mmynk/justsplit/internal/calculator"
	"github.com/mmynk/justsplit/internal/models"
)

// Balances computes who owes whom. With an empty groupID every expense and
// settlement in the state counts; otherwise only the group's expenses and
// the settlements that reference them.
func (p *Provider) Balances(groupID string) (calculator.Result, error) {
	s := p.store.Snapshot()
	if groupID == "" {
		return calculator.Balances(s.Expenses, s.Settlements)
	}

	g, ok := s.Group(groupID)
	if !ok {
		return calculator.Result{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	included := make(map[string]bool)
	var expenses []models.Expense
	for _, e := range s.Expenses {
		if e.GroupID == groupID || g.ExpenseIDs.Has(e.ID) {
			included[e.ID] = true
			expenses = append(expenses, e)
		}
	}

	var settlements []models.Settlement
	for _, st := range s.Settlements {
		for _, id := range st.ExpenseIDs {
			if included[id] {
				settlements = append(settlements, st)
				break
			}
		}
	}
	return calculator.Balances(expenses, settlements)
}
