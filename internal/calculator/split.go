// Package calculator derives balances from expenses and settlements.
package calculator

import (
	"errors"
	"math"
)

// ErrNoParticipants is returned when an amount has nobody to be split
// between.
var ErrNoParticipants = errors.New("must have at least one participant")

// EqualShares splits amount equally between participants. Shares are
// rounded to cents; the rounding remainder goes to the first participants
// so the shares always add up to amount.
func EqualShares(amount float64, participants []string) (map[string]float64, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	cents := int64(math.Round(amount * 100))
	n := int64(len(participants))
	base, remainder := cents/n, cents%n

	shares := make(map[string]float64, len(participants))
	for i, p := range participants {
		c := base
		if int64(i) < remainder {
			c++
		}
		shares[p] += float64(c) / 100
	}
	return shares, nil
}
