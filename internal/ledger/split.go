// Package ledger computes money owed between society members from their
// bills. It holds no state and performs no I/O.
package ledger

import (
	"errors"
	"math"
)

// SplitEvenly divides total among members in whole cents. Leftover cents go
// to the first members so the shares always add up to total.
func SplitEvenly(total float64, members []string) (map[string]float64, error) {
	if len(members) == 0 {
		return nil, errors.New("must have at least one member")
	}
	if total < 0 {
		return nil, errors.New("total cannot be negative")
	}

	cents := int64(math.Round(total * 100))
	n := int64(len(members))
	base, rem := cents/n, cents%n

	shares := make(map[string]float64, len(members))
	for i, m := range members {
		c := base
		if int64(i) < rem {
			c++
		}
		shares[m] += float64(c) / 100
	}
	return shares, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
