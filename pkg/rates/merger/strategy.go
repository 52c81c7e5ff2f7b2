package merger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Strategy reduces an accepted consensus group's members to one rate.
type Strategy func(members []GroupMember) decimal.Decimal

// StrategyByName returns the strategy function for a config name.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "avg":
		return Avg, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "priority":
		return Priority, nil
	case "weight":
		return Weight, nil
	}
	return nil, fmt.Errorf("%w: %s (supported: avg, min, max, priority, weight)", ErrUnknownStrategy, name)
}

// Avg returns the arithmetic mean of the member prices.
func Avg(members []GroupMember) decimal.Decimal {
	if len(members) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, member := range members {
		sum = sum.Add(member.Price)
	}

	return sum.Div(decimal.NewFromInt(int64(len(members))))
}

// Min returns the lowest member price.
func Min(members []GroupMember) decimal.Decimal {
	if len(members) == 0 {
		return decimal.Zero
	}

	lowest := members[0].Price
	for _, member := range members[1:] {
		if member.Price.LessThan(lowest) {
			lowest = member.Price
		}
	}
	return lowest
}

// Max returns the highest member price.
func Max(members []GroupMember) decimal.Decimal {
	if len(members) == 0 {
		return decimal.Zero
	}

	highest := members[0].Price
	for _, member := range members[1:] {
		if member.Price.GreaterThan(highest) {
			highest = member.Price
		}
	}
	return highest
}

// Priority returns the price of the member with the highest priority score.
// Ties keep the first member seen.
func Priority(members []GroupMember) decimal.Decimal {
	if len(members) == 0 {
		return decimal.Zero
	}

	best := members[0]
	for _, member := range members[1:] {
		if member.Priority > best.Priority {
			best = member
		}
	}
	return best.Price
}

// Weight returns the price of the member with the highest configured source
// weight. Ties keep the first member seen.
func Weight(members []GroupMember) decimal.Decimal {
	if len(members) == 0 {
		return decimal.Zero
	}

	best := members[0]
	for _, member := range members[1:] {
		if member.Weight > best.Weight {
			best = member
		}
	}
	return best.Price
}
