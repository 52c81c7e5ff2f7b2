package merger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

// GroupMember is one sample inside a consensus group.
type GroupMember struct {
	Source   string
	Price    decimal.Decimal
	Priority int
	Weight   int
}

// PriceGroup is a cluster of mutually-agreeing samples. Weight is the sum
// of the member source weights.
type PriceGroup struct {
	Weight  int
	Members []GroupMember
}

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// PercentageDifference computes 100 * |a-b| / ((a+b)/2), the symmetric
// percentage difference used for both the clustering threshold and the
// group-weight margin.
func PercentageDifference(a, b decimal.Decimal) decimal.Decimal {
	mean := a.Add(b).Div(two)
	if mean.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Abs().Div(mean).Mul(hundred)
}

// splitIntoGroups partitions samples into clusters of prices that agree
// within the configured threshold. Samples are sorted by price; each
// candidate cluster extends from its starting sample while the difference
// against the STARTING price stays within the threshold. Comparing against
// the start price rather than the previous member is intentional and
// affects cluster boundaries. A candidate is accepted only when it covers
// at least one sample beyond every previously accepted cluster, which
// deduplicates overlapping candidates from earlier start indexes.
func (m *Merger) splitIntoGroups(points []sources.PricePoint) []PriceGroup {
	sorted := make([]sources.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Price.LessThan(sorted[j].Price)
	})

	var groups []PriceGroup

	prevSeparator := -1
	for startIndex, start := range sorted {
		group := PriceGroup{
			Weight:  m.sourceWeight(start.Source),
			Members: []GroupMember{m.member(start)},
		}

		separator := startIndex
		for index := startIndex + 1; index < len(sorted); index++ {
			point := sorted[index]

			diff := PercentageDifference(start.Price, point.Price)
			if diff.GreaterThan(m.threshold) {
				break
			}

			group.Weight += m.sourceWeight(point.Source)
			group.Members = append(group.Members, m.member(point))

			separator = index
		}

		if separator > prevSeparator {
			groups = append(groups, group)
			prevSeparator = separator
		}
	}

	return groups
}

// biggestGroupPrice returns the heaviest group if it outweighs the runner-up
// by more than the configured group percentage. With a single group it is
// accepted unconditionally. An ambiguous margin rejects the pair for this
// cycle; no averaged fallback is produced.
func (m *Merger) biggestGroupPrice(points []sources.PricePoint) (PriceGroup, error) {
	if len(points) == 0 {
		return PriceGroup{}, ErrNoPrices
	}

	groups := m.splitIntoGroups(points)

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Weight > groups[j].Weight
	})

	if len(groups) == 1 {
		return groups[0], nil
	}

	biggest, second := groups[0], groups[1]

	margin := PercentageDifference(
		decimal.NewFromInt(int64(biggest.Weight)),
		decimal.NewFromInt(int64(second.Weight)),
	)

	if margin.GreaterThan(m.groupPercentage) {
		return biggest, nil
	}

	return PriceGroup{}, fmt.Errorf("The difference between sources is too big: %s against %s",
		formatGroupPrices(biggest), formatGroupPrices(second))
}

func (m *Merger) member(point sources.PricePoint) GroupMember {
	return GroupMember{
		Source:   point.Source,
		Price:    point.Price,
		Priority: m.priority(point.Source),
		Weight:   m.sourceWeight(point.Source),
	}
}

// priority scores a source by its position in the priorities list: the
// first-listed source scores highest, unlisted sources score -1.
func (m *Merger) priority(source string) int {
	for index, name := range m.priorities {
		if name == source {
			return len(m.priorities) - index - 1
		}
	}
	return -1
}

func (m *Merger) sourceWeight(source string) int {
	if weight, ok := m.weights[source]; ok {
		return weight
	}
	return defaultSourceWeight
}

func formatGroupPrices(group PriceGroup) string {
	parts := make([]string, 0, len(group.Members))
	for _, member := range group.Members {
		parts = append(parts, fmt.Sprintf("%s (%s)", member.Price.String(), member.Source))
	}
	return strings.Join(parts, ";")
}
