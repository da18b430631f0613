package domain

// Outcomes is the number of positions on the wheel, 0 through 9.
const Outcomes = 10

// Distribution holds the total exposure per outcome for a round. The amount
// at index n is every rupee the house would have to pay attention to if n
// won: direct bets on n plus the full amount of each parity bet covering n.
type Distribution [Outcomes]int64

// Total sums the exposure across all outcomes.
func (d Distribution) Total() int64 {
	var sum int64
	for _, v := range d {
		sum += v
	}
	return sum
}

// IsZero reports whether no outcome carries any exposure.
func (d Distribution) IsZero() bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}
