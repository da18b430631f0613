package domain

import (
	"crypto/rand"
	"math/big"
)

// ZeroPolicy controls how outcomes with zero exposure participate in winner
// selection when other outcomes carry bets.
type ZeroPolicy string

const (
	// ZeroPolicyCount treats zero-exposure outcomes as minima like any
	// other amount, so an untouched number beats every bet-on number.
	ZeroPolicyCount ZeroPolicy = "zeros-count"
	// ZeroPolicyAbsent excludes zero-exposure outcomes and picks the
	// least-bet outcome among those that actually received bets.
	ZeroPolicyAbsent ZeroPolicy = "zeros-absent"
)

// Valid reports whether p is a recognized policy.
func (p ZeroPolicy) Valid() bool {
	return p == ZeroPolicyCount || p == ZeroPolicyAbsent
}

// Selector picks the winning number for a round from its frozen bet
// distribution. The house always pays out the least-bet outcome; ties and
// empty rounds fall back to a uniform random draw.
type Selector struct {
	policy ZeroPolicy
	// randInt returns a uniform value in [0, n). Tests override it.
	randInt func(n int) int
}

// NewSelector builds a selector with the given zero policy. An unrecognized
// policy falls back to ZeroPolicyCount.
func NewSelector(policy ZeroPolicy) *Selector {
	if !policy.Valid() {
		policy = ZeroPolicyCount
	}
	return &Selector{policy: policy, randInt: cryptoRandInt}
}

func cryptoRandInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; nothing sensible to do but treat it as fatal.
		panic(err)
	}
	return int(v.Int64())
}

// Pick returns the winning number for the given distribution.
//
// An all-zero distribution yields a uniform random outcome. Otherwise the
// scan keeps the lowest-indexed minimum, so ties resolve deterministically
// toward the smaller number unless every candidate carries the same
// non-zero amount, in which case the draw is uniform over all outcomes.
func (s *Selector) Pick(dist Distribution) int {
	if dist.IsZero() {
		return s.randInt(Outcomes)
	}

	candidates := make([]int, 0, Outcomes)
	for i := 0; i < Outcomes; i++ {
		if s.policy == ZeroPolicyAbsent && dist[i] == 0 {
			continue
		}
		candidates = append(candidates, i)
	}

	min := candidates[0]
	allEqual := true
	for _, i := range candidates[1:] {
		if dist[i] < dist[min] {
			min = i
		}
		if dist[i] != dist[candidates[0]] {
			allEqual = false
		}
	}
	if allEqual {
		return candidates[s.randInt(len(candidates))]
	}
	return min
}
