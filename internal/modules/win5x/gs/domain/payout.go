package domain

// Payout returns the amount credited back to the player for a bet given the
// winning number: amount times the multiplier on a covering bet, zero on a
// losing one. The stake is not returned separately; the multiplier already
// covers it.
func Payout(bet *Bet, winningNumber int, multiplier int64) int64 {
	if bet.Covers(winningNumber) {
		return bet.Amount * multiplier
	}
	return 0
}
