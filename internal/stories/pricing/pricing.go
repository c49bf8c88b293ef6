package pricing

import "math"

// Денежные константы предполагают фиатную валюту с двумя знаками после
// запятой (рубли). При поддержке других валют выносить в конфигурацию.
const (
	// AmountTolerance is the maximum accepted difference between a
	// client-submitted amount and the amount computed on the server.
	AmountTolerance = 0.01

	// MinRefund is the smallest refund the gateway will accept; anything
	// below is skipped instead of sent.
	MinRefund = 0.01

	// Currency is the only currency the platform charges in.
	Currency = "RUB"
)

// PerPlayer computes the contribution of a single player: the total rental
// price split across divisor players, rounded up so the platform never
// under-collects. Returns ok=false when the price or the divisor is not
// positive (pricing not configured for the game).
func PerPlayer(totalPrice float64, divisor int64) (float64, bool) {
	if totalPrice <= 0 || divisor <= 0 {
		return 0, false
	}
	return math.Ceil(totalPrice / float64(divisor)), true
}

// Round2 rounds a money amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AmountsMatch reports whether two money amounts are equal within
// AmountTolerance.
func AmountsMatch(a, b float64) bool {
	return math.Abs(a-b) <= AmountTolerance
}
