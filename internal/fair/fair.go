// Package fair derives fair probabilities, edges, and stake sizing from
// quoted decimal prices.
//
// The estimator prefers a priority-ordered list of sharp (low-margin) books
// and falls back to the arithmetic mean of all valid implied probabilities.
package fair

import "sort"

// ConsensusBasis is the basis label used when no sharp book quoted the
// outcome and the fair probability was averaged from all valid quotes.
const ConsensusBasis = "consensus"

// ImpliedProb converts a decimal price into its implied probability.
// Prices at or below 1.0 are invalid and yield 0.
func ImpliedProb(price float64) float64 {
	if price <= 1.0 {
		return 0.0
	}
	return 1.0 / price
}

// Edge is the expected value multiplier minus one for taking the offered
// price against the estimated fair probability.
func Edge(price, fairProb float64) float64 {
	return price*fairProb - 1.0
}

// KellyFraction returns the Kelly staking fraction for the offered price and
// fair probability, floored at zero. Degenerate prices (net odds <= 0)
// return 0.
func KellyFraction(price, fairProb float64) float64 {
	b := price - 1.0
	if b <= 0 {
		return 0.0
	}
	q := 1.0 - fairProb
	f := (b*fairProb - q) / b
	if f < 0 {
		return 0.0
	}
	return f
}

// Normalize rescales a two-outcome probability pair so it sums to exactly
// 1.0, removing the overround embedded in implied probabilities. Both inputs
// must be positive; a non-positive sum is returned unchanged.
func Normalize(p1, p2 float64) (float64, float64) {
	s := p1 + p2
	if s <= 0 {
		return p1, p2
	}
	return p1 / s, p2 / s
}

// Estimator produces a (basis, fair probability) pair from a set of quotes
// for one outcome.
type Estimator struct {
	// SharpBooks is tried in order; the first book with a valid quote wins.
	SharpBooks []string
}

type strategy func(quotes map[string]float64) (basis string, prob float64, ok bool)

// Estimate tries each pricing strategy in order and returns the first usable
// signal. A zero probability with an empty basis means no signal; callers
// must skip the outcome.
func (e *Estimator) Estimate(quotes map[string]float64) (string, float64) {
	for _, s := range []strategy{e.sharpQuote, consensus} {
		if basis, prob, ok := s(quotes); ok {
			return basis, prob
		}
	}
	return "", 0.0
}

// sharpQuote returns the implied probability of the first sharp book in
// priority order that has a valid quote.
func (e *Estimator) sharpQuote(quotes map[string]float64) (string, float64, bool) {
	for _, book := range e.SharpBooks {
		if price, ok := quotes[book]; ok && price > 1.0 {
			return book, ImpliedProb(price), true
		}
	}
	return "", 0.0, false
}

// consensus averages the implied probabilities of every valid quote.
// Books are visited in sorted order so the sum is reproducible.
func consensus(quotes map[string]float64) (string, float64, bool) {
	books := make([]string, 0, len(quotes))
	for book := range quotes {
		books = append(books, book)
	}
	sort.Strings(books)

	var sum float64
	var n int
	for _, book := range books {
		if p := ImpliedProb(quotes[book]); p > 0 {
			sum += p
			n++
		}
	}
	if n == 0 {
		return "", 0.0, false
	}
	return ConsensusBasis, sum / float64(n), true
}
