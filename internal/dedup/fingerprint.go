// Package dedup builds deterministic alert fingerprints and suppresses
// repeats within a cooldown window using a small persisted cache.
package dedup

import (
	"fmt"
	"strconv"
	"strings"
)

// Fingerprint derives the identity string for a value alert's content.
// Price and probability are rendered at fixed precision so floating-point
// jitter between runs cannot break equality of otherwise identical alerts.
func Fingerprint(eventID, book, outcome string, price, fairProb float64, basis string) string {
	return fmt.Sprintf("%s|%s|%s|%.3f|%.5f|%s", eventID, book, outcome, price, fairProb, basis)
}

// TrendFingerprint keys a trend alert on the player and the raw five-game
// point window. Any new game shifts the window and re-arms the alert, even
// when the classified pattern is unchanged.
func TrendFingerprint(playerID int, points []int) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("%d|%s", playerID, strings.Join(parts, ","))
}
