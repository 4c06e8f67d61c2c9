// Package pattern classifies fixed-length scoring sequences against named
// trend patterns.
package pattern

// WindowSize is the number of games a sequence must hold before any pattern
// is evaluated. Shorter histories are skipped, never padded.
const WindowSize = 5

const (
	// SustainedFive: the threshold was met in all five games.
	SustainedFive = "sustained-five"
	// FourThenDrop: the threshold was met in the first four games and
	// missed in the fifth.
	FourThenDrop = "four-then-drop"
)

// Match classifies points (oldest first) against the known patterns and
// returns the pattern name, or false when the sequence matches none or is
// not exactly WindowSize long. SustainedFive is checked first so the
// stronger all-five pattern wins deterministically.
func Match(points []int, threshold int) (string, bool) {
	if len(points) != WindowSize {
		return "", false
	}
	if sustainedFive(points, threshold) {
		return SustainedFive, true
	}
	if fourThenDrop(points, threshold) {
		return FourThenDrop, true
	}
	return "", false
}

func sustainedFive(points []int, threshold int) bool {
	for _, p := range points {
		if p < threshold {
			return false
		}
	}
	return true
}

func fourThenDrop(points []int, threshold int) bool {
	for _, p := range points[:4] {
		if p < threshold {
			return false
		}
	}
	return points[4] < threshold
}
