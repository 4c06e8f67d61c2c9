// Package scanner implements the per-domain scan orchestrators: iterate a
// snapshot, derive signals, filter by threshold, consult the dedup cache,
// and dispatch alerts. No single item or domain failure aborts a run.
package scanner

import (
	"context"

	"edgescout/internal/models"
	"edgescout/internal/oddsapi"
)

// OddsSource fetches one sport's current odds snapshot. Implementations own
// retry and timeout behavior; the scanner treats any error as a fetch
// failure and skips the sport for this run.
type OddsSource interface {
	Odds(ctx context.Context, sportKey string) ([]oddsapi.Event, error)
}

// StatsSource resolves players and fetches their recent point totals.
type StatsSource interface {
	PlayerID(ctx context.Context, name string) (int, error)
	LastPoints(ctx context.Context, playerID, n int) ([]int, error)
}

// Notifier dispatches formatted alerts. A dispatch error leaves the dedup
// cache untouched so the alert is retried on a later run.
type Notifier interface {
	SendValueAlert(a models.ValueAlert) error
	SendTrendAlert(a models.TrendAlert) error
}

// Summary counts what one scan pass did.
type Summary struct {
	Scanned    int // snapshot items examined
	Skipped    int // items dropped by validation or filters before fingerprinting
	Suppressed int // candidate alerts inside their cooldown window
	Alerted    int // alerts confirmed dispatched
}

// Add accumulates another summary into this one.
func (s *Summary) Add(o Summary) {
	s.Scanned += o.Scanned
	s.Skipped += o.Skipped
	s.Suppressed += o.Suppressed
	s.Alerted += o.Alerted
}
