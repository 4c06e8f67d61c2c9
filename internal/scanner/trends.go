package scanner

import (
	"context"
	"time"

	"edgescout/internal/dedup"
	"edgescout/internal/logger"
	"edgescout/internal/models"
	"edgescout/internal/pattern"
	"edgescout/internal/storage"
)

// TrendConfig holds the trend-scanner thresholds.
type TrendConfig struct {
	Players        []string
	PointThreshold int
	WindowSize     int
	Cooldown       time.Duration
}

// TrendScanner scans each monitored player's recent point totals for named
// scoring patterns.
type TrendScanner struct {
	source   StatsSource
	notifier Notifier
	store    *storage.Storage
	cfg      TrendConfig
}

// NewTrendScanner creates a trend scanner. notifier and store may be nil.
func NewTrendScanner(source StatsSource, notifier Notifier, store *storage.Storage, cfg TrendConfig) *TrendScanner {
	return &TrendScanner{
		source:   source,
		notifier: notifier,
		store:    store,
		cfg:      cfg,
	}
}

// Scan runs one pass over all monitored players, in configuration order.
func (s *TrendScanner) Scan(ctx context.Context, cache *dedup.Cache, now time.Time) Summary {
	var sum Summary

	for _, name := range s.cfg.Players {
		sum.Scanned++

		id, err := s.source.PlayerID(ctx, name)
		if err != nil {
			logger.Warn("Failed to look up player %q: %v", name, err)
			sum.Skipped++
			continue
		}
		if id == 0 {
			logger.Debug("Player %q not found", name)
			sum.Skipped++
			continue
		}

		points, err := s.source.LastPoints(ctx, id, s.cfg.WindowSize)
		if err != nil {
			logger.Warn("Failed to fetch recent games for %q: %v", name, err)
			sum.Skipped++
			continue
		}
		// A short history is no signal, not a problem.
		if len(points) != s.cfg.WindowSize {
			sum.Skipped++
			continue
		}

		patternName, ok := pattern.Match(points, s.cfg.PointThreshold)
		if !ok {
			continue
		}

		fp := dedup.TrendFingerprint(id, points)
		if cache.ShouldSuppress(fp, now, s.cfg.Cooldown) {
			sum.Suppressed++
			continue
		}

		alert := models.TrendAlert{
			PlayerID:   id,
			PlayerName: name,
			Points:     points,
			Pattern:    patternName,
			DetectedAt: now,
		}
		if err := alert.Validate(); err != nil {
			logger.Warn("Dropping invalid trend alert for %q: %v", name, err)
			continue
		}

		if s.notifier == nil {
			logger.Debug("Trend candidate %s detected but no notifier configured", fp)
			continue
		}
		if err := s.notifier.SendTrendAlert(alert); err != nil {
			logger.Warn("Failed to dispatch trend alert %s: %v", fp, err)
			continue
		}

		cache.Record(fp, now)
		sum.Alerted++
		logger.Info("Trend alert sent: %s %s %v", name, patternName, points)

		if s.store != nil {
			if err := s.store.AddTrendAlert(fp, alert); err != nil {
				logger.Warn("Failed to record alert history for %s: %v", fp, err)
			}
		}
	}

	return sum
}
