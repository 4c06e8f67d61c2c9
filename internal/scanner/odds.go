package scanner

import (
	"context"
	"sort"
	"time"

	"edgescout/internal/dedup"
	"edgescout/internal/fair"
	"edgescout/internal/logger"
	"edgescout/internal/models"
	"edgescout/internal/oddsapi"
	"edgescout/internal/storage"
)

// OddsConfig holds the odds-scanner thresholds. MinEdge is a fraction
// (0.03 = 3%), not a percentage.
type OddsConfig struct {
	Sports      []string
	TargetBooks []string
	MinEdge     float64
	MinPrice    float64
	MaxLeadTime time.Duration
	Cooldown    time.Duration
}

// OddsScanner scans head-to-head odds snapshots for value against a fair
// probability estimated from sharp books.
type OddsScanner struct {
	source    OddsSource
	notifier  Notifier
	store     *storage.Storage
	estimator *fair.Estimator
	cfg       OddsConfig
	targets   map[string]bool
}

// NewOddsScanner creates an odds scanner. notifier and store may be nil;
// without a notifier candidates are detected but never dispatched or
// recorded.
func NewOddsScanner(source OddsSource, notifier Notifier, store *storage.Storage, sharpBooks []string, cfg OddsConfig) *OddsScanner {
	targets := make(map[string]bool, len(cfg.TargetBooks))
	for _, book := range cfg.TargetBooks {
		targets[book] = true
	}
	return &OddsScanner{
		source:    source,
		notifier:  notifier,
		store:     store,
		estimator: &fair.Estimator{SharpBooks: sharpBooks},
		cfg:       cfg,
		targets:   targets,
	}
}

// Scan runs one pass over all configured sports. A sport whose snapshot
// cannot be fetched is logged and skipped; the pass always completes.
func (s *OddsScanner) Scan(ctx context.Context, cache *dedup.Cache, now time.Time) Summary {
	var sum Summary
	for _, sportKey := range s.cfg.Sports {
		events, err := s.source.Odds(ctx, sportKey)
		if err != nil {
			logger.Warn("Failed to fetch odds for %s: %v", sportKey, err)
			continue
		}
		logger.Debug("Fetched %d events for %s", len(events), sportKey)
		for i := range events {
			sum.Add(s.scanEvent(&events[i], cache, now))
		}
	}
	return sum
}

func (s *OddsScanner) scanEvent(ev *oddsapi.Event, cache *dedup.Cache, now time.Time) Summary {
	sum := Summary{Scanned: 1}

	if ev.CommenceTime.Sub(now) > s.cfg.MaxLeadTime {
		sum.Skipped++
		return sum
	}

	lines := collectLines(ev)
	if len(lines) == 0 {
		sum.Skipped++
		return sum
	}

	participants := participantList(lines)
	if len(participants) != 2 {
		logger.Debug("Skipping event %s: expected 2 participants, found %d", ev.ID, len(participants))
		sum.Skipped++
		return sum
	}
	p1, p2 := participants[0], participants[1]

	q1 := quotesFor(lines, p1)
	q2 := quotesFor(lines, p2)

	basis1, fair1 := s.estimator.Estimate(q1)
	basis2, fair2 := s.estimator.Estimate(q2)
	// One priced leg alone is not enough; a zero leg would turn
	// normalization into fabricated certainty, so the whole event is skipped.
	if fair1 <= 0 || fair2 <= 0 {
		sum.Skipped++
		return sum
	}
	fair1, fair2 = fair.Normalize(fair1, fair2)

	legs := []models.OutcomeSignal{
		{Outcome: p1, FairProb: fair1, Basis: basis1},
		{Outcome: p2, FairProb: fair2, Basis: basis2},
	}
	quotes := []map[string]float64{q1, q2}

	for i, leg := range legs {
		for _, book := range sortedKeys(quotes[i]) {
			if !s.targets[book] {
				continue
			}
			price := quotes[i][book]
			if price < s.cfg.MinPrice {
				continue
			}
			edge := fair.Edge(price, leg.FairProb)
			if edge < s.cfg.MinEdge {
				continue
			}

			fp := dedup.Fingerprint(ev.ID, book, leg.Outcome, price, leg.FairProb, leg.Basis)
			if cache.ShouldSuppress(fp, now, s.cfg.Cooldown) {
				sum.Suppressed++
				continue
			}

			alert := models.ValueAlert{
				EventID:      ev.ID,
				SportKey:     ev.SportKey,
				HomeTeam:     ev.HomeTeam,
				AwayTeam:     ev.AwayTeam,
				Outcome:      leg.Outcome,
				Book:         book,
				Price:        price,
				FairProb:     leg.FairProb,
				Edge:         edge,
				Kelly:        fair.KellyFraction(price, leg.FairProb),
				Basis:        leg.Basis,
				CommenceTime: ev.CommenceTime,
				DetectedAt:   now,
			}
			if err := alert.Validate(); err != nil {
				logger.Warn("Dropping invalid value alert for event %s: %v", ev.ID, err)
				continue
			}

			if s.notifier == nil {
				logger.Debug("Value candidate %s detected but no notifier configured", fp)
				continue
			}
			if err := s.notifier.SendValueAlert(alert); err != nil {
				logger.Warn("Failed to dispatch value alert %s: %v", fp, err)
				continue
			}

			cache.Record(fp, now)
			sum.Alerted++
			logger.Info("Value alert sent: %s %s @ %.2f (edge %.1f%%, basis %s)",
				book, leg.Outcome, price, edge*100, leg.Basis)

			if s.store != nil {
				if err := s.store.AddValueAlert(fp, alert); err != nil {
					logger.Warn("Failed to record alert history for %s: %v", fp, err)
				}
			}
		}
	}

	return sum
}

// collectLines builds book -> outcome -> price from the event's h2h markets.
// Markets with fewer than two outcomes are malformed and dropped.
func collectLines(ev *oddsapi.Event) map[string]map[string]float64 {
	lines := make(map[string]map[string]float64)
	for _, bk := range ev.Bookmakers {
		if bk.Key == "" {
			continue
		}
		for _, mkt := range bk.Markets {
			if mkt.Key != "h2h" || len(mkt.Outcomes) < 2 {
				continue
			}
			prices := make(map[string]float64, len(mkt.Outcomes))
			for _, o := range mkt.Outcomes {
				if o.Name != "" && o.Price > 0 {
					prices[o.Name] = o.Price
				}
			}
			if len(prices) > 0 {
				lines[bk.Key] = prices
			}
		}
	}
	return lines
}

// participantList returns the sorted union of outcome names across books.
func participantList(lines map[string]map[string]float64) []string {
	set := make(map[string]bool)
	for _, prices := range lines {
		for name := range prices {
			set[name] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// quotesFor extracts each book's valid price for one participant.
func quotesFor(lines map[string]map[string]float64, name string) map[string]float64 {
	quotes := make(map[string]float64)
	for book, prices := range lines {
		if price, ok := prices[name]; ok && price > 1.0 {
			quotes[book] = price
		}
	}
	return quotes
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
