package scanner

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"edgescout/internal/dedup"
	"edgescout/internal/fair"
	"edgescout/internal/oddsapi"
	"edgescout/internal/storage"
)

var sharps = []string{"pinnacle", "betfair_exchange"}

func testOddsConfig() OddsConfig {
	return OddsConfig{
		Sports:      []string{"tennis_atp"},
		TargetBooks: []string{"bet365", "unibet", "williamhill"},
		MinEdge:     0.03,
		MinPrice:    1.50,
		MaxLeadTime: 48 * time.Hour,
		Cooldown:    90 * time.Minute,
	}
}

func newTestCache(t *testing.T) *dedup.Cache {
	t.Helper()
	c := dedup.NewCache(filepath.Join(t.TempDir(), "cache.json"))
	c.Load()
	return c
}

func TestOddsScanner_AlertsThenSuppresses(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	eventID := uuid.New().String()

	// Pinnacle implies 0.45/0.55; bet365 offers 2.50 on the 0.45 leg,
	// an edge of 12.5%. The 1.55 quote on the other leg is negative value.
	event := h2hEvent(eventID, now.Add(24*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 1.0 / 0.45, "Alcaraz C.": 1.0 / 0.55},
		"bet365":   {"Nadal R.": 2.50, "Alcaraz C.": 1.55},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	notifier := &fakeNotifier{}
	s := NewOddsScanner(source, notifier, nil, sharps, testOddsConfig())

	cachePath := filepath.Join(t.TempDir(), "cache.json")
	cache := dedup.NewCache(cachePath)
	cache.Load()

	sum := s.Scan(context.Background(), cache, now)
	if sum.Alerted != 1 || len(notifier.valueAlerts) != 1 {
		t.Fatalf("first scan: Alerted = %d, dispatched = %d, want 1 each", sum.Alerted, len(notifier.valueAlerts))
	}

	alert := notifier.valueAlerts[0]
	if alert.Book != "bet365" || alert.Outcome != "Nadal R." {
		t.Errorf("alert = %s @ %s, want Nadal R. @ bet365", alert.Outcome, alert.Book)
	}
	if math.Abs(alert.Edge-0.125) > 1e-6 {
		t.Errorf("edge = %v, want 0.125", alert.Edge)
	}
	if alert.Basis != "pinnacle" {
		t.Errorf("basis = %q, want pinnacle", alert.Basis)
	}
	wantKelly := fair.KellyFraction(2.50, alert.FairProb)
	if math.Abs(alert.Kelly-wantKelly) > 1e-9 {
		t.Errorf("kelly = %v, want %v", alert.Kelly, wantKelly)
	}

	// Persist and reload, as consecutive daemon cycles do.
	if err := cache.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cache2 := dedup.NewCache(cachePath)
	cache2.Load()

	sum = s.Scan(context.Background(), cache2, now.Add(10*time.Minute))
	if sum.Alerted != 0 || sum.Suppressed != 1 {
		t.Errorf("second scan inside cooldown: Alerted = %d, Suppressed = %d, want 0/1", sum.Alerted, sum.Suppressed)
	}

	// Past the cooldown the same line alerts again.
	sum = s.Scan(context.Background(), cache2, now.Add(91*time.Minute))
	if sum.Alerted != 1 {
		t.Errorf("scan after cooldown: Alerted = %d, want 1", sum.Alerted)
	}
}

func TestOddsScanner_ConsensusBasisWhenNoSharp(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// No sharp book quotes this event: the fair probability falls back to
	// the consensus average and unibet's 3.00 outlier clears the edge bar.
	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"bet365": {"Nadal R.": 2.00, "Alcaraz C.": 1.60},
		"unibet": {"Nadal R.": 3.00, "Alcaraz C.": 1.55},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	notifier := &fakeNotifier{}
	s := NewOddsScanner(source, notifier, nil, sharps, testOddsConfig())

	sum := s.Scan(context.Background(), newTestCache(t), now)
	if sum.Alerted != 1 {
		t.Fatalf("Alerted = %d, want 1", sum.Alerted)
	}
	alert := notifier.valueAlerts[0]
	if alert.Basis != fair.ConsensusBasis {
		t.Errorf("basis = %q, want %q", alert.Basis, fair.ConsensusBasis)
	}
	if alert.Book != "unibet" || alert.Outcome != "Nadal R." {
		t.Errorf("alert = %s @ %s, want Nadal R. @ unibet", alert.Outcome, alert.Book)
	}
}

func TestOddsScanner_SkipsEventWithUnpricedLeg(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// One leg has no usable price anywhere (1.0 is filtered). Normalizing
	// against a zero leg would fabricate certainty, so nothing may alert
	// even though the priced leg looks attractive.
	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 2.00, "Alcaraz C.": 1.00},
		"bet365":   {"Nadal R.": 2.50, "Alcaraz C.": 1.00},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	notifier := &fakeNotifier{}
	s := NewOddsScanner(source, notifier, nil, sharps, testOddsConfig())

	sum := s.Scan(context.Background(), newTestCache(t), now)
	if sum.Alerted != 0 || sum.Skipped != 1 {
		t.Errorf("Alerted = %d, Skipped = %d, want 0/1", sum.Alerted, sum.Skipped)
	}
}

func TestOddsScanner_SkipsNonTwoWayEvents(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Home": 2.80, "Draw": 3.30, "Away": 2.60},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	s := NewOddsScanner(source, &fakeNotifier{}, nil, sharps, testOddsConfig())
	sum := s.Scan(context.Background(), newTestCache(t), now)
	if sum.Skipped != 1 || sum.Alerted != 0 {
		t.Errorf("Skipped = %d, Alerted = %d, want 1/0", sum.Skipped, sum.Alerted)
	}
}

func TestOddsScanner_LeadTimeFilter(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	event := h2hEvent(uuid.New().String(), now.Add(72*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 1.0 / 0.45, "Alcaraz C.": 1.0 / 0.55},
		"bet365":   {"Nadal R.": 2.50, "Alcaraz C.": 1.55},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	s := NewOddsScanner(source, &fakeNotifier{}, nil, sharps, testOddsConfig())
	sum := s.Scan(context.Background(), newTestCache(t), now)
	if sum.Skipped != 1 || sum.Alerted != 0 {
		t.Errorf("event beyond lead window: Skipped = %d, Alerted = %d, want 1/0", sum.Skipped, sum.Alerted)
	}
}

func TestOddsScanner_MinPriceFilter(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// 1.45 on a 0.72 fair leg is a 4.4% edge, but short favorites below
	// the price floor are not worth alerting on.
	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 1.0 / 0.72, "Alcaraz C.": 1.0 / 0.28},
		"bet365":   {"Nadal R.": 1.45, "Alcaraz C.": 3.40},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	notifier := &fakeNotifier{}
	s := NewOddsScanner(source, notifier, nil, sharps, testOddsConfig())

	sum := s.Scan(context.Background(), newTestCache(t), now)
	if sum.Alerted != 0 || len(notifier.valueAlerts) != 0 {
		t.Errorf("Alerted = %d, want 0", sum.Alerted)
	}
}

func TestOddsScanner_DispatchFailureLeavesCacheUntouched(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 1.0 / 0.45, "Alcaraz C.": 1.0 / 0.55},
		"bet365":   {"Nadal R.": 2.50, "Alcaraz C.": 1.55},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	notifier := &fakeNotifier{fail: true}
	s := NewOddsScanner(source, notifier, nil, sharps, testOddsConfig())
	cache := newTestCache(t)

	sum := s.Scan(context.Background(), cache, now)
	if sum.Alerted != 0 {
		t.Fatalf("failed dispatch counted as alerted: %d", sum.Alerted)
	}

	// Outage over: the same candidate must go out on the next run.
	notifier.fail = false
	sum = s.Scan(context.Background(), cache, now.Add(time.Minute))
	if sum.Alerted != 1 || len(notifier.valueAlerts) != 1 {
		t.Errorf("retry after outage: Alerted = %d, want 1", sum.Alerted)
	}
}

func TestOddsScanner_FetchErrorIsolatesSport(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 1.0 / 0.45, "Alcaraz C.": 1.0 / 0.55},
		"bet365":   {"Nadal R.": 2.50, "Alcaraz C.": 1.55},
	})
	source := &fakeOddsSource{
		events: map[string][]oddsapi.Event{"tennis_wta": {event}},
		errs:   map[string]error{"tennis_atp": errors.New("upstream 503")},
	}

	cfg := testOddsConfig()
	cfg.Sports = []string{"tennis_atp", "tennis_wta"}
	notifier := &fakeNotifier{}
	s := NewOddsScanner(source, notifier, nil, sharps, cfg)

	sum := s.Scan(context.Background(), newTestCache(t), now)
	if sum.Alerted != 1 {
		t.Errorf("healthy sport not scanned after failed sport: Alerted = %d, want 1", sum.Alerted)
	}
}

func TestOddsScanner_RecordsDispatchHistory(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	store, err := storage.New(100, ":memory:")
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer store.Close()

	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 1.0 / 0.45, "Alcaraz C.": 1.0 / 0.55},
		"bet365":   {"Nadal R.": 2.50, "Alcaraz C.": 1.55},
	})
	source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}

	s := NewOddsScanner(source, &fakeNotifier{}, store, sharps, testOddsConfig())
	if sum := s.Scan(context.Background(), newTestCache(t), now); sum.Alerted != 1 {
		t.Fatalf("Alerted = %d, want 1", sum.Alerted)
	}

	records, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history rows = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Kind != storage.KindValue || rec.Book != "bet365" || rec.Outcome != "Nadal R." {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Fingerprint == "" {
		t.Error("record missing fingerprint")
	}
}

func TestOddsScanner_DeterministicAlertOrder(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// Both legs carry value at different books. Participants and books are
	// walked in sorted order, so the dispatch sequence is stable.
	event := h2hEvent(uuid.New().String(), now.Add(6*time.Hour), map[string]map[string]float64{
		"pinnacle": {"Nadal R.": 1.0 / 0.45, "Alcaraz C.": 1.0 / 0.55},
		"bet365":   {"Nadal R.": 2.50, "Alcaraz C.": 1.50},
		"unibet":   {"Nadal R.": 1.60, "Alcaraz C.": 2.10},
	})

	for i := 0; i < 5; i++ {
		source := &fakeOddsSource{events: map[string][]oddsapi.Event{"tennis_atp": {event}}}
		notifier := &fakeNotifier{}
		s := NewOddsScanner(source, notifier, nil, sharps, testOddsConfig())

		if sum := s.Scan(context.Background(), newTestCache(t), now); sum.Alerted != 2 {
			t.Fatalf("Alerted = %d, want 2", sum.Alerted)
		}
		first, second := notifier.valueAlerts[0], notifier.valueAlerts[1]
		if first.Outcome != "Alcaraz C." || first.Book != "unibet" {
			t.Fatalf("first alert = %s @ %s, want Alcaraz C. @ unibet", first.Outcome, first.Book)
		}
		if second.Outcome != "Nadal R." || second.Book != "bet365" {
			t.Fatalf("second alert = %s @ %s, want Nadal R. @ bet365", second.Outcome, second.Book)
		}
	}
}
