package scanner

import (
	"context"
	"errors"
	"time"

	"edgescout/internal/models"
	"edgescout/internal/oddsapi"
)

// fakeOddsSource serves canned snapshots per sport key.
type fakeOddsSource struct {
	events map[string][]oddsapi.Event
	errs   map[string]error
}

func (f *fakeOddsSource) Odds(_ context.Context, sportKey string) ([]oddsapi.Event, error) {
	if err := f.errs[sportKey]; err != nil {
		return nil, err
	}
	return f.events[sportKey], nil
}

// fakeStatsSource serves canned player IDs and point histories.
type fakeStatsSource struct {
	ids    map[string]int
	points map[int][]int
	idErr  map[string]error
	ptsErr map[int]error
}

func (f *fakeStatsSource) PlayerID(_ context.Context, name string) (int, error) {
	if err := f.idErr[name]; err != nil {
		return 0, err
	}
	return f.ids[name], nil
}

func (f *fakeStatsSource) LastPoints(_ context.Context, playerID, _ int) ([]int, error) {
	if err := f.ptsErr[playerID]; err != nil {
		return nil, err
	}
	return f.points[playerID], nil
}

// fakeNotifier records dispatched alerts and can simulate outages.
type fakeNotifier struct {
	valueAlerts []models.ValueAlert
	trendAlerts []models.TrendAlert
	fail        bool
}

func (f *fakeNotifier) SendValueAlert(a models.ValueAlert) error {
	if f.fail {
		return errors.New("telegram unavailable")
	}
	f.valueAlerts = append(f.valueAlerts, a)
	return nil
}

func (f *fakeNotifier) SendTrendAlert(a models.TrendAlert) error {
	if f.fail {
		return errors.New("telegram unavailable")
	}
	f.trendAlerts = append(f.trendAlerts, a)
	return nil
}

// h2hEvent builds a two-participant event with the given per-book prices.
func h2hEvent(id string, commence time.Time, books map[string]map[string]float64) oddsapi.Event {
	ev := oddsapi.Event{
		ID:           id,
		SportKey:     "tennis_atp",
		CommenceTime: commence,
		HomeTeam:     "Alcaraz C.",
		AwayTeam:     "Nadal R.",
	}
	for book, prices := range books {
		outcomes := make([]oddsapi.Outcome, 0, len(prices))
		for name, price := range prices {
			outcomes = append(outcomes, oddsapi.Outcome{Name: name, Price: price})
		}
		ev.Bookmakers = append(ev.Bookmakers, oddsapi.Bookmaker{
			Key:     book,
			Markets: []oddsapi.Market{{Key: "h2h", Outcomes: outcomes}},
		})
	}
	return ev
}
