// Package models defines the core domain entities: quotes, derived signals,
// and alert payloads for the odds and trend scanners.
package models

import (
	"errors"
	"time"
)

// Quote is a single bookmaker's decimal price for one outcome.
type Quote struct {
	Book  string  `json:"book"`
	Price float64 `json:"price"`
}

// OutcomeSignal is the derived belief about one of two mutually exclusive
// outcomes. Basis names the sharp book that produced the fair probability,
// or "consensus" when it was averaged from all valid quotes.
type OutcomeSignal struct {
	Outcome  string  `json:"outcome"`
	FairProb float64 `json:"fair_prob"`
	Basis    string  `json:"basis"`
}

// ValueAlert is a candidate value-bet notification: an offered price at a
// target book whose edge against the fair probability cleared the threshold.
type ValueAlert struct {
	EventID      string    `json:"event_id"`
	SportKey     string    `json:"sport_key"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Outcome      string    `json:"outcome"`
	Book         string    `json:"book"`
	Price        float64   `json:"price"`
	FairProb     float64   `json:"fair_prob"`
	Edge         float64   `json:"edge"`
	Kelly        float64   `json:"kelly"`
	Basis        string    `json:"basis"`
	CommenceTime time.Time `json:"commence_time"`
	DetectedAt   time.Time `json:"detected_at"`
}

// Validate checks value alert field constraints.
func (a *ValueAlert) Validate() error {
	if a.EventID == "" {
		return errors.New("event ID must not be empty")
	}
	if a.Outcome == "" {
		return errors.New("outcome must not be empty")
	}
	if a.Book == "" {
		return errors.New("book must not be empty")
	}
	if a.Price <= 1.0 {
		return errors.New("price must be greater than 1.0")
	}
	if a.FairProb <= 0.0 || a.FairProb >= 1.0 {
		return errors.New("fair probability must be between 0.0 and 1.0 exclusive")
	}
	if a.Kelly < 0.0 {
		return errors.New("kelly fraction must not be negative")
	}
	if a.Basis == "" {
		return errors.New("basis must not be empty")
	}
	return nil
}

// TrendAlert is a candidate scoring-trend notification for one player.
// Points holds the last five game point totals, oldest first.
type TrendAlert struct {
	PlayerID   int       `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Points     []int     `json:"points"`
	Pattern    string    `json:"pattern"`
	DetectedAt time.Time `json:"detected_at"`
}

// Validate checks trend alert field constraints.
func (a *TrendAlert) Validate() error {
	if a.PlayerID <= 0 {
		return errors.New("player ID must be positive")
	}
	if a.PlayerName == "" {
		return errors.New("player name must not be empty")
	}
	if len(a.Points) != 5 {
		return errors.New("points must hold exactly 5 games")
	}
	if a.Pattern == "" {
		return errors.New("pattern must not be empty")
	}
	return nil
}
