package models

import "time"

// MarketOdds is one normalized sportsbook price row, unique per
// (market, game_id, entity, bet_type, line, selection_key, sportsbook,
// fetched_at), per spec.md §3.
type MarketOdds struct {
	ID              int64
	Market          string
	GameID          int64
	GameDate        string
	EntityKind      string // "player" | "team" | "game"
	EntityID        int64
	BetType         string
	Line            *float64
	SelectionKey    string
	Sportsbook      string
	PriceAmerican   int
	ImpliedProb     float64
	IsBestAvailable bool
	FetchedAt       time.Time
}

// LineupSnapshot is a point-in-time lineup for one team in one game; each new
// snapshot supersedes the previous active version by setting
// active_version=0, per spec.md §4.2.
type LineupSnapshot struct {
	GameID        int64
	TeamAbbr      string
	ActiveVersion bool
	BattingOrder  []LineupSlot
	FetchedAt     time.Time
}

// LineupSlot is one batting-order entry in a LineupSnapshot. Tags match the
// batting_order_json shape documented on lineup_snapshots.
type LineupSlot struct {
	Slot     int    `json:"slot"`
	PlayerID int64  `json:"player_id"`
	Position string `json:"position"`
}

// WeatherSnapshot is a point-in-time weather reading at a stadium.
type WeatherSnapshot struct {
	GameID      int64
	StadiumID   int64
	TempF       float64
	WindMPH     float64
	WindDirection string // "out" | "in" | "cross"
	FetchedAt   time.Time
}

// ParkFactor is seasonal static park-factor data.
type ParkFactor struct {
	StadiumID  int64
	Season     int
	HRFactor   float64
	RunsFactor float64
	HitsFactor float64
}

// Stadium is static reference data loaded by the `init` command.
type Stadium struct {
	StadiumID int64
	Name      string
	TeamAbbr  string
	City      string
	Latitude  float64
	Longitude float64
}
