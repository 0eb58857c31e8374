package models

import "time"

// MarketOutcome is the realized result for a selection key, written once per
// selection when its game is final/cancelled.
type MarketOutcome struct {
	GameDate     string
	Market       string
	GameID       int64
	EntityKind   string
	EntityID     int64
	SelectionKey string
	OutcomeValue *float64 // numeric realized value (HR count, Ks, runs, etc.)
	OutcomeText  *string
	SettledAt    time.Time
}

// BetStatus is the settlement state of a logged wager.
type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWin     BetStatus = "win"
	BetLoss    BetStatus = "loss"
	BetPush    BetStatus = "push"
	BetVoid    BetStatus = "void"
)

// Bet is a logged wager against a selection, with open/close odds and
// derived CLV fields.
type Bet struct {
	ID             int64
	SelectionKey   string
	Market         string
	GameID         int64
	GameDate       string
	Side           string
	Line           *float64
	Stake          float64
	OddsOpen       int
	ImpliedProbOpen float64
	PlacedAt       time.Time
}

// BetSettlement carries the mutable settlement fields of a Bet, separated
// from the immutable open-price fields above so the grader can update them
// independently (spec.md §3: "bets may re-settle only to correct errors").
type BetSettlement struct {
	BetID           int64
	Status          BetStatus
	ProfitUnits      *float64
	SettledAt        *time.Time
	ImpliedProbClose *float64
	CLVOpenToClose   *float64
	LineDelta        *float64
}

// ClosingLine is one row per selection per settled date.
type ClosingLine struct {
	GameDate     string
	SelectionKey string
	Sportsbook   string
	PriceAmerican int
	ImpliedProb  float64
	Line         *float64
	SnapshotAt   time.Time
	ClosedAt     time.Time
}
