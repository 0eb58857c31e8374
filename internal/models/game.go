// Package models holds the core persisted entities of the pipeline, keyed the
// way spec.md §3 requires: stable MLB integer ids for players/games/pitchers,
// short team abbreviations, and a game_date calendar key throughout.
package models

import "time"

// GameStatus tracks the forward-only status transition of a Game.
type GameStatus string

const (
	GameScheduled       GameStatus = "scheduled"
	GameFinal           GameStatus = "final"
	GameCancelled       GameStatus = "cancelled"
	GameCompletedEarly  GameStatus = "completed_early"
)

// Game is one scheduled or played contest, unique per (game_date, home_team,
// away_team); game_id is primary and stable across re-fetches.
type Game struct {
	GameID        int64
	GameDate      string // YYYY-MM-DD, league-local calendar date
	HomeTeam      string
	AwayTeam      string
	StadiumID     *int64
	HomePitcherID *int64
	AwayPitcherID *int64
	UmpireName    *string
	Status        GameStatus
	HomeScore     *int
	AwayScore     *int
	FirstPitch    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsFinal reports whether the game has a settleable result.
func (g Game) IsFinal() bool {
	return g.Status == GameFinal || g.Status == GameCancelled
}

// CanAdvanceTo enforces the forward-only status transition invariant from
// spec.md §4.2: scheduled -> final|cancelled|completed_early, and nothing
// moves backward to scheduled.
func (g Game) CanAdvanceTo(next GameStatus) bool {
	if g.Status == next {
		return true
	}
	if g.Status != GameScheduled {
		// Once in a terminal state, status does not revert.
		return false
	}
	switch next {
	case GameFinal, GameCancelled, GameCompletedEarly:
		return true
	default:
		return false
	}
}
