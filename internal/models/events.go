package models

import "time"

// PitchEvent is a raw pitch-level record sourced from the event provider,
// retained after rolling-stat derivation for backtest reproducibility. Its
// timestamp must never be associated with a date later than the game it
// belongs to (spec.md §3's PitchEvent invariant).
type PitchEvent struct {
	EventID      int64
	GameID       int64
	GameDate     string
	Timestamp    time.Time
	BatterID     int64
	PitcherID    int64
	BatterTeam   string
	PitcherTeam  string
	BatterHand   string // "L" | "R" | "S"
	PitcherHand  string // "L" | "R"
	PitchType    *string
	PitchVeloMPH *float64
	EventType    string // e.g. "single", "home_run", "strikeout", "walk", "field_out"
	Description  *string

	// Batted-ball quality, nil when the pitch was not put in play.
	ExitVeloMPH   *float64
	LaunchAngle   *float64
	HitDistanceFt *float64
	BattedBallType *string // "fly_ball" | "line_drive" | "ground_ball" | "popup"
	IsBarrel      *bool
	IsHardHit     *bool // exit velo >= 95mph
	IsPulled      *bool

	// Outcome flags, at most one true per plate-appearance-terminal event.
	IsPlateAppearance bool
	IsAtBat           bool
	IsHit             bool
	IsSingle          bool
	IsDouble          bool
	IsTriple          bool
	IsHomeRun         bool
	IsWalk            bool
	IsStrikeout       bool
	IsRBI             bool
	RBICount          int
	IsRun             bool

	InningNumber    int
	BattersFacedTTO int // times-through-the-order index for the pitcher, 1-based
	OutsRecorded    int // outs recorded on this event, 0 or more
}

// OccursBefore reports whether this event's game_date is strictly earlier
// than the given as-of date D, the no-lookahead test every window query uses.
func (e PitchEvent) OccursBefore(asOfDate string) bool {
	return e.GameDate < asOfDate
}
