package models

import "time"

// Signal is the ordered recommendation tier a model assigns to a selection.
type Signal string

const (
	SignalBet  Signal = "BET"
	SignalLean Signal = "LEAN"
	SignalFade Signal = "FADE"
	SignalSkip Signal = "SKIP"
)

// ConfidenceBand is derived from the composite score and risk flag count.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "HIGH"
	BandMedium ConfidenceBand = "MEDIUM"
	BandLow    ConfidenceBand = "LOW"
)

// VisibilityTier is a marker column set by a fixed rule (spec.md §1 — not an
// auth/billing concept): FREE iff signal=BET and band=HIGH, else PRO.
type VisibilityTier string

const (
	TierFree VisibilityTier = "FREE"
	TierPro  VisibilityTier = "PRO"
)

// ScoreRunStatus tracks a ScoreRun's lifecycle: started -> finished | failed.
type ScoreRunStatus string

const (
	RunStarted  ScoreRunStatus = "started"
	RunFinished ScoreRunStatus = "finished"
	RunFailed   ScoreRunStatus = "failed"
)

// ScoreRun is the audit row for one scoring pass.
type ScoreRun struct {
	ID          int64
	RunType     string // "score" | "rescore_on_lineup" | "backtest"
	GameDate    string
	Market      string
	TriggeredBy string
	Status      ScoreRunStatus
	RowsScored  int
	StartedAt   time.Time
	FinishedAt  *time.Time
	MetadataJSON string
}

// ScoredSelection is the in-memory "draft" form of a scored row before it is
// persisted as a ModelScore; see spec.md §4.6's draft -> persisted -> graded
// state machine.
type ScoredSelection struct {
	Market       string
	GameID       int64
	GameDate     string
	EntityKind   string // "player" | "team" | "game"
	EntityID     int64
	TeamAbbr     string
	BetType      string
	Line         *float64
	SelectionKey string
	Side         string

	ModelScore     float64
	ModelProb      *float64
	ModelProjection *float64
	BookImpliedProb *float64
	Edge            *float64

	Signal         Signal
	ConfidenceBand ConfidenceBand
	VisibilityTier VisibilityTier

	Factors    map[string]float64
	Reasons    []string
	RiskFlags  []string

	LineupConfirmed bool
	WeatherFinal    bool
}

// ModelScore is the persisted selection row, unique by
// (market, game_id, entity, bet_type, line, score_run_id) with supersede
// semantics on the natural key (market, game_id, entity, bet_type, line).
type ModelScore struct {
	ID       int64
	ScoreRunID int64
	ScoredSelection
	IsActive bool
	CreatedAt time.Time
}
