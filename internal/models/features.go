package models

// BatterDailyFeatures is unique by (game_date, entity_id) and is the batter
// feature row market models read. Nil fields mean "fewer than the minimum PA
// for that window" — per spec.md §4.4, missing windows are null, not zero.
type BatterDailyFeatures struct {
	GameDate string
	PlayerID int64
	TeamAbbr string

	PA7, PA14, PA30 int

	KPct7, KPct14, KPct30    *float64
	BBPct7, BBPct14, BBPct30 *float64

	Barrel7, Barrel14, Barrel30         *float64
	HardHit7, HardHit14, HardHit30      *float64
	ExitVelo7, ExitVelo14, ExitVelo30    *float64
	LaunchAngle7, LaunchAngle14, LaunchAngle30 *float64
	SweetSpot7, SweetSpot14, SweetSpot30 *float64

	FlyBallPct7, LineDrivePct7, GroundBallPct7, PullPct7       *float64
	FlyBallPct14, LineDrivePct14, GroundBallPct14, PullPct14   *float64
	FlyBallPct30, LineDrivePct30, GroundBallPct30, PullPct30   *float64

	ISO7, ISO14, ISO30       *float64
	SLG7, SLG14, SLG30       *float64
	TBPerPA7, TBPerPA14, TBPerPA30 *float64

	BA7, BA14, BA30               *float64
	HitRate7, HitRate14, HitRate30 *float64
	HRRate7, HRRate14, HRRate30    *float64
	SinglesRate7, DoublesRate7, TriplesRate7    *float64
	SinglesRate14, DoublesRate14, TriplesRate14 *float64
	SinglesRate30, DoublesRate30, TriplesRate30 *float64
	RBIRate7, RunRate7, WalkRate7    *float64
	RBIRate14, RunRate14, WalkRate14 *float64
	RBIRate30, RunRate30, WalkRate30 *float64

	ISOvsL, ISOvsR           *float64
	HitRateVsL, HitRateVsR   *float64
	KPctVsL, KPctVsR         *float64

	HotColdISODelta      *float64 // iso_7 - iso_30
	HotColdHitRateDelta  *float64 // hit_rate_7 - hit_rate_30

	RecentLineupSlot *int
}

// PitcherDailyFeatures is unique by (game_date, entity_id).
type PitcherDailyFeatures struct {
	GameDate string
	PlayerID int64
	TeamAbbr string

	BattersFaced14, BattersFaced30 *float64
	KPct14, KPct30                 *float64
	BBPct14, BBPct30               *float64
	HR9_14, HR9_30                 *float64
	HRFB14, HRFB30                 *float64
	HardHitAllowed14, HardHitAllowed30 *float64
	BarrelAllowed14, BarrelAllowed30   *float64
	ExitVeloAllowed14, ExitVeloAllowed30 *float64
	FlyBallAllowed14, FlyBallAllowed30   *float64
	WhiffPct14, WhiffPct30               *float64
	ChasePct14, ChasePct30                *float64

	FastballVeloMPH   *float64
	VeloTrendDelta    *float64 // current start velo vs season average

	OutsRecordedAvgLast5 *float64
	PitchesAvgLast5      *float64
	StarterRoleConfidence float64 // [0,1]

	KPctVsL, KPctVsR   *float64
	BBPctVsL, BBPctVsR *float64
	HR9VsL, HR9VsR     *float64

	TTOKDecayPct      *float64
	TTOHRIncreasePct  *float64
	TTOEnduranceScore *float64
}

// TeamDailyFeatures is unique by (game_date, entity_id).
type TeamDailyFeatures struct {
	GameDate string
	TeamAbbr string

	OffenseKPct14, OffenseKPct30     *float64
	OffenseBBPct14, OffenseBBPct30   *float64
	OffenseBA14, OffenseBA30         *float64
	OffenseOBP14, OffenseOBP30       *float64
	OffenseSLG14, OffenseSLG30       *float64
	OffenseISO14, OffenseISO30       *float64
	OffenseHitRate14, OffenseHitRate30 *float64
	OffenseTBPerPA14, OffenseTBPerPA30 *float64
	RunsPerGame14, RunsPerGame30       *float64
	HRRate14, HRRate30                 *float64

	BullpenERA14, BullpenWHIP14   *float64
	BullpenKPct14, BullpenHR914   *float64
	HighLeverageBullpenTier       *string // "elite" | "average" | "weak", nil if undetermined
}

// GameContextFeatures is unique by (game_date, game_id).
type GameContextFeatures struct {
	GameDate string
	GameID   int64

	ParkHRFactor    *float64
	ParkRunsFactor  *float64
	ParkHitsFactor  *float64

	TempF              *float64
	WindMPH            *float64
	WindDirection      *string // "out" | "in" | "cross"
	WeatherHRMultiplier *float64
	WeatherRunsMultiplier *float64

	UmpireKBoost        *float64
	UmpireRunEnvironment *float64

	HomeLineupConfirmed bool
	AwayLineupConfirmed bool
	IsDayGame           bool

	IsFinalContext bool // lineups(both) + weather + probable pitchers all present
}
