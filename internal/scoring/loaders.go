package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/store"
)

// LoadGamesForDate returns every scheduled game on gameDate, ordered by
// game_id, grounded on base_engine.py's load_today_games.
func LoadGamesForDate(ctx context.Context, st *store.Store, gameDate string) ([]models.Game, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT game_id, home_team, away_team, stadium_id, home_pitcher_id, away_pitcher_id,
			umpire_name, status, home_score, away_score, first_pitch
		FROM games
		WHERE game_date = $1
		ORDER BY game_id
	`), gameDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Game
	for rows.Next() {
		var g models.Game
		var stadiumID, homePitcher, awayPitcher sql.NullInt64
		var umpireName sql.NullString
		var homeScore, awayScore sql.NullInt64
		var firstPitch sql.NullTime
		if err := rows.Scan(&g.GameID, &g.HomeTeam, &g.AwayTeam, &stadiumID, &homePitcher, &awayPitcher,
			&umpireName, &g.Status, &homeScore, &awayScore, &firstPitch); err != nil {
			return nil, err
		}
		g.GameDate = gameDate
		if stadiumID.Valid {
			v := stadiumID.Int64
			g.StadiumID = &v
		}
		if homePitcher.Valid {
			v := homePitcher.Int64
			g.HomePitcherID = &v
		}
		if awayPitcher.Valid {
			v := awayPitcher.Int64
			g.AwayPitcherID = &v
		}
		if umpireName.Valid {
			v := umpireName.String
			g.UmpireName = &v
		}
		if homeScore.Valid {
			v := int(homeScore.Int64)
			g.HomeScore = &v
		}
		if awayScore.Valid {
			v := int(awayScore.Int64)
			g.AwayScore = &v
		}
		if firstPitch.Valid {
			v := firstPitch.Time
			g.FirstPitch = &v
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// OpponentPitcherID returns the probable starter facing a team, per
// hits_model.py's _infer_opp_pitcher.
func OpponentPitcherID(game models.Game, teamAbbr string) *int64 {
	switch teamAbbr {
	case game.HomeTeam:
		return game.AwayPitcherID
	case game.AwayTeam:
		return game.HomePitcherID
	default:
		return nil
	}
}

// PitcherHand returns the most recently observed throwing hand for a
// pitcher, derived from pitch_events since this schema has no standalone
// pitcher-reference table carrying a stable hand column.
func PitcherHand(ctx context.Context, st *store.Store, pitcherID int64) (string, bool) {
	var hand sql.NullString
	err := st.QueryRowContext(ctx, st.Rebind(`
		SELECT pitcher_hand FROM pitch_events
		WHERE pitcher_id = $1 AND pitcher_hand IS NOT NULL
		ORDER BY "timestamp" DESC
		LIMIT 1
	`), pitcherID).Scan(&hand)
	if err != nil || !hand.Valid {
		return "", false
	}
	return hand.String, true
}

// LoadBatterFeatures fetches one batter's daily feature row.
func LoadBatterFeatures(ctx context.Context, st *store.Store, gameDate string, playerID int64) (*models.BatterDailyFeatures, error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT game_date, player_id, team_abbr,
			pa_7, pa_14, pa_30,
			k_pct_7, k_pct_14, k_pct_30, bb_pct_7, bb_pct_14, bb_pct_30,
			barrel_7, barrel_14, barrel_30, hard_hit_7, hard_hit_14, hard_hit_30,
			iso_7, iso_14, iso_30, slg_7, slg_14, slg_30,
			ba_7, ba_14, ba_30, hit_rate_7, hit_rate_14, hit_rate_30, hr_rate_7, hr_rate_14, hr_rate_30,
			iso_vs_l, iso_vs_r, hit_rate_vs_l, hit_rate_vs_r, k_pct_vs_l, k_pct_vs_r,
			hot_cold_iso_delta, hot_cold_hit_rate_delta, recent_lineup_slot
		FROM batter_daily_features
		WHERE game_date = $1 AND player_id = $2
	`), gameDate, playerID)

	var f models.BatterDailyFeatures
	var recentSlot sql.NullInt64
	err := row.Scan(&f.GameDate, &f.PlayerID, &f.TeamAbbr,
		&f.PA7, &f.PA14, &f.PA30,
		&f.KPct7, &f.KPct14, &f.KPct30, &f.BBPct7, &f.BBPct14, &f.BBPct30,
		&f.Barrel7, &f.Barrel14, &f.Barrel30, &f.HardHit7, &f.HardHit14, &f.HardHit30,
		&f.ISO7, &f.ISO14, &f.ISO30, &f.SLG7, &f.SLG14, &f.SLG30,
		&f.BA7, &f.BA14, &f.BA30, &f.HitRate7, &f.HitRate14, &f.HitRate30, &f.HRRate7, &f.HRRate14, &f.HRRate30,
		&f.ISOvsL, &f.ISOvsR, &f.HitRateVsL, &f.HitRateVsR, &f.KPctVsL, &f.KPctVsR,
		&f.HotColdISODelta, &f.HotColdHitRateDelta, &recentSlot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if recentSlot.Valid {
		v := int(recentSlot.Int64)
		f.RecentLineupSlot = &v
	}
	return &f, nil
}

// LoadPitcherFeatures fetches one pitcher's daily feature row.
func LoadPitcherFeatures(ctx context.Context, st *store.Store, gameDate string, pitcherID int64) (*models.PitcherDailyFeatures, error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT game_date, player_id, team_abbr,
			batters_faced_14, batters_faced_30, k_pct_14, k_pct_30, bb_pct_14, bb_pct_30,
			hr_9_14, hr_9_30, hr_fb_14, hr_fb_30,
			hard_hit_allowed_14, hard_hit_allowed_30,
			fastball_velo_mph, velo_trend_delta,
			outs_recorded_avg_last_5, pitches_avg_last_5, starter_role_confidence,
			k_pct_vs_l, k_pct_vs_r, bb_pct_vs_l, bb_pct_vs_r, hr_9_vs_l, hr_9_vs_r,
			tto_k_decay_pct, tto_hr_increase_pct, tto_endurance_score
		FROM pitcher_daily_features
		WHERE game_date = $1 AND player_id = $2
	`), gameDate, pitcherID)

	var f models.PitcherDailyFeatures
	err := row.Scan(&f.GameDate, &f.PlayerID, &f.TeamAbbr,
		&f.BattersFaced14, &f.BattersFaced30, &f.KPct14, &f.KPct30, &f.BBPct14, &f.BBPct30,
		&f.HR9_14, &f.HR9_30, &f.HRFB14, &f.HRFB30,
		&f.HardHitAllowed14, &f.HardHitAllowed30,
		&f.FastballVeloMPH, &f.VeloTrendDelta,
		&f.OutsRecordedAvgLast5, &f.PitchesAvgLast5, &f.StarterRoleConfidence,
		&f.KPctVsL, &f.KPctVsR, &f.BBPctVsL, &f.BBPctVsR, &f.HR9VsL, &f.HR9VsR,
		&f.TTOKDecayPct, &f.TTOHRIncreasePct, &f.TTOEnduranceScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadTeamFeatures fetches one team's daily feature row.
func LoadTeamFeatures(ctx context.Context, st *store.Store, gameDate, teamAbbr string) (*models.TeamDailyFeatures, error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT game_date, team_abbr,
			offense_k_pct_14, offense_k_pct_30, offense_bb_pct_14, offense_bb_pct_30,
			offense_ba_14, offense_ba_30, offense_obp_14, offense_obp_30,
			offense_slg_14, offense_slg_30, offense_iso_14, offense_iso_30,
			offense_hit_rate_14, offense_hit_rate_30, offense_tb_per_pa_14, offense_tb_per_pa_30,
			runs_per_game_14, runs_per_game_30, hr_rate_14, hr_rate_30,
			bullpen_era_14, bullpen_whip_14, bullpen_k_pct_14, bullpen_hr9_14,
			high_leverage_bullpen_tier
		FROM team_daily_features
		WHERE game_date = $1 AND team_abbr = $2
	`), gameDate, teamAbbr)

	var f models.TeamDailyFeatures
	err := row.Scan(&f.GameDate, &f.TeamAbbr,
		&f.OffenseKPct14, &f.OffenseKPct30, &f.OffenseBBPct14, &f.OffenseBBPct30,
		&f.OffenseBA14, &f.OffenseBA30, &f.OffenseOBP14, &f.OffenseOBP30,
		&f.OffenseSLG14, &f.OffenseSLG30, &f.OffenseISO14, &f.OffenseISO30,
		&f.OffenseHitRate14, &f.OffenseHitRate30, &f.OffenseTBPerPA14, &f.OffenseTBPerPA30,
		&f.RunsPerGame14, &f.RunsPerGame30, &f.HRRate14, &f.HRRate30,
		&f.BullpenERA14, &f.BullpenWHIP14, &f.BullpenKPct14, &f.BullpenHR914,
		&f.HighLeverageBullpenTier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadGameContext fetches one game's context feature row.
func LoadGameContext(ctx context.Context, st *store.Store, gameDate string, gameID int64) (*models.GameContextFeatures, error) {
	row := st.QueryRowContext(ctx, st.Rebind(`
		SELECT game_date, game_id, park_hr_factor, park_runs_factor, park_hits_factor,
			temp_f, wind_mph, wind_direction, weather_hr_multiplier, weather_runs_multiplier,
			umpire_k_boost, umpire_run_environment,
			home_lineup_confirmed, away_lineup_confirmed, is_day_game, is_final_context
		FROM game_context_features
		WHERE game_date = $1 AND game_id = $2
	`), gameDate, gameID)

	var f models.GameContextFeatures
	err := row.Scan(&f.GameDate, &f.GameID, &f.ParkHRFactor, &f.ParkRunsFactor, &f.ParkHitsFactor,
		&f.TempF, &f.WindMPH, &f.WindDirection, &f.WeatherHRMultiplier, &f.WeatherRunsMultiplier,
		&f.UmpireKBoost, &f.UmpireRunEnvironment,
		&f.HomeLineupConfirmed, &f.AwayLineupConfirmed, &f.IsDayGame, &f.IsFinalContext)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadBestOdds returns the best-available market_odds rows for one market
// and game, keyed by entity_id, per base_engine.py's get_best_hr_odds
// generalized across markets (normalize.MarkBestAvailable already resolved
// which row per selection_key is best before this read).
func LoadBestOdds(ctx context.Context, st *store.Store, gameDate, market string, gameID int64) ([]models.MarketOdds, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT id, market, game_id, game_date, entity_kind, entity_id, bet_type, line,
			selection_key, sportsbook, price_american, implied_prob, is_best_available, fetched_at
		FROM market_odds
		WHERE game_date = $1 AND market = $2 AND game_id = $3 AND is_best_available = TRUE
	`), gameDate, market, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MarketOdds
	for rows.Next() {
		var o models.MarketOdds
		if err := rows.Scan(&o.ID, &o.Market, &o.GameID, &o.GameDate, &o.EntityKind, &o.EntityID, &o.BetType, &o.Line,
			&o.SelectionKey, &o.Sportsbook, &o.PriceAmerican, &o.ImpliedProb, &o.IsBestAvailable, &o.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// BatterUniverseEntry is one batter eligible to be scored for a game, drawn
// from the most recent lineup snapshot per team rather than from odds, per
// base_engine.py's get_batter_universe ("build player universe from
// features, not odds").
type BatterUniverseEntry struct {
	PlayerID           int64
	TeamAbbr           string
	OpponentTeamAbbr   string
	BattingOrder       *int
	LineupConfirmed    bool
}

// LoadBatterUniverse returns every lineup-slotted batter for both sides of a
// game from the latest active lineup_snapshots rows.
func LoadBatterUniverse(ctx context.Context, st *store.Store, gameID int64, homeTeam, awayTeam string) ([]BatterUniverseEntry, error) {
	rows, err := st.QueryContext(ctx, st.Rebind(`
		SELECT team_abbr, batting_order_json, active_version
		FROM lineup_snapshots
		WHERE game_id = $1 AND active_version = TRUE
	`), gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatterUniverseEntry
	for rows.Next() {
		var teamAbbr, battingOrderJSON string
		var active bool
		if err := rows.Scan(&teamAbbr, &battingOrderJSON, &active); err != nil {
			return nil, err
		}
		opponent := awayTeam
		if teamAbbr == awayTeam {
			opponent = homeTeam
		}
		var slots []models.LineupSlot
		if err := json.Unmarshal([]byte(battingOrderJSON), &slots); err != nil {
			continue
		}
		for _, slot := range slots {
			order := slot.Slot
			out = append(out, BatterUniverseEntry{
				PlayerID:         slot.PlayerID,
				TeamAbbr:         teamAbbr,
				OpponentTeamAbbr: opponent,
				BattingOrder:     &order,
				LineupConfirmed:  active,
			})
		}
	}
	return out, rows.Err()
}

// InsertScoreRun persists a ScoreRun audit row and returns its id, per
// spec.md §4.6's per-(date,market) run bookkeeping.
func InsertScoreRun(ctx context.Context, st *store.Store, runType, gameDate, market, triggeredBy string, startedAt time.Time) (int64, error) {
	id := store.NewID()
	_, err := st.ExecContext(ctx, st.Rebind(`
		INSERT INTO score_runs (id, run_type, game_date, market, triggered_by, status, rows_scored, started_at, metadata_json)
		VALUES ($1, $2, $3, $4, $5, 'started', 0, $6, '{}')
	`), id, runType, gameDate, market, triggeredBy, startedAt)
	return id, err
}

// FinishScoreRun marks a ScoreRun finished or failed and records the row count.
func FinishScoreRun(ctx context.Context, st *store.Store, runID int64, status models.ScoreRunStatus, rowsScored int, finishedAt time.Time) error {
	_, err := st.ExecContext(ctx, st.Rebind(`
		UPDATE score_runs SET status = $1, rows_scored = $2, finished_at = $3
		WHERE id = $4
	`), status, rowsScored, finishedAt, runID)
	return err
}

// PersistScoredSelections writes a batch of draft selections as model_scores
// rows, superseding any prior active row sharing the same natural key
// (market, game_id, entity_id, bet_type, line) by flipping is_active to
// false first — the "draft -> persisted -> graded" supersede semantics from
// spec.md §4.6, generalizing the single-statement ON CONFLICT upsert the
// feature builders use (model_scores has no natural-key unique constraint,
// since a row's natural key intentionally spans multiple columns including
// a nullable one).
func PersistScoredSelections(ctx context.Context, st *store.Store, runID int64, selections []models.ScoredSelection, createdAt time.Time) (int, error) {
	if len(selections) == 0 {
		return 0, nil
	}
	written := 0
	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, sel := range selections {
			supersedeQuery := `
				UPDATE model_scores SET is_active = FALSE
				WHERE market = $1 AND game_id = $2 AND entity_id = $3 AND bet_type = $4
					AND is_active = TRUE AND `
			var err error
			if sel.Line == nil {
				_, err = tx.ExecContext(ctx, st.Rebind(supersedeQuery+"line IS NULL"),
					sel.Market, sel.GameID, sel.EntityID, sel.BetType)
			} else {
				_, err = tx.ExecContext(ctx, st.Rebind(supersedeQuery+"line = $5"),
					sel.Market, sel.GameID, sel.EntityID, sel.BetType, *sel.Line)
			}
			if err != nil {
				return err
			}

			factorsJSON, err := json.Marshal(sel.Factors)
			if err != nil {
				return err
			}
			reasonsJSON, err := json.Marshal(sel.Reasons)
			if err != nil {
				return err
			}
			riskFlagsJSON, err := json.Marshal(sel.RiskFlags)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, st.Rebind(`
				INSERT INTO model_scores (
					id, score_run_id, market, game_id, game_date, entity_kind, entity_id, team_abbr,
					bet_type, line, selection_key, side, model_score, model_prob, model_projection,
					book_implied_prob, edge, signal, confidence_band, visibility_tier,
					factors_json, reasons_json, risk_flags_json, lineup_confirmed, weather_final,
					is_active, created_at
				) VALUES (
					$1, $2, $3, $4, $5, $6, $7, $8,
					$9, $10, $11, $12, $13, $14, $15,
					$16, $17, $18, $19, $20,
					$21, $22, $23, $24, $25,
					TRUE, $26
				)
			`), store.NewID(), runID, sel.Market, sel.GameID, sel.GameDate, sel.EntityKind, sel.EntityID, sel.TeamAbbr,
				sel.BetType, sel.Line, sel.SelectionKey, sel.Side, sel.ModelScore, sel.ModelProb, sel.ModelProjection,
				sel.BookImpliedProb, sel.Edge, sel.Signal, sel.ConfidenceBand, sel.VisibilityTier,
				string(factorsJSON), string(reasonsJSON), string(riskFlagsJSON), sel.LineupConfirmed, sel.WeatherFinal,
				createdAt); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	return written, err
}
