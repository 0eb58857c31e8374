package store

import (
	"context"
	"database/sql"
	"fmt"
)

// stadiumSeed is one row of static reference data loaded by the `init`
// command. HRFactor values are carried over verbatim from
// original_source/pipeline/utils/stadiums.py's STADIUMS table; RunsFactor and
// HitsFactor were not present in the original and are seeded at 1.00
// (neutral) pending a dedicated backtest, per the Design Notes in
// SPEC_FULL.md.
type stadiumSeed struct {
	StadiumID int64
	Name      string
	TeamAbbr  string
	City      string
	Latitude  float64
	Longitude float64
	HRFactor  float64
}

var stadiumSeeds = []stadiumSeed{
	{1, "Chase Field", "ARI", "Phoenix", 33.4455, -112.0667, 1.04},
	{2, "Truist Park", "ATL", "Atlanta", 33.8907, -84.4677, 1.00},
	{3, "Camden Yards", "BAL", "Baltimore", 39.2838, -76.6218, 1.12},
	{4, "Fenway Park", "BOS", "Boston", 42.3467, -71.0972, 1.05},
	{5, "Wrigley Field", "CHC", "Chicago", 41.9484, -87.6553, 1.06},
	{6, "Guaranteed Rate Field", "CHW", "Chicago", 41.8299, -87.6338, 1.08},
	{7, "Great American Ball Park", "CIN", "Cincinnati", 39.0975, -84.5070, 1.18},
	{8, "Progressive Field", "CLE", "Cleveland", 41.4959, -81.6852, 0.96},
	{9, "Coors Field", "COL", "Denver", 39.7559, -104.9942, 1.38},
	{10, "Comerica Park", "DET", "Detroit", 42.3390, -83.0485, 0.91},
	{11, "Minute Maid Park", "HOU", "Houston", 29.7573, -95.3555, 1.04},
	{12, "Kauffman Stadium", "KC", "Kansas City", 39.0517, -94.4803, 0.88},
	{13, "Angel Stadium", "LAA", "Anaheim", 33.8003, -117.8827, 0.95},
	{14, "Dodger Stadium", "LAD", "Los Angeles", 34.0739, -118.2400, 0.93},
	{15, "LoanDepot Park", "MIA", "Miami", 25.7781, -80.2196, 0.82},
	{16, "American Family Field", "MIL", "Milwaukee", 43.0280, -87.9712, 1.02},
	{17, "Target Field", "MIN", "Minneapolis", 44.9817, -93.2776, 0.94},
	{18, "Citi Field", "NYM", "New York", 40.7571, -73.8458, 0.89},
	{19, "Yankee Stadium", "NYY", "New York", 40.8296, -73.9262, 1.15},
	{20, "Sutter Health Park", "OAK", "West Sacramento", 38.5802, -121.5111, 1.00},
	{21, "Citizens Bank Park", "PHI", "Philadelphia", 39.9061, -75.1665, 1.10},
	{22, "PNC Park", "PIT", "Pittsburgh", 40.4469, -80.0058, 0.85},
	{23, "Petco Park", "SD", "San Diego", 32.7076, -117.1570, 0.88},
	{24, "Oracle Park", "SF", "San Francisco", 37.7786, -122.3893, 0.83},
	{25, "T-Mobile Park", "SEA", "Seattle", 47.5914, -122.3325, 0.90},
	{26, "Busch Stadium", "STL", "St. Louis", 38.6226, -90.1928, 0.96},
	{27, "Tropicana Field", "TB", "St. Petersburg", 27.7682, -82.6534, 0.91},
	{28, "Globe Life Field", "TEX", "Arlington", 32.7474, -97.0845, 0.97},
	{29, "Rogers Centre", "TOR", "Toronto", 43.6414, -79.3894, 1.05},
	{30, "Nationals Park", "WSH", "Washington", 38.8730, -77.0074, 0.98},
}

// CurrentSeason is used to seed park_factors; a new season's factors are
// expected to be loaded by a future `init --season` run rather than a
// migration.
const CurrentSeason = 2026

// SeedReferenceData loads the static stadium and park-factor tables used by
// the `init` command, grounded on original_source/pipeline/utils/stadiums.py.
func (s *Store) SeedReferenceData(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stadiumRows := make([]UpsertRow, 0, len(stadiumSeeds))
		parkFactorRows := make([]UpsertRow, 0, len(stadiumSeeds))
		for _, st := range stadiumSeeds {
			stadiumRows = append(stadiumRows, UpsertRow{
				Columns: []string{"stadium_id", "name", "team_abbr", "city", "latitude", "longitude"},
				Values:  []any{st.StadiumID, st.Name, st.TeamAbbr, st.City, st.Latitude, st.Longitude},
			})
			parkFactorRows = append(parkFactorRows, UpsertRow{
				Columns: []string{"stadium_id", "season", "hr_factor", "runs_factor", "hits_factor"},
				Values:  []any{st.StadiumID, CurrentSeason, st.HRFactor, 1.00, 1.00},
			})
		}
		if _, err := s.BatchUpsert(ctx, tx, "stadiums", stadiumRows, []string{"stadium_id"}); err != nil {
			return fmt.Errorf("seed stadiums: %w", err)
		}
		if _, err := s.BatchUpsert(ctx, tx, "park_factors", parkFactorRows, []string{"stadium_id", "season"}); err != nil {
			return fmt.Errorf("seed park factors: %w", err)
		}
		return nil
	})
}
