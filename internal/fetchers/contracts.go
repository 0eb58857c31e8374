// Package fetchers pulls raw data from upstream APIs (MLB Stats API, The
// Odds API, a weather provider) and normalizes it into internal/models
// types, ready for the store layer to upsert. Every fetcher takes a
// context.Context and an *httpx.Client so callers control timeout/retry
// policy and cancellation uniformly, grounded on
// original_source/pipeline/fetchers/*.py's one-function-per-concern shape.
package fetchers

import "strings"

const (
	mlbStatsBase = "https://statsapi.mlb.com/api/v1"
	oddsAPIBase  = "https://api.the-odds-api.com/v4"
	weatherBase  = "https://api.openweathermap.org/data/2.5"
)

// teamAbbrs mirrors original_source/config.py's TEAM_ABBRS mapping from MLB
// Stats API full team names to the short codes used throughout mlbedge's
// selection keys and feature tables.
var teamAbbrs = map[string]string{
	"Arizona Diamondbacks": "ARI", "Atlanta Braves": "ATL",
	"Baltimore Orioles": "BAL", "Boston Red Sox": "BOS",
	"Chicago Cubs": "CHC", "Chicago White Sox": "CHW",
	"Cincinnati Reds": "CIN", "Cleveland Guardians": "CLE",
	"Colorado Rockies": "COL", "Detroit Tigers": "DET",
	"Houston Astros": "HOU", "Kansas City Royals": "KC",
	"Los Angeles Angels": "LAA", "Los Angeles Dodgers": "LAD",
	"Miami Marlins": "MIA", "Milwaukee Brewers": "MIL",
	"Minnesota Twins": "MIN", "New York Mets": "NYM",
	"New York Yankees": "NYY", "Oakland Athletics": "OAK",
	"Philadelphia Phillies": "PHI", "Pittsburgh Pirates": "PIT",
	"San Diego Padres": "SD", "San Francisco Giants": "SF",
	"Seattle Mariners": "SEA", "St. Louis Cardinals": "STL",
	"Tampa Bay Rays": "TB", "Texas Rangers": "TEX",
	"Toronto Blue Jays": "TOR", "Washington Nationals": "WSH",
}

// teamAbbr resolves a full MLB team name to its short code, passing through
// unrecognized names unchanged (matches TEAM_ABBRS.get(name, name)).
func teamAbbr(fullName string) string {
	if abbr, ok := teamAbbrs[fullName]; ok {
		return abbr
	}
	return fullName
}

// normalizeStatus maps an MLB Stats API detailedState string to a
// models.GameStatus value.
func normalizeStatus(detailedState string) string {
	s := strings.ToLower(detailedState)
	switch {
	case strings.Contains(s, "scheduled"), strings.Contains(s, "pre"):
		return "scheduled"
	case strings.Contains(s, "in progress"):
		return "live"
	case strings.Contains(s, "final"):
		return "final"
	case strings.Contains(s, "cancel"):
		return "cancelled"
	default:
		return s
	}
}
