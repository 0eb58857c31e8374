package fetchers

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/url"
	"time"

	"github.com/fortuna/mlbedge/internal/httpx"
	"github.com/fortuna/mlbedge/internal/models"
)

// domedStadiums have weather held constant and irrelevant to scoring,
// ported verbatim from original_source/statcast.py's DOMED_STADIUMS.
var domedStadiums = map[string]bool{
	"ARI": true, "HOU": true, "MIA": true, "SEA": true, "TB": true, "TOR": true,
}

// stadiumCFBearing is degrees-from-North of the line from home plate to
// center field, ported verbatim from
// original_source/statcast.py's STADIUM_CF_BEARING.
var stadiumCFBearing = map[string]float64{
	"ARI": 0, "ATL": 195, "BAL": 0, "BOS": 200, "CHC": 20, "CHW": 200,
	"CIN": 185, "CLE": 175, "COL": 200, "DET": 210, "HOU": 0, "KC": 180,
	"LAA": 200, "LAD": 345, "MIA": 0, "MIL": 0, "MIN": 200, "NYM": 150,
	"NYY": 225, "OAK": 220, "PHI": 200, "PIT": 20, "SD": 200, "SF": 200,
	"SEA": 0, "STL": 195, "TB": 0, "TEX": 0, "TOR": 0, "WSH": 200,
}

// Weather HR/run multiplier constants, ported verbatim from
// original_source/config.py.
const (
	windOutMultiplier   = 1.15
	windInMultiplier    = 0.85
	windCrossMultiplier = 1.02
	tempHotThresholdF   = 75.0
	tempColdThresholdF  = 55.0
	tempHotMultiplier   = 1.08
	tempColdMultiplier  = 0.92
)

type weatherAPIResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
}

// FetchStadiumWeather pulls current conditions at a stadium's coordinates
// from OpenWeatherMap, or returns a fixed climate-controlled reading for
// domed stadiums, per original_source/statcast.py's fetch_game_weather.
func FetchStadiumWeather(ctx context.Context, client *httpx.Client, apiKey string, gameID, stadiumID int64, teamAbbr string, lat, lon float64) (*models.WeatherSnapshot, error) {
	now := time.Now().UTC()

	if domedStadiums[teamAbbr] {
		return &models.WeatherSnapshot{
			GameID: gameID, StadiumID: stadiumID,
			TempF: 72, WindMPH: 0, WindDirection: "dome",
			FetchedAt: now,
		}, nil
	}

	if apiKey == "" {
		log.Printf("⚠️  no WEATHER_API_KEY set — skipping weather fetch for stadium %d", stadiumID)
		return nil, nil
	}

	var resp weatherAPIResponse
	params := url.Values{
		"lat":   {fmt.Sprintf("%f", lat)},
		"lon":   {fmt.Sprintf("%f", lon)},
		"appid": {apiKey},
		"units": {"imperial"},
	}
	if err := client.GetJSON(ctx, weatherBase+"/weather", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}

	_, desc := WindHRImpact(resp.Wind.Speed, resp.Wind.Deg, teamAbbr)
	return &models.WeatherSnapshot{
		GameID:        gameID,
		StadiumID:     stadiumID,
		TempF:         resp.Main.Temp,
		WindMPH:       resp.Wind.Speed,
		WindDirection: desc,
		FetchedAt:     now,
	}, nil
}

// WindHRImpact returns the wind-driven HR multiplier and a short
// human-readable description, ported verbatim from
// original_source/statcast.py's get_wind_hr_impact.
func WindHRImpact(windSpeedMPH, windDirDeg float64, teamAbbr string) (float64, string) {
	if domedStadiums[teamAbbr] {
		return 1.0, "dome"
	}
	if windSpeedMPH < 5 {
		return 1.0, "calm"
	}

	cfBearing, ok := stadiumCFBearing[teamAbbr]
	if !ok {
		cfBearing = 180
	}

	windToward := math.Mod(windDirDeg+180, 360)
	angleDiff := math.Abs(windToward - cfBearing)
	if angleDiff > 180 {
		angleDiff = 360 - angleDiff
	}

	speedFactor := math.Min(windSpeedMPH/15.0, 1.5)

	switch {
	case angleDiff <= 45:
		impact := 1.0 + (windOutMultiplier-1.0)*speedFactor
		return round3(impact), fmt.Sprintf("out to CF (%.0fmph)", windSpeedMPH)
	case angleDiff >= 135:
		impact := 1.0 - (1.0-windInMultiplier)*speedFactor
		return round3(impact), fmt.Sprintf("in from CF (%.0fmph)", windSpeedMPH)
	default:
		impact := 1.0 + (windCrossMultiplier-1.0)*speedFactor
		if windToward > cfBearing {
			return round3(impact), fmt.Sprintf("cross L->R (%.0fmph)", windSpeedMPH)
		}
		return round3(impact), fmt.Sprintf("cross R->L (%.0fmph)", windSpeedMPH)
	}
}

// TempHRImpact returns the temperature-driven HR multiplier, ported
// verbatim from original_source/statcast.py's get_temp_hr_impact.
func TempHRImpact(tempF float64) float64 {
	switch {
	case tempF >= tempHotThresholdF:
		excess := math.Min((tempF-tempHotThresholdF)/20.0, 1.0)
		return 1.0 + (tempHotMultiplier-1.0)*excess
	case tempF <= tempColdThresholdF:
		deficit := math.Min((tempColdThresholdF-tempF)/20.0, 1.0)
		return 1.0 - (1.0-tempColdMultiplier)*deficit
	default:
		return 1.0
	}
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
