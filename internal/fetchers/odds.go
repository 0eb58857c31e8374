package fetchers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/fortuna/mlbedge/internal/httpx"
	"github.com/fortuna/mlbedge/internal/models"
	"github.com/fortuna/mlbedge/internal/normalize"
	"github.com/fortuna/mlbedge/internal/oddsmath"
)

var marketKeys = normalize.NewMarketKeyRegistry()

type oddsEvent struct {
	ID string `json:"id"`
}

type oddsEventOdds struct {
	Bookmakers []struct {
		Key     string `json:"key"`
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Description string   `json:"description"`
				Name        string   `json:"name"`
				Price       int      `json:"price"`
				Point       *float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// OddsMarketMapping describes how one spec.md market maps to The Odds API's
// market key and bet-type semantics. Only a handful of markets (HR, totals,
// ML) have liquid props at The Odds API; others are scored off model-only
// projections with no book line, per spec.md §4.3's "book line optional"
// note.
type OddsMarketMapping struct {
	Market        string
	OddsAPIKey    string // e.g. "batter_home_runs"
	OverOutcome   string // outcome name meaning YES/Over
}

// DefaultOddsMappings is the set of markets fetched from The Odds API,
// grounded on original_source/pipeline/fetchers/odds.py's single
// "batter_home_runs" market — generalized to every market with a liquid
// Odds API equivalent.
var DefaultOddsMappings = []OddsMarketMapping{
	{Market: "HR", OddsAPIKey: "batter_home_runs", OverOutcome: "over"},
	{Market: "TOTAL", OddsAPIKey: "totals", OverOutcome: "over"},
	{Market: "ML", OddsAPIKey: "h2h", OverOutcome: ""},
}

// FetchMarketOdds pulls sportsbook prices for one market across every event
// on apiKey's sport, grounded on
// original_source/pipeline/fetchers/odds.py's fetch_hr_props. The returned
// rows carry implied probability pre-computed via oddsmath, but no game_id
// or entity_id resolution — that is the caller's job (matching by team/player
// name against the day's slate), since The Odds API has no MLB player ID.
func FetchMarketOdds(ctx context.Context, client *httpx.Client, apiKey, sport string, mapping OddsMarketMapping, gameDate string) ([]models.MarketOdds, error) {
	if apiKey == "" {
		log.Printf("⚠️  no ODDS_API_KEY set — skipping odds fetch for %s", mapping.Market)
		return nil, nil
	}

	var events []oddsEvent
	eventsURL := fmt.Sprintf("%s/sports/%s/events", oddsAPIBase, sport)
	if err := client.GetJSON(ctx, eventsURL, url.Values{"apiKey": {apiKey}, "dateFormat": {"iso"}}, &events); err != nil {
		return nil, fmt.Errorf("fetch odds events: %w", err)
	}

	now := time.Now().UTC()
	var rows []models.MarketOdds
	for _, ev := range events {
		var oddsResp oddsEventOdds
		propsURL := fmt.Sprintf("%s/sports/%s/events/%s/odds", oddsAPIBase, sport, ev.ID)
		params := url.Values{
			"apiKey":     {apiKey},
			"regions":    {"us"},
			"markets":    {mapping.OddsAPIKey},
			"dateFormat": {"iso"},
			"oddsFormat": {"american"},
		}
		if err := client.GetJSON(ctx, propsURL, params, &oddsResp); err != nil {
			log.Printf("⚠️  could not fetch %s odds for event %s: %v", mapping.Market, ev.ID, err)
			continue
		}

		for _, bm := range oddsResp.Bookmakers {
			for _, mkt := range bm.Markets {
				marketCode, ok := marketKeys.Resolve(mkt.Key)
				if !ok || marketCode != mapping.Market {
					continue
				}
				for _, outcome := range mkt.Outcomes {
					implied, err := oddsmath.AmericanToImplied(outcome.Price)
					if err != nil {
						continue
					}
					rows = append(rows, models.MarketOdds{
						Market:        marketCode,
						GameDate:      gameDate,
						BetType:       outcome.Name,
						Line:          outcome.Point,
						Sportsbook:    bm.Key,
						PriceAmerican: outcome.Price,
						ImpliedProb:   implied,
						FetchedAt:     now,
					})
				}
			}
		}
	}

	log.Printf("✓ collected %d %s odds rows", len(rows), mapping.Market)
	return rows, nil
}

