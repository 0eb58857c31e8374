package pipeline

import (
	"testing"

	"github.com/fortuna/mlbedge/internal/models"
)

func TestResolveGameMarketOddsDropsPlayerProps(t *testing.T) {
	games := []models.Game{{GameID: 1, HomeTeam: "NYY", AwayTeam: "BOS"}}
	rows := []models.MarketOdds{{Market: "HR", BetType: "Aaron Judge Over"}}
	got := ResolveGameMarketOdds(games, rows)
	if len(got) != 0 {
		t.Fatalf("expected player props dropped, got %d rows", len(got))
	}
}

func TestResolveGameMarketOddsMatchesMoneyline(t *testing.T) {
	games := []models.Game{{GameID: 42, HomeTeam: "NYY", AwayTeam: "BOS"}}
	rows := []models.MarketOdds{{Market: "ML", BetType: "NYY"}}
	got := ResolveGameMarketOdds(games, rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 resolved row, got %d", len(got))
	}
	if got[0].GameID != 42 || got[0].EntityKind != "game" || got[0].EntityID != 42 {
		t.Errorf("unexpected resolution: %+v", got[0])
	}
	if got[0].SelectionKey == "" {
		t.Error("expected non-empty selection key")
	}
}

func TestResolveGameMarketOddsNoMatchDropsRow(t *testing.T) {
	games := []models.Game{{GameID: 1, HomeTeam: "NYY", AwayTeam: "BOS"}}
	rows := []models.MarketOdds{{Market: "TOTAL", BetType: "Over", Line: nil}}
	got := ResolveGameMarketOdds(games, rows)
	if len(got) != 0 {
		t.Fatalf("expected no match, got %d rows", len(got))
	}
}
