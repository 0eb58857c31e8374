package normalize

import "testing"

import "github.com/fortuna/mlbedge/internal/models"

func TestMarkBestAvailablePicksLowestImpliedProb(t *testing.T) {
	rows := []models.MarketOdds{
		{GameDate: "2026-06-01", SelectionKey: "HR|player:1|YES", Sportsbook: "fanduel", ImpliedProb: 0.40},
		{GameDate: "2026-06-01", SelectionKey: "HR|player:1|YES", Sportsbook: "draftkings", ImpliedProb: 0.35},
		{GameDate: "2026-06-01", SelectionKey: "HR|player:1|YES", Sportsbook: "mgm", ImpliedProb: 0.42},
	}
	MarkBestAvailable(rows)
	for i, r := range rows {
		want := r.Sportsbook == "draftkings"
		if r.IsBestAvailable != want {
			t.Errorf("row %d (%s): IsBestAvailable=%v, want %v", i, r.Sportsbook, r.IsBestAvailable, want)
		}
	}
}

func TestMarkBestAvailableIsScopedPerGameDate(t *testing.T) {
	rows := []models.MarketOdds{
		{GameDate: "2026-06-01", SelectionKey: "HR|player:1|YES", Sportsbook: "a", ImpliedProb: 0.30},
		{GameDate: "2026-06-02", SelectionKey: "HR|player:1|YES", Sportsbook: "b", ImpliedProb: 0.50},
	}
	MarkBestAvailable(rows)
	if !rows[0].IsBestAvailable || !rows[1].IsBestAvailable {
		t.Fatal("expected each game_date's only row to be best available independently")
	}
}
