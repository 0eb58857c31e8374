package normalize

import "github.com/fortuna/mlbedge/internal/models"

// MarkBestAvailable sets IsBestAvailable on the row with the highest implied
// payoff (lowest implied probability) per (game_date, selection_key), and
// clears it on every other row for that key, per spec.md §4.3.
func MarkBestAvailable(rows []models.MarketOdds) {
	type key struct {
		gameDate     string
		selectionKey string
	}
	bestIdx := make(map[key]int)
	for i, r := range rows {
		k := key{r.GameDate, r.SelectionKey}
		cur, ok := bestIdx[k]
		if !ok || r.ImpliedProb < rows[cur].ImpliedProb {
			bestIdx[k] = i
		}
	}
	for i := range rows {
		rows[i].IsBestAvailable = false
	}
	for _, i := range bestIdx {
		rows[i].IsBestAvailable = true
	}
}
