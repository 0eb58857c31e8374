package orchestrator

import (
	"context"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
)

const stadiumCacheKey = "mlbedge:stadiums:v1"
const stadiumCacheTTL = 6 * time.Hour

// loadStadiums reads the static stadium reference table the `init` command
// seeds, keyed by team abbreviation for the schedule fetcher and by
// stadium id for the weather fetcher. It is read-through cached (when
// o.Cache is non-nil) since every fetch stage call and every backfill
// Phase 1 chunk re-reads this same all-30-rows table unchanged for weeks
// at a time.
func (o *Orchestrator) loadStadiums(ctx context.Context) (map[string]models.Stadium, error) {
	var cached map[string]models.Stadium
	if o.Cache.GetJSON(ctx, stadiumCacheKey, &cached) {
		return cached, nil
	}

	rows, err := o.St.QueryContext(ctx, `SELECT stadium_id, name, team_abbr, city, latitude, longitude FROM stadiums`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.Stadium)
	for rows.Next() {
		var s models.Stadium
		if err := rows.Scan(&s.StadiumID, &s.Name, &s.TeamAbbr, &s.City, &s.Latitude, &s.Longitude); err != nil {
			return nil, err
		}
		out[s.TeamAbbr] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	o.Cache.SetJSON(ctx, stadiumCacheKey, out, stadiumCacheTTL)
	return out, nil
}

func stadiumIDByTeam(stadiums map[string]models.Stadium) map[string]int64 {
	out := make(map[string]int64, len(stadiums))
	for team, s := range stadiums {
		out[team] = s.StadiumID
	}
	return out
}
