package models

import (
	"testing"

	"github.com/fortuna/mlbedge/internal/models"
)

func fp(x float64) *float64 { return &x }
func ip(x int) *int         { return &x }

func TestFirstNonNil(t *testing.T) {
	if got := firstNonNil(nil, fp(3)); got == nil || *got != 3 {
		t.Errorf("got %v, want 3", got)
	}
	if got := firstNonNil(fp(1), fp(2)); got == nil || *got != 1 {
		t.Errorf("got %v, want 1 (first wins)", got)
	}
	if got := firstNonNil(nil, nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestValueOr(t *testing.T) {
	if got := valueOr(nil, 7.0); got != 7.0 {
		t.Errorf("got %v, want 7", got)
	}
	if got := valueOr(fp(2.0), 7.0); got != 2.0 {
		t.Errorf("got %v, want 2", got)
	}
}

func TestTeamFromBetType(t *testing.T) {
	if got := teamFromBetType("TEAM_TOTAL_NYY_OVER", "NYY", "BOS"); got != "NYY" {
		t.Errorf("got %q, want NYY", got)
	}
	if got := teamFromBetType("TEAM_TOTAL_BOS_UNDER", "NYY", "BOS"); got != "BOS" {
		t.Errorf("got %q, want BOS", got)
	}
	if got := teamFromBetType("TEAM_TOTAL_LAD_OVER", "NYY", "BOS"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestContainsSubstring(t *testing.T) {
	if !containsSubstring("TEAM_TOTAL_NYY_OVER", "NYY") {
		t.Error("expected match")
	}
	if containsSubstring("TEAM_TOTAL_NYY_OVER", "LAD") {
		t.Error("expected no match")
	}
	if containsSubstring("anything", "") {
		t.Error("empty substr should never match")
	}
}

func TestWeightedSum(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.5}
	got := weightedSum(map[string]float64{"a": 60, "b": 80}, weights)
	if got != 70 {
		t.Errorf("got %v, want 70", got)
	}
}

func TestWeightedSumMissingFactorTreatedNeutral(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.5}
	got := weightedSum(map[string]float64{"a": 100}, weights)
	if got != 75 {
		t.Errorf("got %v, want 75 (b defaults to 50)", got)
	}
}

func TestWeightedSumClamps(t *testing.T) {
	weights := map[string]float64{"a": 2.0}
	got := weightedSum(map[string]float64{"a": 100}, weights)
	if got != 100 {
		t.Errorf("got %v, want clamped to 100", got)
	}
}

func TestPAExpectation(t *testing.T) {
	if got := paExpectation(nil); got != 4.1 {
		t.Errorf("got %v, want 4.1 default", got)
	}
	if got := paExpectation(ip(1)); got != 4.8 {
		t.Errorf("got %v, want 4.8 for leadoff", got)
	}
	if got := paExpectation(ip(99)); got != 4.1 {
		t.Errorf("got %v, want 4.1 fallback for unknown slot", got)
	}
}

func TestTBPAExpectation(t *testing.T) {
	if got := tbPAExpectation(nil); got != 4.05 {
		t.Errorf("got %v, want 4.05 default", got)
	}
	if got := tbPAExpectation(ip(1)); got != 4.8 {
		t.Errorf("got %v, want 4.8 for leadoff", got)
	}
	if got := tbPAExpectation(ip(99)); got != 4.05 {
		t.Errorf("got %v, want 4.05 fallback", got)
	}
}

func TestPoissonProbAtMostZeroLambda(t *testing.T) {
	if got := poissonProbAtMost(0, 0); got != 1.0 {
		t.Errorf("got %v, want 1.0", got)
	}
	if got := poissonProbAtMost(-1, 0); got != 0.0 {
		t.Errorf("got %v, want 0.0", got)
	}
}

func TestPoissonProbAtMostMonotonicInK(t *testing.T) {
	a := poissonProbAtMost(0, 1.5)
	b := poissonProbAtMost(1, 1.5)
	c := poissonProbAtMost(5, 1.5)
	if !(a < b && b < c) {
		t.Errorf("expected increasing CDF in k, got %v %v %v", a, b, c)
	}
	if c > 1.0 || a < 0.0 {
		t.Errorf("expected [0,1] bound, got %v..%v", a, c)
	}
}

func TestHitsProjectionAndProbHits1P(t *testing.T) {
	projection, prob := hitsProjectionAndProb("HITS_1P", nil, 0.28, 4.3)
	if projection <= 0 || projection > 3.5 {
		t.Errorf("projection out of range: %v", projection)
	}
	if prob < 0.01 || prob > 0.99 {
		t.Errorf("prob out of range: %v", prob)
	}
}

func TestHitsProjectionAndProbHitsLine(t *testing.T) {
	line := 1.5
	projection, prob := hitsProjectionAndProb("HITS_LINE", &line, 0.28, 4.3)
	if projection <= 0 {
		t.Errorf("expected positive projection, got %v", projection)
	}
	if prob < 0.01 || prob > 0.99 {
		t.Errorf("prob out of range: %v", prob)
	}
}

func TestSideFromBetType(t *testing.T) {
	cases := []struct {
		betType, market, want string
	}{
		{"HITS_1P_YES", "HITS_1P", "YES"},
		{"HITS_1P_NO", "HITS_1P", "NO"},
		{"HITS_LINE_OVER", "HITS_LINE", "OVER"},
		{"HITS_LINE_UNDER", "HITS_LINE", "UNDER"},
		{"HITS_1P", "HITS_1P", "YES"},
		{"TB_LINE", "TB_LINE", "OVER"},
	}
	for _, c := range cases {
		if got := sideFromBetType(c.betType, c.market); got != c.want {
			t.Errorf("sideFromBetType(%q,%q) = %q, want %q", c.betType, c.market, got, c.want)
		}
	}
}

func TestContainsSuffix(t *testing.T) {
	if !containsSuffix("HITS_1P_YES", "_YES") {
		t.Error("expected match")
	}
	if containsSuffix("YES", "_YES") {
		t.Error("expected no match when s shorter than meaningfully prefixed suffix")
	}
	if containsSuffix("HITS_1P_NO", "_YES") {
		t.Error("expected no match")
	}
}

func TestFirstHitRate(t *testing.T) {
	if got := firstHitRate(&models.BatterDailyFeatures{}); got != 0.25 {
		t.Errorf("got %v, want 0.25 default", got)
	}
	if got := firstHitRate(&models.BatterDailyFeatures{HitRate30: fp(0.30)}); got != 0.30 {
		t.Errorf("got %v, want 0.30", got)
	}
	if got := firstHitRate(&models.BatterDailyFeatures{HitRate14: fp(0.35), HitRate30: fp(0.30)}); got != 0.35 {
		t.Errorf("got %v, want 0.35 (14-day preferred)", got)
	}
}

func TestStarterRA9NilIsLeagueAverage(t *testing.T) {
	if got := starterRA9(nil); got != 4.4 {
		t.Errorf("got %v, want 4.4", got)
	}
}

func TestStarterRA9BetterPitcherScoresLower(t *testing.T) {
	avg := starterRA9(&models.PitcherDailyFeatures{})
	good := starterRA9(&models.PitcherDailyFeatures{KPct30: fp(0.30), BBPct30: fp(0.05), HR9_30: fp(0.6)})
	if good >= avg {
		t.Errorf("expected better pitcher profile to score lower RA9, got good=%v avg=%v", good, avg)
	}
}

func TestStarterInningsNilDefault(t *testing.T) {
	if got := starterInnings(nil); got != 5.2 {
		t.Errorf("got %v, want 5.2", got)
	}
}

func TestTeamOffenseBaseNilDefault(t *testing.T) {
	if got := teamOffenseBase(nil); got != 4.4 {
		t.Errorf("got %v, want 4.4", got)
	}
}

func TestTeamBullpenRA9NilDefault(t *testing.T) {
	if got := teamBullpenRA9(nil); got != 4.2 {
		t.Errorf("got %v, want 4.2", got)
	}
}

func TestRunsAllowedProfileNilInputsFallBackToLeagueAverage(t *testing.T) {
	// starter=4.4 RA9 @ 5.2 IP, bullpen=4.2 RA9 @ 3.8 IP-equivalent.
	got := runsAllowedProfile(nil, nil)
	starterRA, starterIP, bullpenRA := 4.4, 5.2, 4.2
	want := starterRA*(starterIP/9.0) + bullpenRA*((9.0-starterIP)/9.0)
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStarterStrengthNilIsZero(t *testing.T) {
	if got := starterStrength(nil); got != 0.0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestOffenseStrengthNilIsZero(t *testing.T) {
	if got := offenseStrength(nil); got != 0.0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestBullpenStrengthNilIsZero(t *testing.T) {
	if got := bullpenStrength(nil); got != 0.0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestParkWeatherMultiplierNilGameContextIsNeutral(t *testing.T) {
	if got := parkWeatherMultiplier(nil); got != 1.0 {
		t.Errorf("got %v, want 1.0", got)
	}
}

func TestParkWeatherMultiplierCombinesParkAndWeather(t *testing.T) {
	got := parkWeatherMultiplier(&models.GameContextFeatures{ParkHRFactor: fp(1.1), WeatherHRMultiplier: fp(1.05)})
	park, weather := 1.1, 1.05
	want := park * weather
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTotalExpectedRunsClampsToRange(t *testing.T) {
	got := totalExpectedRuns(nil, nil, nil, 3.0)
	if got < 1.2 || got > 8.0 {
		t.Errorf("expected clamp to [1.2,8.0], got %v", got)
	}
}

func TestTeamTotalExpectedRunsClampsToRange(t *testing.T) {
	got := teamTotalExpectedRuns(nil, nil, nil, 3.0)
	if got < 1.1 || got > 9.0 {
		t.Errorf("expected clamp to [1.1,9.0], got %v", got)
	}
}
