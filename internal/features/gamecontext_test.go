package features

import (
	"math"
	"testing"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
)

func TestWeatherHRMultiplierNilWithoutSnapshot(t *testing.T) {
	if got := weatherHRMultiplier(nil); got != nil {
		t.Fatalf("expected nil without a weather snapshot, got %v", *got)
	}
}

func TestWeatherHRMultiplierOutBoostsAboveOne(t *testing.T) {
	w := &models.WeatherSnapshot{TempF: 70, WindMPH: 15, WindDirection: "out to CF (15mph)"}
	got := weatherHRMultiplier(w)
	if got == nil || *got <= 1.0 {
		t.Fatalf("expected an out-blowing wind to boost HR multiplier above 1.0, got %v", got)
	}
}

func TestWeatherHRMultiplierInSuppressesBelowOne(t *testing.T) {
	w := &models.WeatherSnapshot{TempF: 70, WindMPH: 15, WindDirection: "in from CF (15mph)"}
	got := weatherHRMultiplier(w)
	if got == nil || *got >= 1.0 {
		t.Fatalf("expected an in-blowing wind to suppress HR multiplier below 1.0, got %v", got)
	}
}

func TestWeatherHRMultiplierDomeIsWindNeutral(t *testing.T) {
	domeWind := weatherHRMultiplier(&models.WeatherSnapshot{TempF: 70, WindMPH: 0, WindDirection: "dome"})
	calmWind := weatherHRMultiplier(&models.WeatherSnapshot{TempF: 70, WindMPH: 0, WindDirection: "calm"})
	if domeWind == nil || calmWind == nil {
		t.Fatal("expected both to compute")
	}
	if math.Abs(*domeWind-*calmWind) > 1e-9 {
		t.Fatalf("expected dome and calm to produce the same wind-neutral multiplier, got %v vs %v", *domeWind, *calmWind)
	}
}

func TestWeatherRunsMultiplierClampedToRange(t *testing.T) {
	hot := weatherRunsMultiplier(&models.WeatherSnapshot{TempF: 120, WindMPH: 40})
	if hot == nil || *hot > 1.25 {
		t.Fatalf("expected runs multiplier clamped to 1.25 ceiling, got %v", hot)
	}
	cold := weatherRunsMultiplier(&models.WeatherSnapshot{TempF: -20, WindMPH: 0})
	if cold == nil || *cold < 0.8 {
		t.Fatalf("expected runs multiplier clamped to 0.8 floor, got %v", cold)
	}
}

func TestWeatherRunsMultiplierNilWithoutSnapshot(t *testing.T) {
	if got := weatherRunsMultiplier(nil); got != nil {
		t.Fatalf("expected nil without a weather snapshot, got %v", *got)
	}
}

func TestIsDayGameNilFirstPitchIsFalse(t *testing.T) {
	if isDayGame(nil) {
		t.Fatal("expected false when no first-pitch time is known")
	}
}

func TestIsDayGameBeforeCutoffHour(t *testing.T) {
	morning := time.Date(2024, 7, 15, 17, 0, 0, 0, time.UTC)
	if !isDayGame(&morning) {
		t.Fatal("expected 17:00 UTC to classify as a day game")
	}
}

func TestIsDayGameAtOrAfterCutoffHour(t *testing.T) {
	evening := time.Date(2024, 7, 15, 19, 0, 0, 0, time.UTC)
	if isDayGame(&evening) {
		t.Fatal("expected 19:00 UTC to classify as a night game")
	}
}
