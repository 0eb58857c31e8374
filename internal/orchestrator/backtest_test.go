package orchestrator

import (
	"strings"
	"testing"
)

func TestScoreBucket(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0, "<50"},
		{49.9, "<50"},
		{50, "50-59"},
		{59.9, "50-59"},
		{60, "60-69"},
		{69.9, "60-69"},
		{70, "70-79"},
		{79.9, "70-79"},
		{80, "80+"},
		{100, "80+"},
	}
	for _, c := range cases {
		if got := scoreBucket(c.score); got != c.want {
			t.Errorf("scoreBucket(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestProbBucket(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0.0, "0-10"},
		{0.05, "0-10"},
		{0.15, "10-20"},
		{0.55, "50-60"},
		{0.99, "90-100"},
		{1.0, "90-100"},
		{-0.5, "0-10"},
		{1.5, "90-100"},
	}
	for _, c := range cases {
		if got := probBucket(c.p); got != c.want {
			t.Errorf("probBucket(%v) = %q, want %q", c.p, got, c.want)
		}
	}
}

func TestFormatFloatNilIsEmpty(t *testing.T) {
	if got := formatFloat(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFormatFloatFormatsValue(t *testing.T) {
	v := 3.5
	if got := formatFloat(&v); got != "3.5" {
		t.Errorf("got %q, want %q", got, "3.5")
	}
}

func TestFormatIntPtrNilIsEmpty(t *testing.T) {
	if got := formatIntPtr(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFormatIntPtrFormatsValue(t *testing.T) {
	v := -150
	if got := formatIntPtr(&v); got != "-150" {
		t.Errorf("got %q, want %q", got, "-150")
	}
}

func TestFormatBacktestCSVHeaderMatchesSpecColumnOrder(t *testing.T) {
	out := FormatBacktestCSV(nil)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected header-only output for no rows, got %d lines", len(lines))
	}
	want := "game_date,market,game_id,selection_key,signal,model_score,model_prob,edge,side,line,open_odds,open_implied_prob,close_implied_prob,clv,outcome_value,settlement,profit_units,score_bucket,prob_bucket"
	if lines[0] != want {
		t.Errorf("got %q, want %q", lines[0], want)
	}
}

func TestFormatBacktestCSVOneRowPerSelection(t *testing.T) {
	rows := []BacktestRow{
		{GameDate: "2024-04-01", Market: "HR", GameID: 1, SelectionKey: "k1", Signal: "BET", ModelScore: 82, Side: "YES", Settlement: "WIN", ScoreBucket: "80+", ProbBucket: "50-60"},
		{GameDate: "2024-04-01", Market: "HR", GameID: 2, SelectionKey: "k2", Signal: "SKIP", ModelScore: 51, Side: "NO", Settlement: "LOSS", ScoreBucket: "50-59", ProbBucket: "20-30"},
	}
	out := FormatBacktestCSV(rows)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "k1") || !strings.Contains(lines[2], "k2") {
		t.Errorf("rows missing expected selection keys: %v", lines[1:])
	}
}
