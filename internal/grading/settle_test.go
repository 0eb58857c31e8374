package grading

import (
	"testing"

	"github.com/fortuna/mlbedge/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestSettleSelectionOverUnder(t *testing.T) {
	cases := []struct {
		name   string
		side   string
		line   *float64
		value  *float64
		expect models.BetStatus
	}{
		{"over wins above line", "OVER", floatPtr(6.5), floatPtr(7), models.BetWin},
		{"over loses below line", "OVER", floatPtr(6.5), floatPtr(5), models.BetLoss},
		{"under wins below line", "UNDER", floatPtr(6.5), floatPtr(5), models.BetWin},
		{"integer line pushes on exact match", "OVER", floatPtr(8), floatPtr(8), models.BetPush},
		{"half line can never push", "OVER", floatPtr(8.5), floatPtr(8), models.BetLoss},
		{"pending without outcome", "OVER", floatPtr(6.5), nil, models.BetPending},
		{"pending without line", "OVER", nil, floatPtr(6.5), models.BetPending},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := settleSelection("TOTAL", c.side, c.line, c.value, "")
			if got != c.expect {
				t.Errorf("settleSelection() = %s, want %s", got, c.expect)
			}
		})
	}
}

func TestSettleSelectionYesNo(t *testing.T) {
	if got := settleSelection("HR", "YES", nil, floatPtr(1), ""); got != models.BetWin {
		t.Errorf("HR YES with hr=1: got %s, want win", got)
	}
	if got := settleSelection("HR", "YES", nil, floatPtr(0), ""); got != models.BetLoss {
		t.Errorf("HR YES with hr=0: got %s, want loss", got)
	}
	if got := settleSelection("HR", "NO", nil, floatPtr(0), ""); got != models.BetWin {
		t.Errorf("HR NO with hr=0: got %s, want win", got)
	}
}

func TestSettleSelectionMoneyline(t *testing.T) {
	if got := settleSelection("ML", "HOME", nil, floatPtr(1.0), ""); got != models.BetWin {
		t.Errorf("ML HOME win: got %s", got)
	}
	if got := settleSelection("ML", "AWAY", nil, floatPtr(1.0), ""); got != models.BetLoss {
		t.Errorf("ML AWAY loss: got %s", got)
	}
	if got := settleSelection("ML", "HOME", nil, floatPtr(0.5), ""); got != models.BetPush {
		t.Errorf("ML tie push: got %s", got)
	}
}

func TestNormalizeSideFallsBackToBetType(t *testing.T) {
	if got := normalizeSide("", "TOTAL", "TOTAL_UNDER"); got != "UNDER" {
		t.Errorf("got %q, want UNDER", got)
	}
	if got := normalizeSide("", "HR", "HR_NO"); got != "NO" {
		t.Errorf("got %q, want NO", got)
	}
	if got := normalizeSide("", "HR", "HR_YES"); got != "YES" {
		t.Errorf("got %q, want YES", got)
	}
	if got := normalizeSide("OVER", "TOTAL", "TOTAL_UNDER"); got != "OVER" {
		t.Errorf("explicit side should win, got %q", got)
	}
}

func TestPayoutForSettlement(t *testing.T) {
	win := payoutForSettlement(150, 1.0, models.BetWin)
	if win == nil || *win != 1.5 {
		t.Errorf("+150 win on 1 unit: got %v, want 1.5", win)
	}
	loss := payoutForSettlement(150, 1.0, models.BetLoss)
	if loss == nil || *loss != -1.0 {
		t.Errorf("loss profit: got %v, want -1.0", loss)
	}
	push := payoutForSettlement(150, 1.0, models.BetPush)
	if push == nil || *push != 0.0 {
		t.Errorf("push profit: got %v, want 0.0", push)
	}
	negOdds := payoutForSettlement(-120, 2.0, models.BetWin)
	want := 2.0 * (100.0 / 120.0)
	if negOdds == nil || diff(*negOdds, want) > 1e-9 {
		t.Errorf("-120 win on 2 units: got %v, want %v", negOdds, want)
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
