package grading

import "testing"

func TestPlayerPropOutcomeValue(t *testing.T) {
	stats := playerGameStats{HR: 1, Hits: 2, TotalBases: 5, K: 7, Outs: 18}

	cases := []struct {
		market string
		want   float64
	}{
		{"HR", 1},
		{"HITS_1P", 2},
		{"HITS_LINE", 2},
		{"TB_LINE", 5},
		{"K", 7},
		{"OUTS_RECORDED", 18},
	}
	for _, c := range cases {
		value, text := playerPropOutcomeValue(c.market, stats)
		if value != c.want {
			t.Errorf("%s: got %v, want %v", c.market, value, c.want)
		}
		if text == "" {
			t.Errorf("%s: expected non-empty outcome text", c.market)
		}
	}
}

func TestPlayerPropOutcomeValueUnknownMarket(t *testing.T) {
	value, text := playerPropOutcomeValue("F5_ML", playerGameStats{})
	if value != 0 || text != "" {
		t.Errorf("unknown market should return zero value and empty text, got %v %q", value, text)
	}
}
