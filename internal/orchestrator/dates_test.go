package orchestrator

import "testing"

func TestDateRangeInclusive(t *testing.T) {
	got, err := dateRange("2024-04-01", "2024-04-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-04-01", "2024-04-02", "2024-04-03"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDateRangeRejectsInvertedRange(t *testing.T) {
	if _, err := dateRange("2024-04-05", "2024-04-01"); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestChunk60SplitsIntoBoundedGroups(t *testing.T) {
	dates, _ := dateRange("2024-01-01", "2024-04-30") // 121 days
	chunks := chunk60(dates)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 60 || len(chunks[1]) != 60 || len(chunks[2]) != 1 {
		t.Errorf("unexpected chunk sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}
