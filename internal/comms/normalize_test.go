package comms

import "testing"

func TestNormalizeTimestampTextConvertsOffsetsToUTC(t *testing.T) {
	got := normalizeTimestampText("2026-03-01T12:30:00+02:00")
	if got != "2026-03-01T10:30:00Z" {
		t.Fatalf("unexpected timestamp %q", got)
	}
}

func TestNormalizeTimestampTextTreatsNaiveAsUTC(t *testing.T) {
	got := normalizeTimestampText("2026-03-01T12:30:00")
	if got != "2026-03-01T12:30:00Z" {
		t.Fatalf("unexpected timestamp %q", got)
	}
}

func TestNormalizeTimestampTextPassesGarbageThrough(t *testing.T) {
	got := normalizeTimestampText("three days ago")
	if got != "three days ago" {
		t.Fatalf("unexpected timestamp %q", got)
	}
	if normalizeTimestampText("") != "" {
		t.Fatalf("empty timestamps stay empty")
	}
}

func TestClampWindowAppliesDefaultsAndBounds(t *testing.T) {
	cases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{limit: 0, offset: 0, wantLimit: FlatFeedDefaultLimit, wantOffset: 0},
		{limit: -3, offset: -5, wantLimit: FlatFeedDefaultLimit, wantOffset: 0},
		{limit: 1000, offset: 10, wantLimit: FlatFeedMaxLimit, wantOffset: 10},
		{limit: 42, offset: 7, wantLimit: 42, wantOffset: 7},
	}
	for _, entry := range cases {
		limit, offset := clampWindow(entry.limit, entry.offset, FlatFeedDefaultLimit, FlatFeedMaxLimit)
		if limit != entry.wantLimit || offset != entry.wantOffset {
			t.Fatalf("clampWindow(%d, %d) = (%d, %d), want (%d, %d)",
				entry.limit, entry.offset, limit, offset, entry.wantLimit, entry.wantOffset)
		}
	}
}
