package token

import (
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		name string
		date time.Time
		seq  int64
		want string
	}{
		{"second visit of the day", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 2, "05/03/2024_002"},
		{"first visit", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 1, "01/01/2026_001"},
		{"three digit sequence", time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), 999, "30/11/2026_999"},
		{"sequence beyond pad keeps full width", time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), 1000, "30/11/2026_1000"},
		{"time of day is ignored by date components", time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC), 7, "05/03/2024_007"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.date, tc.seq); got != tc.want {
				t.Fatalf("Format(%v, %d) = %q, want %q", tc.date, tc.seq, got, tc.want)
			}
		})
	}
}

func TestFormatInjective(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	seen := make(map[string]struct{})
	for _, d := range dates {
		for seq := int64(1); seq <= 25; seq++ {
			tok := Format(d, seq)
			if _, dup := seen[tok]; dup {
				t.Fatalf("duplicate token %q for date %v seq %d", tok, d, seq)
			}
			seen[tok] = struct{}{}
		}
	}
}

func TestDayKey(t *testing.T) {
	morning := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 5, 22, 30, 0, 0, time.UTC)
	if DayKey(morning) != DayKey(evening) {
		t.Fatalf("expected same key for same day, got %q and %q", DayKey(morning), DayKey(evening))
	}
	if got, want := DayKey(morning), "seq_2024-03-05"; got != want {
		t.Fatalf("DayKey = %q, want %q", got, want)
	}
	next := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	if DayKey(morning) == DayKey(next) {
		t.Fatalf("expected different keys across days")
	}
}
