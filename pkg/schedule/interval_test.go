package schedule

import (
	"testing"
	"time"
)

func at(hm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", "2026-07-30 "+hm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFixedInterval_WithinWindow(t *testing.T) {
	start := 9 * time.Hour
	end := 17 * time.Hour
	p := FixedInterval(5*time.Minute, &start, &end)

	cases := []struct {
		ts   string
		want bool
	}{
		{"08:59:00", false},
		{"09:00:00", true},
		{"09:04:00", false},
		{"09:05:00", true},
		{"17:00:00", false}, // end is exclusive
	}
	for _, c := range cases {
		if got := p(at(c.ts)); got != c.want {
			t.Errorf("p(%s) = %v, want %v", c.ts, got, c.want)
		}
	}
}

func TestFixedInterval_OutsideWindowNeverFires(t *testing.T) {
	start := 9 * time.Hour
	end := 17 * time.Hour
	p := FixedInterval(5*time.Minute, &start, &end)

	if p(at("20:00:00")) {
		t.Fatal("expected no match outside configured window")
	}
}

func TestFixedInterval_DefaultWindowIsFullDay(t *testing.T) {
	p := FixedInterval(time.Hour, nil, nil)
	if !p(at("00:00:00")) {
		t.Fatal("expected match at the start of the default full-day window")
	}
}

func TestFixedInterval_InvertedWindowWrapsMidnight(t *testing.T) {
	start := 22 * time.Hour
	end := 2 * time.Hour
	p := FixedInterval(time.Hour, &start, &end)

	if !p(at("23:00:00")) {
		t.Fatal("expected match inside the wrapped window (23:00, after start)")
	}
	if p(at("12:00:00")) {
		t.Fatal("expected no match at noon, outside the wrapped window")
	}
}
