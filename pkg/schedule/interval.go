package schedule

import "time"

// FixedInterval returns a stateful Predicate that fires once every interval
// within the [start, end) window of each day (defaults 00:00:00 and
// 23:59:59). If start > end, the window wraps across midnight and the
// predicate inverts its range test.
//
// On the first in-window call it memoizes the "next valid instant" as the
// start of the current window, then advances that instant by interval until
// it is greater than the queried timestamp. It reports true exactly on the
// transitions where the memoized instant is passed, and never advances (or
// reports true) outside the window.
func FixedInterval(interval time.Duration, start, end *time.Duration) Predicate {
	startOfDay := time.Duration(0)
	endOfDay := 23*time.Hour + 59*time.Minute + 59*time.Second
	if start != nil {
		startOfDay = *start
	}
	if end != nil {
		endOfDay = *end
	}

	invert := false
	if startOfDay > endOfDay {
		startOfDay, endOfDay = endOfDay, startOfDay
		invert = true
	}

	state := &intervalState{
		interval: interval,
		start:    startOfDay,
		end:      endOfDay,
		invert:   invert,
	}
	return state.validate
}

type intervalState struct {
	interval time.Duration
	start    time.Duration
	end      time.Duration
	invert   bool

	initialized bool
	next        time.Time
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

func atTimeOfDay(t time.Time, d time.Duration) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.Add(d)
}

func (s *intervalState) validate(ts time.Time) bool {
	ts = ts.Truncate(time.Second)
	tod := timeOfDay(ts)

	var inRange bool
	if s.invert {
		inRange = tod < s.start || tod >= s.end
	} else {
		inRange = tod >= s.start && tod < s.end
	}
	if !inRange {
		return false
	}

	if !s.initialized {
		var window time.Time
		if s.invert {
			window = atTimeOfDay(ts, s.end)
			if tod < s.start {
				window = window.AddDate(0, 0, -1)
			}
		} else {
			window = atTimeOfDay(ts, s.start)
		}
		for window.Before(ts) {
			window = window.Add(s.interval)
		}
		s.next = window
		s.initialized = true
	}

	if s.next.After(ts) {
		return false
	}

	for !s.next.After(ts) {
		s.next = s.next.Add(s.interval)
	}
	return true
}
