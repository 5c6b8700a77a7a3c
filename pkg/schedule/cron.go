package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
)

// field names, used only in error messages.
const (
	fieldMinute     = "minute"
	fieldHour       = "hour"
	fieldDay        = "day"
	fieldMonth      = "month"
	fieldDayOfWeek  = "day of week"
)

// Crontab builds a Predicate from five crontab-style fields: minute, hour,
// day, month, day-of-week. Each field accepts "*", an integer, a
// comma-separated list of pieces, a range "m-n", or a step "*/n". Domains
// are minute 0-59, hour 0-23, day 1-31, month 1-12, day-of-week 0-6 where
// both 0 and 7 mean Sunday (7 is normalized to 0). Steps are disallowed on
// day-of-week. Invalid numeric inputs return an error at build time.
func Crontab(minute, hour, day, month, dayOfWeek string) (Predicate, error) {
	minuteSet, err := parseField(fieldMinute, minute, 0, 59, true)
	if err != nil {
		return nil, err
	}
	hourSet, err := parseField(fieldHour, hour, 0, 23, true)
	if err != nil {
		return nil, err
	}
	daySet, err := parseField(fieldDay, day, 1, 31, true)
	if err != nil {
		return nil, err
	}
	monthSet, err := parseField(fieldMonth, month, 1, 12, true)
	if err != nil {
		return nil, err
	}
	// Day-of-week accepts 0-7 (7 normalizes to 0) but disallows steps.
	dowSet, err := parseField(fieldDayOfWeek, dayOfWeek, 0, 7, false)
	if err != nil {
		return nil, err
	}
	normalizedDow := make(map[int]struct{}, len(dowSet))
	for v := range dowSet {
		normalizedDow[v%7] = struct{}{}
	}

	return func(ts time.Time) bool {
		if _, ok := monthSet[int(ts.Month())]; !ok {
			return false
		}
		if _, ok := daySet[ts.Day()]; !ok {
			return false
		}
		// time.Weekday is already Sunday=0.
		if _, ok := normalizedDow[int(ts.Weekday())]; !ok {
			return false
		}
		if _, ok := hourSet[ts.Hour()]; !ok {
			return false
		}
		if _, ok := minuteSet[ts.Minute()]; !ok {
			return false
		}
		return true
	}, nil
}

func parseField(name, value string, min, max int, allowStep bool) (map[int]struct{}, error) {
	acceptable := make(map[int]struct{}, max-min+1)
	for v := min; v <= max; v++ {
		acceptable[v] = struct{}{}
	}

	result := make(map[int]struct{})
	for _, piece := range strings.Split(value, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "*" {
			for v := range acceptable {
				result[v] = struct{}{}
			}
			continue
		}

		if strings.HasPrefix(piece, "*/") {
			if !allowStep {
				return nil, fmt.Errorf("%w: schedule: step values are not allowed on %s", taskerrs.ErrConfiguration, name)
			}
			stepStr := strings.TrimPrefix(piece, "*/")
			step, err := strconv.Atoi(stepStr)
			if err != nil || step <= 0 {
				return nil, fmt.Errorf("%w: schedule: invalid step %q for %s", taskerrs.ErrConfiguration, piece, name)
			}
			values := sortedKeys(acceptable)
			for i := 0; i < len(values); i += step {
				result[values[i]] = struct{}{}
			}
			continue
		}

		if idx := strings.Index(piece, "-"); idx > 0 {
			lhs, err1 := strconv.Atoi(piece[:idx])
			rhs, err2 := strconv.Atoi(piece[idx+1:])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: schedule: invalid range %q for %s", taskerrs.ErrConfiguration, piece, name)
			}
			if _, ok := acceptable[lhs]; !ok {
				return nil, fmt.Errorf("%w: schedule: %d is not a valid value for %s", taskerrs.ErrConfiguration, lhs, name)
			}
			if _, ok := acceptable[rhs]; !ok {
				return nil, fmt.Errorf("%w: schedule: %d is not a valid value for %s", taskerrs.ErrConfiguration, rhs, name)
			}
			for v := lhs; v <= rhs; v++ {
				result[v] = struct{}{}
			}
			continue
		}

		v, err := strconv.Atoi(piece)
		if err != nil {
			return nil, fmt.Errorf("%w: schedule: invalid value %q for %s", taskerrs.ErrConfiguration, piece, name)
		}
		if _, ok := acceptable[v]; !ok {
			return nil, fmt.Errorf("%w: schedule: %d is not a valid value for %s", taskerrs.ErrConfiguration, v, name)
		}
		result[v] = struct{}{}
	}

	return result, nil
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
