package schedule

import "time"

// Predicate reports whether a periodic task is due to run at the given
// instant. Both Crontab and FixedInterval produce values of this type.
type Predicate func(ts time.Time) bool
