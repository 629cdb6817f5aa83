package cli

import (
	"fmt"
	"time"
)

// parseStart parses a window start that may be RFC3339 or YYYY-MM-DD.
// Date-only form is midnight in loc. If empty, defaultVal is returned.
func parseStart(val string, defaultVal time.Time, loc *time.Location) (time.Time, error) {
	if val == "" {
		return defaultVal, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", val, loc); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("invalid --from %q, expected RFC3339 or YYYY-MM-DD", val)
}

// parseEnd parses a window end that may be RFC3339 or YYYY-MM-DD.
// Date-only form is treated as inclusive by converting to next-day midnight
// in loc. If empty, defaultVal is returned.
func parseEnd(val string, defaultVal time.Time, loc *time.Location) (time.Time, error) {
	if val == "" {
		return defaultVal, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", val, loc); err == nil {
		return d.AddDate(0, 0, 1), nil
	}
	return time.Time{}, fmt.Errorf("invalid --to %q, expected RFC3339 or YYYY-MM-DD", val)
}
