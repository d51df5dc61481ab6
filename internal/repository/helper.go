package repository

import (
	"fmt"
	"time"

	"goldwarehouse/internal/model"
)

// ParseTime parses a timestamp string in canonical, date-only, or RFC3339
// format, as written by the repositories themselves.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{model.TimeLayout, "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", str)
}

// FormatTime renders a timestamp the way the price and control tables store
// it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(model.TimeLayout)
}
