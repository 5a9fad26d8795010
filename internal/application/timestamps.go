package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Local layouts accept a wall-clock time without offset, read in the display
// location. Fractional seconds are accepted after the seconds field.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTimestamp reads an ISO-8601 timestamp and returns it in UTC,
// truncated to the millisecond precision the store keeps.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Truncate(time.Millisecond), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// formatLocalRange renders an interval for Spanish-speaking users.
func formatLocalRange(start, end time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	start = start.In(loc)
	end = end.In(loc)
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("el %s de %s a %s", start.Format("02/01/2006"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("del %s al %s", start.Format("02/01/2006 15:04"), end.Format("02/01/2006 15:04"))
}

// NewID returns a time-ordered UUIDv7 string.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
