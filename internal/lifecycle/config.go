package lifecycle

import (
	"fmt"
	"time"
)

// DayTime is a wall-clock cutoff within a day, e.g. 18:30.
type DayTime struct {
	Hour   int
	Minute int
}

// ParseDayTime parses "15:04" style cutoff strings.
func ParseDayTime(s string) (DayTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return DayTime{}, fmt.Errorf("invalid cutoff %q: %w", s, err)
	}
	return DayTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On places the cutoff on the calendar day of t, in loc.
func (d DayTime) On(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
}

// Config holds every tunable of the lifecycle rules. Cutoffs are wall-clock
// times in Location, not durations: a candidate who goes silent at 17:00 and
// one who goes silent at 08:00 both escalate at the same clock time next day.
type Config struct {
	SilenceThreshold  time.Duration
	EscalationCutoff  DayTime
	CheckpointCutoff  DayTime
	AdvanceNoticeDays int
	Location          *time.Location
}

// DefaultConfig returns the operating defaults: 8h silence threshold,
// 18:30 escalation cutoff, 15:00 checkpoint cutoff, 3 day advance notice.
func DefaultConfig() Config {
	return Config{
		SilenceThreshold:  8 * time.Hour,
		EscalationCutoff:  DayTime{Hour: 18, Minute: 30},
		CheckpointCutoff:  DayTime{Hour: 15, Minute: 0},
		AdvanceNoticeDays: 3,
		Location:          time.Local,
	}
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
