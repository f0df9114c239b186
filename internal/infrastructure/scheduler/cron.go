package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/channelsync/backend/internal/domain/sync"
)

// cronField is the set of accepted values for one cron position
type cronField map[int]bool

// cronSchedule is a parsed five-field cron expression
// (minute hour day-of-month month day-of-week)
type cronSchedule struct {
	minutes  cronField
	hours    cronField
	days     cronField
	months   cronField
	weekdays cronField
}

// parseCron parses a five-field cron expression. Supported forms per field:
// "*", "*/N", single values, ranges ("A-B") and comma lists.
func parseCron(expr string) (*cronSchedule, error) {
	fields := strings.Fields(strings.TrimSpace(expr))
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", domain.ErrInvalidCronExpr, len(fields))
	}

	bounds := []struct {
		name     string
		min, max int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day of month", 1, 31},
		{"month", 1, 12},
		{"day of week", 0, 6},
	}

	parsed := make([]cronField, 5)
	for i, field := range fields {
		values, err := parseCronField(field, bounds[i].min, bounds[i].max)
		if err != nil {
			return nil, fmt.Errorf("%w: %s field %q: %v", domain.ErrInvalidCronExpr, bounds[i].name, field, err)
		}
		parsed[i] = values
	}

	return &cronSchedule{
		minutes:  parsed[0],
		hours:    parsed[1],
		days:     parsed[2],
		months:   parsed[3],
		weekdays: parsed[4],
	}, nil
}

// parseCronField expands one field into its accepted values
func parseCronField(field string, min, max int) (cronField, error) {
	values := make(cronField)

	for _, part := range strings.Split(field, ",") {
		switch {
		case part == "*":
			for v := min; v <= max; v++ {
				values[v] = true
			}

		case strings.HasPrefix(part, "*/"):
			step, err := strconv.Atoi(part[2:])
			if err != nil || step <= 0 {
				return nil, fmt.Errorf("bad step %q", part)
			}
			for v := min; v <= max; v += step {
				values[v] = true
			}

		case strings.Contains(part, "-"):
			rangeParts := strings.SplitN(part, "-", 2)
			lo, loErr := strconv.Atoi(rangeParts[0])
			hi, hiErr := strconv.Atoi(rangeParts[1])
			if loErr != nil || hiErr != nil || lo > hi || lo < min || hi > max {
				return nil, fmt.Errorf("bad range %q", part)
			}
			for v := lo; v <= hi; v++ {
				values[v] = true
			}

		default:
			v, err := strconv.Atoi(part)
			if err != nil || v < min || v > max {
				return nil, fmt.Errorf("bad value %q", part)
			}
			values[v] = true
		}
	}

	return values, nil
}

// matches reports whether the schedule fires at t (minute resolution).
// Like standard cron, day-of-month and day-of-week are OR'd when both are
// restricted.
func (s *cronSchedule) matches(t time.Time) bool {
	if !s.minutes[t.Minute()] || !s.hours[t.Hour()] || !s.months[int(t.Month())] {
		return false
	}

	dayRestricted := len(s.days) < 31
	weekdayRestricted := len(s.weekdays) < 7

	dayOK := s.days[t.Day()]
	weekdayOK := s.weekdays[int(t.Weekday())]

	if dayRestricted && weekdayRestricted {
		return dayOK || weekdayOK
	}
	return dayOK && weekdayOK
}

// next returns the first firing time strictly after t. Returns the zero time
// if no firing occurs within a year (unsatisfiable day/month combination).
func (s *cronSchedule) next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.AddDate(1, 0, 1)

	for t.Before(limit) {
		if s.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}
