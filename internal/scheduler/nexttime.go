package scheduler

import (
	"fmt"
	"time"

	"github.com/sandunwb/labsheet/internal/models"
)

// mondayIndex converts Go's Sunday-based weekday to the schedule's
// Monday=0 convention.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// nextGenerationTime computes when the sheet for the next lab occurrence
// should be generated: the next occurrence of the schedule's weekday and
// lab time strictly after now (a lab at or before now counts as next
// week), minus the generate-before offset. The result may lie in the past
// when the offset is large; that is surfaced as overdue by the formatter,
// not corrected here.
func nextGenerationTime(now time.Time, s *models.Schedule) time.Time {
	daysUntilLab := (s.DayOfWeek - mondayIndex(now.Weekday()) + 7) % 7

	if daysUntilLab == 0 {
		// lab day is today; if the lab time has already passed, the next
		// occurrence is a week out
		if !now.Before(s.LabTime.On(now)) {
			daysUntilLab = 7
		}
	}

	nextLab := s.LabTime.On(now.AddDate(0, 0, daysUntilLab))
	return nextLab.Add(-time.Duration(s.GenerateBeforeMinutes) * time.Minute)
}

// formatRemaining renders the time until next as a short human string.
// Thresholds, in order: past is overdue; more than seven full days is an
// absolute date; at least one full day counts days; more than an hour
// counts hours; everything else counts minutes.
func formatRemaining(now, next time.Time) string {
	until := next.Sub(now)
	if until < 0 {
		return "Overdue!"
	}

	days := int(until / (24 * time.Hour))
	switch {
	case days > 7:
		return next.Format("January 02 at 03:04 PM")
	case days > 0:
		return fmt.Sprintf("In %d days (%s)", days, next.Format("Mon 03:04 PM"))
	case until > time.Hour:
		hours := int(until / time.Hour)
		return fmt.Sprintf("In %d hour%s", hours, plural(hours))
	default:
		minutes := int(until / time.Minute)
		return fmt.Sprintf("In %d minute%s", minutes, plural(minutes))
	}
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// NextGenerationTime returns the trigger time for the schedule's next lab
// occurrence. Pure given the manager's clock; the schedule is not mutated
// and skip dates are not consulted (the firing driver handles those).
func (m *Manager) NextGenerationTime(s *models.Schedule) time.Time {
	return nextGenerationTime(m.now(), s)
}

// NextGenerationTimeString returns the trigger time as a display string
// such as "In 2 days (Wed 01:00 PM)" or "Overdue!".
func (m *Manager) NextGenerationTimeString(s *models.Schedule) string {
	now := m.now()
	return formatRemaining(now, nextGenerationTime(now, s))
}
