// Package progress holds the calendar rules behind daily streaks.
package progress

import (
	"time"

	"github.com/captainspark/backend/internal/models"
)

var dayLabels = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// Streak is a learner's streak record
type Streak struct {
	Count    int
	LastDate *time.Time
}

// Day truncates t to its calendar date in t's location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ApplyStreak returns the record after a checkpoint on today and whether it changed.
// Same day keeps the count, the following day extends it, anything else restarts at 1.
func ApplyStreak(record Streak, today time.Time) (Streak, bool) {
	today = Day(today)

	if record.LastDate != nil {
		last := Day(*record.LastDate)
		switch {
		case last.Equal(today):
			return Streak{Count: record.Count, LastDate: &today}, false
		case last.AddDate(0, 0, 1).Equal(today):
			return Streak{Count: record.Count + 1, LastDate: &today}, true
		}
	}

	return Streak{Count: 1, LastDate: &today}, true
}

// WeekDays projects a streak onto the current week. The streak's days run
// backwards from today, wrapping around Sunday.
func WeekDays(streak int, today time.Time) []models.WeekDay {
	todayIdx := int(today.Weekday())
	week := make([]models.WeekDay, 7)
	for i, label := range dayLabels {
		week[i] = models.WeekDay{Label: label, Today: i == todayIdx}
	}

	n := min(streak, 7)
	for i := 0; i < n; i++ {
		week[(todayIdx-i+7)%7].Active = true
	}
	return week
}

// LoadLocation resolves an IANA time zone name, falling back to UTC
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
