package consistency

import (
	"cloud.google.com/go/civil"

	"mewego-bot/internal/domain"
)

const (
	shortWindowDays = 7
	longWindowDays  = 30
)

// Windows counts Done records in the 7 and 30 days ending today (inclusive)
// and in the whole history. Records without a date only count toward total.
// Records dated after today fall outside both windows.
func Windows(logs []domain.HabitLog, today civil.Date) (done7, done30, total int) {
	for day, status := range byDate(logs) {
		if status != domain.StatusDone {
			continue
		}
		total++

		ago := today.DaysSince(day)
		if ago < 0 {
			continue
		}
		if ago < shortWindowDays {
			done7++
		}
		if ago < longWindowDays {
			done30++
		}
	}

	for _, l := range logs {
		if !l.HasDate() && l.Status == domain.StatusDone {
			total++
		}
	}

	return done7, done30, total
}
