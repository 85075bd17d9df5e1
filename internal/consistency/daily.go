package consistency

import (
	"cloud.google.com/go/civil"

	"mewego-bot/internal/domain"
)

// DailyStreak computes the current and best streak of a daily habit.
//
// Skipped days neither count nor break a run. A missing record breaks the run
// unless the missing day is today, which may simply not be marked yet.
func DailyStreak(logs []domain.HabitLog, today civil.Date) (current, best int) {
	if len(logs) == 0 {
		return 0, 0
	}

	statuses := byDate(logs)
	if len(statuses) == 0 {
		return 0, 0
	}

	current = currentDailyStreak(statuses, today)
	best = bestDailyStreak(statuses)
	if current > best {
		best = current
	}
	return current, best
}

func currentDailyStreak(statuses map[civil.Date]domain.LogStatus, today civil.Date) int {
	streak := 0
	for day := today; ; day = day.AddDays(-1) {
		status, ok := statuses[day]
		switch {
		case !ok && day.Before(today):
			return streak
		case !ok:
			// today, not marked yet
		case status == domain.StatusDone:
			streak++
		case status == domain.StatusSkipped:
		default:
			return streak
		}
	}
}

func bestDailyStreak(statuses map[civil.Date]domain.LogStatus) int {
	var (
		best, streak int
		anchor       civil.Date
		hasAnchor    bool
	)

	for _, d := range sortedDays(statuses) {
		switch d.status {
		case domain.StatusDone:
			if hasAnchor && bridged(statuses, anchor, d.date) {
				streak++
			} else {
				streak = 1
			}
			anchor, hasAnchor = d.date, true
			if streak > best {
				best = streak
			}

		case domain.StatusSkipped:
			if !hasAnchor {
				continue
			}
			if bridged(statuses, anchor, d.date) {
				anchor = d.date
				continue
			}
			// an unmarked day sits between the run and this skip
			streak, hasAnchor = 0, false

		default:
			streak, hasAnchor = 0, false
		}
	}

	return best
}

// bridged reports whether every day strictly between from and to is Skipped.
// Adjacent days are trivially bridged.
func bridged(statuses map[civil.Date]domain.LogStatus, from, to civil.Date) bool {
	for day := from.AddDays(1); day.Before(to); day = day.AddDays(1) {
		if statuses[day] != domain.StatusSkipped {
			return false
		}
	}
	return true
}
