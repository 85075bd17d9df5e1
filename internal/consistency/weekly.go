package consistency

import (
	"sort"

	"cloud.google.com/go/civil"

	"mewego-bot/internal/domain"
)

// WeeklyStreak computes the current and best streak of a weekly habit, in
// successful ISO weeks. A week is successful when it holds at least target
// Done records; Skipped records never count toward the target.
//
// Unlike the daily policy, a week with no records at all breaks the current
// streak, including the week that contains today.
func WeeklyStreak(logs []domain.HabitLog, target int, today civil.Date) (current, best int) {
	if len(logs) == 0 {
		return 0, 0
	}
	if target < 1 {
		target = 1
	}

	weeks := bucketWeeks(byDate(logs))
	if len(weeks) == 0 {
		return 0, 0
	}

	success := func(w ISOWeek) bool {
		done, ok := weeks[w]
		return ok && done >= target
	}

	for w := WeekOf(today); success(w); w = w.Prev() {
		current++
	}

	ordered := make([]ISOWeek, 0, len(weeks))
	for w := range weeks {
		ordered = append(ordered, w)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Before(ordered[j])
	})

	streak := 0
	for i, w := range ordered {
		if !success(w) {
			streak = 0
			continue
		}
		if i > 0 && ordered[i-1] == w.Prev() && success(ordered[i-1]) {
			streak++
		} else {
			streak = 1
		}
		if streak > best {
			best = streak
		}
	}

	if current > best {
		best = current
	}
	return current, best
}

// bucketWeeks maps every ISO week that has at least one record to its Done count.
func bucketWeeks(statuses map[civil.Date]domain.LogStatus) map[ISOWeek]int {
	weeks := make(map[ISOWeek]int)
	for day, status := range statuses {
		w := WeekOf(day)
		if status == domain.StatusDone {
			weeks[w]++
		} else if _, ok := weeks[w]; !ok {
			weeks[w] = 0
		}
	}
	return weeks
}
