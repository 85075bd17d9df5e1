// Package consistency turns a habit's dated check-ins into streak and
// adherence statistics.
//
// Every function here is pure: logs are never mutated, nothing is cached
// between calls, and any number of goroutines may call into the package at
// once. "today" is a calendar date already resolved in the user's timezone.
package consistency

import (
	"sort"

	"cloud.google.com/go/civil"

	"mewego-bot/internal/domain"
)

// Compute returns the full statistics of one habit under its schedule.
//
// A weekly target below 1 is treated as 1; callers are expected to reject it
// earlier with domain.Schedule.Validate.
func Compute(logs []domain.HabitLog, schedule domain.Schedule, today civil.Date) domain.HabitStats {
	var stats domain.HabitStats

	if schedule.IsWeekly() {
		stats.CurrentStreak, stats.BestStreak = WeeklyStreak(logs, schedule.WeeklyTarget, today)
	} else {
		stats.CurrentStreak, stats.BestStreak = DailyStreak(logs, today)
	}
	stats.Done7Days, stats.Done30Days, stats.TotalDone = Windows(logs, today)

	return stats
}

// byDate indexes dated records by calendar date. When several records share a
// date the last one in input order wins.
func byDate(logs []domain.HabitLog) map[civil.Date]domain.LogStatus {
	m := make(map[civil.Date]domain.LogStatus, len(logs))
	for _, l := range logs {
		if !l.HasDate() {
			continue
		}
		m[l.LogDate] = l.Status
	}
	return m
}

type dayStatus struct {
	date   civil.Date
	status domain.LogStatus
}

// sortedDays returns the deduplicated dated records in ascending date order.
func sortedDays(statuses map[civil.Date]domain.LogStatus) []dayStatus {
	days := make([]dayStatus, 0, len(statuses))
	for d, s := range statuses {
		days = append(days, dayStatus{date: d, status: s})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].date.Before(days[j].date)
	})
	return days
}
