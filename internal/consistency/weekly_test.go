package consistency

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"

	"mewego-bot/internal/domain"
)

// doneInWeek returns n Done records starting at the Monday of the week that is
// weeksAgo weeks before today's.
func doneInWeek(weeksAgo, n int) []domain.HabitLog {
	monday := WeekOf(today).monday().AddDays(-7 * weeksAgo)
	logs := make([]domain.HabitLog, 0, n)
	for i := 0; i < n; i++ {
		logs = append(logs, entry(monday.AddDays(i), domain.StatusDone))
	}
	return logs
}

func concat(parts ...[]domain.HabitLog) []domain.HabitLog {
	var out []domain.HabitLog
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestWeeklyStreak_Empty(t *testing.T) {
	current, best := WeeklyStreak(nil, 3, today)
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, best)
}

func TestWeeklyStreak_TargetReached(t *testing.T) {
	current, best := WeeklyStreak(doneInWeek(0, 3), 3, today)
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, best)
}

func TestWeeklyStreak_TargetMissedThisWeek(t *testing.T) {
	logs := concat(doneInWeek(1, 3), doneInWeek(0, 2))

	current, best := WeeklyStreak(logs, 3, today)
	assert.Equal(t, 0, current)
	assert.Equal(t, 1, best)
}

func TestWeeklyStreak_ConsecutiveWeeks(t *testing.T) {
	logs := concat(doneInWeek(1, 2), doneInWeek(0, 2))

	current, best := WeeklyStreak(logs, 2, today)
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, best)
}

func TestWeeklyStreak_EmptyCurrentWeekBreaks(t *testing.T) {
	logs := concat(doneInWeek(2, 2), doneInWeek(1, 2))

	current, best := WeeklyStreak(logs, 2, today)
	assert.Equal(t, 0, current)
	assert.Equal(t, 2, best)
}

func TestWeeklyStreak_AbsentWeekBreaksBest(t *testing.T) {
	logs := concat(doneInWeek(6, 1), doneInWeek(4, 1), doneInWeek(3, 1))

	current, best := WeeklyStreak(logs, 1, today)
	assert.Equal(t, 0, current)
	assert.Equal(t, 2, best)
}

func TestWeeklyStreak_UnsuccessfulWeekResets(t *testing.T) {
	missed := WeekOf(today).monday().AddDays(-14)
	logs := concat(
		doneInWeek(5, 2),
		doneInWeek(4, 2),
		doneInWeek(3, 2),
		[]domain.HabitLog{entry(missed, domain.StatusNotDone)},
		doneInWeek(1, 2),
		doneInWeek(0, 2),
	)

	current, best := WeeklyStreak(logs, 2, today)
	assert.Equal(t, 2, current)
	assert.Equal(t, 3, best)
}

func TestWeeklyStreak_SkippedDoesNotCountTowardTarget(t *testing.T) {
	monday := WeekOf(today).monday()
	logs := []domain.HabitLog{
		entry(monday, domain.StatusDone),
		entry(monday.AddDays(1), domain.StatusSkipped),
		entry(monday.AddDays(2), domain.StatusSkipped),
	}

	current, best := WeeklyStreak(logs, 2, today)
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, best)
}

func TestWeeklyStreak_TargetBelowOneIsOne(t *testing.T) {
	logs := doneInWeek(0, 1)

	for _, target := range []int{0, -3} {
		current, best := WeeklyStreak(logs, target, today)
		assert.Equal(t, 1, current)
		assert.Equal(t, 1, best)
	}

	current, best := WeeklyStreak([]domain.HabitLog{entry(today, domain.StatusNotDone)}, 0, today)
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, best)
}

func TestWeeklyStreak_DuplicateDatesCountOnce(t *testing.T) {
	logs := []domain.HabitLog{
		entry(today, domain.StatusDone),
		entry(today, domain.StatusDone),
	}

	current, _ := WeeklyStreak(logs, 2, today)
	assert.Equal(t, 0, current)
}

func TestWeeklyStreak_AcrossYearBoundary(t *testing.T) {
	d := func(s string) civil.Date { return day(t, s) }

	// 2024-W52 then 2025-W01, which starts on 2024-12-30
	logs := []domain.HabitLog{
		entry(d("2024-12-23"), domain.StatusDone),
		entry(d("2024-12-24"), domain.StatusDone),
		entry(d("2024-12-30"), domain.StatusDone),
		entry(d("2024-12-31"), domain.StatusDone),
	}
	current, best := WeeklyStreak(logs, 2, d("2025-01-02"))
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, best)

	// 2020 has 53 ISO weeks
	logs = []domain.HabitLog{
		entry(d("2020-12-21"), domain.StatusDone),
		entry(d("2020-12-22"), domain.StatusDone),
		entry(d("2020-12-28"), domain.StatusDone),
		entry(d("2021-01-01"), domain.StatusDone),
		entry(d("2021-01-04"), domain.StatusDone),
		entry(d("2021-01-05"), domain.StatusDone),
	}
	current, best = WeeklyStreak(logs, 2, d("2021-01-05"))
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, best)
}

func TestWeeklyStreak_UnsortedInput(t *testing.T) {
	logs := concat(doneInWeek(0, 2), doneInWeek(3, 2), doneInWeek(1, 2), doneInWeek(2, 2))

	current, best := WeeklyStreak(logs, 2, today)
	assert.Equal(t, 4, current)
	assert.Equal(t, 4, best)
}

func TestWeeklyStreak_BestNeverBelowCurrent(t *testing.T) {
	for _, logs := range randomHistories(200) {
		for target := 1; target <= 7; target++ {
			current, best := WeeklyStreak(logs, target, today)
			assert.GreaterOrEqual(t, best, current)
		}
	}
}
