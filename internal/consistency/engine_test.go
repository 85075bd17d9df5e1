package consistency

import (
	"math/rand"
	"slices"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mewego-bot/internal/domain"
)

var allStatuses = []domain.LogStatus{domain.StatusDone, domain.StatusNotDone, domain.StatusSkipped}

// randomHistories builds n reproducible histories around today, including
// duplicates, future dates and undated records.
func randomHistories(n int) [][]domain.HabitLog {
	r := rand.New(rand.NewSource(42))
	out := make([][]domain.HabitLog, 0, n)
	for i := 0; i < n; i++ {
		size := r.Intn(50)
		logs := make([]domain.HabitLog, 0, size)
		for j := 0; j < size; j++ {
			l := domain.HabitLog{Status: allStatuses[r.Intn(len(allStatuses))]}
			if r.Intn(20) != 0 {
				l.LogDate = ago(r.Intn(70) - 5)
			}
			logs = append(logs, l)
		}
		out = append(out, logs)
	}
	return out
}

var schedules = []domain.Schedule{
	domain.DailySchedule(),
	domain.WeeklySchedule(1),
	domain.WeeklySchedule(3),
	domain.WeeklySchedule(7),
}

func TestCompute_Daily(t *testing.T) {
	logs := []domain.HabitLog{
		entry(ago(3), domain.StatusDone),
		entry(ago(2), domain.StatusSkipped),
		entry(ago(1), domain.StatusDone),
		entry(today, domain.StatusDone),
		{Status: domain.StatusDone},
	}

	stats := Compute(logs, domain.DailySchedule(), today)
	assert.Equal(t, domain.HabitStats{
		CurrentStreak: 3,
		BestStreak:    3,
		Done7Days:     3,
		Done30Days:    3,
		TotalDone:     4,
	}, stats)
}

func TestCompute_Weekly(t *testing.T) {
	logs := concat(doneInWeek(2, 3), doneInWeek(1, 3), doneInWeek(0, 1))

	stats := Compute(logs, domain.WeeklySchedule(3), today)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 7, stats.TotalDone)
}

func TestCompute_Empty(t *testing.T) {
	for _, s := range schedules {
		assert.Equal(t, domain.HabitStats{}, Compute(nil, s, today), s.String())
		assert.Equal(t, domain.HabitStats{}, Compute([]domain.HabitLog{}, s, today), s.String())
	}
}

func TestCompute_DuplicateEqualsReplacement(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for _, logs := range randomHistories(150) {
		var target civil.Date
		for _, l := range logs {
			if l.HasDate() {
				target = l.LogDate
				break
			}
		}
		if target.IsZero() {
			continue
		}
		status := allStatuses[r.Intn(len(allStatuses))]

		appended := append(append([]domain.HabitLog(nil), logs...), entry(target, status))

		var replaced []domain.HabitLog
		for _, l := range logs {
			if l.HasDate() && l.LogDate == target {
				continue
			}
			replaced = append(replaced, l)
		}
		replaced = append(replaced, entry(target, status))

		for _, s := range schedules {
			assert.Equal(t, Compute(replaced, s, today), Compute(appended, s, today), s.String())
		}
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	for _, logs := range randomHistories(50) {
		before := slices.Clone(logs)
		for _, s := range schedules {
			Compute(logs, s, today)
		}
		require.Equal(t, before, logs)
	}
}

func TestCompute_DoesNotMutateEmptyInput(t *testing.T) {
	logs := make([]domain.HabitLog, 0, 4)
	before := slices.Clone(logs)
	for _, s := range schedules {
		Compute(logs, s, today)
	}
	require.NotNil(t, before)
	require.Equal(t, before, logs)
}

func TestCompute_Concurrent(t *testing.T) {
	histories := randomHistories(40)
	want := make([]domain.HabitStats, len(histories))
	for i, logs := range histories {
		want[i] = Compute(logs, domain.DailySchedule(), today)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, logs := range histories {
				assert.Equal(t, want[i], Compute(logs, domain.DailySchedule(), today))
			}
		}()
	}
	wg.Wait()
}
