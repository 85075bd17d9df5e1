package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/logger"
)

func newTestStatsService(t *testing.T, repo *MockRepository, workers int) *StatsService {
	t.Helper()
	return NewStatsService(repo, newTestUserService(t, repo, testNow), workers, logger.Discard())
}

func doneDays(habitID int64, daysAgo ...int) []domain.HabitLog {
	logs := make([]domain.HabitLog, 0, len(daysAgo))
	for _, n := range daysAgo {
		logs = append(logs, domain.HabitLog{HabitID: habitID, LogDate: testToday.AddDays(-n), Status: domain.StatusDone})
	}
	return logs
}

func TestStatsService_HabitStats(t *testing.T) {
	repo := new(MockRepository)
	s := newTestStatsService(t, repo, 4)
	habit := &domain.Habit{ID: 3, UserID: 1, Schedule: domain.DailySchedule()}

	repo.On("GetHabitLogs", mock.Anything, int64(3)).Return(doneDays(3, 0, 1, 2, 10), nil)

	stats, err := s.HabitStats(context.Background(), testUser(), habit)
	require.NoError(t, err)
	assert.Equal(t, domain.HabitStats{
		CurrentStreak: 3,
		BestStreak:    3,
		Done7Days:     3,
		Done30Days:    4,
		TotalDone:     4,
	}, stats)
}

func TestStatsService_UserStatsKeepsHabitOrder(t *testing.T) {
	repo := new(MockRepository)
	s := newTestStatsService(t, repo, 2)

	habits := []*domain.Habit{
		{ID: 1, UserID: 1, Schedule: domain.DailySchedule()},
		{ID: 2, UserID: 1, Schedule: domain.DailySchedule()},
		{ID: 3, UserID: 1, Schedule: domain.DailySchedule()},
		{ID: 4, UserID: 1, Schedule: domain.DailySchedule()},
		{ID: 5, UserID: 1, Schedule: domain.DailySchedule()},
	}
	repo.On("GetUserHabits", mock.Anything, int64(1), true).Return(habits, nil)
	for i, h := range habits {
		// habit i has a streak of i+1 days ending today
		var days []int
		for d := 0; d <= i; d++ {
			days = append(days, d)
		}
		repo.On("GetHabitLogs", mock.Anything, h.ID).Return(doneDays(h.ID, days...), nil)
	}

	reports, err := s.UserStats(context.Background(), testUser())
	require.NoError(t, err)
	require.Len(t, reports, len(habits))
	for i, r := range reports {
		assert.Same(t, habits[i], r.Habit)
		assert.Equal(t, i+1, r.Stats.CurrentStreak)
	}
}

func TestStatsService_UserStatsFailsOnAnyHabit(t *testing.T) {
	repo := new(MockRepository)
	s := newTestStatsService(t, repo, 4)

	habits := []*domain.Habit{{ID: 1, UserID: 1}, {ID: 2, UserID: 1}}
	repo.On("GetUserHabits", mock.Anything, int64(1), true).Return(habits, nil)
	repo.On("GetHabitLogs", mock.Anything, int64(1)).Return([]domain.HabitLog{}, nil)
	repo.On("GetHabitLogs", mock.Anything, int64(2)).Return(nil, errors.New("timeout"))

	_, err := s.UserStats(context.Background(), testUser())
	assert.ErrorContains(t, err, "timeout")
}

func TestStatsService_HabitDetails(t *testing.T) {
	repo := new(MockRepository)
	s := newTestStatsService(t, repo, 1)
	habit := &domain.Habit{ID: 3, UserID: 1, Schedule: domain.DailySchedule()}

	logs := append(doneDays(3, 0, 2), domain.HabitLog{HabitID: 3, LogDate: testToday.AddDays(-1), Status: domain.StatusSkipped})
	repo.On("GetHabitLogs", mock.Anything, int64(3)).Return(logs, nil)

	details, err := s.HabitDetails(context.Background(), testUser(), habit, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, details.Stats.CurrentStreak)
	require.Len(t, details.Recent, 7)
	assert.Equal(t, testToday, details.Recent[6].Date)
	assert.Equal(t, domain.StatusDone, details.Recent[6].Status)
	assert.Equal(t, domain.StatusSkipped, details.Recent[5].Status)
	assert.Equal(t, domain.StatusDone, details.Recent[4].Status)
	assert.Equal(t, domain.LogStatus(""), details.Recent[0].Status)
}

func TestRecentMarks_LastRecordWins(t *testing.T) {
	logs := []domain.HabitLog{
		{LogDate: testToday, Status: domain.StatusDone},
		{LogDate: testToday, Status: domain.StatusNotDone},
		{Status: domain.StatusDone},
	}

	marks := RecentMarks(logs, testToday, 2)
	require.Len(t, marks, 2)
	assert.Equal(t, domain.StatusNotDone, marks[1].Status)
	assert.Equal(t, testToday.AddDays(-1), marks[0].Date)
}
