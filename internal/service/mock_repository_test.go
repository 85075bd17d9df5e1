package service

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/mock"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

type MockRepository struct {
	mock.Mock
}

var _ repository.Repository = (*MockRepository)(nil)

func (m *MockRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) GetLatestUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockRepository) GetUsersForReminders(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockRepository) GetBroadcastRecipients(ctx context.Context, afterUserID int64, limit int) ([]repository.Recipient, error) {
	args := m.Called(ctx, afterUserID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Recipient), args.Error(1)
}

func (m *MockRepository) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CreateHabit(ctx context.Context, habit *domain.Habit) error {
	return m.Called(ctx, habit).Error(0)
}

func (m *MockRepository) GetHabitByID(ctx context.Context, id int64) (*domain.Habit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Habit), args.Error(1)
}

func (m *MockRepository) GetUserHabits(ctx context.Context, userID int64, activeOnly bool) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *MockRepository) UpdateHabit(ctx context.Context, habit *domain.Habit) error {
	return m.Called(ctx, habit).Error(0)
}

func (m *MockRepository) DeleteHabit(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CountActiveHabits(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpsertLog(ctx context.Context, log *domain.HabitLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockRepository) GetHabitLogs(ctx context.Context, habitID int64) ([]domain.HabitLog, error) {
	args := m.Called(ctx, habitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HabitLog), args.Error(1)
}

func (m *MockRepository) GetUserLogsForDate(ctx context.Context, userID int64, date civil.Date) ([]domain.HabitLog, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HabitLog), args.Error(1)
}

func (m *MockRepository) GetAdminStats(ctx context.Context, today civil.Date) (*domain.AdminStats, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminStats), args.Error(1)
}

func (m *MockRepository) CreateMilestone(ctx context.Context, ms *domain.Milestone) error {
	return m.Called(ctx, ms).Error(0)
}

func (m *MockRepository) HasMilestone(ctx context.Context, habitID int64, streakDays int) (bool, error) {
	args := m.Called(ctx, habitID, streakDays)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetUserMilestones(ctx context.Context, userID int64) ([]*domain.Milestone, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Milestone), args.Error(1)
}

func (m *MockRepository) CreateBroadcast(ctx context.Context, b *domain.Broadcast) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepository) GetBroadcastByID(ctx context.Context, id int64) (*domain.Broadcast, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Broadcast), args.Error(1)
}

func (m *MockRepository) GetAllBroadcasts(ctx context.Context) ([]*domain.Broadcast, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Broadcast), args.Error(1)
}

func (m *MockRepository) GetRunningBroadcast(ctx context.Context) (*domain.Broadcast, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Broadcast), args.Error(1)
}

func (m *MockRepository) UpdateBroadcastStatus(ctx context.Context, id int64, status domain.BroadcastStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockRepository) UpdateBroadcastProgress(ctx context.Context, id int64, sent, failed int, lastUserID int64) error {
	return m.Called(ctx, id, sent, failed, lastUserID).Error(0)
}

func (m *MockRepository) StartBroadcast(ctx context.Context, id int64, totalUsers int) error {
	return m.Called(ctx, id, totalUsers).Error(0)
}

func (m *MockRepository) CompleteBroadcast(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) AddAdmin(ctx context.Context, telegramID, addedBy int64) error {
	return m.Called(ctx, telegramID, addedBy).Error(0)
}

func (m *MockRepository) GetAdminIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRepository) GetExportData(ctx context.Context) (*repository.ExportData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ExportData), args.Error(1)
}

func (m *MockRepository) Close() {}
