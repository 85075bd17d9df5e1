package repository

import (
	"context"

	"cloud.google.com/go/civil"

	"mewego-bot/internal/domain"
)

// ExportData is everything the admin workbook export needs, loaded in one go.
type ExportData struct {
	Users  []*domain.User
	Habits []*domain.Habit
	Logs   []domain.HabitLog
}

// Recipient is one broadcast target, ordered by UserID.
type Recipient struct {
	UserID     int64
	TelegramID int64
}

type Repository interface {
	// Users
	UpsertUser(ctx context.Context, user *domain.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	GetLatestUsers(ctx context.Context, limit int) ([]*domain.User, error)
	GetUsersForReminders(ctx context.Context) ([]*domain.User, error)
	GetBroadcastRecipients(ctx context.Context, afterUserID int64, limit int) ([]Recipient, error)
	CountUsers(ctx context.Context) (int, error)

	// Habits
	CreateHabit(ctx context.Context, habit *domain.Habit) error
	GetHabitByID(ctx context.Context, id int64) (*domain.Habit, error)
	GetUserHabits(ctx context.Context, userID int64, activeOnly bool) ([]*domain.Habit, error)
	UpdateHabit(ctx context.Context, habit *domain.Habit) error
	DeleteHabit(ctx context.Context, id int64) error
	CountActiveHabits(ctx context.Context, userID int64) (int, error)

	// Habit logs
	UpsertLog(ctx context.Context, log *domain.HabitLog) error
	GetHabitLogs(ctx context.Context, habitID int64) ([]domain.HabitLog, error)
	GetUserLogsForDate(ctx context.Context, userID int64, date civil.Date) ([]domain.HabitLog, error)

	// Statistics
	GetAdminStats(ctx context.Context, today civil.Date) (*domain.AdminStats, error)

	// Milestones
	CreateMilestone(ctx context.Context, m *domain.Milestone) error
	HasMilestone(ctx context.Context, habitID int64, streakDays int) (bool, error)
	GetUserMilestones(ctx context.Context, userID int64) ([]*domain.Milestone, error)

	// Broadcasts
	CreateBroadcast(ctx context.Context, b *domain.Broadcast) error
	GetBroadcastByID(ctx context.Context, id int64) (*domain.Broadcast, error)
	GetAllBroadcasts(ctx context.Context) ([]*domain.Broadcast, error)
	GetRunningBroadcast(ctx context.Context) (*domain.Broadcast, error)
	UpdateBroadcastStatus(ctx context.Context, id int64, status domain.BroadcastStatus) error
	UpdateBroadcastProgress(ctx context.Context, id int64, sent, failed int, lastUserID int64) error
	StartBroadcast(ctx context.Context, id int64, totalUsers int) error
	CompleteBroadcast(ctx context.Context, id int64) error

	// Admins
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	AddAdmin(ctx context.Context, telegramID, addedBy int64) error
	GetAdminIDs(ctx context.Context) ([]int64, error)

	// Export
	GetExportData(ctx context.Context) (*ExportData, error)

	Close()
}
