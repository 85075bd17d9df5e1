package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

var (
	ErrHabitLimitReached = errors.New("достигнут лимит привычек")
	ErrHabitNotFound     = errors.New("привычка не найдена")
	ErrHabitInactive     = errors.New("привычка на паузе")
	ErrAccessDenied      = errors.New("доступ запрещён")
	ErrInvalidHabitName  = errors.New("название привычки должно быть от 1 до 50 символов")
)

type HabitService struct {
	repo  repository.Repository
	users *UserService
	log   *log.Logger
}

func NewHabitService(repo repository.Repository, users *UserService, logger *log.Logger) *HabitService {
	return &HabitService{
		repo:  repo,
		users: users,
		log:   logger.WithPrefix("habits"),
	}
}

func ValidateHabitName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > domain.MaxHabitNameRunes {
		return "", ErrInvalidHabitName
	}
	return name, nil
}

func (s *HabitService) CreateHabit(ctx context.Context, user *domain.User, name string, schedule domain.Schedule) (*domain.Habit, error) {
	name, err := ValidateHabitName(name)
	if err != nil {
		return nil, err
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	count, err := s.repo.CountActiveHabits(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count habits: %w", err)
	}
	if count >= domain.MaxActiveHabits {
		return nil, ErrHabitLimitReached
	}

	habit := &domain.Habit{
		UserID:   user.ID,
		Name:     name,
		Schedule: schedule,
		IsActive: true,
	}
	if err := s.repo.CreateHabit(ctx, habit); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}

	habitsCreatedTotal.Inc()
	s.log.Info("habit created", "user", user.TelegramID, "habit", habit.ID, "schedule", schedule.Type)
	return habit, nil
}

// EnsureFirstHabit creates the habit picked during onboarding unless the user
// already has one. The bool reports whether a habit was created.
func (s *HabitService) EnsureFirstHabit(ctx context.Context, user *domain.User) (*domain.Habit, bool, error) {
	habits, err := s.repo.GetUserHabits(ctx, user.ID, false)
	if err != nil {
		return nil, false, fmt.Errorf("list habits: %w", err)
	}
	if len(habits) > 0 {
		return habits[0], false, nil
	}

	name := user.OnboardingHabitName()
	if name == "" {
		name = domain.PresetHabits[0].Name
	}
	habit, err := s.CreateHabit(ctx, user, name, domain.DailySchedule())
	if err != nil {
		return nil, false, err
	}
	return habit, true, nil
}

func (s *HabitService) ListHabits(ctx context.Context, user *domain.User, activeOnly bool) ([]*domain.Habit, error) {
	habits, err := s.repo.GetUserHabits(ctx, user.ID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// GetHabit loads a habit and checks that it belongs to user.
func (s *HabitService) GetHabit(ctx context.Context, user *domain.User, habitID int64) (*domain.Habit, error) {
	habit, err := s.repo.GetHabitByID(ctx, habitID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	if habit.UserID != user.ID {
		return nil, ErrAccessDenied
	}
	return habit, nil
}

func (s *HabitService) RenameHabit(ctx context.Context, user *domain.User, habitID int64, name string) (*domain.Habit, error) {
	name, err := ValidateHabitName(name)
	if err != nil {
		return nil, err
	}
	habit, err := s.GetHabit(ctx, user, habitID)
	if err != nil {
		return nil, err
	}

	habit.Name = name
	if err := s.repo.UpdateHabit(ctx, habit); err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return habit, nil
}

// ToggleHabit pauses an active habit or resumes a paused one. Resuming counts
// toward the active habits limit.
func (s *HabitService) ToggleHabit(ctx context.Context, user *domain.User, habitID int64) (*domain.Habit, error) {
	habit, err := s.GetHabit(ctx, user, habitID)
	if err != nil {
		return nil, err
	}

	if !habit.IsActive {
		count, err := s.repo.CountActiveHabits(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("count habits: %w", err)
		}
		if count >= domain.MaxActiveHabits {
			return nil, ErrHabitLimitReached
		}
	}

	habit.IsActive = !habit.IsActive
	if err := s.repo.UpdateHabit(ctx, habit); err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return habit, nil
}

func (s *HabitService) DeleteHabit(ctx context.Context, user *domain.User, habitID int64) error {
	if _, err := s.GetHabit(ctx, user, habitID); err != nil {
		return err
	}
	if err := s.repo.DeleteHabit(ctx, habitID); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	s.log.Info("habit deleted", "user", user.TelegramID, "habit", habitID)
	return nil
}

// TrackToday records status for the habit on the user's current date,
// replacing an earlier mark of the same day. The first Done of a day moves the
// user one step along the day cycle.
func (s *HabitService) TrackToday(ctx context.Context, user *domain.User, habitID int64, status domain.LogStatus) (*domain.HabitLog, error) {
	habit, err := s.GetHabit(ctx, user, habitID)
	if err != nil {
		return nil, err
	}
	if !habit.IsActive {
		return nil, ErrHabitInactive
	}

	advance := status == domain.StatusDone && !s.users.CheckedInToday(user)
	cycle := user.DayCycle
	if advance {
		cycle = cycle%domain.DayCycleLength + 1
	}

	// a check-in only counts once its log row exists
	entry := &domain.HabitLog{
		HabitID:  habit.ID,
		UserID:   user.ID,
		LogDate:  s.users.Today(user),
		Status:   status,
		DayCycle: &cycle,
	}
	if err := s.repo.UpsertLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("save log: %w", err)
	}

	if advance {
		prevCycle, prevCheckIn := user.DayCycle, user.LastCheckIn
		now := s.users.now()
		user.DayCycle = cycle
		user.LastCheckIn = &now
		if err := s.users.Save(ctx, user); err != nil {
			user.DayCycle, user.LastCheckIn = prevCycle, prevCheckIn
			return nil, err
		}
	}

	checkinsTotal.WithLabelValues(string(status)).Inc()
	s.log.Debug("tracked", "user", user.TelegramID, "habit", habit.ID, "status", status, "date", entry.LogDate)
	return entry, nil
}

// TodayStatuses maps habit IDs to today's mark. Unmarked habits are absent.
func (s *HabitService) TodayStatuses(ctx context.Context, user *domain.User) (map[int64]domain.LogStatus, error) {
	logs, err := s.repo.GetUserLogsForDate(ctx, user.ID, s.users.Today(user))
	if err != nil {
		return nil, fmt.Errorf("today logs: %w", err)
	}

	statuses := make(map[int64]domain.LogStatus, len(logs))
	for _, l := range logs {
		statuses[l.HabitID] = l.Status
	}
	return statuses, nil
}
