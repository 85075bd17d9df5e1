package service

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

type MilestoneService struct {
	repo  repository.Repository
	users *UserService
	log   *log.Logger
}

func NewMilestoneService(repo repository.Repository, users *UserService, logger *log.Logger) *MilestoneService {
	return &MilestoneService{repo: repo, users: users, log: logger.WithPrefix("milestones")}
}

// CheckMilestones records every milestone the habit's current streak has
// reached for the first time and returns them, lowest first. Milestones
// count days, so weekly habits never reach them.
func (s *MilestoneService) CheckMilestones(ctx context.Context, user *domain.User, habit *domain.Habit, stats domain.HabitStats) ([]domain.MilestoneConfig, error) {
	if habit.Schedule.IsWeekly() {
		return nil, nil
	}

	var reached []domain.MilestoneConfig
	for _, cfg := range domain.MilestonesConfig {
		if stats.CurrentStreak < cfg.Streak {
			break
		}

		has, err := s.repo.HasMilestone(ctx, habit.ID, cfg.Streak)
		if err != nil {
			return nil, fmt.Errorf("check milestone: %w", err)
		}
		if has {
			continue
		}

		m := &domain.Milestone{
			UserID:     user.ID,
			HabitID:    habit.ID,
			StreakDays: cfg.Streak,
			ReachedAt:  s.users.now(),
		}
		if err := s.repo.CreateMilestone(ctx, m); err != nil {
			return nil, fmt.Errorf("create milestone: %w", err)
		}

		milestonesReachedTotal.Inc()
		s.log.Info("milestone reached", "user", user.TelegramID, "habit", habit.ID, "streak", cfg.Streak)
		reached = append(reached, cfg)
	}

	return reached, nil
}

func (s *MilestoneService) GetUserMilestones(ctx context.Context, user *domain.User) ([]*domain.Milestone, error) {
	return s.repo.GetUserMilestones(ctx, user.ID)
}

// NextMilestone returns the first milestone above streak, or nil after the last one.
func NextMilestone(streak int) *domain.MilestoneConfig {
	for i := range domain.MilestonesConfig {
		if domain.MilestonesConfig[i].Streak > streak {
			return &domain.MilestonesConfig[i]
		}
	}
	return nil
}
