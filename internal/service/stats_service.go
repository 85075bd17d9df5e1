package service

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"mewego-bot/internal/consistency"
	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

// DayMark is the status of one calendar day; an empty Status means unmarked.
type DayMark struct {
	Date   civil.Date
	Status domain.LogStatus
}

// HabitDetails is what the single-habit statistics screen shows.
type HabitDetails struct {
	Habit  *domain.Habit
	Stats  domain.HabitStats
	Recent []DayMark // oldest first, ending today
}

type StatsService struct {
	repo    repository.Repository
	users   *UserService
	workers int
	log     *log.Logger
}

func NewStatsService(repo repository.Repository, users *UserService, workers int, logger *log.Logger) *StatsService {
	if workers < 1 {
		workers = 1
	}
	return &StatsService{
		repo:    repo,
		users:   users,
		workers: workers,
		log:     logger.WithPrefix("stats"),
	}
}

func (s *StatsService) HabitStats(ctx context.Context, user *domain.User, habit *domain.Habit) (domain.HabitStats, error) {
	stats, _, err := s.compute(ctx, user, habit)
	return stats, err
}

func (s *StatsService) compute(ctx context.Context, user *domain.User, habit *domain.Habit) (domain.HabitStats, []domain.HabitLog, error) {
	start := time.Now()
	defer func() { statsDuration.Observe(time.Since(start).Seconds()) }()

	logs, err := s.repo.GetHabitLogs(ctx, habit.ID)
	if err != nil {
		return domain.HabitStats{}, nil, fmt.Errorf("load logs of habit %d: %w", habit.ID, err)
	}
	return consistency.Compute(logs, habit.Schedule, s.users.Today(user)), logs, nil
}

// HabitDetails computes the statistics of one habit together with its marks
// for the last days days.
func (s *StatsService) HabitDetails(ctx context.Context, user *domain.User, habit *domain.Habit, days int) (*HabitDetails, error) {
	stats, logs, err := s.compute(ctx, user, habit)
	if err != nil {
		return nil, err
	}
	return &HabitDetails{
		Habit:  habit,
		Stats:  stats,
		Recent: RecentMarks(logs, s.users.Today(user), days),
	}, nil
}

// UserStats computes every active habit of the user concurrently. Reports come
// back in the order of the user's habit list.
func (s *StatsService) UserStats(ctx context.Context, user *domain.User) ([]domain.HabitReport, error) {
	habits, err := s.repo.GetUserHabits(ctx, user.ID, true)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	reports := make([]domain.HabitReport, len(habits))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, habit := range habits {
		i, habit := i, habit
		g.Go(func() error {
			stats, err := s.HabitStats(ctx, user, habit)
			if err != nil {
				return err
			}
			reports[i] = domain.HabitReport{Habit: habit, Stats: stats}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

// RecentMarks returns one mark per calendar day for the period ending today,
// oldest first, using the same last-record-wins rule as the statistics.
func RecentMarks(logs []domain.HabitLog, today civil.Date, days int) []DayMark {
	byDay := make(map[civil.Date]domain.LogStatus, len(logs))
	for _, l := range logs {
		if l.HasDate() {
			byDay[l.LogDate] = l.Status
		}
	}

	marks := make([]DayMark, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDays(-i)
		marks = append(marks, DayMark{Date: d, Status: byDay[d]})
	}
	return marks
}
