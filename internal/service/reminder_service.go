package service

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

type NotifyFunc func(user *domain.User, habitName string) error

type ReminderService struct {
	repo   repository.Repository
	users  *UserService
	cron   *cron.Cron
	log    *log.Logger
	notify NotifyFunc

	mu sync.Mutex
}

func NewReminderService(repo repository.Repository, users *UserService, logger *log.Logger) *ReminderService {
	l := logger.WithPrefix("reminders")
	return &ReminderService{
		repo:  repo,
		users: users,
		log:   l,
		cron:  cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(l.StandardLog())))),
	}
}

func (s *ReminderService) SetNotifyFunc(fn NotifyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

func (s *ReminderService) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.checkReminders(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("reminder service started")
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *ReminderService) Stop() {
	<-s.cron.Stop().Done()
}

// After runs fn once, delay from now, on the reminder scheduler.
func (s *ReminderService) After(delay time.Duration, fn func()) {
	var (
		id   cron.EntryID
		idMu sync.Mutex
	)
	idMu.Lock()
	id = s.cron.Schedule(onceAt(time.Now().Add(delay)), cron.FuncJob(func() {
		fn()
		idMu.Lock()
		s.cron.Remove(id)
		idMu.Unlock()
	}))
	idMu.Unlock()
}

// onceAt fires a single time; afterwards Next reports the zero time, which the
// scheduler treats as never.
type onceAt time.Time

func (o onceAt) Next(t time.Time) time.Time {
	at := time.Time(o)
	if t.Before(at) {
		return at
	}
	return time.Time{}
}

func (s *ReminderService) checkReminders(ctx context.Context) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify == nil {
		return
	}

	users, err := s.repo.GetUsersForReminders(ctx)
	if err != nil {
		s.log.Error("load users for reminders", "err", err)
		return
	}

	for _, user := range s.due(users) {
		habitName := ""
		if habits, err := s.repo.GetUserHabits(ctx, user.ID, true); err != nil {
			s.log.Warn("load habits for reminder", "user", user.TelegramID, "err", err)
		} else if len(habits) > 0 {
			habitName = habits[0].Name
		}

		if err := notify(user, habitName); err != nil {
			remindersSentTotal.WithLabelValues("failed").Inc()
			s.log.Warn("send reminder", "user", user.TelegramID, "err", err)
			continue
		}
		remindersSentTotal.WithLabelValues("sent").Inc()
	}
}

// due keeps the users whose reminder time is the current minute on their own
// clock and who have not checked in today yet.
func (s *ReminderService) due(users []*domain.User) []*domain.User {
	var out []*domain.User
	for _, u := range users {
		if !u.RemindersEnabled || u.ReminderTime == nil {
			continue
		}
		if s.users.Now(u).Format("15:04") != *u.ReminderTime {
			continue
		}
		if s.users.CheckedInToday(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}
