package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

var (
	ErrUserNotFound    = errors.New("пользователь не найден")
	ErrInvalidTime     = errors.New("неверный формат времени, нужно ЧЧ:ММ")
	ErrInvalidTimezone = errors.New("неизвестный часовой пояс")
	ErrInvalidAge      = errors.New("возраст должен быть числом от 1 до 120")
	ErrEmptyValue      = errors.New("значение не может быть пустым")
)

// Timezones offered in settings. Any IANA name is accepted as free text too.
var Timezones = []string{
	"Europe/Kaliningrad",
	"Europe/Moscow",
	"Europe/Samara",
	"Asia/Yekaterinburg",
	"Asia/Omsk",
	"Asia/Novosibirsk",
	"Asia/Krasnoyarsk",
	"Asia/Irkutsk",
	"Asia/Yakutsk",
	"Asia/Vladivostok",
}

type UserService struct {
	repo       repository.Repository
	defaultLoc *time.Location
	log        *log.Logger
	now        func() time.Time
}

func NewUserService(repo repository.Repository, defaultLoc *time.Location, logger *log.Logger) *UserService {
	return &UserService{
		repo:       repo,
		defaultLoc: defaultLoc,
		log:        logger.WithPrefix("users"),
		now:        time.Now,
	}
}

// EnsureUser registers the Telegram user on first contact and refreshes
// their Telegram profile fields afterwards.
func (s *UserService) EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*domain.User, error) {
	user := &domain.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Timezone:   s.defaultLoc.String(),
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", telegramID, err)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	return user, nil
}

func (s *UserService) Save(ctx context.Context, user *domain.User) error {
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user %d: %w", user.TelegramID, err)
	}
	return nil
}

// Location returns the user's timezone, or the default one when the stored
// name is empty or no longer valid.
func (s *UserService) Location(user *domain.User) *time.Location {
	if user.Timezone == "" {
		return s.defaultLoc
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		s.log.Warn("invalid stored timezone", "user", user.TelegramID, "tz", user.Timezone)
		return s.defaultLoc
	}
	return loc
}

// Now is the current instant on the user's wall clock.
func (s *UserService) Now(user *domain.User) time.Time {
	return s.now().In(s.Location(user))
}

// Today is the user's current calendar date.
func (s *UserService) Today(user *domain.User) civil.Date {
	return civil.DateOf(s.Now(user))
}

// CheckedInToday reports whether the user marked anything as done today.
func (s *UserService) CheckedInToday(user *domain.User) bool {
	if user.LastCheckIn == nil {
		return false
	}
	loc := s.Location(user)
	return civil.DateOf(user.LastCheckIn.In(loc)) == civil.DateOf(s.now().In(loc))
}

// ==================== ONBOARDING ====================

func (s *UserService) SetStep(ctx context.Context, user *domain.User, step domain.OnboardingStep) error {
	user.OnboardingStep = step
	return s.Save(ctx, user)
}

func (s *UserService) SetSelfIdentification(ctx context.Context, user *domain.User, value string) error {
	user.SelfIdentification = value
	user.OnboardingStep = domain.StepHabitChoice
	return s.Save(ctx, user)
}

// ChooseHabit stores a preset choice and moves on to the first check-in, or
// asks for a custom name when the custom option was picked.
func (s *UserService) ChooseHabit(ctx context.Context, user *domain.User, key string) error {
	if key == domain.HabitChoiceCustom {
		user.CurrentHabit = domain.HabitChoiceCustom
		user.OnboardingStep = domain.StepCustomHabit
		return s.Save(ctx, user)
	}
	for _, p := range domain.PresetHabits {
		if p.Key == key {
			user.CurrentHabit = key
			user.OnboardingStep = domain.StepFirstCheckIn
			return s.Save(ctx, user)
		}
	}
	return fmt.Errorf("unknown preset habit %q", key)
}

func (s *UserService) SetCustomHabit(ctx context.Context, user *domain.User, name string) error {
	name, err := ValidateHabitName(name)
	if err != nil {
		return err
	}
	user.CurrentHabit = domain.HabitChoiceCustom
	user.CustomHabit = name
	user.OnboardingStep = domain.StepFirstCheckIn
	return s.Save(ctx, user)
}

func (s *UserService) SetName(ctx context.Context, user *domain.User, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyValue
	}
	user.Name = name
	user.OnboardingStep = domain.StepAge
	return s.Save(ctx, user)
}

func (s *UserService) SetAge(ctx context.Context, user *domain.User, raw string) error {
	age, err := ParseAge(raw)
	if err != nil {
		return err
	}
	user.Age = &age
	user.OnboardingStep = domain.StepCity
	return s.Save(ctx, user)
}

func (s *UserService) SetCity(ctx context.Context, user *domain.User, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return ErrEmptyValue
	}
	user.City = city
	user.OnboardingStep = domain.StepActivity
	return s.Save(ctx, user)
}

func (s *UserService) SetActivity(ctx context.Context, user *domain.User, level string) error {
	user.ActivityLevel = level
	user.OnboardingStep = domain.StepGoal
	return s.Save(ctx, user)
}

func (s *UserService) SetGoal(ctx context.Context, user *domain.User, goal string) error {
	user.Goal = goal
	user.OnboardingStep = domain.StepReminder
	return s.Save(ctx, user)
}

// CompleteOnboarding stores the reminder time and closes the dialog.
// An empty reminder leaves reminders off.
func (s *UserService) CompleteOnboarding(ctx context.Context, user *domain.User, reminder string) error {
	if reminder != "" {
		normalized, err := ParseReminderTime(reminder)
		if err != nil {
			return err
		}
		user.ReminderTime = &normalized
		user.RemindersEnabled = true
	} else {
		user.ReminderTime = nil
		user.RemindersEnabled = false
	}
	user.OnboardingDone = true
	user.OnboardingStep = domain.StepOnboardingFinish
	if err := s.Save(ctx, user); err != nil {
		return err
	}
	s.log.Info("onboarding completed", "user", user.TelegramID)
	return nil
}

// ==================== SETTINGS ====================

func (s *UserService) SetReminderTime(ctx context.Context, user *domain.User, raw string) error {
	normalized, err := ParseReminderTime(raw)
	if err != nil {
		return err
	}
	user.ReminderTime = &normalized
	user.RemindersEnabled = true
	return s.Save(ctx, user)
}

func (s *UserService) SetRemindersEnabled(ctx context.Context, user *domain.User, enabled bool) error {
	user.RemindersEnabled = enabled
	return s.Save(ctx, user)
}

func (s *UserService) SetTimezone(ctx context.Context, user *domain.User, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, name)
	}
	user.Timezone = loc.String()
	return s.Save(ctx, user)
}

// ParseReminderTime accepts H:MM, HH:MM or HH.MM and returns HH:MM.
func ParseReminderTime(raw string) (string, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ".", ":")
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return "", ErrInvalidTime
	}
	return t.Format("15:04"), nil
}

func ParseAge(raw string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || age < 1 || age > 120 {
		return 0, ErrInvalidAge
	}
	return age, nil
}
