package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrInvalidWeeklyTarget = errors.New("weekly target must be between 1 and 7")
	ErrUnknownStatus       = errors.New("unknown log status")
)

// ==================== USER ====================

type User struct {
	ID            int64
	TelegramID    int64
	Username      string
	FirstName     string
	LastName      string
	Name          string
	Age           *int
	City          string
	ActivityLevel string
	Goal          string
	ReminderTime  *string
	Timezone      string

	RemindersEnabled bool

	CurrentHabit       string
	CustomHabit        string
	DayCycle           int
	OnboardingDone     bool
	OnboardingStep     OnboardingStep
	SelfIdentification string

	LastCheckIn *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayName is the name the user gave during onboarding, falling back to Telegram data.
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	}
	return "друг"
}

// OnboardingHabitName resolves the habit picked during onboarding to its display name.
func (u *User) OnboardingHabitName() string {
	if u.CurrentHabit == HabitChoiceCustom {
		return u.CustomHabit
	}
	for _, p := range PresetHabits {
		if p.Key == u.CurrentHabit {
			return p.Name
		}
	}
	return u.CurrentHabit
}

type OnboardingStep string

const (
	StepStart            OnboardingStep = "start"
	StepWaitingStart     OnboardingStep = "waiting_start"
	StepSelfID           OnboardingStep = "self_identification"
	StepHabitChoice      OnboardingStep = "habit_choice"
	StepCustomHabit      OnboardingStep = "custom_habit"
	StepFirstCheckIn     OnboardingStep = "first_checkin"
	StepName             OnboardingStep = "profile_name"
	StepAge              OnboardingStep = "profile_age"
	StepCity             OnboardingStep = "profile_city"
	StepActivity         OnboardingStep = "profile_activity"
	StepGoal             OnboardingStep = "profile_goal"
	StepReminder         OnboardingStep = "profile_reminder"
	StepCustomReminder   OnboardingStep = "profile_custom_reminder"
	StepOnboardingFinish OnboardingStep = "completed"
)

const HabitChoiceCustom = "custom"

type PresetHabit struct {
	Key  string
	Name string
}

var PresetHabits = []PresetHabit{
	{"walk", "🚶‍♀️ 5 минут движения"},
	{"water", "💧 Выпить воду"},
	{"outdoor", "🌿 Прогулка"},
	{"yoga", "🧘‍♀️ Любое движение"},
}

// ==================== HABIT ====================

type Habit struct {
	ID        int64
	UserID    int64
	Name      string
	Schedule  Schedule
	IsActive  bool
	CreatedAt time.Time
}

type ScheduleType string

const (
	ScheduleDaily  ScheduleType = "daily"
	ScheduleWeekly ScheduleType = "weekly"
)

// Schedule decides which streak policy applies to a habit.
// WeeklyTarget is only meaningful for weekly schedules.
type Schedule struct {
	Type         ScheduleType
	WeeklyTarget int
}

func DailySchedule() Schedule {
	return Schedule{Type: ScheduleDaily, WeeklyTarget: 7}
}

func WeeklySchedule(target int) Schedule {
	return Schedule{Type: ScheduleWeekly, WeeklyTarget: target}
}

func (s Schedule) IsWeekly() bool {
	return s.Type == ScheduleWeekly
}

func (s Schedule) Validate() error {
	switch s.Type {
	case ScheduleDaily:
		return nil
	case ScheduleWeekly:
		if s.WeeklyTarget < 1 || s.WeeklyTarget > 7 {
			return fmt.Errorf("%w: got %d", ErrInvalidWeeklyTarget, s.WeeklyTarget)
		}
		return nil
	}
	return fmt.Errorf("unknown schedule type %q", s.Type)
}

func (s Schedule) String() string {
	if s.IsWeekly() {
		return fmt.Sprintf("%dx в неделю", s.WeeklyTarget)
	}
	return "Ежедневно"
}

// ==================== HABIT LOG ====================

type LogStatus string

const (
	StatusDone    LogStatus = "done"
	StatusNotDone LogStatus = "not_done"
	StatusSkipped LogStatus = "skipped"
)

// ParseLogStatus normalizes raw callback or storage values into a LogStatus.
func ParseLogStatus(raw string) (LogStatus, error) {
	switch LogStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDone:
		return StatusDone, nil
	case StatusNotDone:
		return StatusNotDone, nil
	case StatusSkipped:
		return StatusSkipped, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

func (s LogStatus) Emoji() string {
	switch s {
	case StatusDone:
		return "✅"
	case StatusNotDone:
		return "❌"
	case StatusSkipped:
		return "⏭"
	}
	return "⬜️"
}

func (s LogStatus) Title() string {
	switch s {
	case StatusDone:
		return "Выполнено"
	case StatusNotDone:
		return "Не сделал"
	case StatusSkipped:
		return "Пропуск"
	}
	return string(s)
}

// HabitLog is one check-in of a habit for a calendar date.
// A zero LogDate marks a legacy record without a date.
type HabitLog struct {
	ID          int64
	HabitID     int64
	UserID      int64
	LogDate     civil.Date
	Status      LogStatus
	DayCycle    *int
	CompletedAt time.Time
}

func (l HabitLog) HasDate() bool {
	return !l.LogDate.IsZero()
}

// ==================== STATISTICS ====================

type HabitStats struct {
	CurrentStreak int
	BestStreak    int
	Done7Days     int
	Done30Days    int
	TotalDone     int
}

// HabitReport pairs a habit with its computed statistics.
type HabitReport struct {
	Habit *Habit
	Stats HabitStats
}

type AdminStats struct {
	TotalUsers     int
	OnboardedUsers int
	TotalLogs      int
	TodayLogs      int
}

// ==================== MILESTONES ====================

type Milestone struct {
	ID         int64
	UserID     int64
	HabitID    int64
	StreakDays int
	ReachedAt  time.Time
}

type MilestoneConfig struct {
	Streak int
	Title  string
	Emoji  string
}

var MilestonesConfig = []MilestoneConfig{
	{7, "Первая неделя", "🔓"},
	{14, "Две недели", "🔥"},
	{30, "Месяц силы", "💪"},
	{60, "Два месяца", "⭐️"},
	{100, "Легенда", "🏆"},
}

// ==================== BROADCASTS ====================

type Broadcast struct {
	ID          int64
	Kind        BroadcastKind
	Text        string
	ButtonText  *string
	ButtonURL   *string
	PollOptions []string
	Status      BroadcastStatus
	TotalUsers  int
	SentCount   int
	FailedCount int
	LastUserID  int64
	CreatedBy   int64
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

type BroadcastKind string

const (
	BroadcastMessage BroadcastKind = "message"
	BroadcastPoll    BroadcastKind = "poll"
)

type BroadcastStatus string

const (
	BroadcastDraft     BroadcastStatus = "draft"
	BroadcastRunning   BroadcastStatus = "running"
	BroadcastPaused    BroadcastStatus = "paused"
	BroadcastCompleted BroadcastStatus = "completed"
)

// ==================== ADMINS ====================

type Admin struct {
	ID         int64
	TelegramID int64
	AddedBy    int64
	CreatedAt  time.Time
}

// ==================== CONSTANTS ====================

const (
	MaxActiveHabits   = 10
	MaxHabitNameRunes = 50
	DayCycleLength    = 30
	MinPollOptions    = 2
	MaxPollOptions    = 10
)
