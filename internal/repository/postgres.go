package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"mewego-bot/internal/domain"
)

var ErrNotFound = errors.New("not found")

//go:embed schema.sql
var schema string

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{db: pool}, nil
}

// Migrate creates missing tables and indexes. It is safe to run on every start.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresRepository) Close() {
	r.db.Close()
}

// ==================== USERS ====================

const userColumns = `id, telegram_id, username, first_name, last_name, name, age, city,
    activity_level, goal, reminder_time, timezone, reminders_enabled, current_habit,
    custom_habit, day_cycle, onboarding_completed, onboarding_step, self_identification,
    last_check_in, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	var step string
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.Name, &u.Age, &u.City,
		&u.ActivityLevel, &u.Goal, &u.ReminderTime, &u.Timezone, &u.RemindersEnabled, &u.CurrentHabit,
		&u.CustomHabit, &u.DayCycle, &u.OnboardingDone, &step, &u.SelfIdentification,
		&u.LastCheckIn, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.OnboardingStep = domain.OnboardingStep(step)
	return u, nil
}

func collectUsers(rows pgx.Rows) ([]*domain.User, error) {
	defer rows.Close()
	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpsertUser inserts a new user or refreshes the Telegram profile fields of an
// existing one, then loads the stored row back into user.
func (r *PostgresRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
    INSERT INTO users (telegram_id, username, first_name, last_name, timezone, onboarding_step, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
    ON CONFLICT (telegram_id) DO UPDATE SET
      username = EXCLUDED.username,
      first_name = EXCLUDED.first_name,
      last_name = EXCLUDED.last_name,
      updated_at = EXCLUDED.updated_at
    RETURNING ` + userColumns

	step := user.OnboardingStep
	if step == "" {
		step = domain.StepStart
	}

	stored, err := scanUser(r.db.QueryRow(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName, user.Timezone, string(step), time.Now(),
	))
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

func (r *PostgresRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
    UPDATE users SET
      name=$2, age=$3, city=$4, activity_level=$5, goal=$6, reminder_time=$7, timezone=$8,
      reminders_enabled=$9, current_habit=$10, custom_habit=$11, day_cycle=$12,
      onboarding_completed=$13, onboarding_step=$14, self_identification=$15,
      last_check_in=$16, updated_at=$17
    WHERE id=$1`

	tag, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Age, user.City, user.ActivityLevel, user.Goal, user.ReminderTime, user.Timezone,
		user.RemindersEnabled, user.CurrentHabit, user.CustomHabit, user.DayCycle,
		user.OnboardingDone, string(user.OnboardingStep), user.SelfIdentification,
		user.LastCheckIn, time.Now(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetLatestUsers(ctx context.Context, limit int) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// GetUsersForReminders returns onboarded users with reminders on. The caller
// matches reminder_time against each user's own local clock.
func (r *PostgresRepository) GetUsersForReminders(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `
    SELECT `+userColumns+` FROM users
    WHERE reminders_enabled = true AND onboarding_completed = true AND reminder_time IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *PostgresRepository) GetBroadcastRecipients(ctx context.Context, afterUserID int64, limit int) ([]Recipient, error) {
	rows, err := r.db.Query(ctx, `SELECT id, telegram_id FROM users WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var rc Recipient
		if err := rows.Scan(&rc.UserID, &rc.TelegramID); err != nil {
			return nil, err
		}
		recipients = append(recipients, rc)
	}
	return recipients, rows.Err()
}

func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// ==================== HABITS ====================

const habitColumns = `id, user_id, name, schedule_type, weekly_target, is_active, created_at`

func scanHabit(row pgx.Row) (*domain.Habit, error) {
	h := &domain.Habit{}
	var scheduleType string
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &scheduleType, &h.Schedule.WeeklyTarget, &h.IsActive, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	h.Schedule.Type = domain.ScheduleType(scheduleType)
	return h, nil
}

func collectHabits(rows pgx.Rows) ([]*domain.Habit, error) {
	defer rows.Close()
	var habits []*domain.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (r *PostgresRepository) CreateHabit(ctx context.Context, habit *domain.Habit) error {
	query := `
    INSERT INTO habits (user_id, name, schedule_type, weekly_target, is_active, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		habit.UserID, habit.Name, string(habit.Schedule.Type), habit.Schedule.WeeklyTarget, habit.IsActive, time.Now(),
	).Scan(&habit.ID, &habit.CreatedAt)
}

func (r *PostgresRepository) GetHabitByID(ctx context.Context, id int64) (*domain.Habit, error) {
	return scanHabit(r.db.QueryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1`, id))
}

func (r *PostgresRepository) GetUserHabits(ctx context.Context, userID int64, activeOnly bool) ([]*domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1 AND (is_active OR NOT $2) ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	return collectHabits(rows)
}

func (r *PostgresRepository) UpdateHabit(ctx context.Context, habit *domain.Habit) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE habits SET name=$2, schedule_type=$3, weekly_target=$4, is_active=$5 WHERE id=$1`,
		habit.ID, habit.Name, string(habit.Schedule.Type), habit.Schedule.WeeklyTarget, habit.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteHabit removes the habit together with its logs and milestones.
func (r *PostgresRepository) DeleteHabit(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountActiveHabits(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM habits WHERE user_id = $1 AND is_active = true`, userID).Scan(&count)
	return count, err
}

// ==================== HABIT LOGS ====================

// UpsertLog keeps at most one record per habit and date.
func (r *PostgresRepository) UpsertLog(ctx context.Context, log *domain.HabitLog) error {
	if !log.HasDate() {
		return fmt.Errorf("upsert log for habit %d: missing date", log.HabitID)
	}
	query := `
    INSERT INTO habit_logs (habit_id, user_id, log_date, status, day_cycle, completed_at)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (habit_id, log_date) DO UPDATE SET
      status = EXCLUDED.status,
      day_cycle = EXCLUDED.day_cycle,
      completed_at = EXCLUDED.completed_at
    RETURNING id`

	if log.CompletedAt.IsZero() {
		log.CompletedAt = time.Now()
	}
	return r.db.QueryRow(ctx, query,
		log.HabitID, log.UserID, toPgDate(log.LogDate), string(log.Status), log.DayCycle, log.CompletedAt,
	).Scan(&log.ID)
}

// GetHabitLogs returns all records of a habit in insertion order, so that of
// two legacy records sharing a date the later one comes last.
func (r *PostgresRepository) GetHabitLogs(ctx context.Context, habitID int64) ([]domain.HabitLog, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, habit_id, user_id, log_date, status, day_cycle, completed_at
    FROM habit_logs WHERE habit_id = $1 ORDER BY id ASC`, habitID)
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

func (r *PostgresRepository) GetUserLogsForDate(ctx context.Context, userID int64, date civil.Date) ([]domain.HabitLog, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, habit_id, user_id, log_date, status, day_cycle, completed_at
    FROM habit_logs WHERE user_id = $1 AND log_date = $2 ORDER BY id ASC`, userID, toPgDate(date))
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

func collectLogs(rows pgx.Rows) ([]domain.HabitLog, error) {
	defer rows.Close()
	var logs []domain.HabitLog
	for rows.Next() {
		var (
			l      domain.HabitLog
			date   pgtype.Date
			status string
		)
		if err := rows.Scan(&l.ID, &l.HabitID, &l.UserID, &date, &status, &l.DayCycle, &l.CompletedAt); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseLogStatus(status)
		if err != nil {
			return nil, fmt.Errorf("habit log %d: %w", l.ID, err)
		}
		l.Status = parsed
		l.LogDate = fromPgDate(date)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ==================== STATISTICS ====================

func (r *PostgresRepository) GetAdminStats(ctx context.Context, today civil.Date) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{}
	err := r.db.QueryRow(ctx, `
    SELECT
      (SELECT COUNT(*) FROM users),
      (SELECT COUNT(*) FROM users WHERE onboarding_completed = true),
      (SELECT COUNT(*) FROM habit_logs),
      (SELECT COUNT(*) FROM habit_logs WHERE log_date = $1)`, toPgDate(today),
	).Scan(&stats.TotalUsers, &stats.OnboardedUsers, &stats.TotalLogs, &stats.TodayLogs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ==================== MILESTONES ====================

func (r *PostgresRepository) CreateMilestone(ctx context.Context, m *domain.Milestone) error {
	query := `
    INSERT INTO milestones (user_id, habit_id, streak_days, reached_at)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (habit_id, streak_days) DO NOTHING
    RETURNING id`
	err := r.db.QueryRow(ctx, query, m.UserID, m.HabitID, m.StreakDays, m.ReachedAt).Scan(&m.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (r *PostgresRepository) HasMilestone(ctx context.Context, habitID int64, streakDays int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM milestones WHERE habit_id = $1 AND streak_days = $2)`, habitID, streakDays,
	).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) GetUserMilestones(ctx context.Context, userID int64) ([]*domain.Milestone, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, user_id, habit_id, streak_days, reached_at
    FROM milestones WHERE user_id = $1 ORDER BY reached_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []*domain.Milestone
	for rows.Next() {
		m := &domain.Milestone{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.HabitID, &m.StreakDays, &m.ReachedAt); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// ==================== BROADCASTS ====================

const broadcastColumns = `id, kind, text, button_text, button_url, poll_options, status, total_users,
    sent_count, failed_count, last_user_id, created_by, created_at, started_at, completed_at`

func scanBroadcast(row pgx.Row) (*domain.Broadcast, error) {
	b := &domain.Broadcast{}
	var kind, status string
	err := row.Scan(&b.ID, &kind, &b.Text, &b.ButtonText, &b.ButtonURL, &b.PollOptions, &status, &b.TotalUsers,
		&b.SentCount, &b.FailedCount, &b.LastUserID, &b.CreatedBy, &b.CreatedAt, &b.StartedAt, &b.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Kind = domain.BroadcastKind(kind)
	b.Status = domain.BroadcastStatus(status)
	return b, nil
}

func (r *PostgresRepository) CreateBroadcast(ctx context.Context, b *domain.Broadcast) error {
	if b.Status == "" {
		b.Status = domain.BroadcastDraft
	}
	options := b.PollOptions
	if options == nil {
		options = []string{}
	}
	return r.db.QueryRow(ctx, `
    INSERT INTO broadcasts (kind, text, button_text, button_url, poll_options, status, created_by, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id, created_at`,
		string(b.Kind), b.Text, b.ButtonText, b.ButtonURL, options, string(b.Status), b.CreatedBy, time.Now(),
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *PostgresRepository) GetBroadcastByID(ctx context.Context, id int64) (*domain.Broadcast, error) {
	return scanBroadcast(r.db.QueryRow(ctx, `SELECT `+broadcastColumns+` FROM broadcasts WHERE id = $1`, id))
}

func (r *PostgresRepository) GetAllBroadcasts(ctx context.Context) ([]*domain.Broadcast, error) {
	rows, err := r.db.Query(ctx, `SELECT `+broadcastColumns+` FROM broadcasts ORDER BY created_at DESC LIMIT 20`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var broadcasts []*domain.Broadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, b)
	}
	return broadcasts, rows.Err()
}

func (r *PostgresRepository) GetRunningBroadcast(ctx context.Context) (*domain.Broadcast, error) {
	return scanBroadcast(r.db.QueryRow(ctx, `SELECT `+broadcastColumns+` FROM broadcasts WHERE status = 'running' LIMIT 1`))
}

func (r *PostgresRepository) UpdateBroadcastStatus(ctx context.Context, id int64, status domain.BroadcastStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE broadcasts SET status=$2 WHERE id=$1`, id, string(status))
	return err
}

func (r *PostgresRepository) UpdateBroadcastProgress(ctx context.Context, id int64, sent, failed int, lastUserID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE broadcasts SET sent_count=$2, failed_count=$3, last_user_id=$4 WHERE id=$1`, id, sent, failed, lastUserID)
	return err
}

func (r *PostgresRepository) StartBroadcast(ctx context.Context, id int64, totalUsers int) error {
	_, err := r.db.Exec(ctx, `UPDATE broadcasts SET status='running', total_users=$2, started_at=COALESCE(started_at, $3) WHERE id=$1`, id, totalUsers, time.Now())
	return err
}

func (r *PostgresRepository) CompleteBroadcast(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE broadcasts SET status='completed', completed_at=$2 WHERE id=$1`, id, time.Now())
	return err
}

// ==================== ADMINS ====================

func (r *PostgresRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM admins WHERE telegram_id = $1)`, telegramID).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) AddAdmin(ctx context.Context, telegramID, addedBy int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO admins (telegram_id, added_by) VALUES ($1, $2) ON CONFLICT (telegram_id) DO NOTHING`, telegramID, addedBy)
	return err
}

func (r *PostgresRepository) GetAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT telegram_id FROM admins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// ==================== EXPORT ====================

func (r *PostgresRepository) GetExportData(ctx context.Context) (*ExportData, error) {
	data := &ExportData{}

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	if data.Users, err = collectUsers(rows); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT `+habitColumns+` FROM habits ORDER BY user_id ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("export habits: %w", err)
	}
	if data.Habits, err = collectHabits(rows); err != nil {
		return nil, fmt.Errorf("export habits: %w", err)
	}

	rows, err = r.db.Query(ctx, `
    SELECT id, habit_id, user_id, log_date, status, day_cycle, completed_at
    FROM habit_logs ORDER BY habit_id ASC, log_date ASC NULLS FIRST, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("export logs: %w", err)
	}
	if data.Logs, err = collectLogs(rows); err != nil {
		return nil, fmt.Errorf("export logs: %w", err)
	}

	return data, nil
}

// ==================== DATES ====================

func toPgDate(d civil.Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func fromPgDate(d pgtype.Date) civil.Date {
	if !d.Valid {
		return civil.Date{}
	}
	return civil.DateOf(d.Time)
}
