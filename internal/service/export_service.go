package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"mewego-bot/internal/consistency"
	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

// ExportFile is a generated workbook ready to be sent as a document.
type ExportFile struct {
	Name string
	Data []byte
}

type ExportService struct {
	repo  repository.Repository
	users *UserService
	log   *log.Logger
}

func NewExportService(repo repository.Repository, users *UserService, logger *log.Logger) *ExportService {
	return &ExportService{repo: repo, users: users, log: logger.WithPrefix("export")}
}

var userHeaders = []string{
	"ID", "Telegram ID", "Username", "Имя", "Возраст", "Город", "Активность", "Цель",
	"Напоминание", "Часовой пояс", "Онбординг", "День цикла", "Последний чек-ин", "Регистрация",
}

func (s *ExportService) ExportUsers(ctx context.Context) (*ExportFile, error) {
	data, err := s.repo.GetExportData(ctx)
	if err != nil {
		return nil, fmt.Errorf("load export data: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Пользователи"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheet, userHeaders); err != nil {
		return nil, err
	}

	for i, u := range data.Users {
		row := []any{
			u.ID, u.TelegramID, u.Username, u.DisplayName(), optionalInt(u.Age), u.City, u.ActivityLevel, u.Goal,
			optionalString(u.ReminderTime), u.Timezone, yesNo(u.OnboardingDone), u.DayCycle,
			optionalTime(u.LastCheckIn), u.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return s.save(f, "users")
}

var habitHeaders = []string{
	"ID", "Пользователь", "Название", "Расписание", "Активна",
	"Текущая серия", "Лучшая серия", "За 7 дней", "За 30 дней", "Всего",
}

var logHeaders = []string{"ID", "Привычка", "Пользователь", "Дата", "Статус", "День цикла", "Отмечено"}

// ExportHabits writes one sheet with every habit and its statistics and one
// with the raw check-ins.
func (s *ExportService) ExportHabits(ctx context.Context) (*ExportFile, error) {
	data, err := s.repo.GetExportData(ctx)
	if err != nil {
		return nil, fmt.Errorf("load export data: %w", err)
	}

	owners := make(map[int64]*domain.User, len(data.Users))
	for _, u := range data.Users {
		owners[u.ID] = u
	}
	logsByHabit := make(map[int64][]domain.HabitLog)
	for _, l := range data.Logs {
		logsByHabit[l.HabitID] = append(logsByHabit[l.HabitID], l)
	}

	f := excelize.NewFile()
	defer f.Close()

	habitsSheet := "Привычки"
	if err := f.SetSheetName("Sheet1", habitsSheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, habitsSheet, habitHeaders); err != nil {
		return nil, err
	}

	for i, h := range data.Habits {
		owner := owners[h.UserID]
		ownerName := strconv.FormatInt(h.UserID, 10)
		today := s.users.Today(&domain.User{})
		if owner != nil {
			ownerName = owner.DisplayName()
			today = s.users.Today(owner)
		}
		st := consistency.Compute(logsByHabit[h.ID], h.Schedule, today)

		row := []any{
			h.ID, ownerName, h.Name, h.Schedule.String(), yesNo(h.IsActive),
			st.CurrentStreak, st.BestStreak, st.Done7Days, st.Done30Days, st.TotalDone,
		}
		if err := writeRow(f, habitsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	logsSheet := "Отметки"
	if _, err := f.NewSheet(logsSheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, logsSheet, logHeaders); err != nil {
		return nil, err
	}
	for i, l := range data.Logs {
		date := "—"
		if l.HasDate() {
			date = l.LogDate.String()
		}
		row := []any{
			l.ID, l.HabitID, l.UserID, date, l.Status.Title(), optionalInt(l.DayCycle),
			l.CompletedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, logsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return s.save(f, "habits")
}

func (s *ExportService) save(f *excelize.File, kind string) (*ExportFile, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.xlsx", kind, time.Now().Format("2006-01-02"), uuid.NewString()[:8])
	s.log.Info("export ready", "file", name, "bytes", buf.Len())
	return &ExportFile{Name: name, Data: buf.Bytes()}, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D8F6CE"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for j, v := range values {
		cell, err := excelize.CoordinatesToCellName(j+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}
