package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/logger"
	"mewego-bot/internal/repository"
)

func exportFixture() *repository.ExportData {
	age := 30
	return &repository.ExportData{
		Users: []*domain.User{
			{ID: 1, TelegramID: 100, Username: "anna", Name: "Анна", Age: &age, Timezone: "Europe/Moscow", OnboardingDone: true, CreatedAt: testNow},
		},
		Habits: []*domain.Habit{
			{ID: 3, UserID: 1, Name: "Вода", Schedule: domain.DailySchedule(), IsActive: true},
		},
		Logs: append(doneDays(3, 0, 1), domain.HabitLog{ID: 9, HabitID: 3, UserID: 1, Status: domain.StatusDone}),
	}
}

func TestExportService_ExportUsers(t *testing.T) {
	repo := new(MockRepository)
	s := NewExportService(repo, newTestUserService(t, repo, testNow), logger.Discard())
	repo.On("GetExportData", mock.Anything).Return(exportFixture(), nil)

	file, err := s.ExportUsers(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(file.Name, "users_"))
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Пользователи", "D1")
	require.NoError(t, err)
	assert.Equal(t, "Имя", header)

	name, err := f.GetCellValue("Пользователи", "D2")
	require.NoError(t, err)
	assert.Equal(t, "Анна", name)

	age, err := f.GetCellValue("Пользователи", "E2")
	require.NoError(t, err)
	assert.Equal(t, "30", age)
}

func TestExportService_ExportHabits(t *testing.T) {
	repo := new(MockRepository)
	s := NewExportService(repo, newTestUserService(t, repo, testNow), logger.Discard())
	repo.On("GetExportData", mock.Anything).Return(exportFixture(), nil)

	file, err := s.ExportHabits(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Привычки")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// current streak, best streak, 7 days, 30 days, total
	assert.Equal(t, []string{"2", "2", "2", "2", "3"}, rows[1][5:10])

	logRows, err := f.GetRows("Отметки")
	require.NoError(t, err)
	require.Len(t, logRows, 4)
	assert.Equal(t, "—", logRows[3][3])
}
