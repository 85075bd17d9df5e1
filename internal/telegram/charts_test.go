package telegram

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/service"
)

func decodeChart(t *testing.T, raw string) chartConfig {
	t.Helper()

	require.True(t, strings.HasPrefix(raw, quickChartURL+"?c="))
	u, err := url.Parse(raw)
	require.NoError(t, err)

	var cfg chartConfig
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("c")), &cfg))
	return cfg
}

func TestHabitCalendarChart(t *testing.T) {
	start := civil.Date{Year: 2024, Month: 3, Day: 1}
	marks := []service.DayMark{
		{Date: start, Status: domain.StatusDone},
		{Date: start.AddDays(1), Status: domain.StatusNotDone},
		{Date: start.AddDays(2)},
		{Date: start.AddDays(3), Status: domain.StatusSkipped},
	}

	raw, err := HabitCalendarChart("Пить воду", marks)
	require.NoError(t, err)
	cfg := decodeChart(t, raw)

	assert.Equal(t, "bar", cfg.Type)
	assert.Equal(t, []string{"01", "02", "03", "04"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 1)

	ds := cfg.Data.Datasets[0]
	assert.Equal(t, []int{1, 1, 1, 1}, ds.Data)
	assert.Equal(t, []string{
		statusColors[domain.StatusDone],
		statusColors[domain.StatusNotDone],
		unmarkedColor,
		statusColors[domain.StatusSkipped],
	}, ds.BackgroundColor)
}

func TestStreakChart(t *testing.T) {
	reports := []domain.HabitReport{
		{Habit: &domain.Habit{Name: "Зарядка"}, Stats: domain.HabitStats{CurrentStreak: 5}},
		{Habit: &domain.Habit{Name: "Очень длинное название привычки"}, Stats: domain.HabitStats{CurrentStreak: 0}},
	}

	raw, err := StreakChart(reports)
	require.NoError(t, err)
	cfg := decodeChart(t, raw)

	assert.Equal(t, []string{"Зарядка", "Очень длинное …"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 1)
	assert.Equal(t, []int{5, 0}, cfg.Data.Datasets[0].Data)
	assert.Equal(t, "y", cfg.Options["indexAxis"])
}

func TestStreakChartEmpty(t *testing.T) {
	raw, err := StreakChart(nil)

	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Йога", shortName("Йога", 15))
	assert.Equal(t, "Медит…", shortName("Медитация", 6))
	assert.Len(t, []rune(shortName("Медитация", 6)), 6)
}
