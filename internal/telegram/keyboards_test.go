package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mewego-bot/internal/domain"
)

func TestParseCallback(t *testing.T) {
	q := parseCallback(callbackData("track", int64(42), domain.StatusDone))

	assert.Equal(t, "track", q.Action)
	assert.Equal(t, []string{"42", "done"}, q.Args)

	id, err := q.Int64(0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "", q.Arg(5))

	_, err = q.Int64(3)
	assert.Error(t, err)
}

func TestParseCallbackWithoutArgs(t *testing.T) {
	q := parseCallback("cancel")

	assert.Equal(t, "cancel", q.Action)
	assert.Empty(t, q.Args)
	assert.Equal(t, "", q.Rest(0))
}

func TestRestKeepsTimeValues(t *testing.T) {
	q := parseCallback(callbackData("set_reminder", "08:30"))

	assert.Equal(t, "08", q.Arg(0))
	assert.Equal(t, "08:30", q.Rest(0))
}

func TestParseTrack(t *testing.T) {
	tests := []struct {
		data    string
		id      int64
		status  domain.LogStatus
		wantErr bool
	}{
		{"track:7:done", 7, domain.StatusDone, false},
		{"track:7:not_done", 7, domain.StatusNotDone, false},
		{"track:7:skipped", 7, domain.StatusSkipped, false},
		{"track:7:maybe", 0, "", true},
		{"track:x:done", 0, "", true},
		{"track", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			id, status, err := parseTrack(parseCallback(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.status, status)
		})
	}
}

func inlineData(kb tgbotapi.InlineKeyboardMarkup) []string {
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	habits := []*domain.Habit{
		{ID: 9_223_372_036_854_775_807, Name: "Пить воду", IsActive: true, Schedule: domain.DailySchedule()},
	}
	keyboards := []tgbotapi.InlineKeyboardMarkup{
		StartJourneyKeyboard(),
		SelfIdentificationKeyboard(),
		ActivityKeyboard(),
		GoalKeyboard(),
		HabitChoiceKeyboard(),
		CheckInKeyboard(),
		ReminderTimeKeyboard("set_reminder"),
		TrackingKeyboard(habits, nil),
		HabitsListKeyboard(habits),
		HabitActionsKeyboard(habits[0]),
		ConfirmDeleteKeyboard(habits[0].ID),
		ScheduleTypeKeyboard(),
		WeeklyTargetKeyboard(),
		StatsKeyboard(habits),
		SettingsKeyboard(true),
		TimezoneKeyboard(),
		AdminMenuKeyboard(),
		BroadcastDraftKeyboard(habits[0].ID),
		BroadcastControlKeyboard(false),
	}

	for _, kb := range keyboards {
		for _, data := range inlineData(kb) {
			assert.LessOrEqual(t, len(data), 64, data)
		}
	}
}

func TestTrackingKeyboard(t *testing.T) {
	habits := []*domain.Habit{
		{ID: 1, Name: "Зарядка"},
		{ID: 2, Name: "Чтение"},
	}
	kb := TrackingKeyboard(habits, map[int64]domain.LogStatus{1: domain.StatusDone})

	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, "✅ Зарядка", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "Чтение", kb.InlineKeyboard[2][0].Text)

	statusRow := kb.InlineKeyboard[3]
	require.Len(t, statusRow, 3)
	assert.Equal(t, "track:2:done", *statusRow[0].CallbackData)
	assert.Equal(t, "track:2:not_done", *statusRow[1].CallbackData)
	assert.Equal(t, "track:2:skipped", *statusRow[2].CallbackData)
}

func TestTrackingKeyboardEmpty(t *testing.T) {
	kb := TrackingKeyboard(nil, nil)

	assert.Equal(t, []string{"add_habit"}, inlineData(kb))
}

func TestReminderTimeKeyboard(t *testing.T) {
	data := inlineData(ReminderTimeKeyboard("onb_reminder"))

	require.Len(t, data, len(ReminderTimes)+1)
	assert.Equal(t, "onb_reminder:07:00", data[0])
	assert.Equal(t, "onb_reminder:custom", data[len(data)-1])
}

func TestMainMenuKeyboardAdminButton(t *testing.T) {
	hasAdmin := func(kb tgbotapi.ReplyKeyboardMarkup) bool {
		for _, row := range kb.Keyboard {
			for _, b := range row {
				if b.Text == BtnAdmin {
					return true
				}
			}
		}
		return false
	}

	assert.True(t, hasAdmin(MainMenuKeyboard(true)))
	assert.False(t, hasAdmin(MainMenuKeyboard(false)))
}

func TestIsMenuButton(t *testing.T) {
	assert.True(t, isMenuButton(BtnToday))
	assert.True(t, isMenuButton(BtnSettings))
	assert.False(t, isMenuButton("Читать 10 страниц"))
}

func TestOptionAt(t *testing.T) {
	option, ok := optionAt(Goals, parseCallback("goal:1"))
	assert.True(t, ok)
	assert.Equal(t, Goals[1], option)

	_, ok = optionAt(Goals, parseCallback("goal:99"))
	assert.False(t, ok)

	_, ok = optionAt(Goals, parseCallback("goal:-1"))
	assert.False(t, ok)

	_, ok = optionAt(Goals, parseCallback("goal"))
	assert.False(t, ok)
}
