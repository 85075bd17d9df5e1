package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mewego-bot/internal/domain"
)

// Reply keyboard buttons of the main menu.
const (
	BtnToday    = "✅ Отметить сегодня"
	BtnAddHabit = "➕ Добавить привычку"
	BtnHabits   = "📋 Мои привычки"
	BtnStats    = "📊 Статистика"
	BtnProfile  = "👤 Профиль"
	BtnSettings = "⚙️ Настройки"
	BtnAdmin    = "🔐 Админ-панель"
)

var SelfIdentificationOptions = []string{
	"Я всё время начинаю и бросаю",
	"У меня нет сил и времени",
	"Я не верю, что у меня получится",
	"Хочу просто начать заботиться о себе",
}

var ActivityLevels = []string{
	"Почти не двигаюсь",
	"Иногда гуляю",
	"Тренируюсь 1–2 раза в неделю",
	"Активна каждый день",
}

var Goals = []string{
	"Больше энергии",
	"Снизить стресс",
	"Похудеть",
	"Стать регулярнее",
}

var ReminderTimes = []string{"07:00", "08:00", "09:00", "12:00", "18:00", "20:00", "21:00", "22:00"}

var PopularTimezones = []struct {
	Name  string
	Title string
}{
	{"Europe/Moscow", "🇷🇺 Москва (UTC+3)"},
	{"Europe/Kaliningrad", "🇷🇺 Калининград (UTC+2)"},
	{"Europe/Samara", "🇷🇺 Самара (UTC+4)"},
	{"Asia/Yekaterinburg", "🇷🇺 Екатеринбург (UTC+5)"},
	{"Asia/Novosibirsk", "🇷🇺 Новосибирск (UTC+7)"},
	{"Europe/Minsk", "🇧🇾 Минск (UTC+3)"},
	{"Asia/Almaty", "🇰🇿 Алматы (UTC+5)"},
}

// ==================== CALLBACK DATA ====================

// callbackData joins an action and its arguments with ":".
func callbackData(action string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, action)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, ":")
}

type callbackQuery struct {
	Action string
	Args   []string
}

func parseCallback(data string) callbackQuery {
	parts := strings.Split(data, ":")
	return callbackQuery{Action: parts[0], Args: parts[1:]}
}

func (c callbackQuery) Int64(i int) (int64, error) {
	if i >= len(c.Args) {
		return 0, fmt.Errorf("callback %q: missing argument %d", c.Action, i)
	}
	return strconv.ParseInt(c.Args[i], 10, 64)
}

func (c callbackQuery) Arg(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Rest rejoins the arguments from i on, for values that contain ":" themselves.
func (c callbackQuery) Rest(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.Join(c.Args[i:], ":")
}

// parseTrack decodes track:<habit>:<status>.
func parseTrack(c callbackQuery) (int64, domain.LogStatus, error) {
	habitID, err := c.Int64(0)
	if err != nil {
		return 0, "", err
	}
	status, err := domain.ParseLogStatus(c.Arg(1))
	if err != nil {
		return 0, "", err
	}
	return habitID, status, nil
}

// ==================== MENU ====================

func MainMenuKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnToday),
			tgbotapi.NewKeyboardButton(BtnAddHabit),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnHabits),
			tgbotapi.NewKeyboardButton(BtnStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnProfile),
			tgbotapi.NewKeyboardButton(BtnSettings),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAdmin)))
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}

// ==================== ONBOARDING ====================

func StartJourneyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👉 Начать", "start_journey"),
		),
	)
}

// optionsKeyboard puts each option on its own row; the callback carries the option index.
func optionsKeyboard(action string, options []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, o := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(o, callbackData(action, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func SelfIdentificationKeyboard() tgbotapi.InlineKeyboardMarkup {
	return optionsKeyboard("self_id", SelfIdentificationOptions)
}

func ActivityKeyboard() tgbotapi.InlineKeyboardMarkup {
	return optionsKeyboard("activity", ActivityLevels)
}

func GoalKeyboard() tgbotapi.InlineKeyboardMarkup {
	return optionsKeyboard("goal", Goals)
}

func HabitChoiceKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range domain.PresetHabits {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Name, callbackData("onb_habit", p.Key)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✍️ Своя привычка", callbackData("onb_habit", domain.HabitChoiceCustom)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func CheckInKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Я здесь", "check_in"),
		),
	)
}

// ReminderTimeKeyboard lists preset times three per row. The same layout serves
// onboarding and settings, told apart by action.
func ReminderTimeKeyboard(action string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(ReminderTimes); i += 3 {
		var row []tgbotapi.InlineKeyboardButton
		for j := i; j < i+3 && j < len(ReminderTimes); j++ {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(ReminderTimes[j], callbackData(action, ReminderTimes[j])))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✍️ Своё время", callbackData(action, "custom")),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ChannelKeyboard(link string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👉 Подписаться", link),
		),
	)
}

// ==================== TRACKING ====================

// TrackingKeyboard shows every active habit with today's mark and a row of
// status buttons under it.
func TrackingKeyboard(habits []*domain.Habit, today map[int64]domain.LogStatus) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, habit := range habits {
		title := habit.Name
		if status, ok := today[habit.ID]; ok {
			title = status.Emoji() + " " + title
		}
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(title, callbackData("habit_info", habit.ID)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Выполнено", callbackData("track", habit.ID, domain.StatusDone)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Не сделал", callbackData("track", habit.ID, domain.StatusNotDone)),
				tgbotapi.NewInlineKeyboardButtonData("⏭ Пропуск", callbackData("track", habit.ID, domain.StatusSkipped)),
			),
		)
	}

	if len(habits) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Создать первую привычку", "add_habit"),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ==================== HABITS ====================

func HabitsListKeyboard(habits []*domain.Habit) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, habit := range habits {
		status := "🟢"
		if !habit.IsActive {
			status = "🔴"
		}
		title := status + " " + habit.Name
		if habit.Schedule.IsWeekly() {
			title += fmt.Sprintf(" (%dx/нед)", habit.Schedule.WeeklyTarget)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(title, callbackData("manage", habit.ID)),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Новая привычка", "add_habit"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func HabitActionsKeyboard(habit *domain.Habit) tgbotapi.InlineKeyboardMarkup {
	toggle := tgbotapi.NewInlineKeyboardButtonData("🔴 Выключить", callbackData("toggle", habit.ID))
	if !habit.IsActive {
		toggle = tgbotapi.NewInlineKeyboardButtonData("🟢 Включить", callbackData("toggle", habit.ID))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			toggle,
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", callbackData("habit_stats", habit.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Переименовать", callbackData("rename", habit.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", callbackData("delete", habit.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("« Назад", "back_to_habits"),
		),
	)
}

func ConfirmDeleteKeyboard(habitID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, удалить", callbackData("confirm_delete", habitID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", callbackData("manage", habitID)),
		),
	)
}

func ScheduleTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Ежедневно", callbackData("schedule", domain.ScheduleDaily)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📆 N раз в неделю", callbackData("schedule", domain.ScheduleWeekly)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel"),
		),
	)
}

func WeeklyTargetKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := 1; i <= 7; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(i), callbackData("weekly_target", i)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ==================== STATS ====================

func StatsKeyboard(habits []*domain.Habit) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔥 График серий", callbackData("chart", "streaks")),
	))
	for _, habit := range habits {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 "+habit.Name, callbackData("chart", "habit", habit.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ==================== SETTINGS ====================

func SettingsKeyboard(remindersEnabled bool) tgbotapi.InlineKeyboardMarkup {
	toggle := tgbotapi.NewInlineKeyboardButtonData("🔔 Включить напоминания", callbackData("settings", "reminders_on"))
	if remindersEnabled {
		toggle = tgbotapi.NewInlineKeyboardButtonData("🔕 Выключить напоминания", callbackData("settings", "reminders_off"))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕐 Время напоминания", callbackData("settings", "reminder_time")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌍 Часовой пояс", callbackData("settings", "timezone")),
		),
		tgbotapi.NewInlineKeyboardRow(toggle),
	)
}

func TimezoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, tz := range PopularTimezones {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tz.Title, callbackData("tz", tz.Name)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⌨️ Ввести вручную", callbackData("tz", "custom")),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ==================== ADMIN ====================

func AdminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", callbackData("admin", "stats")),
			tgbotapi.NewInlineKeyboardButtonData("👥 Пользователи", callbackData("admin", "users")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Выгрузка пользователей", callbackData("admin", "export_users")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Выгрузка привычек", callbackData("admin", "export_habits")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 Рассылка", callbackData("admin", "new_message")),
			tgbotapi.NewInlineKeyboardButtonData("🗳 Опрос", callbackData("admin", "new_poll")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Рассылки", callbackData("admin", "broadcasts")),
			tgbotapi.NewInlineKeyboardButtonData("➕ Админ", callbackData("admin", "add_admin")),
		),
	)
}

func BroadcastDraftKeyboard(broadcastID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Запустить", callbackData("admin", "start", broadcastID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel"),
		),
	)
}

func BroadcastControlKeyboard(running bool) tgbotapi.InlineKeyboardMarkup {
	if running {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏸ Остановить", callbackData("admin", "stop")),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Продолжить", callbackData("admin", "resume")),
		),
	)
}

func SkipKeyboard(action string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Пропустить", action),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel"),
		),
	)
}

func CancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel"),
		),
	)
}
