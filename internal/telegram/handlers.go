package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/service"
)

// Messenger is the part of the Bot API the handlers talk to.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handlers struct {
	bot         Messenger
	users       *service.UserService
	habits      *service.HabitService
	stats       *service.StatsService
	milestones  *service.MilestoneService
	reminders   *service.ReminderService
	states      StateStore
	admin       *AdminHandlers
	channelLink string
	log         *log.Logger
}

func NewHandlers(
	bot Messenger,
	users *service.UserService,
	habits *service.HabitService,
	stats *service.StatsService,
	milestones *service.MilestoneService,
	reminders *service.ReminderService,
	states StateStore,
	channelLink string,
	logger *log.Logger,
) *Handlers {
	return &Handlers{
		bot:         bot,
		users:       users,
		habits:      habits,
		stats:       stats,
		milestones:  milestones,
		reminders:   reminders,
		states:      states,
		channelLink: channelLink,
		log:         logger.WithPrefix("handlers"),
	}
}

func (h *Handlers) SetAdminHandlers(ah *AdminHandlers) {
	h.admin = ah
}

func (h *Handlers) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("handler panic", "update", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *Handlers) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	user, err := h.users.EnsureUser(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName, msg.From.LastName)
	if err != nil {
		h.log.Error("ensure user", "user", msg.From.ID, "err", err)
		h.sendText(msg.Chat.ID, errorText(err))
		return
	}

	if h.admin != nil && h.admin.HandleMessage(ctx, msg) {
		return
	}

	switch msg.Command() {
	case "start":
		h.states.Delete(ctx, msg.From.ID)
		h.handleStart(ctx, msg.Chat.ID, user)
		return
	case "cancel":
		h.states.Delete(ctx, msg.From.ID)
		h.sendMenu(ctx, msg.Chat.ID, msg.From, "❌ Отменено")
		return
	case "help":
		h.handleHelp(msg.Chat.ID)
		return
	}

	if !user.OnboardingDone {
		h.handleOnboardingMessage(ctx, msg, user)
		return
	}

	// a menu button abandons whatever dialog was pending
	if isMenuButton(msg.Text) {
		h.states.Delete(ctx, msg.From.ID)
	}

	state, err := h.states.Get(ctx, msg.From.ID)
	if err != nil {
		h.log.Warn("load state", "user", msg.From.ID, "err", err)
	}
	if state != nil {
		h.handleState(ctx, msg, user, state)
		return
	}

	switch {
	case msg.Text == BtnToday || msg.Command() == "today":
		h.showToday(ctx, msg.Chat.ID, 0, user)
	case msg.Text == BtnAddHabit || msg.Command() == "new":
		h.startAddHabit(ctx, msg.Chat.ID, user)
	case msg.Text == BtnHabits || msg.Command() == "habits":
		h.showHabits(ctx, msg.Chat.ID, 0, user)
	case msg.Text == BtnStats || msg.Command() == "stats":
		h.showStats(ctx, msg.Chat.ID, user)
	case msg.Text == BtnProfile || msg.Command() == "profile":
		h.showProfile(ctx, msg.Chat.ID, user)
	case msg.Text == BtnSettings || msg.Command() == "settings":
		h.showSettings(msg.Chat.ID, 0, user)
	default:
		h.sendMenu(ctx, msg.Chat.ID, msg.From, "Используй кнопки меню или /help")
	}
}

func (h *Handlers) handleState(ctx context.Context, msg *tgbotapi.Message, user *domain.User, state *ConversationState) {
	chatID := msg.Chat.ID

	switch state.Action {
	case ActionHabitName:
		name, err := service.ValidateHabitName(msg.Text)
		if err != nil {
			h.sendText(chatID, errorText(err))
			return
		}
		state.Action = ActionHabitSchedule
		state.HabitName = name
		h.saveState(ctx, msg.From.ID, state)

		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("📝 Привычка: <b>%s</b>\n\nКак часто?", html.EscapeString(name)))
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyMarkup = ScheduleTypeKeyboard()
		h.send(reply)

	case ActionHabitSchedule:
		h.sendText(chatID, "Выбери периодичность кнопкой выше 👆")

	case ActionRenameHabit:
		habit, err := h.habits.RenameHabit(ctx, user, state.HabitID, msg.Text)
		if err != nil {
			h.replyError(chatID, "rename habit", err)
			if errors.Is(err, service.ErrInvalidHabitName) {
				return
			}
		} else {
			h.sendHTML(chatID, fmt.Sprintf("✏️ Привычка переименована: <b>%s</b>", html.EscapeString(habit.Name)))
		}
		h.states.Delete(ctx, msg.From.ID)

	case ActionReminderTime:
		if err := h.users.SetReminderTime(ctx, user, msg.Text); err != nil {
			h.replyError(chatID, "set reminder", err)
			if errors.Is(err, service.ErrInvalidTime) {
				return
			}
		} else {
			h.sendText(chatID, fmt.Sprintf("🕐 Напомню в %s", *user.ReminderTime))
		}
		h.states.Delete(ctx, msg.From.ID)

	case ActionTimezone:
		if err := h.users.SetTimezone(ctx, user, msg.Text); err != nil {
			h.replyError(chatID, "set timezone", err)
			if errors.Is(err, service.ErrInvalidTimezone) {
				return
			}
		} else {
			h.sendText(chatID, "🌍 Часовой пояс: "+user.Timezone)
		}
		h.states.Delete(ctx, msg.From.ID)

	default:
		h.states.Delete(ctx, msg.From.ID)
		h.sendMenu(ctx, chatID, msg.From, "Используй кнопки меню или /help")
	}
}

func (h *Handlers) handleStart(ctx context.Context, chatID int64, user *domain.User) {
	if !user.OnboardingDone {
		h.startOnboarding(ctx, chatID, user)
		return
	}

	text := fmt.Sprintf("С возвращением, %s! 🤍\n\nТвоя привычка: %s\nДень цикла: %d/%d",
		user.DisplayName(), user.OnboardingHabitName(), user.DayCycle, domain.DayCycleLength)
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = MainMenuKeyboard(h.isAdmin(ctx, user.TelegramID, user.Username))
	h.send(reply)
}

func (h *Handlers) handleHelp(chatID int64) {
	text := `📖 <b>Справка</b>

/today - отметить привычки за сегодня
/new - добавить привычку
/habits - мои привычки
/stats - статистика и графики
/profile - профиль
/settings - напоминания и часовой пояс
/cancel - отменить текущее действие

Отметка «⏭ Пропуск» не прерывает серию, «❌ Не сделал» прерывает.
Для привычек «N раз в неделю» серия считается в неделях.`
	h.sendHTML(chatID, text)
}

// ==================== CALLBACKS ====================

func (h *Handlers) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	q := parseCallback(cb.Data)

	user, err := h.users.GetUser(ctx, cb.From.ID)
	if err != nil {
		h.log.Error("callback user", "user", cb.From.ID, "err", err)
		h.answerCallback(cb.ID, "Нажми /start")
		return
	}

	if q.Action == "admin" {
		if h.admin != nil {
			h.admin.HandleCallback(ctx, cb, q)
		}
		return
	}

	if h.handleOnboardingCallback(ctx, cb, q, user) {
		return
	}

	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID

	switch q.Action {
	case "cancel":
		h.states.Delete(ctx, cb.From.ID)
		h.answerCallback(cb.ID, "")
		h.editMessage(chatID, msgID, "❌ Отменено", nil)

	case "track":
		h.handleTrack(ctx, cb, q, user)

	case "open_today":
		h.answerCallback(cb.ID, "")
		h.showToday(ctx, chatID, 0, user)

	case "habit_info", "habit_stats":
		h.answerCallback(cb.ID, "")
		habitID, err := q.Int64(0)
		if err != nil {
			return
		}
		h.showHabitDetails(ctx, chatID, user, habitID)

	case "add_habit":
		h.answerCallback(cb.ID, "")
		h.startAddHabit(ctx, chatID, user)

	case "schedule":
		h.handleSchedule(ctx, cb, q, user)

	case "weekly_target":
		h.answerCallback(cb.ID, "")
		target, err := q.Int64(0)
		if err != nil {
			return
		}
		h.createHabit(ctx, cb, user, domain.WeeklySchedule(int(target)))

	case "manage":
		h.answerCallback(cb.ID, "")
		h.showHabit(ctx, chatID, msgID, user, q)

	case "toggle":
		habitID, err := q.Int64(0)
		if err != nil {
			return
		}
		habit, err := h.habits.ToggleHabit(ctx, user, habitID)
		if err != nil {
			h.answerCallbackAlert(cb.ID, errorText(err))
			return
		}
		if habit.IsActive {
			h.answerCallback(cb.ID, "🟢 Включена")
		} else {
			h.answerCallback(cb.ID, "🔴 Выключена")
		}
		h.showHabit(ctx, chatID, msgID, user, q)

	case "rename":
		h.answerCallback(cb.ID, "")
		habitID, err := q.Int64(0)
		if err != nil {
			return
		}
		h.saveState(ctx, cb.From.ID, &ConversationState{Action: ActionRenameHabit, HabitID: habitID})
		reply := tgbotapi.NewMessage(chatID, "✏️ Введи новое название:")
		reply.ReplyMarkup = CancelKeyboard()
		h.send(reply)

	case "delete":
		h.answerCallback(cb.ID, "")
		habitID, err := q.Int64(0)
		if err != nil {
			return
		}
		kb := ConfirmDeleteKeyboard(habitID)
		h.editMessage(chatID, msgID, "🗑 Удалить привычку вместе со всеми отметками?", &kb)

	case "confirm_delete":
		habitID, err := q.Int64(0)
		if err != nil {
			return
		}
		if err := h.habits.DeleteHabit(ctx, user, habitID); err != nil {
			h.answerCallbackAlert(cb.ID, errorText(err))
			return
		}
		h.answerCallback(cb.ID, "🗑 Удалено")
		h.showHabits(ctx, chatID, msgID, user)

	case "back_to_habits":
		h.answerCallback(cb.ID, "")
		h.showHabits(ctx, chatID, msgID, user)

	case "chart":
		h.answerCallback(cb.ID, "")
		h.handleChart(ctx, chatID, user, q)

	case "settings":
		h.handleSettings(ctx, cb, q, user)

	case "set_reminder":
		h.answerCallback(cb.ID, "")
		if q.Arg(0) == "custom" {
			h.saveState(ctx, cb.From.ID, &ConversationState{Action: ActionReminderTime})
			h.editMessage(chatID, msgID, "Напиши время в формате ЧЧ:ММ (например, 09:30 или 21:00)", nil)
			return
		}
		if err := h.users.SetReminderTime(ctx, user, q.Rest(0)); err != nil {
			h.replyError(chatID, "set reminder", err)
			return
		}
		h.showSettings(chatID, msgID, user)

	case "tz":
		h.answerCallback(cb.ID, "")
		if q.Arg(0) == "custom" {
			h.saveState(ctx, cb.From.ID, &ConversationState{Action: ActionTimezone})
			h.editMessage(chatID, msgID, "Напиши часовой пояс, например Europe/Moscow или Asia/Tbilisi", nil)
			return
		}
		if err := h.users.SetTimezone(ctx, user, q.Rest(0)); err != nil {
			h.replyError(chatID, "set timezone", err)
			return
		}
		h.showSettings(chatID, msgID, user)

	default:
		h.answerCallback(cb.ID, "")
		h.log.Warn("unknown callback", "data", cb.Data)
	}
}

// ==================== TRACKING ====================

func (h *Handlers) showToday(ctx context.Context, chatID int64, msgID int, user *domain.User) {
	habits, err := h.habits.ListHabits(ctx, user, true)
	if err != nil {
		h.replyError(chatID, "list habits", err)
		return
	}
	statuses, err := h.habits.TodayStatuses(ctx, user)
	if err != nil {
		h.replyError(chatID, "today statuses", err)
		return
	}

	text := todayText(user, habits, statuses)
	kb := TrackingKeyboard(habits, statuses)
	if msgID != 0 {
		h.editMessage(chatID, msgID, text, &kb)
		return
	}
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = kb
	h.send(reply)
}

func todayText(user *domain.User, habits []*domain.Habit, statuses map[int64]domain.LogStatus) string {
	if len(habits) == 0 {
		return "У тебя пока нет активных привычек. Создай первую!"
	}
	done := 0
	for _, s := range statuses {
		if s == domain.StatusDone {
			done++
		}
	}
	return fmt.Sprintf("✅ <b>Отметь привычки за сегодня</b>\n\nВыполнено: %d из %d\nДень цикла: %d/%d",
		done, len(habits), user.DayCycle, domain.DayCycleLength)
}

func (h *Handlers) handleTrack(ctx context.Context, cb *tgbotapi.CallbackQuery, q callbackQuery, user *domain.User) {
	habitID, status, err := parseTrack(q)
	if err != nil {
		h.log.Warn("bad track callback", "data", cb.Data, "err", err)
		h.answerCallback(cb.ID, "")
		return
	}

	if _, err := h.habits.TrackToday(ctx, user, habitID, status); err != nil {
		if !isUserError(err) {
			h.log.Error("track", "user", user.TelegramID, "habit", habitID, "err", err)
		}
		h.answerCallbackAlert(cb.ID, errorText(err))
		return
	}
	h.answerCallback(cb.ID, status.Emoji()+" "+status.Title())
	h.showToday(ctx, cb.Message.Chat.ID, cb.Message.MessageID, user)

	if status == domain.StatusDone {
		h.announceMilestones(ctx, cb.Message.Chat.ID, user, habitID)
	}
}

func (h *Handlers) announceMilestones(ctx context.Context, chatID int64, user *domain.User, habitID int64) {
	habit, err := h.habits.GetHabit(ctx, user, habitID)
	if err != nil {
		return
	}
	stats, err := h.stats.HabitStats(ctx, user, habit)
	if err != nil {
		h.log.Error("milestone stats", "habit", habitID, "err", err)
		return
	}
	reached, err := h.milestones.CheckMilestones(ctx, user, habit, stats)
	if err != nil {
		h.log.Error("check milestones", "habit", habitID, "err", err)
	}
	for _, m := range reached {
		h.sendHTML(chatID, fmt.Sprintf("%s <b>%s!</b>\n\n«%s»: %d дней подряд. Так держать! 🤍",
			m.Emoji, m.Title, html.EscapeString(habit.Name), m.Streak))
	}
}

// ==================== HABITS ====================

func (h *Handlers) startAddHabit(ctx context.Context, chatID int64, user *domain.User) {
	active, err := h.habits.ListHabits(ctx, user, true)
	if err != nil {
		h.replyError(chatID, "list habits", err)
		return
	}
	if len(active) >= domain.MaxActiveHabits {
		h.sendText(chatID, errorText(service.ErrHabitLimitReached))
		return
	}

	h.saveState(ctx, user.TelegramID, &ConversationState{Action: ActionHabitName})
	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("➕ <b>Новая привычка</b>\n\nНапиши название (до %d символов):", domain.MaxHabitNameRunes))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = CancelKeyboard()
	h.send(reply)
}

func (h *Handlers) handleSchedule(ctx context.Context, cb *tgbotapi.CallbackQuery, q callbackQuery, user *domain.User) {
	h.answerCallback(cb.ID, "")
	switch domain.ScheduleType(q.Arg(0)) {
	case domain.ScheduleDaily:
		h.createHabit(ctx, cb, user, domain.DailySchedule())
	case domain.ScheduleWeekly:
		kb := WeeklyTargetKeyboard()
		h.editMessage(cb.Message.Chat.ID, cb.Message.MessageID, "📆 Сколько раз в неделю?", &kb)
	}
}

func (h *Handlers) createHabit(ctx context.Context, cb *tgbotapi.CallbackQuery, user *domain.User, schedule domain.Schedule) {
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID

	state, err := h.states.Get(ctx, cb.From.ID)
	if err != nil || state == nil || state.Action != ActionHabitSchedule {
		h.editMessage(chatID, msgID, "Действие устарело. Нажми «"+BtnAddHabit+"» ещё раз.", nil)
		return
	}

	habit, err := h.habits.CreateHabit(ctx, user, state.HabitName, schedule)
	h.states.Delete(ctx, cb.From.ID)
	if err != nil {
		if !isUserError(err) {
			h.log.Error("create habit", "user", user.TelegramID, "err", err)
		}
		h.editMessage(chatID, msgID, errorText(err), nil)
		return
	}

	h.editMessage(chatID, msgID, fmt.Sprintf("✅ Привычка <b>%s</b> создана\n📅 %s",
		html.EscapeString(habit.Name), habit.Schedule), nil)
}

func (h *Handlers) showHabits(ctx context.Context, chatID int64, msgID int, user *domain.User) {
	habits, err := h.habits.ListHabits(ctx, user, false)
	if err != nil {
		h.replyError(chatID, "list habits", err)
		return
	}

	text := "📋 <b>Мои привычки</b>\n\nВыбери привычку, чтобы изменить её:"
	if len(habits) == 0 {
		text = "📋 <b>Мои привычки</b>\n\nУ тебя пока нет привычек."
	}
	kb := HabitsListKeyboard(habits)
	if msgID != 0 {
		h.editMessage(chatID, msgID, text, &kb)
		return
	}
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = kb
	h.send(reply)
}

func (h *Handlers) showHabit(ctx context.Context, chatID int64, msgID int, user *domain.User, q callbackQuery) {
	habitID, err := q.Int64(0)
	if err != nil {
		return
	}
	habit, err := h.habits.GetHabit(ctx, user, habitID)
	if err != nil {
		h.replyError(chatID, "get habit", err)
		return
	}

	state := "🟢 активна"
	if !habit.IsActive {
		state = "🔴 выключена"
	}
	text := fmt.Sprintf("<b>%s</b>\n\n📅 %s\n%s", html.EscapeString(habit.Name), habit.Schedule, state)
	kb := HabitActionsKeyboard(habit)
	h.editMessage(chatID, msgID, text, &kb)
}

func (h *Handlers) showHabitDetails(ctx context.Context, chatID int64, user *domain.User, habitID int64) {
	habit, err := h.habits.GetHabit(ctx, user, habitID)
	if err != nil {
		h.replyError(chatID, "get habit", err)
		return
	}
	details, err := h.stats.HabitDetails(ctx, user, habit, 7)
	if err != nil {
		h.replyError(chatID, "habit details", err)
		return
	}

	var sb strings.Builder
	sb.WriteString(formatReport(domain.HabitReport{Habit: habit, Stats: details.Stats}))
	sb.WriteString("\nПоследние 7 дней: ")
	sb.WriteString(formatMarks(details.Recent))
	h.sendHTML(chatID, sb.String())
}

// ==================== STATS ====================

func (h *Handlers) showStats(ctx context.Context, chatID int64, user *domain.User) {
	reports, err := h.stats.UserStats(ctx, user)
	if err != nil {
		h.replyError(chatID, "user stats", err)
		return
	}
	if len(reports) == 0 {
		h.sendHTML(chatID, "📊 <b>Статистика</b>\n\nУ тебя пока нет активных привычек.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Твоя статистика</b>\n\n")
	habits := make([]*domain.Habit, 0, len(reports))
	for _, r := range reports {
		sb.WriteString(formatReport(r))
		sb.WriteString("\n")
		habits = append(habits, r.Habit)
	}
	sb.WriteString("👇 Графики:")

	reply := tgbotapi.NewMessage(chatID, sb.String())
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = StatsKeyboard(habits)
	h.send(reply)
}

// formatReport renders one habit's statistics. Weekly habits count streaks in weeks.
func formatReport(r domain.HabitReport) string {
	unit := "дн."
	if r.Habit.Schedule.IsWeekly() {
		unit = "нед."
	}
	emoji := "🔥"
	if r.Stats.CurrentStreak == 0 {
		emoji = "💤"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b> (%s)\n", html.EscapeString(r.Habit.Name), r.Habit.Schedule)
	fmt.Fprintf(&sb, "  %s Серия: %d %s | 🏆 Лучшая: %d %s\n", emoji, r.Stats.CurrentStreak, unit, r.Stats.BestStreak, unit)
	fmt.Fprintf(&sb, "  📈 7 дней: %d | 30 дней: %d | всего: %d\n", r.Stats.Done7Days, r.Stats.Done30Days, r.Stats.TotalDone)
	if !r.Habit.Schedule.IsWeekly() {
		if next := service.NextMilestone(r.Stats.CurrentStreak); next != nil {
			fmt.Fprintf(&sb, "  📍 До «%s»: %d дн.\n", next.Title, next.Streak-r.Stats.CurrentStreak)
		}
	}
	return sb.String()
}

func formatMarks(marks []service.DayMark) string {
	var sb strings.Builder
	for _, m := range marks {
		sb.WriteString(m.Status.Emoji())
	}
	return sb.String()
}

func (h *Handlers) handleChart(ctx context.Context, chatID int64, user *domain.User, q callbackQuery) {
	var (
		chart   string
		caption string
		err     error
	)

	switch q.Arg(0) {
	case "streaks":
		var reports []domain.HabitReport
		reports, err = h.stats.UserStats(ctx, user)
		if err != nil {
			break
		}
		chart, err = StreakChart(reports)
		caption = "🔥 Текущие серии"

	case "habit":
		var habitID int64
		if habitID, err = q.Int64(1); err != nil {
			break
		}
		var habit *domain.Habit
		if habit, err = h.habits.GetHabit(ctx, user, habitID); err != nil {
			break
		}
		var details *service.HabitDetails
		if details, err = h.stats.HabitDetails(ctx, user, habit, 30); err != nil {
			break
		}
		chart, err = HabitCalendarChart(habit.Name, details.Recent)
		caption = fmt.Sprintf("📅 <b>%s</b> — последние 30 дней\n\n🟢 выполнено · 🔴 не сделал · 🟡 пропуск",
			html.EscapeString(habit.Name))
	}

	if err != nil {
		h.replyError(chatID, "chart", err)
		return
	}
	if chart == "" {
		h.sendText(chatID, "Пока нечего показать")
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(chart))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(photo); err != nil {
		h.log.Error("send chart", "chat", chatID, "err", err)
		h.sendText(chatID, "❌ Не удалось загрузить график")
	}
}

// ==================== PROFILE & SETTINGS ====================

func (h *Handlers) showProfile(ctx context.Context, chatID int64, user *domain.User) {
	milestones, err := h.milestones.GetUserMilestones(ctx, user)
	if err != nil {
		h.log.Warn("user milestones", "user", user.TelegramID, "err", err)
	}
	h.sendHTML(chatID, profileText(user, len(milestones)))
}

func profileText(user *domain.User, milestones int) string {
	age := "—"
	if user.Age != nil {
		age = fmt.Sprintf("%d", *user.Age)
	}
	reminder := "выключены"
	if user.RemindersEnabled && user.ReminderTime != nil {
		reminder = *user.ReminderTime
	}

	var sb strings.Builder
	sb.WriteString("👤 <b>Профиль</b>\n\n")
	fmt.Fprintf(&sb, "Имя: %s\n", html.EscapeString(user.DisplayName()))
	fmt.Fprintf(&sb, "Возраст: %s\n", age)
	fmt.Fprintf(&sb, "Город: %s\n", html.EscapeString(orDash(user.City)))
	fmt.Fprintf(&sb, "Активность: %s\n", html.EscapeString(orDash(user.ActivityLevel)))
	fmt.Fprintf(&sb, "Цель: %s\n", html.EscapeString(orDash(user.Goal)))
	fmt.Fprintf(&sb, "Напоминания: %s\n", reminder)
	fmt.Fprintf(&sb, "Часовой пояс: %s\n", user.Timezone)
	fmt.Fprintf(&sb, "\nДень цикла: %d/%d\n", user.DayCycle, domain.DayCycleLength)
	fmt.Fprintf(&sb, "🏆 Достижений: %d", milestones)
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func (h *Handlers) showSettings(chatID int64, msgID int, user *domain.User) {
	reminder := "не задано"
	if user.ReminderTime != nil {
		reminder = *user.ReminderTime
	}
	status := "выключены"
	if user.RemindersEnabled {
		status = "включены"
	}
	text := fmt.Sprintf("⚙️ <b>Настройки</b>\n\n🕐 Время напоминания: %s\n🔔 Напоминания: %s\n🌍 Часовой пояс: %s",
		reminder, status, user.Timezone)

	kb := SettingsKeyboard(user.RemindersEnabled)
	if msgID != 0 {
		h.editMessage(chatID, msgID, text, &kb)
		return
	}
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = kb
	h.send(reply)
}

func (h *Handlers) handleSettings(ctx context.Context, cb *tgbotapi.CallbackQuery, q callbackQuery, user *domain.User) {
	h.answerCallback(cb.ID, "")
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID

	switch q.Arg(0) {
	case "reminder_time":
		kb := ReminderTimeKeyboard("set_reminder")
		h.editMessage(chatID, msgID, "🕐 Когда напоминать?", &kb)
	case "timezone":
		kb := TimezoneKeyboard()
		h.editMessage(chatID, msgID, "🌍 Выбери часовой пояс:", &kb)
	case "reminders_on", "reminders_off":
		enabled := q.Arg(0) == "reminders_on"
		if enabled && user.ReminderTime == nil {
			kb := ReminderTimeKeyboard("set_reminder")
			h.editMessage(chatID, msgID, "🕐 Сначала выбери время напоминания:", &kb)
			return
		}
		if err := h.users.SetRemindersEnabled(ctx, user, enabled); err != nil {
			h.replyError(chatID, "toggle reminders", err)
			return
		}
		h.showSettings(chatID, msgID, user)
	}
}

// ==================== NOTIFICATIONS ====================

// SendReminder is the reminder scheduler's delivery hook.
func (h *Handlers) SendReminder(user *domain.User, habitName string) error {
	text := fmt.Sprintf("🤍 %s, время отметиться!", user.DisplayName())
	if habitName != "" {
		text = fmt.Sprintf("🤍 %s, время для «%s»!", user.DisplayName(), habitName)
	}
	msg := tgbotapi.NewMessage(user.TelegramID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnToday, "open_today"),
		),
	)
	_, err := h.bot.Send(msg)
	return err
}

// ==================== HELPERS ====================

func (h *Handlers) isAdmin(ctx context.Context, telegramID int64, username string) bool {
	return h.admin != nil && h.admin.IsAdmin(ctx, telegramID, username)
}

func (h *Handlers) sendMenu(ctx context.Context, chatID int64, from *tgbotapi.User, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = MainMenuKeyboard(h.isAdmin(ctx, from.ID, from.UserName))
	h.send(reply)
}

func isMenuButton(text string) bool {
	switch text {
	case BtnToday, BtnAddHabit, BtnHabits, BtnStats, BtnProfile, BtnSettings, BtnAdmin:
		return true
	}
	return false
}

func (h *Handlers) saveState(ctx context.Context, telegramID int64, state *ConversationState) {
	if err := h.states.Set(ctx, telegramID, state); err != nil {
		h.log.Error("save state", "user", telegramID, "err", err)
	}
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.log.Warn("send", "err", err)
	}
}

func (h *Handlers) sendText(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	h.send(msg)
}

func (h *Handlers) editMessage(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	if _, err := h.bot.Request(edit); err != nil && !strings.Contains(err.Error(), "message is not modified") {
		h.log.Warn("edit message", "chat", chatID, "err", err)
	}
}

func (h *Handlers) answerCallback(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		h.log.Debug("answer callback", "err", err)
	}
}

func (h *Handlers) answerCallbackAlert(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		h.log.Debug("answer callback", "err", err)
	}
}

// replyError logs unexpected failures and tells the user what went wrong.
func (h *Handlers) replyError(chatID int64, op string, err error) {
	if !isUserError(err) {
		h.log.Error(op, "chat", chatID, "err", err)
	}
	h.sendText(chatID, errorText(err))
}

var userErrors = []error{
	service.ErrHabitLimitReached,
	service.ErrInvalidHabitName,
	service.ErrHabitNotFound,
	service.ErrAccessDenied,
	service.ErrHabitInactive,
	service.ErrInvalidTime,
	service.ErrInvalidTimezone,
	service.ErrInvalidAge,
	service.ErrEmptyValue,
	domain.ErrInvalidWeeklyTarget,
}

func isUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrHabitLimitReached):
		return fmt.Sprintf("⚠️ Можно вести не больше %d активных привычек. Выключи или удали одну из них.", domain.MaxActiveHabits)
	case errors.Is(err, service.ErrInvalidHabitName):
		return fmt.Sprintf("❌ Название должно быть от 1 до %d символов. Попробуй ещё раз:", domain.MaxHabitNameRunes)
	case errors.Is(err, service.ErrHabitNotFound), errors.Is(err, service.ErrAccessDenied):
		return "Привычка не найдена."
	case errors.Is(err, service.ErrHabitInactive):
		return "Привычка выключена. Включи её в «" + BtnHabits + "»."
	case errors.Is(err, service.ErrInvalidTime):
		return "Неверный формат. Введи время как ЧЧ:ММ (например, 08:30)."
	case errors.Is(err, service.ErrInvalidTimezone):
		return "Не знаю такой часовой пояс. Пример: Europe/Moscow"
	case errors.Is(err, service.ErrInvalidAge):
		return "Пожалуйста, введи число от 1 до 120."
	case errors.Is(err, service.ErrEmptyValue):
		return "Значение не может быть пустым. Попробуй ещё раз."
	case errors.Is(err, domain.ErrInvalidWeeklyTarget):
		return "Выбери от 1 до 7 раз в неделю."
	}
	return "Что-то пошло не так. Попробуй ещё раз позже."
}
