package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mewego-bot/internal/config"
	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
	"mewego-bot/internal/service"
)

const (
	latestUsersLimit   = 50
	recentBroadcasts   = 10
	telegramTextLimit  = 4000
	buttonSeparator    = "|"
	adminActionsPrefix = "admin_"
)

var errInvalidButton = errors.New("button must be \"text | http(s) url\"")

type AdminHandlers struct {
	bot        Messenger
	repo       repository.Repository
	broadcasts *service.BroadcastService
	exports    *service.ExportService
	states     StateStore
	cfg        *config.Config
	log        *log.Logger
}

func NewAdminHandlers(
	bot Messenger,
	repo repository.Repository,
	broadcasts *service.BroadcastService,
	exports *service.ExportService,
	states StateStore,
	cfg *config.Config,
	logger *log.Logger,
) *AdminHandlers {
	return &AdminHandlers{
		bot:        bot,
		repo:       repo,
		broadcasts: broadcasts,
		exports:    exports,
		states:     states,
		cfg:        cfg,
		log:        logger.WithPrefix("admin"),
	}
}

// IsAdmin accepts the configured owner, configured usernames and the admins table.
func (h *AdminHandlers) IsAdmin(ctx context.Context, telegramID int64, username string) bool {
	if h.cfg.AdminTelegramID != 0 && telegramID == h.cfg.AdminTelegramID {
		return true
	}
	if h.cfg.IsAdminUsername(username) {
		return true
	}
	ok, err := h.repo.IsAdmin(ctx, telegramID)
	if err != nil {
		h.log.Warn("is admin", "user", telegramID, "err", err)
	}
	return ok
}

// HandleMessage reports whether the message was an admin command or part of
// an admin dialog.
func (h *AdminHandlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) bool {
	if !h.IsAdmin(ctx, msg.From.ID, msg.From.UserName) {
		return false
	}

	if msg.Command() == "" && msg.Text != BtnAdmin {
		state, err := h.states.Get(ctx, msg.From.ID)
		if err != nil {
			h.log.Warn("load state", "user", msg.From.ID, "err", err)
		}
		if state != nil && strings.HasPrefix(state.Action, adminActionsPrefix) {
			h.handleState(ctx, msg, state)
			return true
		}
	}

	chatID := msg.Chat.ID
	switch {
	case msg.Text == BtnAdmin || msg.Command() == "admin":
		h.showMenu(chatID)
	case msg.Command() == "addadmin":
		h.addAdmin(ctx, chatID, msg.From.ID, msg.CommandArguments())
	case msg.Command() == "broadcasts":
		h.showBroadcasts(ctx, chatID)
	case msg.Command() == "stopbroadcast":
		h.stopBroadcast(chatID)
	case msg.Command() == "resumebroadcast":
		h.resumeBroadcast(ctx, chatID)
	default:
		return false
	}
	return true
}

func (h *AdminHandlers) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, q callbackQuery) {
	h.answer(cb.ID)
	if !h.IsAdmin(ctx, cb.From.ID, cb.From.UserName) {
		return
	}
	chatID := cb.Message.Chat.ID

	switch q.Arg(0) {
	case "stats":
		h.showStats(ctx, chatID)
	case "users":
		h.showLatestUsers(ctx, chatID)
	case "export_users":
		h.sendExport(chatID, func() (*service.ExportFile, error) { return h.exports.ExportUsers(ctx) })
	case "export_habits":
		h.sendExport(chatID, func() (*service.ExportFile, error) { return h.exports.ExportHabits(ctx) })
	case "new_message":
		h.setState(ctx, cb.From.ID, &ConversationState{Action: ActionBroadcastText})
		h.sendPrompt(chatID, "📣 Пришли текст рассылки (HTML):")
	case "new_poll":
		h.setState(ctx, cb.From.ID, &ConversationState{Action: ActionPollQuestion})
		h.sendPrompt(chatID, "🗳 Пришли вопрос опроса:")
	case "skip_button":
		h.createMessageFromState(ctx, chatID, cb.From.ID, "")
	case "broadcasts":
		h.showBroadcasts(ctx, chatID)
	case "start":
		id, err := q.Int64(1)
		if err != nil {
			return
		}
		h.startBroadcast(ctx, chatID, id)
	case "stop":
		h.stopBroadcast(chatID)
	case "resume":
		h.resumeBroadcast(ctx, chatID)
	case "add_admin":
		h.setState(ctx, cb.From.ID, &ConversationState{Action: ActionAddAdmin})
		h.sendPrompt(chatID, "➕ Пришли Telegram ID нового админа:")
	}
}

func (h *AdminHandlers) handleState(ctx context.Context, msg *tgbotapi.Message, state *ConversationState) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.Action {
	case ActionBroadcastText:
		if text == "" {
			h.sendText(chatID, "Текст не может быть пустым")
			return
		}
		h.setState(ctx, msg.From.ID, &ConversationState{
			Action: ActionBroadcastBtn,
			Data:   map[string]string{"text": text},
		})
		reply := tgbotapi.NewMessage(chatID, "🔘 Добавить кнопку? Пришли «Текст кнопки | https://ссылка» или нажми «Пропустить».")
		reply.ReplyMarkup = SkipKeyboard(callbackData("admin", "skip_button"))
		h.send(reply)

	case ActionBroadcastBtn:
		h.createMessageFromState(ctx, chatID, msg.From.ID, text)

	case ActionPollQuestion:
		if text == "" {
			h.sendText(chatID, "Вопрос не может быть пустым")
			return
		}
		h.setState(ctx, msg.From.ID, &ConversationState{
			Action: ActionPollOptions,
			Data:   map[string]string{"question": text},
		})
		h.sendPrompt(chatID, fmt.Sprintf("Пришли варианты ответа, каждый с новой строки (от %d до %d):",
			domain.MinPollOptions, domain.MaxPollOptions))

	case ActionPollOptions:
		b, err := h.broadcasts.CreatePoll(ctx, msg.From.ID, state.Data["question"], strings.Split(text, "\n"))
		if errors.Is(err, service.ErrInvalidPoll) {
			h.sendText(chatID, fmt.Sprintf("Нужно от %d до %d непустых вариантов. Попробуй ещё раз:",
				domain.MinPollOptions, domain.MaxPollOptions))
			return
		}
		h.states.Delete(ctx, msg.From.ID)
		if err != nil {
			h.fail(chatID, "create poll", err)
			return
		}
		h.preview(chatID, b)

	case ActionAddAdmin:
		h.states.Delete(ctx, msg.From.ID)
		h.addAdmin(ctx, chatID, msg.From.ID, text)
	}
}

// createMessageFromState finishes the text broadcast dialog. button is either
// empty or "caption | url".
func (h *AdminHandlers) createMessageFromState(ctx context.Context, chatID, adminID int64, button string) {
	state, err := h.states.Get(ctx, adminID)
	if err != nil || state == nil || state.Action != ActionBroadcastBtn {
		h.sendText(chatID, "Действие устарело. Начни заново: /admin")
		return
	}

	buttonText, buttonURL, err := parseButton(button)
	if err != nil {
		h.sendText(chatID, "Формат: Текст кнопки | https://ссылка")
		return
	}

	h.states.Delete(ctx, adminID)
	b, err := h.broadcasts.CreateMessage(ctx, adminID, state.Data["text"], buttonText, buttonURL)
	if err != nil {
		h.fail(chatID, "create broadcast", err)
		return
	}
	h.preview(chatID, b)
}

func parseButton(raw string) (text, url string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", nil
	}
	text, url, ok := strings.Cut(raw, buttonSeparator)
	text, url = strings.TrimSpace(text), strings.TrimSpace(url)
	if !ok || text == "" || !(strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")) {
		return "", "", errInvalidButton
	}
	return text, url, nil
}

// preview shows the admin exactly what recipients will get.
func (h *AdminHandlers) preview(chatID int64, b *domain.Broadcast) {
	h.send(service.BroadcastMessage(chatID, b))

	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("👆 Рассылка #%d сохранена. Запустить?", b.ID))
	reply.ReplyMarkup = BroadcastDraftKeyboard(b.ID)
	h.send(reply)
}

func (h *AdminHandlers) showMenu(chatID int64) {
	text := `🔐 <b>Админ-панель</b>

/broadcasts - список рассылок
/stopbroadcast - остановить рассылку
/resumebroadcast - продолжить рассылку
/addadmin ID - добавить админа`

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = AdminMenuKeyboard()
	h.send(msg)
}

func (h *AdminHandlers) showStats(ctx context.Context, chatID int64) {
	today := civil.DateOf(time.Now().In(h.cfg.Location()))
	stats, err := h.repo.GetAdminStats(ctx, today)
	if err != nil {
		h.fail(chatID, "admin stats", err)
		return
	}

	text := fmt.Sprintf(`📊 <b>Статистика</b>

👥 Пользователей: <b>%d</b>
✅ Прошли онбординг: <b>%d</b>
📝 Отметок всего: <b>%d</b>
📅 Отметок сегодня: <b>%d</b>`,
		stats.TotalUsers, stats.OnboardedUsers, stats.TotalLogs, stats.TodayLogs)
	h.sendHTML(chatID, text)
}

func (h *AdminHandlers) showLatestUsers(ctx context.Context, chatID int64) {
	users, err := h.repo.GetLatestUsers(ctx, latestUsersLimit)
	if err != nil {
		h.fail(chatID, "latest users", err)
		return
	}
	if len(users) == 0 {
		h.sendText(chatID, "Пользователей пока нет")
		return
	}
	for _, chunk := range chunkLines(userLines(users), telegramTextLimit) {
		h.sendHTML(chatID, chunk)
	}
}

func userLines(users []*domain.User) []string {
	lines := []string{fmt.Sprintf("👥 <b>Последние %d пользователей</b>\n", len(users))}
	for i, u := range users {
		status := "⏳"
		if u.OnboardingDone {
			status = "✅"
		}
		username := ""
		if u.Username != "" {
			username = " @" + html.EscapeString(u.Username)
		}
		lines = append(lines, fmt.Sprintf("%d. %s %s%s · %s · день %d",
			i+1, status, html.EscapeString(u.DisplayName()), username,
			u.CreatedAt.Format("02.01.2006"), u.DayCycle))
	}
	return lines
}

// chunkLines packs lines into messages no longer than limit bytes.
func chunkLines(lines []string, limit int) []string {
	var chunks []string
	var sb strings.Builder
	for _, line := range lines {
		if sb.Len() > 0 && sb.Len()+len(line)+1 > limit {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks
}

func (h *AdminHandlers) sendExport(chatID int64, export func() (*service.ExportFile, error)) {
	h.sendText(chatID, "⏳ Готовлю файл...")
	file, err := export()
	if err != nil {
		h.fail(chatID, "export", err)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: file.Name, Bytes: file.Data})
	if _, err := h.bot.Send(doc); err != nil {
		h.fail(chatID, "send export", err)
	}
}

func (h *AdminHandlers) showBroadcasts(ctx context.Context, chatID int64) {
	all, err := h.repo.GetAllBroadcasts(ctx)
	if err != nil {
		h.fail(chatID, "list broadcasts", err)
		return
	}
	if len(all) == 0 {
		h.sendText(chatID, "Рассылок пока нет")
		return
	}
	if len(all) > recentBroadcasts {
		all = all[:recentBroadcasts]
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Рассылки</b>\n\n")
	for _, b := range all {
		sb.WriteString(broadcastLine(b))
		sb.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = BroadcastControlKeyboard(h.broadcasts.IsRunning())
	h.send(msg)
}

func broadcastLine(b *domain.Broadcast) string {
	icon := map[domain.BroadcastStatus]string{
		domain.BroadcastDraft:     "📝",
		domain.BroadcastRunning:   "🚀",
		domain.BroadcastPaused:    "⏸",
		domain.BroadcastCompleted: "✅",
	}[b.Status]
	kind := "сообщение"
	if b.Kind == domain.BroadcastPoll {
		kind = "опрос"
	}
	preview := []rune(b.Text)
	if len(preview) > 30 {
		preview = append(preview[:30], '…')
	}
	return fmt.Sprintf("%s #%d %s: %s\n   ✉️ %d/%d · ❌ %d",
		icon, b.ID, kind, html.EscapeString(string(preview)), b.SentCount, b.TotalUsers, b.FailedCount)
}

func (h *AdminHandlers) startBroadcast(ctx context.Context, chatID, id int64) {
	if err := h.broadcasts.StartBroadcast(ctx, id); err != nil {
		switch {
		case errors.Is(err, service.ErrBroadcastRunning):
			h.sendText(chatID, "⚠️ Уже идёт другая рассылка. /stopbroadcast чтобы остановить.")
		case errors.Is(err, service.ErrBroadcastFinished):
			h.sendText(chatID, "Эта рассылка уже завершена.")
		default:
			h.fail(chatID, "start broadcast", err)
		}
		return
	}
	h.log.Info("broadcast started", "broadcast", id, "admin", chatID)
	h.sendText(chatID, fmt.Sprintf("🚀 Рассылка #%d запущена", id))
}

func (h *AdminHandlers) stopBroadcast(chatID int64) {
	if !h.broadcasts.IsRunning() {
		h.sendText(chatID, "Сейчас нет активной рассылки")
		return
	}
	h.broadcasts.StopBroadcast()
	h.sendText(chatID, "⏸ Рассылка остановлена. /resumebroadcast чтобы продолжить.")
}

func (h *AdminHandlers) resumeBroadcast(ctx context.Context, chatID int64) {
	if err := h.broadcasts.ResumeBroadcast(ctx); err != nil {
		switch {
		case errors.Is(err, service.ErrNothingToResume):
			h.sendText(chatID, "Нет приостановленных рассылок")
		case errors.Is(err, service.ErrBroadcastRunning):
			h.sendText(chatID, "⚠️ Рассылка уже идёт")
		default:
			h.fail(chatID, "resume broadcast", err)
		}
		return
	}
	h.sendText(chatID, "▶️ Рассылка продолжена")
}

func (h *AdminHandlers) addAdmin(ctx context.Context, chatID, addedBy int64, raw string) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		h.sendText(chatID, "Использование: /addadmin 123456789")
		return
	}
	if err := h.repo.AddAdmin(ctx, id, addedBy); err != nil {
		h.fail(chatID, "add admin", err)
		return
	}
	h.log.Info("admin added", "admin", id, "by", addedBy)
	h.sendText(chatID, fmt.Sprintf("✅ %d теперь админ", id))
}

// NotifyNewUser tells every admin about a user who finished onboarding.
func (h *AdminHandlers) NotifyNewUser(ctx context.Context, user *domain.User) {
	ids, err := h.repo.GetAdminIDs(ctx)
	if err != nil {
		h.log.Warn("admin ids", "err", err)
	}
	if h.cfg.AdminTelegramID != 0 {
		ids = append(ids, h.cfg.AdminTelegramID)
	}

	text := newUserText(user)
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		h.sendHTML(id, text)
	}
}

func newUserText(user *domain.User) string {
	age := "—"
	if user.Age != nil {
		age = strconv.Itoa(*user.Age)
	}
	reminder := "—"
	if user.ReminderTime != nil {
		reminder = *user.ReminderTime
	}
	username := "—"
	if user.Username != "" {
		username = "@" + user.Username
	}

	return fmt.Sprintf(`🆕 <b>Новый пользователь</b>

Имя: %s
Telegram: %s
Возраст: %s
Город: %s
Активность: %s
Цель: %s
Привычка: %s
Напоминание: %s`,
		html.EscapeString(user.DisplayName()), html.EscapeString(username), age,
		html.EscapeString(orDash(user.City)), html.EscapeString(orDash(user.ActivityLevel)),
		html.EscapeString(orDash(user.Goal)), html.EscapeString(orDash(user.OnboardingHabitName())), reminder)
}

// ==================== HELPERS ====================

func (h *AdminHandlers) setState(ctx context.Context, telegramID int64, state *ConversationState) {
	if err := h.states.Set(ctx, telegramID, state); err != nil {
		h.log.Error("save state", "user", telegramID, "err", err)
	}
}

func (h *AdminHandlers) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.log.Warn("send", "err", err)
	}
}

func (h *AdminHandlers) sendText(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *AdminHandlers) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	h.send(msg)
}

func (h *AdminHandlers) sendPrompt(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = CancelKeyboard()
	h.send(msg)
}

func (h *AdminHandlers) answer(callbackID string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		h.log.Debug("answer callback", "err", err)
	}
}

func (h *AdminHandlers) fail(chatID int64, op string, err error) {
	h.log.Error(op, "err", err)
	h.sendText(chatID, "❌ Ошибка: "+err.Error())
}
