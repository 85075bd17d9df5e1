package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mewego-bot/internal/domain"
)

const channelPromoDelay = 5 * time.Minute

const (
	welcomeText = `Привет! Я MeWeGo 🤍

Здесь не нужно быть идеальной. Достаточно маленьких шагов каждый день.`

	selfIDQuestion = "Что тебе ближе всего сейчас?"

	normalizationText = `Это нормально. Так чувствуют себя очень многие.

Мы начнём с самого простого шага, который получится даже в самый загруженный день.`

	habitChoiceText = "Выбери одну маленькую привычку на ближайшие 30 дней:"

	customHabitPrompt = "Напиши свою привычку одной короткой фразой:"

	firstCheckInText = `Отлично! Сделай её сегодня и отметься.

Когда будешь готова, нажми кнопку 👇`

	checkInConfirmation = `Первый день отмечен 🎉

День цикла: 1/30. Каждое «Я здесь» приближает тебя к себе.`

	profileIntro = "Чтобы поддерживать тебя дальше, ответь на несколько вопросов."

	askName     = "Как тебя зовут?"
	askAge      = "Сколько тебе лет?"
	askCity     = "Из какого ты города?"
	askActivity = "Какая у тебя сейчас активность?"
	askGoal     = "Какая твоя главная цель?"
	askReminder = "Когда тебе удобно получать напоминания?"

	customReminderPrompt = "Напиши время в формате ЧЧ:ММ (например, 09:30 или 21:00)"

	onboardingComplete = `Готово! Я буду рядом каждый день 🤍

Отмечай привычку кнопкой «` + BtnToday + `», добавляй новые и смотри статистику.`

	channelPromoText = `Хочешь больше поддержки? В нашем канале — идеи маленьких шагов, истории участниц и вдохновение.`
)

func (h *Handlers) startOnboarding(ctx context.Context, chatID int64, user *domain.User) {
	h.sendText(chatID, welcomeText)

	reply := tgbotapi.NewMessage(chatID, "👇")
	reply.ReplyMarkup = StartJourneyKeyboard()
	h.send(reply)

	if err := h.users.SetStep(ctx, user, domain.StepWaitingStart); err != nil {
		h.log.Error("onboarding step", "user", user.TelegramID, "err", err)
	}
}

// handleOnboardingMessage routes free text by the persisted onboarding step.
func (h *Handlers) handleOnboardingMessage(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	chatID := msg.Chat.ID

	var err error
	switch user.OnboardingStep {
	case domain.StepCustomHabit:
		if err = h.users.SetCustomHabit(ctx, user, msg.Text); err == nil {
			reply := tgbotapi.NewMessage(chatID, firstCheckInText)
			reply.ReplyMarkup = CheckInKeyboard()
			h.send(reply)
		}
	case domain.StepName:
		if err = h.users.SetName(ctx, user, msg.Text); err == nil {
			h.sendText(chatID, askAge)
		}
	case domain.StepAge:
		if err = h.users.SetAge(ctx, user, msg.Text); err == nil {
			h.sendText(chatID, askCity)
		}
	case domain.StepCity:
		if err = h.users.SetCity(ctx, user, msg.Text); err == nil {
			reply := tgbotapi.NewMessage(chatID, askActivity)
			reply.ReplyMarkup = ActivityKeyboard()
			h.send(reply)
		}
	case domain.StepCustomReminder:
		h.finishOnboarding(ctx, chatID, user, msg.Text)
	case "", domain.StepStart:
		h.startOnboarding(ctx, chatID, user)
	default:
		h.sendText(chatID, "Нажми кнопку выше, чтобы продолжить 🤍")
	}

	if err != nil {
		h.replyError(chatID, "onboarding", err)
	}
}

// handleOnboardingCallback reports whether the callback belonged to onboarding.
func (h *Handlers) handleOnboardingCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, q callbackQuery, user *domain.User) bool {
	chatID := cb.Message.Chat.ID

	switch q.Action {
	case "start_journey", "self_id", "onb_habit", "check_in", "activity", "goal", "onb_reminder":
	default:
		return false
	}
	h.answerCallback(cb.ID, "")

	if user.OnboardingDone {
		h.handleStart(ctx, chatID, user)
		return true
	}

	var err error
	switch q.Action {
	case "start_journey":
		if err = h.users.SetStep(ctx, user, domain.StepSelfID); err == nil {
			reply := tgbotapi.NewMessage(chatID, selfIDQuestion)
			reply.ReplyMarkup = SelfIdentificationKeyboard()
			h.send(reply)
		}

	case "self_id":
		option, ok := optionAt(SelfIdentificationOptions, q)
		if !ok {
			return true
		}
		if err = h.users.SetSelfIdentification(ctx, user, option); err == nil {
			h.sendText(chatID, normalizationText)
			reply := tgbotapi.NewMessage(chatID, habitChoiceText)
			reply.ReplyMarkup = HabitChoiceKeyboard()
			h.send(reply)
		}

	case "onb_habit":
		if err = h.users.ChooseHabit(ctx, user, q.Arg(0)); err != nil {
			break
		}
		if user.OnboardingStep == domain.StepCustomHabit {
			h.sendText(chatID, customHabitPrompt)
			break
		}
		reply := tgbotapi.NewMessage(chatID, firstCheckInText)
		reply.ReplyMarkup = CheckInKeyboard()
		h.send(reply)

	case "check_in":
		if user.OnboardingStep != domain.StepFirstCheckIn {
			return true
		}
		err = h.firstCheckIn(ctx, chatID, user)

	case "activity":
		option, ok := optionAt(ActivityLevels, q)
		if !ok {
			return true
		}
		if err = h.users.SetActivity(ctx, user, option); err == nil {
			reply := tgbotapi.NewMessage(chatID, askGoal)
			reply.ReplyMarkup = GoalKeyboard()
			h.send(reply)
		}

	case "goal":
		option, ok := optionAt(Goals, q)
		if !ok {
			return true
		}
		if err = h.users.SetGoal(ctx, user, option); err == nil {
			reply := tgbotapi.NewMessage(chatID, askReminder)
			reply.ReplyMarkup = ReminderTimeKeyboard("onb_reminder")
			h.send(reply)
		}

	case "onb_reminder":
		if q.Arg(0) == "custom" {
			if err = h.users.SetStep(ctx, user, domain.StepCustomReminder); err == nil {
				h.sendText(chatID, customReminderPrompt)
			}
			break
		}
		h.finishOnboarding(ctx, chatID, user, q.Rest(0))
	}

	if err != nil {
		h.replyError(chatID, "onboarding", err)
	}
	return true
}

// firstCheckIn creates the chosen habit and records today's Done for it,
// which also starts the day cycle.
func (h *Handlers) firstCheckIn(ctx context.Context, chatID int64, user *domain.User) error {
	habit, _, err := h.habits.EnsureFirstHabit(ctx, user)
	if err != nil {
		return err
	}
	if _, err := h.habits.TrackToday(ctx, user, habit.ID, domain.StatusDone); err != nil {
		return err
	}
	if err := h.users.SetStep(ctx, user, domain.StepName); err != nil {
		return err
	}

	h.sendText(chatID, checkInConfirmation)
	h.sendText(chatID, profileIntro)
	h.sendText(chatID, askName)
	return nil
}

func (h *Handlers) finishOnboarding(ctx context.Context, chatID int64, user *domain.User, reminder string) {
	if err := h.users.CompleteOnboarding(ctx, user, reminder); err != nil {
		h.replyError(chatID, "complete onboarding", err)
		return
	}
	if _, created, err := h.habits.EnsureFirstHabit(ctx, user); err != nil {
		h.log.Error("first habit", "user", user.TelegramID, "err", err)
	} else if created {
		h.log.Info("first habit created at completion", "user", user.TelegramID)
	}

	reply := tgbotapi.NewMessage(chatID, onboardingComplete)
	reply.ReplyMarkup = MainMenuKeyboard(h.isAdmin(ctx, user.TelegramID, user.Username))
	h.send(reply)

	telegramID := user.TelegramID
	h.reminders.After(channelPromoDelay, func() {
		h.sendChannelPromo(telegramID)
	})

	if h.admin != nil {
		h.admin.NotifyNewUser(ctx, user)
	}
}

func (h *Handlers) sendChannelPromo(telegramID int64) {
	if h.channelLink == "" {
		return
	}
	msg := tgbotapi.NewMessage(telegramID, channelPromoText)
	msg.ReplyMarkup = ChannelKeyboard(h.channelLink)
	if _, err := h.bot.Send(msg); err != nil {
		h.log.Warn("channel promo", "user", telegramID, "err", err)
	}
}

func optionAt(options []string, q callbackQuery) (string, bool) {
	i, err := q.Int64(0)
	if err != nil || i < 0 || int(i) >= len(options) {
		return "", false
	}
	return options[i], true
}
