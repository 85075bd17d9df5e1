package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/repository"
)

var (
	ErrBroadcastRunning  = errors.New("рассылка уже запущена")
	ErrNothingToResume   = errors.New("нет рассылки для продолжения")
	ErrEmptyBroadcast    = errors.New("текст рассылки пуст")
	ErrInvalidPoll       = fmt.Errorf("в опросе должно быть от %d до %d вариантов", domain.MinPollOptions, domain.MaxPollOptions)
	ErrBroadcastFinished = errors.New("рассылка уже завершена")
)

const broadcastBatchSize = 25

// Sender delivers one Telegram message. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type BroadcastService struct {
	repo    repository.Repository
	sender  Sender
	limiter *rate.Limiter
	log     *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewBroadcastService paces deliveries at perSecond messages per second.
func NewBroadcastService(repo repository.Repository, sender Sender, perSecond int, logger *log.Logger) *BroadcastService {
	if perSecond < 1 {
		perSecond = 1
	}
	return &BroadcastService{
		repo:    repo,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     logger.WithPrefix("broadcast"),
	}
}

func (s *BroadcastService) CreateMessage(ctx context.Context, adminID int64, text, buttonText, buttonURL string) (*domain.Broadcast, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyBroadcast
	}
	b := &domain.Broadcast{
		Kind:      domain.BroadcastMessage,
		Text:      text,
		Status:    domain.BroadcastDraft,
		CreatedBy: adminID,
	}
	if buttonText != "" && buttonURL != "" {
		b.ButtonText = &buttonText
		b.ButtonURL = &buttonURL
	}
	if err := s.repo.CreateBroadcast(ctx, b); err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	return b, nil
}

// CreatePoll stores a poll broadcast. Options are trimmed and empty ones dropped.
func (s *BroadcastService) CreatePoll(ctx context.Context, adminID int64, question string, options []string) (*domain.Broadcast, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyBroadcast
	}
	var cleaned []string
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) < domain.MinPollOptions || len(cleaned) > domain.MaxPollOptions {
		return nil, ErrInvalidPoll
	}

	b := &domain.Broadcast{
		Kind:        domain.BroadcastPoll,
		Text:        question,
		PollOptions: cleaned,
		Status:      domain.BroadcastDraft,
		CreatedBy:   adminID,
	}
	if err := s.repo.CreateBroadcast(ctx, b); err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	return b, nil
}

// StartBroadcast begins or continues delivering a broadcast in the
// background. Only one broadcast runs at a time.
func (s *BroadcastService) StartBroadcast(ctx context.Context, broadcastID int64) error {
	b, err := s.repo.GetBroadcastByID(ctx, broadcastID)
	if err != nil {
		return fmt.Errorf("get broadcast: %w", err)
	}
	if b.Status == domain.BroadcastCompleted {
		return ErrBroadcastFinished
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrBroadcastRunning
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.running = false
			s.cancel = nil
			s.mu.Unlock()
			cancel()
		}()
		s.run(runCtx, b)
	}()
	return nil
}

// StopBroadcast pauses the running broadcast; it can be resumed later from
// the last delivered recipient.
func (s *BroadcastService) StopBroadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.cancel != nil {
		s.cancel()
	}
}

// ResumeBroadcast restarts the broadcast left running by a crash, or else the
// most recent paused one.
func (s *BroadcastService) ResumeBroadcast(ctx context.Context) error {
	b, err := s.repo.GetRunningBroadcast(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("get running broadcast: %w", err)
	}
	if b == nil {
		broadcasts, err := s.repo.GetAllBroadcasts(ctx)
		if err != nil {
			return fmt.Errorf("list broadcasts: %w", err)
		}
		for _, candidate := range broadcasts {
			if candidate.Status == domain.BroadcastPaused {
				b = candidate
				break
			}
		}
	}
	if b == nil {
		return ErrNothingToResume
	}
	return s.StartBroadcast(ctx, b.ID)
}

func (s *BroadcastService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until the current run, if any, has finished.
func (s *BroadcastService) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *BroadcastService) run(ctx context.Context, b *domain.Broadcast) {
	// progress must be saved even after a stop cancelled ctx
	persist := context.WithoutCancel(ctx)
	runID := uuid.NewString()
	logger := s.log.With("broadcast", b.ID, "run", runID)

	total, err := s.repo.CountUsers(persist)
	if err != nil {
		logger.Error("count recipients", "err", err)
		return
	}
	if err := s.repo.StartBroadcast(persist, b.ID, total); err != nil {
		logger.Error("mark started", "err", err)
		return
	}
	logger.Info("broadcast started", "kind", b.Kind, "total", total, "from_user", b.LastUserID)

	lastUserID, sent, failed := b.LastUserID, b.SentCount, b.FailedCount
	pause := func() {
		if err := s.repo.UpdateBroadcastProgress(persist, b.ID, sent, failed, lastUserID); err != nil {
			logger.Error("save progress", "err", err)
		}
		if err := s.repo.UpdateBroadcastStatus(persist, b.ID, domain.BroadcastPaused); err != nil {
			logger.Error("mark paused", "err", err)
		}
		logger.Info("broadcast paused", "last_user", lastUserID, "sent", sent, "failed", failed)
	}

	for {
		if ctx.Err() != nil {
			pause()
			return
		}

		recipients, err := s.repo.GetBroadcastRecipients(ctx, lastUserID, broadcastBatchSize)
		if err != nil {
			if ctx.Err() != nil {
				pause()
				return
			}
			logger.Error("load recipients", "err", err)
			pause()
			return
		}
		if len(recipients) == 0 {
			break
		}

		for _, rc := range recipients {
			if err := s.limiter.Wait(ctx); err != nil {
				pause()
				return
			}
			if err := s.deliver(rc.TelegramID, b); err != nil {
				failed++
				broadcastMessagesTotal.WithLabelValues("failed").Inc()
				logger.Debug("delivery failed", "chat", rc.TelegramID, "err", err)
			} else {
				sent++
				broadcastMessagesTotal.WithLabelValues("sent").Inc()
			}
			lastUserID = rc.UserID
		}

		if err := s.repo.UpdateBroadcastProgress(persist, b.ID, sent, failed, lastUserID); err != nil {
			logger.Error("save progress", "err", err)
		}
	}

	if err := s.repo.UpdateBroadcastProgress(persist, b.ID, sent, failed, lastUserID); err != nil {
		logger.Error("save progress", "err", err)
	}
	if err := s.repo.CompleteBroadcast(persist, b.ID); err != nil {
		logger.Error("mark completed", "err", err)
	}
	logger.Info("broadcast completed", "sent", sent, "failed", failed)
}

func (s *BroadcastService) deliver(chatID int64, b *domain.Broadcast) error {
	_, err := s.sender.Send(BroadcastMessage(chatID, b))
	return err
}

// BroadcastMessage renders b for one chat. It is also used for the admin preview.
func BroadcastMessage(chatID int64, b *domain.Broadcast) tgbotapi.Chattable {
	if b.Kind == domain.BroadcastPoll {
		poll := tgbotapi.NewPoll(chatID, b.Text, b.PollOptions...)
		poll.IsAnonymous = false
		return poll
	}

	msg := tgbotapi.NewMessage(chatID, b.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if b.ButtonText != nil && b.ButtonURL != nil && *b.ButtonText != "" && *b.ButtonURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(*b.ButtonText, *b.ButtonURL),
			),
		)
	}
	return msg
}
