package telegram

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mewego-bot/internal/config"
	"mewego-bot/internal/repository"
	"mewego-bot/internal/service"
)

const updatesTimeout = 60

type Bot struct {
	api          *tgbotapi.BotAPI
	handlers     *Handlers
	reminderSvc  *service.ReminderService
	broadcastSvc *service.BroadcastService
	log          *log.Logger
}

func NewBot(cfg *config.Config, repo repository.Repository, states StateStore, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Environment == "development"
	logger.Info("authorized", "account", api.Self.UserName)

	// Services
	userSvc := service.NewUserService(repo, cfg.Location(), logger)
	habitSvc := service.NewHabitService(repo, userSvc, logger)
	statsSvc := service.NewStatsService(repo, userSvc, cfg.StatsWorkers, logger)
	milestoneSvc := service.NewMilestoneService(repo, userSvc, logger)
	reminderSvc := service.NewReminderService(repo, userSvc, logger)
	exportSvc := service.NewExportService(repo, userSvc, logger)
	broadcastSvc := service.NewBroadcastService(repo, api, cfg.BroadcastRate, logger)

	// Handlers
	handlers := NewHandlers(api, userSvc, habitSvc, statsSvc, milestoneSvc, reminderSvc, states, cfg.ChannelLink, logger)
	adminHandlers := NewAdminHandlers(api, repo, broadcastSvc, exportSvc, states, cfg, logger)
	handlers.SetAdminHandlers(adminHandlers)

	reminderSvc.SetNotifyFunc(handlers.SendReminder)

	if cfg.AdminTelegramID != 0 {
		if err := repo.AddAdmin(context.Background(), cfg.AdminTelegramID, 0); err != nil {
			logger.Warn("register owner admin", "admin", cfg.AdminTelegramID, "err", err)
		}
	}

	return &Bot{
		api:          api,
		handlers:     handlers,
		reminderSvc:  reminderSvc,
		broadcastSvc: broadcastSvc,
		log:          logger.WithPrefix("bot"),
	}, nil
}

// Start polls for updates until ctx is cancelled. Each update is handled in
// its own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.reminderSvc.Start(); err != nil {
		return fmt.Errorf("start reminders: %w", err)
	}
	defer b.reminderSvc.Stop()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updatesTimeout

	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.broadcastSvc.StopBroadcast()
			b.broadcastSvc.Wait()
			b.log.Info("bot stopped")
			return nil
		case update := <-updates:
			go b.handlers.HandleUpdate(ctx, update)
		}
	}
}
