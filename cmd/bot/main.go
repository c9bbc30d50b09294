package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/agalitsyn/task-planner-bot/internal/app"
	"github.com/agalitsyn/task-planner-bot/internal/notify"
	"github.com/agalitsyn/task-planner-bot/internal/repository"
	"github.com/agalitsyn/task-planner-bot/internal/storage/sqlite"
	"github.com/agalitsyn/task-planner-bot/pkg/slogtools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := ParseFlags()
	slogtools.SetupGlobalLogger(cfg.Log.Level, os.Stdout)

	if cfg.Debug {
		slog.Debug("running with config")
		fmt.Fprintln(os.Stdout, cfg.String())
	}

	// The store handle is constructed exactly once here and passed down
	// explicitly; nothing else opens the database.
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slogtools.Fatal("could not open store", "err", err)
	}
	defer db.Close()

	taskRepo := repository.NewTaskRepository(sqlite.NewTaskStorage(db))
	categoryRepo := repository.NewCategoryRepository(sqlite.NewCategoryStorage(db))
	tagRepo := repository.NewTagRepository(sqlite.NewTagStorage(db))

	api, err := tgbotapi.NewBotAPI(cfg.Token.Unmask())
	if err != nil {
		slogtools.Fatal("could not init bot", "err", err)
	}
	slog.Info("authorized", "account", api.Self.UserName)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.ChatID != 0 {
		notifier = notify.NewTelegramNotifier(api, cfg.ChatID)
	}
	reminders := notify.NewReminderScheduler(notifier)
	defer reminders.Stop()

	// Re-arm reminders that were pending when the process last stopped.
	pending, err := taskRepo.TasksWithReminder(ctx)
	if err != nil {
		slogtools.Fatal("could not load reminders", "err", err)
	}
	for _, task := range pending {
		reminders.Schedule(task)
	}
	slog.Info("reminders armed", "count", len(pending))

	cronJobs := notify.NewCronScheduler(time.Local)
	if _, err := cronJobs.ScheduleInterval(cfg.ReconcileInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		updated, err := taskRepo.UpdateOverdueTasks(jobCtx, time.Now())
		if err != nil {
			slog.Error("overdue reconciliation failed", "err", err)
			return
		}
		if updated > 0 {
			slog.Info("marked tasks overdue", "count", updated)
		}
	}); err != nil {
		slogtools.Fatal("could not schedule reconciliation", "err", err)
	}
	if _, err := cronJobs.ScheduleDaily(cfg.SummaryAt, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		text, err := notify.DailySummary(jobCtx, taskRepo, time.Now())
		if err != nil {
			slog.Error("daily summary failed", "err", err)
			return
		}
		if err := notifier.Notify(jobCtx, notify.Notification{Title: text}); err != nil {
			slog.Error("daily summary delivery failed", "err", err)
		}
	}); err != nil {
		slogtools.Fatal("could not schedule daily summary", "err", err)
	}
	cronJobs.Start()
	defer cronJobs.Stop()

	bot := app.NewBot(app.BotConfig{UpdateTimeout: 60}, api, taskRepo, categoryRepo, tagRepo, reminders)
	if cfg.Debug {
		bot.SetDebug(true)
	}
	bot.Start(ctx)
}
