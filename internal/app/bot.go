// Package app is the Telegram front-end. It only talks to the repository
// layer; persistence details never reach it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agalitsyn/task-planner-bot/internal/model"
	"github.com/agalitsyn/task-planner-bot/internal/notify"
	"github.com/agalitsyn/task-planner-bot/internal/repository"
	"github.com/agalitsyn/task-planner-bot/version"
)

type BotConfig struct {
	UpdateTimeout int
}

type Bot struct {
	api *tgbotapi.BotAPI
	cfg BotConfig

	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
	reminders  *notify.ReminderScheduler
}

func NewBot(
	cfg BotConfig,
	api *tgbotapi.BotAPI,
	tasks *repository.TaskRepository,
	categories *repository.CategoryRepository,
	tags *repository.TagRepository,
	reminders *notify.ReminderScheduler,
) *Bot {
	return &Bot{
		api:        api,
		cfg:        cfg,
		tasks:      tasks,
		categories: categories,
		tags:       tags,
		reminders:  reminders,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case update := <-updates:
			if update.CallbackQuery != nil {
				if err := b.handleCallbackQuery(ctx, update); err != nil {
					slog.Error("handling callback query", "err", err)
				}
				continue
			}

			if update.Message == nil { // ignore any non-Message updates
				continue
			}

			if err := b.handleCommand(ctx, update); err != nil {
				slog.Error("handling command", "err", err)
			}

		case <-ctx.Done():
			slog.Debug("stopped", "err", ctx.Err())
			return
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, update tgbotapi.Update) error {
	chatID := update.Message.Chat.ID
	args := strings.TrimSpace(update.Message.CommandArguments())

	switch update.Message.Command() {
	case "start", "help":
		return b.showMainMenu(chatID)
	case "add":
		return b.addCommand(ctx, chatID, args)
	case "list":
		return b.listCommand(ctx, chatID)
	case "today":
		return b.todayCommand(ctx, chatID)
	case "done":
		return b.doneCommand(ctx, chatID, args)
	case "remove":
		return b.removeCommand(ctx, chatID, args)
	case "clear_completed":
		return b.clearCompletedCommand(ctx, chatID)
	case "remind":
		return b.remindCommand(ctx, chatID, args)
	case "stats":
		return b.statsCommand(ctx, chatID)
	case "categories":
		return b.categoriesCommand(ctx, chatID)
	case "tags":
		return b.tagsCommand(ctx, chatID)
	case "status":
		return b.reply(chatID, fmt.Sprintf("🤖 *Status*\n\n✅ Up\n📊 Version: %s", version.String()))
	default:
		return b.reply(chatID, "Unknown command, try /help.")
	}
}

func (b *Bot) addCommand(ctx context.Context, chatID int64, args string) error {
	task := model.NewTask(args)
	if _, err := b.tasks.Insert(ctx, task); err != nil {
		if model.IsValidation(err) {
			return b.reply(chatID, "Task title must not be empty: /add <title>")
		}
		return fmt.Errorf("could not add task: %w", err)
	}
	return b.reply(chatID, fmt.Sprintf("📝 Added task #%d", task.ID))
}

func (b *Bot) listCommand(ctx context.Context, chatID int64) error {
	tasks, err := b.tasks.Tasks(ctx, model.TaskFilter{
		Status: model.TaskStatusPending,
		Sort:   model.TaskSortPending,
	})
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return b.reply(chatID, "No pending tasks 🎉")
	}
	return b.reply(chatID, renderTasks("🔥 *Pending tasks*", tasks, time.Now()))
}

func (b *Bot) todayCommand(ctx context.Context, chatID int64) error {
	tasks, err := b.tasks.TasksDueToday(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("could not list today tasks: %w", err)
	}
	if len(tasks) == 0 {
		return b.reply(chatID, "Nothing due today.")
	}
	return b.reply(chatID, renderTasks("🗓 *Due today*", tasks, time.Now()))
}

func (b *Bot) doneCommand(ctx context.Context, chatID int64, args string) error {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return b.reply(chatID, "Usage: /done <task id>")
	}

	task, err := b.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			return b.reply(chatID, fmt.Sprintf("Task #%d not found.", id))
		}
		return fmt.Errorf("could not get task: %w", err)
	}

	next, err := b.tasks.ToggleCompletion(ctx, *task)
	if err != nil {
		return fmt.Errorf("could not toggle task: %w", err)
	}

	if next.Status == model.TaskStatusCompleted {
		// A completed task no longer needs its wake-up.
		b.reminders.Cancel(next.ID)
		return b.reply(chatID, fmt.Sprintf("✅ Completed #%d", next.ID))
	}
	return b.reply(chatID, fmt.Sprintf("↩️ Reopened #%d", next.ID))
}

func (b *Bot) removeCommand(ctx context.Context, chatID int64, args string) error {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return b.reply(chatID, "Usage: /remove <task id>")
	}
	if err := b.tasks.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("could not remove task: %w", err)
	}
	b.reminders.Cancel(id)
	return b.reply(chatID, fmt.Sprintf("🗑 Removed #%d", id))
}

func (b *Bot) clearCompletedCommand(ctx context.Context, chatID int64) error {
	n, err := b.tasks.DeleteCompleted(ctx)
	if err != nil {
		return fmt.Errorf("could not clear completed tasks: %w", err)
	}
	return b.reply(chatID, fmt.Sprintf("🧹 Removed %d completed tasks", n))
}

// remindCommand sets a reminder N minutes from now, or clears it with 0.
func (b *Bot) remindCommand(ctx context.Context, chatID int64, args string) error {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return b.reply(chatID, "Usage: /remind <task id> <minutes from now, 0 to clear>")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return b.reply(chatID, "Usage: /remind <task id> <minutes from now, 0 to clear>")
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 {
		return b.reply(chatID, "Minutes must be a non-negative number.")
	}

	var at *time.Time
	hasReminder := minutes > 0
	if hasReminder {
		t := time.Now().Add(time.Duration(minutes) * time.Minute)
		at = &t
	}

	if err := b.tasks.UpdateReminder(ctx, id, hasReminder, at); err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			return b.reply(chatID, fmt.Sprintf("Task #%d not found.", id))
		}
		return fmt.Errorf("could not update reminder: %w", err)
	}

	task, err := b.tasks.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}
	b.reminders.Schedule(*task)

	if !hasReminder {
		return b.reply(chatID, fmt.Sprintf("🔕 Reminder cleared for #%d", id))
	}
	return b.reply(chatID, fmt.Sprintf("🔔 Will remind about #%d at %s", id, at.Format("15:04")))
}

func (b *Bot) statsCommand(ctx context.Context, chatID int64) error {
	percentage, err := b.tasks.CompletionPercentage(ctx)
	if err != nil {
		return fmt.Errorf("could not get completion percentage: %w", err)
	}
	updated, err := b.tasks.UpdateOverdueTasks(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("could not reconcile overdue tasks: %w", err)
	}
	text := fmt.Sprintf("📊 *Stats*\n\n✅ Completed: %.0f%%\n⚠️ Newly overdue: %d", percentage, updated)
	return b.reply(chatID, text)
}

func (b *Bot) categoriesCommand(ctx context.Context, chatID int64) error {
	categories, err := b.categories.Categories(ctx)
	if err != nil {
		return fmt.Errorf("could not list categories: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("📁 *Categories*\n")
	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("\n• %s", c.Name))
		if c.Predefined {
			sb.WriteString(" 🔒")
		}
	}
	return b.reply(chatID, sb.String())
}

func (b *Bot) tagsCommand(ctx context.Context, chatID int64) error {
	tags, err := b.tags.Tags(ctx)
	if err != nil {
		return fmt.Errorf("could not list tags: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("🏷 *Tags*\n")
	for _, t := range tags {
		count, err := b.tags.TaskCountForTag(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("could not count tag tasks: %w", err)
		}
		sb.WriteString(fmt.Sprintf("\n• %s (%d)", t.Name, count))
	}
	return b.reply(chatID, sb.String())
}

func (b *Bot) showMainMenu(chatID int64) error {
	text := fmt.Sprintf("🤖 *Task planner*\n\n_Version: %s_", version.String())

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔥 Pending tasks", "cmd_list"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓 Due today", "cmd_today"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", "cmd_stats"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard

	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) error {
	callback := tgbotapi.NewCallback(update.CallbackQuery.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		slog.Error("answering callback query", "err", err)
	}

	chatID := update.CallbackQuery.Message.Chat.ID
	switch update.CallbackQuery.Data {
	case "cmd_list":
		return b.listCommand(ctx, chatID)
	case "cmd_today":
		return b.todayCommand(ctx, chatID)
	case "cmd_stats":
		return b.statsCommand(ctx, chatID)
	default:
		return nil
	}
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SetDebug(debug bool) {
	b.api.Debug = debug
}

func (b *Bot) GetSelf() tgbotapi.User {
	return b.api.Self
}

func renderTasks(header string, tasks []model.Task, now time.Time) string {
	titleCase := cases.Title(language.English)

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	for _, task := range tasks {
		sb.WriteString(fmt.Sprintf("\n#%d %s — %s", task.ID, task.Title, titleCase.String(task.Priority.Label())))
		if task.DueDate != nil {
			due := task.DueDate.In(now.Location())
			if now.After(due) {
				sb.WriteString(fmt.Sprintf("\n   ⏰ was due %s", due.Format("2006-01-02")))
			} else {
				sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", due.Format("2006-01-02")))
			}
		}
	}
	return sb.String()
}
