// Package notify delivers task reminders. The core only hands over a task
// id, title and description when a reminder is set or cleared; everything
// past that point lives here.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

type Notification struct {
	TaskID int64
	Title  string
	Body   string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes reminders to the log. Used when no chat is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	slog.Info("reminder", "task_id", n.TaskID, "title", n.Title)
	return nil
}

// TelegramNotifier sends reminders to a single chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(api *tgbotapi.BotAPI, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{api: api, chatID: chatID}
}

func (t *TelegramNotifier) Notify(_ context.Context, n Notification) error {
	text := fmt.Sprintf("🔔 %s", n.Title)
	if n.Body != "" {
		text += "\n" + n.Body
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("could not send reminder: %w", err)
	}
	return nil
}

// ReminderScheduler keeps one pending one-shot wake-up per task.
type ReminderScheduler struct {
	notifier Notifier

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func NewReminderScheduler(notifier Notifier) *ReminderScheduler {
	return &ReminderScheduler{
		notifier: notifier,
		timers:   make(map[int64]*time.Timer),
	}
}

// Schedule arms a wake-up at the task's reminder instant. Scheduling the
// same task again replaces the pending wake-up; a task without an active
// reminder cancels it. Instants already in the past fire immediately.
func (s *ReminderScheduler) Schedule(task model.Task) {
	if !task.HasReminder || task.ReminderAt == nil {
		s.Cancel(task.ID)
		return
	}

	n := Notification{TaskID: task.ID, Title: task.Title, Body: task.Description}
	delay := time.Until(*task.ReminderAt)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[task.ID]; ok {
		timer.Stop()
	}
	s.timers[task.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, task.ID)
		s.mu.Unlock()

		if err := s.notifier.Notify(context.Background(), n); err != nil {
			slog.Error("reminder delivery failed", "task_id", n.TaskID, "err", err)
		}
	})
}

// Cancel drops any pending wake-up for the task.
func (s *ReminderScheduler) Cancel(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[taskID]; ok {
		timer.Stop()
		delete(s.timers, taskID)
	}
}

// Stop drops every pending wake-up.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
