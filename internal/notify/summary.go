package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agalitsyn/task-planner-bot/internal/model"
	"github.com/agalitsyn/task-planner-bot/internal/repository"
)

// DailySummary renders the day's pending and overdue tasks plus completion
// progress as a plain-text message.
func DailySummary(ctx context.Context, tasks *repository.TaskRepository, now time.Time) (string, error) {
	pending, err := tasks.Tasks(ctx, model.TaskFilter{
		Status: model.TaskStatusPending,
		Sort:   model.TaskSortPending,
	})
	if err != nil {
		return "", err
	}
	overdue, err := tasks.Tasks(ctx, model.TaskFilter{
		Status: model.TaskStatusOverdue,
		Sort:   model.TaskSortPending,
	})
	if err != nil {
		return "", err
	}
	percentage, err := tasks.CompletionPercentage(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📋 Daily summary\n")
	b.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	b.WriteString("🔥 Pending\n")
	if len(pending) == 0 {
		b.WriteString("— nothing pending\n")
	}
	for _, task := range pending {
		b.WriteString(formatSummaryLine(task, now))
	}

	if len(overdue) > 0 {
		b.WriteString("\n⚠️ Overdue\n")
		for _, task := range overdue {
			b.WriteString(formatSummaryLine(task, now))
		}
	}

	b.WriteString(fmt.Sprintf("\n✅ Completed: %.0f%%", percentage))
	return strings.TrimSpace(b.String()), nil
}

func formatSummaryLine(task model.Task, now time.Time) string {
	var b strings.Builder

	icon := "🟢"
	if task.DueDate != nil {
		switch {
		case now.After(*task.DueDate):
			icon = "⚠️"
		case task.DueDate.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}
	b.WriteString(fmt.Sprintf("%s %s", icon, strings.TrimSpace(task.Title)))

	if task.DueDate != nil {
		b.WriteString(fmt.Sprintf(" · due %s", task.DueDate.In(now.Location()).Format("2006-01-02")))
	}
	b.WriteByte('\n')
	return b.String()
}
