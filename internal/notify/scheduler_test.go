package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agalitsyn/task-planner-bot/internal/model"
)

type captureNotifier struct {
	ch chan Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan Notification, 8)}
}

func (c *captureNotifier) Notify(_ context.Context, n Notification) error {
	c.ch <- n
	return nil
}

func reminderTask(id int64, at time.Time) model.Task {
	task := model.NewTask("water plants")
	task.ID = id
	task.Description = "the ones on the balcony"
	task.HasReminder = true
	task.ReminderAt = &at
	return *task
}

func TestSchedulerDelivers(t *testing.T) {
	notifier := newCaptureNotifier()
	s := NewReminderScheduler(notifier)
	defer s.Stop()

	s.Schedule(reminderTask(1, time.Now().Add(10*time.Millisecond)))

	select {
	case n := <-notifier.ch:
		assert.EqualValues(t, 1, n.TaskID)
		assert.Equal(t, "water plants", n.Title)
		assert.Equal(t, "the ones on the balcony", n.Body)
	case <-time.After(5 * time.Second):
		t.Fatal("reminder was not delivered")
	}
}

func TestSchedulerPastInstantFiresImmediately(t *testing.T) {
	notifier := newCaptureNotifier()
	s := NewReminderScheduler(notifier)
	defer s.Stop()

	s.Schedule(reminderTask(1, time.Now().Add(-time.Hour)))

	select {
	case <-notifier.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("past reminder should fire immediately")
	}
}

func TestSchedulerCancel(t *testing.T) {
	notifier := newCaptureNotifier()
	s := NewReminderScheduler(notifier)
	defer s.Stop()

	s.Schedule(reminderTask(1, time.Now().Add(50*time.Millisecond)))
	s.Cancel(1)

	select {
	case <-notifier.ch:
		t.Fatal("cancelled reminder must not fire")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSchedulerClearedReminderCancels(t *testing.T) {
	notifier := newCaptureNotifier()
	s := NewReminderScheduler(notifier)
	defer s.Stop()

	s.Schedule(reminderTask(1, time.Now().Add(50*time.Millisecond)))

	// Scheduling the same task without an active reminder drops the
	// pending wake-up.
	cleared := reminderTask(1, time.Now())
	cleared.HasReminder = false
	cleared.ReminderAt = nil
	s.Schedule(cleared)

	select {
	case <-notifier.ch:
		t.Fatal("cleared reminder must not fire")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSchedulerReschedulesSameTask(t *testing.T) {
	notifier := newCaptureNotifier()
	s := NewReminderScheduler(notifier)
	defer s.Stop()

	s.Schedule(reminderTask(1, time.Now().Add(time.Hour)))
	s.Schedule(reminderTask(1, time.Now().Add(10*time.Millisecond)))

	select {
	case <-notifier.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("rescheduled reminder was not delivered")
	}

	// Only one wake-up per task.
	select {
	case <-notifier.ch:
		t.Fatal("reminder fired twice")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 9 * * *", spec)

	for _, bad := range []string{"", "9", "24:00", "10:60", "aa:bb"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}
