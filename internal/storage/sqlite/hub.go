package sqlite

import "sync"

// Table names used as change topics.
const (
	tableTasks      = "tasks"
	tableCategories = "categories"
	tableTags       = "tags"
	tableTaskTags   = "task_tags"
)

// hub fans out write notifications to watchers. Notifications are
// level-triggered: each subscriber has a one-slot signal channel, repeated
// broadcasts before the watcher wakes up coalesce into one.
type hub struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

type subscription struct {
	tables map[string]struct{}
	ch     chan struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[*subscription]struct{})}
}

func (h *hub) subscribe(tables ...string) *subscription {
	sub := &subscription{
		tables: make(map[string]struct{}, len(tables)),
		ch:     make(chan struct{}, 1),
	}
	for _, table := range tables {
		sub.tables[table] = struct{}{}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *hub) unsubscribe(sub *subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

func (h *hub) broadcast(tables ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		for _, table := range tables {
			if _, ok := sub.tables[table]; !ok {
				continue
			}
			select {
			case sub.ch <- struct{}{}:
			default:
			}
			break
		}
	}
}
