package livesync

import (
	"log/slog"
	"sync"
)

// TopicManager keeps at most one post topic joined on the transport.
type TopicManager struct {
	transport Transport
	log       *slog.Logger

	mu      sync.Mutex
	current string
	hooks   map[uint64]func(prev, next string)
	nextID  uint64
}

// NewTopicManager creates a manager with no active topic.
func NewTopicManager(transport Transport, log *slog.Logger) *TopicManager {
	if log == nil {
		log = slog.Default()
	}
	return &TopicManager{
		transport: transport,
		log:       log,
		hooks:     make(map[uint64]func(prev, next string)),
	}
}

// Activate switches to topicID, leaving the previous topic first.
// Activating the current topic does nothing. An empty ID deactivates.
func (m *TopicManager) Activate(topicID string) {
	if topicID == "" {
		m.Deactivate()
		return
	}
	m.switchTo(topicID)
}

// Deactivate leaves the current topic, if any.
func (m *TopicManager) Deactivate() {
	m.switchTo("")
}

// CurrentTopic returns the joined topic, or "".
func (m *TopicManager) CurrentTopic() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// OnChange registers fn to run after every topic switch.
func (m *TopicManager) OnChange(fn func(prev, next string)) (release func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.hooks[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.hooks, id)
			m.mu.Unlock()
		})
	}
}

func (m *TopicManager) switchTo(next string) {
	m.mu.Lock()
	prev := m.current
	if prev == next {
		m.mu.Unlock()
		return
	}

	// Send failures are not retried; the local state still moves so joins and leaves stay paired.
	if prev != "" {
		if err := m.transport.Leave(prev); err != nil {
			m.log.Warn("leave topic failed", "post_id", prev, "error", err)
		}
	}
	if next != "" {
		if err := m.transport.Join(next); err != nil {
			m.log.Warn("join topic failed", "post_id", next, "error", err)
		}
	}
	m.current = next

	hooks := make([]func(prev, next string), 0, len(m.hooks))
	for _, fn := range m.hooks {
		hooks = append(hooks, fn)
	}
	m.mu.Unlock()

	m.log.Debug("topic changed", "from", prev, "to", next)
	for _, fn := range hooks {
		fn(prev, next)
	}
}
