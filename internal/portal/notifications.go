package portal

import (
	"errors"
	"sync"
	"time"
)

// Level grades a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message for the operator.
type Notification struct {
	Level   Level
	Tier    Tier
	Message string
	At      time.Time
}

// Notifier collects notifications until they are drained by the view.
type Notifier struct {
	mu    sync.Mutex
	items []Notification
}

// NewNotifier constructs an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Success records a confirmation message.
func (n *Notifier) Success(message string) {
	n.push(Notification{Level: LevelSuccess, Message: message})
}

// Failure records err with its human readable cause.
func (n *Notifier) Failure(err error) {
	note := Notification{Level: LevelError, Tier: TierRemote, Message: err.Error()}
	var pe *Error
	if errors.As(err, &pe) {
		note.Tier = pe.Tier
		note.Message = pe.Message
	}
	n.push(note)
}

// Drain returns and clears the pending notifications.
func (n *Notifier) Drain() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	return out
}

func (n *Notifier) push(note Notification) {
	note.At = time.Now()
	n.mu.Lock()
	n.items = append(n.items, note)
	n.mu.Unlock()
}
