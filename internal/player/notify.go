package player

import (
	"time"

	"github.com/desertthunder/aerox/internal/shared"
)

// Level of a [Notification].
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a transient, user-visible message.
type Notification struct {
	ID      string
	Level   Level
	Title   string
	Message string
	Err     error
	At      time.Time
}

// Notifier delivers transient notifications to whatever renders them.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// ChannelNotifier buffers notifications on a channel. When the buffer is full new notifications are
// dropped so callers never block.
type ChannelNotifier struct {
	ch chan Notification
}

// NewChannelNotifier creates a [ChannelNotifier] holding up to size pending notifications.
func NewChannelNotifier(size int) *ChannelNotifier {
	if size <= 0 {
		size = 8
	}
	return &ChannelNotifier{ch: make(chan Notification, size)}
}

// Notify queues msg, dropping it when the buffer is full.
func (n *ChannelNotifier) Notify(msg Notification) {
	select {
	case n.ch <- msg:
	default:
	}
}

// C returns the receive side.
func (n *ChannelNotifier) C() <-chan Notification {
	return n.ch
}

func newNotification(level Level, title, message string, err error) Notification {
	return Notification{
		ID:      shared.GenerateID(),
		Level:   level,
		Title:   title,
		Message: message,
		Err:     err,
		At:      time.Now(),
	}
}

func playbackError(err error) Notification {
	return newNotification(LevelError, "Playback Error", "Make sure Spotify is active on a device", err)
}

func skipError(err error) Notification {
	return newNotification(LevelError, "Nothing Up Next", "No next track in the current context and the queue is empty", err)
}

func previousError(err error) Notification {
	return newNotification(LevelError, "Playback Error", "Could not go back to the previous track", err)
}

func queuedNotice(track string) Notification {
	return newNotification(LevelInfo, "Playing From Queue", track, nil)
}
