package graphstore

import (
	"context"
	"log/slog"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient, dismissible message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
	Err     error
}

// Notifier is the side-channel through which asynchronous failures reach the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo

	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	case LevelInfo:
	}

	attrs := []any{"title", n.Title}
	if n.Err != nil {
		attrs = append(attrs, "error", n.Err)
	}

	l.Logger.Log(ctx, level, n.Message, attrs...)
}
