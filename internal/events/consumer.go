package events

import (
	"context"
	"log/slog"
)

// Handler processes one event.
type Handler func(ctx context.Context, ev Event) error

// Run consumes events from q and passes each to h until ctx is cancelled.
// Handler errors are logged and do not stop the loop.
func Run(ctx context.Context, q Queue, h Handler) error {
	ch, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	slog.Info("event consumer started")
	for ev := range ch {
		if err := h(ctx, ev); err != nil {
			slog.Error("event handler failed",
				"event_id", ev.ID,
				"type", ev.Type,
				"course_id", ev.CourseID,
				"error", err,
			)
		}
	}
	slog.Info("event consumer stopped")
	return nil
}

// LogHandler records each event at info level.
func LogHandler(_ context.Context, ev Event) error {
	slog.Info("roster event",
		"event_id", ev.ID,
		"type", ev.Type,
		"course_id", ev.CourseID,
		"user_id", ev.UserID,
		"count", ev.Count,
	)
	return nil
}
