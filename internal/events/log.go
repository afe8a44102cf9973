package events

import (
	"context"
	"log/slog"
)

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	log *slog.Logger
}

func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log.With("component", "events")}
}

func (e *LogEmitter) Emit(ctx context.Context, ev *Event) error {
	e.log.InfoContext(ctx, "Event",
		"id", ev.ID,
		"type", ev.Type,
		"key", ev.Key,
		"success", ev.Success,
		"payload", ev.Payload,
	)
	return nil
}

func (e *LogEmitter) EmitBatch(ctx context.Context, evs []*Event) error {
	for _, ev := range evs {
		_ = e.Emit(ctx, ev)
	}
	return nil
}

func (e *LogEmitter) Close() error { return nil }
