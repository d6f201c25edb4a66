package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event is one persisted log record.
type Event struct {
	Timestamp time.Time
	Level     int
	Message   string
	Attrs     string
}

// EventSink stores events, usually the run database.
type EventSink interface {
	SaveEvent(ctx context.Context, e Event) error
}

// EventHandler writes records at or above minLevel to a sink. Attributes added through
// WithAttrs (for example run_id and scenario) are stored alongside the record's own.
type EventHandler struct {
	sink     EventSink
	minLevel slog.Level
	attrs    []slog.Attr
}

func NewEventHandler(sink EventSink, minLevel slog.Level) *EventHandler {
	return &EventHandler{sink: sink, minLevel: minLevel}
}

func (h *EventHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *EventHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.minLevel {
		return nil
	}
	attrs := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	encoded := ""
	if len(attrs) > 0 {
		b, err := json.Marshal(attrs)
		if err != nil {
			return err
		}
		encoded = string(b)
	}
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return h.sink.SaveEvent(ctx, Event{
		Timestamp: ts,
		Level:     int(r.Level),
		Message:   r.Message,
		Attrs:     encoded,
	})
}

func (h *EventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

// Groups are flattened.
func (h *EventHandler) WithGroup(string) slog.Handler {
	return h
}
