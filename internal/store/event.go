package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dnv-opensource/WindFarmer-automation/internal/logging"
)

// SaveEvent makes the store a logging.EventSink.
func (s *Store) SaveEvent(ctx context.Context, e logging.Event) error {
	_, err := s.write.ExecContext(ctx, `
		INSERT INTO event (timestamp, level, message, attrs)
		VALUES (?, ?, ?, ?)`,
		formatTime(e.Timestamp), e.Level, e.Message, e.Attrs)
	if err != nil {
		return fmt.Errorf("saving event: %w", err)
	}
	return nil
}

// ListEvents pages through events at or above minLvl, newest first.
func (s *Store) ListEvents(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]logging.Event, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	rows, err := s.read.QueryContext(ctx, `
		SELECT timestamp, level, message, attrs
		FROM event
		WHERE level >= ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`,
		int(minLvl), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer rows.Close()

	var events []logging.Event
	for rows.Next() {
		var e logging.Event
		var ts string
		if err := rows.Scan(&ts, &e.Level, &e.Message, &e.Attrs); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading event rows: %w", err)
	}
	return events, nil
}

// PurgeEvents keeps only the newest keep events.
func (s *Store) PurgeEvents(ctx context.Context, keep int) error {
	_, err := s.write.ExecContext(ctx, `
		DELETE FROM event WHERE id <= (SELECT id FROM event ORDER BY id DESC LIMIT 1 OFFSET ?)`, keep)
	if err != nil {
		return fmt.Errorf("purging events: %w", err)
	}
	return nil
}

var _ logging.EventSink = (*Store)(nil)
