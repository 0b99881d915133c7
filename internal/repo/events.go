package repo

import (
	"context"

	"github.com/noah-isme/backend-pos/internal/events"
)

// InsertEvent appends one row to the domain event log.
func (s *Store) InsertEvent(ctx context.Context, topic, aggregateID string, payload []byte) (events.DomainEvent, error) {
	const q = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id::text, occurred_at`
	ev := events.DomainEvent{Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := s.pool.QueryRow(ctx, q, topic, aggregateID, payload).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return events.DomainEvent{}, err
	}
	return ev, nil
}
