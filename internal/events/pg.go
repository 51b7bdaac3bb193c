package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events in the domain_events table.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) Insert(ctx context.Context, topic string, aggregateID uuid.UUID, payload json.RawMessage) (Event, error) {
	if s == nil || s.Pool == nil {
		return Event{}, errors.New("events: pg store not configured")
	}
	ev := Event{
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
	}
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO domain_events (topic, aggregate_id, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id, occurred_at`,
		topic, aggregateID, payload,
	).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
