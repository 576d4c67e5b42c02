// internal/eventstore/eventstore.go

// Package eventstore is an append-only log of loan events with optimistic
// concurrency per aggregate.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"libracirc/internal/storage"
)

const tableEvents = "events"

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event is one stored domain event.
type Event struct {
	ID            int64                  `json:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	EventType     string                 `json:"event_type"`
	EventData     json.RawMessage        `json:"event_data"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
}

type eventRow struct {
	ID            int64     `db:"id"`
	AggregateID   uuid.UUID `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	EventData     []byte    `db:"event_data"`
	Metadata      []byte    `db:"metadata"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

// EventStore appends and loads events through a storage.DB.
type EventStore struct {
	db     *storage.DB
	tracer trace.Tracer
	now    func() time.Time
}

// NewEventStore creates an event store on db. The events table is created by storage.Open.
func NewEventStore(db *storage.DB) *EventStore {
	return &EventStore{
		db:     db,
		tracer: otel.Tracer("libracirc/eventstore"),
		now:    time.Now,
	}
}

// AppendEvents atomically appends events after expectedVersion. It fails with
// ErrConcurrencyConflict when another writer got there first.
func (es *EventStore) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	err := es.append(ctx, span, aggregateID, aggregateType, expectedVersion, events)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrConcurrencyConflict) {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
		} else {
			span.SetStatus(codes.Error, "append events")
		}
		return err
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

func (es *EventStore) append(ctx context.Context, span trace.Span, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	opts := &sql.TxOptions{}
	if es.db.IsPostgres() {
		opts.Isolation = sql.LevelSerializable
	}
	tx, err := es.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	versionQuery, args, err := es.versionQuery(aggregateID)
	if err != nil {
		return err
	}
	var currentVersion int
	if err := tx.GetContext(ctx, &currentVersion, versionQuery, args...); err != nil {
		return fmt.Errorf("query current version: %w", err)
	}
	if currentVersion != expectedVersion {
		span.SetAttributes(attribute.Int("actual.version", currentVersion))
		return ErrConcurrencyConflict
	}

	for i, event := range events {
		version := expectedVersion + i + 1

		var metadata any
		if len(event.Metadata) > 0 {
			raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata of event %d: %w", i, err)
			}
			metadata = string(raw)
		}

		insert := es.db.Dialect.Insert(tableEvents).Prepared(true).Rows(goqu.Record{
			"aggregate_id":   aggregateID.String(),
			"aggregate_type": aggregateType,
			"event_type":     event.EventType,
			"event_data":     string(event.EventData),
			"metadata":       metadata,
			"version":        version,
			"created_at":     es.now().UTC(),
		})

		eventID, err := es.insert(ctx, tx, insert)
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", eventID),
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	if err := tx.Commit(); err != nil {
		if storage.IsUniqueViolation(err) {
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insert runs the statement and returns the new event id. sqlite has no
// RETURNING support in goqu, so the id comes from LastInsertId there.
func (es *EventStore) insert(ctx context.Context, tx execer, insert *goqu.InsertDataset) (int64, error) {
	if es.db.IsPostgres() {
		query, args, err := insert.Returning("id").ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		var id int64
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
		return id, err
	}

	query, args, err := insert.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LoadEvents returns the events of an aggregate from fromVersion up to
// toVersion, or to the end when toVersion is 0.
func (es *EventStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	where := []exp.Expression{
		goqu.C("aggregate_id").Eq(aggregateID.String()),
		goqu.C("version").Gte(fromVersion),
	}
	if toVersion > 0 {
		where = append(where, goqu.C("version").Lte(toVersion))
	}

	query, args, err := es.db.Dialect.From(tableEvents).Prepared(true).
		Select("id", "aggregate_id", "aggregate_type", "event_type", "event_data", "metadata", "version", "created_at").
		Where(where...).
		Order(goqu.C("version").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build events query: %w", err)
	}

	var rows []eventRow
	if err := es.db.SelectContext(ctx, &rows, query, args...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load events")
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := Event{
			ID:            row.ID,
			AggregateID:   row.AggregateID,
			AggregateType: row.AggregateType,
			EventType:     row.EventType,
			EventData:     json.RawMessage(row.EventData),
			Version:       row.Version,
			CreatedAt:     row.CreatedAt,
		}
		if len(row.Metadata) > 0 {
			if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(row.Metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of event %d: %w", row.ID, err)
			}
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version of an aggregate, 0 when it has no events.
func (es *EventStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.get_version",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	query, args, err := es.versionQuery(aggregateID)
	if err != nil {
		return 0, err
	}
	var version int
	if err := es.db.GetContext(ctx, &version, query, args...); err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

func (es *EventStore) versionQuery(aggregateID uuid.UUID) (string, []any, error) {
	query, args, err := es.db.Dialect.From(tableEvents).Prepared(true).
		Select(goqu.COALESCE(goqu.MAX("version"), 0)).
		Where(goqu.C("aggregate_id").Eq(aggregateID.String())).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build version query: %w", err)
	}
	return query, args, nil
}
