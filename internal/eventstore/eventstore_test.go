// internal/eventstore/eventstore_test.go
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libracirc/internal/storage"
)

type testEvent struct {
	Message string `json:"message"`
}

func setupStore(t testing.TB) *EventStore {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewEventStore(db)
}

func newEvent(t testing.TB, msg string) Event {
	t.Helper()
	data, err := json.Marshal(testEvent{Message: msg})
	require.NoError(t, err)
	return Event{EventType: "TestEvent", EventData: data}
}

func TestAppendAndLoad(t *testing.T) {
	es := setupStore(t)
	ctx := context.Background()
	id := uuid.New()

	first := newEvent(t, "first")
	first.Metadata = map[string]interface{}{"request_id": "abc"}
	require.NoError(t, es.AppendEvents(ctx, id, "loan", 0, []Event{first, newEvent(t, "second")}))
	require.NoError(t, es.AppendEvents(ctx, id, "loan", 2, []Event{newEvent(t, "third")}))

	events, err := es.LoadEvents(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i+1, e.Version)
		assert.Equal(t, id, e.AggregateID)
		assert.Equal(t, "loan", e.AggregateType)
	}
	assert.JSONEq(t, `{"message":"first"}`, string(events[0].EventData))
	assert.Equal(t, "abc", events[0].Metadata["request_id"])
	assert.Nil(t, events[1].Metadata)

	version, err := es.GetCurrentVersion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestLoadEvents_Range(t *testing.T) {
	es := setupStore(t)
	ctx := context.Background()
	id := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, es.AppendEvents(ctx, id, "loan", i, []Event{newEvent(t, fmt.Sprintf("event %d", i))}))
	}

	events, err := es.LoadEvents(ctx, id, 2, 4)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Version)
	assert.Equal(t, 4, events[2].Version)
}

func TestAppendEvents_Conflict(t *testing.T) {
	es := setupStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, es.AppendEvents(ctx, id, "loan", 0, []Event{newEvent(t, "first")}))

	err := es.AppendEvents(ctx, id, "loan", 0, []Event{newEvent(t, "stale")})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	err = es.AppendEvents(ctx, id, "loan", -1, []Event{newEvent(t, "bad")})
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestGetCurrentVersion_UnknownAggregate(t *testing.T) {
	es := setupStore(t)

	version, err := es.GetCurrentVersion(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, version)

	events, err := es.LoadEvents(context.Background(), uuid.New(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func BenchmarkAppendEvents(b *testing.B) {
	es := setupStore(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		events := []Event{newEvent(b, fmt.Sprintf("event %d", i))}
		b.StartTimer()

		if err := es.AppendEvents(ctx, uuid.New(), "loan", 0, events); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}
