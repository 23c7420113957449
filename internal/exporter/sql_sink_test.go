package exporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func sampleEvents() []Event {
	return []Event{
		{Kind: "new", ObjectType: "host", GlobalID: "host-1", Values: map[string]interface{}{"ip": "10.0.0.1"}, At: time.Now().UTC()},
		{Kind: "changed", ObjectType: "host", GlobalID: "host-1", Values: map[string]interface{}{"ip": "10.0.0.2"}, At: time.Now().UTC()},
	}
}

func TestSQLiteSinkMigratesAndWrites(t *testing.T) {
	sink, err := NewSQLiteSink(":memory:")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), sampleEvents()))

	var count int
	require.NoError(t, sink.db.QueryRow("SELECT COUNT(*) FROM exported_events").Scan(&count))
	assert.Equal(t, 2, count)

	var globalID, valuesJSON string
	require.NoError(t, sink.db.QueryRow("SELECT global_id, values_json FROM exported_events WHERE kind = 'new'").Scan(&globalID, &valuesJSON))
	assert.Equal(t, "host-1", globalID)
	assert.Contains(t, valuesJSON, "10.0.0.1")
}

func TestSQLiteSinkWriteEmptyBatchIsNoop(t *testing.T) {
	sink, err := NewSQLiteSink(":memory:")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), nil))

	var count int
	require.NoError(t, sink.db.QueryRow("SELECT COUNT(*) FROM exported_events").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestPostgresSinkMigratesAndWrites(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("insalata"),
		postgres.WithUsername("insalata"),
		postgres.WithPassword("insalata"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %s", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("terminate postgres container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sink, err := NewPostgresSink(ctx, dsn)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(ctx, sampleEvents()))

	var count int
	require.NoError(t, sink.pool.QueryRow(ctx, "SELECT COUNT(*) FROM exported_events").Scan(&count))
	assert.Equal(t, 2, count)
}
