package postgres

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/RMahshie/magnetometer/pkg/models"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var migrationsDir = filepath.Join("..", "..", "..", "migrations")

// setupDatabase starts a PostgreSQL container with the journal schema applied
func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("magnetometer_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, MigrateUp(db, migrationsDir))
	return db
}

func TestMigrateUp_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupDatabase(t)

	version, dirty, err := MigrateVersion(db, migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// already at the latest version
	require.NoError(t, MigrateUp(db, migrationsDir))

	for _, table := range []string{"sensor_sessions", "sensor_session_events"} {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}

func TestMigrateUp_MissingDirectory(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, MigrateUp(db, filepath.Join(t.TempDir(), "missing")))
}

func TestSessionJournal_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupDatabase(t)
	repo := NewPostgresSessionRepository(db)
	ctx := context.Background()

	id := uuid.New()
	started := time.Now().UTC().Truncate(time.Millisecond)

	err := repo.CreateSession(ctx, &models.SessionRecord{
		ID:        id.String(),
		Frequency: 5,
		StartedAt: started,
	})
	require.NoError(t, err)

	msg := "failed to get magnetometer data: glitch"
	for i, ev := range []*models.SessionEventRecord{
		{SessionID: id.String(), Kind: "started", FromState: "idle", ToState: "active"},
		{SessionID: id.String(), Kind: "sample_error", FromState: "active", ToState: "active", ErrorMsg: &msg},
		{SessionID: id.String(), Kind: "suspended", FromState: "active", ToState: "suspended"},
		{SessionID: id.String(), Kind: "resumed", FromState: "suspended", ToState: "active"},
		{SessionID: id.String(), Kind: "stopped", FromState: "active", ToState: "idle"},
	} {
		ev.CreatedAt = started.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.RecordEvent(ctx, ev))
		assert.NotZero(t, ev.ID)
	}

	ended := started.Add(10 * time.Second)
	require.NoError(t, repo.EndSession(ctx, id, ended, 42))

	session, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), session.ID)
	assert.Equal(t, 5.0, session.Frequency)
	assert.Equal(t, int64(42), session.Readings)
	require.NotNil(t, session.EndedAt)
	assert.True(t, ended.Equal(*session.EndedAt))

	events, err := repo.ListEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "started", events[0].Kind)
	assert.Nil(t, events[0].ErrorMsg)
	require.NotNil(t, events[1].ErrorMsg)
	assert.Equal(t, msg, *events[1].ErrorMsg)
	assert.Equal(t, "stopped", events[4].Kind)
}

func TestGetSession_NotFound_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupDatabase(t)
	repo := NewPostgresSessionRepository(db)

	_, err := repo.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
