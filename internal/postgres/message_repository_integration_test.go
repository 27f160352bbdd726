//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/chat"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	testPool, err = Connect(ctx, connStr, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	if err := Migrate(ctx, testPool, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to migrate: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testPool.Close()
	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
	}
	os.Exit(code)
}

func setupTestDB(t *testing.T) *MessageRepo {
	t.Helper()
	t.Cleanup(func() {
		if _, err := testPool.Exec(context.Background(), "TRUNCATE users, messages RESTART IDENTITY CASCADE"); err != nil {
			t.Logf("Failed to truncate tables: %v", err)
		}
	})
	return NewMessageRepo(testPool)
}

func TestMigrate_Idempotent(t *testing.T) {
	require.NoError(t, Migrate(context.Background(), testPool, zap.NewNop()))
}

func TestFindOrCreateUser(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	first, err := repo.FindOrCreateUser(ctx, "ayse", now)
	require.NoError(t, err)
	again, err := repo.FindOrCreateUser(ctx, "ayse", now.Add(time.Hour))
	require.NoError(t, err)
	other, err := repo.FindOrCreateUser(ctx, "mehmet", now)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.True(t, first.CreatedAt.Equal(again.CreatedAt))
	assert.NotEqual(t, first.ID, other.ID)
}

func TestSaveAndListMessages(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	user, err := repo.FindOrCreateUser(ctx, "ayse", base)
	require.NoError(t, err)

	for i, text := range []string{"first", "second", "third"} {
		msg := &chat.Message{
			UserID:    user.ID,
			Text:      text,
			Sentiment: "Positive",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.SaveMessage(ctx, msg))
		assert.NotZero(t, msg.ID)
	}

	msgs, err := repo.ListMessages(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "third", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "ayse", msgs[0].Nickname)
	assert.NoError(t, repo.Ping(ctx))
}

func TestServiceWithPostgres(t *testing.T) {
	repo := setupTestDB(t)
	svc := chat.NewService(repo, nil, nil, nil, nil)

	msg, err := svc.Post(context.Background(), "", "merhaba")
	require.NoError(t, err)
	assert.Equal(t, chat.AnonymousNickname, msg.Nickname)
	assert.Equal(t, chat.SentimentUnknown, msg.Sentiment)

	msgs, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
}
