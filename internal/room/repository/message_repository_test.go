package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"web_chat_service/internal/room/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) MessageRepository {
	t.Helper()

	repo, err := NewSQLiteMessageRepository(filepath.Join(t.TempDir(), "room.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestMessageRepository_Migrate(t *testing.T) {
	repo := newTestRepo(t)

	// running migrations twice must be a no-op
	require.NoError(t, repo.Migrate(context.Background()))

	messages, err := repo.RecentPage(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestMessageRepository_InsertAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	msg, err := repo.Insert(ctx, "user-1", domain.MessageText, "hello")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, domain.MessageText, msg.Type)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "user-1", msg.UserID)
	assert.False(t, time.Time(msg.CreatedAt).Before(before.Truncate(time.Millisecond)))
}

func TestMessageRepository_InsertRejectsUnknownType(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Insert(context.Background(), "user-1", domain.MessageType("video"), "x")
	assert.Error(t, err)
}

func TestMessageRepository_RecentPageNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var inserted []domain.Message
	for _, content := range []string{"one", "two", "three"} {
		msg, err := repo.Insert(ctx, "user-1", domain.MessageText, content)
		require.NoError(t, err)
		inserted = append(inserted, msg)
	}

	page, err := repo.RecentPage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, page, 3)

	// newest first, with insertion order preserved even when rows share a
	// millisecond timestamp
	assert.Equal(t, inserted[2].ID, page[0].ID)
	assert.Equal(t, inserted[1].ID, page[1].ID)
	assert.Equal(t, inserted[0].ID, page[2].ID)
}

func TestMessageRepository_RecentPageHonorsLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Insert(ctx, "user-1", domain.MessageText, "msg")
		require.NoError(t, err)
	}

	page, err := repo.RecentPage(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, page, 3)
}

func TestMessageRepository_PageBeforeWalksWholeLog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	total := 7
	limit := 3
	for i := 0; i < total; i++ {
		_, err := repo.Insert(ctx, "user-1", domain.MessageText, "msg")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct createdAt per row
	}

	seen := map[string]bool{}
	page, err := repo.RecentPage(ctx, limit)
	require.NoError(t, err)

	for len(page) > 0 {
		for _, msg := range page {
			assert.False(t, seen[msg.ID], "message %s paged twice", msg.ID)
			seen[msg.ID] = true
		}
		if len(page) < limit {
			break
		}
		oldest := page[len(page)-1]
		page, err = repo.PageBefore(ctx, time.Time(oldest.CreatedAt), limit)
		require.NoError(t, err)
	}

	assert.Len(t, seen, total)
}

func TestMessageRepository_PageBeforeExcludesCursorRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Insert(ctx, "user-1", domain.MessageText, "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := repo.Insert(ctx, "user-1", domain.MessageText, "second")
	require.NoError(t, err)

	page, err := repo.PageBefore(ctx, time.Time(second.CreatedAt), 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestMessageRepository_Wipe(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, "user-1", domain.MessageText, "doomed")
	require.NoError(t, err)

	require.NoError(t, repo.Wipe(ctx))

	page, err := repo.RecentPage(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}
