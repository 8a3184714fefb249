package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"web_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestImageUseCase_UploadURLs(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()
	expiry := 15 * time.Minute

	t.Run("mints one target per requested key", func(t *testing.T) {
		mockStorage := new(MockObjectStorage)
		mockStorage.On("PresignPutURL", ctx, mock.AnythingOfType("string"), expiry).
			Return("https://minio/upload", nil)

		uc := NewImageUseCase(mockStorage, expiry)
		targets, err := uc.UploadURLs(ctx, "room-1", 3)
		require.NoError(t, err)
		require.Len(t, targets, 3)

		seen := map[string]bool{}
		for _, target := range targets {
			assert.True(t, strings.HasPrefix(target.Key, "room-1/"))
			assert.Equal(t, "https://minio/upload", target.URL)
			assert.False(t, seen[target.Key], "duplicate key %s", target.Key)
			seen[target.Key] = true
		}
		mockStorage.AssertNumberOfCalls(t, "PresignPutURL", 3)
	})

	t.Run("rejects counts outside 1-4", func(t *testing.T) {
		uc := NewImageUseCase(new(MockObjectStorage), expiry)

		_, err := uc.UploadURLs(ctx, "room-1", 0)
		assert.Error(t, err)
		_, err = uc.UploadURLs(ctx, "room-1", MaxUploadKeys+1)
		assert.Error(t, err)
	})
}

func TestImageUseCase_DownloadURL(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()
	expiry := 15 * time.Minute

	mockStorage := new(MockObjectStorage)
	mockStorage.On("PresignGetURL", ctx, "room-1/key", expiry).
		Return("https://minio/download", nil)

	uc := NewImageUseCase(mockStorage, expiry)

	url, err := uc.DownloadURL(ctx, "room-1/key")
	require.NoError(t, err)
	assert.Equal(t, "https://minio/download", url)

	_, err = uc.DownloadURL(ctx, "")
	assert.Error(t, err)
}
