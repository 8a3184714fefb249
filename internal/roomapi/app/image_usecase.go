package app

import (
	"context"
	"fmt"
	"time"

	"web_chat_service/internal/roomapi/domain"
	errprocess "web_chat_service/pkg/err"

	"github.com/google/uuid"
)

// MaxUploadKeys upper bound on presigned upload URLs per request
const MaxUploadKeys = 4

// ObjectStorage the subset of the object store used for image uploads
type ObjectStorage interface {
	PresignPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ImageUseCase presigned URL issuance for chat image uploads
type ImageUseCase interface {
	UploadURLs(ctx context.Context, roomID string, count int) ([]domain.UploadTarget, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

type imageUseCase struct {
	storage ObjectStorage
	expiry  time.Duration
}

// NewImageUseCase create a new ImageUseCase
func NewImageUseCase(storage ObjectStorage, expiry time.Duration) ImageUseCase {
	return &imageUseCase{
		storage: storage,
		expiry:  expiry,
	}
}

// UploadURLs mints at most MaxUploadKeys presigned PUT URLs. Object keys
// are namespaced by room so a room wipe can locate its images later.
func (i *imageUseCase) UploadURLs(ctx context.Context, roomID string, count int) ([]domain.UploadTarget, error) {
	if count < 1 || count > MaxUploadKeys {
		return nil, errprocess.Set(fmt.Sprintf("upload count must be 1-%d", MaxUploadKeys))
	}

	targets := make([]domain.UploadTarget, 0, count)
	for n := 0; n < count; n++ {
		key := fmt.Sprintf("%s/%s", roomID, uuid.New().String())
		url, err := i.storage.PresignPutURL(ctx, key, i.expiry)
		if err != nil {
			return nil, err
		}
		targets = append(targets, domain.UploadTarget{Key: key, URL: url})
	}
	return targets, nil
}

// DownloadURL mints a presigned GET URL for a stored image key.
func (i *imageUseCase) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errprocess.Set("image key is required")
	}
	return i.storage.PresignGetURL(ctx, key, i.expiry)
}
