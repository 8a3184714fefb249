package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"web_chat_service/internal/room/domain"
	"web_chat_service/pkg/database"

	"github.com/go-redis/redis/v8"
)

// AttachmentRepository is the durable per-connection side channel. Each live
// connection carries a small serialized Session so a restarted coordinator can
// rebuild its registry without the in-memory state having survived.
type AttachmentRepository interface {
	Save(ctx context.Context, roomID, connID string, session domain.Session) error
	// Find returns nil when the connection never had an attachment.
	Find(ctx context.Context, roomID, connID string) (*domain.Session, error)
	Delete(ctx context.Context, roomID, connID string) error
	// WipeRoom removes every attachment for the room; part of room deletion.
	WipeRoom(ctx context.Context, roomID string) error
}

type redisAttachmentRepository struct {
	client *redis.Client
	store  database.RedisRepository[domain.Session]
}

// NewRedisAttachmentRepository create an AttachmentRepository on redis
func NewRedisAttachmentRepository(client *redis.Client) AttachmentRepository {
	return &redisAttachmentRepository{
		client: client,
		store:  database.NewRedisRepository[domain.Session](client),
	}
}

func attachmentKey(roomID, connID string) string {
	return fmt.Sprintf("room:%s:conn:%s", roomID, connID)
}

func (r *redisAttachmentRepository) Save(ctx context.Context, roomID, connID string, session domain.Session) error {
	if strings.TrimSpace(session.UserID) == "" {
		return fmt.Errorf("attachment requires a user id")
	}
	// No TTL: the attachment lives exactly as long as the connection and is
	// deleted on disconnect or room wipe.
	return r.store.Set(ctx, attachmentKey(roomID, connID), session, 0)
}

func (r *redisAttachmentRepository) Find(ctx context.Context, roomID, connID string) (*domain.Session, error) {
	session, err := r.store.Get(ctx, attachmentKey(roomID, connID))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *redisAttachmentRepository) Delete(ctx context.Context, roomID, connID string) error {
	return r.store.Del(ctx, attachmentKey(roomID, connID))
}

func (r *redisAttachmentRepository) WipeRoom(ctx context.Context, roomID string) error {
	keys, err := r.store.Keys(ctx, attachmentKey(roomID, "*"))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
