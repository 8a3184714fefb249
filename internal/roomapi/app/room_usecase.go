package app

import (
	"context"
	"errors"
	"fmt"

	"web_chat_service/internal/roomapi/domain"
	"web_chat_service/internal/roomapi/repository"
	errprocess "web_chat_service/pkg/err"
	"web_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRoomLimitReached one user can only own a fixed number of rooms
var ErrRoomLimitReached = errors.New("Room limit reached")

// ErrRoomNotFound room does not exist or is not visible to the caller
var ErrRoomNotFound = errors.New("room not found")

// RoomUseCase application services for room management
type RoomUseCase interface {
	CreateRoom(ctx context.Context, userID, name string, roomType domain.RoomType) (*domain.Room, error)
	ListRooms(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error)
	RoomInfo(ctx context.Context, id string) (*domain.Room, error)
	DeleteRoom(ctx context.Context, userID, roomID string) error

	AddFavorite(ctx context.Context, userID, roomID string) (*domain.FavoriteRoom, error)
	DeleteFavorite(ctx context.Context, userID, favoriteID string) error
	ListFavorites(ctx context.Context, userID string, limit, offset int) ([]domain.FavoriteWithRoom, error)
}

type roomUseCase struct {
	roomRepo    repository.RoomRepository
	coordinator repository.CoordinatorClient
	roomLimit   int64
}

// NewRoomUseCase create a new RoomUseCase
func NewRoomUseCase(roomRepo repository.RoomRepository,
	coordinator repository.CoordinatorClient,
	roomLimit int64,
) RoomUseCase {
	return &roomUseCase{
		roomRepo:    roomRepo,
		coordinator: coordinator,
		roomLimit:   roomLimit,
	}
}

// CreateRoom
func (r *roomUseCase) CreateRoom(ctx context.Context, userID, name string, roomType domain.RoomType) (*domain.Room, error) {
	if name == "" || len(name) > 16 {
		return nil, errprocess.Set("room name must be 1-16 characters")
	}
	if !roomType.Valid() {
		return nil, errprocess.Set(fmt.Sprintf("unknown room type %q", roomType))
	}

	count, err := r.roomRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= r.roomLimit {
		logger.Log.Info("room limit reached", zap.String("user_id", userID), zap.Int64("count", count))
		return nil, ErrRoomLimitReached
	}

	room := domain.Room{
		ID:     uuid.New().String(),
		Name:   name,
		Type:   roomType,
		UserID: userID,
	}
	if err := r.roomRepo.Create(ctx, &room); err != nil {
		return nil, err
	}

	logger.Log.Info("room created", zap.String("room_id", room.ID), zap.String("user_id", userID))
	return &room, nil
}

// ListRooms
func (r *roomUseCase) ListRooms(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error) {
	return r.roomRepo.FindByUser(ctx, userID, limit, offset)
}

// RoomInfo look up a single room by id
func (r *roomUseCase) RoomInfo(ctx context.Context, id string) (*domain.Room, error) {
	room, err := r.roomRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// DeleteRoom removes the room metadata and asks the coordinator to drop
// its message log. Only the owner may delete a room.
func (r *roomUseCase) DeleteRoom(ctx context.Context, userID, roomID string) error {
	room, err := r.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil || room.UserID != userID {
		return ErrRoomNotFound
	}

	// Storage first: an unreachable coordinator must not block the delete,
	// so a failed wipe is logged and the orphaned log is left behind.
	if err := r.coordinator.WipeRoom(ctx, roomID); err != nil {
		logger.Log.Error("wipe room storage failed", zap.String("room_id", roomID), zap.Error(err))
	}

	if err := r.roomRepo.Delete(ctx, roomID); err != nil {
		return err
	}

	logger.Log.Info("room deleted", zap.String("room_id", roomID), zap.String("user_id", userID))
	return nil
}

// AddFavorite
func (r *roomUseCase) AddFavorite(ctx context.Context, userID, roomID string) (*domain.FavoriteRoom, error) {
	room, err := r.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	favorite := domain.FavoriteRoom{
		ID:     uuid.New().String(),
		RoomID: roomID,
		UserID: userID,
	}
	if err := r.roomRepo.AddFavorite(ctx, &favorite); err != nil {
		return nil, err
	}
	return &favorite, nil
}

// DeleteFavorite
func (r *roomUseCase) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	return r.roomRepo.DeleteFavorite(ctx, userID, favoriteID)
}

// ListFavorites
func (r *roomUseCase) ListFavorites(ctx context.Context, userID string, limit, offset int) ([]domain.FavoriteWithRoom, error) {
	return r.roomRepo.FindFavorites(ctx, userID, limit, offset)
}
