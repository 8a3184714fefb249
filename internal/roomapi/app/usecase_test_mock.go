package app

import (
	"context"
	"time"

	"web_chat_service/internal/roomapi/domain"

	"github.com/stretchr/testify/mock"
)

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// AutoMigrate mock migrate
func (m *MockRoomRepository) AutoMigrate() error {
	args := m.Called()
	return args.Error(0)
}

// Create mock create room
func (m *MockRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

// CountByUser mock count rooms by user
func (m *MockRoomRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// FindByUser mock list rooms by user
func (m *MockRoomRepository) FindByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID mock find room by id
func (m *MockRoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete mock delete room
func (m *MockRoomRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// AddFavorite mock add favorite
func (m *MockRoomRepository) AddFavorite(ctx context.Context, favorite *domain.FavoriteRoom) error {
	args := m.Called(ctx, favorite)
	return args.Error(0)
}

// DeleteFavorite mock delete favorite
func (m *MockRoomRepository) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	args := m.Called(ctx, userID, favoriteID)
	return args.Error(0)
}

// FindFavorites mock list favorites
func (m *MockRoomRepository) FindFavorites(ctx context.Context, userID string, limit, offset int) ([]domain.FavoriteWithRoom, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.FavoriteWithRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCoordinatorClient Mock CoordinatorClient
type MockCoordinatorClient struct {
	mock.Mock
}

// WipeRoom mock coordinator wipe
func (m *MockCoordinatorClient) WipeRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockObjectStorage Mock ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

// PresignPutURL mock presign upload url
func (m *MockObjectStorage) PresignPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

// PresignGetURL mock presign download url
func (m *MockObjectStorage) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}
