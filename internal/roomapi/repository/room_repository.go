package repository

import (
	"context"
	"errors"
	"fmt"

	"web_chat_service/internal/roomapi/domain"

	"gorm.io/gorm"
)

// RoomRepository persistence for room metadata and favorites
type RoomRepository interface {
	AutoMigrate() error
	Create(ctx context.Context, room *domain.Room) error
	CountByUser(ctx context.Context, userID string) (int64, error)
	FindByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error)
	FindByID(ctx context.Context, id string) (*domain.Room, error)
	Delete(ctx context.Context, id string) error

	AddFavorite(ctx context.Context, favorite *domain.FavoriteRoom) error
	DeleteFavorite(ctx context.Context, userID, favoriteID string) error
	FindFavorites(ctx context.Context, userID string, limit, offset int) ([]domain.FavoriteWithRoom, error)
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository create a RoomRepository
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Room{}, &domain.FavoriteRoom{})
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *roomRepository) FindByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Delete removes the room row and every favorite that points at it.
func (r *roomRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&domain.FavoriteRoom{}).Error; err != nil {
			return fmt.Errorf("delete favorites of room %s: %w", id, err)
		}
		if err := tx.Delete(&domain.Room{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete room %s: %w", id, err)
		}
		return nil
	})
}

func (r *roomRepository) AddFavorite(ctx context.Context, favorite *domain.FavoriteRoom) error {
	return r.db.WithContext(ctx).Create(favorite).Error
}

func (r *roomRepository) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", favoriteID, userID).
		Delete(&domain.FavoriteRoom{}).Error
}

func (r *roomRepository) FindFavorites(ctx context.Context, userID string, limit, offset int) ([]domain.FavoriteWithRoom, error) {
	var favorites []domain.FavoriteWithRoom
	err := r.db.WithContext(ctx).
		Table("favorite_rooms").
		Select("favorite_rooms.id, favorite_rooms.room_id, favorite_rooms.created_at, rooms.name").
		Joins("LEFT JOIN rooms ON rooms.id = favorite_rooms.room_id").
		Where("favorite_rooms.user_id = ?", userID).
		Order("favorite_rooms.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&favorites).Error
	return favorites, err
}
