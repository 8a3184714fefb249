package domain

import "time"

// RoomType visibility of a room
type RoomType string

const (
	// RoomPrivate only reachable by its owner's shared links
	RoomPrivate RoomType = "private"
	// RoomPublic listed publicly
	RoomPublic RoomType = "public"
)

// Valid reports whether the type is an accepted room type.
func (t RoomType) Valid() bool {
	return t == RoomPrivate || t == RoomPublic
}

// Room metadata record; the live chat state lives with the room coordinator,
// keyed by this id.
type Room struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:16;not null" json:"name"`
	Type      RoomType  `gorm:"size:16;not null" json:"type"`
	UserID    string    `gorm:"index;not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// FavoriteRoom one user's bookmark of a room
type FavoriteRoom struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	RoomID    string    `gorm:"index;not null" json:"roomId"`
	UserID    string    `gorm:"index;not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// FavoriteWithRoom favorite joined with the room it points at; Name is empty
// when the room has been deleted out from under the favorite.
type FavoriteWithRoom struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRoomReq payload for creating a room
type CreateRoomReq struct {
	Name string   `json:"name"`
	Type RoomType `json:"type"`
}

// UploadTarget one presigned upload slot for an image message
type UploadTarget struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
