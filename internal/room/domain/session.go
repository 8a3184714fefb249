package domain

// UserActivity client-reported activity state
type UserActivity string

const (
	// UserActive client tab has recent input
	UserActive UserActivity = "active"
	// UserIdle client tab has been quiet
	UserIdle UserActivity = "idle"
)

// ScreenLock client-reported screen state
type ScreenLock string

const (
	// ScreenLocked device screen is locked
	ScreenLocked ScreenLock = "locked"
	// ScreenUnlocked device screen is unlocked
	ScreenUnlocked ScreenLock = "unlocked"
)

// Status optional presence detail reported by a userStatus frame
type Status struct {
	User   UserActivity `json:"user,omitempty"`
	Screen ScreenLock   `json:"screen,omitempty"`
}

// Session is the per-connection record of which user is attached. It doubles
// as the durable connection attachment used to rebuild the registry after a
// coordinator restart, so it must stay small and JSON-serializable.
type Session struct {
	UserID string  `json:"id"`
	Status *Status `json:"status,omitempty"`
}

// RoomStats membership snapshot broadcast to every live connection
type RoomStats struct {
	Users []Session `json:"users"`
}
