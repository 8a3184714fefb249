package domain

import (
	"fmt"
	"strings"
	"time"
)

// MessageType definition chat message kind
type MessageType string

const (
	// MessageText plain text body
	MessageText MessageType = "text"
	// MessageImage content is a JSON array of opaque storage keys
	MessageImage MessageType = "image"
)

// Valid reports whether the type is one the log store accepts.
func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageImage
}

// isoMillis is the wire format for timestamps, millisecond ISO-8601 in UTC.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Timestamp wraps time.Time so messages serialize createdAt as an ISO-8601
// string with millisecond resolution.
type Timestamp time.Time

// NewTimestamp truncates to millisecond resolution in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Truncate(time.Millisecond))
}

// Time returns the underlying time value.
func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}

// UnixMilli returns the stored millisecond epoch value.
func (ts Timestamp) UnixMilli() int64 {
	return time.Time(ts).UnixMilli()
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(ts).UTC().Format(isoMillis) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := ParseCursor(s)
	if err != nil {
		return err
	}
	*ts = NewTimestamp(t)
	return nil
}

// ParseCursor parses an ISO-8601 timestamp received from a client.
func ParseCursor(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cursor %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Message is one durable chat log row. Rows are immutable once written and
// only deleted en masse when the room itself is deleted.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	UserID    string      `json:"userId"`
	CreatedAt Timestamp   `json:"createdAt"`
}
