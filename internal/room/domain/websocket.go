package domain

import "encoding/json"

// Client frame types.
const (
	// FramePing keepalive, answered by the transport echo before dispatch
	FramePing = "ping"
	// FrameJoin first meaningful frame after a connection attaches
	FrameJoin = "join"
	// FrameSend persist and broadcast one message
	FrameSend = "send"
	// FrameLoadHistory request the page older than a cursor
	FrameLoadHistory = "loadHistory"
	// FrameUserStatus update presence detail
	FrameUserStatus = "userStatus"
)

// Server event types.
const (
	// EventPong keepalive answer
	EventPong = "pong"
	// EventRoomStats membership snapshot, sent to everyone
	EventRoomStats = "roomStats"
	// EventInitHistory most recent page, sent to the joiner only
	EventInitHistory = "initHistory"
	// EventHistory older page, sent to the requester only
	EventHistory = "history"
	// EventMessage one new message, sent to all but the sender
	EventMessage = "message"
)

// ClientFrame one inbound frame; Data stays raw until the type is known
type ClientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SendPayload data of a send frame
type SendPayload struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// LoadHistoryPayload data of a loadHistory frame
type LoadHistoryPayload struct {
	Before string `json:"before"`
}

// ServerEvent one outbound frame
type ServerEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
