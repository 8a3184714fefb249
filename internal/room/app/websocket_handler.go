package app

import (
	"bytes"
	"context"

	"web_chat_service/pkg/logger"
	"web_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Keepalive echo pair. Clients ping every 45-60 seconds; the echo is answered
// here in the read loop so keepalive traffic never consumes the coordinator's
// serialized processing capacity.
var (
	pingFrame = []byte(`{"type":"ping"}`)
	pongFrame = []byte(`{"type":"pong"}`)
)

// RoomWebsocketHandler owns the websocket side of a room connection: accept,
// the read loop, and the single disconnect path for close and error alike.
type RoomWebsocketHandler struct {
	hub        *Hub
	sendBuffer int
}

// NewRoomWebsocketHandler create RoomWebsocketHandler
func NewRoomWebsocketHandler(hub *Hub, sendBuffer int) *RoomWebsocketHandler {
	return &RoomWebsocketHandler{
		hub:        hub,
		sendBuffer: sendBuffer,
	}
}

// HandleConnection is the entry point for one websocket connection.
func (h *RoomWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, ok := conn.Locals(middlewares.TokenUserID).(string)
	roomID := conn.Params("id")
	if !ok || userID == "" || roomID == "" {
		logger.Log.Warn("websocket connection without identity",
			zap.String("roomID", roomID),
		)
		conn.Close()
		return
	}

	peer := newWSPeer(conn, h.sendBuffer)
	go peer.writeLoop()

	if err := h.hub.Attach(ctx, roomID, peer, userID); err != nil {
		logger.Log.Error("failed to attach connection",
			zap.String("roomID", roomID),
			zap.String("userID", userID),
			zap.Error(err),
		)
		// The failed attach may have left the connection tracked as live and
		// its attachment persisted; run the full disconnect path so a later
		// coordinator rebuild cannot resurrect it.
		peer.Close()
		h.hub.Detach(roomID, peer)
		return
	}

	logger.Log.Info("websocket attached",
		zap.String("roomID", roomID),
		zap.String("userID", userID),
		zap.String("connID", peer.ID()),
	)

	// Close and error both end the read loop; the deferred detach is the one
	// disconnect path for room state.
	defer func() {
		peer.Close()
		h.hub.Detach(roomID, peer)
		logger.Log.Info("websocket detached",
			zap.String("roomID", roomID),
			zap.String("userID", userID),
			zap.String("connID", peer.ID()),
		)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if isPingFrame(raw) {
			_ = peer.Enqueue(pongFrame)
			continue
		}

		if err := h.hub.HandleFrame(ctx, roomID, peer, raw); err != nil {
			logger.Log.Error("failed to dispatch frame",
				zap.String("roomID", roomID),
				zap.String("connID", peer.ID()),
				zap.Error(err),
			)
			return
		}
	}
}

// isPingFrame matches the fixed keepalive payload without touching the JSON
// decoder or any application state.
func isPingFrame(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), pingFrame)
}
