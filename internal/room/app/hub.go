package app

import (
	"context"
	"sync"

	"web_chat_service/internal/room/repository"
	"web_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// LogStore opens and removes the embedded message log of a room.
type LogStore interface {
	Open(roomID string) (repository.MessageRepository, error)
	// Remove deletes the room's log storage entirely; a room that never
	// existed is not an error.
	Remove(roomID string) error
}

// roomEntry serializes coordinator builds for one room id, so a cold start
// (sqlite open, migrations, rehydration) only stalls callers of that room.
type roomEntry struct {
	mu          sync.Mutex
	coordinator *Coordinator
}

// Hub guarantees exactly one live coordinator per room id: every operation
// for a room routes through it, and a coordinator that crashed or stopped is
// rebuilt on next use with its registry rehydrated from durable attachments.
// The hub also tracks live connections independently of coordinator lifetime,
// which is what makes that rehydration possible.
type Hub struct {
	mu       sync.Mutex
	pageSize int

	logs        LogStore
	attachments repository.AttachmentRepository

	rooms map[string]*roomEntry
	live  map[string]map[string]Conn
}

// NewHub create a Hub
func NewHub(logs LogStore, attachments repository.AttachmentRepository, pageSize int) *Hub {
	return &Hub{
		pageSize:    pageSize,
		logs:        logs,
		attachments: attachments,
		rooms:       make(map[string]*roomEntry),
		live:        make(map[string]map[string]Conn),
	}
}

// Attach registers a freshly accepted connection with the room coordinator.
// The user id was validated upstream; the room trusts it.
func (h *Hub) Attach(ctx context.Context, roomID string, conn Conn, userID string) error {
	c, err := h.coordinator(ctx, roomID)
	if err != nil {
		return err
	}

	// Added after coordinator creation so a rebuild never mistakes this new,
	// not-yet-attached connection for a pre-registration crash.
	h.mu.Lock()
	if h.live[roomID] == nil {
		h.live[roomID] = make(map[string]Conn)
	}
	h.live[roomID][conn.ID()] = conn
	h.mu.Unlock()

	return c.Connect(ctx, conn, userID)
}

// Detach runs the disconnect path for a connection; safe to call twice. When
// the room's coordinator is already gone the durable attachment is dropped
// here, since no actor remains to clean it up.
func (h *Hub) Detach(roomID string, conn Conn) {
	h.mu.Lock()
	if conns, ok := h.live[roomID]; ok {
		delete(conns, conn.ID())
		if len(conns) == 0 {
			delete(h.live, roomID)
		}
	}
	entry, ok := h.rooms[roomID]
	h.mu.Unlock()

	var c *Coordinator
	if ok {
		entry.mu.Lock()
		c = entry.coordinator
		entry.mu.Unlock()
	}
	if c != nil && c.Alive() {
		if err := c.Disconnect(conn); err == nil {
			return
		}
	}

	if err := h.attachments.Delete(context.Background(), roomID, conn.ID()); err != nil {
		logger.Log.Warn("failed to delete connection attachment",
			zap.String("roomID", roomID),
			zap.String("connID", conn.ID()),
			zap.Error(err),
		)
	}
}

// HandleFrame routes one inbound frame to the room's coordinator, rebuilding
// it first if the previous instance went away.
func (h *Hub) HandleFrame(ctx context.Context, roomID string, conn Conn, frame []byte) error {
	c, err := h.coordinator(ctx, roomID)
	if err != nil {
		return err
	}
	return c.HandleFrame(conn, frame)
}

// WipeRoom deletes all durable state for the room; called by the room
// management API when the room's metadata record is deleted. A running
// coordinator drains its wipe through the actor first so the deletion
// serializes with in-flight frames; a room with no coordinator has its
// storage removed directly, without building one just to tear it down.
func (h *Hub) WipeRoom(ctx context.Context, roomID string) error {
	h.mu.Lock()
	entry, ok := h.rooms[roomID]
	h.mu.Unlock()

	if ok {
		entry.mu.Lock()
		c := entry.coordinator
		entry.mu.Unlock()
		if c != nil && c.Alive() {
			if err := c.Wipe(ctx); err != nil {
				return err
			}
			c.Stop()
		}
	}

	if err := h.logs.Remove(roomID); err != nil {
		return err
	}
	return h.attachments.WipeRoom(ctx, roomID)
}

// Shutdown stops every coordinator; used on process exit and in tests.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	entries := make([]*roomEntry, 0, len(h.rooms))
	for _, entry := range h.rooms {
		entries = append(entries, entry)
	}
	h.mu.Unlock()

	for _, entry := range entries {
		entry.mu.Lock()
		c := entry.coordinator
		entry.mu.Unlock()
		if c != nil && c.Alive() {
			c.Stop()
		}
	}
}

// coordinator returns the live coordinator for the room, building one when
// none is running. The hub-wide mutex only guards the maps; the build itself
// holds the room's own entry lock, so one room's cold start never stalls
// another room's traffic.
func (h *Hub) coordinator(ctx context.Context, roomID string) (*Coordinator, error) {
	h.mu.Lock()
	entry, ok := h.rooms[roomID]
	if !ok {
		entry = &roomEntry{}
		h.rooms[roomID] = entry
	}
	h.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.coordinator != nil && entry.coordinator.Alive() {
		return entry.coordinator, nil
	}

	log, err := h.logs.Open(roomID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	live := make([]Conn, 0, len(h.live[roomID]))
	for _, conn := range h.live[roomID] {
		live = append(live, conn)
	}
	h.mu.Unlock()

	c, err := NewCoordinator(ctx, roomID, log, h.attachments, live, h.pageSize)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	entry.coordinator = c
	return c, nil
}
