package app

import (
	"context"
	"encoding/json"
	"errors"

	"web_chat_service/internal/room/domain"
	"web_chat_service/internal/room/repository"
	"web_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ErrCoordinatorStopped posted to a coordinator whose loop already exited
var ErrCoordinatorStopped = errors.New("room coordinator stopped")

// DefaultHistoryPageSize rows per history page when the config leaves it zero
const DefaultHistoryPageSize = 25

type cmdKind int

const (
	cmdRegister cmdKind = iota
	cmdFrame
	cmdDisconnect
	cmdWipe
	cmdStop
)

type command struct {
	kind   cmdKind
	conn   Conn
	userID string
	frame  []byte
	done   chan error
}

// Coordinator is the single-writer actor for one room. Every inbound frame,
// presence change and storage write funnels through its command channel and
// is handled by one goroutine, so the session registry and the message log
// never see concurrent access. Posting blocks while a command is in flight,
// which makes backpressure total: the room serializes, it does not batch.
type Coordinator struct {
	roomID   string
	pageSize int

	messages    repository.MessageRepository
	attachments repository.AttachmentRepository

	registry *sessionRegistry
	conns    map[string]Conn

	cmds    chan command
	stopped chan struct{}
}

// NewCoordinator opens the room. Migrations run and the session registry is
// rebuilt from durable attachments before the first command is accepted, so
// no frame ever observes a half-initialized room.
func NewCoordinator(
	ctx context.Context,
	roomID string,
	messages repository.MessageRepository,
	attachments repository.AttachmentRepository,
	live []Conn,
	pageSize int,
) (*Coordinator, error) {
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}

	c := &Coordinator{
		roomID:      roomID,
		pageSize:    pageSize,
		messages:    messages,
		attachments: attachments,
		registry:    newSessionRegistry(),
		conns:       make(map[string]Conn),
		cmds:        make(chan command),
		stopped:     make(chan struct{}),
	}

	if err := messages.Migrate(ctx); err != nil {
		return nil, err
	}

	c.rehydrate(ctx, live)

	go c.run()
	return c, nil
}

// rehydrate re-derives sessions for connections that outlived a previous
// coordinator instance. A live connection without an attachment can only mean
// a crash before registration completed; it is closed rather than trusted.
func (c *Coordinator) rehydrate(ctx context.Context, live []Conn) {
	for _, conn := range live {
		session, err := c.attachments.Find(ctx, c.roomID, conn.ID())
		if err != nil {
			logger.Log.Warn("failed to read connection attachment",
				zap.String("roomID", c.roomID),
				zap.String("connID", conn.ID()),
				zap.Error(err),
			)
			conn.Close()
			continue
		}
		if session == nil {
			conn.Close()
			continue
		}
		c.conns[conn.ID()] = conn
		c.registry.Restore(conn.ID(), *session)
	}
	if len(c.conns) > 0 {
		logger.Log.Info("room coordinator rehydrated",
			zap.String("roomID", c.roomID),
			zap.Int("sessions", c.registry.Len()),
		)
	}
}

func (c *Coordinator) run() {
	defer close(c.stopped)
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("room coordinator crashed",
				zap.String("roomID", c.roomID),
				zap.Any("panic", r),
			)
		}
		if err := c.messages.Close(); err != nil {
			logger.Log.Warn("failed to close room log", zap.String("roomID", c.roomID), zap.Error(err))
		}
	}()

	for cmd := range c.cmds {
		switch cmd.kind {
		case cmdRegister:
			c.handleRegister(cmd.conn, cmd.userID)
		case cmdFrame:
			c.handleFrame(cmd.conn, cmd.frame)
		case cmdDisconnect:
			c.handleDisconnect(cmd.conn)
		case cmdWipe:
			cmd.done <- c.handleWipe()
		case cmdStop:
			return
		}
	}
}

// Alive reports whether the actor loop is still consuming commands.
func (c *Coordinator) Alive() bool {
	select {
	case <-c.stopped:
		return false
	default:
		return true
	}
}

func (c *Coordinator) post(cmd command) error {
	select {
	case c.cmds <- cmd:
		return nil
	case <-c.stopped:
		return ErrCoordinatorStopped
	}
}

// Connect durably attaches the session to the connection, then registers it.
// The attachment is written first so a coordinator restart between the two
// steps still recovers the session.
func (c *Coordinator) Connect(ctx context.Context, conn Conn, userID string) error {
	if err := c.attachments.Save(ctx, c.roomID, conn.ID(), domain.Session{UserID: userID}); err != nil {
		logger.Log.Warn("failed to persist connection attachment",
			zap.String("roomID", c.roomID),
			zap.String("connID", conn.ID()),
			zap.Error(err),
		)
	}
	if err := c.post(command{kind: cmdRegister, conn: conn, userID: userID}); err != nil {
		// The session never registered, so the attachment written above must
		// not outlive this call: a successor rehydrating from it would report
		// a user that was never in the room.
		if delErr := c.attachments.Delete(ctx, c.roomID, conn.ID()); delErr != nil {
			logger.Log.Warn("failed to delete connection attachment",
				zap.String("roomID", c.roomID),
				zap.String("connID", conn.ID()),
				zap.Error(delErr),
			)
		}
		return err
	}
	return nil
}

// HandleFrame dispatches one inbound client frame through the actor.
func (c *Coordinator) HandleFrame(conn Conn, frame []byte) error {
	return c.post(command{kind: cmdFrame, conn: conn, frame: frame})
}

// Disconnect routes both graceful close and transport error; the room does
// not distinguish them, either way the connection is gone.
func (c *Coordinator) Disconnect(conn Conn) error {
	return c.post(command{kind: cmdDisconnect, conn: conn})
}

// Wipe deletes all durable state for the room; invoked on room deletion.
func (c *Coordinator) Wipe(ctx context.Context) error {
	done := make(chan error, 1)
	if err := c.post(command{kind: cmdWipe, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the actor loop down; pending commands posted later fail with
// ErrCoordinatorStopped and the hub rebuilds the room on next use.
func (c *Coordinator) Stop() {
	_ = c.post(command{kind: cmdStop})
	<-c.stopped
}

func (c *Coordinator) handleRegister(conn Conn, userID string) {
	if _, exists := c.conns[conn.ID()]; exists {
		logger.Log.Warn("duplicate connection registration rejected",
			zap.String("roomID", c.roomID),
			zap.String("connID", conn.ID()),
		)
		return
	}
	c.conns[conn.ID()] = conn
	c.registry.Register(conn.ID(), userID)
}

func (c *Coordinator) handleFrame(conn Conn, raw []byte) {
	var frame domain.ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		// Malformed frames are dropped without closing the connection.
		return
	}

	switch frame.Type {
	case domain.FramePing:
		// Answered by the transport echo; nothing reaches the actor.
	case domain.FrameJoin:
		c.handleJoin(conn)
	case domain.FrameSend:
		c.handleSend(conn, frame.Data)
	case domain.FrameLoadHistory:
		c.handleLoadHistory(conn, frame.Data)
	case domain.FrameUserStatus:
		c.handleUserStatus(conn, frame.Data)
	default:
		// Unknown frame types are ignored.
	}
}

func (c *Coordinator) handleJoin(conn Conn) {
	c.broadcastRoomStats()

	page, err := c.messages.RecentPage(context.Background(), c.pageSize)
	if err != nil {
		logger.Log.Error("failed to load initial history",
			zap.String("roomID", c.roomID),
			zap.Error(err),
		)
		return
	}
	reverseMessages(page)
	c.sendTo(conn, domain.ServerEvent{Type: domain.EventInitHistory, Data: page})
}

func (c *Coordinator) handleSend(conn Conn, data json.RawMessage) {
	session, ok := c.registry.Get(conn.ID())
	if !ok {
		// A send without a registered session means the accept path never
		// completed; terminate the connection.
		conn.Close()
		return
	}

	var payload domain.SendPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	if !payload.Type.Valid() || payload.Content == "" {
		return
	}

	msg, err := c.messages.Insert(context.Background(), session.UserID, payload.Type, payload.Content)
	if err != nil {
		// The frame is dropped; no ack reaches the sender and the registry
		// stays untouched.
		logger.Log.Error("failed to persist message",
			zap.String("roomID", c.roomID),
			zap.String("userID", session.UserID),
			zap.Error(err),
		)
		return
	}

	// The sender already rendered its own message optimistically.
	c.broadcast(domain.ServerEvent{Type: domain.EventMessage, Data: msg}, conn.ID())
}

func (c *Coordinator) handleLoadHistory(conn Conn, data json.RawMessage) {
	if _, ok := c.registry.Get(conn.ID()); !ok {
		conn.Close()
		return
	}

	var payload domain.LoadHistoryPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	before, err := domain.ParseCursor(payload.Before)
	if err != nil {
		// An unparseable cursor is ignored rather than erroring the
		// connection.
		return
	}

	page, err := c.messages.PageBefore(context.Background(), before, c.pageSize)
	if err != nil {
		logger.Log.Error("failed to load history page",
			zap.String("roomID", c.roomID),
			zap.Error(err),
		)
		return
	}
	reverseMessages(page)
	c.sendTo(conn, domain.ServerEvent{Type: domain.EventHistory, Data: page})
}

func (c *Coordinator) handleUserStatus(conn Conn, data json.RawMessage) {
	var status domain.Status
	if err := json.Unmarshal(data, &status); err != nil {
		return
	}

	session, ok := c.registry.SetStatus(conn.ID(), status)
	if !ok {
		conn.Close()
		return
	}

	// Re-serialize the attachment so the status survives a restart.
	if err := c.attachments.Save(context.Background(), c.roomID, conn.ID(), session); err != nil {
		logger.Log.Warn("failed to refresh connection attachment",
			zap.String("roomID", c.roomID),
			zap.String("connID", conn.ID()),
			zap.Error(err),
		)
	}

	c.broadcastRoomStats()
}

// handleDisconnect is idempotent: close-then-error for the same connection
// runs the removal once and broadcasts one roomStats.
func (c *Coordinator) handleDisconnect(conn Conn) {
	if _, ok := c.conns[conn.ID()]; !ok {
		return
	}
	delete(c.conns, conn.ID())
	c.registry.Remove(conn.ID())

	if err := c.attachments.Delete(context.Background(), c.roomID, conn.ID()); err != nil {
		logger.Log.Warn("failed to delete connection attachment",
			zap.String("roomID", c.roomID),
			zap.String("connID", conn.ID()),
			zap.Error(err),
		)
	}

	c.broadcastRoomStats()
}

func (c *Coordinator) handleWipe() error {
	if err := c.messages.Wipe(context.Background()); err != nil {
		return err
	}
	return c.attachments.WipeRoom(context.Background(), c.roomID)
}

func (c *Coordinator) broadcastRoomStats() {
	c.broadcast(domain.ServerEvent{Type: domain.EventRoomStats, Data: c.registry.Snapshot()}, "")
}

// broadcast serializes once and enqueues to every connection except the
// excluded one. Delivery is best-effort: a dead peer fails its own enqueue
// and is cleaned up by the disconnect path, never blocking the rest.
func (c *Coordinator) broadcast(event domain.ServerEvent, excludeConnID string) {
	frame, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("failed to marshal event", zap.String("roomID", c.roomID), zap.Error(err))
		return
	}
	for connID, conn := range c.conns {
		if connID == excludeConnID {
			continue
		}
		if err := conn.Enqueue(frame); err != nil {
			logger.Log.Debug("dropped frame for connection",
				zap.String("roomID", c.roomID),
				zap.String("connID", connID),
				zap.Error(err),
			)
		}
	}
}

func (c *Coordinator) sendTo(conn Conn, event domain.ServerEvent) {
	frame, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("failed to marshal event", zap.String("roomID", c.roomID), zap.Error(err))
		return
	}
	if err := conn.Enqueue(frame); err != nil {
		logger.Log.Debug("dropped frame for connection",
			zap.String("roomID", c.roomID),
			zap.String("connID", conn.ID()),
			zap.Error(err),
		)
	}
}

func reverseMessages(messages []domain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
