package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"web_chat_service/internal/room/domain"
	"web_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn collects every frame enqueued to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Enqueue(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnClosed
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// events decodes the captured frames.
func (f *fakeConn) events() []domain.ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ServerEvent, 0, len(f.frames))
	for _, frame := range f.frames {
		var ev domain.ServerEvent
		if err := json.Unmarshal(frame, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) eventCount(eventType string) int {
	n := 0
	for _, ev := range f.events() {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// memLog keeps the room log in a slice, newest appended last.
type memLog struct {
	mu       sync.Mutex
	messages []domain.Message
	closed   bool
}

func (m *memLog) Migrate(ctx context.Context) error { return nil }

func (m *memLog) Insert(ctx context.Context, userID string, msgType domain.MessageType, content string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ID:        id.String(),
		Type:      msgType,
		Content:   content,
		UserID:    userID,
		CreatedAt: domain.NewTimestamp(time.Now()),
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memLog) RecentPage(ctx context.Context, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageLocked(func(domain.Message) bool { return true }, limit), nil
}

func (m *memLog) PageBefore(ctx context.Context, before time.Time, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := before.UnixMilli()
	return m.pageLocked(func(msg domain.Message) bool {
		return msg.CreatedAt.UnixMilli() < cutoff
	}, limit), nil
}

func (m *memLog) pageLocked(match func(domain.Message) bool, limit int) []domain.Message {
	page := []domain.Message{}
	for i := len(m.messages) - 1; i >= 0 && len(page) < limit; i-- {
		if match(m.messages[i]) {
			page = append(page, m.messages[i])
		}
	}
	return page
}

func (m *memLog) Wipe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	return nil
}

func (m *memLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memAttachments is an in-memory AttachmentRepository.
type memAttachments struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newMemAttachments() *memAttachments {
	return &memAttachments{sessions: make(map[string]domain.Session)}
}

func (m *memAttachments) key(roomID, connID string) string {
	return fmt.Sprintf("%s/%s", roomID, connID)
}

func (m *memAttachments) Save(ctx context.Context, roomID, connID string, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[m.key(roomID, connID)] = session
	return nil
}

func (m *memAttachments) Find(ctx context.Context, roomID, connID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[m.key(roomID, connID)]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (m *memAttachments) Delete(ctx context.Context, roomID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, m.key(roomID, connID))
	return nil
}

func (m *memAttachments) WipeRoom(ctx context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := roomID + "/"
	for key := range m.sessions {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(m.sessions, key)
		}
	}
	return nil
}

func (m *memAttachments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func frame(t *testing.T, frameType string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	b, err := json.Marshal(domain.ClientFrame{Type: frameType, Data: raw})
	require.NoError(t, err)
	return b
}

func newTestCoordinator(t *testing.T) (*Coordinator, *memLog, *memAttachments) {
	t.Helper()
	logger.SetNewNop()

	log := &memLog{}
	attachments := newMemAttachments()
	c, err := NewCoordinator(context.Background(), "room-1", log, attachments, nil, 3)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c, log, attachments
}

func connect(t *testing.T, c *Coordinator, id, userID string) *fakeConn {
	t.Helper()
	conn := newFakeConn(id)
	require.NoError(t, c.Connect(context.Background(), conn, userID))
	return conn
}

func TestCoordinator_JoinSendsRoomStatsAndInitHistory(t *testing.T) {
	c, log, _ := newTestCoordinator(t)

	for _, content := range []string{"one", "two"} {
		_, err := log.Insert(context.Background(), "alice", domain.MessageText, content)
		require.NoError(t, err)
	}

	conn := connect(t, c, "conn-1", "alice")
	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameJoin, nil)))

	require.Eventually(t, func() bool {
		return conn.eventCount(domain.EventInitHistory) == 1
	}, time.Second, 5*time.Millisecond)

	var page []domain.Message
	for _, ev := range conn.events() {
		switch ev.Type {
		case domain.EventRoomStats:
			// membership snapshot precedes the history page
		case domain.EventInitHistory:
			raw, err := json.Marshal(ev.Data)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &page))
		}
	}

	require.Len(t, page, 2)
	// chronological order, oldest first
	assert.Equal(t, "one", page[0].Content)
	assert.Equal(t, "two", page[1].Content)
	assert.Equal(t, 1, conn.eventCount(domain.EventRoomStats))
}

func TestCoordinator_SendBroadcastsToOthersOnly(t *testing.T) {
	c, log, _ := newTestCoordinator(t)

	sender := connect(t, c, "conn-1", "alice")
	receiver := connect(t, c, "conn-2", "bob")

	payload := domain.SendPayload{Type: domain.MessageText, Content: "hello"}
	require.NoError(t, c.HandleFrame(sender, frame(t, domain.FrameSend, payload)))

	require.Eventually(t, func() bool {
		return receiver.eventCount(domain.EventMessage) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, sender.eventCount(domain.EventMessage))

	page, err := log.RecentPage(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "hello", page[0].Content)
	assert.Equal(t, "alice", page[0].UserID)
}

func TestCoordinator_SendWithoutSessionClosesConnection(t *testing.T) {
	c, log, _ := newTestCoordinator(t)

	// never connected, so no session exists for this handle
	stranger := newFakeConn("conn-x")
	payload := domain.SendPayload{Type: domain.MessageText, Content: "hi"}
	require.NoError(t, c.HandleFrame(stranger, frame(t, domain.FrameSend, payload)))

	require.Eventually(t, stranger.isClosed, time.Second, 5*time.Millisecond)

	page, err := log.RecentPage(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestCoordinator_SendInvalidPayloadIsDropped(t *testing.T) {
	c, log, _ := newTestCoordinator(t)
	conn := connect(t, c, "conn-1", "alice")

	bad := []interface{}{
		domain.SendPayload{Type: "video", Content: "x"},
		domain.SendPayload{Type: domain.MessageText, Content: ""},
	}
	for _, payload := range bad {
		require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameSend, payload)))
	}
	// flush the actor queue with a benign frame
	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameJoin, nil)))

	require.Eventually(t, func() bool {
		return conn.eventCount(domain.EventInitHistory) == 1
	}, time.Second, 5*time.Millisecond)

	page, err := log.RecentPage(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.False(t, conn.isClosed())
}

func TestCoordinator_MalformedFrameIsIgnored(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	conn := connect(t, c, "conn-1", "alice")

	require.NoError(t, c.HandleFrame(conn, []byte("{not json")))
	require.NoError(t, c.HandleFrame(conn, frame(t, "dance", nil)))
	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameJoin, nil)))

	require.Eventually(t, func() bool {
		return conn.eventCount(domain.EventInitHistory) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, conn.isClosed())
}

func TestCoordinator_LoadHistoryPagesBackwards(t *testing.T) {
	c, log, _ := newTestCoordinator(t)

	base := time.Now().Add(-time.Minute)
	log.messages = []domain.Message{
		{ID: "a", Type: domain.MessageText, Content: "oldest", UserID: "alice", CreatedAt: domain.NewTimestamp(base)},
		{ID: "b", Type: domain.MessageText, Content: "middle", UserID: "alice", CreatedAt: domain.NewTimestamp(base.Add(time.Second))},
		{ID: "c", Type: domain.MessageText, Content: "newest", UserID: "alice", CreatedAt: domain.NewTimestamp(base.Add(2 * time.Second))},
	}

	conn := connect(t, c, "conn-1", "alice")
	cursor := base.Add(2 * time.Second).UTC().Format("2006-01-02T15:04:05.000Z")
	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameLoadHistory, domain.LoadHistoryPayload{Before: cursor})))

	require.Eventually(t, func() bool {
		return conn.eventCount(domain.EventHistory) == 1
	}, time.Second, 5*time.Millisecond)

	var page []domain.Message
	for _, ev := range conn.events() {
		if ev.Type == domain.EventHistory {
			raw, err := json.Marshal(ev.Data)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &page))
		}
	}
	require.Len(t, page, 2)
	assert.Equal(t, "oldest", page[0].Content)
	assert.Equal(t, "middle", page[1].Content)
}

func TestCoordinator_LoadHistoryBadCursorIsSilent(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	conn := connect(t, c, "conn-1", "alice")

	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameLoadHistory, domain.LoadHistoryPayload{Before: "yesterday"})))
	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameJoin, nil)))

	require.Eventually(t, func() bool {
		return conn.eventCount(domain.EventInitHistory) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, conn.eventCount(domain.EventHistory))
	assert.False(t, conn.isClosed())
}

func TestCoordinator_UserStatusUpdatesAttachmentAndBroadcasts(t *testing.T) {
	c, _, attachments := newTestCoordinator(t)

	conn := connect(t, c, "conn-1", "alice")
	watcher := connect(t, c, "conn-2", "bob")

	status := domain.Status{User: domain.UserIdle}
	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameUserStatus, status)))

	require.Eventually(t, func() bool {
		return watcher.eventCount(domain.EventRoomStats) >= 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		session, err := attachments.Find(context.Background(), "room-1", "conn-1")
		if err != nil || session == nil || session.Status == nil {
			return false
		}
		return session.Status.User == domain.UserIdle
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinator_UserStatusWithoutSessionClosesConnection(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	stranger := newFakeConn("conn-x")
	require.NoError(t, c.HandleFrame(stranger, frame(t, domain.FrameUserStatus, domain.Status{User: domain.UserActive})))

	require.Eventually(t, stranger.isClosed, time.Second, 5*time.Millisecond)
}

func TestCoordinator_DisconnectIsIdempotent(t *testing.T) {
	c, _, attachments := newTestCoordinator(t)

	leaver := connect(t, c, "conn-1", "alice")
	watcher := connect(t, c, "conn-2", "bob")

	require.NoError(t, c.Disconnect(leaver))
	require.NoError(t, c.Disconnect(leaver))

	// flush, then confirm only one departure broadcast ran
	require.NoError(t, c.HandleFrame(watcher, frame(t, domain.FrameJoin, nil)))
	require.Eventually(t, func() bool {
		return watcher.eventCount(domain.EventInitHistory) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, watcher.eventCount(domain.EventRoomStats))
	assert.Equal(t, 1, attachments.count())
}

func TestCoordinator_RehydrateRestoresSessions(t *testing.T) {
	logger.SetNewNop()
	log := &memLog{}
	attachments := newMemAttachments()

	first, err := NewCoordinator(context.Background(), "room-1", log, attachments, nil, 3)
	require.NoError(t, err)

	conn := connect(t, first, "conn-1", "alice")
	first.Stop()

	// the connection outlived the coordinator; a successor rebuilds the
	// registry from the durable attachment
	second, err := NewCoordinator(context.Background(), "room-1", log, attachments, []Conn{conn}, 3)
	require.NoError(t, err)
	defer second.Stop()

	watcher := connect(t, second, "conn-2", "bob")
	require.NoError(t, second.HandleFrame(watcher, frame(t, domain.FrameJoin, nil)))

	require.Eventually(t, func() bool {
		return watcher.eventCount(domain.EventInitHistory) == 1
	}, time.Second, 5*time.Millisecond)

	var users []string
	for _, ev := range watcher.events() {
		if ev.Type == domain.EventRoomStats {
			raw, err := json.Marshal(ev.Data)
			require.NoError(t, err)
			var stats domain.RoomStats
			require.NoError(t, json.Unmarshal(raw, &stats))
			users = users[:0]
			for _, s := range stats.Users {
				users = append(users, s.UserID)
			}
		}
	}
	sort.Strings(users)
	assert.Equal(t, []string{"alice", "bob"}, users)
	assert.False(t, conn.isClosed())
}

func TestCoordinator_RehydrateClosesUnattachedConnections(t *testing.T) {
	logger.SetNewNop()
	log := &memLog{}
	attachments := newMemAttachments()

	orphan := newFakeConn("conn-orphan")
	c, err := NewCoordinator(context.Background(), "room-1", log, attachments, []Conn{orphan}, 3)
	require.NoError(t, err)
	defer c.Stop()

	assert.True(t, orphan.isClosed())
}

func TestCoordinator_WipeClearsLogAndAttachments(t *testing.T) {
	c, log, attachments := newTestCoordinator(t)

	conn := connect(t, c, "conn-1", "alice")
	payload := domain.SendPayload{Type: domain.MessageText, Content: "hello"}
	require.NoError(t, c.HandleFrame(conn, frame(t, domain.FrameSend, payload)))

	require.NoError(t, c.Wipe(context.Background()))

	page, err := log.RecentPage(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, 0, attachments.count())
}

func TestCoordinator_FailedConnectLeavesNoAttachment(t *testing.T) {
	logger.SetNewNop()
	log := &memLog{}
	attachments := newMemAttachments()

	first, err := NewCoordinator(context.Background(), "room-1", log, attachments, nil, 3)
	require.NoError(t, err)
	first.Stop()

	conn := newFakeConn("conn-1")
	err = first.Connect(context.Background(), conn, "alice")
	require.ErrorIs(t, err, ErrCoordinatorStopped)

	// the registration never ran, so no durable attachment may survive it
	assert.Equal(t, 0, attachments.count())

	// a successor that still sees the connection as live must not report the
	// user who never registered
	second, err := NewCoordinator(context.Background(), "room-1", log, attachments, []Conn{conn}, 3)
	require.NoError(t, err)
	defer second.Stop()

	assert.True(t, conn.isClosed())

	watcher := connect(t, second, "conn-2", "bob")
	require.NoError(t, second.HandleFrame(watcher, frame(t, domain.FrameJoin, nil)))

	require.Eventually(t, func() bool {
		return watcher.eventCount(domain.EventInitHistory) == 1
	}, time.Second, 5*time.Millisecond)

	var stats domain.RoomStats
	for _, ev := range watcher.events() {
		if ev.Type == domain.EventRoomStats {
			raw, err := json.Marshal(ev.Data)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &stats))
		}
	}
	require.Len(t, stats.Users, 1)
	assert.Equal(t, "bob", stats.Users[0].UserID)
}

func TestCoordinator_PostAfterStopFails(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.Stop()

	err := c.HandleFrame(newFakeConn("conn-1"), frame(t, domain.FrameJoin, nil))
	assert.ErrorIs(t, err, ErrCoordinatorStopped)
	assert.False(t, c.Alive())
}
