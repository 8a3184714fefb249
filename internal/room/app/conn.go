package app

import (
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

var (
	// ErrConnClosed enqueue on a connection already torn down
	ErrConnClosed = errors.New("connection closed")
	// ErrConnSlow enqueue on a connection whose outbound buffer is full
	ErrConnSlow = errors.New("connection too slow, dropping")
)

// Conn is one live connection as the coordinator sees it. Enqueue is
// best-effort and never blocks: a dead or slow peer must not stall a
// broadcast to the rest of the room.
type Conn interface {
	ID() string
	Enqueue(frame []byte) error
	Close()
}

// wsPeer wraps a websocket connection with a buffered outbound queue drained
// by a dedicated writer goroutine, so frames sent to one peer keep their
// order while the coordinator never waits on the network.
type wsPeer struct {
	id   string
	conn *websocket.Conn
	out  chan []byte
	quit chan struct{}
	once sync.Once
}

func newWSPeer(conn *websocket.Conn, buffer int) *wsPeer {
	if buffer <= 0 {
		buffer = 64
	}
	return &wsPeer{
		id:   uuid.New().String(),
		conn: conn,
		out:  make(chan []byte, buffer),
		quit: make(chan struct{}),
	}
}

func (p *wsPeer) ID() string {
	return p.id
}

// Enqueue hands a frame to the writer. A full buffer closes the peer: the
// transport reports the closed socket and the normal disconnect path cleans
// the session up, which is the implicit-close policy for failed deliveries.
func (p *wsPeer) Enqueue(frame []byte) error {
	select {
	case <-p.quit:
		return ErrConnClosed
	default:
	}
	select {
	case p.out <- frame:
		return nil
	case <-p.quit:
		return ErrConnClosed
	default:
		p.Close()
		return ErrConnSlow
	}
}

// Close is idempotent; the read loop observes the closed socket and runs the
// disconnect path exactly once.
func (p *wsPeer) Close() {
	p.once.Do(func() {
		close(p.quit)
	})
}

func (p *wsPeer) writeLoop() {
	defer p.conn.Close()
	for {
		select {
		case frame := <-p.out:
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.Close()
				return
			}
		case <-p.quit:
			return
		}
	}
}
