package server

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftd/craftd/internal/protocol"
)

const (
	// readBufferSize bounds a single socket read.
	readBufferSize = 1024

	// queueIdleTimeout is how long the writer blocks for the first
	// queued frame before re-checking session liveness.
	queueIdleTimeout = 5 * time.Second
)

// Session is the server side of one connected client. The reader
// goroutine turns socket bytes into model events; the writer goroutine
// drains the outbound queue. Player state (ID, Nick, Pos) is owned by
// the model loop and never touched from the session's own goroutines.
type Session struct {
	conn      net.Conn
	out       chan []byte
	running   atomic.Bool
	closeOnce sync.Once
	log       zerolog.Logger

	// Owned by the model loop.
	ID   int
	Nick string
	Pos  protocol.Position
}

func newSession(conn net.Conn, queueSize int, log zerolog.Logger) *Session {
	s := &Session{
		conn: conn,
		out:  make(chan []byte, queueSize),
		log:  log,
	}
	s.running.Store(true)
	return s
}

// RemoteAddr reports the peer address for logging.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// send queues a frame for transmission. It never blocks: a session
// whose queue is full has stopped draining and is disconnected rather
// than stalling the model loop.
func (s *Session) send(frame []byte) {
	if !s.running.Load() {
		return
	}
	select {
	case s.out <- frame:
		metricFramesSent.Inc()
		metricBytesSent.Add(float64(len(frame)))
	default:
		s.log.Warn().Int("client_id", s.ID).Str("addr", s.RemoteAddr()).Msg("send queue overflow, dropping client")
		s.close()
	}
}

// sendFrame packs and queues an outbound frame.
func (s *Session) sendFrame(tag byte, fields ...any) {
	s.send(protocol.Pack(tag, fields...))
}

func (s *Session) close() {
	s.running.Store(false)
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}

// readLoop reads newline-delimited frames and hands them to the model.
// EOF or a read error counts as a normal disconnect.
func (s *Session) readLoop(m *Model) {
	defer m.enqueue("disconnect", func() error { return m.onDisconnect(s) })

	buf := make([]byte, readBufferSize)
	var pending []byte
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			pending = append(pending, bytes.ReplaceAll(buf[:n], []byte{'\r'}, nil)...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := string(pending[:i])
				pending = pending[i+1:]
				m.enqueue("data", func() error { return m.onData(s, line) })
			}
		}
		if err != nil {
			return
		}
	}
}

// writeLoop drains the outbound queue: block for the first frame,
// then greedily take whatever else is queued and write the batch in
// one call. Batching is a throughput optimization only.
func (s *Session) writeLoop() {
	for {
		var batch []byte
		select {
		case frame := <-s.out:
			batch = frame
		case <-time.After(queueIdleTimeout):
			if !s.running.Load() {
				return
			}
			continue
		}

	drain:
		for {
			select {
			case frame := <-s.out:
				batch = append(batch, frame...)
			default:
				break drain
			}
		}

		if _, err := s.conn.Write(batch); err != nil {
			s.log.Debug().Int("client_id", s.ID).Err(err).Msg("session write failed")
			s.close()
			return
		}
	}
}
