package server

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftd/craftd/internal/chunk"
	"github.com/craftd/craftd/internal/protocol"
	"github.com/craftd/craftd/internal/store"
)

// spawnPoint is where new and respawning players land: x, y, z, rx, ry.
var spawnPoint = protocol.Position{}

// event is one unit of work for the model loop. The name labels log
// lines and metrics.
type event struct {
	name string
	fn   func() error
}

// Model is the world actor. A single goroutine drains the event queue
// and is the only mutator of the roster, the player state hanging off
// each session, and the store. Sessions talk to the model by
// enqueueing events; the model talks back by queueing frames on each
// session's outbound channel.
type Model struct {
	log            zerolog.Logger
	store          *store.Store
	events         chan event
	quit           chan struct{}
	done           chan struct{}
	clients        []*Session
	commitInterval time.Duration
	lastCommit     time.Time
}

func NewModel(st *store.Store, commitInterval time.Duration, log zerolog.Logger) *Model {
	return &Model{
		log:            log,
		store:          st,
		events:         make(chan event, 256),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		commitInterval: commitInterval,
	}
}

func (m *Model) enqueue(name string, fn func() error) {
	m.events <- event{name: name, fn: fn}
}

// Run drains the event queue until Stop. Between events, and on the
// idle timeout, pending store writes older than the commit interval
// are flushed. A failing handler never takes the loop down.
func (m *Model) Run() {
	defer close(m.done)
	m.commit()
	for {
		if time.Since(m.lastCommit) >= m.commitInterval {
			m.commit()
		}
		select {
		case ev := <-m.events:
			m.dispatch(ev)
		case <-time.After(m.commitInterval):
		case <-m.quit:
			m.commit()
			return
		}
	}
}

// Stop shuts the loop down after a final commit and waits for it to
// exit, so the store can be closed safely afterwards.
func (m *Model) Stop() {
	close(m.quit)
	<-m.done
}

func (m *Model) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			metricPanics.Inc()
			m.log.Error().
				Str("event", ev.name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("event handler panicked")
		}
	}()
	metricEvents.WithLabelValues(ev.name).Inc()
	if err := ev.fn(); err != nil {
		m.log.Error().Str("event", ev.name).Err(err).Msg("event handler failed")
	}
}

func (m *Model) commit() {
	m.lastCommit = time.Now()
	if err := m.store.Commit(); err != nil {
		m.log.Error().Err(err).Msg("store commit failed")
		return
	}
	metricCommits.Inc()
}

// nextClientID returns the smallest positive id not held by any
// connected session, so ids are reclaimed after disconnects.
func (m *Model) nextClientID() int {
	used := make(map[int]bool, len(m.clients))
	for _, c := range m.clients {
		used[c.ID] = true
	}
	for id := 1; ; id++ {
		if !used[id] {
			return id
		}
	}
}

func (m *Model) onConnect(s *Session) error {
	s.ID = m.nextClientID()
	s.Nick = fmt.Sprintf("player%d", s.ID)
	s.Pos = spawnPoint
	m.clients = append(m.clients, s)
	metricClients.Set(float64(len(m.clients)))
	m.log.Info().Int("client_id", s.ID).Str("addr", s.RemoteAddr()).Msg("client connected")

	s.sendFrame(protocol.TagYou, s.ID, s.Pos.X, s.Pos.Y, s.Pos.Z, s.Pos.RX, s.Pos.RY)
	s.sendFrame(protocol.TagTalk, "Welcome to Craft!")
	s.sendFrame(protocol.TagTalk, `Type "/help" for chat commands.`)
	m.sendPosition(s)
	m.sendPositions(s)
	m.sendNick(s)
	m.sendNicks(s)
	m.sendTalk(s.Nick + " has joined the game.")
	return nil
}

func (m *Model) onDisconnect(s *Session) error {
	s.close()
	found := false
	for i, c := range m.clients {
		if c == s {
			m.clients = append(m.clients[:i], m.clients[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	metricClients.Set(float64(len(m.clients)))
	m.log.Info().Int("client_id", s.ID).Str("addr", s.RemoteAddr()).Msg("client disconnected")

	m.sendDisconnect(s)
	m.sendTalk(s.Nick + " has disconnected from the server.")
	return nil
}

// onData dispatches one inbound frame by tag. Unknown tags and
// malformed frames are dropped without reply.
func (m *Model) onData(s *Session, line string) error {
	tag, fields := protocol.Split(line)
	switch tag {
	case protocol.TagChunk:
		req, err := protocol.ParseChunkReq(fields)
		if err != nil {
			return nil
		}
		return m.onChunk(s, req)
	case protocol.TagBlock:
		b, err := protocol.ParseBlock(fields)
		if err != nil {
			return nil
		}
		return m.onBlock(s, b)
	case protocol.TagPosition:
		pos, err := protocol.ParsePosition(fields)
		if err != nil {
			return nil
		}
		return m.onPosition(s, pos)
	case protocol.TagTalk:
		return m.onTalk(s, protocol.ParseTalk(fields))
	default:
		return nil
	}
}

// onChunk streams the rows of one chunk past the client's cursor,
// then the new cursor. Row order is not significant; clients treat
// the batch as a set.
func (m *Model) onChunk(s *Session, req protocol.ChunkReq) error {
	rows, err := m.store.ScanChunk(req.P, req.Q, req.Key)
	if err != nil {
		return err
	}
	var maxRowID int64
	for _, r := range rows {
		s.sendFrame(protocol.TagBlock, req.P, req.Q, r.X, r.Y, r.Z, r.W)
		if r.RowID > maxRowID {
			maxRowID = r.RowID
		}
	}
	if maxRowID > 0 {
		s.sendFrame(protocol.TagKey, req.P, req.Q, maxRowID)
	}
	return nil
}

// onBlock stores a validated edit, then replicates it as negated
// ghost rows into every seam-adjacent neighbor chunk so clients can
// render boundary blocks from a single chunk.
func (m *Model) onBlock(s *Session, b protocol.Block) error {
	if b.Y < chunk.MinY || b.Y > chunk.MaxY || b.W < 0 || b.W > chunk.MaxKind {
		return nil
	}
	p, q := chunk.At(b.X, b.Z)
	if err := m.store.Upsert(p, q, b.X, b.Y, b.Z, b.W); err != nil {
		return err
	}
	metricBlocks.Inc()
	m.sendBlock(s, p, q, b.X, b.Y, b.Z, b.W)
	for _, off := range chunk.GhostOffsets(b.X, b.Z) {
		if err := m.store.Upsert(p+off.DX, q+off.DZ, b.X, b.Y, b.Z, -b.W); err != nil {
			return err
		}
		m.sendBlock(s, p+off.DX, q+off.DZ, b.X, b.Y, b.Z, -b.W)
	}
	return nil
}

func (m *Model) onPosition(s *Session, pos protocol.Position) error {
	s.Pos = pos
	m.sendPosition(s)
	return nil
}

func (m *Model) onTalk(s *Session, text string) error {
	if len(text) > 0 && text[0] == '/' {
		cmd, args, ok := protocol.MatchCommand(text)
		if !ok {
			s.sendFrame(protocol.TagTalk, `Unrecognized command: "`+text+`"`)
			return nil
		}
		return m.onCommand(s, cmd, args)
	}
	m.sendTalk(s.Nick + "> " + text)
	return nil
}

// teleport moves a session and announces it: U to the session itself,
// P to everyone else.
func (m *Model) teleport(s *Session, pos protocol.Position) {
	s.Pos = pos
	s.sendFrame(protocol.TagYou, s.ID, pos.X, pos.Y, pos.Z, pos.RX, pos.RY)
	m.sendPosition(s)
}

// sendPosition broadcasts a session's position to everyone else.
func (m *Model) sendPosition(from *Session) {
	for _, c := range m.clients {
		if c == from {
			continue
		}
		c.sendFrame(protocol.TagPosition, from.ID, from.Pos.X, from.Pos.Y, from.Pos.Z, from.Pos.RX, from.Pos.RY)
	}
}

// sendPositions catches a session up on every peer's position.
func (m *Model) sendPositions(to *Session) {
	for _, c := range m.clients {
		if c == to {
			continue
		}
		to.sendFrame(protocol.TagPosition, c.ID, c.Pos.X, c.Pos.Y, c.Pos.Z, c.Pos.RX, c.Pos.RY)
	}
}

// sendNick broadcasts a session's nickname to everyone else.
func (m *Model) sendNick(from *Session) {
	for _, c := range m.clients {
		if c == from {
			continue
		}
		c.sendFrame(protocol.TagNick, from.ID, from.Nick)
	}
}

// sendNicks catches a session up on every peer's nickname.
func (m *Model) sendNicks(to *Session) {
	for _, c := range m.clients {
		if c == to {
			continue
		}
		to.sendFrame(protocol.TagNick, c.ID, c.Nick)
	}
}

func (m *Model) sendDisconnect(from *Session) {
	for _, c := range m.clients {
		if c == from {
			continue
		}
		c.sendFrame(protocol.TagDisconnect, from.ID)
	}
}

func (m *Model) sendBlock(from *Session, p, q, x, y, z, w int) {
	for _, c := range m.clients {
		if c == from {
			continue
		}
		c.sendFrame(protocol.TagBlock, p, q, x, y, z, w)
	}
}

// sendTalk goes to every client, the originator included.
func (m *Model) sendTalk(text string) {
	for _, c := range m.clients {
		c.sendFrame(protocol.TagTalk, text)
	}
}
