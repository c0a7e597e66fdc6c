package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
)

func TestWriteLoopDeliversQueuedFrames(t *testing.T) {
	srvEnd, clientEnd := net.Pipe()
	defer clientEnd.Close()

	s := newSession(srvEnd, 16, zerolog.Nop())
	s.send([]byte("T,one\n"))
	s.send([]byte("T,two\n"))
	s.send([]byte("T,three\n"))
	go s.writeLoop()
	defer s.close()

	sc := bufio.NewScanner(clientEnd)
	var got []string
	for len(got) < 3 && sc.Scan() {
		got = append(got, sc.Text())
	}
	assert.DeepEqual(t, got, []string{"T,one", "T,two", "T,three"})
}

func TestSendOverflowClosesSession(t *testing.T) {
	srvEnd, clientEnd := net.Pipe()
	defer clientEnd.Close()

	// No writer draining, so the queue fills after two frames.
	s := newSession(srvEnd, 2, zerolog.Nop())
	s.send([]byte("T,one\n"))
	s.send([]byte("T,two\n"))
	assert.Assert(t, s.running.Load())

	s.send([]byte("T,three\n"))
	assert.Assert(t, !s.running.Load())
}

func TestWriteErrorClosesSession(t *testing.T) {
	srvEnd, clientEnd := net.Pipe()
	clientEnd.Close()

	s := newSession(srvEnd, 16, zerolog.Nop())
	s.send([]byte("T,one\n"))
	go s.writeLoop()

	deadline := time.After(5 * time.Second)
	for s.running.Load() {
		select {
		case <-deadline:
			t.Fatal("session still running after write to closed peer")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestReadLoopFramesAndCarriageReturns(t *testing.T) {
	m := newTestModel(t)
	srvEnd, clientEnd := net.Pipe()
	defer clientEnd.Close()

	s := newSession(srvEnd, 64, zerolog.Nop())
	assert.NilError(t, m.onConnect(s))
	frames(s)
	go s.readLoop(m)

	// Two frames split across writes, with CRLF line endings.
	go func() {
		clientEnd.Write([]byte("T,he"))
		clientEnd.Write([]byte("llo\r\nT,bye\r\n"))
		clientEnd.Close()
	}()

	var got []string
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-m.events:
			assert.NilError(t, ev.fn())
			got = append(got, frames(s)...)
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.DeepEqual(t, got, []string{"T,player1> hello", "T,player1> bye"})
}
