// Package server ties the pieces of the voxel world server together:
// a TCP listener spawning sessions, the single-goroutine world model
// they feed events into, and the durable block store behind it.
package server

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftd/craftd/internal/config"
	"github.com/craftd/craftd/internal/store"
)

type Server struct {
	log          zerolog.Logger
	cfg          *config.Config
	store        *store.Store
	model        *Model
	listener     net.Listener
	quit         chan struct{}
	ready        chan struct{}
	shutdownOnce sync.Once
}

// New opens the block store and builds the world model. The model
// loop is not started until Listen.
func New(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.Store.CommitIntervalSeconds) * time.Second
	return &Server{
		log:   log,
		cfg:   cfg,
		store: st,
		model: NewModel(st, interval, log),
		quit:  make(chan struct{}),
		ready: make(chan struct{}),
	}, nil
}

// Listen binds the TCP socket and accepts connections until Shutdown
// or a termination signal. Every connection gets its own reader and
// writer goroutines; a slow client never stalls the others.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	s.listener = ln
	close(s.ready)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		select {
		case sig := <-sigCh:
			s.log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			s.Shutdown()
		case <-s.quit:
		}
	}()

	go s.model.Run()

	s.log.Info().Str("addr", addr).Msg("server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				s.log.Error().Err(err).Msg("accept failed")
				continue
			}
		}
		s.startSession(conn)
	}
}

func (s *Server) startSession(conn net.Conn) {
	sess := newSession(conn, s.cfg.Server.SendQueue, s.log)
	s.model.enqueue("connect", func() error { return s.model.onConnect(sess) })
	go sess.readLoop(s.model)
	go sess.writeLoop()
}

// Addr reports the bound listen address, useful when port 0 was asked
// for. It blocks until the listener is up.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.listener.Addr()
}

// Shutdown stops accepting, flushes the store and releases it.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.model.Stop()
		if err := s.store.Close(); err != nil {
			s.log.Error().Err(err).Msg("store close failed")
		}
	})
}
