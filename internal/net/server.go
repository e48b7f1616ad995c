// Package net owns client connections: a WebSocket endpoint, per-session
// read/write goroutines, and the channels that hand sessions and their
// messages to the game loop. Nothing in here touches world state.
package net

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Identity is asserted in-protocol and auth lives upstream, so any
	// origin may connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// SessionOptions sizes the per-session queues and limits.
type SessionOptions struct {
	InQueueSize  int
	OutQueueSize int
	MsgsPerSec   int           // inbound rate limit, 0 = unlimited
	WriteTimeout time.Duration // per-frame write deadline
	ReadLimit    int64         // max inbound frame size in bytes
}

// Server upgrades HTTP connections on /ws and creates Sessions. New and
// dead sessions are communicated to the game loop via channels.
type Server struct {
	httpServer *http.Server
	nextID     atomic.Uint64
	newConns   chan *Session
	deadCh     chan uint64 // session IDs of dead sessions
	opts       SessionOptions
	log        *zap.Logger
	closeCh    chan struct{}
}

func NewServer(bindAddr string, opts SessionOptions, log *zap.Logger) *Server {
	s := &Server{
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		opts:     opts,
		log:      log,
		closeCh:  make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpServer = &http.Server{
		Addr:              bindAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving the WebSocket endpoint. It returns nil
// after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.closeCh:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	sess := NewSession(conn, id, s.opts, s.log)
	sess.Start()

	s.log.Info("client connected",
		zap.Uint64("session", id),
		zap.String("ip", sess.IP),
	)

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("new connection queue full, rejecting",
			zap.Uint64("session", id))
		sess.Close()
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting connections and closes the listener. Sessions
// already handed to the game loop are closed by their owner.
func (s *Server) Shutdown(ctx context.Context) {
	close(s.closeCh)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("http shutdown", zap.Error(err))
	}
}
