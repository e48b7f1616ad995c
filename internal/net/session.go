package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gridmud/server/internal/net/proto"
	"go.uber.org/zap"
)

const (
	// pongWait is how long a connection may stay silent before the read
	// deadline kills it; pings go out at 9/10 of that.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn *websocket.Conn

	state atomic.Int32 // proto.SessionState

	InQueue  chan []byte // game loop reads client frames from here
	OutQueue chan []byte // writeLoop reads outbound frames from here

	IP       string
	Identity string // set once the handshake picks a character

	outBuf [][]byte // buffered frames, flushed by OutputSystem (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	writeWait time.Duration
	readLimit int64

	// Per-second inbound rate limiter (readLoop goroutine only).
	msgsPerSec int
	msgCount   int
	msgResetAt int64

	log *zap.Logger
}

func NewSession(conn *websocket.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	s := &Session{
		ID:         id,
		conn:       conn,
		InQueue:    make(chan []byte, opts.InQueueSize),
		OutQueue:   make(chan []byte, opts.OutQueueSize),
		IP:         conn.RemoteAddr().String(),
		closeCh:    make(chan struct{}),
		writeWait:  opts.WriteTimeout,
		readLimit:  opts.ReadLimit,
		msgsPerSec: opts.MsgsPerSec,
		log:        log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(proto.StateHandshake))
	return s
}

func (s *Session) State() proto.SessionState {
	return proto.SessionState(s.state.Load())
}

func (s *Session) SetState(st proto.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a frame for this session. Nothing hits the wire until
// FlushOutput runs in the output phase. Game loop goroutine only.
func (s *Session) Send(frame []byte) {
	if frame == nil || s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, frame)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. Non-blocking: a consumer too slow to keep OutQueue drained is
// disconnected rather than allowed to stall the tick.
func (s *Session) FlushOutput() {
	for _, frame := range s.outBuf {
		select {
		case s.OutQueue <- frame:
		default:
			s.log.Warn("output queue full, dropping slow consumer")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// TrySend queues a frame directly, skipping the tick buffer. Safe from any
// goroutine; returns false when the session is closed or its queue is full.
// Room broadcasts use it: best effort, never blocking.
func (s *Session) TrySend(frame []byte) bool {
	if frame == nil || s.closed.Load() {
		return false
	}
	select {
	case s.OutQueue <- frame:
		return true
	default:
		return false
	}
}

// Close shuts the session down once. Safe from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(proto.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames off the socket and pushes them onto InQueue for the
// game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	s.conn.SetReadLimit(s.readLimit)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.msgsPerSec > 0 {
			now := time.Now().Unix()
			if now != s.msgResetAt {
				s.msgCount = 0
				s.msgResetAt = now
			}
			s.msgCount++
			if s.msgCount > s.msgsPerSec {
				s.log.Warn("message rate exceeded, disconnecting",
					zap.Int("mps", s.msgCount))
				return
			}
		}

		// Block until InQueue has space or the session closes. Dropping
		// inbound messages would silently lose moves; blocking only stalls
		// this client's own reader goroutine.
		select {
		case s.InQueue <- frame:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop is the sole writer on the connection. It drains OutQueue,
// keeps the ping ticker running, and sends a close frame on shutdown.
func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case frame := <-s.OutQueue:
			if !s.writeFrame(websocket.TextMessage, frame) {
				return
			}
		case <-ticker.C:
			if !s.writeFrame(websocket.PingMessage, nil) {
				return
			}
		case <-s.closeCh:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) writeFrame(msgType int, frame []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err := s.conn.WriteMessage(msgType, frame); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
