package proto

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int32

const (
	StateHandshake     SessionState = iota // connected, no identity yet
	StateInWorld                           // playing
	StateDisconnecting                     // closing, input ignored
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// HandlerFunc is the callback signature for message handlers. The session
// pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, data json.RawMessage)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps message types to handlers with state-based access control.
type Registry struct {
	handlers map[string]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]*handlerEntry),
		log:      log,
	}
}

// Register maps a message type to a handler, restricted to the given
// session states.
func (reg *Registry) Register(msgType string, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[msgType] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch decodes the envelope, validates the session state, and calls the
// handler. Unknown message types are ignored; a type arriving in the wrong
// state is an error the caller reports back to the client.
func (reg *Registry) Dispatch(sess any, state SessionState, frame []byte) error {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("bad envelope: %w", err)
	}
	if env.Type == "" {
		return fmt.Errorf("envelope without type")
	}

	entry, ok := reg.handlers[env.Type]
	if !ok {
		reg.log.Debug("unknown message type",
			zap.String("type", env.Type),
			zap.String("state", state.String()),
		)
		return nil // silently ignore unknown types
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("message type not allowed in state",
			zap.String("type", env.Type),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("message %q not allowed in state %s", env.Type, state)
	}

	return reg.safeCall(entry.fn, sess, env.Data, env.Type)
}

// safeCall executes a handler with panic recovery so one bad message cannot
// take down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, data json.RawMessage, msgType string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("type", msgType),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %q: %v", msgType, rec)
		}
	}()
	fn(sess, data)
	return nil
}
