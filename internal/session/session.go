// Package session frames a byte stream into newline-terminated JSON
// lines and hands each complete line to a router. Grounded on the
// original server's Session.cpp: one atomic counter minting SessionIds,
// a line-accumulating receive buffer, and a close callback fired once.
package session

import (
	"bytes"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mathieudelehaye/network-chess-game/internal/transport"
)

var counter atomic.Uint64

// NextID mints the next SessionId in sequence, formatted "session_<N>".
func NextID() string {
	n := counter.Add(1)
	return "session_" + strconv.FormatUint(n, 10)
}

// Router turns one framed line into an optional reply.
type Router interface {
	Route(line []byte, sessionID string) []byte
	Disconnect(sessionID string)
}

// CloseFunc is invoked once the session has fully closed, so the owning
// registry can drop it.
type CloseFunc func(sessionID string)

// Session owns one Transport, frames its byte stream into JSON lines,
// and forwards each to a Router. The receive goroutine is the only
// mutator of buf; Send may be called from any goroutine (egress
// fan-out from another session's receive goroutine).
type Session struct {
	ID        string
	transport transport.Transport
	router    Router
	onClose   CloseFunc
	log       *zap.Logger

	buf    []byte
	active atomic.Bool
}

// New wraps an accepted transport in a new Session with a freshly
// minted SessionId.
func New(t transport.Transport, router Router, onClose CloseFunc, log *zap.Logger) *Session {
	return &Session{
		ID:        NextID(),
		transport: t,
		router:    router,
		onClose:   onClose,
		log:       log,
	}
}

// Start begins receiving and sends the initial handshake envelope.
func (s *Session) Start() {
	s.active.Store(true)
	s.transport.Start(s.onReceive, s.onTransportClosed)
	s.Send([]byte(`{"type":"session_created","session_id":"` + s.ID + `"}`))
}

func (s *Session) onReceive(chunk []byte) {
	s.buf = append(s.buf, chunk...)

	for {
		idx := bytes.IndexByte(s.buf, '\n')
		if idx < 0 {
			return
		}
		line := s.buf[:idx]
		s.buf = s.buf[idx+1:]

		if len(line) == 0 {
			continue
		}

		reply := s.router.Route(line, s.ID)
		if reply != nil {
			s.Send(reply)
		}
	}
}

// Send appends a newline and forwards payload to the transport. A
// no-op once the session is closed.
func (s *Session) Send(payload []byte) {
	if !s.active.Load() {
		return
	}
	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, payload...)
	framed = append(framed, '\n')
	s.transport.Send(framed)
}

func (s *Session) onTransportClosed() {
	s.closeOnce()
}

// Close shuts the session down from the outside, e.g. server stop.
func (s *Session) Close() {
	s.transport.Close()
	s.closeOnce()
}

func (s *Session) closeOnce() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.router.Disconnect(s.ID)
	if s.onClose != nil {
		s.onClose(s.ID)
	}
}

// Active reports whether the session is still eligible to receive sends.
func (s *Session) Active() bool {
	return s.active.Load()
}
