// Package server composes the listener, the session registry, and the
// cleanup reaper, and wires GameContext's egress callbacks back into
// that registry. Grounded on the original server's network/Server.cpp:
// one accept goroutine, one cleanup goroutine ticking every ~5s, and
// sessionsMutex-guarded unicast/broadcast walks.
package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mathieudelehaye/network-chess-game/internal/controller"
	"github.com/mathieudelehaye/network-chess-game/internal/gamecontext"
	"github.com/mathieudelehaye/network-chess-game/internal/notation"
	"github.com/mathieudelehaye/network-chess-game/internal/session"
	"github.com/mathieudelehaye/network-chess-game/internal/transport"
)

// Config is the bind configuration the CLI surface in spec.md §6 maps
// onto.
type Config struct {
	IP         string
	Port       int
	Local      bool
	SocketPath string
	ParserKind string
}

const cleanupInterval = 5 * time.Second

// Server accepts connections, frames them into sessions, and fans the
// single shared GameContext's output back out to the registry.
type Server struct {
	log *zap.Logger

	ctx        *gamecontext.GameContext
	controller *controller.Controller

	ln *listener

	sessionsMu sync.Mutex
	sessions   map[string]*session.Session

	cleanupMu sync.Mutex
	toCleanup []string

	instanceID string

	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// New builds a Server; call Start to bind and begin serving.
func New(log *zap.Logger, parserKind string) *Server {
	ctx := gamecontext.New(log)

	s := &Server{
		log:        log,
		ctx:        ctx,
		sessions:   make(map[string]*session.Session),
		instanceID: uuid.New().String(),
		stop:       make(chan struct{}),
	}

	ctx.SetEgress(s.unicast, s.broadcast)
	s.controller = controller.New(ctx, notation.NewParser(parserKind), s.unicast, log)

	return s
}

// Start binds the configured endpoint and spawns the accept and
// cleanup loops.
func (s *Server) Start(cfg Config) error {
	var ln *listener
	var err error

	if cfg.Local {
		ln, err = listenUnix(cfg.SocketPath)
	} else {
		ln, err = listenTCP(cfg.IP, cfg.Port)
	}
	if err != nil {
		return err
	}
	s.ln = ln

	s.log.Info("listening",
		zap.String("instance_id", s.instanceID),
		zap.Bool("unix", cfg.Local),
		zap.String("address", ln.Addr().String()),
	)

	s.wg.Add(2)
	go s.acceptLoop()
	go s.cleanupLoop()

	return nil
}

// Stop terminates both loops, closes every session, and releases the
// listener (unlinking the Unix socket file if one was created).
func (s *Server) Stop() {
	s.sessionsMu.Lock()
	if s.closed {
		s.sessionsMu.Unlock()
		return
	}
	s.closed = true
	s.sessionsMu.Unlock()

	close(s.stop)
	if s.ln != nil {
		_ = s.ln.Close()
	}

	// Closing a session notifies the controller, which may broadcast
	// through sessionsMu, so sessions are closed outside that lock.
	s.sessionsMu.Lock()
	open := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.sessionsMu.Unlock()

	for _, sess := range open {
		sess.Close()
	}

	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.log.Debug("accept error", zap.Error(err))
			return
		}

		s.handleAccept(conn)
	}
}

func (s *Server) handleAccept(conn net.Conn) {
	var t transport.Transport
	if _, ok := conn.(*net.UnixConn); ok {
		t = transport.NewUnix(conn, s.log)
	} else {
		t = transport.NewTCP(conn, s.log)
	}

	sess := session.New(t, s.controller, s.enqueueCleanup, s.log)

	s.sessionsMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessionsMu.Unlock()

	s.log.Info("session accepted", zap.String("session_id", sess.ID))
	sess.Start()
}

func (s *Server) enqueueCleanup(sessionID string) {
	s.cleanupMu.Lock()
	s.toCleanup = append(s.toCleanup, sessionID)
	s.cleanupMu.Unlock()
}

func (s *Server) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Server) sweep() {
	s.cleanupMu.Lock()
	ids := s.toCleanup
	s.toCleanup = nil
	s.cleanupMu.Unlock()

	if len(ids) == 0 {
		return
	}

	s.sessionsMu.Lock()
	for _, id := range ids {
		delete(s.sessions, id)
	}
	s.sessionsMu.Unlock()
}

// unicast looks up sessionID and sends it payload, skipping sessions
// that are absent or already inactive.
func (s *Server) unicast(sessionID string, payload []byte) {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[sessionID]
	s.sessionsMu.Unlock()

	if ok && sess.Active() {
		sess.Send(payload)
	}
}

// broadcast walks the registry and sends payload to every active
// session, excluding origin unless toAll is set.
func (s *Server) broadcast(origin string, payload []byte, toAll bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	for id, sess := range s.sessions {
		if !toAll && id == origin {
			continue
		}
		if sess.Active() {
			sess.Send(payload)
		}
	}
}
