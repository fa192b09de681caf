// Package gamecontext holds the single game all sessions share: the FSM,
// the chess model, player-slot bindings, and the egress callbacks that
// fan responses back out to sessions. Grounded on the original server's
// GameContext/GameState pair (models/game/state/GameContext.cpp and
// GameState.cpp), translated from virtual dispatch to a small Go
// interface held by value.
package gamecontext

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/mathieudelehaye/network-chess-game/internal/chessmodel"
	"github.com/mathieudelehaye/network-chess-game/internal/notation"
)

// UnicastFunc sends payload to exactly one session.
type UnicastFunc func(sessionID string, payload []byte)

// BroadcastFunc sends payload to every session, including the origin
// when toAll is true and excluding it otherwise.
type BroadcastFunc func(origin string, payload []byte, toAll bool)

// GameContext is the single shared object every session's commands run
// against. All methods take mu for their whole duration; egress
// callbacks run inside that critical section and must never call back
// into GameContext.
type GameContext struct {
	mu sync.Mutex

	current GameState
	chess   *chessmodel.Model

	white string
	black string

	unicast   UnicastFunc
	broadcast BroadcastFunc

	log *zap.Logger
}

// New builds a GameContext in WaitingForPlayers with a fresh chess
// model. The egress callbacks are wired in afterward by the server,
// since they need the session registry that owns this context.
func New(log *zap.Logger) *GameContext {
	return &GameContext{
		current: waitingForPlayersState{},
		chess:   chessmodel.New(),
		log:     log,
	}
}

// SetEgress installs the unicast/broadcast callbacks. Must be called
// before the context serves any traffic.
func (c *GameContext) SetEgress(unicast UnicastFunc, broadcast BroadcastFunc) {
	c.unicast = unicast
	c.broadcast = broadcast
}

func (c *GameContext) transitionTo(next GameState) {
	if c.log != nil {
		c.log.Debug("fsm transition", zap.String("from", c.current.Name()), zap.String("to", next.Name()))
	}
	c.current = next
}

// doUnicast builds the reply envelope addressed to sessionID. It does
// not push the reply itself: every FSM handler's return value is the
// synchronous reply that Controller.Route already delivers through the
// session's own send path, so pushing it again here would double-send.
// sessionID is kept in the signature to mirror doBroadcast and for
// handlers that want it for logging.
func (c *GameContext) doUnicast(sessionID string, body map[string]any) []byte {
	return marshal(body)
}

func (c *GameContext) doBroadcast(origin string, body map[string]any, toAll bool) {
	if c.broadcast == nil {
		return
	}
	c.broadcast(origin, marshal(body), toAll)
}

func marshal(body map[string]any) []byte {
	payload, err := json.Marshal(body)
	if err != nil {
		return []byte(`{"type":"error","error":"internal server error"}`)
	}
	return payload
}

func errorEnvelope(msg string) []byte {
	return marshal(map[string]any{"type": "error", "error": msg})
}

// HandleJoin dispatches a join_game command to the current state.
func (c *GameContext) HandleJoin(sessionID string, singlePlayer bool, color string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.HandleJoin(c, sessionID, singlePlayer, color)
}

// HandleStart dispatches a start_game command to the current state.
func (c *GameContext) HandleStart(sessionID string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.HandleStart(c, sessionID)
}

// HandleMove dispatches a make_move command to the current state.
func (c *GameContext) HandleMove(sessionID string, move notation.ParsedMove) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.HandleMove(c, sessionID, move)
}

// HandleEnd dispatches an end_game command to the current state.
func (c *GameContext) HandleEnd(sessionID string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.HandleEnd(c, sessionID)
}

// HandleDisplayBoard dispatches a display_board command to the current state.
func (c *GameContext) HandleDisplayBoard() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.HandleDisplayBoard(c)
}

// HandleDisconnect resets the game if sessionID holds a colour slot. In
// GameOver it does nothing.
func (c *GameContext) HandleDisconnect(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.HandleDisconnect(c, sessionID)
}

// StatusMessage derives the stable status string from state and slot
// occupancy, per spec.md §6. Takes the context mutex for its duration,
// like every other exported GameContext method.
func (c *GameContext) StatusMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusMessage()
}

// statusMessage is the lock-free implementation, for FSM handlers that
// are already called with mu held.
func (c *GameContext) statusMessage() string {
	switch c.current.Name() {
	case stateWaitingForPlayers:
		switch {
		case c.white == "" && c.black == "":
			return "Waiting for players to join"
		case c.white != "" && c.black == "":
			return "Player 1 (White) joined. Waiting for Player 2 (Black)"
		case c.black != "" && c.white == "":
			return "Player 1 (Black) joined. Waiting for Player 2 (White)"
		default:
			return "Waiting for players to join"
		}
	case stateReadyToStart:
		return "Both players joined. Wait for start command to be sent by a player"
	case stateInProgress:
		if c.chess.SideToMove() == "white" {
			return "Game in progress - White's turn"
		}
		return "Game in progress - Black's turn"
	case stateGameOver:
		return "Game over"
	default:
		return ""
	}
}

func (c *GameContext) resetSlots() {
	c.white = ""
	c.black = ""
	c.chess.Reset()
}

func (c *GameContext) bothPlayersJoined() bool {
	return c.white != "" && c.black != ""
}
