package gamecontext

import "github.com/mathieudelehaye/network-chess-game/internal/notation"

const (
	stateWaitingForPlayers = "WaitingForPlayers"
	stateReadyToStart      = "ReadyToStart"
	stateInProgress        = "InProgress"
	stateGameOver          = "GameOver"
)

// GameState is the per-state command table from spec.md §4.6, modeled
// as a tagged variant: one zero-size struct per state, dispatched by
// GameContext.current. Replaces the original server's virtual-method
// state objects (GameState.cpp) with a Go interface held by value.
type GameState interface {
	Name() string
	HandleJoin(ctx *GameContext, sessionID string, singlePlayer bool, color string) []byte
	HandleStart(ctx *GameContext, sessionID string) []byte
	HandleMove(ctx *GameContext, sessionID string, move notation.ParsedMove) []byte
	HandleEnd(ctx *GameContext, sessionID string) []byte
	HandleDisplayBoard(ctx *GameContext) []byte
	HandleDisconnect(ctx *GameContext, sessionID string)
}

// --- WaitingForPlayers ------------------------------------------------

type waitingForPlayersState struct{}

func (waitingForPlayersState) Name() string { return stateWaitingForPlayers }

func (s waitingForPlayersState) HandleJoin(ctx *GameContext, sessionID string, singlePlayer bool, color string) []byte {
	if singlePlayer {
		ctx.white = sessionID
		ctx.black = sessionID
		ctx.transitionTo(readyToStartState{})

		response := ctx.doUnicast(sessionID, map[string]any{
			"type":          "join_success",
			"session_id":    sessionID,
			"color":         "white",
			"status":        ctx.statusMessage(),
			"single_player": true,
		})
		ctx.doBroadcast(sessionID, map[string]any{
			"type":          "game_ready",
			"status":        "Both players joined. You can now start the game!",
			"white_player":  ctx.white,
			"black_player":  ctx.black,
			"single_player": true,
		}, true)
		return response
	}

	switch color {
	case "white":
		if ctx.white != "" && ctx.white != sessionID {
			return errorEnvelope("White player slot already taken")
		}
		ctx.white = sessionID
	case "black":
		if ctx.black != "" && ctx.black != sessionID {
			return errorEnvelope("Black player slot already taken")
		}
		ctx.black = sessionID
	default:
		return errorEnvelope("Invalid color")
	}

	singlePlayerNow := ctx.white != "" && ctx.white == ctx.black

	if ctx.bothPlayersJoined() {
		ctx.transitionTo(readyToStartState{})
	}

	response := ctx.doUnicast(sessionID, map[string]any{
		"type":          "join_success",
		"session_id":    sessionID,
		"color":         color,
		"status":        ctx.statusMessage(),
		"single_player": singlePlayerNow,
	})

	if ctx.bothPlayersJoined() {
		ctx.doBroadcast(sessionID, map[string]any{
			"type":          "game_ready",
			"status":        "Both players joined. You can now start the game!",
			"white_player":  ctx.white,
			"black_player":  ctx.black,
			"single_player": singlePlayerNow,
		}, true)
	} else {
		ctx.doBroadcast(sessionID, map[string]any{
			"type":   "player_joined",
			"color":  color,
			"status": ctx.statusMessage(),
		}, false)
	}

	return response
}

func (waitingForPlayersState) HandleStart(ctx *GameContext, sessionID string) []byte {
	return errorEnvelope("Cannot start: waiting for players")
}

func (waitingForPlayersState) HandleMove(ctx *GameContext, sessionID string, move notation.ParsedMove) []byte {
	return errorEnvelope("Cannot move: game not started")
}

func (waitingForPlayersState) HandleEnd(ctx *GameContext, sessionID string) []byte {
	return errorEnvelope("No game to end")
}

func (waitingForPlayersState) HandleDisplayBoard(ctx *GameContext) []byte {
	return errorEnvelope("No game to display")
}

func (waitingForPlayersState) HandleDisconnect(ctx *GameContext, sessionID string) {
	clearDisconnectedSlot(ctx, sessionID)
}

// --- ReadyToStart ------------------------------------------------------

type readyToStartState struct{}

func (readyToStartState) Name() string { return stateReadyToStart }

func (readyToStartState) HandleJoin(ctx *GameContext, sessionID string, singlePlayer bool, color string) []byte {
	if singlePlayer {
		return errorEnvelope("Game already in progress")
	}
	return errorEnvelope("Both players already joined")
}

func (readyToStartState) HandleStart(ctx *GameContext, sessionID string) []byte {
	if sessionID != ctx.white && sessionID != ctx.black {
		return errorEnvelope("Not a player in this game")
	}

	ctx.transitionTo(inProgressState{})
	ctx.chess.Reset()

	status := ctx.statusMessage()
	board := map[string]any{"fen": ctx.chess.FEN()}

	response := ctx.doUnicast(sessionID, map[string]any{
		"type":   "game_started",
		"status": status,
		"board":  board,
	})
	ctx.doBroadcast(sessionID, map[string]any{
		"type":         "game_started",
		"status":       status,
		"board":        board,
		"white_player": ctx.white,
		"black_player": ctx.black,
	}, false)

	return response
}

func (readyToStartState) HandleMove(ctx *GameContext, sessionID string, move notation.ParsedMove) []byte {
	return errorEnvelope("Game not started yet")
}

func (readyToStartState) HandleEnd(ctx *GameContext, sessionID string) []byte {
	return resetToWaiting(ctx, sessionID)
}

func (readyToStartState) HandleDisplayBoard(ctx *GameContext) []byte {
	return errorEnvelope("Game not started yet")
}

func (readyToStartState) HandleDisconnect(ctx *GameContext, sessionID string) {
	clearDisconnectedSlot(ctx, sessionID)
}

// --- InProgress ---------------------------------------------------------

type inProgressState struct{}

func (inProgressState) Name() string { return stateInProgress }

func (inProgressState) HandleJoin(ctx *GameContext, sessionID string, singlePlayer bool, color string) []byte {
	return errorEnvelope("Game already in progress")
}

func (inProgressState) HandleStart(ctx *GameContext, sessionID string) []byte {
	return errorEnvelope("Game already started")
}

func (inProgressState) HandleMove(ctx *GameContext, sessionID string, move notation.ParsedMove) []byte {
	report, err := ctx.chess.Apply(move)
	if err != nil {
		return ctx.doUnicast(sessionID, map[string]any{"type": "error", "error": "Invalid move"})
	}

	body := map[string]any{
		"type":    "move_result",
		"success": true,
		"strike":  report,
		"board":   map[string]any{"fen": ctx.chess.FEN()},
	}

	response := ctx.doUnicast(sessionID, body)
	ctx.doBroadcast(sessionID, body, false)

	if report.Checkmate || report.Stalemate {
		ctx.transitionTo(gameOverState{})
	}

	return response
}

func (inProgressState) HandleEnd(ctx *GameContext, sessionID string) []byte {
	return resetToWaiting(ctx, sessionID)
}

func (inProgressState) HandleDisplayBoard(ctx *GameContext) []byte {
	return boardDisplayEnvelope(ctx)
}

func (inProgressState) HandleDisconnect(ctx *GameContext, sessionID string) {
	clearDisconnectedSlot(ctx, sessionID)
}

// --- GameOver -----------------------------------------------------------

type gameOverState struct{}

func (gameOverState) Name() string { return stateGameOver }

func (gameOverState) HandleJoin(ctx *GameContext, sessionID string, singlePlayer bool, color string) []byte {
	if singlePlayer {
		return errorEnvelope("Game already in progress")
	}
	return errorEnvelope("Game is over. Start a new game")
}

func (gameOverState) HandleStart(ctx *GameContext, sessionID string) []byte {
	return errorEnvelope("Game is over. Reset first")
}

func (gameOverState) HandleMove(ctx *GameContext, sessionID string, move notation.ParsedMove) []byte {
	return errorEnvelope("Game is over")
}

func (gameOverState) HandleEnd(ctx *GameContext, sessionID string) []byte {
	return resetToWaiting(ctx, sessionID)
}

func (gameOverState) HandleDisplayBoard(ctx *GameContext) []byte {
	return errorEnvelope("Game is over. Start a new game")
}

func (gameOverState) HandleDisconnect(ctx *GameContext, sessionID string) {
	// No-op: a terminal game does not reset on disconnect.
}

// --- shared helpers ------------------------------------------------------

func resetToWaiting(ctx *GameContext, sessionID string) []byte {
	ctx.resetSlots()
	ctx.transitionTo(waitingForPlayersState{})

	body := map[string]any{"type": "game_reset", "status": "Waiting for new players"}
	response := ctx.doUnicast(sessionID, body)
	ctx.doBroadcast(sessionID, body, false)
	return response
}

func boardDisplayEnvelope(ctx *GameContext) []byte {
	return marshal(map[string]any{
		"type":   "board_display",
		"status": "ok",
		"data":   map[string]any{"board": ctx.chess.RenderBoard()},
	})
}

// clearDisconnectedSlot implements the disconnect row of the
// admissibility table for every non-terminal state: clear sessionID's
// slot(s), and if it held either colour, reset the whole game and
// broadcast a game_reset to the remaining sessions.
func clearDisconnectedSlot(ctx *GameContext, sessionID string) {
	wasBound := ctx.white == sessionID || ctx.black == sessionID
	if !wasBound {
		return
	}

	ctx.resetSlots()
	ctx.transitionTo(waitingForPlayersState{})

	ctx.doBroadcast(sessionID, map[string]any{
		"type":   "game_reset",
		"reason": "all_players_disconnected",
		"status": "Waiting for players...",
	}, false)
}
