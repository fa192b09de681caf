package gamecontext

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathieudelehaye/network-chess-game/internal/notation"
)

func decodeType(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(payload, &v))
	return v
}

func newTestContext() *GameContext {
	return New(nil)
}

func TestJoinTwoPlayersReachesReadyToStart(t *testing.T) {
	ctx := newTestContext()

	resp1 := decodeType(t, ctx.HandleJoin("s1", false, "white"))
	require.Equal(t, "join_success", resp1["type"])

	resp2 := decodeType(t, ctx.HandleJoin("s2", false, "black"))
	require.Equal(t, "join_success", resp2["type"])

	require.Equal(t, stateReadyToStart, ctx.current.Name())
}

func TestJoinSinglePlayerReachesReadyToStart(t *testing.T) {
	ctx := newTestContext()

	resp := decodeType(t, ctx.HandleJoin("s1", true, ""))
	require.Equal(t, "join_success", resp["type"])
	require.Equal(t, true, resp["single_player"])
	require.Equal(t, stateReadyToStart, ctx.current.Name())
}

func TestJoinRejectsTakenColor(t *testing.T) {
	ctx := newTestContext()

	ctx.HandleJoin("s1", false, "white")
	resp := decodeType(t, ctx.HandleJoin("s2", false, "white"))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "White player slot already taken", resp["error"])
}

func TestJoinRejectsInvalidColor(t *testing.T) {
	ctx := newTestContext()

	resp := decodeType(t, ctx.HandleJoin("s1", false, "purple"))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Invalid color", resp["error"])
}

func TestStartRejectedWhileWaitingForPlayers(t *testing.T) {
	ctx := newTestContext()

	resp := decodeType(t, ctx.HandleStart("s1"))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Cannot start: waiting for players", resp["error"])
}

func TestStartRejectsNonPlayer(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", true, "")

	resp := decodeType(t, ctx.HandleStart("stranger"))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Not a player in this game", resp["error"])
}

func TestStartTransitionsToInProgress(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", true, "")

	resp := decodeType(t, ctx.HandleStart("s1"))
	require.Equal(t, "game_started", resp["type"])
	require.Equal(t, stateInProgress, ctx.current.Name())
}

func TestMoveRejectedBeforeStart(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", true, "")

	resp := decodeType(t, ctx.HandleMove("s1", notation.ParsedMove{From: "e2", To: "e4"}))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Game not started yet", resp["error"])
}

func TestMoveAppliedDuringInProgress(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", true, "")
	ctx.HandleStart("s1")

	resp := decodeType(t, ctx.HandleMove("s1", notation.ParsedMove{From: "e2", To: "e4"}))
	require.Equal(t, "move_result", resp["type"])
	require.Equal(t, true, resp["success"])
}

func TestCheckmateTransitionsToGameOver(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", true, "")
	ctx.HandleStart("s1")

	moves := []notation.ParsedMove{
		{From: "f2", To: "f3"},
		{From: "e7", To: "e5"},
		{From: "g2", To: "g4"},
		{From: "d8", To: "h4"},
	}
	var last []byte
	for _, mv := range moves {
		last = ctx.HandleMove("s1", mv)
	}

	resp := decodeType(t, last)
	strike := resp["strike"].(map[string]any)
	require.Equal(t, true, strike["checkmate"])
	require.Equal(t, stateGameOver, ctx.current.Name())
}

func TestMoveRejectedAfterGameOver(t *testing.T) {
	ctx := newTestContext()
	ctx.transitionTo(gameOverState{})

	resp := decodeType(t, ctx.HandleMove("s1", notation.ParsedMove{From: "e2", To: "e4"}))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Game is over", resp["error"])
}

func TestJoinRejectedAfterGameOverDistinguishesSinglePlayer(t *testing.T) {
	ctx := newTestContext()
	ctx.transitionTo(gameOverState{})

	resp := decodeType(t, ctx.HandleJoin("s1", false, "white"))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Game is over. Start a new game", resp["error"])

	resp = decodeType(t, ctx.HandleJoin("s1", true, ""))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Game already in progress", resp["error"])
}

func TestEndResetsToWaiting(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", true, "")
	ctx.HandleStart("s1")

	resp := decodeType(t, ctx.HandleEnd("s1"))
	require.Equal(t, "game_reset", resp["type"])
	require.Equal(t, stateWaitingForPlayers, ctx.current.Name())
	require.Equal(t, "", ctx.white)
	require.Equal(t, "", ctx.black)
}

func TestDisplayBoardOnlyDuringInProgress(t *testing.T) {
	ctx := newTestContext()

	resp := decodeType(t, ctx.HandleDisplayBoard())
	require.Equal(t, "error", resp["type"])

	ctx.HandleJoin("s1", true, "")
	ctx.HandleStart("s1")

	resp = decodeType(t, ctx.HandleDisplayBoard())
	require.Equal(t, "board_display", resp["type"])
}

func TestDisconnectDuringGameResetsToWaiting(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", false, "white")
	ctx.HandleJoin("s2", false, "black")
	ctx.HandleStart("s1")

	ctx.HandleDisconnect("s1")

	require.Equal(t, stateWaitingForPlayers, ctx.current.Name())
	require.Equal(t, "", ctx.white)
	require.Equal(t, "", ctx.black)
}

func TestDisconnectOfUnboundSessionIsNoop(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", false, "white")

	ctx.HandleDisconnect("unrelated")

	require.Equal(t, stateWaitingForPlayers, ctx.current.Name())
	require.Equal(t, "s1", ctx.white)
}

func TestStatusMessageTracksState(t *testing.T) {
	ctx := newTestContext()
	require.Equal(t, "Waiting for players to join", ctx.StatusMessage())

	ctx.HandleJoin("s1", false, "white")
	require.Equal(t, "Player 1 (White) joined. Waiting for Player 2 (Black)", ctx.StatusMessage())

	ctx.HandleJoin("s2", false, "black")
	require.Equal(t, "Both players joined. Wait for start command to be sent by a player", ctx.StatusMessage())

	ctx.HandleStart("s1")
	require.Equal(t, "Game in progress - White's turn", ctx.StatusMessage())
}

func TestStatusMessageConcurrentWithMoves(t *testing.T) {
	ctx := newTestContext()
	ctx.HandleJoin("s1", true, "")
	ctx.HandleStart("s1")

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				ctx.StatusMessage()
			}
		}
	}()

	moves := []notation.ParsedMove{
		{From: "e2", To: "e4"}, {From: "e7", To: "e5"},
		{From: "g1", To: "f3"}, {From: "b8", To: "c6"},
	}
	for _, mv := range moves {
		ctx.HandleMove("s1", mv)
	}

	close(done)
	wg.Wait()
}
