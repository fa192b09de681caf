package controller

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mathieudelehaye/network-chess-game/internal/gamecontext"
	"github.com/mathieudelehaye/network-chess-game/internal/notation"
)

func newTestController() *Controller {
	ctx := gamecontext.New(nil)
	return New(ctx, notation.NewSimpleCoord(), func(string, []byte) {}, nil)
}

func decode(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal(payload, &v))
	return v
}

func TestRouteInvalidJSON(t *testing.T) {
	c := newTestController()

	resp := decode(t, c.Route([]byte("not json"), "s1"))
	require.Equal(t, "error", resp["type"])
	require.Equal(t, "Invalid JSON format", resp["error"])
}

func TestRouteUnknownCommand(t *testing.T) {
	c := newTestController()

	resp := decode(t, c.Route([]byte(`{"command":"do_a_barrel_roll"}`), "s1"))
	require.Equal(t, "Unknown command", resp["error"])
}

func TestRouteJoinAndStartAndMove(t *testing.T) {
	c := newTestController()

	resp := decode(t, c.Route([]byte(`{"command":"join_game","single_player":true}`), "s1"))
	require.Equal(t, "join_success", resp["type"])

	resp = decode(t, c.Route([]byte(`{"command":"start_game"}`), "s1"))
	require.Equal(t, "game_started", resp["type"])

	resp = decode(t, c.Route([]byte(`{"command":"make_move","move":"e2-e4"}`), "s1"))
	require.Equal(t, "move_result", resp["type"])
}

func TestRouteBareMoveShorthand(t *testing.T) {
	c := newTestController()
	c.Route([]byte(`{"command":"join_game","single_player":true}`), "s1")
	c.Route([]byte(`{"command":"start_game"}`), "s1")

	resp := decode(t, c.Route([]byte(`{"move":"e2-e4"}`), "s1"))
	require.Equal(t, "move_result", resp["type"])
}

func TestRouteMoveWithUnparseableNotation(t *testing.T) {
	c := newTestController()
	c.Route([]byte(`{"command":"join_game","single_player":true}`), "s1")
	c.Route([]byte(`{"command":"start_game"}`), "s1")

	resp := decode(t, c.Route([]byte(`{"command":"make_move","move":"banana"}`), "s1"))
	require.Equal(t, "error", resp["type"])
}

func TestRouteGetStatus(t *testing.T) {
	c := newTestController()

	resp := decode(t, c.Route([]byte(`{"command":"get_status"}`), "s1"))
	require.Equal(t, "status", resp["type"])
	require.Equal(t, "Waiting for players to join", resp["message"])
}

func TestDisconnectPurgesPendingUploads(t *testing.T) {
	c := newTestController()

	msg := envelope{
		Command: "upload_game",
		Metadata: &uploadMetadata{
			Filename: "game.txt", TotalSize: 10, ChunksTotal: 2, ChunkCurrent: 1,
		},
		Data: "e2-e4\n",
	}
	c.handleUploadChunk(msg, "s1")

	c.uploadsMu.Lock()
	_, exists := c.uploads[uploadKey("s1", "game.txt")]
	c.uploadsMu.Unlock()
	require.True(t, exists)

	c.Disconnect("s1")

	c.uploadsMu.Lock()
	_, exists = c.uploads[uploadKey("s1", "game.txt")]
	c.uploadsMu.Unlock()
	require.False(t, exists)
}
