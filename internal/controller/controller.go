// Package controller turns wire JSON lines into GameContext calls and
// back into wire JSON responses. Grounded on the original server's
// GameController::routeMessage (command dispatch) and MessageRouter
// (the bare "move" shorthand and get_status commands it additionally
// recovers from original_source/).
package controller

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mathieudelehaye/network-chess-game/internal/gamecontext"
	"github.com/mathieudelehaye/network-chess-game/internal/notation"
)

// envelope is the loosely-typed shape of an incoming wire message: it
// only pins down the fields the controller itself inspects before
// handing the rest off to a specific command handler.
type envelope struct {
	Command string `json:"command"`
	Move    string `json:"move"`

	Color        string `json:"color"`
	SinglePlayer bool   `json:"single_player"`

	Metadata *uploadMetadata `json:"metadata"`
	Data     string          `json:"data"`
}

type uploadMetadata struct {
	Filename     string `json:"filename"`
	TotalSize    int    `json:"total_size"`
	ChunksTotal  int    `json:"chunks_total"`
	ChunkCurrent int    `json:"chunk_current"`
}

// PlaybackPace is the delay between scripted moves during upload
// playback, matching the original server's ~50ms UI pacing; spec.md §9
// notes this is cosmetic and may be parameterised or omitted.
const PlaybackPace = 50 * time.Millisecond

// Controller owns the parser strategy, the single shared GameContext,
// and the per-(session,filename) upload table.
type Controller struct {
	ctx     *gamecontext.GameContext
	parser  notation.Parser
	unicast gamecontext.UnicastFunc
	log     *zap.Logger

	uploadsMu sync.Mutex
	uploads   map[string]*fileUpload
}

// New builds a Controller over ctx using the given notation parser.
// unicast is used for the playback stream a finished upload triggers,
// which happens on its own goroutine well after Route has returned.
func New(ctx *gamecontext.GameContext, parser notation.Parser, unicast gamecontext.UnicastFunc, log *zap.Logger) *Controller {
	return &Controller{
		ctx:     ctx,
		parser:  parser,
		unicast: unicast,
		log:     log,
		uploads: make(map[string]*fileUpload),
	}
}

// Route parses one wire line and returns the bytes to send back to the
// originating session, or nil if no reply is due.
func (c *Controller) Route(line []byte, sessionID string) []byte {
	var msg envelope
	if err := json.Unmarshal(line, &msg); err != nil {
		return errEnvelope("Invalid JSON format", err.Error())
	}

	switch msg.Command {
	case "upload_game":
		return c.handleUploadChunk(msg, sessionID)
	case "join_game":
		return c.ctx.HandleJoin(sessionID, msg.SinglePlayer, msg.Color)
	case "start_game":
		return c.ctx.HandleStart(sessionID)
	case "make_move":
		return c.handleMove(sessionID, msg.Move)
	case "end_game":
		return c.ctx.HandleEnd(sessionID)
	case "display_board":
		return c.ctx.HandleDisplayBoard()
	case "get_status":
		return c.handleGetStatus()
	case "":
		if msg.Move != "" {
			return c.handleMove(sessionID, msg.Move)
		}
	}

	if c.log != nil {
		c.log.Warn("unknown command", zap.String("command", msg.Command), zap.String("session_id", sessionID))
	}
	return marshal(map[string]any{"error": "Unknown command"})
}

// Disconnect notifies the game context that sessionID is gone.
func (c *Controller) Disconnect(sessionID string) {
	c.ctx.HandleDisconnect(sessionID)

	c.uploadsMu.Lock()
	for key := range c.uploads {
		if uploadKeySession(key) == sessionID {
			delete(c.uploads, key)
		}
	}
	c.uploadsMu.Unlock()
}

func (c *Controller) handleMove(sessionID, moveStr string) []byte {
	move, ok := c.parser.ParseMove(moveStr)
	if !ok {
		return marshal(map[string]any{
			"type":        "error",
			"error":       "Couldn't parse move using " + string(c.parser.Kind()),
			"parser_used": c.parser.Kind(),
		})
	}
	return c.ctx.HandleMove(sessionID, move)
}

func (c *Controller) handleGetStatus() []byte {
	return marshal(map[string]any{"type": "status", "message": c.ctx.StatusMessage()})
}

func errEnvelope(msg, details string) []byte {
	return marshal(map[string]any{"type": "error", "error": msg, "details": details})
}

func marshal(v map[string]any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error","error":"internal server error"}`)
	}
	return payload
}
