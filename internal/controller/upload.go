package controller

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// fileUpload accumulates one in-flight (session, filename) upload.
// Grounded on the original server's FileUploadState
// (controllers/GameController.hpp) keyed the same way.
type fileUpload struct {
	filename    string
	totalSize   int
	chunksTotal int
	received    int
	data        []byte
}

func uploadKey(sessionID, filename string) string {
	return sessionID + ":" + filename
}

func uploadKeySession(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}

func (c *Controller) handleUploadChunk(msg envelope, sessionID string) []byte {
	if msg.Metadata == nil {
		return errEnvelope("Invalid upload chunk format", "missing metadata")
	}
	meta := *msg.Metadata

	if meta.ChunksTotal <= 0 || meta.ChunkCurrent < 1 || meta.ChunkCurrent > meta.ChunksTotal || meta.TotalSize < 0 {
		return errEnvelope("Invalid upload chunk format", "chunk_current out of range")
	}

	key := uploadKey(sessionID, meta.Filename)

	c.uploadsMu.Lock()
	upload, exists := c.uploads[key]
	if meta.ChunkCurrent == 1 || !exists {
		upload = &fileUpload{
			filename:    meta.Filename,
			totalSize:   meta.TotalSize,
			chunksTotal: meta.ChunksTotal,
			data:        make([]byte, 0, meta.TotalSize),
		}
		c.uploads[key] = upload
	}
	upload.data = append(upload.data, msg.Data...)
	upload.received = meta.ChunkCurrent
	c.uploadsMu.Unlock()

	if meta.ChunkCurrent < meta.ChunksTotal {
		percent := meta.ChunkCurrent * 100 / meta.ChunksTotal
		return marshal(map[string]any{
			"type":           "upload_progress",
			"filename":       meta.Filename,
			"chunk_received": meta.ChunkCurrent,
			"chunks_total":   meta.ChunksTotal,
			"percent":        percent,
		})
	}

	c.uploadsMu.Lock()
	delete(c.uploads, key)
	c.uploadsMu.Unlock()

	go c.playback(sessionID, upload)

	return nil
}

// playback replays an uploaded game move-by-move through the shared
// GameContext, unicasting each result to the uploading session, then
// unicasting a terminal game_over envelope if the game reached a
// terminal position. Grounded on GameController::handleFileUploadChunk's
// scripted move loop.
func (c *Controller) playback(sessionID string, upload *fileUpload) {
	moves, ok := c.parser.ParseGame(string(upload.data))
	if !ok {
		c.send(sessionID, map[string]any{
			"type":        "game_complete",
			"filename":    upload.filename,
			"total_moves": 0,
			"error":       "No valid moves found. Check file format.",
		})
		return
	}

	requested := len(moves)
	played := 0
	var lastReport struct {
		checkmate bool
		stalemate bool
	}

	for _, move := range moves {
		resp := c.ctx.HandleMove(sessionID, move)
		c.sendRaw(sessionID, resp)

		var parsed struct {
			Type  string `json:"type"`
			Error string `json:"error"`
			Strike struct {
				Checkmate bool `json:"checkmate"`
				Stalemate bool `json:"stalemate"`
			} `json:"strike"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			break
		}
		if parsed.Type == "error" {
			if c.log != nil {
				c.log.Warn("playback stopped on invalid move", zap.String("session_id", sessionID), zap.Int("move", played+1))
			}
			break
		}

		played++
		lastReport.checkmate = parsed.Strike.Checkmate
		lastReport.stalemate = parsed.Strike.Stalemate

		if lastReport.checkmate || lastReport.stalemate {
			break
		}
		time.Sleep(PlaybackPace)
	}

	if lastReport.checkmate || lastReport.stalemate {
		result := "stalemate"
		if lastReport.checkmate {
			result = "checkmate"
		}
		c.send(sessionID, map[string]any{
			"type":            "game_over",
			"result":          result,
			"filename":        upload.filename,
			"total_moves":     played,
			"requested_moves": requested,
		})
	}
}

func (c *Controller) send(sessionID string, body map[string]any) {
	c.sendRaw(sessionID, marshal(body))
}

func (c *Controller) sendRaw(sessionID string, payload []byte) {
	if c.unicast == nil {
		return
	}
	c.unicast(sessionID, payload)
}
