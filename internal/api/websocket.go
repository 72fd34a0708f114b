package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/screenplay-dashboard/backend/internal/models"
	"github.com/screenplay-dashboard/backend/internal/registry"
)

// WebSocket message types for the watch protocol
const (
	// Client -> Server messages
	MsgTypeWatchPing = "watch:ping"

	// Server -> Client messages
	MsgTypeWatchInit   = "watch:init"
	MsgTypeWatchUpdate = "watch:update"
	MsgTypeWatchPong   = "watch:pong"
	MsgTypeWatchError  = "watch:error"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Watch feed snapshot payload
type WatchSnapshot struct {
	Jobs         []models.UploadJob `json:"jobs"`
	Processing   bool               `json:"processing"`
	PendingCount int                `json:"pendingCount"`
	Revision     uint64             `json:"revision"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler pushes registry changes to connected dashboards
type WebSocketHandler struct {
	registry *registry.Registry
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new watch feed handler
func NewWebSocketHandler(reg *registry.Registry) *WebSocketHandler {
	return &WebSocketHandler{
		registry: reg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024, // 64KB read buffer
			WriteBufferSize: 64 * 1024, // 64KB write buffer
		},
	}
}

// HandleWebSocket upgrades the connection and streams registry snapshots.
// The feed sends a full snapshot on connect and whenever the registry
// revision changes; inbound traffic is limited to pings.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Println("[WebSocket] Client connected to watch feed")

	rev := wsh.registry.Revision()
	wsh.sendSnapshot(ws, MsgTypeWatchInit, rev)

	// Reads happen on their own goroutine; all writes stay on this one
	inbound := make(chan string, 8)
	done := make(chan struct{})
	go wsh.readLoop(ws, inbound, done)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			fmt.Println("[WebSocket] Client disconnected from watch feed")
			return nil

		case msgType := <-inbound:
			switch msgType {
			case MsgTypeWatchPing:
				// Respond with pong to keep connection alive
				wsh.sendMessage(ws, WSMessage{Type: MsgTypeWatchPong, Timestamp: time.Now().UnixMilli()})
			default:
				wsh.sendError(ws, fmt.Sprintf("unsupported message type %q", msgType), "UNKNOWN_TYPE")
			}

		case <-ticker.C:
			if r := wsh.registry.Revision(); r != rev {
				rev = r
				wsh.sendSnapshot(ws, MsgTypeWatchUpdate, rev)
			}
		}
	}
}

// readLoop drains client messages and forwards their types to the writer
// goroutine. Closing done ends the feed.
func (wsh *WebSocketHandler) readLoop(ws *websocket.Conn, inbound chan<- string, done chan<- struct{}) {
	defer close(done)

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			return
		}

		select {
		case inbound <- msg.Type:
		default:
			// Drop rather than block the reader
		}
	}
}

func (wsh *WebSocketHandler) sendSnapshot(ws *websocket.Conn, msgType string, rev uint64) {
	wsh.sendMessage(ws, WSMessage{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WatchSnapshot{
			Jobs:         wsh.registry.Jobs(),
			Processing:   wsh.registry.IsProcessing(),
			PendingCount: wsh.registry.PendingCount(),
			Revision:     rev,
		}),
	})
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, message, code string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeWatchError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeWatchError,
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
