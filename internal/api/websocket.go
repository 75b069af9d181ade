package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/models"
)

// WebSocket message types for the simulate protocol
const (
	// Client -> Server messages
	MsgTypeSimulate = "simulate"
	MsgTypePing     = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeAccepted  = "accepted"
	MsgTypeResult    = "result"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	defaultWSReadLimit = 64 * 1024
	wsWriteTimeout     = 30 * time.Second
)

// WSMessage is a client message. Payload holds a SimulationRequest for
// simulate messages.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSResponse is a server message.
type WSResponse struct {
	Type      string `json:"type" msgpack:"type"`
	ID        string `json:"id,omitempty" msgpack:"id,omitempty"`
	Payload   any    `json:"payload,omitempty" msgpack:"payload,omitempty"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
}

// WSErrorPayload describes a failed request.
type WSErrorPayload struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
	Op      string `json:"op,omitempty" msgpack:"op,omitempty"`
}

// WebSocketHandler serves simulation requests over a WebSocket. Each
// connection runs at most one simulation at a time.
type WebSocketHandler struct {
	sim       Simulator
	log       logging.Logger
	upgrader  websocket.Upgrader
	readLimit int64
}

// NewWebSocketHandler creates a new WebSocket simulate handler.
// maxMessageKB bounds the size of client messages; zero uses 64KB.
func NewWebSocketHandler(sim Simulator, maxMessageKB int, log logging.Logger) *WebSocketHandler {
	if log == nil {
		log = logging.Noop()
	}
	limit := int64(defaultWSReadLimit)
	if maxMessageKB > 0 {
		limit = int64(maxMessageKB) * 1024
	}
	return &WebSocketHandler{
		sim: sim,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		readLimit: limit,
	}
}

// wsConn serialises writes to one connection.
type wsConn struct {
	ws      *websocket.Conn
	binary  bool
	writeMu sync.Mutex
}

func (c *wsConn) send(msg WSResponse) error {
	msg.Timestamp = time.Now().UnixMilli()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if !c.binary {
		return c.ws.WriteJSON(msg)
	}
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) sendError(id string, err *APIError) error {
	return c.send(WSResponse{
		Type:    MsgTypeError,
		ID:      id,
		Payload: WSErrorPayload{Code: err.Code, Message: err.Message, Op: err.Op},
	})
}

// HandleWebSocket upgrades the connection and answers simulate and ping
// messages until the client goes away.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsh.readLimit)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	log := logging.FromContext(ctx, wsh.log)

	conn := &wsConn{ws: ws, binary: wantsMsgpack(c)}
	log.Info(ctx, "websocket client connected", logging.Bool("msgpack", conn.binary))
	_ = conn.send(WSResponse{Type: MsgTypeConnected})

	var (
		wg   sync.WaitGroup
		busy = make(chan struct{}, 1)
	)
	defer wg.Wait()

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn(ctx, "websocket connection error", logging.Err(err))
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			_ = conn.send(WSResponse{Type: MsgTypePong, ID: msg.ID})
		case MsgTypeSimulate:
			var req models.SimulationRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				_ = conn.sendError(msg.ID, NewBadRequestError("invalid simulate payload", err))
				continue
			}
			select {
			case busy <- struct{}{}:
			default:
				_ = conn.sendError(msg.ID, &APIError{Code: "BUSY", Message: "a simulation is already running"})
				continue
			}
			_ = conn.send(WSResponse{Type: MsgTypeAccepted, ID: msg.ID})

			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				defer func() { <-busy }()
				wsh.simulate(ctx, conn, id, req)
			}(msg.ID)
		default:
			_ = conn.sendError(msg.ID, &APIError{Code: "INVALID_TYPE", Message: "unknown message type: " + msg.Type})
		}
	}

	cancel()
	log.Info(ctx, "websocket client disconnected")
	return nil
}

func (wsh *WebSocketHandler) simulate(ctx context.Context, conn *wsConn, id string, req models.SimulationRequest) {
	result, err := wsh.sim.Run(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		_ = conn.sendError(id, FromError(err))
		return
	}
	if err := conn.send(WSResponse{Type: MsgTypeResult, ID: id, Payload: result}); err != nil {
		logging.FromContext(ctx, wsh.log).Warn(ctx, "failed to send simulation result",
			logging.String("id", result.Metadata.ID), logging.Err(err))
	}
}
