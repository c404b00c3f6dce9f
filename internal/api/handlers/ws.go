package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/query"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/logger"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket message types
const (
	MessageGenerateDesign = "generate_design"
	MessageGenerateModel  = "generate_model"
	MessageQuery          = "query"
	MessagePing           = "ping"

	EventDesign      = "design"
	EventModel       = "model"
	EventQueryResult = "query_result"
	EventPong        = "pong"
	EventError       = "error"
	EventTextDelta   = "text_delta"
)

const (
	wsReadLimit    = 1 << 20
	wsWriteTimeout = 10 * time.Second
)

// ServerEvent is every message the server sends over the socket
type ServerEvent struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type WSHandler struct {
	upgrader websocket.Upgrader
	design   *services.DesignService
	query    *QueryHandler
}

// NewWSHandler creates the socket handler. origins limits the Origin header;
// empty or "*" accepts any origin.
func NewWSHandler(design *services.DesignService, q *QueryHandler, origins []string) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(origins)},
		design:   design,
		query:    q,
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// Serve handles GET /ws. Messages on one connection are answered in order;
// generate_model and query send text_delta events ahead of their result while
// the LLM streams.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warn("WebSocket upgrade failed: "+err.Error(), logger.WithContext(c))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	fields := logger.WithContext(c)
	logger.Info("WebSocket connected", fields)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("WebSocket read failed: "+err.Error(), fields)
			}
			logger.Info("WebSocket disconnected", fields)
			return
		}

		send := func(event ServerEvent) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			return conn.WriteJSON(event)
		}
		if err := send(h.dispatch(c, raw, send)); err != nil {
			logger.Warn("WebSocket write failed: "+err.Error(), fields)
			return
		}
	}
}

func (h *WSHandler) dispatch(c *gin.Context, raw []byte, send func(ServerEvent) error) ServerEvent {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ServerEvent{Type: EventError, Message: fmt.Sprintf("invalid message: %v", err)}
	}

	ctx := c.Request.Context()
	switch envelope.Type {
	case MessagePing:
		return ServerEvent{Type: EventPong}

	case MessageGenerateDesign:
		var req services.DesignRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorEvent(err)
		}
		req.Action = services.ActionGenerateDesign
		result, err := h.design.GenerateDesign(ctx, &req)
		if err != nil {
			return errorEvent(err)
		}
		return ServerEvent{Type: EventDesign, Message: result.Message, Data: result}

	case MessageGenerateModel:
		var req services.ModelRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorEvent(err)
		}
		result, err := h.design.GenerateModelStream(ctx, &req, forwardDeltas(send))
		if err != nil {
			return errorEvent(err)
		}
		return ServerEvent{Type: EventModel, Message: modelSuccessMessage, Data: result}

	case MessageQuery:
		var req query.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorEvent(err)
		}
		result, err := h.query.answerStream(c, &req, forwardDeltas(send))
		if err != nil {
			return errorEvent(err)
		}
		return ServerEvent{Type: EventQueryResult, Message: result.Response, Data: result}

	case "":
		return errorEvent(errors.New("message type is required"))
	default:
		return errorEvent(fmt.Errorf("unknown message type %q", envelope.Type))
	}
}

// forwardDeltas relays LLM text deltas to the socket. A failed write stops the
// stream.
func forwardDeltas(send func(ServerEvent) error) llm.StreamCallback {
	return func(event llm.StreamEvent) error {
		if event.Type != llm.EventTextDelta {
			return nil
		}
		return send(ServerEvent{Type: EventTextDelta, Message: event.Message})
	}
}

func errorEvent(err error) ServerEvent {
	return ServerEvent{
		Type:    EventError,
		Message: err.Error(),
		Data:    gin.H{"status": statusFor(err)},
	}
}
