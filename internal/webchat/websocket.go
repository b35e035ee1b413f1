// Package webchat serves the browser chat channel over WebSocket.
package webchat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/askarihq/patrolbot/internal/format"
	"github.com/askarihq/patrolbot/internal/identity"
	"github.com/coder/websocket"
)

const (
	writeTimeout = 10 * time.Second
	turnTimeout  = 2 * time.Minute
)

// Responder produces the reply text for one inbound message.
type Responder interface {
	HandleMessage(ctx context.Context, id, text string) string
}

// TurnGuard serializes turns per conversation identifier.
type TurnGuard interface {
	TryBeginTurn(id string) bool
	EndTurn(id string)
}

// Handler upgrades /ws/chat requests and relays messages between the
// browser and the conversation engine.
type Handler struct {
	responder     Responder
	guard         TurnGuard
	profile       format.Profile
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// NewHandler creates a WebSocket chat handler.
func NewHandler(responder Responder, guard TurnGuard, profile format.Profile, allowedOrigin string, isDev bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		responder:     responder,
		guard:         guard,
		profile:       profile,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
	}
}

// inbound is a client frame.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// outbound is a server frame. Chunks for one reply share ascending Seq
// values; Last marks the final chunk of the reply.
type outbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Seq     int    `json:"seq,omitempty"`
	Last    bool   `json:"last,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conversationID := identity.ConversationIDFromContext(r.Context())
	if conversationID == "" {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "conversation_id", conversationID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	h.logger.Info("Web chat connected", "conversation_id", conversationID, "ip", r.RemoteAddr)

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			h.logger.Debug("Web chat read ended", "conversation_id", conversationID, "error", err)
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "message" {
			h.writeFrame(ctx, ws, outbound{Type: "error", Content: "unsupported frame"})
			continue
		}

		h.handleTurn(ctx, ws, conversationID, msg.Content)
	}
}

// handleTurn runs one turn synchronously so chunk ordering on the socket
// matches display order.
func (h *Handler) handleTurn(ctx context.Context, ws *websocket.Conn, conversationID, text string) {
	if !h.guard.TryBeginTurn(conversationID) {
		h.writeFrame(ctx, ws, outbound{Type: "busy", Content: "Still processing your previous message."})
		return
	}
	defer h.guard.EndTurn(conversationID)

	turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	reply := h.responder.HandleMessage(turnCtx, conversationID, text)
	chunks := format.Format(reply, h.profile)
	for i, chunk := range chunks {
		h.writeFrame(ctx, ws, outbound{
			Type:    "chunk",
			Content: chunk,
			Seq:     i,
			Last:    i == len(chunks)-1,
		})
	}
}

func (h *Handler) writeFrame(ctx context.Context, ws *websocket.Conn, frame outbound) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to encode frame", "error", err)
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(wctx, websocket.MessageText, data); err != nil {
		h.logger.Debug("WebSocket write error", "error", err)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	allowed, err := url.Parse(h.allowedOrigin)
	if err != nil {
		return false
	}
	return parsed.Host == allowed.Host
}
