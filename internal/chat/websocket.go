package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/saifsoomro/gemini-chat-assistant/internal/identity"
)

// Frame types exchanged with the browser.
const (
	frameMessage        = "message"
	framePing           = "ping"
	framePong           = "pong"
	frameMessageSent    = "message_sent"
	frameMessageUpdated = "message_updated"
	frameError          = "error"
)

// maxFrameBytes bounds one client frame. A larger frame closes the
// connection with StatusMessageTooBig and ends the session.
const maxFrameBytes = 1 << 20

// WebSocketHandler serves one chat session per WebSocket connection.
type WebSocketHandler struct {
	assistant     *Assistant
	sm            *SessionManager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(assistant *Assistant, sm *SessionManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		assistant:     assistant,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// clientFrame is a frame sent by the browser.
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// serverFrame is a frame sent to the browser.
type serverFrame struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// wsUI renders session messages as JSON frames on a websocket.
type wsUI struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (u *wsUI) SendMessage(ctx context.Context, msg Message) error {
	return u.write(ctx, serverFrame{Type: frameMessageSent, Message: &msg})
}

func (u *wsUI) UpdateMessage(ctx context.Context, msg Message) error {
	return u.write(ctx, serverFrame{Type: frameMessageUpdated, Message: &msg})
}

func (u *wsUI) write(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn.Write(ctx, websocket.MessageText, data)
}

// Close implements Closer.
func (u *wsUI) Close(reason string) {
	_ = u.conn.Close(websocket.StatusNormalClosure, reason)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	tabID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request",
		"user_id", userID,
		"username", identity.UsernameFromContext(r.Context()),
		"tab_id", tabID,
		"ip", identity.IPFromRequest(r),
	)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ws.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ui := &wsUI{conn: ws}
	sess, err := h.assistant.StartSession(ctx, ui, userID)
	if err != nil {
		slog.Error("Failed to start chat session", "error", err, "user_id", userID)
		if err := ui.write(ctx, serverFrame{Type: frameError, Error: "session_start_failed"}); err != nil {
			slog.Debug("Failed to send session_start_failed error", "error", err)
		}
		return
	}

	h.sm.Register(userID, tabID, sess, ui)
	defer h.sm.Unregister(userID, tabID, sess)

	h.readLoop(ctx, ws, ui, sess)
	slog.Info("Chat session ended", "user_id", userID, "session_id", sess.ID, "turns", len(sess.History))
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// readLoop handles frames one at a time, so a session never has two
// messages in flight.
func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, ui *wsUI, sess *Session) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sess.ID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sess.ID)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Debug("Ignoring malformed frame", "error", err, "session_id", sess.ID)
			continue
		}

		switch frame.Type {
		case frameMessage:
			if strings.TrimSpace(frame.Content) == "" {
				continue
			}
			if err := h.assistant.HandleMessage(ctx, sess, frame.Content); err != nil {
				slog.Warn("Failed to deliver reply", "error", err, "session_id", sess.ID)
				return
			}
		case framePing:
			if err := ui.write(ctx, serverFrame{Type: framePong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			slog.Debug("Ignoring unknown frame type", "type", frame.Type, "session_id", sess.ID)
		}
	}
}
