package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/saifsoomro/gemini-chat-assistant/internal/config"
	"github.com/saifsoomro/gemini-chat-assistant/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini speaks the chat-completions wire format.
func fakeGemini(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		reply := "Happy to help."
		if last := req.Messages[len(req.Messages)-1]; strings.Contains(last.Content, "created you") {
			reply = "I was created by **Saif Soomro**."
		}
		content, _ := json.Marshal(reply)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c","object":"chat.completion","created":1,"model":"gemini-2.0-flash",` +
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + string(content) + `}}],` +
			`"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func startChatServer(t *testing.T, baseURL string) (*httptest.Server, *SessionManager) {
	t.Helper()
	a, err := NewAssistant(config.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   config.DefaultModel,
	})
	require.NoError(t, err)

	sm := NewSessionManager()
	handler := identity.Middleware(true)(NewWebSocketHandler(a, sm, "", true))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, sm
}

func dialChat(t *testing.T, ctx context.Context, srv *httptest.Server, tabID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?session_id=" + tabID
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) serverFrame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame serverFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, frame clientFrame) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestWebSocketChatFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gemini := fakeGemini(t)
	srv, sm := startChatServer(t, gemini.URL)
	conn := dialChat(t, ctx, srv, "tab-1")

	welcome := readFrame(t, ctx, conn)
	assert.Equal(t, frameMessageSent, welcome.Type)
	require.NotNil(t, welcome.Message)
	assert.Equal(t, WelcomeMessage, welcome.Message.Content)

	sendFrame(t, ctx, conn, clientFrame{Type: framePing})
	assert.Equal(t, framePong, readFrame(t, ctx, conn).Type)

	sendFrame(t, ctx, conn, clientFrame{Type: frameMessage, Content: "Who created you?"})

	placeholder := readFrame(t, ctx, conn)
	assert.Equal(t, frameMessageSent, placeholder.Type)
	assert.Equal(t, thinkingText, placeholder.Message.Content)

	reply := readFrame(t, ctx, conn)
	assert.Equal(t, frameMessageUpdated, reply.Type)
	assert.Equal(t, placeholder.Message.ID, reply.Message.ID)
	assert.Contains(t, reply.Message.Content, "Saif Soomro")

	assert.Equal(t, 1, sm.Count())
}

func TestWebSocketRemoteFailureKeepsSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	srv, _ := startChatServer(t, downURL)
	conn := dialChat(t, ctx, srv, "tab-1")
	readFrame(t, ctx, conn)

	for i := 0; i < 2; i++ {
		sendFrame(t, ctx, conn, clientFrame{Type: frameMessage, Content: "hello"})
		assert.Equal(t, thinkingText, readFrame(t, ctx, conn).Message.Content)

		reply := readFrame(t, ctx, conn)
		assert.Equal(t, frameMessageUpdated, reply.Type)
		assert.True(t, strings.HasPrefix(reply.Message.Content, "Error: "), "got %q", reply.Message.Content)
	}
}

func TestWebSocketIgnoresBlankAndMalformedFrames(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gemini := fakeGemini(t)
	srv, _ := startChatServer(t, gemini.URL)
	conn := dialChat(t, ctx, srv, "tab-1")
	readFrame(t, ctx, conn)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	sendFrame(t, ctx, conn, clientFrame{Type: frameMessage, Content: "   "})
	sendFrame(t, ctx, conn, clientFrame{Type: "typing"})
	sendFrame(t, ctx, conn, clientFrame{Type: framePing})

	assert.Equal(t, framePong, readFrame(t, ctx, conn).Type)
}

func TestWebSocketAcceptsLongMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gemini := fakeGemini(t)
	srv, _ := startChatServer(t, gemini.URL)
	conn := dialChat(t, ctx, srv, "tab-1")
	readFrame(t, ctx, conn)

	sendFrame(t, ctx, conn, clientFrame{Type: frameMessage, Content: strings.Repeat("a", 64<<10)})
	assert.Equal(t, thinkingText, readFrame(t, ctx, conn).Message.Content)

	reply := readFrame(t, ctx, conn)
	assert.Equal(t, frameMessageUpdated, reply.Type)
	assert.Equal(t, "Happy to help.", reply.Message.Content)
}

func TestWebSocketOversizedFrameEndsSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gemini := fakeGemini(t)
	srv, sm := startChatServer(t, gemini.URL)
	conn := dialChat(t, ctx, srv, "tab-1")
	readFrame(t, ctx, conn)

	data, err := json.Marshal(clientFrame{Type: frameMessage, Content: strings.Repeat("a", maxFrameBytes)})
	require.NoError(t, err)
	// The server may close before the whole frame is written.
	_ = conn.Write(ctx, websocket.MessageText, data)

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusMessageTooBig, websocket.CloseStatus(err))
	assert.Eventually(t, func() bool { return sm.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWebSocketSessionUnregisteredOnClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gemini := fakeGemini(t)
	srv, sm := startChatServer(t, gemini.URL)
	conn := dialChat(t, ctx, srv, "tab-1")
	readFrame(t, ctx, conn)
	require.Equal(t, 1, sm.Count())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	assert.Eventually(t, func() bool { return sm.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	h := &WebSocketHandler{allowedOrigin: "https://chat.example.com"}

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://chat.example.com")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.checkOrigin(req))

	h.isDev = true
	assert.True(t, h.checkOrigin(req))
}
