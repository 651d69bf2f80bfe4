package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trustmed/core"
	"trustmed/events/ui"
)

const answer = "* Cells ignore the insulin signal\n* Blood sugar stays high\n---\nNot medical advice."

func init() {
	gin.SetMode(gin.TestMode)
}

func postSpeech(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/speech", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSpeechPreview(t *testing.T) {
	router := NewRouter(Opts{})
	body, _ := json.Marshal(speechRequest{Text: answer, Mode: "summary"})

	w := postSpeech(t, router, string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var got speechResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if want := "Here are the key points: Cells ignore the insulin signal, Blood sugar stays high."; got.Summary != want {
		t.Errorf("summary = %q, want %q", got.Summary, want)
	}
	if want := "Cells ignore the insulin signal. Blood sugar stays high."; got.Full != want {
		t.Errorf("full = %q, want %q", got.Full, want)
	}
	if got.Spoken != got.Summary {
		t.Errorf("spoken = %q, want the summary", got.Spoken)
	}
}

func TestSpeechPreviewRejectsBadInput(t *testing.T) {
	router := NewRouter(Opts{})
	cases := map[string]string{
		"not json":   `{`,
		"blank text": `{"text":"   "}`,
		"bad mode":   `{"text":"hi","mode":"whisper"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if w := postSpeech(t, router, body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	router := NewRouter(Opts{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body)
	}
}

type echoSession struct {
	client *core.Client
}

func (s *echoSession) HandleInput(ev core.IExternalInputEvent) {
	if submit, ok := ev.(*ui.SubmitEvent); ok {
		s.client.Send(&core.WarningEvent{Error: "echo: " + submit.Text})
	}
}

func (s *echoSession) Close() {}

type echoHandler struct{}

func (echoHandler) OnConnect(client *core.Client) (core.ClientSession, error) {
	return &echoSession{client: client}, nil
}

func TestWebSocketRoute(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := core.NewExternalEventHandler(echoHandler{}, core.Discard())
	bridge.RegisterInputEvent("ui.submit", func() core.IExternalInputEvent { return &ui.SubmitEvent{} })
	bridge.Initialize(ctx)

	srv := httptest.NewServer(NewRouter(Opts{Bridge: bridge}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ui.submit","payload":{"text":"hello"}}`)); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"type":"shared.warning"`) || !strings.Contains(string(data), "echo: hello") {
		t.Errorf("frame = %s", data)
	}
}

func TestStartRequiresBridge(t *testing.T) {
	if err := Start(context.Background(), Opts{}); err == nil {
		t.Fatal("expected error without bridge")
	}
}
