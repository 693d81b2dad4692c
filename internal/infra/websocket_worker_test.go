package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// captureHandler records worker callbacks, standing in for a market feed.
type captureHandler struct {
	url      string
	connects int32
	frames   int32
}

func (h *captureHandler) GetURL() string { return h.url }
func (h *captureHandler) ID() string     { return "kline_test" }

func (h *captureHandler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	atomic.AddInt32(&h.connects, 1)
	return nil
}

func (h *captureHandler) OnMessage(ctx context.Context, msg []byte) {
	atomic.AddInt32(&h.frames, 1)
}

func (h *captureHandler) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

// startKlineServer runs a throwaway WS endpoint and returns its ws:// URL.
func startKlineServer(t *testing.T, serve func(*websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestBaseWSWorker_DeliversFrames(t *testing.T) {
	url := startKlineServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"kline","symbol":"BTCUSDT","close":"100","closed":true}`))
		time.Sleep(100 * time.Millisecond)
	})

	handler := &captureHandler{url: url}
	worker := NewBaseWSWorker(handler)
	worker.ReadTimeout = 500 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	worker.Start(ctx)
	time.Sleep(200 * time.Millisecond)
	worker.Stop()

	if atomic.LoadInt32(&handler.connects) == 0 {
		t.Error("OnConnect never fired")
	}
	if atomic.LoadInt32(&handler.frames) == 0 {
		t.Error("the kline frame never reached OnMessage")
	}
}

func TestBaseWSWorker_StopReturnsPromptly(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	url := startKlineServer(t, func(conn *websocket.Conn) {
		<-hold
	})

	worker := NewBaseWSWorker(&captureHandler{url: url})
	worker.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Stop did not return while the server held the connection open")
	}
}

func TestBaseWSWorker_WriteReachesTheServer(t *testing.T) {
	received := make(chan []byte, 1)
	url := startKlineServer(t, func(conn *websocket.Conn) {
		if _, msg, err := conn.ReadMessage(); err == nil {
			received <- msg
		}
		time.Sleep(100 * time.Millisecond)
	})

	worker := NewBaseWSWorker(&captureHandler{url: url})
	worker.Start(context.Background())
	defer worker.Stop()
	time.Sleep(100 * time.Millisecond)

	subscribe := []byte(`{"op":"subscribe","channel":"kline","symbols":["BTCUSDT"]}`)
	if err := worker.Write(websocket.TextMessage, subscribe); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg) != string(subscribe) {
			t.Errorf("server received %s, want %s", msg, subscribe)
		}
	case <-time.After(time.Second):
		t.Error("subscription never reached the server")
	}
}
