package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}

func TestAPI_Stream(t *testing.T) {
	hub := NewFrameHub()
	srv := New(Config{Frames: hub})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %s, want multipart/x-mixed-replace", ct)
	}

	waitFor(t, "stream viewer", func() bool { return hub.Viewers() == 1 })

	payload := []byte("not really a jpeg")
	hub.PublishJPEG(payload)

	reader := bufio.NewReader(resp.Body)
	var headers []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" && len(headers) > 0 {
			break
		}
		if line != "" {
			headers = append(headers, line)
		}
	}

	if headers[0] != "--frame" {
		t.Errorf("first line = %q, want --frame", headers[0])
	}
	if !contains(headers, "Content-Type: image/jpeg") {
		t.Errorf("part headers = %v, missing image/jpeg", headers)
	}

	body := make([]byte, len(payload))
	if _, err := io.ReadFull(reader, body); err != nil {
		t.Fatalf("reading part body: %v", err)
	}
	if string(body) != string(payload) {
		t.Errorf("part body = %q, want %q", body, payload)
	}

	cancel()
	waitFor(t, "viewer to leave", func() bool { return hub.Viewers() == 0 })
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestFrameHub_Latest(t *testing.T) {
	hub := NewFrameHub()

	if data, seq := hub.Latest(); data != nil || seq != 0 {
		t.Errorf("Latest() = (%v, %d), want empty", data, seq)
	}

	hub.PublishJPEG([]byte{1})
	hub.PublishJPEG([]byte{2})

	data, seq := hub.Latest()
	if seq != 2 || len(data) != 1 || data[0] != 2 {
		t.Errorf("Latest() = (%v, %d), want ([2], 2)", data, seq)
	}
}

func TestFrameHub_PublishWithoutViewers(t *testing.T) {
	hub := NewFrameHub()
	hub.Publish(nil)

	if _, seq := hub.Latest(); seq != 0 {
		t.Errorf("seq = %d, want 0 when nobody is watching", seq)
	}
}

func TestAPI_Events(t *testing.T) {
	hub := NewEventHub()
	srv := New(Config{Events: hub})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	waitFor(t, "websocket client", func() bool { return hub.Clients() == 1 })

	hub.Broadcast(map[string]any{"side": "left", "leftDistance": 1.5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var event struct {
		Side         string  `json:"side"`
		LeftDistance float64 `json:"leftDistance"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
	if event.Side != "left" || event.LeftDistance != 1.5 {
		t.Errorf("event = %+v", event)
	}

	conn.Close()
	waitFor(t, "client removal", func() bool { return hub.Clients() == 0 })
}

func TestEventHub_Close(t *testing.T) {
	hub := NewEventHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, "websocket client", func() bool { return hub.Clients() == 1 })
	hub.Close()

	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d after Close, want 0", hub.Clients())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read error after hub close")
	}
}

func TestEventHub_SlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewEventHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, "websocket client", func() bool { return hub.Clients() == 1 })

	// The client never reads, so socket buffers fill and writes stall.
	payload := map[string]string{"pad": strings.Repeat("x", 64<<10)}
	start := time.Now()
	for i := 0; i < 400; i++ {
		hub.Broadcast(payload)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Broadcast took %v with a stalled client", elapsed)
	}

	waitFor(t, "slow client drop", func() bool { return hub.Clients() == 0 })
}

func TestServer_ListenAndServe_Shutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	srv := New(Config{Frames: NewFrameHub(), Events: NewEventHub()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	waitFor(t, "server to accept", func() bool {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})

	// An open stream must not hold up shutdown.
	resp, err := http.Get("http://" + addr + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("ListenAndServe() did not return after cancel")
	}
}
