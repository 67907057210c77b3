package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// headServer confirms one newHeads subscription and pushes the given heads.
func headServer(t *testing.T, heads []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "eth_subscribe" || len(req.Params) != 1 || req.Params[0] != "newHeads" {
			t.Errorf("unexpected subscribe request: %+v", req)
			return
		}

		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0xabc"})
		for _, number := range heads {
			c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "eth_subscription",
				"params": map[string]interface{}{
					"subscription": "0xabc",
					"result": map[string]interface{}{
						"number":    number,
						"hash":      "0x01",
						"timestamp": "0x6259c4c0",
					},
				},
			})
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_SubscribeNewHeads(t *testing.T) {
	server := headServer(t, []string{"0x10", "0x11"})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	heads, err := client.SubscribeNewHeads(ctx)
	if err != nil {
		t.Fatalf("SubscribeNewHeads: %v", err)
	}

	var got []uint64
	for len(got) < 2 {
		select {
		case h := <-heads:
			got = append(got, h.Number)
			if h.Timestamp != 1650050240 {
				t.Errorf("unexpected timestamp %d", h.Timestamp)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for heads, got %v", got)
		}
	}
	if got[0] != 16 || got[1] != 17 {
		t.Errorf("expected heads [16 17], got %v", got)
	}
}

func TestWSClient_CloseClosesSubscriptions(t *testing.T) {
	server := headServer(t, nil)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	heads, err := client.SubscribeNewHeads(ctx)
	if err != nil {
		t.Fatalf("SubscribeNewHeads: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-heads:
		if ok {
			t.Error("expected closed channel")
		}
	case <-ctx.Done():
		t.Fatal("subscription channel not closed")
	}

	if _, err := client.SubscribeNewHeads(ctx); err == nil {
		t.Error("expected error subscribing on closed client")
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewWSClient(ctx, "ws://127.0.0.1:1", nil); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWSClient_ClosesSubscriptionsWhenRedialFails(t *testing.T) {
	drop := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		var req wsRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0xabc"})
		<-drop
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server), &WSClientConfig{
		ReconnectDelay:       10 * time.Millisecond,
		MaxReconnectDelay:    20 * time.Millisecond,
		MaxReconnectAttempts: 3,
		PingInterval:         time.Hour,
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         time.Second,
		SubscribeTimeout:     time.Second,
	})
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	heads, err := client.SubscribeNewHeads(ctx)
	if err != nil {
		t.Fatalf("SubscribeNewHeads: %v", err)
	}

	// Stop accepting connections, then drop the live one.
	server.Close()
	close(drop)

	select {
	case _, ok := <-heads:
		if ok {
			t.Error("expected closed channel")
		}
	case <-ctx.Done():
		t.Fatal("subscription channel not closed after redials failed")
	}

	if _, err := client.SubscribeNewHeads(ctx); err == nil {
		t.Error("expected error subscribing on abandoned client")
	}
}
