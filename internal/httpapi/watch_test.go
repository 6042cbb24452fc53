package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func dialWatch(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, baseURL+"/v1/watch", nil)
	if err != nil {
		t.Fatalf("dial watch: %v", err)
	}
	return conn
}

func waitForWatchers(t *testing.T, srv *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.WatcherCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("watcher count = %d, want %d", srv.WatcherCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readPush(t *testing.T, conn *websocket.Conn) itemsResponse {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read push: %v", err)
	}
	var resp itemsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode push: %v\n%s", err, data)
	}
	return resp
}

func TestServer_WatchPushesAfterFetch(t *testing.T) {
	srv, _, ts := newTestServer(t)

	conn := dialWatch(t, ts.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForWatchers(t, srv, 1)

	status, _ := doRequest(t, http.MethodPost, ts.URL+"/v1/fetch", "")
	if status != http.StatusOK {
		t.Fatalf("fetch status = %d, want %d", status, http.StatusOK)
	}

	push := readPush(t, conn)
	if len(push.Items) != 6 {
		t.Fatalf("push carried %d items, want 6", len(push.Items))
	}
	for _, it := range push.Items {
		if it.Ranking == nil {
			t.Errorf("pushed item %s has no ranking", it.Key)
		}
	}

	// Direct notifications reach the client too.
	srv.NotifyFetchComplete()
	if again := readPush(t, conn); len(again.Items) != 6 {
		t.Errorf("second push carried %d items, want 6", len(again.Items))
	}
}

func TestServer_WatchMultipleClients(t *testing.T) {
	srv, _, ts := newTestServer(t)

	first := dialWatch(t, ts.URL)
	defer first.Close(websocket.StatusNormalClosure, "")
	second := dialWatch(t, ts.URL)
	defer second.Close(websocket.StatusNormalClosure, "")
	waitForWatchers(t, srv, 2)

	srv.NotifyFetchComplete()

	if push := readPush(t, first); len(push.Items) != 6 {
		t.Errorf("first client got %d items, want 6", len(push.Items))
	}
	if push := readPush(t, second); len(push.Items) != 6 {
		t.Errorf("second client got %d items, want 6", len(push.Items))
	}
}

func TestServer_WatchDisconnectCleanup(t *testing.T) {
	srv, _, ts := newTestServer(t)

	conn := dialWatch(t, ts.URL)
	waitForWatchers(t, srv, 1)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForWatchers(t, srv, 0)

	// Notifying with no clients is a no-op.
	srv.NotifyFetchComplete()
}
