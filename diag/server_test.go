package diag

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"partyframes/overlay"
)

type fakeSnapshotter struct {
	mu   sync.Mutex
	snap overlay.Snapshot
}

func (f *fakeSnapshotter) Snapshot() overlay.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSnapshotter) set(snap overlay.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func dialTest(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) overlay.Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap overlay.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return snap
}

func TestServerStreamsSnapshots(t *testing.T) {
	fake := &fakeSnapshotter{}
	fake.set(overlay.Snapshot{Generation: 3, Pending: 2})

	srv := NewServer(fake)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialTest(t, ts)
	defer conn.Close()

	initial := readSnapshot(t, conn)
	if initial.Generation != 3 || initial.Pending != 2 {
		t.Fatalf("unexpected initial snapshot: %+v", initial)
	}
	if got := srv.Subscribers(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	fake.set(overlay.Snapshot{Generation: 4})
	srv.Broadcast()

	next := readSnapshot(t, conn)
	if next.Generation != 4 {
		t.Fatalf("expected broadcast snapshot, got %+v", next)
	}
}

func TestServerDropsClosedSubscribers(t *testing.T) {
	fake := &fakeSnapshotter{}
	srv := NewServer(fake)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialTest(t, ts)
	readSnapshot(t, conn)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not dropped after close, still %d", srv.Subscribers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServerRunStopsOnSignal(t *testing.T) {
	fake := &fakeSnapshotter{}
	srv := NewServer(fake)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		srv.Run(stop, 10*time.Millisecond)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after stop")
	}
}
