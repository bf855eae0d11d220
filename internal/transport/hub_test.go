package transport

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// newHubClient builds a client wired for hub bookkeeping only; tests
// that never start the pumps do not need a live connection.
func newHubClient(h *Hub, remote string) *client {
	return &client{hub: h, remote: remote, send: make(chan []byte, 1)}
}

// A browser reload drops one connection while opening another. The
// pause from the drop and the resume from the reconnect must reach the
// scheduler in the order the hub decided them, or the engine ends up
// paused with a viewer attached.
func TestPresenceCallbackOrder(t *testing.T) {
	h := NewHub(zap.NewNop())

	var mu sync.Mutex
	var calls []string
	h.OnPresence(
		func() {
			mu.Lock()
			calls = append(calls, "resume")
			mu.Unlock()
		},
		func() {
			// A pause that takes a moment must still land before any
			// later transition's callback.
			time.Sleep(30 * time.Millisecond)
			mu.Lock()
			calls = append(calls, "pause")
			mu.Unlock()
		},
	)

	a := newHubClient(h, "10.0.0.1:1111")
	if !h.register(a) {
		t.Fatal("register() = false")
	}

	done := make(chan struct{})
	go func() {
		h.unregister(a)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)

	b := newHubClient(h, "10.0.0.1:2222")
	if !h.register(b) {
		t.Fatal("register() = false")
	}
	<-done

	if n := h.ClientCount(); n != 1 {
		t.Fatalf("ClientCount() = %d, want 1", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) == 0 || calls[len(calls)-1] != "resume" {
		t.Fatalf("callbacks = %v, want to end with resume while a client is attached", calls)
	}
}

func TestSendAfterClose(t *testing.T) {
	h := NewHub(zap.NewNop())

	c := newHubClient(h, "10.0.0.1:3333")
	if !h.register(c) {
		t.Fatal("register() = false")
	}
	h.Close()

	// The shutdown already closed the client's channel; a late snapshot
	// for it is dropped, not delivered.
	h.send(c, []byte("{}"))

	if _, ok := <-c.send; ok {
		t.Error("payload delivered after close")
	}
	if h.register(newHubClient(h, "10.0.0.1:4444")) {
		t.Error("register() accepted a client after close")
	}
}
