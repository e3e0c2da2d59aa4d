package hub

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// testClient registers a client without a real websocket connection.
// The pumps never run, so broadcasts accumulate in the send channel.
func testClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := New("test")
	go h.Run()

	a := testClient(h, 4)
	b := testClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]string{"state": "SEARCH"}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != JSONMessage {
				t.Errorf("expected JSON message, got type %d", msg.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := New("test")
	go h.Run()

	slow := testClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	// First frame fills the client's buffer, second one triggers the drop.
	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if _, ok := <-slow.send; !ok {
		t.Fatal("expected the buffered message before close")
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("expected send channel closed after drop")
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := New("test")
	go h.Run()

	c := testClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if _, ok := <-c.send; ok {
		t.Fatal("expected send channel closed after unregister")
	}
}

func TestClientSendDropsWhenFull(t *testing.T) {
	c := &Client{send: make(chan Message, 1)}

	if !c.Send(NewJSONMessage([]byte("{}"))) {
		t.Fatal("expected first send to succeed")
	}
	if c.Send(NewJSONMessage([]byte("{}"))) {
		t.Fatal("expected send to report a full buffer")
	}
}

func TestBroadcastWithNoClients(t *testing.T) {
	h := New("test")
	go h.Run()

	waitFor(t, func() bool { return h.IsRunning() })

	// Must not panic or block.
	h.BroadcastBinary([]byte{0xFF})
	if h.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", h.ClientCount())
	}
}
