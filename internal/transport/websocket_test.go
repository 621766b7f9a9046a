// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
)

func TestWebSocketTransportCloseLifecycle(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")

	if err := wst.Send(Frame{Type: "shape", Shape: "A"}); err != nil {
		t.Fatalf("Send before close returned error: %v", err)
	}

	// Close drains the broadcast queue and joins the fan-out goroutine;
	// it would hang here if the goroutine never exited.
	if err := wst.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if err := wst.Send(Frame{Type: "shape", Shape: "O"}); err == nil {
		t.Error("Send after Close did not return an error")
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}

func TestWebSocketTransportSendDropsWhenFull(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	defer wst.Close()

	// Send must keep returning immediately regardless of queue pressure or
	// attached clients; a slow consumer never blocks the publisher.
	for i := 0; i < 200; i++ {
		if err := wst.Send(Frame{Type: "shape", Seq: uint64(i)}); err != nil {
			t.Fatalf("Send returned error on frame %d: %v", i, err)
		}
	}
}
