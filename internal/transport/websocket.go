// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "lipsync/internal/log"
)

// WebSocketTransport serves shape frames to browser render layers over a
// WebSocket endpoint at /ws. Frames are fanned out to every connected client;
// a full broadcast queue drops the frame, never blocks the publisher.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	server    *http.Server

	broadcast     chan Frame
	broadcastDone chan struct{} // Closed when the fan-out goroutine exits.
	sendMu        sync.RWMutex  // Coordinates Send with the channel close.
	closed        bool
}

// NewWebSocketTransport creates the transport and starts its HTTP server.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tooling; any origin may connect.
			},
		},
		clients:       make(map[*websocket.Conn]bool),
		broadcast:     make(chan Frame, 64),
		broadcastDone: make(chan struct{}),
	}

	wst.start()
	return wst
}

func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)

	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("transport: WebSocket server listening on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("transport: WebSocket server error: %v", err)
		}
	}()

	go wst.handleBroadcasts()
}

// handleWebSocket upgrades HTTP connections and registers the client.
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("transport: upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("transport: render client connected, total: %d", total)

	// Reads only serve to detect disconnects; clients never send frames.
	go func() {
		if _, _, err := conn.ReadMessage(); err != nil {
			wst.clientsMu.Lock()
			delete(wst.clients, conn)
			total := len(wst.clients)
			wst.clientsMu.Unlock()
			conn.Close()
			applog.Infof("transport: render client disconnected, total: %d", total)
		}
	}()
}

// handleBroadcasts fans queued frames out to every client. It exits when
// Close closes the broadcast channel.
func (wst *WebSocketTransport) handleBroadcasts() {
	defer close(wst.broadcastDone)
	for frame := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(frame); err != nil {
				applog.Warnf("transport: dropping client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues a frame for broadcast. A full queue drops the frame; the next
// tick will carry a fresher shape anyway. Sending on a closed transport
// returns an error instead of queueing into a dead channel.
func (wst *WebSocketTransport) Send(frame Frame) error {
	wst.sendMu.RLock()
	defer wst.sendMu.RUnlock()

	if wst.closed {
		return fmt.Errorf("websocket transport is closed")
	}
	select {
	case wst.broadcast <- frame:
	default:
	}
	return nil
}

// Close shuts down the server, all client connections, and the fan-out
// goroutine. Idempotent.
func (wst *WebSocketTransport) Close() error {
	wst.sendMu.Lock()
	if wst.closed {
		wst.sendMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.broadcast)
	wst.sendMu.Unlock()

	// The fan-out goroutine drains the queue and exits.
	<-wst.broadcastDone

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
