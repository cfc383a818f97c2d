// Package sink provides SampleSink implementations: a live-streaming
// WebSocket sink for interactive clients, grounded on the teacher's
// user_spectrum_websocket.go, and a DiscardSink that drops every sample.
package sink

import (
	"encoding/binary"
	"log"
	"math"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1 << 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriber is one connected WebSocket client.
type subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) writeFrame(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, payload)
}

// WebSocketSink implements reconstruct.SampleSink by broadcasting
// reconstructed samples to every currently connected subscriber as binary
// frames of interleaved little-endian float32 I/Q pairs, one frame per
// WriteSamples call.
type WebSocketSink struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

// NewWebSocketSink creates an empty sink; subscribers attach over HTTP via
// ServeHTTP.
func NewWebSocketSink() *WebSocketSink {
	return &WebSocketSink{subscribers: make(map[string]*subscriber)}
}

// ServeHTTP upgrades the request to a WebSocket connection and registers it
// as a subscriber until the connection closes.
func (s *WebSocketSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: sparsdr websocket sink: upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	sub := &subscriber{id: id, conn: conn}

	s.mu.Lock()
	s.subscribers[id] = sub
	s.mu.Unlock()

	log.Printf("sparsdr websocket sink: subscriber %s connected (%d total)", id, s.subscriberCount())

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
		conn.Close()
		log.Printf("sparsdr websocket sink: subscriber %s disconnected (%d remaining)", id, s.subscriberCount())
	}()

	// Drain and discard client messages; this sink is one-directional, but
	// the read loop is required to detect the client closing the
	// connection and to respond to control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WebSocketSink) subscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// WriteSamples implements reconstruct.SampleSink.
func (s *WebSocketSink) WriteSamples(samples []complex64) error {
	s.mu.RLock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	payload := encodeSamples(samples)
	for _, sub := range subs {
		if err := sub.writeFrame(payload); err != nil {
			log.Printf("ERROR: sparsdr websocket sink: write to subscriber %s failed: %v", sub.id, err)
		}
	}
	return nil
}

func encodeSamples(samples []complex64) []byte {
	buf := make([]byte, len(samples)*8)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(imag(s)))
	}
	return buf
}
