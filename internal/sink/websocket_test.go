package sink

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSamplesInterleavesLittleEndianFloat32(t *testing.T) {
	samples := []complex64{complex(1, -2), complex(0.5, 0.25)}
	buf := encodeSamples(samples)
	require.Len(t, buf, 16)

	assert.Equal(t, float32(1), math.Float32frombits(leUint32(buf[0:4])))
	assert.Equal(t, float32(-2), math.Float32frombits(leUint32(buf[4:8])))
	assert.Equal(t, float32(0.5), math.Float32frombits(leUint32(buf[8:12])))
	assert.Equal(t, float32(0.25), math.Float32frombits(leUint32(buf[12:16])))
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestWebSocketSinkBroadcastsToConnectedSubscribers(t *testing.T) {
	s := NewWebSocketSink()
	server := httptest.NewServer(s)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.subscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.WriteSamples([]complex64{complex(1, -1)}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	kind, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, encodeSamples([]complex64{complex(1, -1)}), payload)
}

func TestWebSocketSinkWithNoSubscribersIsANoOp(t *testing.T) {
	s := NewWebSocketSink()
	assert.NoError(t, s.WriteSamples([]complex64{1, 2, 3}))
}

func TestWebSocketSinkDeregistersOnDisconnect(t *testing.T) {
	s := NewWebSocketSink()
	server := httptest.NewServer(s)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.subscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.subscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}
