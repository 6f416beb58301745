package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/thedecree/internal/validate"
)

// newServerSideWS upgrades a loopback connection and hands back the
// server-side socket, the way handleWS would receive it.
func newServerSideWS(t *testing.T) *websocket.Conn {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ws := <-conns
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	c := newConnection("c1", s, newServerSideWS(t))

	require.NoError(t, c.Close())
	assert.NotPanics(t, func() { c.Close() })

	msg, err := NewMessage(MessageTypePong, nil)
	require.NoError(t, err)
	assert.Error(t, c.SendMessage(msg))
}

// A stalled peer fills the send buffer while broadcasts keep arriving from
// other players' pumps and from timer goroutines. None of those senders may
// panic, and the connection must close exactly once.
func TestConnectionConcurrentSendsOnFullBuffer(t *testing.T) {
	s := newTestServer(t)
	c := newConnection("c1", s, newServerSideWS(t))
	// No write pump: nothing drains the buffer.

	msg, err := NewMessage(MessageTypePong, nil)
	require.NoError(t, err)
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, c.SendMessage(msg))
	}

	const senders, perSender = 8, 8
	errs := make(chan error, senders*perSender)
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				if err := c.SendMessage(msg); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	// Every send past the full buffer fails, whether it saw the full
	// channel or the closed one.
	assert.Len(t, errs, senders*perSender)
}

func TestRateCategoryBuckets(t *testing.T) {
	assert.Equal(t, validate.CategoryHeartbeat, rateCategory(MessageTypePing))
	assert.Equal(t, validate.CategoryConnection, rateCategory(MessageTypeReconnect))

	for _, mt := range []MessageType{MessageTypeCreateRoom, MessageTypeJoinRoom, MessageTypeLeaveRoom} {
		assert.Equal(t, validate.CategoryRoom, rateCategory(mt), "%s", mt)
	}
	for _, mt := range []MessageType{
		MessageTypeReady, MessageTypeStartGame, MessageTypeRestartGame,
		MessageTypeDealerCall, MessageTypeSelectFirstDealerCard,
		MessageTypePlayCards, MessageTypeSetAuto,
	} {
		assert.Equal(t, validate.CategoryGame, rateCategory(mt), "%s", mt)
	}
}
