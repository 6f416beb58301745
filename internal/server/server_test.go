package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/thedecree/internal/game"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(DefaultConfig(), log.New(io.Discard), nil)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "connections")
	assert.Contains(t, body, "rooms")
	assert.Contains(t, body, "players")
	assert.Contains(t, body, "roomDetails")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.metrics.ActiveRooms.Inc()

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "decree_active_rooms 1")
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrGameNotStarted, ErrCodeGameNotStarted},
		{ErrRoomFull, ErrCodeRoomFull},
		{ErrNotInRoom, ErrCodeRoomNotFound},
		{game.ErrNotDealer, ErrCodeNotDealer},
		{game.ErrAlreadyPlayed, ErrCodeAlreadyPlayed},
		{game.ErrAlreadySelected, ErrCodeAlreadyPlayed},
		{game.ErrInvalidCards, ErrCodeInvalidCards},
		{game.ErrUnknownPlayer, ErrCodeNotYourTurn},
		{game.ErrWrongState, ErrCodeInvalidPlay},
		{game.ErrInvalidCall, ErrCodeInvalidPlay},
		{ErrNotHost, ErrCodeInvalidPlay},
		{io.EOF, ErrCodeInternalError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, errorCodeFor(tt.err), "%v", tt.err)
	}
}

// wsClient is a raw protocol client against a test server.
type wsClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func dialWS(t *testing.T, httpURL string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return &wsClient{t: t, ws: ws}
}

func (c *wsClient) send(msgType MessageType, data interface{}) {
	c.t.Helper()
	msg, err := NewMessage(msgType, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteJSON(msg))
}

// waitFor reads frames until one of the wanted type arrives.
func (c *wsClient) waitFor(msgType MessageType) *Message {
	c.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.ws.SetReadDeadline(deadline)
		var msg Message
		require.NoError(c.t, c.ws.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return &msg
		}
	}
	c.t.Fatalf("timed out waiting for %s", msgType)
	return nil
}

func TestWebSocketCreateJoinAndDeal(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	host := dialWS(t, srv.URL)
	host.send(MessageTypeCreateRoom, CreateRoomData{PlayerName: "Alice", MaxPlayers: 4})
	created := decodePayload[RoomCreatedData](t, host.waitFor(MessageTypeRoomCreated))
	require.NotEmpty(t, created.RoomID)
	require.NotEmpty(t, created.PlayerID)
	joined := decodePayload[RoomJoinedData](t, host.waitFor(MessageTypeRoomJoined))
	assert.Equal(t, created.PlayerID, joined.HostID)

	guest := dialWS(t, srv.URL)
	guest.send(MessageTypeJoinRoom, JoinRoomData{RoomID: created.RoomID, PlayerName: "Bob"})
	guestJoined := decodePayload[RoomJoinedData](t, guest.waitFor(MessageTypeRoomJoined))
	require.Len(t, guestJoined.Players, 2)

	hostSeesGuest := decodePayload[PlayerJoinedData](t, host.waitFor(MessageTypePlayerJoined))
	assert.Equal(t, "Bob", hostSeesGuest.Player.Name)

	host.send(MessageTypeReady, nil)
	guest.send(MessageTypeReady, nil)
	// Both ready broadcasts must land before start_game is legal.
	host.waitFor(MessageTypePlayerReady)
	host.waitFor(MessageTypePlayerReady)

	host.send(MessageTypeStartGame, nil)
	host.waitFor(MessageTypeGameStart)
	guest.waitFor(MessageTypeGameStart)

	// The deal arrives after the grace delay: a private hand each plus the
	// shared community cards.
	deal := decodePayload[DealCardsData](t, host.waitFor(MessageTypeDealCards))
	assert.Len(t, deal.HandCards, 5)
	community := decodePayload[CommunityCardsData](t, guest.waitFor(MessageTypeCommunityCards))
	assert.Len(t, community.Cards, 4)
	guest.waitFor(MessageTypeRequestFirstDealer)
}

func TestWebSocketJoinUnknownRoom(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	c := dialWS(t, srv.URL)
	c.send(MessageTypeJoinRoom, JoinRoomData{RoomID: "nope", PlayerName: "Bob"})
	errMsg := decodePayload[ErrorData](t, c.waitFor(MessageTypeError))
	assert.Equal(t, ErrCodeRoomNotFound, errMsg.Code)
}

func TestWebSocketPingPong(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	c := dialWS(t, srv.URL)
	c.send(MessageTypePing, nil)
	c.waitFor(MessageTypePong)
}

func TestWebSocketLeaverBroadcast(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	host := dialWS(t, srv.URL)
	host.send(MessageTypeCreateRoom, CreateRoomData{PlayerName: "Alice"})
	created := decodePayload[RoomCreatedData](t, host.waitFor(MessageTypeRoomCreated))

	guest := dialWS(t, srv.URL)
	guest.send(MessageTypeJoinRoom, JoinRoomData{RoomID: created.RoomID, PlayerName: "Bob"})
	guest.waitFor(MessageTypeRoomJoined)
	host.waitFor(MessageTypePlayerJoined)

	// Outside a game a dropped socket removes the player outright.
	guest.ws.Close()
	left := decodePayload[PlayerLeftData](t, host.waitFor(MessageTypePlayerLeft))
	assert.NotEmpty(t, left.PlayerID)
}

func TestWebSocketReconnectRequiresGameInProgress(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	host := dialWS(t, srv.URL)
	host.send(MessageTypeCreateRoom, CreateRoomData{PlayerName: "Alice"})
	created := decodePayload[RoomCreatedData](t, host.waitFor(MessageTypeRoomCreated))

	// The room is still waiting, so there is no held seat to re-bind.
	other := dialWS(t, srv.URL)
	other.send(MessageTypeReconnect, ReconnectData{RoomID: created.RoomID, PlayerID: created.PlayerID})
	errMsg := decodePayload[ErrorData](t, other.waitFor(MessageTypeError))
	assert.Equal(t, ErrCodeGameNotStarted, errMsg.Code)
}

func TestWebSocketReconnectCannotHijackLivePlayer(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	host := dialWS(t, srv.URL)
	host.send(MessageTypeCreateRoom, CreateRoomData{PlayerName: "Alice", MaxPlayers: 2})
	created := decodePayload[RoomCreatedData](t, host.waitFor(MessageTypeRoomCreated))
	host.waitFor(MessageTypeRoomJoined)

	guest := dialWS(t, srv.URL)
	guest.send(MessageTypeJoinRoom, JoinRoomData{RoomID: created.RoomID, PlayerName: "Bob"})
	guest.waitFor(MessageTypeRoomJoined)
	host.waitFor(MessageTypePlayerJoined)

	host.send(MessageTypeReady, nil)
	guest.send(MessageTypeReady, nil)
	host.waitFor(MessageTypePlayerReady)
	host.waitFor(MessageTypePlayerReady)
	host.send(MessageTypeStartGame, nil)
	host.waitFor(MessageTypeGameStart)

	// A second socket presenting the host's ids must not steal the live
	// transport mid-game.
	attacker := dialWS(t, srv.URL)
	attacker.send(MessageTypeReconnect, ReconnectData{RoomID: created.RoomID, PlayerID: created.PlayerID})
	errMsg := decodePayload[ErrorData](t, attacker.waitFor(MessageTypeError))
	assert.Equal(t, ErrCodeInvalidPlay, errMsg.Code)

	// The host's connection is untouched.
	host.send(MessageTypePing, nil)
	host.waitFor(MessageTypePong)
}

func TestWebSocketRateLimit(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	c := dialWS(t, srv.URL)
	// The connection category allows ten reconnect attempts a minute; the
	// eleventh is throttled rather than answered.
	for i := 0; i < 10; i++ {
		c.send(MessageTypeReconnect, ReconnectData{RoomID: "nope", PlayerID: "px"})
		errMsg := decodePayload[ErrorData](t, c.waitFor(MessageTypeError))
		require.Equal(t, ErrCodeRoomNotFound, errMsg.Code)
	}
	c.send(MessageTypeReconnect, ReconnectData{RoomID: "nope", PlayerID: "px"})
	errMsg := decodePayload[ErrorData](t, c.waitFor(MessageTypeError))
	assert.Equal(t, ErrCodeRateLimited, errMsg.Code)
}

func TestWebSocketInvalidName(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	c := dialWS(t, srv.URL)
	c.send(MessageTypeCreateRoom, CreateRoomData{PlayerName: strings.Repeat("x", 60)})
	errMsg := decodePayload[ErrorData](t, c.waitFor(MessageTypeError))
	assert.Equal(t, ErrCodeInvalidPlay, errMsg.Code)
}
