package server

// MessageType identifies a WebSocket frame in the client protocol.
type MessageType string

const (
	// Client to server
	MessageTypeCreateRoom            MessageType = "create_room"
	MessageTypeJoinRoom              MessageType = "join_room"
	MessageTypeReconnect             MessageType = "reconnect"
	MessageTypeLeaveRoom             MessageType = "leave_room"
	MessageTypeReady                 MessageType = "ready"
	MessageTypeStartGame             MessageType = "start_game"
	MessageTypeRestartGame           MessageType = "restart_game"
	MessageTypeDealerCall            MessageType = "dealer_call"
	MessageTypeSelectFirstDealerCard MessageType = "select_first_dealer_card"
	MessageTypePlayCards             MessageType = "play_cards"
	MessageTypeSetAuto               MessageType = "set_auto"
	MessageTypePing                  MessageType = "ping"

	// Server to client
	MessageTypeRoomCreated        MessageType = "room_created"
	MessageTypeRoomJoined         MessageType = "room_joined"
	MessageTypePlayerJoined       MessageType = "player_joined"
	MessageTypePlayerLeft         MessageType = "player_left"
	MessageTypePlayerReady        MessageType = "player_ready"
	MessageTypeHostChanged        MessageType = "host_changed"
	MessageTypeGameStart          MessageType = "game_start"
	MessageTypeDealCards          MessageType = "deal_cards"
	MessageTypeCommunityCards     MessageType = "community_cards"
	MessageTypeRequestFirstDealer MessageType = "request_first_dealer_selection"
	MessageTypePlayerSelectedCard MessageType = "player_selected_card"
	MessageTypeFirstDealerReveal  MessageType = "first_dealer_reveal"
	MessageTypeDealerSelected     MessageType = "dealer_selected"
	MessageTypeDealerCalled       MessageType = "dealer_called"
	MessageTypePlayerPlayed       MessageType = "player_played"
	MessageTypeShowdown           MessageType = "showdown"
	MessageTypeRoundEnd           MessageType = "round_end"
	MessageTypeHandRefilled       MessageType = "hand_refilled"
	MessageTypeGameOver           MessageType = "game_over"
	MessageTypeGameStateUpdate    MessageType = "game_state_update"
	MessageTypePlayerAutoChanged  MessageType = "player_auto_changed"
	MessageTypeReconnectSuccess   MessageType = "reconnect_success"
	MessageTypeError              MessageType = "error"
	MessageTypePong               MessageType = "pong"
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	return string(mt)
}

// Error codes carried in error events.
const (
	ErrCodeRoomNotFound   = "ROOM_NOT_FOUND"
	ErrCodeRoomFull       = "ROOM_FULL"
	ErrCodeInvalidPlay    = "INVALID_PLAY"
	ErrCodeNotYourTurn    = "NOT_YOUR_TURN"
	ErrCodeGameNotStarted = "GAME_NOT_STARTED"
	ErrCodeAlreadyPlayed  = "ALREADY_PLAYED"
	ErrCodeInvalidCards   = "INVALID_CARDS"
	ErrCodeNotDealer      = "NOT_DEALER"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
