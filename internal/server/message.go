package server

import (
	"encoding/json"
	"time"

	"github.com/yanivhq/yaniv-server/internal/deck"
	"github.com/yanivhq/yaniv-server/internal/game"
)

// MessageType identifies a wire message
type MessageType string

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

const (
	// Client → Server
	MessageTypeCreateRoom    MessageType = "create_room"
	MessageTypeJoinRoom      MessageType = "join_room"
	MessageTypeQuickGame     MessageType = "quick_game"
	MessageTypeQuickConfig   MessageType = "set_quick_game_config"
	MessageTypeCreateBotRoom MessageType = "create_bot_room"
	MessageTypeLeaveRoom     MessageType = "leave_room"
	MessageTypeStartPrivate  MessageType = "start_private_game"
	MessageTypeGetRoomState  MessageType = "get_room_state"
	MessageTypeCompleteTurn  MessageType = "complete_turn"
	MessageTypeCallYaniv     MessageType = "call_yaniv"
	MessageTypeSlapDown      MessageType = "slap_down"
	MessageTypePlayAgain     MessageType = "player_wants_to_play_again"

	// Server → Client (lobby)
	MessageTypeConnected    MessageType = "connected"
	MessageTypeRoomCreated  MessageType = "room_created"
	MessageTypePlayerJoined MessageType = "player_joined"
	MessageTypePlayerLeft   MessageType = "player_left"
	MessageTypeVotesConfig  MessageType = "votes_config"
	MessageTypeRoomError    MessageType = "room_error"
	MessageTypeStartGame    MessageType = "start_game"
	MessageTypeRoomState    MessageType = "room_state"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

type CreateRoomData struct {
	NickName    string      `json:"nickName"`
	AvatarIndex int         `json:"avatarIndex"`
	Config      game.Config `json:"config"`
}

type JoinRoomData struct {
	RoomID      string `json:"roomId"`
	NickName    string `json:"nickName"`
	AvatarIndex int    `json:"avatarIndex"`
}

type QuickGameData struct {
	NickName    string `json:"nickName"`
	AvatarIndex int    `json:"avatarIndex"`
}

type QuickConfigData struct {
	RoomID   string      `json:"roomId"`
	NickName string      `json:"nickName"`
	Config   game.Config `json:"config"`
}

type CreateBotRoomData struct {
	NickName     string      `json:"nickName"`
	AvatarIndex  int         `json:"avatarIndex"`
	Config       game.Config `json:"config"`
	Difficulties []string    `json:"difficulties"`
}

type LeaveRoomData struct {
	NickName string `json:"nickName"`
	IsAdmin  bool   `json:"isAdmin"`
}

type StartPrivateGameData struct {
	RoomID string `json:"roomId"`
}

type GetRoomStateData struct {
	RoomID string `json:"roomId"`
}

type CompleteTurnData struct {
	Action        game.TurnAction `json:"action"`
	SelectedCards []deck.Card     `json:"selectedCards"`
}

type SlapDownData struct {
	Card deck.Card `json:"card"`
}

type PlayAgainData struct {
	PlayerID string `json:"playerId"`
}

// Server → Client payloads

type ConnectedData struct {
	PlayerID string `json:"playerId"`
}

type RoomCreatedData struct {
	RoomID  string         `json:"roomId"`
	Config  game.Config    `json:"config"`
	Players []*game.Player `json:"players"`
}

type PlayerJoinedData struct {
	RoomID  string         `json:"roomId"`
	Player  *game.Player   `json:"player"`
	Players []*game.Player `json:"players"`
}

type PlayerLeftData struct {
	RoomID   string         `json:"roomId"`
	PlayerID string         `json:"playerId"`
	Players  []*game.Player `json:"players"`
}

type VotesConfigData struct {
	RoomID string                 `json:"roomId"`
	Votes  map[string]game.Config `json:"votes"`
}

type RoomErrorData struct {
	Message string `json:"message"`
}

type StartGameData struct {
	RoomID  string         `json:"roomId"`
	Config  game.Config    `json:"config"`
	Players []*game.Player `json:"players"`
}

type RoomStateData struct {
	RoomID    string         `json:"roomId"`
	Players   []*game.Player `json:"players"`
	Config    game.Config    `json:"config"`
	GameState string         `json:"gameState"`
}
