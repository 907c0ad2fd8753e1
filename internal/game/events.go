package game

import (
	"encoding/json"
	"fmt"

	"github.com/yanivhq/yaniv-server/internal/deck"
)

// EventType represents a game event type with type safety
type EventType string

const (
	EventTypeGameInitialized EventType = "game_initialized"
	EventTypeNewRound        EventType = "new_round"
	EventTypeTurnStarted     EventType = "turn_started"
	EventTypePlayerDrew      EventType = "player_drew"
	EventTypeDeckReshuffled  EventType = "deck_reshuffled"
	EventTypeRoundEnded      EventType = "round_ended"
	EventTypeHumanLost       EventType = "human_lost"
	EventTypeGameEnded       EventType = "game_ended"
	EventTypePlayersStats    EventType = "set_playersStats_data"
	EventTypeGameError       EventType = "game_error"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event represents anything the engine announces to the room
type Event interface {
	EventType() EventType
}

// TargetedEvent is an event addressed to a single player instead of the
// whole room.
type TargetedEvent interface {
	Event
	Target() string
}

// EventSink receives engine events. The transport layer serializes them
// into wire messages; the engine never blocks on delivery.
type EventSink func(Event)

// DrawSource identifies where a card movement came from
type DrawSource int

const (
	SourceDeck DrawSource = iota
	SourcePickup
	SourceSlap
)

var drawSourceNames = [...]string{"deck", "pickup", "slap"}

// String returns the string representation of a draw source
func (s DrawSource) String() string {
	if s < SourceDeck || s > SourceSlap {
		return "unknown"
	}
	return drawSourceNames[s]
}

// MarshalJSON encodes the source as its wire name
func (s DrawSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a source from its wire name
func (s *DrawSource) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range drawSourceNames {
		if n == name {
			*s = DrawSource(i)
			return nil
		}
	}
	return fmt.Errorf("unknown draw source: %q", name)
}

// GameInitializedEvent is published when the first round of a match is
// dealt. The first turn timer is armed only after StartDelayMS.
type GameInitializedEvent struct {
	RoomID          string                 `json:"roomId"`
	Round           int                    `json:"round"`
	Players         []*Player              `json:"players"`
	Hands           map[string][]deck.Card `json:"hands"`
	PickupCards     []deck.Card            `json:"pickupCards"`
	CurrentPlayerID string                 `json:"currentPlayerId"`
	StartDelayMS    int                    `json:"startDelay"`
	TimePerPlayer   int                    `json:"timePerPlayer"`
	CanCallYaniv    int                    `json:"canCallYaniv"`
	MaxMatchPoints  int                    `json:"maxMatchPoints"`
	SlapDown        bool                   `json:"slapDown"`
}

func (e GameInitializedEvent) EventType() EventType { return EventTypeGameInitialized }

// NewRoundEvent is published when a subsequent round is dealt
type NewRoundEvent struct {
	RoomID          string                 `json:"roomId"`
	Round           int                    `json:"round"`
	Hands           map[string][]deck.Card `json:"hands"`
	PickupCards     []deck.Card            `json:"pickupCards"`
	CurrentPlayerID string                 `json:"currentPlayerId"`
	StartDelayMS    int                    `json:"startDelay"`
}

func (e NewRoundEvent) EventType() EventType { return EventTypeNewRound }

// TurnStartedEvent announces whose turn it is and how long they have
type TurnStartedEvent struct {
	CurrentPlayerID string `json:"currentPlayerId"`
	TimeRemaining   int    `json:"timeRemaining"`
}

func (e TurnStartedEvent) EventType() EventType { return EventTypeTurnStarted }

// PlayerDrewEvent is published after a completed turn or a slap-down.
// SelectedCardsPositions are indexes into the player's prior sorted
// hand so clients can animate the removal.
type PlayerDrewEvent struct {
	PlayerID               string                 `json:"playerId"`
	Source                 DrawSource             `json:"source"`
	Hands                  map[string][]deck.Card `json:"hands"`
	PickupCards            []deck.Card            `json:"pickupCards"`
	Card                   *deck.Card             `json:"card,omitempty"`
	SelectedCardsPositions []int                  `json:"selectedCardsPositions"`
	AmountBefore           int                    `json:"amountBefore"`
	CurrentPlayerID        string                 `json:"currentPlayerId"`
	SlapDownActiveFor      string                 `json:"slapDownActiveFor,omitempty"`
}

func (e PlayerDrewEvent) EventType() EventType { return EventTypePlayerDrew }

// DeckReshuffledEvent is published when the draw stack is rebuilt from
// the discard tail mid-round.
type DeckReshuffledEvent struct {
	Remaining int `json:"remaining"`
}

func (e DeckReshuffledEvent) EventType() EventType { return EventTypeDeckReshuffled }

// RoundEndedEvent carries the full round result. PlayersRoundScore maps
// each player to the signed increments applied to their total, e.g.
// [12] or [50, -50] when the bonus reduction fired.
type RoundEndedEvent struct {
	WinnerID          string                 `json:"winnerId"`
	PlayersStats      map[string]PlayerStat  `json:"playersStats"`
	YanivCaller       string                 `json:"yanivCaller"`
	AssafCaller       string                 `json:"assafCaller,omitempty"`
	PlayerHands       map[string][]deck.Card `json:"playerHands"`
	RoundPlayers      []*Player              `json:"roundPlayers"`
	PlayersRoundScore map[string][]int       `json:"playersRoundScore"`
	Losers            []string               `json:"losers"`
	NextDelayMS       int                    `json:"nextDelay"`
}

func (e RoundEndedEvent) EventType() EventType { return EventTypeRoundEnded }

// HumanLostEvent is published when a human player crosses the
// elimination threshold.
type HumanLostEvent struct {
	PlayerID string `json:"playerId"`
}

func (e HumanLostEvent) EventType() EventType { return EventTypeHumanLost }

// GameEndedEvent is published once per match. Places lists every
// participant from first to last.
type GameEndedEvent struct {
	Winner       string                `json:"winner"`
	FinalScores  map[string]int        `json:"finalScores"`
	PlayersStats map[string]PlayerStat `json:"playersStats"`
	Places       []string              `json:"places"`
}

func (e GameEndedEvent) EventType() EventType { return EventTypeGameEnded }

// PlayersStatsEvent is published when a single player's status changes
// outside the round flow (leave, play-again vote).
type PlayersStatsEvent struct {
	RoomID       string                `json:"roomId"`
	PlayerID     string                `json:"playerId"`
	PlayersStats map[string]PlayerStat `json:"playersStats"`
}

func (e PlayersStatsEvent) EventType() EventType { return EventTypePlayersStats }

// GameErrorEvent is delivered to the requester of a rejected command
type GameErrorEvent struct {
	PlayerID string `json:"-"`
	Message  string `json:"message"`
}

func (e GameErrorEvent) EventType() EventType { return EventTypeGameError }

// Target implements TargetedEvent
func (e GameErrorEvent) Target() string { return e.PlayerID }
