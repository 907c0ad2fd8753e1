package game

import (
	"encoding/json"
	"fmt"

	"github.com/yanivhq/yaniv-server/internal/bot"
)

// Status describes a player's standing within a match
type Status int

const (
	StatusActive Status = iota
	StatusLost
	StatusWinner
	StatusPlayAgain
	StatusLeave
)

var statusNames = [...]string{"active", "lost", "winner", "playAgain", "leave"}

// String returns the string representation of a status
func (s Status) String() string {
	if s < StatusActive || s > StatusLeave {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalJSON encodes the status as its wire name
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its wire name
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown player status: %q", name)
}

// Player identifies a seat in a room. Bots carry synthetic ids.
type Player struct {
	ID          string         `json:"id"`
	NickName    string         `json:"nickName"`
	AvatarIndex int            `json:"avatarIndex"`
	IsBot       bool           `json:"isBot"`
	Difficulty  bot.Difficulty `json:"-"`
}

// PlayerStat is the per-player score sheet kept across rounds
type PlayerStat struct {
	Status      Status `json:"status"`
	Score       int    `json:"score"`
	PlayerName  string `json:"playerName"`
	AvatarIndex int    `json:"avatarIndex"`
}

// Config is the per-room rule snapshot
type Config struct {
	SlapDown       bool `json:"slapDown"`
	TimePerPlayer  int  `json:"timePerPlayer"`
	CanCallYaniv   int  `json:"canCallYaniv"`
	MaxMatchPoints int  `json:"maxMatchPoints"`
}

// DefaultConfig returns the rule defaults
func DefaultConfig() Config {
	return Config{
		SlapDown:       true,
		TimePerPlayer:  15,
		CanCallYaniv:   7,
		MaxMatchPoints: 100,
	}
}

// TurnChoice discriminates the two ways to complete a turn
type TurnChoice int

const (
	ChoiceDeck TurnChoice = iota
	ChoicePickup
)

var turnChoiceNames = [...]string{"deck", "pickup"}

// String returns the string representation of a turn choice
func (c TurnChoice) String() string {
	if c < ChoiceDeck || c > ChoicePickup {
		return "unknown"
	}
	return turnChoiceNames[c]
}

// MarshalJSON encodes the choice as its wire name
func (c TurnChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a choice from its wire name
func (c *TurnChoice) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range turnChoiceNames {
		if n == name {
			*c = TurnChoice(i)
			return nil
		}
	}
	return fmt.Errorf("unknown turn choice: %q", name)
}

// TurnAction is the payload of a complete_turn command
type TurnAction struct {
	Choice      TurnChoice `json:"choice"`
	PickupIndex int        `json:"pickupIndex,omitempty"`
}
