package deck

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Suit represents a card suit. The declaration order doubles as the
// tiebreak order when sorting hands.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitNames = [...]string{"spades", "hearts", "diamonds", "clubs"}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Name returns the wire name of the suit (e.g. "hearts")
func (s Suit) Name() string {
	if s < Spades || s > Clubs {
		return "unknown"
	}
	return suitNames[s]
}

// MarshalJSON encodes the suit as its wire name
func (s Suit) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Name())
}

// UnmarshalJSON decodes a suit from its wire name
func (s *Suit) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range suitNames {
		if n == name {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown suit: %q", name)
}

// Rank represents a card rank. Joker is rank 0; the suit of a joker is
// retained only to tell the two jokers apart.
type Rank int

const (
	Joker Rank = iota
	Ace
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch {
	case r == Joker:
		return "Jok"
	case r == Ace:
		return "A"
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	default:
		return "?"
	}
}

// Card represents a playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	if c.IsJoker() {
		return "Jok"
	}
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IsJoker returns true if the card is a joker
func (c Card) IsJoker() bool {
	return c.Rank == Joker
}

// Points returns the card's point value towards a hand total:
// joker 0, ace 1, pip cards face value, J/Q/K 10.
func (c Card) Points() int {
	switch {
	case c.Rank == Joker:
		return 0
	case c.Rank >= Jack:
		return 10
	default:
		return int(c.Rank)
	}
}

// Less reports whether c sorts before other: ascending rank with the
// fixed suit tiebreak spades, hearts, diamonds, clubs.
func (c Card) Less(other Card) bool {
	if c.Rank != other.Rank {
		return c.Rank < other.Rank
	}
	return c.Suit < other.Suit
}

// Sort sorts cards in place in canonical hand order
func Sort(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Less(cards[j])
	})
}

// HandValue returns the total point value of a hand
func HandValue(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Points()
	}
	return total
}

// Remove returns hand with the given cards removed, or false if any of
// them is not present. The input slice is not modified.
func Remove(hand []Card, cards []Card) ([]Card, bool) {
	out := make([]Card, len(hand))
	copy(out, hand)
	for _, c := range cards {
		found := -1
		for i, h := range out {
			if h == c {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		out = append(out[:found], out[found+1:]...)
	}
	return out, true
}

// Contains reports whether hand holds the given card
func Contains(hand []Card, card Card) bool {
	for _, h := range hand {
		if h == card {
			return true
		}
	}
	return false
}
