package deck

import rand "math/rand/v2"

// Size is the number of cards in play: a standard 52-card deck plus two
// jokers.
const Size = 54

// Standard54 returns the canonical 54-card composition. The two jokers
// carry Spades and Hearts so they remain distinguishable.
func Standard54() []Card {
	cards := make([]Card, 0, Size)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	cards = append(cards, NewCard(Spades, Joker), NewCard(Hearts, Joker))
	return cards
}

// Deck is the draw stack for a round. Cards are drawn from the top
// (end of the slice).
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a full 54-card deck drawing randomness from rng
func New(rng *rand.Rand) *Deck {
	return &Deck{cards: Standard54(), rng: rng}
}

// Shuffle randomizes the order of the remaining cards (Fisher-Yates)
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// DrawN draws up to n cards
func (d *Deck) DrawN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		card, ok := d.Draw()
		if !ok {
			break
		}
		cards = append(cards, card)
	}
	return cards
}

// Refill adds cards back to the deck and shuffles. Used when the draw
// stack empties mid-round and the discard tail is recycled.
func (d *Deck) Refill(cards []Card) {
	d.cards = append(d.cards, cards...)
	d.Shuffle()
}

// Remaining returns the number of cards left
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty returns true if no cards are left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}
