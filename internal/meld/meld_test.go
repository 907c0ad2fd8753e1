package meld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanivhq/yaniv-server/internal/deck"
)

func card(suit deck.Suit, rank deck.Rank) deck.Card {
	return deck.NewCard(suit, rank)
}

func TestIsValidSetSingles(t *testing.T) {
	assert.False(t, IsValidSet(nil, true))
	assert.True(t, IsValidSet([]deck.Card{card(deck.Spades, deck.Nine)}, true))
	assert.True(t, IsValidSet([]deck.Card{card(deck.Spades, deck.Joker)}, true))
}

func TestIsValidSetRankSets(t *testing.T) {
	pair := []deck.Card{card(deck.Spades, deck.Seven), card(deck.Hearts, deck.Seven)}
	assert.True(t, IsValidSet(pair, true))

	triple := append(pair, card(deck.Clubs, deck.Seven))
	assert.True(t, IsValidSet(triple, true))

	withJoker := append(pair, card(deck.Spades, deck.Joker))
	assert.True(t, IsValidSet(withJoker, true))

	mixed := []deck.Card{card(deck.Spades, deck.Seven), card(deck.Hearts, deck.Eight)}
	assert.False(t, IsValidSet(mixed, true))
}

func TestIsValidSetRuns(t *testing.T) {
	run := []deck.Card{
		card(deck.Hearts, deck.Four),
		card(deck.Hearts, deck.Five),
		card(deck.Hearts, deck.Six),
	}
	assert.True(t, IsValidSet(run, true))

	// Order of input must not matter.
	shuffled := []deck.Card{run[2], run[0], run[1]}
	assert.True(t, IsValidSet(shuffled, true))

	mixedSuit := []deck.Card{
		card(deck.Hearts, deck.Four),
		card(deck.Spades, deck.Five),
		card(deck.Hearts, deck.Six),
	}
	assert.False(t, IsValidSet(mixedSuit, true))
}

func TestTwoCardRunRejectedBeforePickup(t *testing.T) {
	two := []deck.Card{card(deck.Hearts, deck.Four), card(deck.Hearts, deck.Five)}
	assert.False(t, IsValidSet(two, true))
}

func TestJokerFillsRunGap(t *testing.T) {
	cards := []deck.Card{
		card(deck.Diamonds, deck.Three),
		card(deck.Spades, deck.Joker),
		card(deck.Diamonds, deck.Five),
	}
	arranged, ok := SequenceArrangement(cards)
	require.True(t, ok)
	require.Len(t, arranged, 3)
	assert.Equal(t, card(deck.Diamonds, deck.Three), arranged[0])
	assert.True(t, arranged[1].IsJoker())
	assert.Equal(t, card(deck.Diamonds, deck.Five), arranged[2])
}

func TestSpareJokerPadsTrailingEnd(t *testing.T) {
	// 3-4 plus a joker has no interior gap, so the joker stands in for
	// the 5 rather than the 2.
	cards := []deck.Card{
		card(deck.Clubs, deck.Three),
		card(deck.Clubs, deck.Four),
		card(deck.Hearts, deck.Joker),
	}
	arranged, ok := SequenceArrangement(cards)
	require.True(t, ok)
	assert.Equal(t, card(deck.Clubs, deck.Three), arranged[0])
	assert.Equal(t, card(deck.Clubs, deck.Four), arranged[1])
	assert.True(t, arranged[2].IsJoker())
}

func TestJokerPadsLeadingEndAtKing(t *testing.T) {
	// Q-K plus a joker can only grow downward.
	cards := []deck.Card{
		card(deck.Spades, deck.Queen),
		card(deck.Spades, deck.King),
		card(deck.Hearts, deck.Joker),
	}
	arranged, ok := SequenceArrangement(cards)
	require.True(t, ok)
	assert.True(t, arranged[0].IsJoker())
	assert.Equal(t, card(deck.Spades, deck.Queen), arranged[1])
	assert.Equal(t, card(deck.Spades, deck.King), arranged[2])
}

func TestRunWithTooFewJokers(t *testing.T) {
	cards := []deck.Card{
		card(deck.Diamonds, deck.Three),
		card(deck.Spades, deck.Joker),
		card(deck.Diamonds, deck.Seven),
	}
	_, ok := SequenceArrangement(cards)
	assert.False(t, ok)
}

func TestRunCannotWrapAroundKing(t *testing.T) {
	cards := []deck.Card{
		card(deck.Spades, deck.Queen),
		card(deck.Spades, deck.King),
		card(deck.Spades, deck.Ace),
	}
	assert.False(t, IsValidSet(cards, true))
}

func TestDuplicateRankBreaksRun(t *testing.T) {
	cards := []deck.Card{
		card(deck.Hearts, deck.Four),
		card(deck.Hearts, deck.Four),
		card(deck.Hearts, deck.Five),
	}
	_, ok := RunArrangement(cards)
	assert.False(t, ok)
}

func TestRankSetArrangementUnchanged(t *testing.T) {
	cards := []deck.Card{
		card(deck.Clubs, deck.Nine),
		card(deck.Spades, deck.Nine),
	}
	arranged, ok := SequenceArrangement(cards)
	require.True(t, ok)
	assert.Equal(t, cards, arranged)
}

func TestCanPickupEndsOnly(t *testing.T) {
	assert.True(t, CanPickup(1, 0))
	assert.True(t, CanPickup(3, 0))
	assert.True(t, CanPickup(3, 2))
	assert.False(t, CanPickup(3, 1))
	assert.False(t, CanPickup(0, 0))
	assert.False(t, CanPickup(3, -1))
	assert.False(t, CanPickup(3, 3))
}

func TestSlapDownSingleCard(t *testing.T) {
	pile := []deck.Card{card(deck.Hearts, deck.Eight)}

	assert.Equal(t, SideRight, SlapDownFrom(pile, card(deck.Clubs, deck.Eight)))
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Clubs, deck.Nine)))
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Spades, deck.Joker)))
}

func TestSlapDownJokerOnJoker(t *testing.T) {
	pile := []deck.Card{card(deck.Spades, deck.Joker)}

	assert.Equal(t, SideRight, SlapDownFrom(pile, card(deck.Hearts, deck.Joker)))
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Hearts, deck.Eight)))
}

func TestSlapDownRankSet(t *testing.T) {
	pile := []deck.Card{
		card(deck.Spades, deck.Six),
		card(deck.Hearts, deck.Six),
	}

	assert.Equal(t, SideRight, SlapDownFrom(pile, card(deck.Clubs, deck.Six)))
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Clubs, deck.Seven)))
}

func TestSlapDownRunEnds(t *testing.T) {
	pile := []deck.Card{
		card(deck.Diamonds, deck.Five),
		card(deck.Diamonds, deck.Six),
		card(deck.Diamonds, deck.Seven),
	}

	assert.Equal(t, SideLeft, SlapDownFrom(pile, card(deck.Diamonds, deck.Four)))
	assert.Equal(t, SideRight, SlapDownFrom(pile, card(deck.Diamonds, deck.Eight)))
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Hearts, deck.Eight)))
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Diamonds, deck.Nine)))
}

func TestSlapDownRunBoundaries(t *testing.T) {
	low := []deck.Card{
		card(deck.Clubs, deck.Ace),
		card(deck.Clubs, deck.Two),
		card(deck.Clubs, deck.Three),
	}
	// Nothing attaches below the ace.
	assert.Equal(t, SideNone, SlapDownFrom(low, card(deck.Clubs, deck.King)))
	assert.Equal(t, SideRight, SlapDownFrom(low, card(deck.Clubs, deck.Four)))

	high := []deck.Card{
		card(deck.Clubs, deck.Jack),
		card(deck.Clubs, deck.Queen),
		card(deck.Clubs, deck.King),
	}
	assert.Equal(t, SideLeft, SlapDownFrom(high, card(deck.Clubs, deck.Ten)))
	assert.Equal(t, SideNone, SlapDownFrom(high, card(deck.Clubs, deck.Ace)))
}

func TestSlapDownJokerInPileDisqualifies(t *testing.T) {
	pile := []deck.Card{
		card(deck.Diamonds, deck.Five),
		card(deck.Spades, deck.Joker),
		card(deck.Diamonds, deck.Seven),
	}
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Diamonds, deck.Eight)))
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Diamonds, deck.Four)))
}

func TestSlapDownJokerNeverAttachesToRun(t *testing.T) {
	pile := []deck.Card{
		card(deck.Diamonds, deck.Five),
		card(deck.Diamonds, deck.Six),
		card(deck.Diamonds, deck.Seven),
	}
	assert.Equal(t, SideNone, SlapDownFrom(pile, card(deck.Spades, deck.Joker)))
}

func TestSlapDownEmptyPile(t *testing.T) {
	assert.Equal(t, SideNone, SlapDownFrom(nil, card(deck.Hearts, deck.Eight)))
}
