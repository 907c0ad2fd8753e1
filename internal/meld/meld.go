// Package meld decides whether a multiset of cards forms a legal Yaniv
// combination: a set of matching ranks or a suited run, with jokers
// substituting for any card.
package meld

import (
	"sort"

	"github.com/yanivhq/yaniv-server/internal/deck"
)

// MinRunLength is the minimum length of a run when a combination is
// played to initiate a pickup. Two-card runs are never legal at pickup
// time; the knob exists because some rule variants allow them once the
// combination is already on the pile.
const MinRunLength = 3

// Side identifies which end of the last-discarded combination a
// slapped-down card attaches to.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

// String returns the string representation of a side
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// IsValidSet reports whether cards form a legal combination. A single
// card is always legal. Multiple cards are legal as a rank set (all
// non-jokers share one rank) or as a suited run of at least three
// cards. When beforePickup is set, two distinct cards can never be a
// run: runs must have at least MinRunLength cards when initiating a
// pickup.
func IsValidSet(cards []deck.Card, beforePickup bool) bool {
	switch {
	case len(cards) == 0:
		return false
	case len(cards) == 1:
		return true
	}

	if isRankSet(cards) {
		return true
	}

	if beforePickup && len(cards) == 2 {
		return false
	}

	_, ok := arrangeRun(cards)
	return ok
}

// SequenceArrangement normalises the order of a combination so that
// pickup from its two ends is well-defined. Rank sets come back
// unchanged; runs come back in ascending rank order with jokers placed
// into the gaps. Invalid combinations return nil, false. The result is
// stable under reordering of the input.
func SequenceArrangement(cards []deck.Card) ([]deck.Card, bool) {
	switch {
	case len(cards) == 0:
		return nil, false
	case len(cards) == 1:
		return cards, true
	}

	if isRankSet(cards) {
		return cards, true
	}

	return arrangeRun(cards)
}

// SlapDownFrom reports which end of the last-discarded combination the
// drawn card may be slapped onto, or SideNone. Jokers inside the
// combination disqualify the slap except for the single-joker case.
func SlapDownFrom(lastDiscarded []deck.Card, drawn deck.Card) Side {
	if len(lastDiscarded) == 0 {
		return SideNone
	}

	if len(lastDiscarded) == 1 {
		last := lastDiscarded[0]
		if last.IsJoker() {
			if drawn.IsJoker() {
				return SideRight
			}
			return SideNone
		}
		if !drawn.IsJoker() && drawn.Rank == last.Rank {
			return SideRight
		}
		return SideNone
	}

	for _, c := range lastDiscarded {
		if c.IsJoker() {
			return SideNone
		}
	}

	if sameRank(lastDiscarded) {
		if !drawn.IsJoker() && drawn.Rank == lastDiscarded[0].Rank {
			return SideRight
		}
		return SideNone
	}

	// Pure run: same suit, consecutive as arranged.
	if len(lastDiscarded) < MinRunLength || drawn.IsJoker() {
		return SideNone
	}
	suit := lastDiscarded[0].Suit
	min, max := lastDiscarded[0].Rank, lastDiscarded[0].Rank
	prev := lastDiscarded[0].Rank
	for _, c := range lastDiscarded[1:] {
		if c.Suit != suit || c.Rank != prev+1 {
			return SideNone
		}
		prev = c.Rank
		if c.Rank < min {
			min = c.Rank
		}
		if c.Rank > max {
			max = c.Rank
		}
	}
	if drawn.Suit != suit {
		return SideNone
	}
	if drawn.Rank == min-1 && min-1 >= deck.Ace {
		return SideLeft
	}
	if drawn.Rank == max+1 && max+1 <= deck.King {
		return SideRight
	}
	return SideNone
}

// CanPickup reports whether a card at index may be taken from a pile of
// the given length: only the two ends are reachable.
func CanPickup(pileLen, index int) bool {
	if pileLen < 1 || index < 0 {
		return false
	}
	return index == 0 || index == pileLen-1
}

// RunArrangement is like SequenceArrangement but only accepts runs,
// never rank sets. Callers that synthesize runs (the bot policy) use it
// to avoid classifying a pair of equal ranks as a sequence.
func RunArrangement(cards []deck.Card) ([]deck.Card, bool) {
	return arrangeRun(cards)
}

// isRankSet reports whether all non-jokers share one rank. A hand of
// only jokers qualifies vacuously.
func isRankSet(cards []deck.Card) bool {
	rank := deck.Joker
	for _, c := range cards {
		if c.IsJoker() {
			continue
		}
		if rank == deck.Joker {
			rank = c.Rank
		} else if c.Rank != rank {
			return false
		}
	}
	return true
}

func sameRank(cards []deck.Card) bool {
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return false
		}
	}
	return true
}

// arrangeRun tries to lay cards out as a run: all non-jokers in one
// suit with distinct ranks, jokers filling gaps of the required
// arithmetic progression. Returns the arranged cards or nil, false.
func arrangeRun(cards []deck.Card) ([]deck.Card, bool) {
	if len(cards) < MinRunLength {
		return nil, false
	}

	var nonJokers, jokers []deck.Card
	for _, c := range cards {
		if c.IsJoker() {
			jokers = append(jokers, c)
		} else {
			nonJokers = append(nonJokers, c)
		}
	}
	if len(nonJokers) == 0 {
		return nil, false
	}

	suit := nonJokers[0].Suit
	seen := make(map[deck.Rank]bool, len(nonJokers))
	for _, c := range nonJokers {
		if c.Suit != suit || seen[c.Rank] {
			return nil, false
		}
		seen[c.Rank] = true
	}

	sort.Slice(nonJokers, func(i, j int) bool {
		return nonJokers[i].Rank < nonJokers[j].Rank
	})

	n := len(cards)
	lo := int(nonJokers[0].Rank)
	hi := int(nonJokers[len(nonJokers)-1].Rank)

	// Jokers needed inside the span; the rest pad the ends.
	interior := (hi - lo + 1) - len(nonJokers)
	if interior < 0 || interior > len(jokers) {
		return nil, false
	}

	// A start s must satisfy s <= lo, s+n-1 >= hi, 1 <= s, s+n-1 <= 13.
	minStart := hi - n + 1
	if minStart < 1 {
		minStart = 1
	}
	maxStart := lo
	if maxStart > 14-n {
		maxStart = 14 - n
	}
	if minStart > maxStart {
		return nil, false
	}

	// Prefer trailing jokers over leading ones: start as high as fits.
	start := maxStart

	arranged := make([]deck.Card, 0, n)
	ji := 0
	next := 0
	for pos := 0; pos < n; pos++ {
		rank := deck.Rank(start + pos)
		if next < len(nonJokers) && nonJokers[next].Rank == rank {
			arranged = append(arranged, nonJokers[next])
			next++
		} else {
			if ji >= len(jokers) {
				return nil, false
			}
			arranged = append(arranged, jokers[ji])
			ji++
		}
	}
	if next != len(nonJokers) || ji != len(jokers) {
		return nil, false
	}
	return arranged, true
}
