// Package bot implements the heuristic opponent. The policy is purely
// functional over the visible hand and pickup pile; it never touches
// game state.
package bot

import (
	"fmt"

	"github.com/yanivhq/yaniv-server/internal/deck"
)

// Difficulty selects how sophisticated the bot plays
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// String returns the string representation of a difficulty
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "unknown"
	}
}

// ParseDifficulty converts a wire string to a Difficulty
func ParseDifficulty(s string) (Difficulty, error) {
	switch s {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	default:
		return Easy, fmt.Errorf("unknown difficulty: %q", s)
	}
}

// jokerBudget returns how many jokers the difficulty may spend on a
// synthesized run. Easy never synthesizes runs at all.
func (d Difficulty) jokerBudget() int {
	switch d {
	case Medium:
		return 0
	case Hard:
		return 1
	default:
		return -1
	}
}

// ShouldCallYaniv reports whether the bot calls Yaniv. Bots always call
// as soon as the hand is at or below the threshold.
func ShouldCallYaniv(hand []deck.Card, threshold int) bool {
	return deck.HandValue(hand) <= threshold
}

// ChooseDiscard picks the combination the bot sheds this turn. The
// rules are tried in priority order; the first that produces a legal
// discard wins. The pile is the current pickup pile, whose first card
// acts as the visible top.
func ChooseDiscard(hand, pile []deck.Card, diff Difficulty) []deck.Card {
	if len(hand) == 0 {
		return nil
	}

	var top deck.Card
	hasTop := len(pile) > 0
	if hasTop {
		top = pile[0]
	}

	// 1. Protect a planned run: the pile top plus two held cards could
	// complete a run next turn, so discard around them.
	if hasTop && !top.IsJoker() && diff.jokerBudget() >= 0 {
		if partners := runPartners(hand, top, diff.jokerBudget()); partners != nil {
			if d := highestSingle(hand, partners, top.Rank); d != nil {
				return d
			}
		}
	}

	// 2. A free joker on the pile: shed anything safe and take it.
	if hasTop && top.IsJoker() {
		if d := highestSingle(hand, nil, deck.Joker); d != nil {
			return d
		}
	}

	// 3. Shed the best run already in hand.
	if runs := handRuns(hand, diff.jokerBudget()); len(runs) > 0 {
		return bestRun(runs)
	}

	// 4. The top would extend a run we hold; keep the run, shed elsewhere.
	if hasTop && !top.IsJoker() && diff.jokerBudget() >= 0 && extendsHeldRun(hand, top) {
		if d := highestSingle(hand, runNeighbours(hand, top), top.Rank); d != nil {
			return d
		}
	}

	// 5. The top pairs a held rank: keep that rank, shed another set or
	// the highest loose card.
	if hasTop && !top.IsJoker() && countRank(hand, top.Rank) >= 1 {
		if set := bestSetExcluding(hand, top.Rank); set != nil {
			return set
		}
		if d := highestSingle(hand, cardsOfRank(hand, top.Rank), top.Rank); d != nil {
			return d
		}
	}

	// 6. A cheap top is worth taking: shed a safe high card.
	if hasTop && !top.IsJoker() && top.Points() <= 2 {
		if d := highestLoose(hand, top.Rank); d != nil {
			return d
		}
	}

	// 7. Prefer sets over singletons.
	if set := bestSetExcluding(hand, deck.Joker); set != nil {
		if allAces(set) {
			if d := highestNonAceSingleton(hand); d != nil {
				return d
			}
		}
		return set
	}

	// 8. Fallback: highest non-joker, or a lone joker.
	if d := highestSingle(hand, nil, deck.Joker); d != nil {
		return d
	}
	return []deck.Card{hand[0]}
}

// highestSingle returns the highest-point non-joker single not in keep
// and not of avoidRank, or nil. avoidRank of Joker disables the rank
// filter.
func highestSingle(hand []deck.Card, keep []deck.Card, avoidRank deck.Rank) []deck.Card {
	best := -1
	var pick deck.Card
	for _, c := range hand {
		if c.IsJoker() || deck.Contains(keep, c) {
			continue
		}
		if avoidRank != deck.Joker && c.Rank == avoidRank {
			continue
		}
		if c.Points() > best {
			best = c.Points()
			pick = c
		}
	}
	if best < 0 {
		return nil
	}
	return []deck.Card{pick}
}

// highestLoose returns the highest non-joker card that is not part of a
// held pair and not of avoidRank.
func highestLoose(hand []deck.Card, avoidRank deck.Rank) []deck.Card {
	best := -1
	var pick deck.Card
	for _, c := range hand {
		if c.IsJoker() || c.Rank == avoidRank || countRank(hand, c.Rank) > 1 {
			continue
		}
		if c.Points() > best {
			best = c.Points()
			pick = c
		}
	}
	if best < 0 {
		return nil
	}
	return []deck.Card{pick}
}

// bestSetExcluding returns the same-rank group (2..4 cards) with the
// largest total value, skipping excludeRank. Joker as excludeRank
// disables the exclusion.
func bestSetExcluding(hand []deck.Card, excludeRank deck.Rank) []deck.Card {
	groups := make(map[deck.Rank][]deck.Card)
	for _, c := range hand {
		if c.IsJoker() {
			continue
		}
		groups[c.Rank] = append(groups[c.Rank], c)
	}
	var best []deck.Card
	bestValue := 0
	for rank, cards := range groups {
		if len(cards) < 2 {
			continue
		}
		if excludeRank != deck.Joker && rank == excludeRank {
			continue
		}
		value := deck.HandValue(cards)
		if value > bestValue || (value == bestValue && len(cards) > len(best)) {
			best = cards
			bestValue = value
		}
	}
	return best
}

// highestNonAceSingleton finds the highest non-ace, non-joker card that
// is not part of a pair, for the ace-set escape rule.
func highestNonAceSingleton(hand []deck.Card) []deck.Card {
	best := -1
	var pick deck.Card
	for _, c := range hand {
		if c.IsJoker() || c.Rank == deck.Ace || countRank(hand, c.Rank) > 1 {
			continue
		}
		if c.Points() > best {
			best = c.Points()
			pick = c
		}
	}
	if best < 0 {
		return nil
	}
	return []deck.Card{pick}
}

func allAces(cards []deck.Card) bool {
	for _, c := range cards {
		if c.Rank != deck.Ace {
			return false
		}
	}
	return len(cards) > 0
}

func countRank(hand []deck.Card, rank deck.Rank) int {
	n := 0
	for _, c := range hand {
		if !c.IsJoker() && c.Rank == rank {
			n++
		}
	}
	return n
}

func cardsOfRank(hand []deck.Card, rank deck.Rank) []deck.Card {
	var out []deck.Card
	for _, c := range hand {
		if !c.IsJoker() && c.Rank == rank {
			out = append(out, c)
		}
	}
	return out
}
