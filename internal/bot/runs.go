package bot

import (
	"sort"

	"github.com/yanivhq/yaniv-server/internal/deck"
	"github.com/yanivhq/yaniv-server/internal/meld"
)

// runPartners finds two held cards that together with the pile top form
// a run of length 3, spending at most budget jokers from the hand.
// Returns the two partners or nil.
func runPartners(hand []deck.Card, top deck.Card, budget int) []deck.Card {
	if budget < 0 {
		return nil
	}
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			a, b := hand[i], hand[j]
			jokers := 0
			if a.IsJoker() {
				jokers++
			}
			if b.IsJoker() {
				jokers++
			}
			if jokers > budget {
				continue
			}
			trio := []deck.Card{top, a, b}
			if _, ok := meld.RunArrangement(trio); ok {
				return []deck.Card{a, b}
			}
		}
	}
	return nil
}

// handRuns enumerates the runs of length >= 3 the hand can shed,
// spending at most budget jokers. A negative budget disables run
// detection entirely.
func handRuns(hand []deck.Card, budget int) [][]deck.Card {
	if budget < 0 {
		return nil
	}
	jokers := jokersIn(hand)
	if budget > len(jokers) {
		budget = len(jokers)
	}

	bySuit := make(map[deck.Suit][]deck.Card)
	for _, c := range hand {
		if !c.IsJoker() {
			bySuit[c.Suit] = append(bySuit[c.Suit], c)
		}
	}

	var runs [][]deck.Card
	for _, suited := range bySuit {
		sort.Slice(suited, func(i, j int) bool { return suited[i].Rank < suited[j].Rank })
		for i := 0; i < len(suited); i++ {
			for j := i; j < len(suited); j++ {
				if hasDuplicateRank(suited[i : j+1]) {
					continue
				}
				span := int(suited[j].Rank) - int(suited[i].Rank) + 1
				interior := span - (j - i + 1)
				if interior < 0 || interior > budget {
					continue
				}
				cards := append([]deck.Card{}, suited[i:j+1]...)
				spare := budget - interior
				// Pad a too-short window with spare jokers at the ends.
				for span < 3 && spare > 0 && span < 13 {
					span++
					interior++
					spare--
				}
				if span < 3 {
					continue
				}
				cards = append(cards, jokers[:interior]...)
				if run, ok := meld.RunArrangement(cards); ok {
					runs = append(runs, run)
				}
			}
		}
	}
	return runs
}

// bestRun picks the longest run, breaking ties by total point value
func bestRun(runs [][]deck.Card) []deck.Card {
	var best []deck.Card
	for _, run := range runs {
		if len(run) > len(best) ||
			(len(run) == len(best) && deck.HandValue(run) > deck.HandValue(best)) {
			best = run
		}
	}
	return best
}

// extendsHeldRun reports whether top attaches to a same-suit
// consecutive pair already in hand.
func extendsHeldRun(hand []deck.Card, top deck.Card) bool {
	return len(runNeighbours(hand, top)) >= 2
}

// runNeighbours returns the held same-suit cards within two ranks of
// top that would participate in a run built around it.
func runNeighbours(hand []deck.Card, top deck.Card) []deck.Card {
	var out []deck.Card
	for _, c := range hand {
		if c.IsJoker() || c.Suit != top.Suit || c.Rank == top.Rank {
			continue
		}
		diff := int(c.Rank) - int(top.Rank)
		if diff < 0 {
			diff = -diff
		}
		if diff <= 2 {
			out = append(out, c)
		}
	}
	return out
}

func jokersIn(hand []deck.Card) []deck.Card {
	var out []deck.Card
	for _, c := range hand {
		if c.IsJoker() {
			out = append(out, c)
		}
	}
	return out
}

func hasDuplicateRank(cards []deck.Card) bool {
	for i := 1; i < len(cards); i++ {
		if cards[i].Rank == cards[i-1].Rank {
			return true
		}
	}
	return false
}
