package bot

import (
	"github.com/yanivhq/yaniv-server/internal/deck"
)

// DeckDraw is the pickup decision meaning "draw from the deck instead"
const DeckDraw = -1

// Heuristic weights for the one-ply pickup simulation
const (
	baseScore            = 1000
	bonusReachableRun    = 120
	penaltyPlannedBroken = 200
	bonusTriple          = 90
	bonusPair            = 40
	bonusImmediateRun    = 800
	penaltyRunBroken     = 600
	penaltySelfDefeating = 10000
	bonusLowCardBase     = 600
	bonusLowAdjacency    = 220
	bonusLowThree        = 180
	bonusLowAceBridge    = 160
)

// DecidePickup returns the pile index to pick from (0 or len-1) or
// DeckDraw. Each eligible edge and the skip option are scored with a
// one-ply simulated turn; jokers at an edge are always taken.
func DecidePickup(hand, pile []deck.Card, diff Difficulty) int {
	if len(pile) == 0 {
		return DeckDraw
	}

	edges := []int{0}
	if len(pile) > 1 {
		edges = append(edges, len(pile)-1)
	}

	for _, idx := range edges {
		if pile[idx].IsJoker() {
			return idx
		}
	}

	best := DeckDraw
	bestScore := simulateSkip(hand, pile, diff)
	for _, idx := range edges {
		if score := simulatePickup(hand, pile[idx], diff); score > bestScore {
			bestScore = score
			best = idx
		}
	}
	return best
}

// simulatePickup plays one imagined turn: pick the card, let the
// discard policy react with the candidate as the visible top, and score
// what remains. Depth is fixed at one ply; the inner call sees a
// single-element pile and never simulates further.
func simulatePickup(hand []deck.Card, picked deck.Card, diff Difficulty) int {
	newHand := append(append([]deck.Card{}, hand...), picked)
	deck.Sort(newHand)

	discard := ChooseDiscard(newHand, []deck.Card{picked}, diff)
	resulting, ok := deck.Remove(newHand, discard)
	if !ok {
		resulting = newHand
	}

	score := baseScore - deck.HandValue(resulting)

	// A pickup that completes a pair the same turn throws away is
	// self-defeating.
	if countRank(hand, picked.Rank) >= 1 && countRank(discard, picked.Rank) > 0 {
		score -= penaltySelfDefeating
	}

	// Immediate 3-run completion.
	if partners := runPartners(hand, picked, diff.jokerBudget()); partners != nil {
		broken := false
		for _, p := range partners {
			if deck.Contains(discard, p) {
				broken = true
				break
			}
		}
		if broken {
			score -= penaltyRunBroken
		} else {
			score += bonusImmediateRun
		}
	}

	// A 3-run stays reachable with the picked card next turn.
	if deck.Contains(resulting, picked) && reachableRun(resulting, picked, diff) {
		score += bonusReachableRun
	}

	// The plan around the picked card loses a card to this turn's discard.
	for _, c := range plannedRunCards(hand, picked) {
		if deck.Contains(discard, c) {
			score -= penaltyPlannedBroken
			break
		}
	}

	score += groupBonuses(resulting)

	if picked.Points() <= 2 {
		score += lowCardBonus(resulting, picked, diff)
	}

	return score
}

// simulateSkip scores drawing blind from the deck: the hand sheds its
// planned discard and the drawn card is unknown, so only the remaining
// structure counts.
func simulateSkip(hand, pile []deck.Card, diff Difficulty) int {
	discard := ChooseDiscard(hand, pile, diff)
	resulting, ok := deck.Remove(hand, discard)
	if !ok {
		resulting = hand
	}
	return baseScore - deck.HandValue(resulting) + groupBonuses(resulting)
}

// groupBonuses rewards remaining same-rank structure: +90 per group of
// three or more, +40 per pair.
func groupBonuses(hand []deck.Card) int {
	counts := make(map[deck.Rank]int)
	for _, c := range hand {
		if !c.IsJoker() {
			counts[c.Rank]++
		}
	}
	score := 0
	for _, n := range counts {
		switch {
		case n >= 3:
			score += bonusTriple
		case n == 2:
			score += bonusPair
		}
	}
	return score
}

// reachableRun reports whether the picked card plus two cards (one of
// which may still arrive) can form a run next turn: a same-suit card
// within two ranks survives alongside it.
func reachableRun(hand []deck.Card, picked deck.Card, diff Difficulty) bool {
	if diff.jokerBudget() < 0 {
		return false
	}
	for _, c := range hand {
		if c == picked || c.IsJoker() {
			continue
		}
		if c.Suit != picked.Suit || c.Rank == picked.Rank {
			continue
		}
		diffRank := int(c.Rank) - int(picked.Rank)
		if diffRank < 0 {
			diffRank = -diffRank
		}
		if diffRank <= 2 {
			return true
		}
	}
	return false
}

// plannedRunCards returns the held cards a run built around the picked
// card would use.
func plannedRunCards(hand []deck.Card, picked deck.Card) []deck.Card {
	var out []deck.Card
	for _, c := range hand {
		if c.IsJoker() || c.Suit != picked.Suit || c.Rank == picked.Rank {
			continue
		}
		diff := int(c.Rank) - int(picked.Rank)
		if diff < 0 {
			diff = -diff
		}
		if diff <= 2 {
			out = append(out, c)
		}
	}
	return out
}

// lowCardBonus rewards taking cheap cards, scaled down by their point
// value, with extra weight for same-suit connectivity around the ace.
// The joker bridge is only seen at hard difficulty.
func lowCardBonus(hand []deck.Card, picked deck.Card, diff Difficulty) int {
	bonus := bonusLowCardBase - (picked.Points()-1)*100

	hasSuited := func(rank deck.Rank) bool {
		for _, c := range hand {
			if !c.IsJoker() && c.Suit == picked.Suit && c.Rank == rank {
				return true
			}
		}
		return false
	}
	hasJoker := len(jokersIn(hand)) > 0

	switch picked.Rank {
	case deck.Ace:
		if hasSuited(deck.Two) {
			bonus += bonusLowAdjacency
		}
		if hasSuited(deck.Three) && (hasSuited(deck.Two) || (diff == Hard && hasJoker)) {
			bonus += bonusLowAceBridge
		}
	case deck.Two:
		if hasSuited(deck.Ace) {
			bonus += bonusLowAdjacency
		}
		if hasSuited(deck.Three) {
			bonus += bonusLowThree
		}
	}
	return bonus
}
