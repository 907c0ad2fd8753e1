// Package game drives a single room's match: dealing, the turn loop
// with time limits, slap-down windows, Yaniv/Assaf resolution, scoring
// and match termination. All state transitions for a room are
// serialized behind one mutex; timers fire guarded callbacks that
// re-check a generation counter so a late fire after cancellation is a
// no-op.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/yanivhq/yaniv-server/internal/bot"
	"github.com/yanivhq/yaniv-server/internal/deck"
	"github.com/yanivhq/yaniv-server/internal/meld"
)

// HandSize is the number of cards dealt to each player
const HandSize = 5

const (
	slapDownWindow = 3 * time.Second
	botThinkDelay  = 1500 * time.Millisecond

	// Start delays are linear in the active-player count so clients
	// have time to animate the deal.
	firstDealBaseMS    = 2100
	firstDealPerSeat   = 500
	nextDealBaseMS     = 2600
	nextDealPerSeat    = 700
	roundEndPerSeatMS  = 2000
	eliminationPauseMS = 3250

	assafPenalty = 30
	bonusStep    = 50
)

var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidSelection = errors.New("selected cards are not a valid set")
	ErrCardsNotInHand   = errors.New("selected cards are not in your hand")
	ErrInvalidPickup    = errors.New("pickup index out of range")
	ErrGameOver         = errors.New("game has ended")
	ErrRoundNotRunning  = errors.New("no round in progress")
	ErrNoSlapDownWindow = errors.New("no slap-down window open")
	ErrUnknownPlayer    = errors.New("unknown player")
)

type phase int

const (
	phaseIdle phase = iota
	phaseInRound
	phaseRoundEnd
	phaseEnded
)

// Game is the authoritative state machine for one room's match
type Game struct {
	mu     sync.Mutex
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	roomID string
	cfg    Config
	sink   EventSink

	players []*Player

	phase      phase
	stack      *deck.Deck
	discards   []deck.Card
	pickup     []deck.Card
	hands      map[string][]deck.Card
	stats      map[string]*PlayerStat
	loserOrder []string
	round      int
	current    int
	winner     string

	gameStart time.Time
	turnStart time.Time

	// Generation counters invalidate superseded timers.
	turnGen     int
	slapGen     int
	scheduleGen int

	slapFor   string
	slapCard  deck.Card
	lastAssaf string
}

// New creates a game for the given seats. The event sink receives every
// outbound announcement; the clock is injectable for tests.
func New(roomID string, players []*Player, cfg Config, sink EventSink, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *Game {
	g := &Game{
		logger: logger.WithPrefix("game").With("room", roomID),
		clock:  clock,
		rng:    rng,
		roomID: roomID,
		cfg:    cfg,
		sink:   sink,
		// The lobby keeps editing its own seat list; the engine owns a copy.
		players: append([]*Player(nil), players...),
		hands:   make(map[string][]deck.Card),
		stats:   make(map[string]*PlayerStat),
	}
	for _, p := range players {
		g.stats[p.ID] = &PlayerStat{
			Status:      StatusActive,
			PlayerName:  p.NickName,
			AvatarIndex: p.AvatarIndex,
		}
	}
	return g
}

// Start deals the first round
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != phaseIdle {
		return
	}
	g.gameStart = g.clock.Now()
	g.startRoundLocked()
}

// Stop cancels every pending timer and freezes the game
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = phaseEnded
	g.turnGen++
	g.slapGen++
	g.scheduleGen++
}

// Round returns the current round number
func (g *Game) Round() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round
}

// Ended reports whether the match is over
func (g *Game) Ended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase == phaseEnded
}

// startRoundLocked shuffles, deals and schedules the first turn
func (g *Game) startRoundLocked() {
	g.round++
	g.phase = phaseInRound
	g.discards = nil
	g.slapFor = ""
	g.slapGen++

	g.stack = deck.New(g.rng)
	g.stack.Shuffle()

	first, ok := g.stack.Draw()
	if !ok {
		g.logger.Error("deck empty on deal")
		return
	}
	g.pickup = []deck.Card{first}

	active := g.activeIndexes()
	g.hands = make(map[string][]deck.Card, len(active))
	for _, idx := range active {
		hand := g.stack.DrawN(HandSize)
		deck.Sort(hand)
		g.hands[g.players[idx].ID] = hand
	}

	// The previous round's winner leads; on the first round seat 0 does.
	g.current = g.firstActiveIndex(g.winner)

	delayMS := firstDealBaseMS + firstDealPerSeat*len(active)
	if g.round > 1 {
		delayMS = nextDealBaseMS + nextDealPerSeat*len(active)
	}

	if g.round == 1 {
		g.emit(GameInitializedEvent{
			RoomID:          g.roomID,
			Round:           g.round,
			Players:         g.players,
			Hands:           g.copyHands(),
			PickupCards:     g.copyPickup(),
			CurrentPlayerID: g.players[g.current].ID,
			StartDelayMS:    delayMS,
			TimePerPlayer:   g.cfg.TimePerPlayer,
			CanCallYaniv:    g.cfg.CanCallYaniv,
			MaxMatchPoints:  g.cfg.MaxMatchPoints,
			SlapDown:        g.cfg.SlapDown,
		})
	} else {
		g.emit(NewRoundEvent{
			RoomID:          g.roomID,
			Round:           g.round,
			Hands:           g.copyHands(),
			PickupCards:     g.copyPickup(),
			CurrentPlayerID: g.players[g.current].ID,
			StartDelayMS:    delayMS,
		})
	}

	// A turn begun during the deal delay supersedes this timer.
	turnGen := g.turnGen
	g.schedule(time.Duration(delayMS)*time.Millisecond, func() {
		if g.phase != phaseInRound || g.turnGen != turnGen {
			return
		}
		g.beginTurnLocked()
	})
}

// beginTurnLocked announces the turn and arms its timer
func (g *Game) beginTurnLocked() {
	g.turnStart = g.clock.Now()
	current := g.players[g.current]

	g.emit(TurnStartedEvent{
		CurrentPlayerID: current.ID,
		TimeRemaining:   g.cfg.TimePerPlayer,
	})

	g.turnGen++
	gen := g.turnGen
	g.clock.AfterFunc(time.Duration(g.cfg.TimePerPlayer)*time.Second, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if gen != g.turnGen || g.phase != phaseInRound {
			return
		}
		g.turnTimeoutLocked()
	})

	if current.IsBot {
		g.clock.AfterFunc(botThinkDelay, func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if gen != g.turnGen || g.phase != phaseInRound {
				return
			}
			g.botTurnLocked()
		})
	}
}

// CompleteTurn applies a player's turn action
func (g *Game) CompleteTurn(playerID string, action TurnAction, selected []deck.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == phaseEnded {
		return ErrGameOver
	}
	if g.phase != phaseInRound {
		return ErrRoundNotRunning
	}
	if g.players[g.current].ID != playerID {
		return ErrNotYourTurn
	}

	hand := g.hands[playerID]
	if _, ok := deck.Remove(hand, selected); !ok {
		return ErrCardsNotInHand
	}
	if !meld.IsValidSet(selected, true) {
		return ErrInvalidSelection
	}
	if action.Choice == ChoicePickup && !meld.CanPickup(len(g.pickup), action.PickupIndex) {
		return ErrInvalidPickup
	}

	g.applyTurnLocked(action, selected, false)
	return nil
}

// applyTurnLocked mutates state for a validated turn and moves play to
// the next seat.
func (g *Game) applyTurnLocked(action TurnAction, selected []deck.Card, disableSlapDown bool) {
	playerID := g.players[g.current].ID
	hand := g.hands[playerID]

	arranged, _ := meld.SequenceArrangement(selected)
	positions := cardPositions(hand, arranged)
	amountBefore := len(hand)

	// Replacing the pile closes any open slap-down window.
	g.slapFor = ""
	g.slapGen++

	remaining, _ := deck.Remove(hand, arranged)
	g.discards = append(g.discards, g.pickup...)

	var drawn *deck.Card
	source := SourcePickup

	switch action.Choice {
	case ChoiceDeck:
		source = SourceDeck
		g.pickup = append([]deck.Card{}, arranged...)
		card, ok := g.drawLocked()
		if !ok {
			// Deck and discard tail both empty, which means every card
			// is in hands or on the pile. The turn stands without a draw.
			g.logger.Error("no cards left to draw", "player", playerID)
			break
		}
		if g.cfg.SlapDown && !disableSlapDown && !card.IsJoker() &&
			meld.SlapDownFrom(g.pickup, card) != meld.SideNone {
			g.armSlapDownLocked(playerID, card)
		}
		remaining = append(remaining, card)
		drawn = &card

	case ChoicePickup:
		taken := g.pickup[action.PickupIndex]
		// The taken card leaves the discard tail again.
		g.discards = removeOne(g.discards, taken)
		g.pickup = append([]deck.Card{}, arranged...)
		remaining = append(remaining, taken)
		drawn = &taken
	}

	deck.Sort(remaining)
	g.hands[playerID] = remaining

	g.current = g.nextActiveIndex(g.current)

	g.emit(PlayerDrewEvent{
		PlayerID:               playerID,
		Source:                 source,
		Hands:                  g.copyHands(),
		PickupCards:            g.copyPickup(),
		Card:                   drawn,
		SelectedCardsPositions: positions,
		AmountBefore:           amountBefore,
		CurrentPlayerID:        g.players[g.current].ID,
		SlapDownActiveFor:      g.slapFor,
	})

	g.beginTurnLocked()
}

// turnTimeoutLocked forces the highest card out as a deck turn
func (g *Game) turnTimeoutLocked() {
	playerID := g.players[g.current].ID
	hand := g.hands[playerID]
	if len(hand) == 0 {
		g.logger.Error("turn timeout with empty hand", "player", playerID)
		return
	}
	// Hands are sorted ascending, so the forced discard is the last card.
	forced := []deck.Card{hand[len(hand)-1]}
	g.logger.Info("turn timed out, forcing discard", "player", playerID, "card", forced[0])
	g.applyTurnLocked(TurnAction{Choice: ChoiceDeck}, forced, true)
}

// botTurnLocked lets the policy act for the current bot seat
func (g *Game) botTurnLocked() {
	seat := g.players[g.current]
	hand := g.hands[seat.ID]

	if bot.ShouldCallYaniv(hand, g.cfg.CanCallYaniv) {
		g.resolveYanivLocked(seat.ID)
		return
	}

	discard := bot.ChooseDiscard(hand, g.pickup, seat.Difficulty)
	if len(discard) == 0 || !meld.IsValidSet(discard, true) {
		// Defensive fallback; the policy should always produce a legal
		// discard.
		discard = []deck.Card{hand[len(hand)-1]}
	}

	action := TurnAction{Choice: ChoiceDeck}
	if idx := bot.DecidePickup(hand, g.pickup, seat.Difficulty); idx != bot.DeckDraw {
		action = TurnAction{Choice: ChoicePickup, PickupIndex: idx}
	}

	g.applyTurnLocked(action, discard, false)
}

// CallYaniv resolves the round if the caller is allowed to end it
func (g *Game) CallYaniv(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == phaseEnded {
		return ErrGameOver
	}
	if g.phase != phaseInRound {
		return ErrRoundNotRunning
	}
	if g.players[g.current].ID != playerID {
		return ErrNotYourTurn
	}
	value := deck.HandValue(g.hands[playerID])
	if value > g.cfg.CanCallYaniv {
		return fmt.Errorf("Cannot call Yaniv with %d points. Maximum is %d.", value, g.cfg.CanCallYaniv)
	}

	g.resolveYanivLocked(playerID)
	return nil
}

// SlapDown attaches the just-drawn card to the pile within the window
func (g *Game) SlapDown(playerID string, card deck.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != phaseInRound {
		return ErrRoundNotRunning
	}
	if g.slapFor != playerID || g.slapCard != card {
		return ErrNoSlapDownWindow
	}
	hand := g.hands[playerID]
	if !deck.Contains(hand, card) {
		return ErrCardsNotInHand
	}

	side := meld.SlapDownFrom(g.pickup, card)
	if side == meld.SideNone {
		return ErrNoSlapDownWindow
	}

	amountBefore := len(hand)
	positions := cardPositions(hand, []deck.Card{card})
	remaining, _ := deck.Remove(hand, []deck.Card{card})
	g.hands[playerID] = remaining

	if side == meld.SideLeft {
		g.pickup = append([]deck.Card{card}, g.pickup...)
	} else {
		g.pickup = append(g.pickup, card)
	}

	g.slapFor = ""
	g.slapGen++

	g.emit(PlayerDrewEvent{
		PlayerID:               playerID,
		Source:                 SourceSlap,
		Hands:                  g.copyHands(),
		PickupCards:            g.copyPickup(),
		Card:                   &card,
		SelectedCardsPositions: positions,
		AmountBefore:           amountBefore,
		CurrentPlayerID:        g.players[g.current].ID,
	})
	return nil
}

// armSlapDownLocked opens the 3 second window for the drawing player
func (g *Game) armSlapDownLocked(playerID string, card deck.Card) {
	g.slapFor = playerID
	g.slapCard = card
	g.slapGen++
	gen := g.slapGen
	g.clock.AfterFunc(slapDownWindow, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if gen != g.slapGen {
			return
		}
		// Expire silently.
		g.slapFor = ""
	})
}

// drawLocked pops the deck, recycling the discard tail when it empties
func (g *Game) drawLocked() (deck.Card, bool) {
	if g.stack.IsEmpty() {
		if len(g.discards) == 0 {
			return deck.Card{}, false
		}
		g.stack.Refill(g.discards)
		g.discards = nil
		g.emit(DeckReshuffledEvent{Remaining: g.stack.Remaining()})
	}
	return g.stack.Draw()
}

// schedule runs fn under the lock after d, unless the schedule
// generation has moved on.
func (g *Game) schedule(d time.Duration, fn func()) {
	g.scheduleGen++
	gen := g.scheduleGen
	g.clock.AfterFunc(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if gen != g.scheduleGen {
			return
		}
		fn()
	})
}

func (g *Game) emit(e Event) {
	if g.sink != nil {
		g.sink(e)
	}
}

// activeIndexes returns seat indexes with StatusActive, in seating order
func (g *Game) activeIndexes() []int {
	var out []int
	for i, p := range g.players {
		if g.stats[p.ID].Status == StatusActive {
			out = append(out, i)
		}
	}
	return out
}

// nextActiveIndex returns the next active seat cyclically after from
func (g *Game) nextActiveIndex(from int) int {
	for i := 1; i <= len(g.players); i++ {
		idx := (from + i) % len(g.players)
		if g.stats[g.players[idx].ID].Status == StatusActive {
			return idx
		}
	}
	return from
}

// firstActiveIndex prefers the given player if still active, else the
// first active seat.
func (g *Game) firstActiveIndex(preferred string) int {
	if preferred != "" {
		for i, p := range g.players {
			if p.ID == preferred && g.stats[p.ID].Status == StatusActive {
				return i
			}
		}
	}
	for i, p := range g.players {
		if g.stats[p.ID].Status == StatusActive {
			return i
		}
	}
	return 0
}

func (g *Game) copyHands() map[string][]deck.Card {
	out := make(map[string][]deck.Card, len(g.hands))
	for id, hand := range g.hands {
		out[id] = append([]deck.Card{}, hand...)
	}
	return out
}

func (g *Game) copyPickup() []deck.Card {
	return append([]deck.Card{}, g.pickup...)
}

func (g *Game) copyStats() map[string]PlayerStat {
	out := make(map[string]PlayerStat, len(g.stats))
	for id, st := range g.stats {
		out[id] = *st
	}
	return out
}

// cardPositions returns the indexes of cards within hand
func cardPositions(hand []deck.Card, cards []deck.Card) []int {
	used := make([]bool, len(hand))
	positions := make([]int, 0, len(cards))
	for _, c := range cards {
		for i, h := range hand {
			if !used[i] && h == c {
				used[i] = true
				positions = append(positions, i)
				break
			}
		}
	}
	sort.Ints(positions)
	return positions
}

func removeOne(cards []deck.Card, card deck.Card) []deck.Card {
	for i, c := range cards {
		if c == card {
			return append(cards[:i], cards[i+1:]...)
		}
	}
	return cards
}
