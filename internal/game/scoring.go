package game

import (
	"sort"
	"time"

	"github.com/yanivhq/yaniv-server/internal/deck"
)

// resolveYanivLocked ends the round after a Yaniv call. The caller wins
// outright only when every opponent holds strictly more; otherwise the
// first tied-low opponent in seating order assafs them.
func (g *Game) resolveYanivLocked(callerID string) {
	g.turnGen++
	g.slapGen++
	g.slapFor = ""

	callerValue := deck.HandValue(g.hands[callerID])

	participants := g.activeIndexes()

	winnerID := callerID
	assafID := ""
	minOther := -1
	for _, idx := range participants {
		p := g.players[idx]
		if p.ID == callerID {
			continue
		}
		v := deck.HandValue(g.hands[p.ID])
		if minOther < 0 || v < minOther {
			minOther = v
		}
	}
	if minOther >= 0 && minOther <= callerValue {
		for _, idx := range participants {
			p := g.players[idx]
			if p.ID == callerID {
				continue
			}
			if deck.HandValue(g.hands[p.ID]) == minOther {
				winnerID = p.ID
				assafID = p.ID
				break
			}
		}
	}

	g.logger.Info("round resolved",
		"round", g.round,
		"caller", callerID,
		"callerValue", callerValue,
		"winner", winnerID,
		"assaf", assafID != "")

	deltas := make(map[string][]int, len(participants))
	for _, idx := range participants {
		p := g.players[idx]
		st := g.stats[p.ID]

		var add int
		switch {
		case p.ID == winnerID:
			add = 0
		case p.ID == callerID:
			add = assafPenalty + callerValue
		default:
			add = deck.HandValue(g.hands[p.ID])
		}

		st.Score += add
		deltas[p.ID] = []int{add}

		// Landing exactly on a nonzero multiple of 50 earns the bonus
		// reduction.
		if st.Score != 0 && st.Score%bonusStep == 0 {
			st.Score -= bonusStep
			deltas[p.ID] = append(deltas[p.ID], -bonusStep)
		}
	}

	// Eliminations; ties within one round break by descending id for
	// a deterministic loser order.
	var losers []string
	for _, idx := range participants {
		p := g.players[idx]
		if g.stats[p.ID].Score > g.cfg.MaxMatchPoints {
			losers = append(losers, p.ID)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(losers)))
	for _, id := range losers {
		g.stats[id].Status = StatusLost
		g.loserOrder = append(g.loserOrder, id)
		if !g.playerByID(id).IsBot {
			g.emit(HumanLostEvent{PlayerID: id})
		}
	}

	g.winner = winnerID
	g.lastAssaf = assafID
	g.phase = phaseRoundEnd

	delayMS := roundEndPerSeatMS*len(participants) - 1
	if len(losers) > 0 {
		delayMS += eliminationPauseMS
	}

	roundPlayers := make([]*Player, 0, len(participants))
	for _, idx := range participants {
		roundPlayers = append(roundPlayers, g.players[idx])
	}

	g.emit(RoundEndedEvent{
		WinnerID:          winnerID,
		PlayersStats:      g.copyStats(),
		YanivCaller:       callerID,
		AssafCaller:       assafID,
		PlayerHands:       g.copyHands(),
		RoundPlayers:      roundPlayers,
		PlayersRoundScore: deltas,
		Losers:            losers,
		NextDelayMS:       delayMS,
	})

	g.schedule(time.Duration(delayMS)*time.Millisecond, func() {
		if g.phase != phaseRoundEnd {
			return
		}
		if len(g.activeIndexes()) >= 2 {
			g.startRoundLocked()
		} else {
			g.endMatchLocked()
		}
	})
}

// endMatchLocked declares the match winner and publishes final places
func (g *Game) endMatchLocked() {
	active := g.activeIndexes()

	var winnerID string
	switch len(active) {
	case 1:
		winnerID = g.players[active[0]].ID
	case 0:
		// Everyone crossed the threshold in the final round: the lowest
		// score wins, preferring the assaf caller on ties.
		best := -1
		for _, p := range g.players {
			st := g.stats[p.ID]
			if st.Status == StatusLeave {
				continue
			}
			switch {
			case best < 0 || st.Score < best:
				best = st.Score
				winnerID = p.ID
			case st.Score == best && p.ID == g.lastAssaf:
				winnerID = p.ID
			}
		}
	default:
		// Match ended with play still possible (mass leave); fall back
		// to the lowest score among actives.
		best := -1
		for _, idx := range active {
			p := g.players[idx]
			if best < 0 || g.stats[p.ID].Score < best {
				best = g.stats[p.ID].Score
				winnerID = p.ID
			}
		}
	}

	if winnerID != "" {
		g.stats[winnerID].Status = StatusWinner
	}
	g.winner = winnerID
	g.phase = phaseEnded
	g.turnGen++
	g.slapGen++
	g.scheduleGen++

	// Places: reverse elimination order, winner first, leavers last.
	places := make([]string, 0, len(g.players))
	if winnerID != "" {
		places = append(places, winnerID)
	}
	for i := len(g.loserOrder) - 1; i >= 0; i-- {
		if g.loserOrder[i] != winnerID {
			places = append(places, g.loserOrder[i])
		}
	}
	for _, p := range g.players {
		if g.stats[p.ID].Status == StatusLeave {
			places = append(places, p.ID)
		}
	}

	finalScores := make(map[string]int, len(g.stats))
	for id, st := range g.stats {
		finalScores[id] = st.Score
	}

	g.logger.Info("match ended", "winner", winnerID, "rounds", g.round)

	g.emit(GameEndedEvent{
		Winner:       winnerID,
		FinalScores:  finalScores,
		PlayersStats: g.copyStats(),
		Places:       places,
	})
}

// Leave removes a player mid-match. Their cards return to the discard
// tail so the round stays playable; a single survivor wins outright.
func (g *Game) Leave(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.stats[playerID]
	if !ok {
		return
	}
	if g.phase == phaseEnded {
		st.Status = StatusLeave
		g.emit(PlayersStatsEvent{RoomID: g.roomID, PlayerID: playerID, PlayersStats: g.copyStats()})
		return
	}

	wasCurrent := g.phase == phaseInRound && g.players[g.current].ID == playerID

	st.Status = StatusLeave
	g.discards = append(g.discards, g.hands[playerID]...)
	delete(g.hands, playerID)
	if g.slapFor == playerID {
		g.slapFor = ""
		g.slapGen++
	}

	g.emit(PlayersStatsEvent{RoomID: g.roomID, PlayerID: playerID, PlayersStats: g.copyStats()})

	if len(g.activeIndexes()) <= 1 {
		g.endMatchLocked()
		return
	}

	if wasCurrent {
		g.turnGen++
		g.current = g.nextActiveIndex(g.current)
		g.beginTurnLocked()
	}
}

// PlayAgain registers a rematch vote. When every remaining player has
// voted and at least two have, a fresh match begins.
func (g *Game) PlayAgain(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != phaseEnded {
		return ErrRoundNotRunning
	}
	st, ok := g.stats[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if st.Status == StatusLeave {
		return ErrUnknownPlayer
	}

	st.Status = StatusPlayAgain
	g.emit(PlayersStatsEvent{RoomID: g.roomID, PlayerID: playerID, PlayersStats: g.copyStats()})

	votes := 0
	eligible := 0
	for _, p := range g.players {
		switch g.stats[p.ID].Status {
		case StatusLeave:
		case StatusPlayAgain:
			votes++
			eligible++
		default:
			eligible++
		}
	}
	if votes < 2 || votes != eligible {
		return nil
	}

	for _, p := range g.players {
		if g.stats[p.ID].Status == StatusPlayAgain {
			g.stats[p.ID].Status = StatusActive
			g.stats[p.ID].Score = 0
		}
	}
	g.loserOrder = nil
	g.round = 0
	g.winner = ""
	g.lastAssaf = ""
	g.gameStart = g.clock.Now()
	g.startRoundLocked()
	return nil
}

func (g *Game) playerByID(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return &Player{ID: id}
}
