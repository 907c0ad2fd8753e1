package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/yanivhq/yaniv-server/internal/bot"
	"github.com/yanivhq/yaniv-server/internal/game"
	"github.com/yanivhq/yaniv-server/internal/roomid"
)

// MaxRoomPlayers is the seat limit per room
const MaxRoomPlayers = 4

// Quick-game start delays staged by player count. Two players wait the
// longest-but-one so a third has a chance to join; three wait longest
// because a fourth often follows quickly.
const (
	quickStartTwo      = 3 * time.Second
	quickStartThree    = 10 * time.Second
	quickStartFourPlus = 7 * time.Second
)

const codeRetries = 10

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomStarted     = errors.New("game already started")
	ErrNotInRoom       = errors.New("player is not in a room")
	ErrNotEnoughSeats  = errors.New("need at least two players to start")
	ErrRoomCodeExhaust = errors.New("could not allocate a unique room code")
)

// RoomState tracks the lobby lifecycle of a room
type RoomState string

const (
	RoomWaiting RoomState = "waiting"
	RoomStarted RoomState = "started"
)

// Room is a lobby of players waiting for (or playing) a match
type Room struct {
	ID        string
	Players   []*game.Player
	Config    game.Config
	Votes     map[string]game.Config
	State     RoomState
	Public    bool
	CreatedAt time.Time

	startGen int
}

// RoomManager owns the rooms map and the player→room index. Both are
// guarded by one short-lived mutex used only for insert, lookup and
// remove; in-game state lives behind each Game's own serializer.
type RoomManager struct {
	mu         sync.Mutex
	logger     *log.Logger
	clock      quartz.Clock
	codes      *roomid.Generator
	defaults   game.Config
	rooms      map[string]*Room
	playerRoom map[string]string

	// onRoomFull hands a room whose game should begin over to the game
	// service. Called without the manager lock held.
	onRoomFull func(room *Room)
}

// NewRoomManager creates a room manager
func NewRoomManager(logger *log.Logger, clock quartz.Clock, codes *roomid.Generator, defaults game.Config) *RoomManager {
	return &RoomManager{
		logger:     logger.WithPrefix("rooms"),
		clock:      clock,
		codes:      codes,
		defaults:   defaults,
		rooms:      make(map[string]*Room),
		playerRoom: make(map[string]string),
	}
}

// SetRoomFullCallback installs the game-start handoff
func (rm *RoomManager) SetRoomFullCallback(fn func(room *Room)) {
	rm.onRoomFull = fn
}

// CreateRoom creates a private room with the creator's fixed config
func (rm *RoomManager) CreateRoom(player *game.Player, cfg game.Config) (*Room, error) {
	rm.removePlayer(player.ID)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, err := rm.newRoomLocked(cfg, false)
	if err != nil {
		return nil, err
	}
	room.Players = append(room.Players, player)
	rm.playerRoom[player.ID] = room.ID

	rm.logger.Info("room created", "room", room.ID, "creator", player.NickName)
	return room, nil
}

// CreateBotRoom creates a private room seated with bots of the given
// difficulties. The game starts immediately.
func (rm *RoomManager) CreateBotRoom(player *game.Player, cfg game.Config, difficulties []bot.Difficulty) (*Room, error) {
	rm.removePlayer(player.ID)

	rm.mu.Lock()
	room, err := rm.newRoomLocked(cfg, false)
	if err != nil {
		rm.mu.Unlock()
		return nil, err
	}
	room.Players = append(room.Players, player)
	rm.playerRoom[player.ID] = room.ID

	if len(difficulties) == 0 {
		difficulties = []bot.Difficulty{bot.Medium}
	}
	for i, diff := range difficulties {
		if len(room.Players) >= MaxRoomPlayers {
			break
		}
		room.Players = append(room.Players, &game.Player{
			ID:          fmt.Sprintf("bot_%s_%d", room.ID, i+1),
			NickName:    fmt.Sprintf("Bot %d (%s)", i+1, diff),
			AvatarIndex: i + 1,
			IsBot:       true,
			Difficulty:  diff,
		})
	}
	room.State = RoomStarted
	rm.mu.Unlock()

	rm.logger.Info("bot room created", "room", room.ID, "bots", len(room.Players)-1)
	if rm.onRoomFull != nil {
		rm.onRoomFull(room)
	}
	return room, nil
}

// JoinRoom seats a player in an existing room by code
func (rm *RoomManager) JoinRoom(roomID string, player *game.Player) (*Room, error) {
	rm.removePlayer(player.ID)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.State != RoomWaiting {
		return nil, ErrRoomStarted
	}
	if len(room.Players) >= MaxRoomPlayers {
		return nil, ErrRoomFull
	}

	room.Players = append(room.Players, player)
	rm.playerRoom[player.ID] = room.ID

	if room.Public {
		rm.rescheduleStartLocked(room)
	}

	rm.logger.Info("player joined", "room", room.ID, "player", player.NickName)
	return room, nil
}

// QuickGame seats a player in the oldest public waiting room with
// space, creating one when none exists.
func (rm *RoomManager) QuickGame(player *game.Player) (*Room, error) {
	rm.removePlayer(player.ID)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	var room *Room
	for _, r := range rm.rooms {
		if !r.Public || r.State != RoomWaiting || len(r.Players) >= MaxRoomPlayers {
			continue
		}
		if room == nil || r.CreatedAt.Before(room.CreatedAt) {
			room = r
		}
	}

	if room == nil {
		var err error
		room, err = rm.newRoomLocked(rm.defaults, true)
		if err != nil {
			return nil, err
		}
	}

	room.Players = append(room.Players, player)
	rm.playerRoom[player.ID] = room.ID
	rm.rescheduleStartLocked(room)

	rm.logger.Info("quick game join", "room", room.ID, "player", player.NickName, "players", len(room.Players))
	return room, nil
}

// SetQuickConfig records a player's config vote in a public room
func (rm *RoomManager) SetQuickConfig(roomID, nickName string, cfg game.Config) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.State != RoomWaiting {
		return nil, ErrRoomStarted
	}
	room.Votes[nickName] = cfg
	return room, nil
}

// StartPrivateGame begins a private room's match on demand
func (rm *RoomManager) StartPrivateGame(roomID string) (*Room, error) {
	rm.mu.Lock()
	room, ok := rm.rooms[roomID]
	if !ok {
		rm.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if room.State != RoomWaiting {
		rm.mu.Unlock()
		return nil, ErrRoomStarted
	}
	if len(room.Players) < 2 {
		rm.mu.Unlock()
		return nil, ErrNotEnoughSeats
	}
	room.State = RoomStarted
	rm.mu.Unlock()

	if rm.onRoomFull != nil {
		rm.onRoomFull(room)
	}
	return room, nil
}

// LeaveRoom removes a player from their room. Returns the room, whether
// it was destroyed, and whether the match had already started.
func (rm *RoomManager) LeaveRoom(playerID string) (*Room, bool, bool, error) {
	rm.mu.Lock()

	roomID, ok := rm.playerRoom[playerID]
	if !ok {
		rm.mu.Unlock()
		return nil, false, false, ErrNotInRoom
	}
	room := rm.rooms[roomID]
	delete(rm.playerRoom, playerID)

	started := room.State == RoomStarted

	// Rebuild rather than shift in place: the old seat list is shared with
	// the game engine and with payloads already handed out.
	var nickName string
	players := make([]*game.Player, 0, len(room.Players))
	for _, p := range room.Players {
		if p.ID == playerID {
			nickName = p.NickName
			continue
		}
		players = append(players, p)
	}
	room.Players = players
	delete(room.Votes, nickName)

	humans := 0
	for _, p := range room.Players {
		if !p.IsBot {
			humans++
		}
	}
	destroyed := humans == 0
	if destroyed {
		delete(rm.rooms, roomID)
		room.startGen++
	} else if room.Public && room.State == RoomWaiting {
		rm.rescheduleStartLocked(room)
	}
	rm.mu.Unlock()

	rm.logger.Info("player left", "room", roomID, "player", playerID, "destroyed", destroyed)
	return room, destroyed, started, nil
}

// Room returns a room by id
func (rm *RoomManager) Room(roomID string) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	room, ok := rm.rooms[roomID]
	return room, ok
}

// RoomOf returns the room a player is seated in
func (rm *RoomManager) RoomOf(playerID string) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	roomID, ok := rm.playerRoom[playerID]
	if !ok {
		return nil, false
	}
	room, ok := rm.rooms[roomID]
	return room, ok
}

// Seats returns a copy of a room's current seat list, or nil when the
// room is gone. Callers serialize it without holding the manager lock.
func (rm *RoomManager) Seats(roomID string) []*game.Player {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	room, ok := rm.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]*game.Player(nil), room.Players...)
}

// RoomCount returns the number of live rooms
func (rm *RoomManager) RoomCount() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.rooms)
}

// newRoomLocked allocates a room with a fresh collision-checked code
func (rm *RoomManager) newRoomLocked(cfg game.Config, public bool) (*Room, error) {
	for i := 0; i < codeRetries; i++ {
		code := rm.codes.Code()
		if _, exists := rm.rooms[code]; exists {
			continue
		}
		room := &Room{
			ID:        code,
			Config:    cfg,
			Votes:     make(map[string]game.Config),
			State:     RoomWaiting,
			Public:    public,
			CreatedAt: rm.clock.Now(),
		}
		rm.rooms[code] = room
		return room, nil
	}
	return nil, ErrRoomCodeExhaust
}

// removePlayer drops a player from any prior room before they join a
// new one: a player participates in at most one room at a time.
func (rm *RoomManager) removePlayer(playerID string) {
	rm.mu.Lock()
	_, ok := rm.playerRoom[playerID]
	rm.mu.Unlock()
	if ok {
		_, _, _, _ = rm.LeaveRoom(playerID)
	}
}

// rescheduleStartLocked re-arms (or cancels) a public room's start
// countdown after the seat count changed.
func (rm *RoomManager) rescheduleStartLocked(room *Room) {
	room.startGen++
	gen := room.startGen

	var delay time.Duration
	switch n := len(room.Players); {
	case n <= 1:
		return // countdown cancelled by the generation bump
	case n == 2:
		delay = quickStartTwo
	case n == 3:
		delay = quickStartThree
	default:
		delay = quickStartFourPlus
	}

	rm.logger.Debug("start countdown armed", "room", room.ID, "players", len(room.Players), "delay", delay)

	rm.clock.AfterFunc(delay, func() {
		rm.mu.Lock()
		if gen != room.startGen || room.State != RoomWaiting || len(room.Players) < 2 {
			rm.mu.Unlock()
			return
		}
		room.Config = majorityConfig(room.Votes, rm.defaults)
		room.State = RoomStarted
		rm.mu.Unlock()

		rm.logger.Info("quick game starting", "room", room.ID, "players", len(room.Players))
		if rm.onRoomFull != nil {
			rm.onRoomFull(room)
		}
	})
}

// majorityConfig picks each config field by strict majority vote,
// falling back to the defaults.
func majorityConfig(votes map[string]game.Config, defaults game.Config) game.Config {
	n := len(votes)
	out := defaults
	if n == 0 {
		return out
	}

	slapCounts := make(map[bool]int)
	timeCounts := make(map[int]int)
	yanivCounts := make(map[int]int)
	pointsCounts := make(map[int]int)
	for _, v := range votes {
		slapCounts[v.SlapDown]++
		timeCounts[v.TimePerPlayer]++
		yanivCounts[v.CanCallYaniv]++
		pointsCounts[v.MaxMatchPoints]++
	}

	if v, ok := strictMajorityBool(slapCounts, n); ok {
		out.SlapDown = v
	}
	if v, ok := strictMajorityInt(timeCounts, n); ok {
		out.TimePerPlayer = v
	}
	if v, ok := strictMajorityInt(yanivCounts, n); ok {
		out.CanCallYaniv = v
	}
	if v, ok := strictMajorityInt(pointsCounts, n); ok {
		out.MaxMatchPoints = v
	}
	return out
}

func strictMajorityInt(counts map[int]int, n int) (int, bool) {
	for v, c := range counts {
		if c*2 > n {
			return v, true
		}
	}
	return 0, false
}

func strictMajorityBool(counts map[bool]int, n int) (bool, bool) {
	for v, c := range counts {
		if c*2 > n {
			return v, true
		}
	}
	return false, false
}
