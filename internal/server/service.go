package server

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/yanivhq/yaniv-server/internal/bot"
	"github.com/yanivhq/yaniv-server/internal/game"
	"github.com/yanivhq/yaniv-server/internal/randutil"
	"github.com/yanivhq/yaniv-server/internal/roomid"
)

// GameService binds the room manager, the running game engines and the
// WebSocket transport together. All engine events flow out through the
// per-room sink it installs; all player commands flow in through the
// Handle methods called by connections.
type GameService struct {
	server *Server
	rooms  *RoomManager
	logger *log.Logger
	clock  quartz.Clock

	mu    sync.Mutex
	games map[string]*game.Game
	rng   *rand.Rand
}

// NewGameService creates a game service and wires it to the room
// manager's start handoff.
func NewGameService(server *Server, rooms *RoomManager, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *GameService {
	gs := &GameService{
		server: server,
		rooms:  rooms,
		logger: logger.WithPrefix("service"),
		clock:  clock,
		games:  make(map[string]*game.Game),
		rng:    rng,
	}
	rooms.SetRoomFullCallback(gs.startGame)
	return gs
}

// startGame spins up an engine for a room whose lobby phase ended
func (gs *GameService) startGame(room *Room) {
	roomID := room.ID

	seats := gs.rooms.Seats(roomID)
	if len(seats) == 0 {
		return // Room emptied before the engine could start
	}

	// Late joiners may not have their connection bound to the room yet
	for _, p := range seats {
		if !p.IsBot {
			gs.server.SetPlayerRoom(p.ID, roomID)
		}
	}

	sink := func(ev game.Event) {
		msg, err := NewMessage(MessageType(ev.EventType()), ev)
		if err != nil {
			gs.logger.Error("Failed to encode game event", "room", roomID, "type", ev.EventType(), "error", err)
			return
		}
		if targeted, ok := ev.(game.TargetedEvent); ok {
			_ = gs.server.SendToPlayer(targeted.Target(), msg) // Ignore errors for disconnected players
			return
		}
		gs.server.BroadcastToRoom(roomID, msg)
	}

	gs.mu.Lock()
	seed := gs.rng.Int64()
	g := game.New(roomID, seats, room.Config, sink, gs.logger, gs.clock, randutil.New(seed))
	gs.games[roomID] = g
	gs.mu.Unlock()

	startMsg, err := NewMessage(MessageTypeStartGame, StartGameData{
		RoomID:  roomID,
		Config:  room.Config,
		Players: seats,
	})
	if err == nil {
		gs.server.BroadcastToRoom(roomID, startMsg)
	}

	gs.logger.Info("game starting", "room", roomID, "players", len(seats))
	g.Start()
}

// stopGame tears down the engine for a destroyed room
func (gs *GameService) stopGame(roomID string) {
	gs.mu.Lock()
	g, ok := gs.games[roomID]
	if ok {
		delete(gs.games, roomID)
	}
	gs.mu.Unlock()

	if ok {
		g.Stop()
		gs.logger.Info("game stopped", "room", roomID)
	}
}

// gameOf returns the running engine for the room a player is seated in
func (gs *GameService) gameOf(playerID string) (*game.Game, bool) {
	room, ok := gs.rooms.RoomOf(playerID)
	if !ok {
		return nil, false
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	g, ok := gs.games[room.ID]
	return g, ok
}

// Lobby commands

// HandleCreateRoom creates a private room for the requester
func (gs *GameService) HandleCreateRoom(c *Connection, data CreateRoomData) {
	player := &game.Player{ID: c.PlayerID(), NickName: data.NickName, AvatarIndex: data.AvatarIndex}
	room, err := gs.rooms.CreateRoom(player, data.Config)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.SetRoom(room.ID)

	msg, err := NewMessage(MessageTypeRoomCreated, RoomCreatedData{
		RoomID:  room.ID,
		Config:  room.Config,
		Players: gs.rooms.Seats(room.ID),
	})
	if err != nil {
		gs.logger.Error("Failed to encode room created", "error", err)
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors
}

// HandleJoinRoom seats the requester in an existing room by code
func (gs *GameService) HandleJoinRoom(c *Connection, data JoinRoomData) {
	if err := roomid.Validate(data.RoomID); err != nil {
		c.sendError(err.Error())
		return
	}

	player := &game.Player{ID: c.PlayerID(), NickName: data.NickName, AvatarIndex: data.AvatarIndex}
	room, err := gs.rooms.JoinRoom(data.RoomID, player)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.SetRoom(room.ID)

	gs.broadcastJoined(room, player)
}

// HandleQuickGame matches the requester into a public room
func (gs *GameService) HandleQuickGame(c *Connection, data QuickGameData) {
	player := &game.Player{ID: c.PlayerID(), NickName: data.NickName, AvatarIndex: data.AvatarIndex}
	room, err := gs.rooms.QuickGame(player)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.SetRoom(room.ID)

	// The joiner learns the room id before the membership broadcast
	msg, err := NewMessage(MessageTypeRoomCreated, RoomCreatedData{
		RoomID:  room.ID,
		Config:  room.Config,
		Players: gs.rooms.Seats(room.ID),
	})
	if err == nil {
		_ = c.SendMessage(msg) // Ignore send errors
	}

	gs.broadcastJoined(room, player)
}

// HandleQuickConfig records a config vote and republishes the tally
func (gs *GameService) HandleQuickConfig(c *Connection, data QuickConfigData) {
	room, err := gs.rooms.SetQuickConfig(data.RoomID, data.NickName, data.Config)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	msg, err := NewMessage(MessageTypeVotesConfig, VotesConfigData{
		RoomID: room.ID,
		Votes:  room.Votes,
	})
	if err != nil {
		gs.logger.Error("Failed to encode votes", "error", err)
		return
	}
	gs.server.BroadcastToRoom(room.ID, msg)
}

// HandleCreateBotRoom creates a room seated with bots and starts it
func (gs *GameService) HandleCreateBotRoom(c *Connection, data CreateBotRoomData) {
	difficulties := make([]bot.Difficulty, 0, len(data.Difficulties))
	for _, s := range data.Difficulties {
		d, err := bot.ParseDifficulty(s)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		difficulties = append(difficulties, d)
	}

	player := &game.Player{ID: c.PlayerID(), NickName: data.NickName, AvatarIndex: data.AvatarIndex}
	room, err := gs.rooms.CreateBotRoom(player, data.Config, difficulties)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.SetRoom(room.ID)
}

// HandleLeaveRoom removes the requester from their room
func (gs *GameService) HandleLeaveRoom(c *Connection, data LeaveRoomData) {
	gs.leave(c.PlayerID())
	c.SetRoom("")
}

// HandleDisconnect cleans up after a dropped connection
func (gs *GameService) HandleDisconnect(playerID string) {
	gs.leave(playerID)
}

func (gs *GameService) leave(playerID string) {
	room, destroyed, started, err := gs.rooms.LeaveRoom(playerID)
	if err != nil {
		return // Not in a room, nothing to clean up
	}

	if started {
		if g, ok := gs.gameByRoomID(room.ID); ok {
			g.Leave(playerID)
		}
	}

	if destroyed {
		gs.stopGame(room.ID)
		return
	}

	msg, err := NewMessage(MessageTypePlayerLeft, PlayerLeftData{
		RoomID:   room.ID,
		PlayerID: playerID,
		Players:  gs.rooms.Seats(room.ID),
	})
	if err == nil {
		gs.server.BroadcastToRoom(room.ID, msg)
	}
}

// HandleStartPrivateGame begins a private room's match
func (gs *GameService) HandleStartPrivateGame(c *Connection, data StartPrivateGameData) {
	if _, err := gs.rooms.StartPrivateGame(data.RoomID); err != nil {
		c.sendError(err.Error())
	}
}

// HandleGetRoomState replies with a room's lobby snapshot
func (gs *GameService) HandleGetRoomState(c *Connection, data GetRoomStateData) {
	room, ok := gs.rooms.Room(data.RoomID)
	if !ok {
		c.sendError(ErrRoomNotFound.Error())
		return
	}

	msg, err := NewMessage(MessageTypeRoomState, RoomStateData{
		RoomID:    room.ID,
		Players:   gs.rooms.Seats(room.ID),
		Config:    room.Config,
		GameState: string(room.State),
	})
	if err != nil {
		gs.logger.Error("Failed to encode room state", "error", err)
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors
}

// In-game commands

// HandleCompleteTurn routes a discard-and-draw to the requester's game
func (gs *GameService) HandleCompleteTurn(c *Connection, data CompleteTurnData) {
	g, ok := gs.gameOf(c.PlayerID())
	if !ok {
		gs.sendGameError(c, errors.New("no running game"))
		return
	}
	if err := g.CompleteTurn(c.PlayerID(), data.Action, data.SelectedCards); err != nil {
		gs.sendGameError(c, err)
	}
}

// HandleCallYaniv routes a yaniv call to the requester's game
func (gs *GameService) HandleCallYaniv(c *Connection) {
	g, ok := gs.gameOf(c.PlayerID())
	if !ok {
		gs.sendGameError(c, errors.New("no running game"))
		return
	}
	if err := g.CallYaniv(c.PlayerID()); err != nil {
		gs.sendGameError(c, err)
	}
}

// HandleSlapDown routes a slap-down attempt to the requester's game
func (gs *GameService) HandleSlapDown(c *Connection, data SlapDownData) {
	g, ok := gs.gameOf(c.PlayerID())
	if !ok {
		gs.sendGameError(c, errors.New("no running game"))
		return
	}
	if err := g.SlapDown(c.PlayerID(), data.Card); err != nil {
		gs.sendGameError(c, err)
	}
}

// HandlePlayAgain records a rematch vote with the requester's game
func (gs *GameService) HandlePlayAgain(c *Connection) {
	g, ok := gs.gameOf(c.PlayerID())
	if !ok {
		gs.sendGameError(c, errors.New("no running game"))
		return
	}
	if err := g.PlayAgain(c.PlayerID()); err != nil {
		gs.sendGameError(c, err)
	}
}

func (gs *GameService) gameByRoomID(roomID string) (*game.Game, bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	g, ok := gs.games[roomID]
	return g, ok
}

// sendGameError delivers a rejected command's reason to the requester
func (gs *GameService) sendGameError(c *Connection, gameErr error) {
	msg, err := NewMessage(MessageType(game.EventTypeGameError), game.GameErrorEvent{
		PlayerID: c.PlayerID(),
		Message:  gameErr.Error(),
	})
	if err != nil {
		gs.logger.Error("Failed to encode game error", "error", err)
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors during error handling
}

// broadcastJoined announces a new member to the whole room
func (gs *GameService) broadcastJoined(room *Room, player *game.Player) {
	msg, err := NewMessage(MessageTypePlayerJoined, PlayerJoinedData{
		RoomID:  room.ID,
		Player:  player,
		Players: gs.rooms.Seats(room.ID),
	})
	if err != nil {
		gs.logger.Error("Failed to encode player joined", "error", err)
		return
	}
	gs.server.BroadcastToRoom(room.ID, msg)
}
