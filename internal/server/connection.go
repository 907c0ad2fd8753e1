package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	roomID      string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper. The player id is
// fixed for the lifetime of the connection.
func NewConnection(conn *websocket.Conn, playerID string, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		playerID:    playerID,
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			// Log at debug level to avoid spam during tests
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// PlayerID returns the server-assigned player identifier
func (c *Connection) PlayerID() string {
	return c.playerID
}

// SetRoom associates this connection with a room
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// RoomID returns the associated room ID
func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// sendWelcome tells the client which player id the server assigned it
func (c *Connection) sendWelcome() {
	msg, err := NewMessage(MessageTypeConnected, ConnectedData{PlayerID: c.playerID})
	if err != nil {
		c.logger.Error("Failed to create welcome message", "error", err)
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.playerID)

	if c.gameService == nil {
		c.sendError("Game service not available")
		return
	}

	switch msg.Type {
	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse create room data")
			return
		}
		c.gameService.HandleCreateRoom(c, data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse join room data")
			return
		}
		c.gameService.HandleJoinRoom(c, data)

	case MessageTypeQuickGame:
		var data QuickGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse quick game data")
			return
		}
		c.gameService.HandleQuickGame(c, data)

	case MessageTypeQuickConfig:
		var data QuickConfigData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse quick game config data")
			return
		}
		c.gameService.HandleQuickConfig(c, data)

	case MessageTypeCreateBotRoom:
		var data CreateBotRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse bot room data")
			return
		}
		c.gameService.HandleCreateBotRoom(c, data)

	case MessageTypeLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse leave room data")
			return
		}
		c.gameService.HandleLeaveRoom(c, data)

	case MessageTypeStartPrivate:
		var data StartPrivateGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse start game data")
			return
		}
		c.gameService.HandleStartPrivateGame(c, data)

	case MessageTypeGetRoomState:
		var data GetRoomStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse room state request")
			return
		}
		c.gameService.HandleGetRoomState(c, data)

	case MessageTypeCompleteTurn:
		var data CompleteTurnData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse turn data")
			return
		}
		c.gameService.HandleCompleteTurn(c, data)

	case MessageTypeCallYaniv:
		c.gameService.HandleCallYaniv(c)

	case MessageTypeSlapDown:
		var data SlapDownData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Failed to parse slap down data")
			return
		}
		c.gameService.HandleSlapDown(c, data)

	case MessageTypePlayAgain:
		c.gameService.HandlePlayAgain(c)

	default:
		c.sendError("Unknown message type: " + msg.Type.String())
	}
}

// sendError sends a room error message to the client
func (c *Connection) sendError(message string) {
	errorMsg, err := NewMessage(MessageTypeRoomError, RoomErrorData{Message: message})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}
