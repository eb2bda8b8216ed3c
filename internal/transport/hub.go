/*
Package transport
File: hub.go
Description:
    The WebSocket layer bridging connected players to the simulation
    core: a register/unregister/per-client send-channel hub, keyed by
    player name instead of broadcast-to-everyone, since sim.Emit
    addresses messages to individual players rather than the whole
    room. Inbound frames are decoded into sim.Cmd and queued for the
    next tick's Dispatch; outbound sim.OutMessage values satisfy
    sim.Sink by routing to the named player's connection only.
*/

package transport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/everforgeworks/galaxy-sim/internal/sim"
)

// wireMessage is the JSON envelope every frame (in either direction)
// uses.
type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Sender  string          `json:"sender"`
}

// Client is a single connected player's socket.
type Client struct {
	hub    *Hub
	player string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub owns every connected Client, keyed by player name, and the
// inbound command queue Dispatch drains each tick.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	logger *log.Logger
	cmds   chan sim.Cmd
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		cmds:       make(chan sim.Cmd, 4096),
	}
}

// Run is the hub's event loop; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.player]; ok {
				close(old.send)
			}
			h.clients[c.player] = c
			h.mu.Unlock()
			h.logger.Info("player connected", "player", c.player)
		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.player]; ok && cur == c {
				delete(h.clients, c.player)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("player disconnected", "player", c.player)
		}
	}
}

// Send implements sim.Sink, routing an OutMessage to its addressed
// player only. Players with no open connection (e.g. SafeLogged) are
// silently skipped.
func (h *Hub) Send(msg sim.OutMessage) {
	h.mu.Lock()
	c, ok := h.clients[msg.Player]
	h.mu.Unlock()
	if !ok {
		return
	}
	data, err := json.Marshal(wireMessage{Type: msg.Kind, Payload: mustMarshal(msg.Body), Sender: "server"})
	if err != nil {
		h.logger.Error("encode outbound message", "err", err)
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("dropping message, client send buffer full", "player", msg.Player)
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// DrainCmds returns every inbound sim.Cmd queued since the last call,
// for the scheduler to pass into Dispatch.
func (h *Hub) DrainCmds() []sim.Cmd {
	var out []sim.Cmd
	for {
		select {
		case c := <-h.cmds:
			out = append(out, c)
		default:
			return out
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades an HTTP request into a websocket connection for
// player. No credential is checked; player is the name the caller passes.
func ServeWs(hub *Hub, player string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("ws upgrade failed", "err", err)
		return
	}
	c := &Client{hub: hub, player: player, conn: conn, send: make(chan []byte, 256)}
	hub.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("ws read error", "player", c.player, "err", err)
			}
			return
		}
		cmd, err := decodeCmd(c.player, raw)
		if err != nil {
			c.hub.logger.Debug("malformed command", "player", c.player, "err", err)
			continue
		}
		select {
		case c.hub.cmds <- cmd:
		default:
			c.hub.logger.Warn("command queue full, dropping", "player", c.player)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(msg)
		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
