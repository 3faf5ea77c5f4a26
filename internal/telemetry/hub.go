// Package telemetry streams simulation frames to websocket clients and
// accepts operator commands from them.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/sim"
	"go.uber.org/zap"
)

const (
	sendBuffer = 256
	writeWait  = time.Second
	// maxMessage bounds inbound command messages.
	maxMessage = 1024
)

// Message is the JSON envelope for everything written to a client.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// FramePayload is the wire form of a dynamo.Frame.
type FramePayload struct {
	Tick     int     `json:"tick"`
	Time     float64 `json:"time"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	TargetX  float64 `json:"target_x"`
	TargetY  float64 `json:"target_y"`
	Left     float64 `json:"left"`
	Right    float64 `json:"right"`
	WindX    float64 `json:"wind_x"`
	WindY    float64 `json:"wind_y"`
	WindOn   bool    `json:"wind_on"`
	Reverse  bool    `json:"reverse"`
	Fallback bool    `json:"fallback"`
}

func NewFramePayload(f dynamo.Frame) FramePayload {
	return FramePayload{
		Tick:     f.Tick,
		Time:     f.Time,
		X:        f.Pose.Position.X(),
		Y:        f.Pose.Position.Y(),
		Angle:    f.Pose.Angle,
		TargetX:  f.Target.Position.X(),
		TargetY:  f.Target.Position.Y(),
		Left:     f.Command.Left,
		Right:    f.Command.Right,
		WindX:    f.Wind.Force.X(),
		WindY:    f.Wind.Force.Y(),
		WindOn:   f.Wind.Enabled,
		Reverse:  f.Reverse,
		Fallback: f.Fallback,
	}
}

// CommandRequest is what clients send: {"command": "move_left"}.
type CommandRequest struct {
	Command string `json:"command"`
}

// Submitter accepts operator commands; *sim.Loop satisfies it.
type Submitter interface {
	Submit(c sim.Command)
}

// Client is one websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type outbound struct {
	client *Client
	data   []byte
}

// Hub keeps the set of connected clients and fans frames out to them. It is
// an Observer: OnTick never blocks the simulation loop, frames are dropped
// when the hub falls behind.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	direct     chan outbound
	done       chan struct{}

	commands Submitter
	logger   *zap.Logger
	every    int

	connected atomic.Int64
	dropped   atomic.Int64
	upgrader  websocket.Upgrader
}

// NewHub returns a hub forwarding client commands to commands. Every frame
// is published when every is 1; larger values thin the stream.
func NewHub(commands Submitter, every int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every < 1 {
		every = 1
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan outbound, sendBuffer),
		done:       make(chan struct{}),
		commands:   commands,
		logger:     logger,
		every:      every,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run is the hub's event loop. It returns when ctx is done, after closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.connected.Store(int64(len(h.clients)))
			h.logger.Info("telemetry client connected", zap.String("remote", client.conn.RemoteAddr().String()))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("telemetry client disconnected", zap.String("remote", client.conn.RemoteAddr().String()))
			}

		case out := <-h.direct:
			if h.clients[out.client] {
				select {
				case out.client.send <- out.data:
				default:
				}
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn("telemetry client too slow, disconnecting", zap.String("remote", client.conn.RemoteAddr().String()))
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Store(int64(len(h.clients)))
}

func (h *Hub) Clients() int { return int(h.connected.Load()) }

// Dropped counts frames discarded because the broadcast queue was full.
func (h *Hub) Dropped() int { return int(h.dropped.Load()) }

func (h *Hub) OnTick(f dynamo.Frame) {
	if f.Tick%h.every != 0 || h.Clients() == 0 {
		return
	}
	data, err := json.Marshal(Message{Type: "frame", Payload: NewFramePayload(f)})
	if err != nil {
		h.logger.Error("encode frame", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

// ServeHTTP upgrades the request to a websocket and attaches the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump turns inbound messages into loop commands. Bad requests are
// answered with an error message and otherwise ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessage)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("telemetry read failed", zap.Error(err))
			}
			return
		}
		var req CommandRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.reply(Message{Type: "error", Payload: "malformed command: " + err.Error()})
			continue
		}
		cmd, err := sim.ParseCommand(req.Command)
		if err != nil {
			c.reply(Message{Type: "error", Payload: err.Error()})
			continue
		}
		c.hub.commands.Submit(cmd)
		c.hub.logger.Debug("telemetry command", zap.Stringer("command", cmd))
		c.reply(Message{Type: "ack", Payload: cmd.String()})
	}
}

// reply queues a message for this client only. Replies go through the hub
// because only Run may write to or close c.send.
func (c *Client) reply(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- outbound{client: c, data: data}:
	case <-c.hub.done:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
