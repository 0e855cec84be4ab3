package chat

import (
	"context"
	"log/slog"
	"time"

	"roomchat/internal/room"
)

// Rooms is the part of the room registry the hub drives.
type Rooms interface {
	AddMember(code, name string) error
	RemoveMember(code, name string) (removed, deleted bool)
	AppendMessage(code string, msg room.Message) error
	Members(code string) ([]string, bool)
}

type inbound struct {
	client  *Client
	payload MessagePayload
}

// Hub serialises every connect, message and disconnect through one goroutine.
// Only Run touches subs, clients and the per-client joined/closed flags.
type Hub struct {
	rooms Rooms

	connect    chan *Client
	disconnect chan *Client
	inbound    chan inbound
	done       chan struct{}

	clients map[*Client]struct{}
	subs    map[string]map[*Client]struct{}
	now     func() time.Time
}

func NewHub(rooms Rooms) *Hub {
	return &Hub{
		rooms:      rooms,
		connect:    make(chan *Client),
		disconnect: make(chan *Client),
		inbound:    make(chan inbound),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		subs:       make(map[string]map[*Client]struct{}),
		now:        time.Now,
	}
}

// Run processes events until ctx is cancelled, then closes every client queue.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.connect:
			h.handleConnect(c)
		case in := <-h.inbound:
			h.handleMessage(in.client, in.payload)
		case c := <-h.disconnect:
			h.handleDisconnect(c)
		}
	}
}

// Connect hands a new connection to the hub. After shutdown the client's
// queue is closed instead.
func (h *Hub) Connect(c *Client) {
	select {
	case h.connect <- c:
	case <-h.done:
		c.closeSend()
	}
}

func (h *Hub) Disconnect(c *Client) {
	select {
	case h.disconnect <- c:
	case <-h.done:
	}
}

// Deliver submits a message sent by c.
func (h *Hub) Deliver(c *Client, payload MessagePayload) {
	select {
	case h.inbound <- inbound{client: c, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) handleConnect(c *Client) {
	h.clients[c] = struct{}{}

	b := c.binding
	if !b.Valid() {
		slog.Debug("connection without session binding", "client", c.id)
		return
	}
	if err := h.rooms.AddMember(b.Room, b.Name); err != nil {
		slog.Debug("connection bound to missing room", "client", c.id, "room", b.Room)
		return
	}
	c.joined = true
	h.subscribe(c)

	slog.Info("member joined room", "name", b.Name, "room", b.Room, "client", c.id)
	h.notifyPresence(b.Room)
	h.relay(b.Room, room.Entered(b.Name, h.now()))
}

func (h *Hub) handleMessage(c *Client, p MessagePayload) {
	if !c.joined || c.closed {
		return
	}
	b := c.binding
	msg := room.NewMessage(b.Name, p.Data, p.IsFile, p.FileType, h.now())
	if err := h.rooms.AppendMessage(b.Room, msg); err != nil {
		slog.Debug("dropping message for missing room", "room", b.Room, "client", c.id)
		return
	}
	slog.Info("member sent message", "name", b.Name, "room", b.Room, "data", p.Data)
	h.broadcast(b.Room, EventMessage, msg)
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.closeSend()
	if !c.joined {
		return
	}
	c.joined = false
	h.unsubscribe(c)

	b := c.binding
	if h.nameConnected(b.Room, b.Name) {
		return
	}
	removed, deleted := h.rooms.RemoveMember(b.Room, b.Name)
	if !removed {
		return
	}
	slog.Info("member left room", "name", b.Name, "room", b.Room, "room_deleted", deleted)
	h.notifyPresence(b.Room)
	h.relay(b.Room, room.Left(b.Name, h.now()))
}

// relay records a synthetic message and broadcasts it. The room may already
// be gone when the last member leaves; the broadcast then reaches nobody.
func (h *Hub) relay(code string, msg room.Message) {
	_ = h.rooms.AppendMessage(code, msg)
	h.broadcast(code, EventMessage, msg)
}

// broadcast never blocks: a subscriber whose queue is full is dropped and its
// connection closed. Its membership is released by the disconnect that follows.
func (h *Hub) broadcast(code, event string, data any) {
	subs := h.subs[code]
	if len(subs) == 0 {
		return
	}
	frame, err := encodeEvent(event, data)
	if err != nil {
		slog.Error("encode event failed", "event", event, "room", code, "err", err)
		return
	}
	for c := range subs {
		select {
		case c.send <- frame:
		default:
			slog.Warn("dropping slow client", "client", c.id, "room", code)
			c.closeSend()
			h.unsubscribe(c)
		}
	}
}

func (h *Hub) subscribe(c *Client) {
	code := c.binding.Room
	if h.subs[code] == nil {
		h.subs[code] = make(map[*Client]struct{})
	}
	h.subs[code][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client) {
	code := c.binding.Room
	subs, ok := h.subs[code]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.subs, code)
	}
}

// nameConnected reports whether another live connection still speaks for name.
func (h *Hub) nameConnected(code, name string) bool {
	for c := range h.subs[code] {
		if c.binding.Name == name {
			return true
		}
	}
	return false
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		c.closeSend()
	}
	clear(h.clients)
	clear(h.subs)
	close(h.done)
}
