package ws

// Hub owns the room registry. A single goroutine (Run) serializes all
// membership changes and fan-outs, so the maps need no locking.
type Hub struct {
	rooms      map[RoomKey]map[*Client]struct{}
	membership map[*Client]map[RoomKey]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	broadcast  chan broadcastRequest
}

type joinRequest struct {
	client *Client
	rooms  []RoomKey
}

type broadcastRequest struct {
	payload []byte
	rooms   []RoomKey
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[RoomKey]map[*Client]struct{}),
		membership: make(map[*Client]map[RoomKey]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan broadcastRequest, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if _, ok := h.membership[client]; !ok {
				h.membership[client] = make(map[RoomKey]struct{})
			}
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.join:
			h.joinRooms(req.client, req.rooms)
		case req := <-h.broadcast:
			h.deliver(req)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join subscribes the client to the given rooms. Membership is cumulative
// until the connection goes away.
func (h *Hub) Join(client *Client, rooms ...RoomKey) {
	h.join <- joinRequest{client: client, rooms: rooms}
}

// Broadcast fans the payload out to every connection subscribed to any of
// the given rooms, at most once per connection.
func (h *Hub) Broadcast(payload []byte, rooms ...RoomKey) {
	h.broadcast <- broadcastRequest{payload: payload, rooms: rooms}
}

func (h *Hub) joinRooms(client *Client, rooms []RoomKey) {
	joined, ok := h.membership[client]
	if !ok {
		// Registration lost a race with disconnect; ignore the join.
		return
	}
	for _, room := range rooms {
		set, ok := h.rooms[room]
		if !ok {
			set = make(map[*Client]struct{})
			h.rooms[room] = set
		}
		set[client] = struct{}{}
		joined[room] = struct{}{}
	}
}

func (h *Hub) deliver(req broadcastRequest) {
	seen := make(map[*Client]struct{})
	for _, room := range req.rooms {
		for client := range h.rooms[room] {
			if _, done := seen[client]; done {
				continue
			}
			seen[client] = struct{}{}
			select {
			case client.send <- req.payload:
			default:
				// Slow consumer: drop the connection rather than block
				// the broadcaster.
				h.removeClient(client)
			}
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	joined, ok := h.membership[client]
	if !ok {
		return
	}
	for room := range joined {
		set := h.rooms[room]
		delete(set, client)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.membership, client)
	client.closeSend()
}
