package ws

import (
	"sync"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

// Identity is the connection-level identity resolved at handshake time.
// Anonymous connections are customers; verified ones carry a staff id and
// role from the token.
type Identity struct {
	Verified bool
	UserID   int64
	Role     models.Role
}

func Anonymous() Identity {
	return Identity{Role: models.RoleCustomer}
}

func Verified(userID int64, role models.Role) Identity {
	return Identity{Verified: true, UserID: userID, Role: role}
}

type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	identity Identity
	send     chan []byte

	// mu guards closed. The hub closes send from its run loop while the
	// read pump may concurrently ack on it via enqueue.
	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, identity Identity) *Client {
	return &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, 32),
	}
}

func (c *Client) Identity() Identity {
	return c.identity
}

func (c *Client) ReadPump(router *Router) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		router.HandleEvent(c, payload)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// enqueue is for direct-to-sender acks; a full buffer drops the connection
// the same way a slow broadcast consumer is dropped. Acks to an already
// dropped client are discarded: its read pump can still deliver events
// until the connection teardown lands.
func (c *Client) enqueue(payload []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- payload:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.hub.Unregister(c)
	}
}

// closeSend is called only from the hub's run loop.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
