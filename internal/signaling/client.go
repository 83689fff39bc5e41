package signaling

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/SanikaMane4142/engage-classroomm-55/internal/dns"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/logging"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the broadcast relay.
// It implements Transport.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	room      string
	incoming  chan *Message
	outgoing  chan *Envelope
	done      chan struct{}
	log       *slog.Logger
	mu        sync.Mutex
	closed    bool
}

// NewClient creates a signaling client for the given relay URL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *Message, 32),
		outgoing:  make(chan *Envelope, 32),
		done:      make(chan struct{}),
		log:       logging.Component("signaling"),
	}
}

// Connect establishes the websocket connection to the relay.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Custom dialer with DNS fallback so a broken local resolver does not
	// keep the client out of the room. Copy the default dialer by value so
	// the package-global one stays untouched.
	dialer := *websocket.DefaultDialer
	dialer.NetDial = func(network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		resolvedIP, err := dns.Lookup(host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}

		return net.Dial(network, net.JoinHostPort(resolvedIP, port))
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// Join subscribes to a room on the relay.
func (c *Client) Join(roomID string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()

	c.enqueue(&Envelope{Action: ActionJoin, Room: roomID})
	return nil
}

// Send publishes a message to the joined room. Failures are logged, not
// returned: signaling is best-effort.
func (c *Client) Send(msg *Message) {
	c.mu.Lock()
	room := c.room
	c.mu.Unlock()

	if room == "" {
		c.log.Warn("send before join, dropping message", "type", msg.Type)
		return
	}
	c.enqueue(&Envelope{Action: ActionPublish, Room: room, Data: msg})
}

// Messages returns the channel of messages broadcast to the room.
func (c *Client) Messages() <-chan *Message {
	return c.incoming
}

// Leave unsubscribes from the room and closes the connection.
func (c *Client) Leave() {
	c.mu.Lock()
	room := c.room
	c.room = ""
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if room != "" {
		// Best effort, the relay also drops us when the socket closes.
		select {
		case c.outgoing <- &Envelope{Action: ActionLeave, Room: room}:
		default:
		}
	}
	close(c.done)
}

func (c *Client) enqueue(env *Envelope) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	select {
	case c.outgoing <- env:
	default:
		c.log.Warn("outgoing buffer full, dropping envelope", "action", env.Action)
	}
}

// readPump reads envelopes from the websocket connection and fans the
// carried messages out to the incoming channel.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("signaling connection lost", "error", err)
			}
			return
		}

		if env.Data == nil {
			continue
		}

		select {
		case c.incoming <- env.Data:
		default:
			c.log.Warn("incoming buffer full, dropping message", "type", env.Data.Type)
		}
	}
}

// writePump writes envelopes to the websocket connection and sends
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.log.Warn("signaling write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush any queued leave frame before closing.
			for {
				select {
				case env := <-c.outgoing:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteJSON(env); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}
