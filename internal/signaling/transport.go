package signaling

// Transport is the only surface the mesh needs from the broadcast channel.
// The websocket Client satisfies it in production; tests use an in-memory
// hub. Delivery is at-most-once with no cross-sender ordering guarantee,
// and subscribers receive their own published messages back.
type Transport interface {
	// Join subscribes to a named room. Must be called before Send.
	Join(roomID string) error

	// Send publishes a message to the joined room. It is fire-and-forget:
	// transport failures are logged, never returned.
	Send(msg *Message)

	// Messages delivers every message broadcast to the room. The channel
	// is closed when the transport shuts down.
	Messages() <-chan *Message

	// Leave unsubscribes from the room and releases the transport.
	Leave()
}
