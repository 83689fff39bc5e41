package signaling

// MessageType discriminates the signaling message union.
type MessageType string

// The five signaling message kinds.
const (
	TypeJoin      MessageType = "join"
	TypeOffer     MessageType = "offer"
	TypeAnswer    MessageType = "answer"
	TypeCandidate MessageType = "candidate"
	TypeLeave     MessageType = "leave"
)

// Candidate is an ICE candidate on the wire. It mirrors the browser
// RTCIceCandidateInit shape so web participants interoperate directly.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Message is a signaling message broadcast to a room.
//
// All kinds carry the sender id; leave carries only the id. offer and
// answer carry an SDP session description. candidate carries either a
// candidate or nothing, a candidate message with a nil Candidate is the
// end-of-candidates marker.
//
// Handshake messages (offer, answer, candidate) additionally carry the
// intended recipient in To. The channel itself only broadcasts, so
// receivers drop handshake messages addressed to somebody else; without
// this, a peer answering two concurrent offers would have its answers
// applied to the wrong connections. Join and leave are room-wide and
// carry no recipient.
type Message struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`
	To        string      `json:"to,omitempty"`
	SDP       string      `json:"sdp,omitempty"`
	Candidate *Candidate  `json:"candidate,omitempty"`
}

// Join builds a presence announcement.
func Join(id, name string) *Message {
	return &Message{Type: TypeJoin, ID: id, Name: name}
}

// Offer builds an SDP offer message directed at one peer.
func Offer(id, name, to, sdp string) *Message {
	return &Message{Type: TypeOffer, ID: id, Name: name, To: to, SDP: sdp}
}

// Answer builds an SDP answer message directed at one peer.
func Answer(id, name, to, sdp string) *Message {
	return &Message{Type: TypeAnswer, ID: id, Name: name, To: to, SDP: sdp}
}

// NewCandidate builds a candidate message directed at one peer. A nil
// candidate marks end-of-candidates.
func NewCandidate(id, name, to string, c *Candidate) *Message {
	return &Message{Type: TypeCandidate, ID: id, Name: name, To: to, Candidate: c}
}

// Leave builds a departure message. Only the id is carried.
func Leave(id string) *Message {
	return &Message{Type: TypeLeave, ID: id}
}

// envelope action verbs understood by the broadcast relay.
const (
	ActionJoin    = "join"
	ActionPublish = "publish"
	ActionLeave   = "leave"
)

// Envelope is the frame exchanged with the broadcast relay. Clients send
// join/leave control frames and publish frames carrying a message; the
// relay rebroadcasts published messages to every subscriber of the room,
// including the publisher.
type Envelope struct {
	Action string   `json:"action,omitempty"`
	Room   string   `json:"room"`
	Data   *Message `json:"data,omitempty"`
}
