package mesh

import (
	"time"

	"github.com/SanikaMane4142/engage-classroomm-55/internal/media"
	"github.com/pion/webrtc/v4"
)

// State is the lifecycle state of one peer connection record.
type State string

const (
	// StateIdle: record exists, no description exchanged yet.
	StateIdle State = "idle"
	// StateOfferSent: caller role, offer sent, waiting for answer.
	StateOfferSent State = "offer-sent"
	// StateAnswerPending: callee role, remote offer applied.
	StateAnswerPending State = "answer-pending"
	// StateConnected: ICE reached connected or completed.
	StateConnected State = "connected"
	// StateReconnecting: ICE failed once, restart in flight.
	StateReconnecting State = "reconnecting"
	// StateClosed: terminal.
	StateClosed State = "closed"
)

// Role records which side of the offer/answer handshake this record took.
type Role string

const (
	// RoleCaller: we were already present when the peer joined.
	RoleCaller Role = "caller"
	// RoleCallee: the peer was already present when we joined.
	RoleCallee Role = "callee"
)

// peerLink is one peer's connection record. All fields are guarded by the
// room mutex; the registry is the only holder.
type peerLink struct {
	id   string
	name string
	role Role

	state State

	// attempts only increases for the lifetime of the record; lastAttempt
	// lets a later announcement clear an exhausted record once the peer
	// has been quiet long enough (a crashed peer sends no leave).
	attempts    int
	lastAttempt time.Time

	conn    Conn
	control DataChannel
	remote  *media.RemoteStream

	// remoteSet tells whether a remote description was applied; candidates
	// received before that are parked in pending.
	remoteSet bool
	pending   []webrtc.ICECandidateInit

	// notified guards the exactly-once disconnect callback.
	notified bool
}

// live reports whether the record holds a usable connection.
func (l *peerLink) live() bool {
	return l.conn != nil && l.state != StateClosed
}

// PeerInfo is a read-only snapshot of a peer record, exposed for roster
// style consumers.
type PeerInfo struct {
	ID    string
	Name  string
	State State
}
