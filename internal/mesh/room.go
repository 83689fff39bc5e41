package mesh

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SanikaMane4142/engage-classroomm-55/internal/config"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/logging"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/media"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/signaling"
	"github.com/pion/webrtc/v4"
)

var (
	// ErrAlreadyJoined is returned when Initialize is called while the
	// room is already joined.
	ErrAlreadyJoined = errors.New("room already joined")

	// ErrNotJoined is returned by operations that need a joined room.
	ErrNotJoined = errors.New("room not joined")

	// errAttemptLimit marks a peer record that hit its attempt cutoff.
	errAttemptLimit = errors.New("connection attempt limit reached")
)

// Callbacks are the hooks the orchestrator reports through. OnRemoteStream
// fires exactly once per peer, on the first inbound track; later tracks
// update the same stream in place. OnPeerDisconnected fires exactly once
// per peer, whatever caused the close. OnPeerMediaState is optional and
// reports control-channel mute/camera updates.
type Callbacks struct {
	OnRemoteStream     func(stream *media.RemoteStream, peerID, peerName string)
	OnPeerDisconnected func(peerID string)
	OnPeerMediaState   func(peerID string, audio, video bool)
}

// Room orchestrates the full mesh for one meeting room: it joins the
// signaling channel, announces presence, and drives every per-peer
// connection from handshake to teardown.
type Room struct {
	transport   signaling.Transport
	factory     ConnFactory
	maxAttempts int
	log         *slog.Logger

	// mu is the single mutual-exclusion discipline for all mesh state:
	// the registry, every record's fields, and the local stream handle.
	mu       sync.Mutex
	joined   bool
	roomID   string
	selfID   string
	selfName string
	local    *media.LocalStream
	links    *registry
	cb       Callbacks
}

// NewRoom creates an orchestrator on the given transport and connection
// factory. maxAttempts <= 0 selects the default cutoff.
func NewRoom(transport signaling.Transport, factory ConnFactory, maxAttempts int) *Room {
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultMaxAttempts
	}
	return &Room{
		transport:   transport,
		factory:     factory,
		maxAttempts: maxAttempts,
		log:         logging.Component("mesh"),
		links:       newRegistry(),
	}
}

// Initialize joins the signaling room and announces presence. Calling it
// again while joined is a caller error.
func (r *Room) Initialize(local *media.LocalStream, roomID, selfID, selfName string, cb Callbacks) error {
	r.mu.Lock()
	if r.joined {
		r.mu.Unlock()
		return ErrAlreadyJoined
	}
	r.joined = true
	r.roomID = roomID
	r.selfID = selfID
	r.selfName = selfName
	r.local = local
	r.cb = cb
	r.mu.Unlock()

	if err := r.transport.Join(roomID); err != nil {
		r.mu.Lock()
		r.joined = false
		r.mu.Unlock()
		return fmt.Errorf("failed to join signaling room: %w", err)
	}

	go r.dispatch()

	r.transport.Send(signaling.Join(selfID, selfName))
	r.log.Info("joined room", "room", roomID, "self", selfID)
	return nil
}

// dispatch consumes the signaling channel until the transport closes it.
// Self-originated messages come back from the broadcast relay and are
// filtered here, as are handshake messages addressed to another peer.
func (r *Room) dispatch() {
	for msg := range r.transport.Messages() {
		if msg.ID == r.selfID {
			continue
		}
		if msg.To != "" && msg.To != r.selfID {
			continue
		}

		switch msg.Type {
		case signaling.TypeJoin:
			r.handleJoin(msg)
		case signaling.TypeOffer:
			r.handleOffer(msg)
		case signaling.TypeAnswer:
			r.handleAnswer(msg)
		case signaling.TypeCandidate:
			r.handleCandidate(msg)
		case signaling.TypeLeave:
			r.closePeer(msg.ID)
		default:
			r.log.Debug("ignoring unknown signaling message", "type", msg.Type)
		}
	}
}

// UpdateLocalStream atomically swaps the outgoing stream on every live
// connection. Senders keep their slots; tracks are replaced in place, so
// no offer/answer exchange happens. A nil stream detaches all tracks.
func (r *Room) UpdateLocalStream(stream *media.LocalStream) {
	r.mu.Lock()
	old := r.local
	r.local = stream

	// The whole registry iteration happens under the room mutex so a peer
	// joining or leaving mid-swap cannot be skipped or double-processed.
	for _, link := range r.links.snapshot() {
		if !link.live() {
			continue
		}
		for _, sender := range link.conn.Senders() {
			var replacement webrtc.TrackLocal
			if stream != nil {
				if t := stream.TrackOfKind(sender.Kind()); t != nil {
					replacement = t.Local()
				}
			}
			if err := sender.ReplaceTrack(replacement); err != nil {
				r.log.Warn("failed to replace track", "peer", link.id, "kind", sender.Kind(), "error", err)
			}
		}
	}
	r.mu.Unlock()

	if old != nil && old != stream {
		old.StopTracks()
	}
}

// SetAudioEnabled flips the microphone flag and tells every peer over the
// control channel.
func (r *Room) SetAudioEnabled(enabled bool) {
	r.setMediaEnabled(func(s *media.LocalStream) { s.SetAudioEnabled(enabled) })
}

// SetVideoEnabled flips the camera flag and tells every peer over the
// control channel.
func (r *Room) SetVideoEnabled(enabled bool) {
	r.setMediaEnabled(func(s *media.LocalStream) { s.SetVideoEnabled(enabled) })
}

func (r *Room) setMediaEnabled(update func(*media.LocalStream)) {
	r.mu.Lock()
	if r.local == nil {
		r.mu.Unlock()
		return
	}
	update(r.local)
	audio, video := r.local.Enabled()

	channels := make([]DataChannel, 0, r.links.size())
	for _, link := range r.links.snapshot() {
		if link.control != nil && link.state != StateClosed {
			channels = append(channels, link.control)
		}
	}
	r.mu.Unlock()

	frame, err := encodeMediaState(audio, video)
	if err != nil {
		r.log.Warn("failed to encode media state", "error", err)
		return
	}
	for _, dc := range channels {
		if err := dc.Send(frame); err != nil {
			r.log.Debug("media state send failed", "error", err)
		}
	}
}

// LeaveRoom broadcasts departure, closes every connection, stops the
// local stream and releases the transport. Safe with no connections.
func (r *Room) LeaveRoom() error {
	r.mu.Lock()
	if !r.joined {
		r.mu.Unlock()
		return ErrNotJoined
	}
	r.joined = false
	local := r.local
	r.local = nil
	links := r.links.drain()
	closing := make([]*peerLink, 0, len(links))
	for _, link := range links {
		if link.state == StateClosed {
			continue
		}
		link.state = StateClosed
		closing = append(closing, link)
	}
	r.mu.Unlock()

	r.transport.Send(signaling.Leave(r.selfID))

	for _, link := range closing {
		r.finishClose(link)
	}

	if local != nil {
		local.StopTracks()
	}

	r.transport.Leave()
	r.log.Info("left room", "room", r.roomID)
	return nil
}

// Peers returns a snapshot of the current peer records.
func (r *Room) Peers() []PeerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PeerInfo, 0, r.links.size())
	for _, link := range r.links.snapshot() {
		out = append(out, PeerInfo{ID: link.id, Name: link.name, State: link.state})
	}
	return out
}
