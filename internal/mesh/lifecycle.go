package mesh

import (
	"errors"
	"fmt"
	"time"

	"github.com/SanikaMane4142/engage-classroomm-55/internal/media"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/signaling"
	"github.com/pion/webrtc/v4"
)

// attemptResetAfter is how long an exhausted record must stay quiet
// before a new announcement from the same id is treated as a fresh
// arrival (a peer that crashed never sends leave).
const attemptResetAfter = 30 * time.Second

// handleJoin takes the caller role toward a newly announced peer: being
// already present in the room, this side creates the connection, attaches
// its tracks and sends the offer. The joiner never offers in response to
// its own announcement, which is what keeps every pair glare-free.
func (r *Room) handleJoin(msg *signaling.Message) {
	r.mu.Lock()
	link := r.links.get(msg.ID)
	if link == nil {
		link, _ = r.links.insert(&peerLink{
			id:    msg.ID,
			name:  msg.Name,
			role:  RoleCaller,
			state: StateIdle,
		})
	}
	if link.state != StateIdle || link.conn != nil {
		// Duplicate announcement for a record that is already negotiating
		// or established; reuse, never replace.
		r.mu.Unlock()
		r.log.Debug("duplicate join ignored", "peer", msg.ID, "state", link.state)
		return
	}
	link.name = msg.Name

	if link.attempts >= r.maxAttempts && time.Since(link.lastAttempt) >= attemptResetAfter {
		link.attempts = 0
		r.log.Info("attempt cutoff expired, treating join as fresh", "peer", msg.ID)
	}

	if err := r.ensureConnLocked(link); err != nil {
		attempts := link.attempts
		r.mu.Unlock()
		if errors.Is(err, errAttemptLimit) {
			r.log.Error("peer is terminal, refusing to reconnect", "peer", msg.ID, "attempts", attempts)
		} else {
			r.log.Warn("failed to set up connection", "peer", msg.ID, "error", err)
		}
		return
	}

	offer, err := link.conn.CreateOffer(false)
	if err != nil {
		r.failAttemptLocked(link)
		r.mu.Unlock()
		r.log.Warn("failed to create offer", "peer", msg.ID, "error", err)
		return
	}
	link.state = StateOfferSent
	r.mu.Unlock()

	r.transport.Send(signaling.Offer(r.selfID, r.selfName, msg.ID, offer.SDP))
}

// handleOffer takes the callee role: apply the remote offer, answer it.
// Offers for an established record are renegotiations (ICE restart) and
// reuse the existing connection.
func (r *Room) handleOffer(msg *signaling.Message) {
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.SDP}

	r.mu.Lock()
	link := r.links.get(msg.ID)
	if link == nil {
		link, _ = r.links.insert(&peerLink{
			id:    msg.ID,
			name:  msg.Name,
			role:  RoleCallee,
			state: StateIdle,
		})
	}

	switch link.state {
	case StateClosed:
		r.mu.Unlock()
		return
	case StateOfferSent, StateAnswerPending:
		// Mid-handshake duplicate; the existing record stays authoritative.
		r.mu.Unlock()
		r.log.Debug("duplicate offer ignored", "peer", msg.ID, "state", link.state)
		return
	}

	if msg.Name != "" {
		link.name = msg.Name
	}

	if link.conn == nil {
		if err := r.ensureConnLocked(link); err != nil {
			attempts := link.attempts
			r.mu.Unlock()
			if errors.Is(err, errAttemptLimit) {
				r.log.Error("peer is terminal, refusing offer", "peer", msg.ID, "attempts", attempts)
			} else {
				r.log.Warn("failed to set up connection", "peer", msg.ID, "error", err)
			}
			return
		}
	}

	if err := link.conn.SetRemoteDescription(desc); err != nil {
		r.mu.Unlock()
		r.log.Warn("failed to apply offer", "peer", msg.ID, "error", err)
		r.closePeer(msg.ID)
		return
	}
	link.remoteSet = true
	r.flushCandidatesLocked(link)

	answer, err := link.conn.CreateAnswer()
	if err != nil {
		r.mu.Unlock()
		r.log.Warn("failed to create answer", "peer", msg.ID, "error", err)
		r.closePeer(msg.ID)
		return
	}
	if link.state == StateIdle {
		link.state = StateAnswerPending
	}
	r.mu.Unlock()

	r.transport.Send(signaling.Answer(r.selfID, r.selfName, msg.ID, answer.SDP))
}

// handleAnswer applies the remote answer to a pending offer.
func (r *Room) handleAnswer(msg *signaling.Message) {
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: msg.SDP}

	r.mu.Lock()
	link := r.links.get(msg.ID)
	if link == nil || link.conn == nil {
		r.mu.Unlock()
		r.log.Debug("answer for unknown peer ignored", "peer", msg.ID)
		return
	}
	if link.state != StateOfferSent && link.state != StateReconnecting {
		r.mu.Unlock()
		r.log.Debug("stale answer ignored", "peer", msg.ID, "state", link.state)
		return
	}

	if err := link.conn.SetRemoteDescription(desc); err != nil {
		r.mu.Unlock()
		r.log.Warn("failed to apply answer", "peer", msg.ID, "error", err)
		r.closePeer(msg.ID)
		return
	}
	link.remoteSet = true
	r.flushCandidatesLocked(link)
	r.mu.Unlock()
}

// handleCandidate feeds a remote candidate into the peer's ICE agent. A
// nil candidate is the end-of-candidates marker and is tolerated as a
// no-op. Candidates arriving before the remote description are parked on
// the record and flushed once it is applied.
func (r *Room) handleCandidate(msg *signaling.Message) {
	r.mu.Lock()
	link := r.links.get(msg.ID)
	if link == nil || link.state == StateClosed {
		r.mu.Unlock()
		return
	}
	if msg.Candidate == nil {
		r.mu.Unlock()
		return
	}

	init := webrtc.ICECandidateInit{
		Candidate:     msg.Candidate.Candidate,
		SDPMid:        msg.Candidate.SDPMid,
		SDPMLineIndex: msg.Candidate.SDPMLineIndex,
	}
	if link.conn == nil || !link.remoteSet {
		link.pending = append(link.pending, init)
		r.mu.Unlock()
		return
	}
	conn := link.conn
	r.mu.Unlock()

	if err := conn.AddICECandidate(init); err != nil {
		r.log.Warn("failed to add candidate", "peer", msg.ID, "error", err)
	}
}

// ensureConnLocked creates the record's connection, enforcing the attempt
// cutoff. Every attempt increments the counter; the counter never resets
// for the lifetime of the record. Caller holds the room mutex.
func (r *Room) ensureConnLocked(link *peerLink) error {
	if link.attempts >= r.maxAttempts {
		return errAttemptLimit
	}
	link.attempts++
	link.lastAttempt = time.Now()

	conn, err := r.factory()
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	link.conn = conn
	r.wireConnLocked(link, conn)

	if r.local != nil {
		for _, t := range r.local.Tracks() {
			if _, err := conn.AddTrack(t.Local()); err != nil {
				r.failAttemptLocked(link)
				return fmt.Errorf("failed to attach %s track: %w", t.Kind(), err)
			}
		}
	}
	return nil
}

// failAttemptLocked rolls the record back to idle after a failed setup so
// a later announcement can retry against the same counter.
func (r *Room) failAttemptLocked(link *peerLink) {
	if link.conn != nil {
		_ = link.conn.Close()
		link.conn = nil
	}
	link.control = nil
	link.remoteSet = false
	link.pending = nil
	link.state = StateIdle
}

// flushCandidatesLocked drains candidates parked before the remote
// description was available.
func (r *Room) flushCandidatesLocked(link *peerLink) {
	for _, init := range link.pending {
		if err := link.conn.AddICECandidate(init); err != nil {
			r.log.Warn("failed to add buffered candidate", "peer", link.id, "error", err)
		}
	}
	link.pending = nil
}

// wireConnLocked subscribes the room to the connection's events and, on
// the caller side, opens the control channel.
func (r *Room) wireConnLocked(link *peerLink, conn Conn) {
	peerID := link.id

	conn.OnICECandidate(func(c *webrtc.ICECandidateInit) {
		var cand *signaling.Candidate
		if c != nil {
			cand = &signaling.Candidate{
				Candidate:     c.Candidate,
				SDPMid:        c.SDPMid,
				SDPMLineIndex: c.SDPMLineIndex,
			}
		}
		r.transport.Send(signaling.NewCandidate(r.selfID, r.selfName, peerID, cand))
	})

	conn.OnTrack(func(t media.RemoteTrack) {
		r.handleTrack(peerID, t)
	})

	conn.OnICEStateChange(func(s webrtc.ICEConnectionState) {
		r.handleICEState(peerID, s)
	})

	conn.OnStateChange(func(s webrtc.PeerConnectionState) {
		r.handleConnState(peerID, s)
	})

	conn.OnDataChannel(func(dc DataChannel) {
		r.acceptControl(peerID, dc)
	})

	if link.role == RoleCaller {
		dc, err := conn.CreateDataChannel(controlChannelLabel)
		if err != nil {
			r.log.Debug("failed to create control channel", "peer", peerID, "error", err)
			return
		}
		r.bindControlLocked(link, dc)
	}
}

// bindControlLocked attaches the control channel to the record and pushes
// the current media state once the channel opens.
func (r *Room) bindControlLocked(link *peerLink, dc DataChannel) {
	peerID := link.id
	link.control = dc

	dc.OnMessage(func(data []byte) {
		r.handleControl(peerID, data)
	})
	dc.OnOpen(func() {
		r.pushMediaState(dc)
	})
}

// pushMediaState sends the local mute/camera flags over one channel.
func (r *Room) pushMediaState(dc DataChannel) {
	r.mu.Lock()
	local := r.local
	r.mu.Unlock()
	if local == nil {
		return
	}

	audio, video := local.Enabled()
	frame, err := encodeMediaState(audio, video)
	if err != nil {
		return
	}
	if err := dc.Send(frame); err != nil {
		r.log.Debug("media state send failed", "error", err)
	}
}

// acceptControl adopts a remotely opened control channel (callee side).
func (r *Room) acceptControl(peerID string, dc DataChannel) {
	if dc.Label() != controlChannelLabel {
		r.log.Debug("ignoring unexpected data channel", "peer", peerID, "label", dc.Label())
		return
	}

	r.mu.Lock()
	link := r.links.get(peerID)
	if link == nil || link.state == StateClosed {
		r.mu.Unlock()
		_ = dc.Close()
		return
	}
	r.bindControlLocked(link, dc)
	r.mu.Unlock()
}

// handleControl dispatches a control frame from a peer.
func (r *Room) handleControl(peerID string, data []byte) {
	msg, err := decodeControl(data)
	if err != nil {
		r.log.Debug("bad control message", "peer", peerID, "error", err)
		return
	}

	switch msg.Type {
	case controlTypeMediaState:
		state, err := decodeMediaState(msg)
		if err != nil {
			r.log.Debug("bad media state", "peer", peerID, "error", err)
			return
		}
		if cb := r.cb.OnPeerMediaState; cb != nil {
			cb(peerID, state.Audio, state.Video)
		}
	default:
		r.log.Debug("unknown control message", "peer", peerID, "type", msg.Type)
	}
}

// handleTrack builds or extends the peer's remote stream. The stream
// callback fires exactly once, on the first track; later tracks update
// the same stream object in place.
func (r *Room) handleTrack(peerID string, t media.RemoteTrack) {
	r.mu.Lock()
	link := r.links.get(peerID)
	if link == nil || link.state == StateClosed {
		r.mu.Unlock()
		return
	}
	if link.remote != nil {
		link.remote.AddTrack(t)
		r.mu.Unlock()
		return
	}
	stream := media.NewRemoteStream(peerID, t)
	link.remote = stream
	name := link.name
	r.mu.Unlock()

	if cb := r.cb.OnRemoteStream; cb != nil {
		cb(stream, peerID, name)
	}
}

// handleICEState reacts to ICE connectivity transitions. The first
// failure triggers an ICE restart on the existing connection; a failure
// while already reconnecting is terminal.
func (r *Room) handleICEState(peerID string, s webrtc.ICEConnectionState) {
	switch s {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		r.mu.Lock()
		if link := r.links.get(peerID); link != nil && link.state != StateClosed {
			link.state = StateConnected
		}
		r.mu.Unlock()
		r.log.Info("peer connected", "peer", peerID)

	case webrtc.ICEConnectionStateFailed:
		r.reconnectOrClose(peerID)

	case webrtc.ICEConnectionStateDisconnected:
		// Often transient; a hard failure follows as failed.
		r.log.Warn("peer ICE disconnected", "peer", peerID)

	case webrtc.ICEConnectionStateClosed:
		r.closePeer(peerID)
	}
}

// handleConnState reacts to aggregate connection-state transitions.
func (r *Room) handleConnState(peerID string, s webrtc.PeerConnectionState) {
	switch s {
	case webrtc.PeerConnectionStateFailed:
		r.reconnectOrClose(peerID)
	case webrtc.PeerConnectionStateClosed:
		r.closePeer(peerID)
	}
}

// reconnectOrClose requests an ICE restart on the existing connection on
// the first failure and tears the record down on a repeat failure.
func (r *Room) reconnectOrClose(peerID string) {
	r.mu.Lock()
	link := r.links.get(peerID)
	if link == nil || link.state == StateClosed {
		r.mu.Unlock()
		return
	}
	if link.state == StateReconnecting {
		r.mu.Unlock()
		r.closePeer(peerID)
		return
	}
	link.state = StateReconnecting
	role := link.role
	conn := link.conn
	r.mu.Unlock()

	if role != RoleCaller || conn == nil {
		// The caller side owns the restart offer; the callee answers it.
		r.log.Info("waiting for remote ICE restart", "peer", peerID)
		return
	}

	offer, err := conn.CreateOffer(true)
	if err != nil {
		r.log.Warn("failed to create restart offer", "peer", peerID, "error", err)
		r.closePeer(peerID)
		return
	}
	r.log.Info("requesting ICE restart", "peer", peerID)
	r.transport.Send(signaling.Offer(r.selfID, r.selfName, peerID, offer.SDP))
}

// closePeer removes and closes one record. The disconnect callback fires
// exactly once per record, whatever the cause of the close.
func (r *Room) closePeer(peerID string) {
	r.mu.Lock()
	link := r.links.remove(peerID)
	if link == nil || link.state == StateClosed {
		r.mu.Unlock()
		return
	}
	link.state = StateClosed
	r.mu.Unlock()

	r.finishClose(link)
}

// finishClose releases a record's resources outside the room mutex. The
// record has already been detached from the registry, so event handlers
// looking peers up by id no longer find it.
func (r *Room) finishClose(link *peerLink) {
	hadConn := link.conn != nil

	if link.control != nil {
		_ = link.control.Close()
		link.control = nil
	}
	if link.conn != nil {
		if err := link.conn.Close(); err != nil {
			r.log.Debug("connection close failed", "peer", link.id, "error", err)
		}
		link.conn = nil
	}

	if hadConn && !link.notified {
		link.notified = true
		if cb := r.cb.OnPeerDisconnected; cb != nil {
			cb(link.id)
		}
	}
	r.log.Info("peer closed", "peer", link.id)
}
