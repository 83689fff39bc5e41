package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// RemoteTrack is the read side of an inbound track. Satisfied by
// *webrtc.TrackRemote; tests substitute lightweight fakes.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
}

// RemoteStream aggregates the inbound tracks of one peer. The first track
// creates the stream; later tracks for the same peer are added in place so
// consumers keep a single stable stream object per peer.
type RemoteStream struct {
	peerID string

	mu     sync.RWMutex
	tracks []RemoteTrack
}

// NewRemoteStream creates the per-peer stream around its first track.
func NewRemoteStream(peerID string, first RemoteTrack) *RemoteStream {
	return &RemoteStream{
		peerID: peerID,
		tracks: []RemoteTrack{first},
	}
}

// PeerID returns the owning peer's id.
func (s *RemoteStream) PeerID() string {
	return s.peerID
}

// AddTrack appends a later-arriving track. Duplicate track ids are
// ignored so re-delivered track events stay idempotent.
func (s *RemoteStream) AddTrack(t RemoteTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tracks {
		if existing.ID() == t.ID() {
			return
		}
	}
	s.tracks = append(s.tracks, t)
}

// Tracks returns a copy of the current track list.
func (s *RemoteStream) Tracks() []RemoteTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RemoteTrack, len(s.tracks))
	copy(out, s.tracks)
	return out
}
