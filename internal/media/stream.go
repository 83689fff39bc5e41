package media

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// SourceKind identifies where a local stream comes from. Camera and
// screen capture are mutually exclusive, last write wins.
type SourceKind string

const (
	SourceCamera SourceKind = "camera"
	SourceScreen SourceKind = "screen"
)

// Track pairs a local WebRTC track with its stop hook. Capture sources
// own the real stop; stopping twice is a no-op.
type Track struct {
	local webrtc.TrackLocal
	stop  func()
	once  sync.Once
}

// NewTrack wraps a local track. stop may be nil for tracks with no
// backing capture loop.
func NewTrack(local webrtc.TrackLocal, stop func()) *Track {
	return &Track{local: local, stop: stop}
}

// Local returns the underlying attachment target.
func (t *Track) Local() webrtc.TrackLocal {
	return t.local
}

// Kind reports the track's media kind.
func (t *Track) Kind() webrtc.RTPCodecType {
	return t.local.Kind()
}

// Stop halts the backing capture source. Safe to call more than once.
func (t *Track) Stop() {
	t.once.Do(func() {
		if t.stop != nil {
			t.stop()
		}
	})
}

// LocalStream is the single outgoing media stream: its tracks plus the
// per-kind enabled flags. It is owned by the orchestrator and only handed
// out as an attachment target, never shared by reference.
type LocalStream struct {
	id     string
	source SourceKind

	mu      sync.RWMutex
	tracks  []*Track
	audioOn bool
	videoOn bool
}

// NewLocalStream builds a stream from capture tracks. Both kinds start
// enabled.
func NewLocalStream(source SourceKind, tracks ...*Track) *LocalStream {
	return &LocalStream{
		id:      uuid.NewString(),
		source:  source,
		tracks:  tracks,
		audioOn: true,
		videoOn: true,
	}
}

// ID returns the stream's identifier.
func (s *LocalStream) ID() string {
	return s.id
}

// Source reports whether this is a camera or screen stream.
func (s *LocalStream) Source() SourceKind {
	return s.source
}

// Tracks returns a copy of the track list.
func (s *LocalStream) Tracks() []*Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// TrackOfKind returns the stream's track of the given kind, or nil when
// the stream has no analogue (screen capture often carries no audio).
func (s *LocalStream) TrackOfKind(kind webrtc.RTPCodecType) *Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tracks {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}

// StopTracks stops every capture source behind the stream.
func (s *LocalStream) StopTracks() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// SetAudioEnabled flips the microphone flag.
func (s *LocalStream) SetAudioEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioOn = enabled
}

// SetVideoEnabled flips the camera flag.
func (s *LocalStream) SetVideoEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoOn = enabled
}

// Enabled reports the current microphone and camera flags.
func (s *LocalStream) Enabled() (audio, video bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audioOn, s.videoOn
}
