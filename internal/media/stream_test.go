package media

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func newTestTrack(t *testing.T, mimeType, id string, stops *int) *Track {
	t.Helper()
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType}, id, "test-stream",
	)
	if err != nil {
		t.Fatalf("failed to create track: %v", err)
	}
	return NewTrack(local, func() { *stops++ })
}

func TestTrackStopIsIdempotent(t *testing.T) {
	stops := 0
	track := newTestTrack(t, webrtc.MimeTypeOpus, "audio", &stops)

	track.Stop()
	track.Stop()
	if stops != 1 {
		t.Fatalf("stop hook ran %d times, want 1", stops)
	}
}

func TestLocalStreamTrackOfKind(t *testing.T) {
	stops := 0
	audio := newTestTrack(t, webrtc.MimeTypeOpus, "audio", &stops)
	video := newTestTrack(t, webrtc.MimeTypeVP8, "video", &stops)
	stream := NewLocalStream(SourceCamera, audio, video)

	if got := stream.TrackOfKind(webrtc.RTPCodecTypeAudio); got != audio {
		t.Fatalf("audio lookup returned %v", got)
	}
	if got := stream.TrackOfKind(webrtc.RTPCodecTypeVideo); got != video {
		t.Fatalf("video lookup returned %v", got)
	}

	screen := NewLocalStream(SourceScreen, newTestTrack(t, webrtc.MimeTypeVP8, "screen", &stops))
	if got := screen.TrackOfKind(webrtc.RTPCodecTypeAudio); got != nil {
		t.Fatalf("screen stream reported an audio track: %v", got)
	}
}

func TestLocalStreamStopTracks(t *testing.T) {
	stops := 0
	stream := NewLocalStream(SourceCamera,
		newTestTrack(t, webrtc.MimeTypeOpus, "audio", &stops),
		newTestTrack(t, webrtc.MimeTypeVP8, "video", &stops),
	)

	stream.StopTracks()
	stream.StopTracks()
	if stops != 2 {
		t.Fatalf("expected 2 stopped tracks, got %d", stops)
	}
}

func TestLocalStreamEnabledFlags(t *testing.T) {
	stops := 0
	stream := NewLocalStream(SourceCamera, newTestTrack(t, webrtc.MimeTypeOpus, "audio", &stops))

	if audio, video := stream.Enabled(); !audio || !video {
		t.Fatalf("both flags should start enabled, got audio=%v video=%v", audio, video)
	}

	stream.SetAudioEnabled(false)
	if audio, video := stream.Enabled(); audio || !video {
		t.Fatalf("expected audio off video on, got audio=%v video=%v", audio, video)
	}

	stream.SetVideoEnabled(false)
	stream.SetAudioEnabled(true)
	if audio, video := stream.Enabled(); !audio || video {
		t.Fatalf("expected audio on video off, got audio=%v video=%v", audio, video)
	}
}

func TestCameraStreamShape(t *testing.T) {
	stream, err := CameraStream()
	if err != nil {
		t.Fatalf("camera stream failed: %v", err)
	}
	defer stream.StopTracks()

	if stream.Source() != SourceCamera {
		t.Fatalf("wrong source: %v", stream.Source())
	}
	if stream.TrackOfKind(webrtc.RTPCodecTypeAudio) == nil {
		t.Fatalf("camera stream has no audio track")
	}
	if stream.TrackOfKind(webrtc.RTPCodecTypeVideo) == nil {
		t.Fatalf("camera stream has no video track")
	}
}

func TestScreenStreamShape(t *testing.T) {
	stream, err := ScreenStream()
	if err != nil {
		t.Fatalf("screen stream failed: %v", err)
	}
	defer stream.StopTracks()

	if stream.Source() != SourceScreen {
		t.Fatalf("wrong source: %v", stream.Source())
	}
	if stream.TrackOfKind(webrtc.RTPCodecTypeAudio) != nil {
		t.Fatalf("screen stream carries an audio track")
	}
	if stream.TrackOfKind(webrtc.RTPCodecTypeVideo) == nil {
		t.Fatalf("screen stream has no video track")
	}
}

type stubRemoteTrack struct {
	id       string
	streamID string
	kind     webrtc.RTPCodecType
}

func (t *stubRemoteTrack) ID() string                { return t.id }
func (t *stubRemoteTrack) StreamID() string          { return t.streamID }
func (t *stubRemoteTrack) Kind() webrtc.RTPCodecType { return t.kind }

func TestRemoteStreamDeduplicatesTracks(t *testing.T) {
	first := &stubRemoteTrack{id: "t1", streamID: "s1", kind: webrtc.RTPCodecTypeAudio}
	stream := NewRemoteStream("u1", first)

	if stream.PeerID() != "u1" {
		t.Fatalf("wrong peer id: %s", stream.PeerID())
	}

	stream.AddTrack(&stubRemoteTrack{id: "t1", streamID: "s1", kind: webrtc.RTPCodecTypeAudio})
	if n := len(stream.Tracks()); n != 1 {
		t.Fatalf("duplicate track id was appended: %d tracks", n)
	}

	stream.AddTrack(&stubRemoteTrack{id: "t2", streamID: "s1", kind: webrtc.RTPCodecTypeVideo})
	if n := len(stream.Tracks()); n != 2 {
		t.Fatalf("expected 2 tracks, got %d", n)
	}
}
