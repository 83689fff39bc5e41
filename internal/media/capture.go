package media

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Synthetic capture sources. Real capture (camera, microphone, display)
// is an external collaborator; these stand-ins feed timed samples so the
// rest of the pipeline behaves like it would with live media.

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 100 * time.Millisecond
)

// opusSilence is a minimal Opus frame decoding to silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// CameraStream builds a camera-source local stream with one audio and one
// video track.
func CameraStream() (*LocalStream, error) {
	streamID := "camera-" + uuid.NewString()

	audio, err := sampleTrack(webrtc.MimeTypeOpus, "audio", streamID, audioFrameInterval, opusSilence)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio track: %w", err)
	}

	video, err := sampleTrack(webrtc.MimeTypeVP8, "video", streamID, videoFrameInterval, nil)
	if err != nil {
		audio.Stop()
		return nil, fmt.Errorf("failed to create video track: %w", err)
	}

	return NewLocalStream(SourceCamera, audio, video), nil
}

// ScreenStream builds a screen-source local stream. Display capture
// supplies no audio track.
func ScreenStream() (*LocalStream, error) {
	streamID := "screen-" + uuid.NewString()

	video, err := sampleTrack(webrtc.MimeTypeVP8, "screen", streamID, videoFrameInterval, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create screen track: %w", err)
	}

	return NewLocalStream(SourceScreen, video), nil
}

// sampleTrack creates a static-sample track fed by a ticker loop until
// the returned Track is stopped.
func sampleTrack(mimeType, trackID, streamID string, interval time.Duration, payload []byte) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType},
		trackID,
		streamID,
	)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		data := payload
		if data == nil {
			data = make([]byte, 16)
		}

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// Write errors just mean no sender is attached yet.
				_ = local.WriteSample(pionmedia.Sample{
					Data:     data,
					Duration: interval,
				})
			}
		}
	}()

	return NewTrack(local, func() { close(done) }), nil
}
