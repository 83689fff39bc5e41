package mesh

import (
	"sync"

	"github.com/SanikaMane4142/engage-classroomm-55/internal/config"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/media"
	"github.com/pion/webrtc/v4"
)

// Conn is the capability the orchestrator needs from a peer connection.
// The pion adapter satisfies it in production; tests use scripted fakes,
// so the mesh logic never depends on a live media transport.
//
// CreateOffer and CreateAnswer also set the local description and return
// it ready to send; trickle candidates flow through OnICECandidate
// afterwards.
type Conn interface {
	CreateOffer(iceRestart bool) (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error

	AddTrack(track webrtc.TrackLocal) (Sender, error)
	Senders() []Sender

	CreateDataChannel(label string) (DataChannel, error)

	OnICECandidate(fn func(*webrtc.ICECandidateInit))
	OnTrack(fn func(media.RemoteTrack))
	OnICEStateChange(fn func(webrtc.ICEConnectionState))
	OnStateChange(fn func(webrtc.PeerConnectionState))
	OnDataChannel(fn func(DataChannel))

	Close() error
}

// Sender is an outgoing track slot on a connection. Its kind is fixed at
// attach time, even while the slot holds no active track.
type Sender interface {
	Kind() webrtc.RTPCodecType
	Track() webrtc.TrackLocal
	ReplaceTrack(track webrtc.TrackLocal) error
}

// DataChannel is the small surface of a negotiated data channel used for
// the control protocol.
type DataChannel interface {
	Label() string
	Send(data []byte) error
	OnOpen(fn func())
	OnMessage(fn func(data []byte))
	Close() error
}

// ConnFactory produces a fresh connection for one peer record.
type ConnFactory func() (Conn, error)

// NewPionFactory builds connections on pion/webrtc with ICE servers from
// the configuration.
func NewPionFactory(cfg *config.Config) ConnFactory {
	return func() (Conn, error) {
		iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

		if turnServers := cfg.GetTURNServers(); turnServers != nil {
			username, password := cfg.GetTURNCredentials()
			iceServers = append(iceServers, webrtc.ICEServer{
				URLs:       turnServers,
				Username:   username,
				Credential: password,
			})
		}

		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
		if err != nil {
			return nil, err
		}
		return &pionConn{pc: pc}, nil
	}
}

// pionConn adapts *webrtc.PeerConnection to the Conn capability.
type pionConn struct {
	pc *webrtc.PeerConnection

	mu      sync.Mutex
	senders []Sender
}

func (c *pionConn) CreateOffer(iceRestart bool) (webrtc.SessionDescription, error) {
	var opts *webrtc.OfferOptions
	if iceRestart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}

	offer, err := c.pc.CreateOffer(opts)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err = c.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}

	// Candidates trickle via OnICECandidate, no need to wait for gathering.
	return *c.pc.LocalDescription(), nil
}

func (c *pionConn) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err = c.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return *c.pc.LocalDescription(), nil
}

func (c *pionConn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *pionConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

func (c *pionConn) AddTrack(track webrtc.TrackLocal) (Sender, error) {
	rtpSender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}

	// Read and discard RTCP packets so the interceptors keep running.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := rtpSender.Read(buf); err != nil {
				return
			}
		}
	}()

	s := &pionSender{rtp: rtpSender, kind: track.Kind(), track: track}
	c.mu.Lock()
	c.senders = append(c.senders, s)
	c.mu.Unlock()
	return s, nil
}

func (c *pionConn) Senders() []Sender {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sender, len(c.senders))
	copy(out, c.senders)
	return out
}

func (c *pionConn) CreateDataChannel(label string) (DataChannel, error) {
	dc, err := c.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	return &pionDataChannel{dc: dc}, nil
}

func (c *pionConn) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			fn(nil)
			return
		}
		init := candidate.ToJSON()
		fn(&init)
	})
}

func (c *pionConn) OnTrack(fn func(media.RemoteTrack)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(track)
	})
}

func (c *pionConn) OnICEStateChange(fn func(webrtc.ICEConnectionState)) {
	c.pc.OnICEConnectionStateChange(fn)
}

func (c *pionConn) OnStateChange(fn func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

func (c *pionConn) OnDataChannel(fn func(DataChannel)) {
	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(&pionDataChannel{dc: dc})
	})
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}

type pionSender struct {
	rtp  *webrtc.RTPSender
	kind webrtc.RTPCodecType

	mu    sync.Mutex
	track webrtc.TrackLocal
}

func (s *pionSender) Kind() webrtc.RTPCodecType {
	return s.kind
}

func (s *pionSender) Track() webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

func (s *pionSender) ReplaceTrack(track webrtc.TrackLocal) error {
	if err := s.rtp.ReplaceTrack(track); err != nil {
		return err
	}
	s.mu.Lock()
	s.track = track
	s.mu.Unlock()
	return nil
}

type pionDataChannel struct {
	dc *webrtc.DataChannel
}

func (d *pionDataChannel) Label() string {
	return d.dc.Label()
}

func (d *pionDataChannel) Send(data []byte) error {
	return d.dc.Send(data)
}

func (d *pionDataChannel) OnOpen(fn func()) {
	d.dc.OnOpen(fn)
}

func (d *pionDataChannel) OnMessage(fn func(data []byte)) {
	d.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data)
	})
}

func (d *pionDataChannel) Close() error {
	return d.dc.Close()
}
