package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/SanikaMane4142/engage-classroomm-55/internal/config"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/media"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/mesh"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/signaling"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/ui"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
)

var (
	flagRoom        string
	flagName        string
	flagID          string
	flagServer      string
	flagSTUN        string
	flagTURN        string
	flagTURNUser    string
	flagTURNPass    string
	flagMaxAttempts int
)

var joinCmd = &cobra.Command{
	Use:     "join",
	Aliases: []string{"j"},
	Short:   "Join a classroom meeting room",
	Long: `Join a meeting room and connect to every other participant directly.

Examples:
  engage join --room physics-101 --name "Sanika"
  engage join --room physics-101 --server wss://relay.example.com/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagRoom == "" {
			return fmt.Errorf("no room specified, use --room")
		}
		return joinRoom()
	},
}

func init() {
	joinCmd.Flags().StringVarP(&flagRoom, "room", "r", "", "room id to join")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "display name (defaults to hostname)")
	joinCmd.Flags().StringVar(&flagID, "id", "", "peer id (generated when empty)")
	joinCmd.Flags().StringVar(&flagServer, "server", "", "signaling relay websocket URL")
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server URL")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().IntVar(&flagMaxAttempts, "max-attempts", 0, "per-peer connection attempt cutoff")

	rootCmd.AddCommand(joinCmd)
}

func joinRoom() error {
	cfg, err := config.Load(config.Options{
		ServerURL:   flagServer,
		STUNServer:  flagSTUN,
		TURNServer:  flagTURN,
		TURNUser:    flagTURNUser,
		TURNPass:    flagTURNPass,
		MaxAttempts: flagMaxAttempts,
	})
	if err != nil {
		return err
	}

	selfID := flagID
	if selfID == "" {
		selfID = uuid.NewString()
	}
	selfName := flagName
	if selfName == "" {
		if host, err := os.Hostname(); err == nil {
			selfName = host
		} else {
			selfName = "guest"
		}
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to signaling relay...")
	client := signaling.NewClient(cfg.ServerURL)
	if err := client.Connect(); err != nil {
		stopSpinner()
		return fmt.Errorf("failed to reach signaling relay: %w", err)
	}
	stopSpinner()

	stream, err := media.CameraStream()
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	roster := ui.NewRosterUI()
	room := mesh.NewRoom(client, mesh.NewPionFactory(cfg), cfg.MaxAttempts)

	// One drain goroutine per peer, released on disconnect.
	var drainMu sync.Mutex
	drains := make(map[string]chan struct{})

	callbacks := mesh.Callbacks{
		OnRemoteStream: func(remote *media.RemoteStream, peerID, peerName string) {
			roster.Upsert(ui.RosterEntry{ID: peerID, Name: peerName, State: "connected", Audio: true, Video: true})

			done := make(chan struct{})
			drainMu.Lock()
			drains[peerID] = done
			drainMu.Unlock()
			go drainRemote(remote, done)
		},
		OnPeerDisconnected: func(peerID string) {
			roster.Remove(peerID)

			drainMu.Lock()
			if done, ok := drains[peerID]; ok {
				close(done)
				delete(drains, peerID)
			}
			drainMu.Unlock()
		},
		OnPeerMediaState: func(peerID string, audio, video bool) {
			roster.SetMediaState(peerID, audio, video)
		},
	}

	if err := room.Initialize(stream, flagRoom, selfID, selfName, callbacks); err != nil {
		client.Leave()
		stream.StopTracks()
		return err
	}

	fmt.Println(ui.RoomBanner(flagRoom, selfName, selfID))

	roster.Start()
	runSession(room, roster)
	roster.Stop()

	if err := room.LeaveRoom(); err != nil {
		return err
	}
	ui.PrintSuccess("Left the room " + ui.IconLeave)
	return nil
}

// runSession applies live-view commands to the room until the user
// leaves or the process is interrupted.
func runSession(room *mesh.Room, roster *ui.RosterUI) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	for {
		select {
		case <-sig:
			return
		case <-roster.Done():
			return
		case action := <-roster.Actions():
			switch action.Kind {
			case ui.ActionShareScreen:
				scr, err := media.ScreenStream()
				if err != nil {
					ui.PrintErrorf("screen capture failed: %v", err)
					continue
				}
				room.UpdateLocalStream(scr)
			case ui.ActionShareCamera:
				cam, err := media.CameraStream()
				if err != nil {
					ui.PrintErrorf("camera capture failed: %v", err)
					continue
				}
				room.UpdateLocalStream(cam)
			case ui.ActionSetAudio:
				room.SetAudioEnabled(action.Enabled)
			case ui.ActionSetVideo:
				room.SetVideoEnabled(action.Enabled)
			case ui.ActionLeave:
				return
			}
		}
	}
}

// drainRemote keeps reading inbound RTP so the receive buffers never
// fill. A media consumer would decode here instead; the CLI discards.
// New tracks are picked up as they arrive and everything stops when
// done closes, which the disconnect callback does per peer.
func drainRemote(stream *media.RemoteStream, done <-chan struct{}) {
	seen := make(map[string]bool)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		for _, t := range stream.Tracks() {
			remote, ok := t.(*webrtc.TrackRemote)
			if !ok || seen[t.ID()] {
				continue
			}
			seen[t.ID()] = true
			go func(tr *webrtc.TrackRemote) {
				// Read fails once the connection closes.
				buf := make([]byte, 1500)
				for {
					if _, _, err := tr.Read(buf); err != nil {
						return
					}
				}
			}(remote)
		}
	}
}
