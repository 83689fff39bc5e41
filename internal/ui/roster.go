package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RosterEntry is one participant row in the room roster.
type RosterEntry struct {
	ID    string
	Name  string
	State string
	Audio bool
	Video bool
}

// ActionKind enumerates the session commands the live view can emit.
type ActionKind int

const (
	ActionShareScreen ActionKind = iota
	ActionShareCamera
	ActionSetAudio
	ActionSetVideo
	ActionLeave
)

// SessionAction is a user command emitted by the live roster view.
// Enabled carries the new flag value for ActionSetAudio/ActionSetVideo.
type SessionAction struct {
	Kind    ActionKind
	Enabled bool
}

// TickMsg is sent periodically to refresh the roster display
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// RosterModel is the Bubble Tea model behind the live session view: the
// participant table plus the local mic/camera/source status line. Key
// presses become SessionActions consumed by the command layer.
type RosterModel struct {
	mu      sync.RWMutex
	entries map[string]RosterEntry

	selfAudio bool
	selfVideo bool
	source    string

	actions  chan SessionAction
	quitting bool
}

// NewRosterModel creates an empty roster with both local flags enabled.
func NewRosterModel() *RosterModel {
	return &RosterModel{
		entries:   make(map[string]RosterEntry),
		selfAudio: true,
		selfVideo: true,
		source:    "camera",
		actions:   make(chan SessionAction, 8),
	}
}

func (m *RosterModel) Init() tea.Cmd {
	return tickCmd()
}

func (m *RosterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			m.mu.Lock()
			m.source = "screen"
			m.mu.Unlock()
			m.emit(SessionAction{Kind: ActionShareScreen})

		case "c":
			m.mu.Lock()
			m.source = "camera"
			m.mu.Unlock()
			m.emit(SessionAction{Kind: ActionShareCamera})

		case "m":
			m.mu.Lock()
			m.selfAudio = !m.selfAudio
			enabled := m.selfAudio
			m.mu.Unlock()
			m.emit(SessionAction{Kind: ActionSetAudio, Enabled: enabled})

		case "v":
			m.mu.Lock()
			m.selfVideo = !m.selfVideo
			enabled := m.selfVideo
			m.mu.Unlock()
			m.emit(SessionAction{Kind: ActionSetVideo, Enabled: enabled})

		case "q", "esc", "ctrl+c":
			m.quitting = true
			m.emit(SessionAction{Kind: ActionLeave})
			return m, tea.Quit
		}

	case TickMsg:
		if !m.quitting {
			return m, tickCmd()
		}
	}
	return m, nil
}

// emit hands an action to the command layer without ever blocking the
// update loop.
func (m *RosterModel) emit(a SessionAction) {
	select {
	case m.actions <- a:
	default:
	}
}

// Upsert adds or updates a participant row.
func (m *RosterModel) Upsert(entry RosterEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
}

// SetMediaState updates the mute/camera flags for a participant.
func (m *RosterModel) SetMediaState(id string, audio, video bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.Audio = audio
		e.Video = video
		m.entries[id] = e
	}
}

// Remove drops a participant row.
func (m *RosterModel) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

// Count returns the number of remote participants currently listed.
func (m *RosterModel) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// View renders the participant table, the local media status line and the
// key help.
func (m *RosterModel) View() string {
	if m.quitting {
		return ""
	}

	m.mu.RLock()
	entries := make([]RosterEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	audio, video, source := m.selfAudio, m.selfVideo, m.source
	m.mu.RUnlock()

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Participants") + "\n")

	if len(entries) == 0 {
		b.WriteString(MutedStyle.Render("No other participants yet") + "\n")
	} else {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.Style().Format.Header = text.FormatTitle
		t.AppendHeader(table.Row{"Participant", "ID", "State", "Mic", "Camera"})
		for _, e := range entries {
			t.AppendRow(table.Row{e.Name, shortID(e.ID), e.State, onOff(e.Audio), onOff(e.Video)})
		}
		b.WriteString(t.Render() + "\n")
	}

	b.WriteString(fmt.Sprintf("\n%s mic %s   %s camera %s   %s sharing %s\n",
		IconMic, onOff(audio), IconCamera, onOff(video), IconScreen, source))
	b.WriteString(MutedStyle.Render("s share screen · c share camera · m toggle mic · v toggle camera · q leave"))
	return b.String()
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RosterUI runs the live roster view as a background Bubble Tea program
// while the command layer keeps driving the room.
type RosterUI struct {
	model   *RosterModel
	program *tea.Program
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewRosterUI creates the live view around an empty roster.
func NewRosterUI() *RosterUI {
	return &RosterUI{model: NewRosterModel(), done: make(chan struct{})}
}

// Start launches the program in a goroutine. Default inline mode, no alt
// screen, so the join banner stays visible above the live view.
func (ui *RosterUI) Start() {
	ui.program = tea.NewProgram(ui.model)
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		defer close(ui.done)
		if _, err := ui.program.Run(); err != nil {
			PrintErrorf("display error: %v", err)
		}
	}()
}

// Actions returns the stream of user commands from the live view.
func (ui *RosterUI) Actions() <-chan SessionAction {
	return ui.model.actions
}

// Done closes when the program has exited, whether by user key or Stop.
func (ui *RosterUI) Done() <-chan struct{} {
	return ui.done
}

// Stop quits the program and waits for it to unwind.
func (ui *RosterUI) Stop() {
	if ui.program != nil {
		ui.program.Quit()
	}
	ui.wg.Wait()
}

// Upsert adds or updates a participant row on the live view.
func (ui *RosterUI) Upsert(entry RosterEntry) {
	ui.model.Upsert(entry)
}

// SetMediaState updates a participant's mute/camera flags on the live view.
func (ui *RosterUI) SetMediaState(id string, audio, video bool) {
	ui.model.SetMediaState(id, audio, video)
}

// Remove drops a participant row from the live view.
func (ui *RosterUI) Remove(id string) {
	ui.model.Remove(id)
}

// Count returns the number of remote participants currently listed.
func (ui *RosterUI) Count() int {
	return ui.model.Count()
}
