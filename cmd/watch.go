// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive TUI showing the channel table live",
	Long: `Watch the module through an interactive terminal UI.

The UI shows the channel table (last known value and age per channel),
link statistics, and a log of recent frames in both directions. Basic
control is available from the keyboard:

  e       Edit: type '<axis> <value>' and press enter to set a channel
  c       Center all DAC channels
  i       Send INITIALIZE (reload EEPROM, provokes a DAC echo)
  s       Send SAVE (persist current outputs)
  q       Quit

There is no automatic reconnection: if the link fails the UI flags it
and holds the last known state.

Supports both serial and WebSocket connections.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	relay := &watchRelay{done: make(chan struct{})}

	ctrl, conn, connInfo, err := openController(steer.Options{Display: relay})
	if err != nil {
		return err
	}
	defer conn.Close()

	m := initialWatchModel(ctrl, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())
	relay.setProgram(p)

	go relay.run()
	defer relay.stop()

	// Drain loop: decoded inbound frames become log events, the table
	// itself is rendered straight from the controller on each repaint
	go func() {
		ticker := time.NewTicker(steer.DrawTickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-relay.done:
				return
			case <-ticker.C:
				for _, packet := range ctrl.Drain() {
					relay.pushInbound(packet)
				}
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	return nil
}

//////////////////////////////////////////////////////////////
// Event relay
//////////////////////////////////////////////////////////////

// watchEvent is one line of the UI's frame log
type watchEvent struct {
	timestamp time.Time
	message   string
	isError   bool
}

// watchBatchMsg delivers buffered events to the UI at a fixed rate so
// a chatty link cannot flood the event loop
type watchBatchMsg struct {
	events []watchEvent
}

// watchRelay collects controller activity and forwards it to the TUI
// in batches. It is the controller's Display, so sends are recorded at
// the moment they happen rather than on the next poll.
type watchRelay struct {
	mu      sync.Mutex
	p       *tea.Program
	pending []watchEvent
	done    chan struct{}
}

const watchRelayPendingMax = 1000

func (r *watchRelay) setProgram(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

// ChannelUpdated is part of steer.Display. The table is re-read on
// every repaint, so there is nothing to forward here.
func (r *watchRelay) ChannelUpdated(channel uint8, value uint16) {}

// PacketSent is part of steer.Display
func (r *watchRelay) PacketSent(packet dim.Packet) {
	var message string
	if packet.IsCommand() {
		message = fmt.Sprintf("TX CMD %s", dim.FormatCommand(packet.Mode()))
	} else {
		message = fmt.Sprintf("TX ch%d %s %s 0x%04X",
			packet.Channel(), dim.FormatChannel(packet.Channel()),
			dim.FormatMode(packet.Mode()), packet.Value())
	}
	r.push(watchEvent{timestamp: time.Now(), message: message})
}

func (r *watchRelay) pushInbound(packet dim.Packet) {
	validationErrors := dim.ValidatePacket(packet)

	var message string
	switch {
	case packet.IsCommand():
		message = fmt.Sprintf("RX CMD %s", dim.FormatCommand(packet.Mode()))
	default:
		message = fmt.Sprintf("RX ch%d %s %s 0x%04X",
			packet.Channel(), dim.FormatChannel(packet.Channel()),
			dim.FormatMode(packet.Mode()), packet.Value())
	}
	if len(validationErrors) > 0 {
		message = fmt.Sprintf("%s (%s)", message, validationErrors[0].Message)
	}

	r.push(watchEvent{
		timestamp: packet.Timestamp(),
		message:   message,
		isError:   len(validationErrors) > 0,
	})
}

func (r *watchRelay) push(event watchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) >= watchRelayPendingMax {
		r.pending = r.pending[1:]
	}
	r.pending = append(r.pending, event)
}

// run flushes pending events to the TUI at 20 Hz
func (r *watchRelay) run() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			events := r.pending
			r.pending = nil
			p := r.p
			r.mu.Unlock()

			if p != nil && len(events) > 0 {
				p.Send(watchBatchMsg{events: events})
			}
		}
	}
}

func (r *watchRelay) stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}
