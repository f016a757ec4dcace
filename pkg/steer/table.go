// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import (
	"sync"
	"time"

	"github.com/fsoptics/fsmctl/pkg/dim"
)

// ChannelEntry is one row of the channel table
type ChannelEntry struct {
	Value     uint16
	Known     bool // false until the first update lands
	UpdatedAt time.Time
}

// Observer receives channel table updates
type Observer func(channel uint8, value uint16)

// ChannelTable mirrors the last value seen or sent for each of the
// eight protocol channels. Every entry starts unknown; the module
// never volunteers state, so entries fill in as traffic flows (or the
// DAC rows all at once after an INITIALIZE echo).
type ChannelTable struct {
	mu        sync.RWMutex
	entries   [dim.ChannelCount]ChannelEntry
	observers []Observer
}

// NewChannelTable creates a table with all entries unknown
func NewChannelTable() *ChannelTable {
	return &ChannelTable{}
}

// Set records a value for a channel and notifies observers. Observers
// run synchronously on the caller's goroutine, outside the table lock.
func (t *ChannelTable) Set(channel uint8, value uint16) {
	channel &= dim.ChannelMask

	t.mu.Lock()
	t.entries[channel] = ChannelEntry{
		Value:     value,
		Known:     true,
		UpdatedAt: time.Now(),
	}
	observers := t.observers
	t.mu.Unlock()

	for _, observer := range observers {
		observer(channel, value)
	}
}

// Get returns the channel's last-known value and whether one exists
func (t *ChannelTable) Get(channel uint8) (uint16, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry := t.entries[channel&dim.ChannelMask]
	return entry.Value, entry.Known
}

// Entry returns the full table row for a channel
func (t *ChannelTable) Entry(channel uint8) ChannelEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[channel&dim.ChannelMask]
}

// Snapshot returns a copy of all eight rows, indexed by channel
func (t *ChannelTable) Snapshot() [dim.ChannelCount]ChannelEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries
}

// Subscribe registers an observer for future updates
func (t *ChannelTable) Subscribe(observer Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, observer)
}
