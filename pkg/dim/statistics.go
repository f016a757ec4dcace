// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

import (
	"fmt"
	"sync"
	"time"
)

// StatisticsSnapshot is a point-in-time copy of link statistics with
// the rates filled in. It is a plain value and needs no locking.
type StatisticsSnapshot struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	FramesDecoded    uint64
	FramesSent       uint64
	CleanFrames      uint64
	CommandFrames    uint64
	InitializeSeen   uint64
	SaveSeen         uint64
	AnomalousFrames  uint64
	ReservedModes    uint64
	UnknownCommands  uint64
	InputWrites      uint64
	ResyncBytes      uint64
	LaxContinuations uint64
	WriteFailures    uint64

	// Rates (calculated at snapshot time)
	FrameRate   float64 // decoded frames/sec
	AnomalyRate float64 // anomalous frames/sec
}

// Statistics tracks frame traffic and anomaly rates for one link.
// The reader and writer sides of a link run on separate goroutines,
// so all methods are safe for concurrent use; readers take a
// Snapshot rather than touching counters directly.
type Statistics struct {
	mu   sync.Mutex
	snap StatisticsSnapshot
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		snap: StatisticsSnapshot{
			StartTime:      now,
			LastUpdateTime: now,
		},
	}
}

// RecordDecode updates statistics for one decoded packet and its
// validation findings
func (s *Statistics) RecordDecode(packet Packet, validationErrors []ValidationError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.FramesDecoded++

	if packet.IsCommand() {
		s.snap.CommandFrames++
		switch packet.Mode() {
		case CmdInitialize:
			s.snap.InitializeSeen++
		case CmdSave:
			s.snap.SaveSeen++
		}
	}

	if len(validationErrors) > 0 {
		s.snap.AnomalousFrames++
		for _, err := range validationErrors {
			switch err.Type {
			case AnomalyReservedMode:
				s.snap.ReservedModes++
			case AnomalyUnknownCommand:
				s.snap.UnknownCommands++
			case AnomalyInputWrite:
				s.snap.InputWrites++
			}
		}
	} else {
		s.snap.CleanFrames++
	}

	s.snap.LastUpdateTime = time.Now()
}

// RecordSent updates statistics for one frame written to the link
func (s *Statistics) RecordSent(packet Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.FramesSent++
	s.snap.LastUpdateTime = time.Now()
}

// RecordWriteFailure counts a failed link write
func (s *Statistics) RecordWriteFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.WriteFailures++
	s.snap.LastUpdateTime = time.Now()
}

// SetResyncBytes mirrors the decoder's discarded-byte counter so it
// appears in summaries
func (s *Statistics) SetResyncBytes(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.ResyncBytes = n
}

// SetLaxContinuations mirrors the decoder's count of continuation
// bytes accepted with a clear framing bit
func (s *Statistics) SetLaxContinuations(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LaxContinuations = n
}

// Snapshot returns a copy of the current counters with the frame and
// anomaly rates calculated.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap
	elapsed := time.Since(snap.StartTime).Seconds()
	if elapsed > 0 {
		snap.FrameRate = float64(snap.FramesDecoded) / elapsed
		snap.AnomalyRate = float64(snap.AnomalousFrames) / elapsed
	}
	return snap
}

// String formats a snapshot of the current statistics
func (s *Statistics) String() string {
	return s.Snapshot().String()
}

// String returns a formatted statistics summary
func (sn StatisticsSnapshot) String() string {
	var cleanPercent, anomalousPercent float64
	if sn.FramesDecoded > 0 {
		cleanPercent = float64(sn.CleanFrames) * 100.0 / float64(sn.FramesDecoded)
		anomalousPercent = float64(sn.AnomalousFrames) * 100.0 / float64(sn.FramesDecoded)
	}

	elapsed := time.Since(sn.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Decoded:  %8d\n", sn.FramesDecoded)
	result += fmt.Sprintf("Frames Sent:     %8d\n", sn.FramesSent)
	result += fmt.Sprintf("Clean Frames:    %8d (%.1f%%)\n", sn.CleanFrames, cleanPercent)

	if sn.CommandFrames > 0 {
		result += fmt.Sprintf("Command Frames:  %8d\n", sn.CommandFrames)
		if sn.InitializeSeen > 0 {
			result += fmt.Sprintf("  Initialize:       %5d\n", sn.InitializeSeen)
		}
		if sn.SaveSeen > 0 {
			result += fmt.Sprintf("  Save:             %5d\n", sn.SaveSeen)
		}
	}
	if sn.AnomalousFrames > 0 {
		result += fmt.Sprintf("Anomalous Frames:%8d (%.1f%%)\n", sn.AnomalousFrames, anomalousPercent)
		if sn.ReservedModes > 0 {
			result += fmt.Sprintf("  Reserved Modes:   %5d\n", sn.ReservedModes)
		}
		if sn.UnknownCommands > 0 {
			result += fmt.Sprintf("  Unknown Commands: %5d\n", sn.UnknownCommands)
		}
		if sn.InputWrites > 0 {
			result += fmt.Sprintf("  Input Writes:     %5d\n", sn.InputWrites)
		}
	}
	if sn.ResyncBytes > 0 {
		result += fmt.Sprintf("Resync Bytes:    %8d\n", sn.ResyncBytes)
	}
	if sn.LaxContinuations > 0 {
		result += fmt.Sprintf("Lax Continuations:%7d\n", sn.LaxContinuations)
	}
	if sn.WriteFailures > 0 {
		result += fmt.Sprintf("Write Failures:  %8d\n", sn.WriteFailures)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", sn.FrameRate)
	result += fmt.Sprintf("Anomaly Rate:    %8.1f frames/sec\n", sn.AnomalyRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.snap = StatisticsSnapshot{
		StartTime:      now,
		LastUpdateTime: now,
	}
}
