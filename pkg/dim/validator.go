// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

import "fmt"

// AnomalyType represents different kinds of frame anomalies
type AnomalyType int

const (
	AnomalyReservedMode AnomalyType = iota
	AnomalyUnknownCommand
	AnomalyInputWrite
)

// ValidationError represents a frame validation finding. Every
// three-byte frame decodes to some packet, so findings flag frames
// that are suspicious rather than unparseable: the protocol says to
// ignore them, but a monitor should surface them.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidatePacket inspects a decoded packet for anomalies.
// Returns a slice of validation errors (empty if the packet is clean).
func ValidatePacket(p Packet) []ValidationError {
	errors := []ValidationError{}

	if p.IsCommand() {
		if p.Mode() > CmdSave {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnknownCommand,
				Message: fmt.Sprintf("Unknown command %d on command channel (valid 0-%d)", p.Mode(), CmdSave),
				Details: map[string]interface{}{"mode": p.Mode(), "max": CmdSave},
			})
		}
		return errors
	}

	if p.Mode() == ModeReserved {
		errors = append(errors, ValidationError{
			Type:    AnomalyReservedMode,
			Message: fmt.Sprintf("Reserved mode %d on channel %d", ModeReserved, p.Channel()),
			Details: map[string]interface{}{"channel": p.Channel()},
		})
	}

	// ADC channels are read-only; an inbound frame for one is a normal
	// device report, but an update mode on it suggests a confused
	// sender echoing host traffic back.
	if ChannelDirection(p.Channel()) == DirectionInput && p.Mode() == ModeUpdate {
		errors = append(errors, ValidationError{
			Type:    AnomalyInputWrite,
			Message: fmt.Sprintf("Update mode on input channel %d", p.Channel()),
			Details: map[string]interface{}{"channel": p.Channel(), "mode": p.Mode()},
		})
	}

	return errors
}
