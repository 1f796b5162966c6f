// Package speed holds the pan/tilt speed used by VISCA drive commands.
package speed

import (
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/logging"
)

const (
	// Min is the slowest pan/tilt speed the camera accepts
	Min = 0x01

	// MaxPan is the fastest pan speed
	MaxPan = 0x18

	// MaxTilt is the fastest tilt speed; the tilt axis has a narrower range
	MaxTilt = 0x14

	// Default is the speed a State starts at and resets to on invalid input
	Default = 0x0C
)

// SetResult reports what Set did with its argument
type SetResult int

const (
	// SetAccepted means the value was in range and is now current
	SetAccepted SetResult = iota
	// SetReset means the value was out of range and the state went back to Default
	SetReset
)

func (r SetResult) String() string {
	switch r {
	case SetAccepted:
		return "accepted"
	case SetReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Speeds is the pair sent in a pan/tilt drive command
type Speeds struct {
	Pan  int
	Tilt int
}

// State is the current pan speed. It is not safe for concurrent use;
// the owner serializes access.
type State struct {
	pan int
}

// New returns a State at Default speed
func New() *State {
	return &State{pan: Default}
}

// Current returns the pan speed and the derived tilt speed
func (s *State) Current() Speeds {
	return Speeds{Pan: s.pan, Tilt: min(s.pan, MaxTilt)}
}

// Set stores v if it is within [Min, MaxPan]. Anything else resets the
// state to Default.
func (s *State) Set(v int) SetResult {
	if v < Min || v > MaxPan {
		logging.Debug("Rejected pan/tilt speed, resetting to default",
			zap.Int("requested", v),
			zap.Int("default", Default),
		)
		s.pan = Default
		return SetReset
	}
	s.pan = v
	return SetAccepted
}

// Increase raises the speed by one step, saturating at MaxPan
func (s *State) Increase() {
	if s.pan < MaxPan {
		s.pan++
	}
}

// Decrease lowers the speed by one step, saturating at Min
func (s *State) Decrease() {
	if s.pan > Min {
		s.pan--
	}
}
