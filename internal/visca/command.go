package visca

import (
	"fmt"
	"strings"

	"github.com/muurk/ptzlink/internal/speed"
)

// DefaultAddress is the camera address used over IP
const DefaultAddress = 1

// MaxPreset is the highest preset number; 0xFF would collide with the terminator
const MaxPreset = 0xFE

// Command is a one-way instruction. The camera acknowledges it and later
// reports completion or an error.
type Command struct {
	Name    string
	Payload []byte
}

// Inquiry asks the camera for state. The completion reply carries the Answer.
type Inquiry struct {
	Name    string
	Payload []byte
}

// Answer is the data of an inquiry's completion reply
type Answer struct {
	Data []byte
}

// Encode frames payload for the camera at addr
func Encode(addr int, payload []byte) []byte {
	pkt := make([]byte, 0, len(payload)+2)
	pkt = append(pkt, byte(0x80|addr&0x07))
	pkt = append(pkt, payload...)
	return append(pkt, Terminator)
}

func (c Command) String() string {
	return fmt.Sprintf("%s [% X]", c.Name, c.Payload)
}

func (q Inquiry) String() string {
	return fmt.Sprintf("%s [% X]", q.Name, q.Payload)
}

// Direction is a pan/tilt drive direction
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
)

var directionNames = map[Direction]string{
	Up:        "up",
	Down:      "down",
	Left:      "left",
	Right:     "right",
	UpLeft:    "upleft",
	UpRight:   "upright",
	DownLeft:  "downleft",
	DownRight: "downright",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts the names returned by Direction.String, also with
// a dash or underscore ("up-left", "down_right")
func ParseDirection(s string) (Direction, error) {
	norm := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(s))
	for d, name := range directionNames {
		if name == norm {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Pan and tilt direction bytes of the drive command
const (
	panLeft   = 0x01
	panRight  = 0x02
	tiltUp    = 0x01
	tiltDown  = 0x02
	axisStill = 0x03
)

func (d Direction) axes() (pan, tilt byte) {
	pan, tilt = axisStill, axisStill
	switch d {
	case Up, UpLeft, UpRight:
		tilt = tiltUp
	case Down, DownLeft, DownRight:
		tilt = tiltDown
	}
	switch d {
	case Left, UpLeft, DownLeft:
		pan = panLeft
	case Right, UpRight, DownRight:
		pan = panRight
	}
	return pan, tilt
}

// Drive moves the head in dir at the given speeds until Stop
func Drive(dir Direction, s speed.Speeds) Command {
	pan, tilt := dir.axes()
	return Command{
		Name:    "drive " + dir.String(),
		Payload: []byte{0x01, 0x06, 0x01, byte(s.Pan), byte(s.Tilt), pan, tilt},
	}
}

// Stop halts pan/tilt movement
func Stop(s speed.Speeds) Command {
	return Command{
		Name:    "stop",
		Payload: []byte{0x01, 0x06, 0x01, byte(s.Pan), byte(s.Tilt), axisStill, axisStill},
	}
}

// Home returns the head to its home position
func Home() Command {
	return Command{Name: "home", Payload: []byte{0x01, 0x06, 0x04}}
}

// ZoomTele zooms in at the standard speed
func ZoomTele() Command {
	return Command{Name: "zoom tele", Payload: []byte{0x01, 0x04, 0x07, 0x02}}
}

// ZoomWide zooms out at the standard speed
func ZoomWide() Command {
	return Command{Name: "zoom wide", Payload: []byte{0x01, 0x04, 0x07, 0x03}}
}

// ZoomStop halts zoom movement
func ZoomStop() Command {
	return Command{Name: "zoom stop", Payload: []byte{0x01, 0x04, 0x07, 0x00}}
}

// PresetRecall moves to preset n
func PresetRecall(n int) (Command, error) {
	if n < 0 || n > MaxPreset {
		return Command{}, fmt.Errorf("preset %d out of range 0-%d", n, MaxPreset)
	}
	return Command{
		Name:    fmt.Sprintf("preset recall %d", n),
		Payload: []byte{0x01, 0x04, 0x3F, 0x02, byte(n)},
	}, nil
}

// PresetSet stores the current position as preset n
func PresetSet(n int) (Command, error) {
	if n < 0 || n > MaxPreset {
		return Command{}, fmt.Errorf("preset %d out of range 0-%d", n, MaxPreset)
	}
	return Command{
		Name:    fmt.Sprintf("preset set %d", n),
		Payload: []byte{0x01, 0x04, 0x3F, 0x01, byte(n)},
	}, nil
}

// PowerInquiry asks whether the camera is powered on
func PowerInquiry() Inquiry {
	return Inquiry{Name: "power", Payload: []byte{0x09, 0x04, 0x00}}
}

// PowerOn decodes the answer to PowerInquiry
func (a Answer) PowerOn() (bool, error) {
	if len(a.Data) != 1 {
		return false, fmt.Errorf("unexpected power answer [% X]", a.Data)
	}
	switch a.Data[0] {
	case 0x02:
		return true, nil
	case 0x03:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected power answer [% X]", a.Data)
	}
}
