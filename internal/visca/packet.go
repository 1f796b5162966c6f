package visca

import (
	"bufio"
	"errors"
	"fmt"
)

const (
	// Terminator ends every VISCA packet
	Terminator = 0xFF

	// MaxPacketSize is the longest packet the protocol allows
	MaxPacketSize = 16
)

// ErrPacketTooLong is returned when no terminator arrives within MaxPacketSize bytes
var ErrPacketTooLong = errors.New("visca packet exceeds 16 bytes without terminator")

// Reply kinds, taken from the high nibble of a reply's second byte
const (
	KindAck        = 0x40
	KindCompletion = 0x50
	KindError      = 0x60
)

// Packet is one raw VISCA packet including header and terminator
type Packet []byte

// ReadPacket reads bytes up to and including the next terminator
func ReadPacket(r *bufio.Reader) (Packet, error) {
	buf := make([]byte, 0, MaxPacketSize)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read packet: %w", err)
		}
		buf = append(buf, b)
		if b == Terminator {
			return Packet(buf), nil
		}
		if len(buf) >= MaxPacketSize {
			return nil, ErrPacketTooLong
		}
	}
}

// IsReply reports whether the packet is addressed from a camera (0x90-0xF0)
func (p Packet) IsReply() bool {
	return len(p) >= 3 && p[0]&0x80 != 0 && p[0]&0x0F == 0
}

// Kind returns KindAck, KindCompletion or KindError for a reply, 0 otherwise
func (p Packet) Kind() byte {
	if !p.IsReply() {
		return 0
	}
	switch k := p[1] & 0xF0; k {
	case KindAck, KindCompletion, KindError:
		return k
	default:
		return 0
	}
}

// Socket returns the socket number carried in an ack, completion or error
func (p Packet) Socket() byte {
	if len(p) < 2 {
		return 0
	}
	return p[1] & 0x0F
}

// Data returns the bytes between the reply header and the terminator
func (p Packet) Data() []byte {
	if len(p) < 3 {
		return nil
	}
	return p[2 : len(p)-1]
}

// Err decodes an error reply into a *ProtocolError, or nil for any other packet
func (p Packet) Err() *ProtocolError {
	if p.Kind() != KindError {
		return nil
	}
	code := byte(0)
	if len(p) >= 4 {
		code = p[2]
	}
	return &ProtocolError{Code: code, Socket: p.Socket()}
}

// String returns the packet as spaced hex, e.g. "90 41 FF"
func (p Packet) String() string {
	return fmt.Sprintf("% X", []byte(p))
}
