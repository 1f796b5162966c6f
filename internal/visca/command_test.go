package visca

import (
	"bytes"
	"testing"

	"github.com/muurk/ptzlink/internal/speed"
)

func TestEncode(t *testing.T) {
	got := Encode(DefaultAddress, Home().Payload)
	want := []byte{0x81, 0x01, 0x06, 0x04, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % X, want % X", got, want)
	}

	if got := Encode(3, []byte{0x09}); got[0] != 0x83 {
		t.Errorf("address 3 header = 0x%02X, want 0x83", got[0])
	}
}

func TestDrive(t *testing.T) {
	s := speed.Speeds{Pan: 0x18, Tilt: 0x14}

	tests := []struct {
		dir       Direction
		pan, tilt byte
	}{
		{Up, 0x03, 0x01},
		{Down, 0x03, 0x02},
		{Left, 0x01, 0x03},
		{Right, 0x02, 0x03},
		{UpLeft, 0x01, 0x01},
		{UpRight, 0x02, 0x01},
		{DownLeft, 0x01, 0x02},
		{DownRight, 0x02, 0x02},
	}

	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			cmd := Drive(tt.dir, s)
			want := []byte{0x01, 0x06, 0x01, 0x18, 0x14, tt.pan, tt.tilt}
			if !bytes.Equal(cmd.Payload, want) {
				t.Errorf("Payload = % X, want % X", cmd.Payload, want)
			}
		})
	}
}

func TestStopUsesCurrentSpeeds(t *testing.T) {
	cmd := Stop(speed.New().Current())
	want := []byte{0x01, 0x06, 0x01, 0x0C, 0x0C, 0x03, 0x03}
	if !bytes.Equal(cmd.Payload, want) {
		t.Errorf("Payload = % X, want % X", cmd.Payload, want)
	}
}

func TestZoom(t *testing.T) {
	tests := []struct {
		cmd  Command
		last byte
	}{
		{ZoomTele(), 0x02},
		{ZoomWide(), 0x03},
		{ZoomStop(), 0x00},
	}
	for _, tt := range tests {
		if got := tt.cmd.Payload[len(tt.cmd.Payload)-1]; got != tt.last {
			t.Errorf("%s: last byte = 0x%02X, want 0x%02X", tt.cmd.Name, got, tt.last)
		}
	}
}

func TestPresets(t *testing.T) {
	cmd, err := PresetRecall(5)
	if err != nil {
		t.Fatalf("PresetRecall(5) error = %v", err)
	}
	if !bytes.Equal(cmd.Payload, []byte{0x01, 0x04, 0x3F, 0x02, 0x05}) {
		t.Errorf("recall Payload = % X", cmd.Payload)
	}

	cmd, err = PresetSet(MaxPreset)
	if err != nil {
		t.Fatalf("PresetSet(MaxPreset) error = %v", err)
	}
	if !bytes.Equal(cmd.Payload, []byte{0x01, 0x04, 0x3F, 0x01, 0xFE}) {
		t.Errorf("set Payload = % X", cmd.Payload)
	}

	for _, n := range []int{-1, 0xFF, 1000} {
		if _, err := PresetRecall(n); err == nil {
			t.Errorf("PresetRecall(%d) should fail", n)
		}
		if _, err := PresetSet(n); err == nil {
			t.Errorf("PresetSet(%d) should fail", n)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := map[string]Direction{
		"up":         Up,
		"LEFT":       Left,
		"up-left":    UpLeft,
		"down_right": DownRight,
		"upright":    UpRight,
	}
	for in, want := range tests {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("ParseDirection(sideways) should fail")
	}
}

func TestPowerOn(t *testing.T) {
	tests := []struct {
		data    []byte
		want    bool
		wantErr bool
	}{
		{[]byte{0x02}, true, false},
		{[]byte{0x03}, false, false},
		{[]byte{0x04}, false, true},
		{nil, false, true},
	}
	for _, tt := range tests {
		got, err := Answer{Data: tt.data}.PowerOn()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("PowerOn(% X) = %v, %v", tt.data, got, err)
		}
	}
}
