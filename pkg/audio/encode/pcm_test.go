// ABOUTME: Unit tests for the raw PCM encoder
// ABOUTME: Tests 16-bit and 24-bit quantization and clipping
package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/cuedeck/cuedeck/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		bitDepth    int
		wantErr     bool
		errContains string
	}{
		{name: "16-bit", bitDepth: 16},
		{name: "24-bit", bitDepth: 24},
		{name: "unsupported bit depth", bitDepth: 32, wantErr: true, errContains: "unsupported bit depth"},
		{name: "zero bit depth", bitDepth: 0, wantErr: true, errContains: "unsupported bit depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(&bytes.Buffer{}, tt.bitDepth)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewPCM() expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %v", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("NewPCM() unexpected error = %v", err)
			}
			if encoder == nil {
				t.Errorf("NewPCM() returned nil encoder")
			}
		})
	}
}

func TestPCMEncoder_Write16Bit(t *testing.T) {
	var out bytes.Buffer
	encoder, err := NewPCM(&out, 16)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := []float32{0, 0.5, -0.5, 1.5, -1.5}
	want := []int16{0, 16383, -16383, 32767, -32768}

	if err := encoder.Write(samples); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if out.Len() != len(samples)*2 {
		t.Fatalf("output size = %d, want %d", out.Len(), len(samples)*2)
	}
	for i := range samples {
		got := int16(binary.LittleEndian.Uint16(out.Bytes()[i*2:]))
		if got != want[i] {
			t.Errorf("Sample %d: got %d, want %d", i, got, want[i])
		}
	}
}

func TestPCMEncoder_Write24Bit(t *testing.T) {
	var out bytes.Buffer
	encoder, err := NewPCM(&out, 24)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := []float32{0, 1, -1, 0.25}
	want := []int32{0, 0x7FFFFF, -0x800000, 0x1FFFFF}

	if err := encoder.Write(samples); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if out.Len() != len(samples)*3 {
		t.Fatalf("output size = %d, want %d", out.Len(), len(samples)*3)
	}
	b := out.Bytes()
	for i := range samples {
		got := audio.SampleFrom24Bit([3]byte{b[i*3], b[i*3+1], b[i*3+2]})
		if got != want[i] {
			t.Errorf("Sample %d: got %#x, want %#x", i, got, want[i])
		}
	}
}

func TestPCMEncoder_Close(t *testing.T) {
	encoder, err := NewPCM(&bytes.Buffer{}, 16)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	if err := encoder.Close(); err != nil {
		t.Errorf("Close() unexpected error = %v", err)
	}
	if err := encoder.Write([]float32{0}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() after Close = %v, want ErrClosed", err)
	}
}
