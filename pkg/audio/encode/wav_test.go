// ABOUTME: Unit tests for the WAV encoder
// ABOUTME: Writes a file and decodes it back with go-audio/wav
package encode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/go-audio/wav"
)

func TestWAVEncoder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	format := audio.Format{SampleRate: 48000, Channels: 2}
	encoder, err := NewWAV(f, format, 16)
	if err != nil {
		t.Fatalf("NewWAV() failed: %v", err)
	}

	block := make([]float32, 960)
	for i := range block {
		block[i] = 0.5
	}
	for i := 0; i < 3; i++ {
		if err := encoder.Write(block); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file Close() failed: %v", err)
	}

	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer rf.Close()

	dec := wav.NewDecoder(rf)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer() failed: %v", err)
	}
	if dec.SampleRate != 48000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("header = %d Hz, %d ch, %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != 3*len(block) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), 3*len(block))
	}
	if buf.Data[0] != 16383 {
		t.Errorf("first sample = %d, want 16383", buf.Data[0])
	}
}

func TestNewWAVRejectsBitDepth(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer f.Close()

	if _, err := NewWAV(f, audio.DefaultFormat(), 8); err == nil {
		t.Errorf("NewWAV() expected error for 8-bit")
	}
}
