package audio

import (
	"errors"
	"testing"
)

func TestSilenceRoundTrip(t *testing.T) {
	wav := Silence(30, 16000)

	info, err := Parse(wav)
	if err != nil {
		t.Fatalf("Parse(Silence) failed: %v", err)
	}
	if info.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("channels = %d, want 1", info.Channels)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("bits = %d, want 16", info.BitsPerSample)
	}
	if info.DurationSeconds != 30 {
		t.Errorf("duration = %v, want 30", info.DurationSeconds)
	}
}

func TestValidateRejectsShortChunk(t *testing.T) {
	// Half a second of audio is below the 1s floor.
	wav := Silence(30, 16000)
	short := make([]byte, 44+16000) // 0.5s of 16-bit mono at 16kHz
	copy(short, wav[:44])
	// Fix the data chunk length to match the truncated payload.
	putUint32 := func(b []byte, off int, v uint32) {
		b[off] = byte(v)
		b[off+1] = byte(v >> 8)
		b[off+2] = byte(v >> 16)
		b[off+3] = byte(v >> 24)
	}
	putUint32(short, 4, uint32(len(short)-8))
	putUint32(short, 40, uint32(len(short)-44))

	if _, err := Validate(short); !errors.Is(err, ErrChunkTooShort) {
		t.Errorf("Validate(0.5s) err = %v, want ErrChunkTooShort", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too small", []byte("RIFF")},
		{"wrong magic", []byte("NOTAWAVFILENOTAWAVFILENOTAWAVFILENOTAWAVFILE")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errors.Is(err, ErrNotWAV) {
				t.Errorf("Parse err = %v, want ErrNotWAV", err)
			}
		})
	}
}

func TestValidateAcceptsMinimumDuration(t *testing.T) {
	wav := Silence(1, 16000)
	info, err := Validate(wav)
	if err != nil {
		t.Fatalf("Validate(1s) failed: %v", err)
	}
	if info.DurationSeconds != 1 {
		t.Errorf("duration = %v, want 1", info.DurationSeconds)
	}
}
