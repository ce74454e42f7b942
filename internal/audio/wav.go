package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WAV container constants for produced artifacts.
const (
	DefaultSampleRate = 16000
	numChannels       = 1
	bitsPerSample     = 16
)

// minChunkSeconds is the shortest audio accepted as a valid chunk.
const minChunkSeconds = 1.0

var (
	ErrNotWAV        = errors.New("audio: not a RIFF/WAVE container")
	ErrChunkTooShort = errors.New("audio: chunk shorter than one second")
)

// Info describes a parsed WAV payload.
type Info struct {
	SampleRate      int
	Channels        int
	BitsPerSample   int
	DurationSeconds float64
}

// Silence returns a silent single-channel 16-bit PCM WAV of the given
// duration, used when live capture is unavailable.
func Silence(durationSeconds, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	frames := durationSeconds * sampleRate
	dataLen := frames * numChannels * bitsPerSample / 8

	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(numChannels*bitsPerSample/8))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	return buf
}

// Parse reads a WAV header and returns format and duration.
func Parse(data []byte) (Info, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{}, ErrNotWAV
	}

	var info Info
	var byteRate uint32
	var dataLen uint32
	foundFmt, foundData := false, false

	// Walk RIFF subchunks; fmt and data may not be adjacent.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return Info{}, ErrNotWAV
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			foundFmt = true
		case "data":
			dataLen = size
			if avail := uint32(len(data) - body); dataLen > avail {
				dataLen = avail
			}
			foundData = true
		}
		off = body + int(size)
		if size%2 == 1 {
			off++
		}
	}

	if !foundFmt || !foundData {
		return Info{}, ErrNotWAV
	}
	if byteRate == 0 {
		return Info{}, fmt.Errorf("audio: zero byte rate")
	}
	info.DurationSeconds = float64(dataLen) / float64(byteRate)
	return info, nil
}

// Validate reports whether the payload is usable as a chunk: a parseable
// WAV of at least one second. Invalid chunks do not consume chunk
// numbers.
func Validate(data []byte) (Info, error) {
	info, err := Parse(data)
	if err != nil {
		return Info{}, err
	}
	if info.DurationSeconds < minChunkSeconds {
		return info, ErrChunkTooShort
	}
	return info, nil
}
