package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/bus"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

// CaptureFunc acquires raw WAV bytes covering roughly the requested
// number of seconds, typically from a browser-side media tap. A nil
// CaptureFunc or an error falls back to silent PCM.
type CaptureFunc func(ctx context.Context, seconds int) ([]byte, error)

// SnapshotFunc returns the current classified roster.
type SnapshotFunc func(ctx context.Context) []protocol.ParticipantSnapshot

// Diarizer identifies speakers in a chunk.
type Diarizer interface {
	Analyze(ctx context.Context, meetingID, sessionID, chunkID string, wav []byte, snapshot []protocol.ParticipantSnapshot) []protocol.SpeakerInfo
	ActiveSpeaker(speakers []protocol.SpeakerInfo) *protocol.SpeakerInfo
}

// ChunkStore persists chunk artifacts.
type ChunkStore interface {
	SaveAudio(meetingID, sessionID, filename string, data []byte) (string, error)
	SaveChunkMetadata(meetingID, sessionID string, chunkNumber int, record interface{}) (string, error)
}

// Recorder produces one audio chunk per interval until stopped. Chunk
// numbers are assigned only to chunks that survive WAV validation, so
// the numbering of persisted chunks is gap-free.
type Recorder struct {
	MeetingID string
	SessionID string

	Interval   time.Duration
	SampleRate int

	Capture  CaptureFunc
	Snapshot SnapshotFunc
	Diarizer Diarizer
	Store    ChunkStore
	Bus      bus.Publisher

	nextChunk int
}

// ChunkCount returns how many valid chunks have been produced.
func (r *Recorder) ChunkCount() int { return r.nextChunk }

// Run loops until ctx is done. A partial interval in progress at
// cancellation is discarded, never emitted.
func (r *Recorder) Run(ctx context.Context) {
	log := slog.With("meeting_id", r.MeetingID, "session_id", r.SessionID)
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	sampleRate := r.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	for {
		start := time.Now().UTC()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		end := time.Now().UTC()

		wav := r.capture(ctx, int(interval.Seconds()), sampleRate, log)
		info, err := Validate(wav)
		if err != nil {
			log.Warn("dropping invalid audio chunk", "error", err)
			continue
		}

		snapshot := r.Snapshot(ctx)
		chunkNumber := r.nextChunk
		chunkID := fmt.Sprintf("%s-chunk-%03d", r.SessionID, chunkNumber)

		speakers := r.Diarizer.Analyze(ctx, r.MeetingID, r.SessionID, chunkID, wav, snapshot)
		active := r.Diarizer.ActiveSpeaker(speakers)

		filename := Filename(start)
		path, err := r.Store.SaveAudio(r.MeetingID, r.SessionID, filename, wav)
		if err != nil {
			log.Error("audio chunk write failed", "chunk", chunkNumber, "error", err)
			continue
		}

		real := 0
		for _, p := range snapshot {
			if !p.IsBot {
				real++
			}
		}
		payload := protocol.AudioChunkPayload{
			ChunkID:              chunkID,
			ChunkNumber:          chunkNumber,
			MeetingID:            r.MeetingID,
			SessionID:            r.SessionID,
			StartTimestamp:       start,
			EndTimestamp:         end,
			DurationSeconds:      info.DurationSeconds,
			AudioFilePath:        path,
			Filename:             RichFilename(chunkNumber, snapshot, start),
			Participants:         snapshot,
			ParticipantCount:     len(snapshot),
			RealParticipantCount: real,
			ActiveSpeaker:        active,
			AllSpeakers:          speakers,
		}

		if _, err := r.Store.SaveChunkMetadata(r.MeetingID, r.SessionID, chunkNumber, payload); err != nil {
			log.Warn("chunk metadata write failed", "chunk", chunkNumber, "error", err)
		}

		// The chunk is on disk; only now does it consume a number.
		r.nextChunk++

		r.Bus.Broadcast(bus.Event{
			Name:      protocol.EventAudioChunkComplete,
			Subject:   r.MeetingID,
			Timestamp: end,
			Payload:   payload,
		})
		if active != nil {
			r.Bus.Broadcast(bus.Event{
				Name:      protocol.EventActiveSpeaker,
				Subject:   r.MeetingID,
				Timestamp: end,
				Payload: protocol.ActiveSpeakerPayload{
					ChunkID:      chunkID,
					MeetingID:    r.MeetingID,
					SessionID:    r.SessionID,
					SpeakerLabel: active.Label,
					Confidence:   active.Confidence,
					Timestamp:    end,
					AllSpeakers:  speakers,
				},
			})
		}
		log.Debug("audio chunk complete", "chunk", chunkNumber, "duration", info.DurationSeconds)
	}
}

func (r *Recorder) capture(ctx context.Context, seconds, sampleRate int, log *slog.Logger) []byte {
	if r.Capture != nil {
		wav, err := r.Capture(ctx, seconds)
		if err == nil && len(wav) > 0 {
			return wav
		}
		if err != nil {
			log.Debug("browser audio capture unavailable, using silence", "error", err)
		}
	}
	return Silence(seconds, sampleRate)
}
