package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

// LocalAnalyzer is the optional in-process diarization hook (neural or
// transcription based). Nil disables the local tiers.
type LocalAnalyzer interface {
	Analyze(ctx context.Context, chunkID string, wav []byte) ([]protocol.SpeakerInfo, error)
}

// Analyzer assigns speaker labels to audio chunks using a tiered
// strategy: local hook, remote HTTP endpoint, deterministic fallback.
// The fallback tier cannot fail, so Analyze always returns speakers.
type Analyzer struct {
	local    LocalAnalyzer
	endpoint string
	client   *http.Client
}

func New(endpoint string, timeout time.Duration, local LocalAnalyzer) *Analyzer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Analyzer{
		local:    local,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Analyze labels the chunk's speakers and maps labels to roster names.
func (a *Analyzer) Analyze(ctx context.Context, meetingID, sessionID, chunkID string, wav []byte, snapshot []protocol.ParticipantSnapshot) []protocol.SpeakerInfo {
	speakers := a.rawSpeakers(ctx, meetingID, sessionID, chunkID, wav)
	return mapToSnapshot(speakers, snapshot)
}

func (a *Analyzer) rawSpeakers(ctx context.Context, meetingID, sessionID, chunkID string, wav []byte) []protocol.SpeakerInfo {
	if a.local != nil {
		speakers, err := a.local.Analyze(ctx, chunkID, wav)
		if err == nil && len(speakers) > 0 {
			return speakers
		}
		if err != nil {
			slog.Debug("local diarization failed, falling through", "chunk_id", chunkID, "error", err)
		}
	}

	if a.endpoint != "" {
		speakers, err := a.remote(ctx, meetingID, sessionID, chunkID, wav)
		if err == nil && len(speakers) > 0 {
			return speakers
		}
		if err != nil {
			slog.Warn("remote diarization failed, using fallback", "chunk_id", chunkID, "error", err)
		}
	}

	// Deterministic single-speaker fallback.
	return []protocol.SpeakerInfo{{Label: "speaker_1", Confidence: 0.5}}
}

// remote posts the WAV and IDs as multipart form data and expects
// {"speakers":[{"label":...,"confidence":...}]}.
func (a *Analyzer) remote(ctx context.Context, meetingID, sessionID, chunkID string, wav []byte) ([]protocol.SpeakerInfo, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("audio", chunkID+".wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, err
	}
	_ = w.WriteField("meeting_id", meetingID)
	_ = w.WriteField("session_id", sessionID)
	_ = w.WriteField("chunk_id", chunkID)
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("diarizer returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed struct {
		Speakers []struct {
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"speakers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode diarizer response: %w", err)
	}

	speakers := make([]protocol.SpeakerInfo, 0, len(parsed.Speakers))
	for _, s := range parsed.Speakers {
		speakers = append(speakers, protocol.SpeakerInfo{Label: s.Label, Confidence: s.Confidence})
	}
	return speakers, nil
}

// mapToSnapshot binds labels to roster names: exact case-insensitive
// label match first, then the first currently-speaking entry as a weak
// mapping, else unmapped. IsBot follows the mapped entry.
func mapToSnapshot(speakers []protocol.SpeakerInfo, snapshot []protocol.ParticipantSnapshot) []protocol.SpeakerInfo {
	var firstSpeaking *protocol.ParticipantSnapshot
	for i := range snapshot {
		if snapshot[i].IsSpeaking {
			firstSpeaking = &snapshot[i]
			break
		}
	}

	out := make([]protocol.SpeakerInfo, len(speakers))
	for i, sp := range speakers {
		mapped := sp
		matched := false
		for _, p := range snapshot {
			if strings.EqualFold(p.Name, sp.Label) {
				mapped.MappedName = p.Name
				mapped.IsBot = p.IsBot
				matched = true
				break
			}
		}
		if !matched && firstSpeaking != nil {
			mapped.MappedName = firstSpeaking.Name
			mapped.IsBot = firstSpeaking.IsBot
		}
		out[i] = mapped
	}
	return out
}

func (a *Analyzer) ActiveSpeaker(speakers []protocol.SpeakerInfo) *protocol.SpeakerInfo {
	return ActiveSpeaker(speakers)
}

// ActiveSpeaker picks the highest-confidence speaker, or nil when none.
func ActiveSpeaker(speakers []protocol.SpeakerInfo) *protocol.SpeakerInfo {
	var best *protocol.SpeakerInfo
	for i := range speakers {
		if best == nil || speakers[i].Confidence > best.Confidence {
			best = &speakers[i]
		}
	}
	return best
}
