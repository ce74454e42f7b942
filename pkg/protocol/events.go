package protocol

import "time"

// Event names published on the bus and forwarded to WebSocket clients.
const (
	EventBotJoined          = "bot_joined"
	EventSessionJoined      = "session_joined"
	EventParticipantUpdate  = "participant_update"
	EventAudioChunkComplete = "audio_chunk_complete"
	EventActiveSpeaker      = "active_speaker"
	EventMeetingSummary     = "meeting_summary"
)

// Session status values.
const (
	StatusCreated   = "created"
	StatusJoining   = "joining"
	StatusInMeeting = "in_meeting"
	StatusEnded     = "ended"
	StatusFailed    = "failed"
)

// ParticipantSnapshot is one roster entry as observed at a point in time.
type ParticipantSnapshot struct {
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	IsBot        bool   `json:"is_bot"`
	Role         string `json:"role"`
	IsSpeaking   bool   `json:"is_speaking"`
}

// SpeakerInfo is a diarization result for one speaker within a chunk.
type SpeakerInfo struct {
	Label      string  `json:"label"`
	MappedName string  `json:"mapped_name,omitempty"`
	Confidence float64 `json:"confidence"`
	IsBot      bool    `json:"is_bot"`
}

// BotJoinedPayload is emitted once when a session is admitted.
type BotJoinedPayload struct {
	MeetingID string    `json:"meeting_id"`
	Platform  string    `json:"platform"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionJoinedPayload is emitted once when the bot is in the meeting.
type SessionJoinedPayload struct {
	MeetingID string `json:"meeting_id"`
	Platform  string `json:"platform"`
	SessionID string `json:"session_id"`
}

// ParticipantRecord is a roster entry enriched with presence times.
type ParticipantRecord struct {
	Name         string     `json:"name"`
	OriginalName string     `json:"original_name"`
	IsBot        bool       `json:"is_bot"`
	Role         string     `json:"role"`
	JoinTime     time.Time  `json:"join_time"`
	LeaveTime    *time.Time `json:"leave_time,omitempty"`
}

// ParticipantUpdatePayload is emitted after each roster poll.
type ParticipantUpdatePayload struct {
	MeetingID    string              `json:"meeting_id"`
	SessionID    string              `json:"session_id"`
	Participants []ParticipantRecord `json:"participants"`
	RealCount    int                 `json:"real_count"`
	BotCount     int                 `json:"bot_count"`
	TotalCount   int                 `json:"total_count"`
	Timestamp    time.Time           `json:"timestamp"`
}

// AudioChunkPayload is emitted after each validated audio chunk.
type AudioChunkPayload struct {
	ChunkID              string                `json:"chunk_id"`
	ChunkNumber          int                   `json:"chunk_number"`
	MeetingID            string                `json:"meeting_id"`
	SessionID            string                `json:"session_id"`
	StartTimestamp       time.Time             `json:"start_timestamp"`
	EndTimestamp         time.Time             `json:"end_timestamp"`
	DurationSeconds      float64               `json:"duration_seconds"`
	AudioFilePath        string                `json:"audio_file_path"`
	Filename             string                `json:"filename"`
	Participants         []ParticipantSnapshot `json:"participants"`
	ParticipantCount     int                   `json:"participant_count"`
	RealParticipantCount int                   `json:"real_participant_count"`
	ActiveSpeaker        *SpeakerInfo          `json:"active_speaker,omitempty"`
	AllSpeakers          []SpeakerInfo         `json:"all_speakers"`
}

// ActiveSpeakerPayload highlights the dominant speaker of a chunk.
type ActiveSpeakerPayload struct {
	ChunkID      string        `json:"chunk_id"`
	MeetingID    string        `json:"meeting_id"`
	SessionID    string        `json:"session_id"`
	SpeakerLabel string        `json:"speaker_label"`
	Confidence   float64       `json:"confidence"`
	Timestamp    time.Time     `json:"timestamp"`
	AllSpeakers  []SpeakerInfo `json:"all_speakers"`
}

// SummaryParticipant is one row of the final summary roster.
type SummaryParticipant struct {
	Name            string     `json:"name"`
	OriginalName    string     `json:"original_name"`
	IsBot           bool       `json:"is_bot"`
	Role            string     `json:"role"`
	JoinTime        time.Time  `json:"join_time"`
	LeaveTime       *time.Time `json:"leave_time,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
}

// MeetingSummary is the terminal per-session record.
type MeetingSummary struct {
	MeetingID            string               `json:"meeting_id"`
	Platform             string               `json:"platform"`
	SessionID            string               `json:"session_id"`
	Status               string               `json:"status"`
	CreatedAt            time.Time            `json:"created_at"`
	StartedAt            *time.Time           `json:"started_at,omitempty"`
	EndedAt              *time.Time           `json:"ended_at,omitempty"`
	DurationSeconds      int                  `json:"duration_seconds"`
	Participants         []SummaryParticipant `json:"participants"`
	RealParticipants     []SummaryParticipant `json:"real_participants"`
	UniqueParticipants   int                  `json:"unique_participants"`
	AudioChunks          int                  `json:"audio_chunks"`
	AudioDurationSeconds int                  `json:"audio_duration_seconds"`
	Transcript           string               `json:"transcript,omitempty"`
	TranscriptSummary    string               `json:"transcript_summary,omitempty"`
	Error                string               `json:"error,omitempty"`
	Errors               []string             `json:"errors,omitempty"`
}
