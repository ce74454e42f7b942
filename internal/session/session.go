package session

import (
	"sync"
	"time"

	"github.com/nextlevelbuilder/meetwatch/internal/meeting"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

// HistoryRow is a participant's presence record across a session.
type HistoryRow struct {
	Name              string
	OriginalName      string
	Role              string
	IsBot             bool
	FirstSeen         time.Time
	LastSeenPresentAt time.Time
	LeftAt            *time.Time
}

// Info is the read-only view of a session handed to API consumers.
type Info struct {
	MeetingID string     `json:"meeting_id"`
	Platform  string     `json:"platform"`
	SessionID string     `json:"session_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Session is one bot attendance of one meeting. Mutation is owned by
// the runner; the mutex exists so API readers see consistent copies.
type Session struct {
	MeetingID  string
	Platform   meeting.Platform
	SessionID  string
	MeetingURL string

	mu              sync.Mutex
	status          string
	createdAt       time.Time
	startedAt       *time.Time
	endedAt         *time.Time
	errMsg          string
	errs            []string
	profile         string
	detectedBotName string
	transcript      []string
	seenLines       map[string]struct{}
	history         map[string]*HistoryRow
}

func New(meetingID string, platform meeting.Platform, meetingURL, sessionID string) *Session {
	return &Session{
		MeetingID:  meetingID,
		Platform:   platform,
		SessionID:  sessionID,
		MeetingURL: meetingURL,
		status:     protocol.StatusCreated,
		createdAt:  time.Now().UTC(),
		seenLines:  make(map[string]struct{}),
		history:    make(map[string]*HistoryRow),
	}
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		MeetingID: s.MeetingID,
		Platform:  string(s.Platform),
		SessionID: s.SessionID,
		Status:    s.status,
		CreatedAt: s.createdAt,
		StartedAt: copyTime(s.startedAt),
		EndedAt:   copyTime(s.endedAt),
		Error:     s.errMsg,
	}
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Terminal reports whether the session has finished.
func (s *Session) Terminal() bool {
	st := s.Status()
	return st == protocol.StatusEnded || st == protocol.StatusFailed
}

func (s *Session) markJoining() {
	now := time.Now().UTC()
	s.mu.Lock()
	s.status = protocol.StatusJoining
	s.startedAt = &now
	s.mu.Unlock()
}

func (s *Session) markInMeeting() {
	s.mu.Lock()
	s.status = protocol.StatusInMeeting
	s.mu.Unlock()
}

func (s *Session) markEnded() {
	now := time.Now().UTC()
	s.mu.Lock()
	s.status = protocol.StatusEnded
	s.endedAt = &now
	s.mu.Unlock()
}

func (s *Session) markFailed(msg string) {
	now := time.Now().UTC()
	s.mu.Lock()
	s.status = protocol.StatusFailed
	s.errMsg = msg
	s.endedAt = &now
	s.mu.Unlock()
}

func (s *Session) addError(msg string) {
	s.mu.Lock()
	s.errs = append(s.errs, msg)
	s.mu.Unlock()
}

func (s *Session) setProfile(name string) {
	s.mu.Lock()
	s.profile = name
	s.mu.Unlock()
}

func (s *Session) setDetectedBotName(name string) {
	s.mu.Lock()
	s.detectedBotName = name
	s.mu.Unlock()
}

func (s *Session) DetectedBotName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectedBotName
}

// AppendTranscript adds caption lines not seen before. Append-only.
func (s *Session) AppendTranscript(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range lines {
		if _, dup := s.seenLines[line]; dup {
			continue
		}
		s.seenLines[line] = struct{}{}
		s.transcript = append(s.transcript, line)
	}
}

func (s *Session) Transcript() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// ObserveRoster folds one roster poll into the presence history. A
// present name gets its last-seen bumped and any leave time cleared (a
// rejoin); a previously seen but now absent name is marked left.
func (s *Session) ObserveRoster(entries []protocol.ParticipantSnapshot, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[e.Name] = struct{}{}
		row, ok := s.history[e.Name]
		if !ok {
			s.history[e.Name] = &HistoryRow{
				Name:              e.Name,
				OriginalName:      e.OriginalName,
				Role:              e.Role,
				IsBot:             e.IsBot,
				FirstSeen:         now,
				LastSeenPresentAt: now,
			}
			continue
		}
		row.LastSeenPresentAt = now
		row.LeftAt = nil
		if e.IsBot {
			row.IsBot = true
		}
	}
	for name, row := range s.history {
		if _, ok := present[name]; ok {
			continue
		}
		if row.LeftAt == nil {
			left := now
			row.LeftAt = &left
		}
	}
}

// HistoryRows returns a copy of the presence table.
func (s *Session) HistoryRows() []HistoryRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryRow, 0, len(s.history))
	for _, row := range s.history {
		r := *row
		if row.LeftAt != nil {
			left := *row.LeftAt
			r.LeftAt = &left
		}
		out = append(out, r)
	}
	return out
}

func (s *Session) snapshotForSummary() (Info, []HistoryRow, []string, []string) {
	info := s.Info()
	rows := s.HistoryRows()
	transcript := s.Transcript()
	s.mu.Lock()
	errs := make([]string, len(s.errs))
	copy(errs, s.errs)
	s.mu.Unlock()
	return info, rows, transcript, errs
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
