package session

import (
	"strings"

	"github.com/nextlevelbuilder/meetwatch/internal/roster"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

const transcriptSummaryLimit = 500

// BuildSummary freezes a session into its terminal record. Bot
// classification is re-run over the history so flags that drifted
// during the meeting settle on the final identifier set.
func BuildSummary(sess *Session, resolver *roster.Resolver, chunkCount, chunkIntervalSeconds int) protocol.MeetingSummary {
	info, rows, transcriptLines, errs := sess.snapshotForSummary()
	detected := sess.DetectedBotName()

	var participants, realParticipants []protocol.SummaryParticipant
	for _, row := range rows {
		entry := roster.Entry{
			Name:         row.Name,
			OriginalName: row.OriginalName,
			IsBot:        row.IsBot,
			Role:         row.Role,
		}
		isBot := resolver.IsBot(entry, detected)
		if !isBot && !roster.IsValidParticipantName(row.Name) {
			continue
		}
		// Anonymous badge placeholders keep end detection honest but
		// have no place in the final roster.
		if roster.IsPlaceholderName(row.Name) {
			continue
		}

		p := protocol.SummaryParticipant{
			Name:         row.Name,
			OriginalName: row.OriginalName,
			IsBot:        isBot,
			Role:         row.Role,
			JoinTime:     row.FirstSeen,
			LeaveTime:    row.LeftAt,
		}
		lastSeen := row.LastSeenPresentAt
		if row.LeftAt != nil {
			lastSeen = *row.LeftAt
		}
		if !lastSeen.IsZero() && !row.FirstSeen.IsZero() {
			p.DurationSeconds = int(lastSeen.Sub(row.FirstSeen).Seconds())
		}

		participants = append(participants, p)
		if !isBot {
			realParticipants = append(realParticipants, p)
		}
	}

	transcript := strings.Join(transcriptLines, "\n")
	summary := protocol.MeetingSummary{
		MeetingID:            info.MeetingID,
		Platform:             info.Platform,
		SessionID:            info.SessionID,
		Status:               info.Status,
		CreatedAt:            info.CreatedAt,
		StartedAt:            info.StartedAt,
		EndedAt:              info.EndedAt,
		Participants:         participants,
		RealParticipants:     realParticipants,
		UniqueParticipants:   len(realParticipants),
		AudioChunks:          chunkCount,
		AudioDurationSeconds: chunkCount * chunkIntervalSeconds,
		Transcript:           transcript,
		TranscriptSummary:    truncate(transcript, transcriptSummaryLimit),
		Error:                info.Error,
		Errors:               errs,
	}
	if info.StartedAt != nil && info.EndedAt != nil {
		summary.DurationSeconds = int(info.EndedAt.Sub(*info.StartedAt).Seconds())
	}
	return summary
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
