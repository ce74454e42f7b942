package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/meetwatch/internal/audio"
	"github.com/nextlevelbuilder/meetwatch/internal/browser"
	"github.com/nextlevelbuilder/meetwatch/internal/bus"
	"github.com/nextlevelbuilder/meetwatch/internal/meeting"
	"github.com/nextlevelbuilder/meetwatch/internal/roster"
	"github.com/nextlevelbuilder/meetwatch/internal/telemetry"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

const selfNameSettle = 3 * time.Second

// runSession drives one session from created to a terminal state:
// allocate a profile and page, join, run the observation loops until
// the meeting ends, then summarize and release everything.
func runSession(ctx context.Context, svc Services, mgr *Manager, sess *Session) {
	log := slog.With("meeting_id", sess.MeetingID, "session_id", sess.SessionID)
	ctx, span := telemetry.StartSpan(ctx, "session.run")
	defer span.End()

	sess.markJoining()
	defer svc.Profiles.Release(sess.SessionID)

	profile, err := svc.Profiles.Allocate(sess.SessionID, "")
	if err != nil {
		sess.markFailed(fmt.Sprintf("profile allocation: %v", err))
		finishSession(svc, sess, 0)
		return
	}
	sess.setProfile(profile)

	page, release, err := svc.Pool.PageForProfile(ctx, profile)
	if err != nil {
		sess.markFailed(fmt.Sprintf("browser page: %v", err))
		finishSession(svc, sess, 0)
		return
	}
	defer release()

	flow, err := meeting.FlowFor(sess.Platform, sess.MeetingID, sess.SessionID, svc.Store)
	if err != nil {
		sess.markFailed(err.Error())
		finishSession(svc, sess, 0)
		return
	}

	joinCtx, cancelJoin := context.WithTimeout(ctx,
		time.Duration(svc.Config.Sessions.StartTimeoutSeconds)*time.Second)
	err = flow.Join(joinCtx, page, sess.MeetingURL)
	cancelJoin()
	if err != nil {
		var je *meeting.JoinError
		if errors.As(err, &je) && je.SnapshotPath != "" {
			sess.addError("join snapshot: " + je.SnapshotPath)
		}
		sess.markFailed(err.Error())
		log.Error("join failed", "error", err)
		finishSession(svc, sess, 0)
		return
	}

	sess.markInMeeting()
	svc.Bus.Broadcast(bus.Event{
		Name:      protocol.EventSessionJoined,
		Subject:   sess.MeetingID,
		Timestamp: time.Now().UTC(),
		Payload: protocol.SessionJoinedPayload{
			MeetingID: sess.MeetingID,
			Platform:  string(sess.Platform),
			SessionID: sess.SessionID,
		},
	})
	log.Info("session joined meeting")

	flow.EnableCaptions(ctx, page)

	extractor := &roster.Extractor{}
	resolver := roster.NewResolver(svc.Config.BotIdentifiers())

	if name := resolver.DetectSelfName(ctx, extractor, page, selfNameSettle); name != "" {
		sess.setDetectedBotName(name)
		log.Info("detected bot self-name", "name", name)
	}

	recorder := &audio.Recorder{
		MeetingID:  sess.MeetingID,
		SessionID:  sess.SessionID,
		Interval:   time.Duration(svc.Config.Audio.ChunkIntervalSeconds) * time.Second,
		SampleRate: svc.Config.Audio.SampleRate,
		Capture:    browser.NewCapturer(page).Read,
		Snapshot: func(ctx context.Context) []protocol.ParticipantSnapshot {
			return classifiedSnapshot(ctx, page, extractor, resolver, sess.DetectedBotName())
		},
		Diarizer: svc.Diarizer,
		Store:    svc.Store,
		Bus:      svc.Bus,
	}

	detector := &meeting.Detector{
		Flow:            flow,
		Extractor:       extractor,
		Resolver:        resolver,
		Snapshots:       svc.Store,
		MeetingID:       sess.MeetingID,
		SessionID:       sess.SessionID,
		DetectedBotName: sess.DetectedBotName,
	}

	// stopCtx is the shared stop signal for all observation loops.
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()

	var endReason meeting.EndReason
	g, loopCtx := errgroup.WithContext(stopCtx)
	g.Go(func() error {
		recorder.Run(loopCtx)
		return nil
	})
	g.Go(func() error {
		runRosterLoop(loopCtx, svc, sess, page, extractor, resolver, stop)
		return nil
	})
	g.Go(func() error {
		runCaptionsLoop(loopCtx, svc, sess, flow, page)
		return nil
	})
	g.Go(func() error {
		if reason := detector.Wait(loopCtx, page); reason != "" {
			endReason = reason
			log.Info("meeting over", "reason", reason)
		}
		stop()
		return nil
	})
	g.Wait()

	if ctx.Err() != nil && endReason == "" {
		sess.markFailed("cancelled: process shutdown")
	} else {
		sess.markEnded()
	}
	finishSession(svc, sess, recorder.ChunkCount())
}

// classifiedSnapshot extracts the roster and stamps bot flags.
func classifiedSnapshot(ctx context.Context, page browser.PageSurface, x *roster.Extractor, r *roster.Resolver, detectedBotName string) []protocol.ParticipantSnapshot {
	entries := x.Extract(ctx, page)
	out := make([]protocol.ParticipantSnapshot, 0, len(entries))
	for _, e := range entries {
		snap := e.Snapshot()
		snap.IsBot = r.IsBot(e, detectedBotName)
		out = append(out, snap)
	}
	return out
}

// runRosterLoop polls the roster, maintains the presence history, and
// publishes participant_update. It also runs the in-loop empty check:
// a positive read waits 15s, re-extracts, and only then stops the
// session.
func runRosterLoop(ctx context.Context, svc Services, sess *Session, page browser.PageSurface, x *roster.Extractor, r *roster.Resolver, stop context.CancelFunc) {
	interval := time.Duration(svc.Config.Sessions.RosterPollSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now().UTC()
		snapshot := classifiedSnapshot(ctx, page, x, r, sess.DetectedBotName())
		sess.ObserveRoster(snapshot, now)
		publishParticipantUpdate(svc, sess, now)

		if !meeting.IsMeetingEmpty(ctx, page, x, r, sess.DetectedBotName()) {
			continue
		}
		slog.Debug("roster loop sees empty meeting, confirming",
			"session_id", sess.SessionID)
		select {
		case <-ctx.Done():
			return
		case <-time.After(15 * time.Second):
		}
		if meeting.IsMeetingEmpty(ctx, page, x, r, sess.DetectedBotName()) {
			slog.Info("roster loop confirmed empty meeting", "session_id", sess.SessionID)
			stop()
			return
		}
	}
}

func publishParticipantUpdate(svc Services, sess *Session, now time.Time) {
	rows := sess.HistoryRows()
	records := make([]protocol.ParticipantRecord, 0, len(rows))
	real, bots := 0, 0
	for _, row := range rows {
		if row.LeftAt == nil {
			if row.IsBot {
				bots++
			} else {
				real++
			}
		}
		records = append(records, protocol.ParticipantRecord{
			Name:         row.Name,
			OriginalName: row.OriginalName,
			IsBot:        row.IsBot,
			Role:         row.Role,
			JoinTime:     row.FirstSeen,
			LeaveTime:    row.LeftAt,
		})
	}
	svc.Bus.Broadcast(bus.Event{
		Name:      protocol.EventParticipantUpdate,
		Subject:   sess.MeetingID,
		Timestamp: now,
		Payload: protocol.ParticipantUpdatePayload{
			MeetingID:    sess.MeetingID,
			SessionID:    sess.SessionID,
			Participants: records,
			RealCount:    real,
			BotCount:     bots,
			TotalCount:   real + bots,
			Timestamp:    now,
		},
	})
}

// runCaptionsLoop scrapes visible captions and appends new lines to
// the transcript. Best effort; scrape failures are silent.
func runCaptionsLoop(ctx context.Context, svc Services, sess *Session, flow meeting.Flow, page browser.PageSurface) {
	interval := time.Duration(svc.Config.Sessions.CaptionPollSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		scrapeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lines := flow.CaptionLines(scrapeCtx, page)
		cancel()
		if len(lines) > 0 {
			sess.AppendTranscript(lines)
		}
	}
}

// finishSession builds and persists the summary, emits the terminal
// event, and updates the chunk index.
func finishSession(svc Services, sess *Session, chunkCount int) {
	resolver := roster.NewResolver(svc.Config.BotIdentifiers())
	summary := BuildSummary(sess, resolver, chunkCount, svc.Config.Audio.ChunkIntervalSeconds)

	// The index consumes chunk events asynchronously; a mismatch here
	// means events were dropped or the index fell behind.
	if svc.Index != nil {
		if indexed, err := svc.Index.ChunkCount(sess.SessionID); err == nil && indexed != summary.AudioChunks {
			slog.Warn("chunk index disagrees with recorder",
				"session_id", sess.SessionID, "indexed", indexed, "recorded", summary.AudioChunks)
		}
	}

	if path, err := svc.Store.SaveSummary(sess.SessionID, summary); err != nil {
		slog.Error("summary write failed", "session_id", sess.SessionID, "error", err)
	} else {
		slog.Info("session summary saved", "session_id", sess.SessionID, "path", path,
			"status", summary.Status, "participants", summary.UniqueParticipants,
			"chunks", summary.AudioChunks)
	}

	svc.Bus.Broadcast(bus.Event{
		Name:      protocol.EventMeetingSummary,
		Subject:   sess.MeetingID,
		Timestamp: time.Now().UTC(),
		Payload:   summary,
	})
}
