package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nextlevelbuilder/meetwatch/internal/browser"
	"github.com/nextlevelbuilder/meetwatch/internal/bus"
	"github.com/nextlevelbuilder/meetwatch/internal/config"
	"github.com/nextlevelbuilder/meetwatch/internal/diarize"
	"github.com/nextlevelbuilder/meetwatch/internal/meeting"
	"github.com/nextlevelbuilder/meetwatch/internal/profiles"
	"github.com/nextlevelbuilder/meetwatch/internal/storage"
	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

// ErrInvalidURL rejects admission; the API maps it to a 400.
var ErrInvalidURL = errors.New("invalid meeting URL")

const queueCapacity = 256

// Services bundles everything a session needs. Assembled once at
// startup.
type Services struct {
	Config   *config.Config
	Bus      bus.Publisher
	Store    storage.ArtifactStore
	Index    *storage.Index // optional
	Profiles *profiles.Registry
	Pool     *browser.Pool
	Diarizer *diarize.Analyzer
}

// Scheduler admits sessions, queues them FIFO, and dispatches them to
// runners under a concurrency cap.
type Scheduler struct {
	svc   Services
	mgr   *Manager
	queue chan *Session
	sem   *semaphore.Weighted
	wg    sync.WaitGroup
	run   func(ctx context.Context, svc Services, mgr *Manager, sess *Session)
}

func NewScheduler(svc Services, mgr *Manager) *Scheduler {
	max := svc.Config.Sessions.MaxConcurrent
	if max <= 0 {
		max = 1
	}
	return &Scheduler{
		svc:   svc,
		mgr:   mgr,
		queue: make(chan *Session, queueCapacity),
		sem:   semaphore.NewWeighted(int64(max)),
		run:   runSession,
	}
}

// Enqueue validates and admits a meeting. Returns immediately; the
// session starts when a concurrency permit frees up.
func (sch *Scheduler) Enqueue(meetingID, platformName, meetingURL string) (Info, error) {
	platform, err := meeting.ParsePlatform(platformName)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if err := meeting.ValidateURL(platform, meetingURL); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	sess := New(meetingID, platform, meetingURL, uuid.NewString())
	select {
	case sch.queue <- sess:
	default:
		return Info{}, errors.New("session queue is full")
	}
	sch.mgr.put(sess)

	sch.svc.Bus.Broadcast(bus.Event{
		Name:      protocol.EventBotJoined,
		Subject:   meetingID,
		Timestamp: time.Now().UTC(),
		Payload: protocol.BotJoinedPayload{
			MeetingID: meetingID,
			Platform:  string(platform),
			SessionID: sess.SessionID,
			Timestamp: time.Now().UTC(),
		},
	})
	slog.Info("session queued",
		"meeting_id", meetingID, "session_id", sess.SessionID, "platform", platform)
	return sess.Info(), nil
}

// Run dispatches queued sessions until ctx is cancelled. Each runner
// holds one permit for its whole lifetime.
func (sch *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sess := <-sch.queue:
			if err := sch.sem.Acquire(ctx, 1); err != nil {
				sess.markFailed("cancelled before start")
				return
			}
			sch.wg.Add(1)
			go func(sess *Session) {
				defer sch.wg.Done()
				defer sch.sem.Release(1)
				sch.run(ctx, sch.svc, sch.mgr, sess)
			}(sess)
		}
	}
}

// Drain waits for live runners to finish within the grace window.
// Sessions still running afterwards are marked failed.
func (sch *Scheduler) Drain(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		sch.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(grace):
	}
	for _, sess := range sch.mgr.Live() {
		sess.markFailed("cancelled: shutdown grace window elapsed")
		slog.Warn("session force-cancelled on shutdown", "session_id", sess.SessionID)
	}
}
