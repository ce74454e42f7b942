package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/meetwatch/internal/bus"
	"github.com/nextlevelbuilder/meetwatch/internal/config"
	"github.com/nextlevelbuilder/meetwatch/internal/logbuf"
	"github.com/nextlevelbuilder/meetwatch/internal/profiles"
	"github.com/nextlevelbuilder/meetwatch/internal/session"
	"github.com/nextlevelbuilder/meetwatch/internal/vault"
)

// Server exposes the admission API, observability endpoints, and the
// WebSocket event feed.
type Server struct {
	cfg       *config.Config
	scheduler *session.Scheduler
	manager   *session.Manager
	events    bus.Publisher
	logs      *logbuf.Buffer
	cookies   *vault.Store       // optional
	profiles  *profiles.Registry // optional

	upgrader websocket.Upgrader
	limiter  *rate.Limiter

	mu      sync.RWMutex
	clients map[string]*wsClient

	httpServer *http.Server
	mux        *http.ServeMux
}

func NewServer(cfg *config.Config, sched *session.Scheduler, mgr *session.Manager, events bus.Publisher, logs *logbuf.Buffer, cookies *vault.Store, reg *profiles.Registry) *Server {
	s := &Server{
		cfg:       cfg,
		scheduler: sched,
		manager:   mgr,
		events:    events,
		logs:      logs,
		cookies:   cookies,
		profiles:  reg,
		clients:   make(map[string]*wsClient),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	// rate_limit_rpm <= 0 disables admission throttling.
	if rpm := cfg.Server.RateLimitRPM; rpm > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 5)
	}
	return s
}

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/join-meeting", s.handleJoinMeeting)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/logs", s.handleLogs)
	mux.HandleFunc("/logs/clear", s.handleLogsClear)
	mux.HandleFunc("/cookies/status", s.handleCookieStatus)
	mux.HandleFunc("/profiles", s.handleProfiles)

	s.mux = mux
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("api server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

type joinRequest struct {
	MeetingID  string `json:"meeting_id"`
	MeetingURL string `json:"meeting_url"`
	Platform   string `json:"platform"`
}

func (s *Server) handleJoinMeeting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "POST required")
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many admission requests")
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_MEETING_URL", "malformed request body")
		return
	}
	if req.MeetingID == "" {
		req.MeetingID = uuid.NewString()
	}

	info, err := s.scheduler.Enqueue(req.MeetingID, req.Platform, req.MeetingURL)
	if err != nil {
		if errors.Is(err, session.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "INVALID_MEETING_URL", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": info.SessionID,
		"status":     "queued",
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}
	q := r.URL.Query()
	limit := 200
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	entries := s.logs.Filtered(q.Get("meeting_id"), q.Get("session_id"), q.Get("level"), limit)
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "POST required")
		return
	}
	if s.logs != nil {
		s.logs.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleCookieStatus(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]vault.Status)
	if s.cookies != nil {
		for _, platform := range []string{"gmeet", "teams"} {
			out[platform] = s.cookies.Status(platform)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	var out []profiles.Status
	if s.profiles != nil {
		for _, name := range s.profiles.List() {
			out = append(out, s.profiles.Status(name))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// StartTestServer listens on a random local port and returns the
// address plus a start function. Used by integration tests.
func StartTestServer(s *Server, ctx context.Context) (addr string, start func()) {
	mux := s.BuildMux()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("listen: " + err.Error())
	}

	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpServer.Shutdown(shutdownCtx)
		}()
		s.httpServer.Serve(ln)
	}
	return addr, start
}
