package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/internal/version"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

const maxBodyBytes = 16 << 10

// Dispatcher sends intents to the authority.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent) error
	SubmitCountdown(ctx context.Context, text string) (bool, error)
}

// StateReader exposes the mirrored snapshot.
type StateReader interface {
	Current() (schema.Snapshot, bool)
}

// Server serves the HTTP API.
type Server struct {
	cfg        Config
	state      StateReader
	dispatcher Dispatcher
	hub        *Hub
	basePath   string
	baseCtx    context.Context
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, state StateReader, dispatcher Dispatcher, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(cfg.HistorySize, nil)
	}
	return &Server{
		cfg:        cfg,
		state:      state,
		dispatcher: dispatcher,
		hub:        hub,
		basePath:   normalizeBasePath(cfg.BasePath),
		baseCtx:    context.Background(),
	}
}

// SetBaseContext sets the parent context of fire-and-forget commands.
func (s *Server) SetBaseContext(ctx context.Context) {
	if s == nil || ctx == nil {
		return
	}
	s.baseCtx = ctx
}

// Hub returns the stream hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.HandleFunc("POST /api/intents", s.handleIntent)
	mux.HandleFunc("POST /api/match", s.handleMatch)
	mux.HandleFunc("POST /api/countdown", s.handleCountdown)

	var handler http.Handler = mux
	if len(s.cfg.AllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Last-Event-ID", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
		})
		handler = c.Handler(mux)
	}
	handler = withRequestLogging(handler)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	connected, lastErr := s.hub.Channel()
	_, ok := s.state.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   version.Describe().String(),
		"connected": connected,
		"error":     lastErr,
		"snapshot":  ok,
		"streams":   s.hub.Subscribers(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.state.Current()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no snapshot received yet"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type intentRequest struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log := pslog.Ctx(r.Context()).With("action", req.Action)
	in, ok := intent.Parse(req.Action, req.Value)
	if !ok {
		log.Debug("http intent ignored", "value", req.Value)
		writeJSON(w, http.StatusAccepted, map[string]any{"ignored": true})
		return
	}
	if _, isCountdown := in.(intent.SetCountdown); isCountdown {
		s.submitCountdown(w, r, req.Value)
		return
	}
	if err := s.dispatcher.Dispatch(s.commandContext(r), in); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"action": in.Action()})
}

type matchRequest struct {
	Local    string `json:"local"`
	Visit    string `json:"visit"`
	GameType string `json:"game_type"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in := intent.NewCreateMatch(req.Local, req.Visit, req.GameType)
	if err := s.dispatcher.Dispatch(s.commandContext(r), in); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"action":    in.Action(),
		"local":     in.Local,
		"visit":     in.Visit,
		"game_type": in.GameType,
	})
}

type countdownRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	var req countdownRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.submitCountdown(w, r, req.Text)
}

func (s *Server) submitCountdown(w http.ResponseWriter, r *http.Request, text string) {
	accepted, err := s.dispatcher.SubmitCountdown(r.Context(), text)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": accepted})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := pslog.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe, upto := s.hub.Subscribe()
	defer unsubscribe()

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	if snap, ok := s.state.Current(); ok {
		_ = writeSSEvent(w, StreamEvent{
			Type:      EventSnapshot,
			Snapshot:  &snap,
			Timestamp: time.Now(),
		})
	}
	replayCount := 0
	if lastID > 0 && lastID < upto {
		replay := s.hub.Replay(lastID, upto)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, event)
		}
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) commandContext(r *http.Request) context.Context {
	return pslog.ContextWithLogger(s.baseCtx, pslog.Ctx(r.Context()))
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

var _ Dispatcher = (*core.Dispatcher)(nil)
