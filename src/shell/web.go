package shell

import (
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/logging"
	"github.com/Protocol-Lattice/research-agent/src/metrics"
	"github.com/Protocol-Lattice/research-agent/src/research"
	"github.com/Protocol-Lattice/research-agent/src/session"
)

// SessionCookie carries the web chat session id.
const SessionCookie = "researchbot_session"

const maxRequestBytes = 64 << 10

//go:embed index.html
var indexHTML []byte

// WebOption configures the web handler.
type WebOption func(*Web)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) WebOption {
	return func(w *Web) { w.metricsHandler = h }
}

func WithWebLogger(l logging.Logger) WebOption {
	return func(w *Web) { w.logger = l }
}

func WithWebMetrics(r *metrics.Recorder) WebOption {
	return func(w *Web) { w.metrics = r }
}

// Web serves the chat UI and its JSON API. Each browser session gets its own
// history; turns within one session run one at a time.
type Web struct {
	shell          *Shell
	logger         logging.Logger
	metrics        *metrics.Recorder
	metricsHandler http.Handler
	mux            *http.ServeMux

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock serializes turns of one session. It is dropped from Web.locks
// once no request holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewWeb(shell *Shell, opts ...WebOption) *Web {
	w := &Web{
		shell:  shell,
		logger: logging.NewNop(),
		locks:  make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(w)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", w.handleIndex)
	mux.HandleFunc("POST /api/chat", w.handleChat)
	mux.HandleFunc("GET /api/history", w.handleHistory)
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	})
	if w.metricsHandler != nil {
		mux.Handle("GET /metrics", w.metricsHandler)
	}
	w.mux = mux
	return w
}

func (w *Web) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.mux.ServeHTTP(rw, r)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply     string           `json:"reply,omitempty"`
	Result    *research.Result `json:"result,omitempty"`
	Exit      bool             `json:"exit,omitempty"`
	Error     string           `json:"error,omitempty"`
	Raw       string           `json:"raw,omitempty"`
	SaveError string           `json:"save_error,omitempty"`
}

func (w *Web) handleIndex(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = rw.Write(indexHTML)
}

func (w *Web) handleChat(rw http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(rw, http.StatusBadRequest, chatResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(rw, http.StatusBadRequest, chatResponse{Error: "message is required"})
		return
	}

	id, ok := currentSession(r)
	if !ok {
		id = w.startSession(rw)
	}
	unlock := w.lock(id)
	defer unlock()

	turn, err := w.shell.Turn(r.Context(), id, req.Message)
	if err != nil {
		var rtErr *RuntimeError
		status := http.StatusInternalServerError
		if errors.As(err, &rtErr) {
			status = http.StatusBadGateway
		}
		writeJSON(rw, status, chatResponse{Error: err.Error()})
		return
	}

	switch {
	case turn.Exit:
		if err := w.shell.Reset(r.Context(), id); err != nil {
			w.logger.WithError(err).Warn("failed to clear session", map[string]any{"session": id})
		}
		w.metrics.SessionEnded()
		http.SetCookie(rw, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
		writeJSON(rw, http.StatusOK, chatResponse{Reply: goodbye, Exit: true})
	case turn.ParseErr != nil:
		writeJSON(rw, http.StatusOK, chatResponse{Error: "Error parsing response. Showing raw response.", Raw: turn.Raw})
	default:
		resp := chatResponse{Reply: turn.Rendered, Result: turn.Result}
		if turn.SaveErr != nil {
			resp.SaveError = turn.SaveErr.Error()
		}
		writeJSON(rw, http.StatusOK, resp)
	}
}

func (w *Web) handleHistory(rw http.ResponseWriter, r *http.Request) {
	id, ok := currentSession(r)
	if !ok {
		writeJSON(rw, http.StatusOK, map[string]any{"session": "", "messages": []agent.Message{}})
		return
	}
	history, err := w.shell.History(r.Context(), id)
	if err != nil {
		writeJSON(rw, http.StatusInternalServerError, chatResponse{Error: err.Error()})
		return
	}
	if history == nil {
		history = []agent.Message{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"session": id, "messages": history})
}

// currentSession returns the id carried by a well-formed session cookie.
func currentSession(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || !session.ValidID(c.Value) {
		return "", false
	}
	return c.Value, true
}

// startSession issues a new session cookie. Only chat turns start sessions.
func (w *Web) startSession(rw http.ResponseWriter) string {
	id := session.NewID()
	http.SetCookie(rw, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.metrics.SessionStarted()
	return id
}

func (w *Web) lock(id string) func() {
	w.locksMu.Lock()
	l, ok := w.locks[id]
	if !ok {
		l = &sessionLock{}
		w.locks[id] = l
	}
	l.refs++
	w.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		w.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(w.locks, id)
		}
		w.locksMu.Unlock()
	}
}

func (w *Web) pendingSessions() int {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()
	return len(w.locks)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
