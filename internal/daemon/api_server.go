package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
	"github.com/JohnFawkes/plex-servarr-sync/internal/history"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
	"github.com/JohnFawkes/plex-servarr-sync/internal/syncer"
)

const maxWebhookBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// webhookResponse is the JSON body returned to webhook callers.
type webhookResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Path   string `json:"path,omitempty"`
}

// statusResponse is the JSON body for the status endpoint.
type statusResponse struct {
	Running       bool            `json:"running"`
	WorkerAlive   bool            `json:"workerAlive"`
	QueueDepth    int             `json:"queueDepth"`
	InFlight      int             `json:"inFlight"`
	RecentHistory []history.Entry `json:"recentHistory"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/sonarr", srv.handleServarr("sonarr"))
	mux.HandleFunc("/webhook/radarr", srv.handleServarr("radarr"))
	mux.HandleFunc("/webhook/manual", basicAuth(cfg.Server.ManualUser, cfg.Server.ManualPass, srv.handleManual))
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/healthz", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// servarrEvent is the subset of the Sonarr/Radarr webhook payload the
// daemon consumes.
type servarrEvent struct {
	EventType string `json:"eventType"`
	Movie     struct {
		FolderPath string `json:"folderPath"`
	} `json:"movie"`
	Series struct {
		Path string `json:"path"`
	} `json:"series"`
}

func (s *apiServer) handleServarr(label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var event servarrEvent
		if err := decodeJSONBody(r, &event); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}

		if strings.EqualFold(event.EventType, "Test") {
			s.logger.Info("test event received",
				logging.String(logging.FieldLabel, label),
			)
			s.writeJSON(w, http.StatusOK, webhookResponse{Status: "test_success"})
			return
		}

		path := event.Movie.FolderPath
		if path == "" {
			path = event.Series.Path
		}
		s.logger.Info("webhook received",
			logging.String(logging.FieldLabel, label),
			logging.String(logging.FieldEventType, event.EventType),
			logging.String(logging.FieldPath, path),
		)
		s.admit(w, path, label)
	}
}

// manualRequest is the JSON form of the manual trigger payload; the form
// field variant uses the "path" key.
type manualRequest struct {
	Path string `json:"path"`
}

func (s *apiServer) handleManual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := ""
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req manualRequest
		if err := decodeJSONBody(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		path = req.Path
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		path = r.FormValue("path")
	}

	if strings.TrimSpace(path) == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Info("manual trigger received", logging.String(logging.FieldPath, path))
	s.admit(w, path, "manual")
}

// admit runs a path through intake and translates the admission into an
// HTTP response. Every outcome is a 200; callers distinguish by status.
func (s *apiServer) admit(w http.ResponseWriter, path, label string) {
	admission := s.daemon.intake.Enqueue(path, label)
	resp := webhookResponse{
		Status: string(admission.Decision),
		Reason: admission.Reason,
		Path:   admission.LibraryPath,
	}
	if admission.Decision == syncer.DecisionSkipped && admission.Reason == "queue full" {
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, statusResponse{
		Running:       status.Running,
		WorkerAlive:   status.WorkerAlive,
		QueueDepth:    status.QueueDepth,
		InFlight:      status.InFlight,
		RecentHistory: s.daemon.recorder.Recent(history.DefaultCapacity),
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSONBody(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
