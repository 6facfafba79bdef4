package unix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/dereulenspiegel/pluginupdater"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type contextKey string

// Coordinator is the part of the update coordinator exposed on the socket.
type Coordinator interface {
	CheckForUpdate(ctx context.Context) (*pluginupdater.ResolvedUpdate, error)
	DescribePlugin(ctx context.Context) (*pluginupdater.ResolvedUpdate, error)
	ResolveChangelog(ctx context.Context) string
	IsNewer(update *pluginupdater.ResolvedUpdate) bool
	RelocateInstalledArtifact(result pluginupdater.InstallResult, pluginFile string) (pluginupdater.InstallResult, error)
}

type relocateRequest struct {
	Plugin string                      `json:"plugin"`
	Result pluginupdater.InstallResult `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SocketServer serves the update information as JSON over HTTP on a unix socket.
type SocketServer struct {
	coordinator Coordinator
	logger      logrus.FieldLogger

	socketPath string
	server     *http.Server
}

func New(coordinator Coordinator, conf *viper.Viper) (*SocketServer, error) {
	enabled := conf.GetBool("enabled")
	if !enabled {
		return nil, errors.New("unix socket server disabled")
	}
	socketPath := conf.GetString("socketPath")
	if socketPath == "" {
		return nil, errors.New("no socket path configured")
	}

	s := &SocketServer{
		socketPath:  socketPath,
		coordinator: coordinator,
		logger:      logrus.WithField("component", "unixSocketServer").WithField("socketPath", socketPath),
	}
	return s, nil
}

func (s *SocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/update", s.handleUpdate)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/changelog", s.handleChangelog)
	mux.HandleFunc("/relocate", s.handleRelocate)
	return mux
}

func (s *SocketServer) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return context.WithValue(ctx, contextKey("source"), s.socketPath)
		},
	}

	// a socket left behind by an unclean shutdown blocks listening
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale unix socket %s: %w", s.socketPath, err)
	}
	unixListener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on unix socket %s: %w", s.socketPath, err)
	}
	s.server = httpServer
	go s.listen(unixListener)
	return nil
}

func (s *SocketServer) Close() error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*15)
	defer shutdownCancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *SocketServer) listen(l net.Listener) {
	if err := s.server.Serve(l); err != http.ErrServerClosed {
		s.logger.WithError(err).Error("failed to serve on unix socket")
	}
}

func (s *SocketServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	update, err := s.coordinator.CheckForUpdate(r.Context())
	if errors.Is(err, pluginupdater.ErrNoUpdateAvailable) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	if !s.coordinator.IsNewer(update) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, update)
}

func (s *SocketServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	info, err := s.coordinator.DescribePlugin(r.Context())
	if errors.Is(err, pluginupdater.ErrNoUpdateAvailable) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *SocketServer) handleChangelog(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, s.coordinator.ResolveChangelog(r.Context()))
}

func (s *SocketServer) handleRelocate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req relocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.coordinator.RelocateInstalledArtifact(req.Result, req.Plugin)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func (s *SocketServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.WithError(err).Warn("failed to write response")
	}
}

func (s *SocketServer) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.WithError(err).WithField("status", status).Warn("request failed")
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
