package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tasknotify/internal/adapters/appconfig"
	"tasknotify/internal/logging"
)

const (
	defaultPort       = "2772"
	defaultConfigsDir = "/configs"
)

// Server serves notification documents from a directory, both as
// "/<profile>.yaml" and on the AppConfig agent path.
type Server struct {
	configsDir string
	logger     *slog.Logger
}

// NewServer creates a mock server.
func NewServer(configsDir string, logger *slog.Logger) *Server {
	return &Server{
		configsDir: configsDir,
		logger:     logger,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.URL.Path == "/health" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	filename, ok := profileFile(r.URL.Path)
	if !ok {
		s.logger.Warn("invalid config path", "path", r.URL.Path)
		http.Error(w, "invalid config path", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.configsDir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("config file not found", "filename", filename)
			http.NotFound(w, r)
			return
		}
		s.logger.Error("failed to read config file", "filename", filename, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Documents that would be rejected by the loader are refused here too.
	if _, err := appconfig.Parse(data); err != nil {
		s.logger.Error("config file is invalid", "filename", filename, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(data)

	s.logger.Info("config file served",
		"filename", filename,
		"size", len(data),
		"duration", time.Since(start),
	)
}

// profileFile maps a request path to a YAML file name in the configs dir.
func profileFile(path string) (string, bool) {
	path = strings.TrimPrefix(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return "", false
	}

	// /applications/{app}/environments/{env}/configurations/{profile}
	parts := strings.Split(path, "/")
	if len(parts) == 6 && parts[0] == "applications" && parts[2] == "environments" && parts[4] == "configurations" {
		path = parts[5] + ".yaml"
	}

	if strings.Contains(path, "/") {
		return "", false
	}
	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		return "", false
	}
	return path, true
}

func main() {
	logger := logging.New(logging.DefaultConfig())

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	configsDir := os.Getenv("CONFIGS_DIR")
	if configsDir == "" {
		configsDir = defaultConfigsDir
	}

	if _, err := os.Stat(configsDir); err != nil {
		logger.Error("configs directory is not readable", "path", configsDir, "error", err)
		os.Exit(1)
	}

	logger.Info("starting appconfig mock server", "port", port, "configs_dir", configsDir)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewServer(configsDir, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
