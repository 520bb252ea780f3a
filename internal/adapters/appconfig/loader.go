package appconfig

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"tasknotify/internal/config"
	"tasknotify/internal/templates"
)

// Loader implements ports.NotificationConfigLoader using AWS AppConfig.
type Loader struct {
	httpClient *http.Client
	settings   config.AppConfigSettings
	logger     *slog.Logger
	cached     *config.NotificationConfig
	mu         sync.RWMutex
}

// NewLoader creates a new AppConfig loader.
func NewLoader(cfg config.AppConfigSettings, logger *slog.Logger) *Loader {
	return &Loader{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		settings: cfg,
		logger:   logger,
	}
}

// LoadNotificationConfig loads the templates and bindings document. The
// result is cached until ClearCache.
func (l *Loader) LoadNotificationConfig(ctx context.Context) (*config.NotificationConfig, error) {
	l.mu.RLock()
	if l.cached != nil {
		cached := l.cached
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if l.cached != nil {
		return l.cached, nil
	}

	data, err := l.loadProfile(ctx, l.settings.Profile)
	if err != nil {
		return nil, fmt.Errorf("load notification config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	l.cached = cfg
	l.logger.Debug("loaded notification config",
		"profile", l.settings.Profile,
		"templates", len(cfg.Templates),
		"bindings", len(cfg.Bindings),
	)

	return cfg, nil
}

// Parse decodes and validates a notification document. Templates that do not
// list their variables require every placeholder in their body.
func Parse(data []byte) (*config.NotificationConfig, error) {
	var cfg config.NotificationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse notification config: %w", err)
	}

	for i := range cfg.Templates {
		if len(cfg.Templates[i].RequiredVariables) == 0 {
			cfg.Templates[i].RequiredVariables = templates.Placeholders(cfg.Templates[i].Body)
		}
	}

	if err := config.ValidateNotificationConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadProfile fetches a configuration profile. With application and
// environment ids it uses the AppConfig agent path, otherwise a plain
// "<endpoint>/<profile>.yaml" like the local mock serves.
func (l *Loader) loadProfile(ctx context.Context, profile string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s.yaml", l.settings.Endpoint, profile)
	if l.settings.ApplicationID != "" && l.settings.EnvironmentID != "" {
		url = fmt.Sprintf("%s/applications/%s/environments/%s/configurations/%s",
			l.settings.Endpoint, l.settings.ApplicationID, l.settings.EnvironmentID, profile)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			l.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config not found: %s (status %d)", profile, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ClearCache drops the cached document so the next load refetches it.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}
