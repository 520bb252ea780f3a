package config

import (
	"errors"
	"fmt"

	"tasknotify/internal/domain"
	"tasknotify/internal/lifecycle"
)

// Validate validates the application configuration.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis address is required"))
	}

	if c.Redis.DialTimeout <= 0 {
		errs = append(errs, errors.New("redis dial timeout must be positive"))
	}

	if len(c.Redis.SentinelAddrs) > 0 && c.Redis.MasterName == "" {
		errs = append(errs, errors.New("redis master name is required with sentinel addresses"))
	}

	if c.Worker.ScanCount <= 0 {
		errs = append(errs, errors.New("worker scan count must be positive"))
	}

	if c.Worker.StateTTL < 0 {
		errs = append(errs, errors.New("task state TTL must not be negative"))
	}

	if c.Worker.ReminderWindow < 0 {
		errs = append(errs, errors.New("reminder window must not be negative"))
	}

	if c.Worker.Interval <= 0 {
		errs = append(errs, errors.New("reminder interval must be positive"))
	}

	if c.Channel.Name == "" {
		errs = append(errs, errors.New("channel name is required"))
	}

	switch c.Channel.Sender {
	case SenderSimulated:
		if c.Channel.SuccessRate <= 0 || c.Channel.SuccessRate > 1 {
			errs = append(errs, errors.New("channel success rate must be in (0, 1]"))
		}
	case SenderWhatsApp:
		if c.WhatsApp.APIEndpoint == "" {
			errs = append(errs, errors.New("whatsapp api endpoint is required"))
		}
		if c.WhatsApp.PhoneNumberID == "" {
			errs = append(errs, errors.New("whatsapp phone number id is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown channel sender %q", c.Channel.Sender))
	}

	if c.Store != StoreRedis && c.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store))
	}

	if c.WhatsApp.MaxRetries < 0 {
		errs = append(errs, errors.New("whatsapp max retries must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// ValidateNotificationConfig validates a notification document.
func ValidateNotificationConfig(cfg *NotificationConfig) error {
	var errs []error

	seen := make(map[string]bool, len(cfg.Templates))
	for i, t := range cfg.Templates {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("templates[%d].id is required", i))
		} else if seen[t.ID] {
			errs = append(errs, fmt.Errorf("templates[%d].id %q is duplicated", i, t.ID))
		}
		seen[t.ID] = true

		if t.Body == "" {
			errs = append(errs, fmt.Errorf("templates[%d].body is required", i))
		}
		if !t.Category.Valid() {
			errs = append(errs, fmt.Errorf("templates[%d].category %q is invalid", i, t.Category))
		}
	}

	for event, b := range cfg.Bindings {
		switch {
		case event == "":
			errs = append(errs, errors.New("bindings contain an empty event name"))
		case !lifecycle.Event(event).Valid():
			errs = append(errs, fmt.Errorf("bindings.%s is not a known event", event))
		}
		if b.Template == "" {
			continue
		}
		switch {
		case !b.Recipients.Valid():
			errs = append(errs, fmt.Errorf("bindings.%s.recipients %q is invalid", event, b.Recipients))
		case b.Recipients == RecipientNone:
			errs = append(errs, fmt.Errorf("bindings.%s.recipients is required with a template", event))
		}
	}

	if len(errs) > 0 {
		return &domain.ConfigError{
			ConfigName: "notification",
			Err:        fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...)),
		}
	}

	return nil
}
