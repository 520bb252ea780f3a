// Package bootstrap wires the stores, channel, and services shared by the
// binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tasknotify/internal/adapters/appconfig"
	"tasknotify/internal/adapters/memory"
	"tasknotify/internal/adapters/messaging"
	"tasknotify/internal/adapters/redis"
	"tasknotify/internal/channel"
	"tasknotify/internal/config"
	"tasknotify/internal/dispatch"
	"tasknotify/internal/logging"
	"tasknotify/internal/notify"
	"tasknotify/internal/ports"
	"tasknotify/internal/service"
	"tasknotify/internal/templates"
)

// Store is everything the services need from persistence.
type Store interface {
	ports.TaskRepository
	ports.DeliveryLog
	ports.ReminderLock
	ports.TaskScanner
}

// redisStore joins the Redis task store and scanner.
type redisStore struct {
	*redis.TaskStore
	*redis.Scanner
}

// Components holds the wired application.
type Components struct {
	Config   *config.AppConfig
	Logger   *slog.Logger
	Store    Store
	Catalog  *templates.Catalog
	Channel  *channel.Manager
	Binder   *notify.Binder
	Tasks    *service.TaskService
	Dispatch *service.DispatchService

	closers []func() error
}

// Build connects the store, loads notification config, and creates the
// services. The channel is connected when cfg.Channel.AutoConnect is set.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Components, error) {
	c := &Components{
		Config:  cfg,
		Logger:  logger,
		Catalog: templates.NewDefaultCatalog(),
	}

	if err := c.openStore(cfg, logger); err != nil {
		return nil, err
	}

	sender, err := newSender(ctx, cfg, logging.WithComponent(logger, "sender"))
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Channel = channel.NewManager(cfg.Channel.Name,
		channel.SimulatedConnector(cfg.Channel.HandshakeLatency),
		logging.WithComponent(logger, "channel"))
	dispatcher := dispatch.NewDispatcher(c.Channel, sender, logging.WithComponent(logger, "dispatcher"))

	c.Binder = notify.NewBinder(c.Catalog, dispatcher, logging.WithComponent(logger, "binder"),
		notify.WithOrganization(cfg.Organization))

	if cfg.AppConfig.Endpoint != "" {
		loader := appconfig.NewLoader(cfg.AppConfig, logging.WithComponent(logger, "config_loader"))
		if err := ApplyNotificationConfig(ctx, loader, c.Binder); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.Tasks = service.NewTaskService(service.TaskServiceOptions{
		Repository: c.Store,
		Deliveries: c.Store,
		Notifier:   c.Binder,
		Logger:     logging.WithComponent(logger, "tasks"),
	})
	c.Dispatch = service.NewDispatchService(c.Catalog, dispatcher, logging.WithComponent(logger, "dispatch"))

	if cfg.Channel.AutoConnect {
		if err := c.Channel.Connect(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("connect channel: %w", err)
		}
	}

	return c, nil
}

// ApplyNotificationConfig loads templates and bindings and installs them.
func ApplyNotificationConfig(ctx context.Context, loader ports.NotificationConfigLoader, binder *notify.Binder) error {
	notifCfg, err := loader.LoadNotificationConfig(ctx)
	if err != nil {
		return fmt.Errorf("load notification config: %w", err)
	}
	if err := binder.Apply(notifCfg); err != nil {
		return fmt.Errorf("apply notification config: %w", err)
	}
	return nil
}

func (c *Components) openStore(cfg *config.AppConfig, logger *slog.Logger) error {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store, tasks are lost on exit")
		c.Store = memory.NewStore()
		return nil
	}

	client, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	c.closers = append(c.closers, client.Close)

	logger.Info("connected to redis", "addr", cfg.Redis.Addr, "cluster", cfg.Redis.ClusterMode)

	c.Store = redisStore{
		TaskStore: redis.NewTaskStore(client, cfg.Worker.StateTTL),
		Scanner:   redis.NewScanner(client, cfg.Worker.ScanCount, logging.WithComponent(logger, "scanner")),
	}
	return nil
}

// Close releases the store connection.
func (c *Components) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

func newSender(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (ports.Sender, error) {
	if cfg.Channel.Sender != config.SenderWhatsApp {
		return messaging.NewSimulatedSender(messaging.SimulatedConfig{
			Latency:     cfg.Channel.SendLatency,
			SuccessRate: cfg.Channel.SuccessRate,
			Seed:        cfg.Channel.Seed,
		}, logger), nil
	}

	waCfg := messaging.WhatsAppConfig{
		APIEndpoint:   cfg.WhatsApp.APIEndpoint,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		STSEndpoint:   cfg.WhatsApp.STSEndpoint,
		Timeout:       10 * time.Second,
		MaxRetries:    cfg.WhatsApp.MaxRetries,
		RetryDelay:    cfg.WhatsApp.RetryDelay,
	}

	if cfg.WhatsApp.SecretName != "" {
		secrets, err := config.NewSecretsManagerClient(ctx)
		if err != nil {
			return nil, err
		}
		secret, err := secrets.GetWhatsAppSecret(ctx, cfg.WhatsApp.SecretName)
		if err != nil {
			return nil, err
		}
		waCfg.ClientID = secret.ClientID
		waCfg.ClientSecret = secret.ClientSecret
		logger.Info("loaded whatsapp credentials", "secret", cfg.WhatsApp.SecretName)
	}

	return messaging.NewWhatsAppSender(waCfg, logger), nil
}
