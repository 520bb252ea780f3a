package service

import (
	"context"
	"fmt"
	"log/slog"

	"tasknotify/internal/domain"
	"tasknotify/internal/notify"
	"tasknotify/internal/templates"
)

// DispatchRequest describes an ad-hoc bulk send of one template.
type DispatchRequest struct {
	TemplateID string            `json:"template_id"`
	Variables  map[string]string `json:"variables"`
	Recipients []string          `json:"recipients"`
	Priority   domain.Priority   `json:"priority"`
}

// StatusLookup finds where a previously dispatched message is now.
type StatusLookup interface {
	DeliveryStatus(ctx context.Context, deliveryID string) (domain.DeliveryStatus, error)
}

// DispatchService renders a template once and sends it to many recipients.
type DispatchService struct {
	catalog *templates.Catalog
	sender  notify.BatchSender
	logger  *slog.Logger
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(catalog *templates.Catalog, sender notify.BatchSender, logger *slog.Logger) *DispatchService {
	return &DispatchService{
		catalog: catalog,
		sender:  sender,
		logger:  logger,
	}
}

// Dispatch sends the rendered template to every recipient in order.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) ([]domain.DispatchResult, error) {
	tmpl, err := s.catalog.Get(req.TemplateID)
	if err != nil {
		return nil, err
	}

	body, err := templates.Render(tmpl, req.Variables)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	msgs := make([]domain.RenderedMessage, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		msgs = append(msgs, domain.RenderedMessage{
			Recipient: r,
			Body:      body,
			Category:  tmpl.Category,
			Priority:  priority,
		})
	}

	results, err := s.sender.SendAll(ctx, msgs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk dispatch finished",
		"template_id", tmpl.ID,
		"recipients", len(msgs),
		"succeeded", domain.CountSucceeded(results),
	)

	return results, nil
}

// DeliveryStatus asks the sender for the current state of a delivery.
func (s *DispatchService) DeliveryStatus(ctx context.Context, deliveryID string) (domain.DeliveryStatus, error) {
	lookup, ok := s.sender.(StatusLookup)
	if !ok {
		return domain.DeliveryStatus{}, fmt.Errorf("delivery %s: %w", deliveryID, domain.ErrNotFound)
	}
	status, err := lookup.DeliveryStatus(ctx, deliveryID)
	if err != nil {
		return domain.DeliveryStatus{}, err
	}
	s.logger.Debug("delivery status", "delivery_id", deliveryID, "state", status.State)
	return status, nil
}

// Templates lists catalog templates, optionally filtered by category.
func (s *DispatchService) Templates(category domain.Category) []templates.Template {
	if category == "" {
		return s.catalog.List()
	}
	return s.catalog.ListByCategory(category)
}

// CreateTemplate adds a custom template with a generated id.
func (s *DispatchService) CreateTemplate(name string, category domain.Category, body string, variables []string) (templates.Template, error) {
	return s.catalog.Create(name, category, body, variables)
}
