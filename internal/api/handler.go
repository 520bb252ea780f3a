// Package api serves the task and dispatch commands as API Gateway proxy
// routes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"tasknotify/internal/api/models"
	"tasknotify/internal/channel"
	"tasknotify/internal/domain"
	"tasknotify/internal/service"
)

// Handler routes API Gateway requests to the services.
type Handler struct {
	tasks    *service.TaskService
	dispatch *service.DispatchService
	channel  *channel.Manager
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(tasks *service.TaskService, dispatch *service.DispatchService, conn *channel.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		tasks:    tasks,
		dispatch: dispatch,
		channel:  conn,
		logger:   logger,
	}
}

// Handle routes API Gateway requests to the appropriate handler.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.logger.Info("request received",
		"path", req.Path,
		"method", req.HTTPMethod)

	parts := strings.Split(strings.Trim(req.Path, "/"), "/")
	method := req.HTTPMethod

	switch {
	case match(parts, "tasks") && method == http.MethodPost:
		return h.handleAssign(ctx, req)
	case match(parts, "tasks", "*") && method == http.MethodGet:
		return h.handleGetTask(ctx, parts[1])
	case match(parts, "tasks", "*", "deliveries") && method == http.MethodGet:
		return h.handleDeliveries(ctx, parts[1])
	case match(parts, "tasks", "*", "*") && method == http.MethodPost:
		return h.handleTaskAction(ctx, parts[1], parts[2], req)
	case match(parts, "tasks", "*", "documents", "*", "review") && method == http.MethodPost:
		return h.handleReviewDocument(ctx, parts[1], parts[3], req)
	case match(parts, "deliveries", "*") && method == http.MethodGet:
		return h.handleDeliveryStatus(ctx, parts[1])
	case match(parts, "dispatch") && method == http.MethodPost:
		return h.handleDispatch(ctx, req)
	case match(parts, "templates") && method == http.MethodGet:
		return h.handleListTemplates(req)
	case match(parts, "templates") && method == http.MethodPost:
		return h.handleCreateTemplate(req)
	case match(parts, "channel") && method == http.MethodGet:
		return h.channelResponse(), nil
	case match(parts, "channel", "connect") && method == http.MethodPost:
		return h.handleConnect(ctx)
	case match(parts, "channel", "disconnect") && method == http.MethodPost:
		h.channel.Disconnect()
		return h.channelResponse(), nil
	default:
		h.logger.Warn("route not found",
			"path", req.Path,
			"method", req.HTTPMethod)
		return models.NewErrorResponse(http.StatusNotFound, "route not found"), nil
	}
}

// match reports whether path segments equal pattern, where "*" matches any
// non-empty segment.
func match(parts []string, pattern ...string) bool {
	if len(parts) != len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p == "*" {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if parts[i] != p {
			return false
		}
	}
	return true
}

// decode parses a JSON body. An empty body leaves v untouched.
func decode(req events.APIGatewayProxyRequest, v any) error {
	if strings.TrimSpace(req.Body) == "" {
		return nil
	}
	return json.Unmarshal([]byte(req.Body), v)
}

// errorResponse maps domain errors to HTTP statuses.
func (h *Handler) errorResponse(err error) events.APIGatewayProxyResponse {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		return models.NewErrorResponse(status, "internal error")
	}
	h.logger.Warn("request rejected", "status", status, "error", err)
	return models.NewErrorResponse(status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrDuplicateTemplateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptySubmission),
		errors.Is(err, domain.ErrMissingReason),
		errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, domain.ErrUnknownTemplate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrChannelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
