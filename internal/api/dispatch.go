package api

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"tasknotify/internal/api/models"
	"tasknotify/internal/domain"
	"tasknotify/internal/service"
)

// handleDispatch handles POST /dispatch.
func (h *Handler) handleDispatch(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var dispatchReq models.DispatchRequest
	if err := decode(req, &dispatchReq); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	if err := dispatchReq.Validate(); err != nil {
		h.logger.Warn("validation failed", "error", err)
		return models.NewErrorResponse(http.StatusBadRequest, err.Error()), nil
	}

	results, err := h.dispatch.Dispatch(ctx, service.DispatchRequest{
		TemplateID: dispatchReq.TemplateID,
		Variables:  dispatchReq.Variables,
		Recipients: dispatchReq.Recipients,
		Priority:   dispatchReq.Priority,
	})
	if err != nil {
		return h.errorResponse(err), nil
	}

	succeeded := domain.CountSucceeded(results)
	return models.NewSuccessResponse(http.StatusOK, models.DispatchResponse{
		Results:   results,
		Succeeded: succeeded,
		Failed:    len(results) - succeeded,
	}), nil
}

// handleDeliveryStatus handles GET /deliveries/{id}.
func (h *Handler) handleDeliveryStatus(ctx context.Context, deliveryID string) (events.APIGatewayProxyResponse, error) {
	status, err := h.dispatch.DeliveryStatus(ctx, deliveryID)
	if err != nil {
		return h.errorResponse(err), nil
	}
	return models.NewSuccessResponse(http.StatusOK, status), nil
}

// handleListTemplates handles GET /templates?category=...
func (h *Handler) handleListTemplates(req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	category := domain.Category(req.QueryStringParameters["category"])
	if category != "" && !category.Valid() {
		return models.NewErrorResponse(http.StatusBadRequest, "unknown category"), nil
	}
	return models.NewSuccessResponse(http.StatusOK, h.dispatch.Templates(category)), nil
}

// handleCreateTemplate handles POST /templates.
func (h *Handler) handleCreateTemplate(req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var tmplReq models.TemplateRequest
	if err := decode(req, &tmplReq); err != nil {
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), nil
	}
	if err := tmplReq.Validate(); err != nil {
		return models.NewErrorResponse(http.StatusBadRequest, err.Error()), nil
	}

	tmpl, err := h.dispatch.CreateTemplate(tmplReq.Name, tmplReq.Category, tmplReq.Body, tmplReq.Variables)
	if err != nil {
		return h.errorResponse(err), nil
	}
	return models.NewSuccessResponse(http.StatusCreated, tmpl), nil
}

// handleConnect handles POST /channel/connect.
func (h *Handler) handleConnect(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	if err := h.channel.Connect(ctx); err != nil {
		return h.errorResponse(err), nil
	}
	return h.channelResponse(), nil
}

func (h *Handler) channelResponse() events.APIGatewayProxyResponse {
	return models.NewSuccessResponse(http.StatusOK, models.ChannelResponse{
		Name:  h.channel.Name(),
		State: string(h.channel.State()),
	})
}
