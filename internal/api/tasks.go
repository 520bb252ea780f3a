package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"tasknotify/internal/api/models"
	"tasknotify/internal/domain"
	"tasknotify/internal/service"
)

// handleAssign handles POST /tasks.
func (h *Handler) handleAssign(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var assignReq models.AssignRequest
	if err := decode(req, &assignReq); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), nil
	}

	if err := assignReq.Validate(); err != nil {
		h.logger.Warn("validation failed", "error", err)
		return models.NewErrorResponse(http.StatusBadRequest, err.Error()), nil
	}

	outcome, err := h.tasks.Assign(ctx, assignReq.ToDomain())
	return h.outcomeResponse(http.StatusCreated, outcome, err), nil
}

// handleGetTask handles GET /tasks/{id}.
func (h *Handler) handleGetTask(ctx context.Context, taskID string) (events.APIGatewayProxyResponse, error) {
	task, err := h.tasks.Get(ctx, taskID)
	if err != nil {
		return h.errorResponse(err), nil
	}
	return models.NewSuccessResponse(http.StatusOK, task), nil
}

// handleDeliveries handles GET /tasks/{id}/deliveries.
func (h *Handler) handleDeliveries(ctx context.Context, taskID string) (events.APIGatewayProxyResponse, error) {
	entries, err := h.tasks.Deliveries(ctx, taskID)
	if err != nil {
		return h.errorResponse(err), nil
	}
	return models.NewSuccessResponse(http.StatusOK, entries), nil
}

// handleTaskAction handles POST /tasks/{id}/{action}.
func (h *Handler) handleTaskAction(ctx context.Context, taskID, action string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var (
		outcome *service.Outcome
		err     error
	)

	switch action {
	case "start":
		outcome, err = h.tasks.Start(ctx, taskID)
	case "submit":
		var submitReq models.SubmitRequest
		if decodeErr := decode(req, &submitReq); decodeErr != nil {
			return models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), nil
		}
		if vErr := submitReq.Validate(); vErr != nil {
			return models.NewErrorResponse(http.StatusBadRequest, vErr.Error()), nil
		}
		outcome, err = h.tasks.Submit(ctx, taskID, submitReq.ToDomain())
	case "approve":
		outcome, err = h.tasks.Approve(ctx, taskID)
	case "reject":
		var rejectReq models.RejectRequest
		if decodeErr := decode(req, &rejectReq); decodeErr != nil {
			return models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), nil
		}
		outcome, err = h.tasks.Reject(ctx, taskID, rejectReq.Reason)
	case "progress":
		var progressReq models.ProgressRequest
		if decodeErr := decode(req, &progressReq); decodeErr != nil {
			return models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), nil
		}
		if vErr := progressReq.Validate(); vErr != nil {
			return models.NewErrorResponse(http.StatusBadRequest, vErr.Error()), nil
		}
		outcome, err = h.tasks.SetProgress(ctx, taskID, *progressReq.Percent)
	case "remind":
		outcome, err = h.tasks.RequestReminder(ctx, taskID)
	default:
		return models.NewErrorResponse(http.StatusNotFound, "route not found"), nil
	}

	return h.outcomeResponse(http.StatusOK, outcome, err), nil
}

// handleReviewDocument handles POST /tasks/{id}/documents/{docId}/review.
func (h *Handler) handleReviewDocument(ctx context.Context, taskID, documentID string, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var reviewReq models.ReviewRequest
	if err := decode(req, &reviewReq); err != nil {
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), nil
	}
	if err := reviewReq.Validate(); err != nil {
		return models.NewErrorResponse(http.StatusBadRequest, err.Error()), nil
	}

	outcome, err := h.tasks.ReviewDocument(ctx, taskID, documentID, *reviewReq.Approve)
	return h.outcomeResponse(http.StatusOK, outcome, err), nil
}

// outcomeResponse reports a stored transition even when its notification
// failed; only errors without an outcome become error responses.
func (h *Handler) outcomeResponse(status int, outcome *service.Outcome, err error) events.APIGatewayProxyResponse {
	if outcome == nil {
		if err == nil {
			err = errors.New("missing outcome")
		}
		return h.errorResponse(err)
	}

	resp := models.TaskResponse{
		Task:    outcome.Task,
		Events:  outcome.Events,
		Results: outcome.Results,
	}
	if resp.Results == nil {
		resp.Results = []domain.DispatchResult{}
	}
	if err != nil {
		h.logger.Warn("transition stored but notification failed",
			"task_id", outcome.Task.ID,
			"error", err,
		)
		resp.NotificationError = err.Error()
	}

	return models.NewSuccessResponse(status, resp)
}
