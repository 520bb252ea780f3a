package models

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"tasknotify/internal/domain"
	"tasknotify/internal/lifecycle"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Data any `json:"data"`
}

// TaskResponse is returned by task commands. NotificationError is set when the
// transition was stored but its notification could not be sent.
type TaskResponse struct {
	Task              domain.Task             `json:"task"`
	Events            []lifecycle.Event       `json:"events"`
	Results           []domain.DispatchResult `json:"results"`
	NotificationError string                  `json:"notification_error,omitempty"`
}

// DispatchResponse is returned by bulk dispatch.
type DispatchResponse struct {
	Results   []domain.DispatchResult `json:"results"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
}

// ChannelResponse reports channel state.
type ChannelResponse struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

var jsonHeaders = map[string]string{
	"Content-Type": "application/json",
}

// NewErrorResponse creates an API Gateway error response.
func NewErrorResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	body := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		slog.Error("failed to marshal error response",
			"error", err,
			"status_code", statusCode,
			"message", message)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    jsonHeaders,
			Body:       `{"error":"Internal Server Error","message":"failed to build error response"}`,
		}
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    jsonHeaders,
		Body:       string(bodyJSON),
	}
}

// NewSuccessResponse creates an API Gateway success response.
func NewSuccessResponse(statusCode int, data any) events.APIGatewayProxyResponse {
	bodyJSON, err := json.Marshal(SuccessResponse{Data: data})
	if err != nil {
		slog.Error("failed to marshal success response",
			"error", err,
			"status_code", statusCode)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    jsonHeaders,
			Body:       `{"error":"Internal Server Error","message":"failed to build response"}`,
		}
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    jsonHeaders,
		Body:       string(bodyJSON),
	}
}
