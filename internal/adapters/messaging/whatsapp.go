package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tasknotify/internal/domain"
)

// WhatsAppConfig holds WhatsApp Business API configuration.
type WhatsAppConfig struct {
	APIEndpoint   string        // e.g. the local mock at "http://localhost:8081"
	PhoneNumberID string        // sender phone number ID
	AccessToken   string        // static bearer token, used when STSEndpoint is empty
	ClientID      string        // OAuth2 client ID for STS
	ClientSecret  string        // OAuth2 client secret for STS
	STSEndpoint   string        // STS token endpoint URL
	Timeout       time.Duration // HTTP timeout
	MaxRetries    int           // retry attempts after the first
	RetryDelay    time.Duration // delay between retries
}

// WhatsAppSender implements ports.Sender against the WhatsApp Business
// messages endpoint.
type WhatsAppSender struct {
	config     WhatsAppConfig
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// NewWhatsAppSender creates a sender. When an STS endpoint is configured the
// bearer token is fetched and cached from it, otherwise AccessToken is used.
func NewWhatsAppSender(config WhatsAppConfig, logger *slog.Logger) *WhatsAppSender {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	var tokens TokenSource = StaticToken(config.AccessToken)
	if config.STSEndpoint != "" {
		tokens = NewSTSClient(STSConfig{
			Endpoint:     config.STSEndpoint,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Timeout:      config.Timeout,
		})
	}

	return &WhatsAppSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		tokens: tokens,
		logger: logger,
	}
}

// WhatsAppMessage represents a WhatsApp message request.
type WhatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextContent `json:"text,omitempty"`
}

// TextContent represents text message content.
type TextContent struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// WhatsAppResponse represents the API response.
type WhatsAppResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// WhatsAppError represents an API error response.
type WhatsAppError struct {
	StatusCode int `json:"-"`
	ErrorInfo  struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func (e *WhatsAppError) Error() string {
	return fmt.Sprintf("whatsapp api error: %s (status: %d, code: %d, type: %s)",
		e.ErrorInfo.Message, e.StatusCode, e.ErrorInfo.Code, e.ErrorInfo.Type)
}

// Send sends a text message with retries. Client errors (4xx) are not retried.
func (s *WhatsAppSender) Send(ctx context.Context, msg domain.RenderedMessage) (string, error) {
	message := WhatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.Recipient,
		Type:             "text",
		Text: &TextContent{
			PreviewURL: false,
			Body:       msg.Body,
		},
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.config.RetryDelay):
			case <-ctx.Done():
				return "", &domain.MessagingError{Recipient: msg.Recipient, Op: "Send", Err: ctx.Err()}
			}
		}

		resp, err := s.sendRequest(ctx, message)
		if err == nil {
			if len(resp.Messages) == 0 {
				return "", &domain.MessagingError{Recipient: msg.Recipient, Op: "Send", Err: errors.New("response carried no message id")}
			}
			s.logger.Info("whatsapp message sent",
				"recipient", msg.Recipient,
				"message_id", resp.Messages[0].ID,
				"attempt", attempt+1,
			)
			return resp.Messages[0].ID, nil
		}

		lastErr = err

		var apiErr *WhatsAppError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return "", &domain.MessagingError{Recipient: msg.Recipient, Op: "Send", Err: err}
		}

		s.logger.Warn("whatsapp send attempt failed",
			"recipient", msg.Recipient,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return "", &domain.MessagingError{
		Recipient: msg.Recipient,
		Op:        "Send",
		Err:       fmt.Errorf("failed after %d retries: %w", s.config.MaxRetries, lastErr),
	}
}

// MessageStatus is the body served for a message lookup.
type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// DeliveryStatus asks the messages endpoint where a sent message is now.
func (s *WhatsAppSender) DeliveryStatus(ctx context.Context, deliveryID string) (domain.DeliveryStatus, error) {
	accessToken, err := s.tokens.GetToken(ctx)
	if err != nil {
		return domain.DeliveryStatus{}, fmt.Errorf("get access token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages/%s", s.config.APIEndpoint, s.config.PhoneNumberID, url.PathEscape(deliveryID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.DeliveryStatus{}, fmt.Errorf("create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.DeliveryStatus{}, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.DeliveryStatus{}, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.DeliveryStatus{}, fmt.Errorf("delivery %s: %w", deliveryID, domain.ErrNotFound)
	default:
		apiErr := &WhatsAppError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.ErrorInfo.Message == "" {
			apiErr.ErrorInfo.Message = string(respBody)
		}
		return domain.DeliveryStatus{}, apiErr
	}

	var status MessageStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return domain.DeliveryStatus{}, fmt.Errorf("unmarshal response: %w", err)
	}

	return domain.DeliveryStatus{
		DeliveryID: deliveryID,
		Recipient:  status.RecipientID,
		State:      domain.DeliveryState(status.Status),
	}, nil
}

func (s *WhatsAppSender) sendRequest(ctx context.Context, message WhatsAppMessage) (*WhatsAppResponse, error) {
	accessToken, err := s.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", s.config.APIEndpoint, s.config.PhoneNumberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &WhatsAppError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.ErrorInfo.Message == "" {
			apiErr.ErrorInfo.Message = string(respBody)
		}
		return nil, apiErr
	}

	var whatsappResp WhatsAppResponse
	if err := json.Unmarshal(respBody, &whatsappResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &whatsappResp, nil
}
