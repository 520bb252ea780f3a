package domain

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrDuplicateTemplateID = errors.New("duplicate template id")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrUnknownTemplate     = errors.New("malformed template")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// Precondition errors.
var (
	ErrChannelUnavailable = errors.New("channel unavailable")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrEmptySubmission    = errors.New("empty submission")
	ErrMissingReason      = errors.New("missing reason")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidTask        = errors.New("invalid task")
)

// Storage errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

// TaskError represents a failed operation on a specific task.
type TaskError struct {
	TaskID string
	Op     string // operation that failed
	State  TaskState
	Err    error // underlying error
}

func (e *TaskError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s: task=%s state=%s: %v", e.Op, e.TaskID, e.State, e.Err)
	}
	return fmt.Sprintf("%s: task=%s: %v", e.Op, e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// TemplateError represents a template lookup or rendering failure.
type TemplateError struct {
	TemplateID string
	Op         string
	Err        error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s: template=%s: %v", e.Op, e.TemplateID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// ChannelError reports that a dispatch channel could not be used.
type ChannelError struct {
	Channel string
	State   string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s (%s): %v", e.Channel, e.State, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	ConfigName string
	Field      string
	Err        error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s: field %s: %v", e.ConfigName, e.Field, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.ConfigName, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MessagingError represents a message sending error.
type MessagingError struct {
	Recipient string
	Op        string
	Err       error
}

func (e *MessagingError) Error() string {
	return fmt.Sprintf("messaging: %s recipient=%s: %v", e.Op, e.Recipient, e.Err)
}

func (e *MessagingError) Unwrap() error {
	return e.Err
}
