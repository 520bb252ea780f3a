package config

import "tasknotify/internal/templates"

// RecipientRole names which task participant receives a notification.
type RecipientRole string

const (
	RecipientNone     RecipientRole = ""
	RecipientAssignee RecipientRole = "assignee"
	RecipientAssigner RecipientRole = "assigner"
	RecipientBoth     RecipientRole = "both"
)

// Valid reports whether r is a known role.
func (r RecipientRole) Valid() bool {
	switch r {
	case RecipientNone, RecipientAssignee, RecipientAssigner, RecipientBoth:
		return true
	}
	return false
}

// Binding routes a lifecycle event to a template and a recipient role.
// An empty Template disables notifications for the event.
type Binding struct {
	Template   string        `yaml:"template" json:"template"`
	Recipients RecipientRole `yaml:"recipients" json:"recipients"`
}

// NotificationConfig is the YAML document holding extra templates and
// binding overrides, keyed by event name.
type NotificationConfig struct {
	Templates []templates.Template `yaml:"templates"`
	Bindings  map[string]Binding   `yaml:"bindings"`
}
