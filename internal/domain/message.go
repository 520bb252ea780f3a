package domain

// Category groups templates and the messages rendered from them.
type Category string

const (
	CategoryAssignment Category = "assignment"
	CategoryReminder   Category = "reminder"
	CategoryApproval   Category = "approval"
	CategoryCompletion Category = "completion"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAssignment, CategoryReminder, CategoryApproval, CategoryCompletion:
		return true
	default:
		return false
	}
}

// RenderedMessage is a fully substituted message addressed to one recipient.
// It is created per dispatch call and never mutated afterwards.
type RenderedMessage struct {
	Recipient string   `json:"recipient"`
	Body      string   `json:"body"`
	Category  Category `json:"category"`
	Priority  Priority `json:"priority"`
}

// DispatchResult is the outcome of sending one RenderedMessage.
type DispatchResult struct {
	Recipient     string `json:"recipient"`
	Succeeded     bool   `json:"succeeded"`
	DeliveryID    string `json:"delivery_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// DeliveryState is the channel's view of a message after it was accepted.
type DeliveryState string

const (
	DeliverySent      DeliveryState = "sent"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryRead      DeliveryState = "read"
	DeliveryFailed    DeliveryState = "failed"
)

// DeliveryStatus reports where an accepted message is now.
type DeliveryStatus struct {
	DeliveryID string        `json:"delivery_id"`
	Recipient  string        `json:"recipient,omitempty"`
	State      DeliveryState `json:"state"`
}

// CountSucceeded returns how many results in the batch succeeded.
func CountSucceeded(results []DispatchResult) int {
	n := 0
	for _, r := range results {
		if r.Succeeded {
			n++
		}
	}
	return n
}
