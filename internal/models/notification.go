// internal/models/notification.go
package models

// NotificationKind identifies one outbound message template.
type NotificationKind string

const (
	KindCredentialsReady    NotificationKind = "credentials_ready"
	KindApplicationAccepted NotificationKind = "application_accepted"
	KindApplicationRejected NotificationKind = "application_rejected"
	KindNewApplication      NotificationKind = "new_application"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case KindCredentialsReady, KindApplicationAccepted, KindApplicationRejected, KindNewApplication:
		return true
	}
	return false
}

// Notification is one outbound message addressed to a single recipient.
type Notification struct {
	ID        string            `json:"id"`
	Kind      NotificationKind  `json:"kind"`
	Recipient string            `json:"recipient"`
	Phone     string            `json:"phone,omitempty"`
	Name      string            `json:"name"`
	Data      map[string]string `json:"data,omitempty"`
}

// NotificationResult is the outcome of one send. It never carries a Go error.
type NotificationResult struct {
	ID        string `json:"id"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
	Channel   string `json:"channel,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}
