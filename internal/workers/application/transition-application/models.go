// internal/workers/application/transition-application/models.go
package transitionapplication

import "franchisee-hub/internal/models"

type Input struct {
	Email  string `json:"email"`
	Action string `json:"action"` // accept, reject or grant
	Actor  string `json:"actor,omitempty"`
}

type Output struct {
	Status            models.Status `json:"status"`
	NotificationSent  bool          `json:"notificationSent"`
	NotificationError string        `json:"notificationError,omitempty"`
	CredentialCreated bool          `json:"credentialCreated"`
}
