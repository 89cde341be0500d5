// internal/workers/application/send-notification/models.go
package sendnotification

import "franchisee-hub/internal/models"

type Input struct {
	Kind      string            `json:"kind"`
	Recipient string            `json:"recipient"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

func (in *Input) notification() models.Notification {
	return models.Notification{
		Kind:      models.NotificationKind(in.Kind),
		Recipient: models.NormalizeEmail(in.Recipient),
		Phone:     in.Phone,
		Name:      in.Name,
		Data:      in.Data,
	}
}

// Output is the dispatcher result as process variables.
type Output = models.NotificationResult
