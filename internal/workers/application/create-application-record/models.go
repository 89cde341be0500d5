// internal/workers/application/create-application-record/models.go
package createapplicationrecord

import (
	"encoding/json"
	"time"

	"franchisee-hub/internal/models"
)

// Input carries the raw application form so it can be schema-checked
// before decoding.
type Input struct {
	Application json.RawMessage `json:"application"`
}

type Output struct {
	Email       string        `json:"email"`
	Status      models.Status `json:"status"`
	DateApplied time.Time     `json:"dateApplied"`
}
