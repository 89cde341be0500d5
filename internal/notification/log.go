package notification

import (
	"context"

	"franchisee-hub/internal/common/logger"

	"github.com/google/uuid"
)

// LogMailer writes messages to the log instead of sending them. It backs
// local development and the "log" provider.
type LogMailer struct {
	logger logger.Logger
}

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Name() string { return "log" }

func (m *LogMailer) Send(_ context.Context, e Email) (string, error) {
	id := "log-" + uuid.NewString()
	m.logger.Info("email captured", map[string]interface{}{
		"messageId": id,
		"from":      e.From(),
		"to":        e.To,
		"subject":   e.Subject,
		"text":      e.Text,
	})
	return id, nil
}

func (m *LogMailer) Verify(context.Context) error { return nil }
