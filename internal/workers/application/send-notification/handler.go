// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
)

const (
	TaskType = "franchise-send-notification"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// Notifier is the part of the notification dispatcher the worker needs.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) models.NotificationResult
}

type Handler struct {
	config   *Config
	notifier Notifier
	logger   logger.Logger
}

func NewHandler(config *Config, notifier Notifier, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// HandleJob decodes the job variables and sends the notification.
func (h *Handler) HandleJob(ctx context.Context, job entities.Job) (interface{}, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	res := h.notifier.Notify(ctx, input.notification())
	if !res.Delivered {
		h.logger.Warn("notification not delivered", map[string]interface{}{
			"kind":      input.Kind,
			"recipient": input.Recipient,
			"error":     res.Error,
		})
		if h.config.RequireDelivery {
			return nil, apperrors.NewNotificationSendFailedError(input.Kind,
				fmt.Errorf("%w: %s", ErrNotificationSendFailed, res.Error))
		}
	}
	return &res, nil
}

func validate(input *Input) error {
	if !models.NotificationKind(input.Kind).Valid() {
		return apperrors.NewValidationError("unknown notification kind: " + input.Kind)
	}
	if models.NormalizeEmail(input.Recipient) == "" {
		return apperrors.NewValidationError("recipient is required")
	}
	return nil
}
