// internal/workers/application/transition-application/handler.go
package transitionapplication

import (
	"context"
	"encoding/json"
	"fmt"

	"franchisee-hub/internal/common/auth"
	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/lifecycle"
	"franchisee-hub/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
)

const (
	TaskType = "franchise-application-transition"
)

type Lifecycle interface {
	Transition(ctx context.Context, actor auth.Actor, email string, action lifecycle.Action) (*lifecycle.GrantResult, error)
}

type Handler struct {
	config    *Config
	lifecycle Lifecycle
	logger    logger.Logger
}

func NewHandler(config *Config, lc Lifecycle, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		lifecycle: lc,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// HandleJob decodes the job variables and applies the transition.
// Declines surface as BPMN errors through the worker's error handler.
func (h *Handler) HandleJob(ctx context.Context, job entities.Job) (interface{}, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	email := models.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required")
	}
	action, err := lifecycle.ParseAction(input.Action)
	if err != nil {
		return nil, err
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	res, err := h.lifecycle.Transition(ctx, h.actor(input), email, action)
	if err != nil {
		return nil, err
	}

	h.logger.Info("application transitioned", map[string]interface{}{
		"email":  email,
		"action": action,
		"status": res.Status,
	})
	return &Output{
		Status:            res.Status,
		NotificationSent:  res.NotificationSent,
		NotificationError: res.NotificationError,
		CredentialCreated: res.Created,
	}, nil
}

func (h *Handler) actor(input *Input) auth.Actor {
	email := models.NormalizeEmail(input.Actor)
	if email == "" {
		email = h.config.DefaultActor
	}
	return auth.Actor{Email: email, Role: auth.RoleAdmin}
}
