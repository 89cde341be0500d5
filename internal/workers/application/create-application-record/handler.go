// internal/workers/application/create-application-record/handler.go
package createapplicationrecord

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/validation"
	"franchisee-hub/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
)

const (
	TaskType = "franchise-create-application"
)

type Submitter interface {
	Submit(ctx context.Context, form models.ApplicationForm) (*models.Applicant, error)
}

type Handler struct {
	config    *Config
	submitter Submitter
	validator *validation.Validator
	logger    logger.Logger
}

func NewHandler(config *Config, submitter Submitter, validator *validation.Validator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		submitter: submitter,
		validator: validator,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// HandleJob decodes the job variables and records the application.
func (h *Handler) HandleJob(ctx context.Context, job entities.Job) (interface{}, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return h.Execute(ctx, &input)
}

// Execute validates the form against the application schema and submits
// it. Schema violations and duplicates are declines; the process sees them
// as BPMN errors with the field errors attached.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Application) == 0 {
		return nil, apperrors.NewValidationError("application is required")
	}

	result, err := h.validator.ValidateJSON(validation.SchemaApplication, input.Application)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, result.Err()
	}

	var form models.ApplicationForm
	if err := json.Unmarshal(input.Application, &form); err != nil {
		return nil, apperrors.NewValidationError("malformed application")
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	a, err := h.submitter.Submit(ctx, form)
	if err != nil {
		return nil, err
	}

	h.logger.Info("application record created", map[string]interface{}{
		"email":        a.Email,
		"businessName": a.BusinessName,
	})
	return &Output{
		Email:       a.Email,
		Status:      a.Status,
		DateApplied: a.DateApplied,
	}, nil
}
