// internal/workers/application/create-application-record/handler_test.go
package createapplicationrecord

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/validation"
	"franchisee-hub/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Submitter Implementation
// ==========================

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, form models.ApplicationForm) (*models.Applicant, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Applicant), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

var applied = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func validApplication() map[string]interface{} {
	return map[string]interface{}{
		"email":        "asha@example.com",
		"firstName":    "Asha",
		"lastName":     "Rao",
		"phone":        "+91 98000 00000",
		"businessName": "Rao Foods",
		"siteCity":     "Pune",
		"siteAreaSqft": 850,
		"ownership":    "rented",
	}
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "franchise-onboarding",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, s Submitter) *Handler {
	t.Helper()
	v, err := validation.New()
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: 5 * time.Second}, s, v, logger.NewTestLogger(t))
}

func rawInput(t *testing.T, app map[string]interface{}) *Input {
	t.Helper()
	b, err := json.Marshal(app)
	require.NoError(t, err)
	return &Input{Application: b}
}

// ==========================
// Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	s := &MockSubmitter{}
	s.On("Submit", mock.Anything, mock.MatchedBy(func(f models.ApplicationForm) bool {
		return f.Email == "asha@example.com" && f.SiteAreaSqft == 850 && f.Ownership == models.OwnershipRented
	})).Return(&models.Applicant{
		Email: "asha@example.com", BusinessName: "Rao Foods", Status: models.StatusPending, DateApplied: applied,
	}, nil)

	out, err := newTestHandler(t, s).Execute(context.Background(), rawInput(t, validApplication()))
	require.NoError(t, err)

	assert.Equal(t, &Output{Email: "asha@example.com", Status: models.StatusPending, DateApplied: applied}, out)
	s.AssertExpectations(t)
}

func TestHandler_Execute_SchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		field  string
	}{
		{"missing business name", func(m map[string]interface{}) { delete(m, "businessName") }, "businessName"},
		{"bad email", func(m map[string]interface{}) { m["email"] = "not-an-email" }, "email"},
		{"negative area", func(m map[string]interface{}) { m["siteAreaSqft"] = -1 }, "siteAreaSqft"},
		{"unknown ownership", func(m map[string]interface{}) { m["ownership"] = "borrowed" }, "ownership"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &MockSubmitter{}
			app := validApplication()
			tt.mutate(app)

			_, err := newTestHandler(t, s).Execute(context.Background(), rawInput(t, app))
			require.Error(t, err)

			se := apperrors.FromError(err)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, se.Code)
			fieldErrs, ok := se.Metadata["errors"].([]validation.ValidationError)
			require.True(t, ok)

			var fields []string
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
			s.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Execute_MissingApplication(t *testing.T) {
	_, err := newTestHandler(t, &MockSubmitter{}).Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestHandler_Execute_SubmitErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode apperrors.ErrorCode
		decline  bool
	}{
		{"duplicate", apperrors.NewDuplicateApplicationError("asha@example.com"), apperrors.ErrCodeDuplicateApplication, true},
		{"store fault", apperrors.NewStoreFaultError("create applicant", errors.New("conn reset")), apperrors.ErrCodeStoreFault, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &MockSubmitter{}
			s.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := newTestHandler(t, s).Execute(context.Background(), rawInput(t, validApplication()))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.Classify(err))
			assert.Equal(t, tt.decline, apperrors.IsDecline(err))
		})
	}
}

func TestHandler_HandleJob(t *testing.T) {
	s := &MockSubmitter{}
	s.On("Submit", mock.Anything, mock.Anything).Return(&models.Applicant{
		Email: "asha@example.com", Status: models.StatusPending, DateApplied: applied,
	}, nil)

	out, err := newTestHandler(t, s).HandleJob(context.Background(), createMockJob(5, map[string]interface{}{
		"application": validApplication(),
	}))
	require.NoError(t, err)

	res, ok := out.(*Output)
	require.True(t, ok)
	assert.Equal(t, "asha@example.com", res.Email)
}
