package lifecycle

import (
	"fmt"
	"strings"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/models"
)

// Action is an admin decision on an application.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionGrant  Action = "grant"
)

type rule struct {
	from []models.Status
	to   models.Status
}

var transitions = map[Action]rule{
	ActionAccept: {from: []models.Status{models.StatusPending}, to: models.StatusAccepted},
	ActionReject: {from: []models.Status{models.StatusPending, models.StatusAccepted}, to: models.StatusRejected},
	ActionGrant:  {from: []models.Status{models.StatusAccepted, models.StatusGranted}, to: models.StatusGranted},
}

// ParseAction accepts the action names used by HTTP routes and BPMN variables.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[a]; !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown action %q", s))
	}
	return a, nil
}

// Next returns the status an applicant in from moves to under a.
func Next(from models.Status, a Action) (models.Status, bool) {
	r, ok := transitions[a]
	if !ok {
		return "", false
	}
	for _, s := range r.from {
		if s == from {
			return r.to, true
		}
	}
	return "", false
}
