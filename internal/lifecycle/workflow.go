// Package lifecycle drives a franchise application from submission to
// granted access: status transitions, credential issue and the
// notifications each step sends.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"franchisee-hub/internal/common/auth"
	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/metrics"
	"franchisee-hub/internal/models"
	"franchisee-hub/internal/notification"
)

type ApplicantStore interface {
	Get(ctx context.Context, email string) (*models.Applicant, error)
	Create(ctx context.Context, a *models.Applicant) error
	SetStatus(ctx context.Context, email string, status models.Status) error
	ListGrantedWithoutCredential(ctx context.Context) ([]*models.Applicant, error)
}

type CredentialIssuer interface {
	Issue(ctx context.Context, email string) (*models.IssuedCredential, error)
}

type AdminDirectory interface {
	List(ctx context.Context) ([]*models.Admin, error)
}

// Notifier sends notifications. Notify waits within its own bound;
// Dispatch does not wait at all.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) models.NotificationResult
	Dispatch(ctx context.Context, n models.Notification) <-chan models.NotificationResult
}

// Indexer mirrors applicants into the search index.
type Indexer interface {
	Index(ctx context.Context, a *models.Applicant) error
}

// Publisher correlates lifecycle events to waiting BPMN process instances.
type Publisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, vars map[string]interface{}) error
}

// MessageApplicationSubmitted is published on every new application,
// correlated by applicant email.
const MessageApplicationSubmitted = "franchise-application-submitted"

// Recorder receives per-operation timings.
type Recorder interface {
	RecordOperation(ctx context.Context, operation, outcome string, d time.Duration)
}

type Dependencies struct {
	Applicants  ApplicantStore
	Credentials CredentialIssuer
	Admins      AdminDirectory
	Notifier    Notifier
	Locker      Locker
	Indexer     Indexer
	Publisher   Publisher
	Recorder    Recorder
	Logger      logger.Logger
}

type Workflow struct {
	applicants  ApplicantStore
	credentials CredentialIssuer
	admins      AdminDirectory
	notifier    Notifier
	locker      Locker
	indexer     Indexer
	publisher   Publisher
	recorder    Recorder
	logger      logger.Logger
	now         func() time.Time
}

func New(deps Dependencies) *Workflow {
	w := &Workflow{
		applicants:  deps.Applicants,
		credentials: deps.Credentials,
		admins:      deps.Admins,
		notifier:    deps.Notifier,
		locker:      deps.Locker,
		indexer:     deps.Indexer,
		publisher:   deps.Publisher,
		recorder:    deps.Recorder,
		logger:      deps.Logger.WithFields(map[string]interface{}{"component": "lifecycle"}),
		now:         time.Now,
	}
	if w.locker == nil {
		w.locker = NopLocker{}
	}
	return w
}

// TransitionResult reports a completed Accept or Reject.
type TransitionResult struct {
	Email             string        `json:"email"`
	Status            models.Status `json:"status"`
	NotificationSent  bool          `json:"notificationSent"`
	NotificationError string        `json:"notificationError,omitempty"`
}

// GrantResult reports a completed Grant. Credential is set only when the
// credentials email was not confirmed delivered, so an admin can hand the
// secret over another way.
type GrantResult struct {
	TransitionResult
	Created    bool                     `json:"created"`
	Credential *models.IssuedCredential `json:"credential,omitempty"`
}

// Accept moves a pending application to accepted and notifies the applicant.
func (w *Workflow) Accept(ctx context.Context, actor auth.Actor, email string) (*TransitionResult, error) {
	var res *TransitionResult
	err := w.transition(ctx, actor, email, ActionAccept, func(a *models.Applicant) error {
		res = w.notifyStatus(ctx, a, models.KindApplicationAccepted)
		return nil
	})
	return res, err
}

// Reject moves a pending or accepted application to rejected and notifies
// the applicant.
func (w *Workflow) Reject(ctx context.Context, actor auth.Actor, email string) (*TransitionResult, error) {
	var res *TransitionResult
	err := w.transition(ctx, actor, email, ActionReject, func(a *models.Applicant) error {
		res = w.notifyStatus(ctx, a, models.KindApplicationRejected)
		return nil
	})
	return res, err
}

// Grant moves an accepted application to granted, issues the franchisee
// credential and sends it. Granting an already granted applicant reuses
// the existing credential and sends it again.
func (w *Workflow) Grant(ctx context.Context, actor auth.Actor, email string) (*GrantResult, error) {
	var res *GrantResult
	err := w.transition(ctx, actor, email, ActionGrant, func(a *models.Applicant) error {
		cred, err := w.credentials.Issue(ctx, a.Email)
		if err != nil {
			return err
		}

		sent := w.notifier.Notify(ctx, credentialsNotice(a, cred))
		res = &GrantResult{
			TransitionResult: TransitionResult{
				Email:             a.Email,
				Status:            a.Status,
				NotificationSent:  sent.Delivered,
				NotificationError: sent.Error,
			},
			Created: cred.Created,
		}
		if !sent.Delivered {
			res.Credential = cred
		}
		return nil
	})
	return res, err
}

// Transition runs the named action. It backs the workflow-engine worker.
func (w *Workflow) Transition(ctx context.Context, actor auth.Actor, email string, action Action) (*GrantResult, error) {
	switch action {
	case ActionGrant:
		return w.Grant(ctx, actor, email)
	case ActionAccept, ActionReject:
		run := w.Accept
		if action == ActionReject {
			run = w.Reject
		}
		res, err := run(ctx, actor, email)
		if err != nil {
			return nil, err
		}
		return &GrantResult{TransitionResult: *res}, nil
	default:
		return nil, apperrors.NewValidationError("unknown action " + string(action))
	}
}

func (w *Workflow) transition(ctx context.Context, actor auth.Actor, email string, action Action, after func(*models.Applicant) error) (err error) {
	start := time.Now()
	email = models.NormalizeEmail(email)
	log := w.logger.WithFields(map[string]interface{}{
		"action": string(action),
		"email":  email,
		"actor":  actor.Email,
	})
	defer func() { w.record(ctx, string(action), err, start) }()

	release, err := w.locker.Acquire(ctx, email)
	if err != nil {
		return err
	}
	defer release()

	a, err := w.applicants.Get(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewApplicantNotFoundError(email)
	}
	if err != nil {
		return err
	}

	to, ok := Next(a.Status, action)
	if !ok {
		log.Info("transition declined", map[string]interface{}{"from": a.Status.String()})
		return apperrors.NewInvalidTransitionError(a.Status.String(), string(action))
	}

	from := a.Status
	if from != to {
		if err := w.applicants.SetStatus(ctx, email, to); err != nil {
			return err
		}
		a.Status = to
		w.index(ctx, a)
	}

	if err := after(a); err != nil {
		log.Error("transition follow-up failed", map[string]interface{}{"error": err})
		return err
	}

	log.Info("transition applied", map[string]interface{}{"from": from.String(), "to": to.String()})
	return nil
}

func (w *Workflow) notifyStatus(ctx context.Context, a *models.Applicant, kind models.NotificationKind) *TransitionResult {
	sent := w.notifier.Notify(ctx, models.Notification{
		Kind:      kind,
		Recipient: a.Email,
		Phone:     a.Phone,
		Name:      a.FullName(),
	})
	return &TransitionResult{
		Email:             a.Email,
		Status:            a.Status,
		NotificationSent:  sent.Delivered,
		NotificationError: sent.Error,
	}
}

func credentialsNotice(a *models.Applicant, cred *models.IssuedCredential) models.Notification {
	return models.Notification{
		Kind:      models.KindCredentialsReady,
		Recipient: a.Email,
		Phone:     a.Phone,
		Name:      a.FullName(),
		Data: map[string]string{
			notification.DataEmail:    cred.Email,
			notification.DataPassword: cred.Password,
		},
	}
}

// Submit records a new pending application and tells every admin about it.
// Admin notices are sent in the background; their outcomes are only logged.
func (w *Workflow) Submit(ctx context.Context, form models.ApplicationForm) (a *models.Applicant, err error) {
	start := time.Now()
	defer func() { w.record(ctx, "submit", err, start) }()

	a = form.ToApplicant(w.now())
	if a.Email == "" {
		return nil, apperrors.NewValidationError("email is required")
	}

	if err := w.applicants.Create(ctx, a); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.NewDuplicateApplicationError(a.Email)
		}
		return nil, err
	}
	w.index(ctx, a)
	w.publishSubmitted(ctx, a)

	admins, err := w.admins.List(ctx)
	if err != nil {
		w.logger.Warn("cannot list admins for new application notice", map[string]interface{}{
			"email": a.Email,
			"error": err,
		})
		return a, nil
	}

	for _, admin := range admins {
		w.notifier.Dispatch(ctx, models.Notification{
			Kind:      models.KindNewApplication,
			Recipient: admin.Email,
			Name:      admin.FullName(),
			Data: map[string]string{
				notification.DataApplicantName:  a.FullName(),
				notification.DataApplicantEmail: a.Email,
				notification.DataBusinessName:   a.BusinessName,
				notification.DataCity:           a.SiteCity,
			},
		})
	}

	w.logger.Info("application submitted", map[string]interface{}{
		"email":        a.Email,
		"adminsNotice": len(admins),
	})
	return a, nil
}

// EnsureCredential returns the credential for email, creating it if absent.
func (w *Workflow) EnsureCredential(ctx context.Context, actor auth.Actor, email string) (cred *models.IssuedCredential, err error) {
	start := time.Now()
	defer func() { w.record(ctx, "ensure_credential", err, start) }()

	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required")
	}

	cred, err = w.credentials.Issue(ctx, email)
	if err != nil {
		return nil, err
	}
	w.logger.Info("credential ensured", map[string]interface{}{
		"email":   email,
		"actor":   actor.Email,
		"created": cred.Created,
	})
	return cred, nil
}

// ReconcileReport summarizes one Reconcile run.
type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Issued   int      `json:"issued"`
	Notified int      `json:"notified"`
	Failed   []string `json:"failed,omitempty"`
}

// Reconcile completes grants that set the status but stopped before a
// credential existed: each such applicant gets a credential and the
// credentials email.
func (w *Workflow) Reconcile(ctx context.Context) (report *ReconcileReport, err error) {
	start := time.Now()
	defer func() { w.record(ctx, "reconcile", err, start) }()

	pending, err := w.applicants.ListGrantedWithoutCredential(ctx)
	if err != nil {
		return nil, err
	}

	report = &ReconcileReport{Checked: len(pending)}
	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		release, err := w.locker.Acquire(ctx, a.Email)
		if err != nil {
			report.Failed = append(report.Failed, a.Email)
			continue
		}
		cred, err := w.credentials.Issue(ctx, a.Email)
		release()
		if err != nil {
			w.logger.Error("reconcile issue failed", map[string]interface{}{"email": a.Email, "error": err})
			report.Failed = append(report.Failed, a.Email)
			continue
		}
		report.Issued++
		metrics.ReconciledCredentials.Inc()

		if sent := w.notifier.Notify(ctx, credentialsNotice(a, cred)); sent.Delivered {
			report.Notified++
		}
	}

	if report.Checked > 0 {
		w.logger.Info("reconcile finished", map[string]interface{}{
			"checked":  report.Checked,
			"issued":   report.Issued,
			"notified": report.Notified,
			"failed":   len(report.Failed),
		})
	}
	return report, nil
}

func (w *Workflow) index(ctx context.Context, a *models.Applicant) {
	if w.indexer == nil {
		return
	}
	if err := w.indexer.Index(ctx, a); err != nil {
		w.logger.Warn("search index update failed", map[string]interface{}{"email": a.Email, "error": err})
	}
}

func (w *Workflow) publishSubmitted(ctx context.Context, a *models.Applicant) {
	if w.publisher == nil {
		return
	}
	err := w.publisher.PublishMessage(ctx, MessageApplicationSubmitted, a.Email, map[string]interface{}{
		"email":        a.Email,
		"name":         a.FullName(),
		"businessName": a.BusinessName,
		"status":       a.Status,
	})
	if err != nil {
		w.logger.Warn("application event not published", map[string]interface{}{"email": a.Email, "error": err})
	}
}

func (w *Workflow) record(ctx context.Context, op string, err error, start time.Time) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case apperrors.IsDecline(err):
		outcome = metrics.OutcomeDeclined
	default:
		outcome = metrics.OutcomeFailed
	}
	metrics.TransitionsTotal.WithLabelValues(op, outcome).Inc()
	if w.recorder != nil {
		w.recorder.RecordOperation(ctx, op, outcome, time.Since(start))
	}
}
