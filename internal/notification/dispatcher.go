// Package notification renders and delivers outbound messages. Delivery
// outcomes are values, never errors: callers decide how long to wait and a
// failed or slow send never fails the operation that triggered it.
package notification

import (
	"context"
	"errors"
	"time"

	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/metrics"
	"franchisee-hub/internal/models"

	"github.com/google/uuid"
)

// ErrorTimeout is the Result.Error reported when a bounded wait expires.
const ErrorTimeout = "timeout"

// smsKinds are the kinds that also go out by SMS when a phone is known.
var smsKinds = map[models.NotificationKind]bool{
	models.KindCredentialsReady:    true,
	models.KindApplicationAccepted: true,
}

type Config struct {
	FromAddress  string
	FromName     string
	AwaitTimeout time.Duration
	SendTimeout  time.Duration
}

type Dispatcher struct {
	config   Config
	renderer *Renderer
	mailer   Mailer
	sms      SMSSender
	logger   logger.Logger
	newID    func() string
}

// NewDispatcher wires a renderer and transports. sms may be nil.
func NewDispatcher(cfg Config, renderer *Renderer, mailer Mailer, sms SMSSender, log logger.Logger) *Dispatcher {
	if cfg.AwaitTimeout <= 0 {
		cfg.AwaitTimeout = 5 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		config:   cfg,
		renderer: renderer,
		mailer:   mailer,
		sms:      sms,
		logger:   log.WithFields(map[string]interface{}{"component": "notification", "channel": mailer.Name()}),
		newID:    uuid.NewString,
	}
}

// Send delivers n and reports the outcome. The email outcome decides
// Delivered; SMS is best-effort and only logged.
func (d *Dispatcher) Send(ctx context.Context, n models.Notification) models.NotificationResult {
	start := time.Now()
	if n.ID == "" {
		n.ID = d.newID()
	}
	res := models.NotificationResult{ID: n.ID, Channel: d.mailer.Name()}

	defer func() {
		outcome := metrics.OutcomeOK
		if !res.Delivered {
			outcome = metrics.OutcomeFailed
		}
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), res.Channel, outcome).Inc()
		metrics.NotificationDuration.WithLabelValues(string(n.Kind)).Observe(time.Since(start).Seconds())
	}()

	if !n.Kind.Valid() {
		res.Error = "unknown notification kind: " + string(n.Kind)
		return res
	}
	if n.Recipient == "" {
		res.Error = "recipient is required"
		return res
	}

	rendered, err := d.renderer.Render(n)
	if err != nil {
		res.Error = err.Error()
		d.logger.Error("notification render failed", map[string]interface{}{"id": n.ID, "kind": n.Kind, "error": err})
		return res
	}

	fromName := d.config.FromName
	if n.Kind == models.KindNewApplication {
		fromName += " System"
	}

	messageID, err := d.mailer.Send(ctx, Email{
		FromName:    fromName,
		FromAddress: d.config.FromAddress,
		To:          n.Recipient,
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
		Text:        rendered.Text,
	})
	if err != nil {
		res.Error = err.Error()
		d.logger.Error("email send failed", map[string]interface{}{
			"id":        n.ID,
			"kind":      n.Kind,
			"recipient": n.Recipient,
			"error":     err,
		})
	} else {
		res.Delivered = true
		res.MessageID = messageID
		d.logger.Info("email sent", map[string]interface{}{
			"id":        n.ID,
			"kind":      n.Kind,
			"recipient": n.Recipient,
			"messageId": messageID,
		})
	}

	if d.sms != nil && n.Phone != "" && smsKinds[n.Kind] {
		d.sendSMS(ctx, n, rendered)
	}
	return res
}

func (d *Dispatcher) sendSMS(ctx context.Context, n models.Notification, r *Rendered) {
	fields := map[string]interface{}{"id": n.ID, "kind": n.Kind, "phone": n.Phone}
	id, err := d.sms.Send(ctx, n.Phone, r.Subject+" Check your email for details.")
	if err != nil {
		fields["error"] = err
		d.logger.Warn("SMS send failed", fields)
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sms", metrics.OutcomeFailed).Inc()
		return
	}
	fields["messageId"] = id
	d.logger.Info("SMS sent", fields)
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sms", metrics.OutcomeOK).Inc()
}

// Dispatch starts Send on its own goroutine. The send is detached from
// ctx cancellation and bounded by the configured send timeout. The
// returned channel yields exactly one result and is then closed.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) <-chan models.NotificationResult {
	if n.ID == "" {
		n.ID = d.newID()
	}
	ch := make(chan models.NotificationResult, 1)
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.SendTimeout)

	go func() {
		defer cancel()
		defer close(ch)
		ch <- d.Send(sendCtx, n)
	}()
	return ch
}

// Await waits at most timeout for a dispatched result. When the wait ends
// first it returns an undelivered result and the eventual outcome is only
// logged.
func (d *Dispatcher) Await(ctx context.Context, ch <-chan models.NotificationResult, timeout time.Duration) models.NotificationResult {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var reason string
	select {
	case res, ok := <-ch:
		if !ok {
			return models.NotificationResult{Error: "result channel closed"}
		}
		return res
	case <-timer.C:
		reason = ErrorTimeout
	case <-ctx.Done():
		reason = ctx.Err().Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ErrorTimeout
		}
	}

	go d.logLate(ch)
	return models.NotificationResult{Delivered: false, Error: reason, Channel: d.mailer.Name()}
}

func (d *Dispatcher) logLate(ch <-chan models.NotificationResult) {
	res, ok := <-ch
	if !ok {
		return
	}
	d.logger.Warn("notification finished after caller stopped waiting", map[string]interface{}{
		"id":        res.ID,
		"delivered": res.Delivered,
		"error":     res.Error,
	})
}

// Notify dispatches n and waits for it within the configured bound.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) models.NotificationResult {
	return d.Await(ctx, d.Dispatch(ctx, n), d.config.AwaitTimeout)
}

// Verify checks that the email transport is usable.
func (d *Dispatcher) Verify(ctx context.Context) error {
	return d.mailer.Verify(ctx)
}
