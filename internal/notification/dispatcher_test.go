package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockMailer struct {
	mu       sync.Mutex
	sent     []Email
	SendFunc func(ctx context.Context, e Email) (string, error)
	VerifyFn func(ctx context.Context) error
}

func (m *mockMailer) Name() string { return "mock" }

func (m *mockMailer) Send(ctx context.Context, e Email) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, e)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, e)
	}
	return "msg-1", nil
}

func (m *mockMailer) Verify(ctx context.Context) error {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx)
	}
	return nil
}

func (m *mockMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

type mockSMS struct {
	mu     sync.Mutex
	phones []string
	err    error
}

func (m *mockSMS) Send(_ context.Context, phone, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phones = append(m.phones, phone)
	return "sms-1", m.err
}

// ==========================
// Test Helper Functions
// ==========================

func newTestDispatcher(t *testing.T, mailer Mailer, sms SMSSender, await time.Duration) *Dispatcher {
	t.Helper()
	r, err := NewRenderer("FranchiseeHub", "https://portal.example")
	require.NoError(t, err)
	return NewDispatcher(Config{
		FromAddress:  "noreply@franchiseehub.example",
		FromName:     "FranchiseeHub",
		AwaitTimeout: await,
		SendTimeout:  time.Second,
	}, r, mailer, sms, logger.NewTestLogger(t))
}

func credentialsNotice() models.Notification {
	return models.Notification{
		Kind:      models.KindCredentialsReady,
		Recipient: "asha@example.com",
		Phone:     "+919876543210",
		Name:      "Asha Rao",
		Data:      map[string]string{DataEmail: "asha@example.com", DataPassword: "AbCdEf-123"},
	}
}

// ==========================
// Send
// ==========================

func TestDispatcher_Send_Delivered(t *testing.T) {
	mailer := &mockMailer{}
	d := newTestDispatcher(t, mailer, nil, time.Second)

	res := d.Send(context.Background(), credentialsNotice())

	assert.True(t, res.Delivered)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Equal(t, "mock", res.Channel)
	assert.NotEmpty(t, res.ID)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "🎉 Your FranchiseeHub Account is Ready!", sent[0].Subject)
	assert.Equal(t, "asha@example.com", sent[0].To)
	assert.Contains(t, sent[0].HTML, "AbCdEf-123")
	assert.Contains(t, sent[0].Text, "AbCdEf-123")
	assert.Equal(t, "FranchiseeHub", sent[0].FromName)
}

func TestDispatcher_Send_FailureIsAValue(t *testing.T) {
	tests := []struct {
		name      string
		notice    models.Notification
		sendErr   error
		wantError string
	}{
		{name: "transport error", notice: credentialsNotice(), sendErr: errors.New("535 auth failed"), wantError: "535 auth failed"},
		{name: "unknown kind", notice: models.Notification{Kind: "promo", Recipient: "a@b.com"}, wantError: "unknown notification kind"},
		{name: "no recipient", notice: models.Notification{Kind: models.KindApplicationAccepted}, wantError: "recipient is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &mockMailer{SendFunc: func(context.Context, Email) (string, error) { return "", tt.sendErr }}
			d := newTestDispatcher(t, mailer, nil, time.Second)

			res := d.Send(context.Background(), tt.notice)
			assert.False(t, res.Delivered)
			assert.Contains(t, res.Error, tt.wantError)
		})
	}
}

func TestDispatcher_Send_AdminNoticeUsesSystemSender(t *testing.T) {
	mailer := &mockMailer{}
	d := newTestDispatcher(t, mailer, nil, time.Second)

	res := d.Send(context.Background(), models.Notification{
		Kind:      models.KindNewApplication,
		Recipient: "admin@franchiseehub.example",
		Data: map[string]string{
			DataApplicantName:  "Asha Rao",
			DataApplicantEmail: "asha@example.com",
			DataCity:           "Pune",
		},
	})
	require.True(t, res.Delivered)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "FranchiseeHub System", sent[0].FromName)
	assert.Equal(t, "🔔 New Franchise Application Received", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "N/A")
}

func TestDispatcher_Send_SMS(t *testing.T) {
	tests := []struct {
		name      string
		kind      models.NotificationKind
		smsErr    error
		wantPhone bool
	}{
		{name: "credentials ready goes by SMS", kind: models.KindCredentialsReady, wantPhone: true},
		{name: "accepted goes by SMS", kind: models.KindApplicationAccepted, wantPhone: true},
		{name: "rejected stays email only", kind: models.KindApplicationRejected},
		{name: "SMS failure does not affect delivery", kind: models.KindCredentialsReady, smsErr: errors.New("opted out"), wantPhone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sms := &mockSMS{err: tt.smsErr}
			d := newTestDispatcher(t, &mockMailer{}, sms, time.Second)

			n := credentialsNotice()
			n.Kind = tt.kind
			res := d.Send(context.Background(), n)

			assert.True(t, res.Delivered)
			if tt.wantPhone {
				assert.Equal(t, []string{"+919876543210"}, sms.phones)
			} else {
				assert.Empty(t, sms.phones)
			}
		})
	}
}

// ==========================
// Dispatch / Await
// ==========================

func TestDispatcher_Notify_ReturnsResult(t *testing.T) {
	d := newTestDispatcher(t, &mockMailer{}, nil, time.Second)

	res := d.Notify(context.Background(), credentialsNotice())
	assert.True(t, res.Delivered)
}

func TestDispatcher_Notify_BoundedWait(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	mailer := &mockMailer{SendFunc: func(ctx context.Context, _ Email) (string, error) {
		defer close(finished)
		<-release
		return "late", nil
	}}
	d := newTestDispatcher(t, mailer, nil, 50*time.Millisecond)
	// the late outcome is logged after the test returns
	d.logger = logger.NewNoOpLogger()

	start := time.Now()
	res := d.Notify(context.Background(), credentialsNotice())
	elapsed := time.Since(start)

	assert.False(t, res.Delivered)
	assert.Equal(t, ErrorTimeout, res.Error)
	assert.Less(t, elapsed, time.Second)

	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("send did not continue after the wait expired")
	}
}

func TestDispatcher_Dispatch_SurvivesCallerCancel(t *testing.T) {
	mailer := &mockMailer{SendFunc: func(ctx context.Context, _ Email) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return "ok", nil
		}
	}}
	d := newTestDispatcher(t, mailer, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	ch := d.Dispatch(ctx, credentialsNotice())
	cancel()

	res := <-ch
	assert.True(t, res.Delivered)
	_, open := <-ch
	assert.False(t, open)
}

func TestDispatcher_Dispatch_SendTimeout(t *testing.T) {
	mailer := &mockMailer{SendFunc: func(ctx context.Context, _ Email) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	r, err := NewRenderer("FranchiseeHub", "")
	require.NoError(t, err)
	d := NewDispatcher(Config{SendTimeout: 30 * time.Millisecond}, r, mailer, nil, logger.NewTestLogger(t))

	res := <-d.Dispatch(context.Background(), credentialsNotice())
	assert.False(t, res.Delivered)
	assert.True(t, strings.Contains(res.Error, "deadline exceeded"))
}

func TestDispatcher_Await_CallerContextEnds(t *testing.T) {
	d := newTestDispatcher(t, &mockMailer{}, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := d.Await(ctx, make(chan models.NotificationResult), time.Second)
	assert.False(t, res.Delivered)
	assert.Equal(t, context.Canceled.Error(), res.Error)
}

func TestDispatcher_Verify(t *testing.T) {
	d := newTestDispatcher(t, &mockMailer{VerifyFn: func(context.Context) error { return errors.New("dial tcp: refused") }}, nil, time.Second)
	assert.EqualError(t, d.Verify(context.Background()), "dial tcp: refused")
}
