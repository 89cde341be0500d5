package notification

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc    func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	GetSendQuotaFunc func(ctx context.Context, params *ses.GetSendQuotaInput, optFns ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func (m *MockSESService) GetSendQuota(ctx context.Context, params *ses.GetSendQuotaInput, optFns ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error) {
	return m.GetSendQuotaFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func testEmail() Email {
	return Email{
		FromName:    "FranchiseeHub",
		FromAddress: "noreply@franchiseehub.example",
		To:          "asha@example.com",
		Subject:     "✅ Your Franchise Application Has Been Accepted",
		HTML:        "<p>accepted</p>",
		Text:        "accepted",
	}
}

// ==========================
// SES
// ==========================

func TestSESMailer_Send(t *testing.T) {
	var captured *ses.SendEmailInput
	api := &MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
		},
	}

	id, err := NewSESMailer(api).Send(context.Background(), testEmail())
	require.NoError(t, err)
	assert.Equal(t, "ses-123", id)
	assert.Equal(t, []string{"asha@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, `"FranchiseeHub" <noreply@franchiseehub.example>`, aws.ToString(captured.Source))
	assert.Equal(t, "<p>accepted</p>", aws.ToString(captured.Message.Body.Html.Data))
	assert.Equal(t, "accepted", aws.ToString(captured.Message.Body.Text.Data))
}

func TestSESMailer_SendError(t *testing.T) {
	api := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected: Email address is not verified")
		},
	}

	_, err := NewSESMailer(api).Send(context.Background(), testEmail())
	assert.ErrorContains(t, err, "MessageRejected")
}

func TestSESMailer_Verify(t *testing.T) {
	tests := []struct {
		name    string
		out     *ses.GetSendQuotaOutput
		err     error
		wantErr string
	}{
		{name: "quota available", out: &ses.GetSendQuotaOutput{Max24HourSend: 200, SentLast24Hours: 10}},
		{name: "quota exhausted", out: &ses.GetSendQuotaOutput{Max24HourSend: 200, SentLast24Hours: 200}, wantErr: "quota exhausted"},
		{name: "api error", err: errors.New("AccessDenied"), wantErr: "AccessDenied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &MockSESService{
				GetSendQuotaFunc: func(context.Context, *ses.GetSendQuotaInput, ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error) {
					return tt.out, tt.err
				},
			}
			err := NewSESMailer(api).Verify(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

// ==========================
// SNS
// ==========================

func TestSNSSender_Send(t *testing.T) {
	var captured *sns.PublishInput
	api := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
		},
	}

	id, err := NewSNSSender(api, "FRANHUB").Send(context.Background(), "+919876543210", "hello")
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Equal(t, "+919876543210", aws.ToString(captured.PhoneNumber))
	assert.Equal(t, "FRANHUB", aws.ToString(captured.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
	assert.Equal(t, "Transactional", aws.ToString(captured.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSNSSender_NoSenderID(t *testing.T) {
	api := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			_, ok := params.MessageAttributes["AWS.SNS.SMS.SenderID"]
			assert.False(t, ok)
			return nil, errors.New("throttled")
		},
	}

	_, err := NewSNSSender(api, "").Send(context.Background(), "+1555", "hi")
	assert.ErrorContains(t, err, "throttled")
}

// ==========================
// SMTP
// ==========================

// fakeSMTP accepts one session without TLS or auth and records DATA.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { conn.Write([]byte(s + "\r\n")) }

		reply("220 fake ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250-fake")
				reply("250 8BITMIME")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"), strings.HasPrefix(cmd, "RSET"), strings.HasPrefix(cmd, "NOOP"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				var body strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				out <- body.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 unsupported")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, out
}

func TestSMTPMailer_Send(t *testing.T) {
	host, port, data := fakeSMTP(t)
	m := NewSMTPMailer(SMTPConfig{Host: host, Port: port})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := m.Send(ctx, testEmail())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@127.0.0.1>"))

	body := <-data
	assert.Contains(t, body, "To: asha@example.com")
	assert.Contains(t, body, "Message-ID: "+id)
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text/plain; charset=UTF-8")
	assert.Contains(t, body, "<p>accepted</p>")
}

func TestSMTPMailer_Verify(t *testing.T) {
	host, port, _ := fakeSMTP(t)
	assert.NoError(t, NewSMTPMailer(SMTPConfig{Host: host, Port: port}).Verify(context.Background()))
}

func TestSMTPMailer_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port})
	err = m.Verify(context.Background())
	assert.ErrorContains(t, err, "failed to connect to SMTP server")
}

func TestSMTPMailer_BuildMessageEncodesSubject(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.gmail.com", Port: 587})
	m.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }

	msg, err := m.buildMessage(testEmail(), "<id@smtp.gmail.com>")
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "Subject: =?UTF-8?q?")
	assert.Contains(t, s, "Date: Fri, 14 Mar 2025 09:30:00 +0000")
	assert.Contains(t, s, `From: "FranchiseeHub" <noreply@franchiseehub.example>`)
}

// ==========================
// Log transport and templates
// ==========================

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(logger.NewTestLogger(t))
	id, err := m.Send(context.Background(), testEmail())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "log-"))
	assert.NoError(t, m.Verify(context.Background()))
}

func TestRenderer_EveryKind(t *testing.T) {
	r, err := NewRenderer("FranchiseeHub", "https://portal.example")
	require.NoError(t, err)

	for _, kind := range []models.NotificationKind{
		models.KindCredentialsReady,
		models.KindApplicationAccepted,
		models.KindApplicationRejected,
		models.KindNewApplication,
	} {
		t.Run(string(kind), func(t *testing.T) {
			out, err := r.Render(models.Notification{Kind: kind, Recipient: "a@b.com", Name: "Asha <Rao>"})
			require.NoError(t, err)
			assert.Equal(t, Subject(kind), out.Subject)
			assert.NotEmpty(t, out.Text)
			assert.Contains(t, out.HTML, "<!DOCTYPE html>")
			assert.NotContains(t, out.HTML, "Asha <Rao>")
		})
	}
}

func TestRenderer_CredentialsLinkAndEscaping(t *testing.T) {
	r, err := NewRenderer("FranchiseeHub", "https://portal.example")
	require.NoError(t, err)

	out, err := r.Render(models.Notification{
		Kind: models.KindCredentialsReady,
		Name: "Asha",
		Data: map[string]string{DataEmail: "asha@example.com", DataPassword: "x<y>z"},
	})
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "https://portal.example/franchisee/login")
	assert.Contains(t, out.HTML, "x&lt;y&gt;z")
	assert.Contains(t, out.Text, "x<y>z")
}

func TestRenderer_UnknownKind(t *testing.T) {
	r, err := NewRenderer("FranchiseeHub", "")
	require.NoError(t, err)
	_, err = r.Render(models.Notification{Kind: "promo"})
	assert.Error(t, err)
}
