package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	from      string
	rcpts     []string
	data      bytes.Buffer
	authed    bool
	quit      bool
	closed    bool
	rcptError error
}

type bufferCloser struct{ *bytes.Buffer }

func (bufferCloser) Close() error { return nil }

func (c *recordingClient) Mail(from string) error { c.from = from; return nil }
func (c *recordingClient) Rcpt(to string) error {
	if c.rcptError != nil {
		return c.rcptError
	}
	c.rcpts = append(c.rcpts, to)
	return nil
}
func (c *recordingClient) Data() (io.WriteCloser, error) { return bufferCloser{&c.data}, nil }
func (c *recordingClient) Quit() error                   { c.quit = true; return nil }
func (c *recordingClient) Close() error                  { c.closed = true; return nil }
func (c *recordingClient) Auth(smtp.Auth) error          { c.authed = true; return nil }

func newTestMailer(t *testing.T, cfg SMTPSettings, client *recordingClient) *smtpMailer {
	t.Helper()
	m, err := NewSMTPMailer(cfg)
	require.NoError(t, err)
	sm := m.(*smtpMailer)
	sm.dial = func(ctx context.Context, _ SMTPSettings) (smtpClient, error) {
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline)
		return client, nil
	}
	sm.now = func() time.Time { return time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC) }
	return sm
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	m, err := NewSMTPMailer(SMTPSettings{})
	require.NoError(t, err)
	require.Equal(t, defaultSMTPTimeout, m.(*smtpMailer).cfg.Timeout)
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	m, err := NewSMTPMailer(SMTPSettings{})
	require.NoError(t, err)
	require.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}), ErrSMTPDisabled)
}

func TestSMTPMailerSendDeliversMessage(t *testing.T) {
	client := &recordingClient{}
	m := newTestMailer(t, SMTPSettings{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     2525,
		Username: "mailer",
		Password: "secret",
		From:     "Auth <no-reply@example.com>",
	}, client)

	err := m.Send(context.Background(), Message{
		To:      []string{"user@example.com", " USER@example.com ", ""},
		Subject: "Activate your account",
		Body:    "line one\nline two",
	})
	require.NoError(t, err)

	require.True(t, client.authed)
	require.True(t, client.quit)
	require.True(t, client.closed)
	require.Equal(t, "no-reply@example.com", client.from)
	require.Contains(t, client.data.String(), "From: \"Auth\" <no-reply@example.com>\r\n")
	require.Equal(t, []string{"user@example.com"}, client.rcpts)

	raw := client.data.String()
	require.Contains(t, raw, "Date: Mon, 01 Jul 2024 09:30:00 +0000\r\n")
	require.Contains(t, raw, "@example.com>\r\n")
	require.Contains(t, raw, "Content-Transfer-Encoding: quoted-printable\r\n")
	require.True(t, strings.HasSuffix(raw, "line one\r\nline two"))
}

func TestSMTPMailerSkipsAuthWithoutUsername(t *testing.T) {
	client := &recordingClient{}
	m := newTestMailer(t, SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "no-reply@example.com"}, client)

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"user@example.com"}}))
	require.False(t, client.authed)
}

func TestSMTPMailerWrapsRecipientErrors(t *testing.T) {
	client := &recordingClient{rcptError: errors.New("550 mailbox unavailable")}
	m := newTestMailer(t, SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "no-reply@example.com"}, client)

	err := m.Send(context.Background(), Message{To: []string{"user@example.com"}})
	require.ErrorContains(t, err, "rcpt to user@example.com")
	require.False(t, client.quit)
	require.True(t, client.closed)
}

func TestMessageEnvelope(t *testing.T) {
	_, _, err := Message{}.envelope("no-reply@example.com")
	require.ErrorContains(t, err, "at least one recipient")

	_, _, err = Message{To: []string{"user@example.com"}}.envelope("")
	require.ErrorContains(t, err, "sender address is required")

	_, _, err = Message{From: "not an address", To: []string{"user@example.com"}}.envelope("")
	require.ErrorContains(t, err, "invalid from address")

	_, _, err = Message{To: []string{"broken"}}.envelope("no-reply@example.com")
	require.ErrorContains(t, err, "invalid recipient address")

	from, to, err := Message{From: "ops@example.com", To: []string{"B <b@example.com>", "a@example.com"}}.envelope("no-reply@example.com")
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", from.Address)
	require.Equal(t, []string{"b@example.com", "a@example.com"}, to)
}

func TestMessageRenderEncodesSubject(t *testing.T) {
	msg := Message{Subject: "Welcome\r\nBcc: attacker@example.com", Body: "hi"}
	raw, err := msg.render(&mail.Address{Address: "no-reply@example.com"}, []string{"user@example.com"}, time.Unix(0, 0).UTC())
	require.NoError(t, err)

	headers, _, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found)

	var subject string
	for _, line := range strings.Split(headers, "\r\n") {
		require.False(t, strings.HasPrefix(line, "Bcc:"))
		if value, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = value
		}
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	require.Equal(t, "Welcome  Bcc: attacker@example.com", decoded)
}

func TestMessageRenderEncodesNonASCIIBody(t *testing.T) {
	raw, err := Message{Subject: "Añadir cuenta", Body: "Olá"}.render(&mail.Address{Address: "no-reply@example.com"}, []string{"user@example.com"}, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Contains(t, string(raw), "Subject: =?utf-8?q?")
	require.True(t, strings.HasSuffix(string(raw), "Ol=C3=A1"))
}
