package notify

import (
	"context"
	"errors"
	"servicecheck/features/providers"
	"servicecheck/features/reconcile"
	"servicecheck/features/services"
	"servicecheck/internal/config"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotifyDeactivated(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(mailer, "admin@example.com")

	sent := n.NotifyDeactivated(context.Background(), []services.Service{
		{ID: 3, Name: "Followers"},
		{ID: 7, Name: "Likes"},
	})
	require.True(t, sent)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, "admin@example.com", msg.To)
	assert.Equal(t, DeactivationSubject, msg.Subject)
	assert.Contains(t, msg.Body, "These services were disabled due to deletion or disablement in the provider's API on your website.")
	assert.Contains(t, msg.Body, "Service ID: 3\nService name: Followers\n")
	assert.Contains(t, msg.Body, "Service ID: 7\nService name: Likes\n")
}

func TestNotifyDeactivatedEmptySendsNothing(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(mailer, "admin@example.com")

	assert.False(t, n.NotifyDeactivated(context.Background(), nil))
	assert.Empty(t, mailer.sent)
}

func TestNotifyProviderFailures(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(mailer, "admin@example.com")

	sent := n.NotifyProviderFailures(context.Background(), []reconcile.FailedProvider{
		{Provider: providers.Provider{ID: 2, Name: "B"}, Reason: "unexpected status code 503"},
		{Provider: providers.Provider{ID: 4, Name: "D"}},
	})
	require.True(t, sent)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, ProviderFailureSubject, msg.Subject)
	assert.Contains(t, msg.Body, "B (unexpected status code 503)\n")
	assert.Contains(t, msg.Body, "D\n")
}

func TestNotifyProviderFailuresEmptySendsNothing(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(mailer, "admin@example.com")

	assert.False(t, n.NotifyProviderFailures(context.Background(), []reconcile.FailedProvider{}))
	assert.Empty(t, mailer.sent)
}

func TestNotifyDeliveryFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	n := NewNotifier(mailer, "admin@example.com")

	assert.False(t, n.NotifyDeactivated(context.Background(), []services.Service{{ID: 1, Name: "X"}}))
}

func TestNotifyWithoutRecipientSkips(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(mailer, "")

	assert.False(t, n.NotifyDeactivated(context.Background(), []services.Service{{ID: 1, Name: "X"}}))
	assert.Empty(t, mailer.sent)
}

func TestNewMailerFallsBackToLog(t *testing.T) {
	settings := config.Default().Mail
	_, isLog := NewMailer(&settings).(LogMailer)
	assert.True(t, isLog)

	settings.Host = "smtp.example.com"
	_, isSMTP := NewMailer(&settings).(*SMTPMailer)
	assert.True(t, isSMTP)

	assert.NoError(t, LogMailer{}.Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
}
