package notify

import (
	"context"
	"servicecheck/features/reconcile"
	"servicecheck/features/services"
	"servicecheck/internal/collector"

	"github.com/rs/zerolog/log"
)

// Notifier sends the admin reports of a run. Delivery is best effort: failures
// are logged and counted, never returned.
type Notifier struct {
	mailer    Mailer
	recipient string
}

func NewNotifier(mailer Mailer, recipient string) *Notifier {
	return &Notifier{mailer: mailer, recipient: recipient}
}

// NotifyDeactivated reports the services that were deactivated. Returns true
// when a message was handed to the mailer successfully.
func (n *Notifier) NotifyDeactivated(ctx context.Context, deactivated []services.Service) bool {
	if len(deactivated) == 0 {
		return false
	}

	body, err := renderDeactivation(deactivated)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render deactivation report")
		return false
	}

	return n.send(ctx, "deactivation", Message{
		To:      n.recipient,
		Subject: DeactivationSubject,
		Body:    body,
	})
}

// NotifyProviderFailures reports every provider that failed this run.
func (n *Notifier) NotifyProviderFailures(ctx context.Context, failed []reconcile.FailedProvider) bool {
	if len(failed) == 0 {
		return false
	}

	body, err := renderProviderFailure(failed)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render provider failure report")
		return false
	}

	return n.send(ctx, "provider_failure", Message{
		To:      n.recipient,
		Subject: ProviderFailureSubject,
		Body:    body,
	})
}

func (n *Notifier) send(ctx context.Context, kind string, msg Message) bool {
	if n.recipient == "" {
		log.Warn().Str("report", kind).Msg("No admin email configured, skipping report")
		collector.GetMetricsCollector().IncrementNotifications(kind, "skipped")
		return false
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("report", kind).Str("to", msg.To).Msg("Failed to send report")
		collector.GetMetricsCollector().IncrementNotifications(kind, "failed")
		return false
	}

	log.Info().Str("report", kind).Str("to", msg.To).Msg("Report sent")
	collector.GetMetricsCollector().IncrementNotifications(kind, "sent")
	return true
}
