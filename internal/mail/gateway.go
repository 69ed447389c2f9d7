// Package mail defines the outbound email gateway contract. Delivery is
// always best-effort: callers enqueue through the worker and never block a
// ticket mutation on the result.
package mail

import (
	"context"

	"go.uber.org/zap"
)

// TemplateKind identifies which email template to render.
type TemplateKind string

const (
	TemplateTicketCreated  TemplateKind = "ticket_created"
	TemplateTicketAssigned TemplateKind = "ticket_assigned"
	TemplateTicketUpdated  TemplateKind = "ticket_updated"
	TemplateTicketResolved TemplateKind = "ticket_resolved"
)

// Gateway sends templated notification emails.
type Gateway interface {
	Send(ctx context.Context, recipients []string, kind TemplateKind, data map[string]any) error
}

// LogGateway writes deliveries to the log instead of a wire transport.
// Used in development and as the default when no provider is configured.
type LogGateway struct {
	from   string
	logger *zap.Logger
}

// NewLogGateway constructs the gateway.
func NewLogGateway(from string, logger *zap.Logger) *LogGateway {
	return &LogGateway{from: from, logger: logger}
}

// Send logs the would-be delivery.
func (g *LogGateway) Send(_ context.Context, recipients []string, kind TemplateKind, data map[string]any) error {
	g.logger.Info("email dispatch",
		zap.String("from", g.from),
		zap.Strings("to", recipients),
		zap.String("template", string(kind)),
		zap.Any("data", data))
	return nil
}
