package event

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the log instead of a broker. Used when no RabbitMQ URL is configured.
type LogPublisher struct {
	logger *slog.Logger
}

var _ EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "LogPublisher")}
}

func (p *LogPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	return p.log(ctx, RoutingKeyCustomerCreated, event)
}

func (p *LogPublisher) PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error {
	return p.log(ctx, RoutingKeyCustomerUpdated, event)
}

func (p *LogPublisher) PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error {
	return p.log(ctx, RoutingKeyLoanStatusChanged, event)
}

func (p *LogPublisher) PublishPaymentSettled(ctx context.Context, event PaymentSettledEvent) error {
	return p.log(ctx, RoutingKeyPaymentSettled, event)
}

func (p *LogPublisher) PublishLoanOverdue(ctx context.Context, event LoanOverdueEvent) error {
	return p.log(ctx, RoutingKeyLoanOverdue, event)
}

func (p *LogPublisher) log(ctx context.Context, routingKey string, payload any) error {
	p.logger.InfoContext(ctx, "Event emitted", slog.String("routingKey", routingKey), slog.Any("payload", payload))
	return nil
}
