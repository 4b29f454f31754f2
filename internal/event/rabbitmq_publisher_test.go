package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return nil
}

type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Channel() (amqpChannel, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(amqpChannel), args.Error(1)
}

func TestNewPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := new(MockChannel)
	opener := new(MockOpener)
	opener.On("Channel").Return(ch, nil)
	ch.On("ExchangeDeclare", "loans", amqp.ExchangeTopic, true, false, false, false, amqp.Table(nil)).Return(nil)

	pub, err := newPublisher(opener, "loans", testLogger)

	require.NoError(t, err)
	assert.NotNil(t, pub)
	ch.AssertExpectations(t)
}

func TestNewPublisher_Errors(t *testing.T) {
	t.Run("empty exchange", func(t *testing.T) {
		_, err := newPublisher(new(MockOpener), "", testLogger)
		assert.Error(t, err)
	})

	t.Run("channel failure", func(t *testing.T) {
		opener := new(MockOpener)
		opener.On("Channel").Return(nil, errors.New("connection closed"))

		_, err := newPublisher(opener, "loans", testLogger)
		assert.ErrorContains(t, err, "connection closed")
	})

	t.Run("nil connection", func(t *testing.T) {
		_, err := NewRabbitMQEventPublisher(nil, "loans", testLogger)
		assert.Error(t, err)
	})
}

func TestPublishPaymentSettled(t *testing.T) {
	ch := new(MockChannel)
	opener := new(MockOpener)
	opener.On("Channel").Return(ch, nil)
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	pub, err := newPublisher(opener, "loans", testLogger)
	require.NoError(t, err)

	var published amqp.Publishing
	ch.On("PublishWithContext", mock.Anything, "loans", RoutingKeyPaymentSettled, false, false, mock.AnythingOfType("amqp091.Publishing")).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil)

	event := PaymentSettledEvent{
		PaymentReference:  "ref-1",
		LoanID:            42,
		Amount:            decimal.RequireFromString("3000.00"),
		PenaltyPaid:       decimal.RequireFromString("50.00"),
		OutstandingAmount: decimal.RequireFromString("1000.00"),
		LoanStatus:        "ACTIVE",
		Timestamp:         time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishPaymentSettled(context.Background(), event))

	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, publisherAppID, published.AppId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(published.Body, &body))
	assert.Equal(t, "ref-1", body["paymentReference"])
	assert.Equal(t, "50", body["penaltyPaid"])
	ch.AssertExpectations(t)
}

func TestPublish_PropagatesBrokerError(t *testing.T) {
	ch := new(MockChannel)
	opener := new(MockOpener)
	opener.On("Channel").Return(ch, nil)
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ch.On("PublishWithContext", mock.Anything, mock.Anything, RoutingKeyLoanOverdue, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("channel closed"))

	pub, err := newPublisher(opener, "loans", testLogger)
	require.NoError(t, err)

	err = pub.PublishLoanOverdue(context.Background(), LoanOverdueEvent{LoanID: 1})
	assert.ErrorContains(t, err, "failed to publish message")
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(testLogger)

	assert.NoError(t, pub.PublishLoanStatusChanged(context.Background(), LoanStatusChangedEvent{LoanID: 1, OldStatus: "ACTIVE", NewStatus: "CLOSED"}))
	assert.NoError(t, pub.PublishCustomerCreated(context.Background(), CustomerCreatedEvent{}))
}
