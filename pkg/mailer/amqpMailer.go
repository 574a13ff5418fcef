package mailer

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/time-capsule/pkg/config"
)

// amqpMailer relays deliveries to an external mail worker through a RabbitMQ
// exchange instead of speaking SMTP itself.
type amqpMailer struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func NewAMQPMailer(cfg config.MailerSettings) (Mailer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &amqpMailer{
		connection: conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

func (a *amqpMailer) Send(ctx context.Context, delivery Delivery) error {
	if err := checkAddress(delivery.To); err != nil {
		return err
	}

	tracer := otel.Tracer("time-capsule")
	_, span := tracer.Start(ctx, "RelayDelivery",
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("rabbitmq"),
			semconv.MessagingDestinationKey.String(a.exchange),
			semconv.MessagingRabbitmqRoutingKeyKey.String(a.routingKey),
		),
	)
	defer span.End()

	payload, err := json.Marshal(delivery)
	if err != nil {
		span.RecordError(err)
		return &DeliveryError{To: delivery.To, Err: err}
	}

	err = a.channel.Publish(
		a.exchange, a.routingKey, false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		},
	)
	if err != nil {
		span.RecordError(err)
		return &DeliveryError{To: delivery.To, Err: err}
	}

	span.SetAttributes(
		attribute.Int("messaging.message_payload_size_bytes", len(payload)),
	)

	return nil
}

func (a *amqpMailer) Close() error {
	if a.channel != nil {
		a.channel.Close()
	}
	if a.connection != nil {
		return a.connection.Close()
	}
	return nil
}
