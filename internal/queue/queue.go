package queue

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/OFFIS-RIT/graphrag/internal/util"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	retryTTL   = int32(10000)
	maxRetries = 10
)

// Publisher is the part of *amqp091.Channel used to publish messages.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Enabled reports whether a RabbitMQ host is configured.
func Enabled() bool {
	return util.GetEnv("RABBITMQ_HOST") != ""
}

// URL builds the connection URL from the environment.
func URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(util.GetEnvString("RABBITMQ_USER", "guest"), util.GetEnvString("RABBITMQ_PASSWORD", "guest")),
		Host:   util.GetEnv("RABBITMQ_HOST") + ":" + util.GetEnvString("RABBITMQ_PORT", "5672"),
		Path:   "/",
	}
	return u.String()
}

// Init connects to RabbitMQ.
func Init() (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue with a dead-letter queue and a retry
// queue that returns messages to the main queue after ten seconds.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("QueueDeclare %s failed: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(dlqName, true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("QueueDeclare %s failed: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             retryTTL,
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("QueueDeclare %s failed: %w", retryName, err)
		}
	}
	return nil
}

// PublishFIFO publishes a persistent message to queueName on the default
// exchange.
func PublishFIFO(ctx context.Context, ch Publisher, queueName string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	return ch.PublishWithContext(ctx, "", queueName, false, false, publishing)
}

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Consume delivers messages of queueName to handle one at a time until ctx
// ends or the channel closes. Failed messages go to the retry queue and,
// after ten retries, to the dead-letter queue.
func Consume(ctx context.Context, ch *amqp091.Channel, queueName string, handle Handler) error {
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(
		ctx,
		queueName,
		queueName+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping consumer", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queueName)
				return nil
			}
			Process(ctx, ch, queueName, msg, handle)
		}
	}
}

// Process runs handle for one delivery and settles it.
func Process(ctx context.Context, ch Publisher, queueName string, msg amqp091.Delivery, handle Handler) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queueName)

	if err := handle(ctx, msg.Body); err != nil {
		logger.Error("Error processing message", "queue", queueName, "err", err)
		HandleProcessingError(ctx, ch, msg, queueName)
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message", "err", err)
	}

	d := time.Since(startTime)
	logger.Info(
		"Message processed successfully",
		"queue", queueName,
		"duration", fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60),
	)
}

// HandleProcessingError moves a failed message to the retry queue with an
// incremented x-retries header, or to the dead-letter queue once the retry
// budget is spent. The original delivery is acked after the copy is
// published and requeued when publishing fails.
func HandleProcessingError(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string) {
	retries := Retries(msg.Headers)

	if retries >= maxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		err := ch.PublishWithContext(ctx, "", dlqName, false, false, amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      msg.Headers,
			DeliveryMode: amqp091.Persistent,
		})
		if err != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", err)
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Ack(false)
		return
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	retryName := queueName + "_retry"
	err := ch.PublishWithContext(ctx, "", retryName, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// Retries reads the x-retries header.
func Retries(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	}
	return 0
}
