package rabbitmq

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"videogate/internal/domain/entity"
)

type PipelineRunner interface {
	ProcessVideo(ctx context.Context, msg entity.VideoUploadedMessage) error
}

// VideoConsumer feeds uploaded-video messages to the pipeline. The Qos
// prefetch bounds in-flight runs: unacked deliveries never exceed it, so
// the prefetch count is the worker-pool size.
type VideoConsumer struct {
	channel  *amqp.Channel
	queue    string
	Runner   PipelineRunner
	Log      *slog.Logger
	prefetch int
}

func NewVideoConsumer(conn *amqp.Connection, exchange, routingKey, queue string, prefetch int, runner PipelineRunner, log *slog.Logger) (*VideoConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if prefetch <= 0 {
		prefetch = 4
	}

	consumer := &VideoConsumer{
		channel:  ch,
		queue:    queue,
		Runner:   runner,
		Log:      log,
		prefetch: prefetch,
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	if err := ch.QueueBind(
		queue,
		routingKey,
		exchange,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	if err := ch.Qos(consumer.prefetch, 0, false); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *VideoConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			c.Log.Info("video consumer shutting down")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.Log.Info("rabbitmq channel closed")
				return nil
			}

			var task entity.VideoUploadedMessage
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				c.Log.Error("failed to unmarshal video message", "error", err)
				_ = msg.Nack(false, false)
				continue
			}

			go func(task entity.VideoUploadedMessage, msg amqp.Delivery) {
				if err := c.Runner.ProcessVideo(ctx, task); err != nil {
					// The pipeline already moved the video to failed;
					// requeueing would replay a terminal run.
					c.Log.Error("pipeline run failed", "video_id", task.VideoID, "error", err)
					_ = msg.Nack(false, false)
					return
				}
				_ = msg.Ack(false)
			}(task, msg)
		}
	}
}
