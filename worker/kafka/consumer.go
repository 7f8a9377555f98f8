package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, job *ConversionJob) error

// ConversionJob mirrors the message published by the API.
type ConversionJob struct {
	TaskID       string `json:"task_id"`
	TraceID      string `json:"trace_id"`
	InputPath    string `json:"input_path"`
	OutputPath   string `json:"output_path"`
	Format       string `json:"format"`
	Quality      int    `json:"quality"`
	TargetWidth  *int   `json:"target_width,omitempty"`
	TargetHeight *int   `json:"target_height,omitempty"`
	Backend      string `json:"backend"`
}

var ErrInvalidJob = errors.New("invalid conversion job")

// DecodeJob parses a message value and checks the fields a conversion
// cannot run without.
func DecodeJob(data []byte) (*ConversionJob, error) {
	var job ConversionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	switch {
	case job.TaskID == "":
		return nil, fmt.Errorf("%w: missing task_id", ErrInvalidJob)
	case job.InputPath == "" || job.OutputPath == "":
		return nil, fmt.Errorf("%w: missing input or output path", ErrInvalidJob)
	}
	return &job, nil
}

type Consumer struct {
	consumer sarama.ConsumerGroup
	logger   *zap.Logger
}

func NewConsumer(brokers []string, groupID string, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c, logger: logger}, nil
}

type consumerHandler struct {
	fn     MessageHandler
	ctx    context.Context
	logger *zap.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim hands every decodable job to fn and marks the message once
// fn returns. Undecodable messages are logged and marked so they do not
// block the partition.
func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		job, err := DecodeJob(msg.Value)
		if err != nil {
			h.logger.Error("Dropping message",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			session.MarkMessage(msg, "")
			continue
		}

		if err := h.fn(h.ctx, job); err != nil {
			h.logger.Warn("Job handler failed",
				zap.String("task_id", job.TaskID),
				zap.String("trace_id", job.TraceID),
				zap.Error(err),
			)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

// Consume joins the group and serves claims until ctx is done. Rebalances
// end a session, so the join is repeated.
func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx, logger: c.logger}
	for {
		if err := c.consumer.Consume(ctx, []string{topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
