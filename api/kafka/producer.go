package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type Producer interface {
	SendConversionJob(ctx context.Context, topic string, job *ConversionJob) error
	Close() error
}

// ConversionJob is the message the worker consumes. Field names must stay
// in sync with the worker's copy.
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

type producer struct {
	producer sarama.SyncProducer
}

func NewProducer(brokers []string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p}, nil
}

// SendConversionJob keys messages by task ID so retries of one task stay on
// one partition.
func (p *producer) SendConversionJob(ctx context.Context, topic string, job *ConversionJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(job.TaskID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("trace_id"), Value: []byte(job.TraceID)},
		},
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
