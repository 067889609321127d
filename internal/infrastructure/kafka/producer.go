package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

// MessageWriter часть *kafka.Writer, которой пользуется Producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer публикует события о запросах к /caption.
type Producer struct {
	writer MessageWriter
	logger logger.Logger
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchSize:              10,
		BatchTimeout:           500 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s (%d message(s) lost)", err.Error(), len(messages))
			}
		},
	}

	return NewProducerWithWriter(writer, logger)
}

func NewProducerWithWriter(writer MessageWriter, logger logger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// Publish сериализует событие в JSON. Ключ сообщения request id.
func (p *Producer) Publish(ctx context.Context, event *domain.CaptionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RequestID),
		Value: value,
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (p *Producer) Close(context.Context) error {
	return p.writer.Close()
}
