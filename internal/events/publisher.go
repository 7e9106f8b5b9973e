package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// Publisher 领域事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event *DomainEvent) error
	Close() error
}

// WatermillPublisher 基于 watermill 的发布实现，底层可以是 kafka 或进程内 channel
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	log       *zap.Logger
}

func NewWatermillPublisher(pub message.Publisher, topic string, log *zap.Logger) *WatermillPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &WatermillPublisher{publisher: pub, topic: topic, log: log}
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) (*WatermillPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewZapAdapter(log))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(pub, topic, log), nil
}

// NewChannelPubSub 进程内 pub/sub，单机部署与测试使用
func NewChannelPubSub(log *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewZapAdapter(log))
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *DomainEvent) error {
	_, span := tracing.StartSpan(ctx, "events.publish")
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		monitoring.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		monitoring.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		p.log.Error("发布事件失败",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return fmt.Errorf("publish event: %w", err)
	}

	monitoring.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
	p.log.Debug("事件已发布",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("topic", p.topic))
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// MemoryPublisher 仅记录事件，事件关闭或测试时使用
type MemoryPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Publish(_ context.Context, event *DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

func (m *MemoryPublisher) Events() []DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DomainEvent(nil), m.events...)
}

// NewPublisher 根据配置创建发布器
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		log.Info("事件发布未启用，使用内存发布器")
		return NewMemoryPublisher(), nil
	}

	switch cfg.Publisher {
	case "kafka":
		log.Info("创建 Kafka 事件发布器",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.Topic))
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic, log)
	case "channel", "":
		return NewWatermillPublisher(NewChannelPubSub(log), cfg.Topic, log), nil
	default:
		log.Warn("未知的事件发布器类型，使用进程内 channel", zap.String("publisher", cfg.Publisher))
		return NewWatermillPublisher(NewChannelPubSub(log), cfg.Topic, log), nil
	}
}
