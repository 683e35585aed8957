package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	xerrors "SeiChat-Agent/internal/errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig 描述事件交换机的连接参数。
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// amqpChannel 是 RabbitMQSink 使用的 channel 子集。
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQSink 将事件以 JSON 发布到 topic 交换机。
type RabbitMQSink struct {
	conn       *amqp.Connection
	ch         amqpChannel
	exchange   string
	routingKey string
}

// NewRabbitMQSink 连接 RabbitMQ 并声明持久化的 topic 交换机。
func NewRabbitMQSink(cfg RabbitMQConfig) (*RabbitMQSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "seichat.events"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ 交换机失败: %w", err)
	}
	sink := newRabbitMQSink(ch, exchange, cfg.RoutingKey)
	sink.conn = conn
	return sink, nil
}

func newRabbitMQSink(ch amqpChannel, exchange, routingKey string) *RabbitMQSink {
	if routingKey == "" {
		routingKey = "command.outcome"
	}
	return &RabbitMQSink{ch: ch, exchange: exchange, routingKey: routingKey}
}

// Name 返回 Sink 名称。
func (s *RabbitMQSink) Name() string { return "rabbitmq" }

// Publish 以持久化消息发布事件。
func (s *RabbitMQSink) Publish(ctx context.Context, event CommandOutcome) error {
	if s == nil || s.ch == nil {
		return errors.New("RabbitMQ 事件通道未初始化")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         event.Command,
		Body:         body,
	})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "发布命令事件失败",
			xerrors.WithMetadata("exchange", s.exchange))
	}
	return nil
}

// Close 关闭 channel 与连接。
func (s *RabbitMQSink) Close() error {
	if s == nil {
		return nil
	}
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
