// Package notify 实现库存事件的消息队列通知
//
// 低库存告警通过RabbitMQ topic交换机发出,补货系统、运营告警各自
// 绑定队列消费。通知失败只记日志,永远不影响主事务。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/domain/stock"
)

// 路由键
const (
	routingKeyLowStock = "stock.low"
)

// LowStockEvent 低库存告警事件
type LowStockEvent struct {
	ProductID  uint      `json:"product_id"`
	Available  int       `json:"available"`
	Threshold  int       `json:"threshold"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RabbitMQNotifier 基于RabbitMQ的库存事件通知器
// 实现stock.Notifier端口
type RabbitMQNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewRabbitMQNotifier 创建通知器
// 声明topic交换机(持久化),消费方自行声明并绑定队列
func NewRabbitMQNotifier(url, exchange string, log *zap.Logger) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	return &RabbitMQNotifier{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

// NotifyLowStock 发送低库存告警
func (n *RabbitMQNotifier) NotifyLowStock(ctx context.Context, productID uint, available, threshold int) error {
	event := LowStockEvent{
		ProductID:  productID,
		Available:  available,
		Threshold:  threshold,
		OccurredAt: time.Now(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("事件序列化失败: %w", err)
	}

	err = n.channel.PublishWithContext(
		ctx,
		n.exchange,
		routingKeyLowStock,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("发布低库存事件失败: %w", err)
	}

	n.log.Info("低库存告警已发出",
		zap.Uint("product_id", productID),
		zap.Int("available", available),
		zap.Int("threshold", threshold),
	)
	return nil
}

// Close 关闭连接
func (n *RabbitMQNotifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// NopNotifier 空实现
// 本地开发或测试环境没有RabbitMQ时使用
type NopNotifier struct{}

func (NopNotifier) NotifyLowStock(ctx context.Context, productID uint, available, threshold int) error {
	return nil
}

var (
	_ stock.Notifier = (*RabbitMQNotifier)(nil)
	_ stock.Notifier = NopNotifier{}
)
