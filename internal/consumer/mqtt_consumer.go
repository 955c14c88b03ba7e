package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
	"github.com/ingeniumed/Sitsense/internal/mqtt"
	"github.com/ingeniumed/Sitsense/internal/redis"
)

// MQTTConsumer 订阅网关遥测主题，把加速度计信标事件转入Redis流。
// 非加速度计类别在入口处丢弃，流里只有可处理的事件。
type MQTTConsumer struct {
	mqttClient  *mqtt.Client
	redisClient *redis.Client
	topic       string
	qos         byte
	stream      string
	logger      *zap.Logger
	now         func() int64
}

// NewMQTTConsumer 创建遥测入口消费者
func NewMQTTConsumer(mqttClient *mqtt.Client, redisClient *redis.Client, topic string, qos byte, stream string, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		mqttClient:  mqttClient,
		redisClient: redisClient,
		topic:       topic,
		qos:         qos,
		stream:      stream,
		logger:      logger,
		now:         func() int64 { return time.Now().Unix() },
	}
}

// Start 订阅遥测主题
func (c *MQTTConsumer) Start(ctx context.Context) error {
	handler := func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload)
	}

	if err := c.mqttClient.Subscribe(c.topic, c.qos, handler); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.mqttClient.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.String("topic", c.topic), zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

func (c *MQTTConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	var event models.TelemetryEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal telemetry payload: %w", err)
	}

	if event.DeviceID == "" {
		c.logger.Warn("Dropping telemetry without device id", zap.String("topic", topic))
		return nil
	}

	if !event.IsAccelerometer() {
		c.logger.Debug("Dropping non-accelerometer telemetry",
			zap.String("device_id", event.DeviceID),
			zap.Int("product_model", event.ProductModel),
		)
		return nil
	}

	if event.ReceivedAt == 0 {
		event.ReceivedAt = c.now()
	}

	id, err := redis.PublishJSONToStream(ctx, c.redisClient, c.stream, &event)
	if err != nil {
		return fmt.Errorf("failed to publish telemetry to stream: %w", err)
	}

	c.logger.Debug("Queued telemetry event",
		zap.String("device_id", event.DeviceID),
		zap.String("stream_id", id),
	)
	return nil
}
