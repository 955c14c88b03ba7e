package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
	"github.com/ingeniumed/Sitsense/internal/redis"
	"github.com/ingeniumed/Sitsense/internal/repository"
	"github.com/ingeniumed/Sitsense/internal/tracker"
)

// 流读取失败时的退避区间
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// BeaconLoader 设备状态读取
type BeaconLoader interface {
	GetBeacon(deviceID string) (*models.BeaconState, error)
}

// EffectRunner 副作用执行与设备登记
type EffectRunner interface {
	Execute(ctx context.Context, effects []models.SideEffect) error
	Enroll(ctx context.Context, event *models.TelemetryEvent, tags tracker.Tags, wh tracker.WorkHourDetails) (*models.BeaconState, error)
}

// StreamConsumer 从Redis流消费遥测事件并驱动状态转移
type StreamConsumer struct {
	redisClient *redis.Client
	beacons     BeaconLoader
	runner      EffectRunner
	tracker     *tracker.Tracker
	dispatcher  *Dispatcher

	stream        string
	consumerGroup string
	consumerName  string
	batchSize     int64
	location      *time.Location

	logger *zap.Logger
}

// NewStreamConsumer 创建流消费者
func NewStreamConsumer(
	redisClient *redis.Client,
	beacons BeaconLoader,
	runner EffectRunner,
	trk *tracker.Tracker,
	dispatcher *Dispatcher,
	stream, consumerGroup, consumerName string,
	batchSize int64,
	location *time.Location,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		redisClient:   redisClient,
		beacons:       beacons,
		runner:        runner,
		tracker:       trk,
		dispatcher:    dispatcher,
		stream:        stream,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
		batchSize:     batchSize,
		location:      location,
		logger:        logger,
	}
}

// Start 创建消费者组并启动消费循环
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := redis.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.consumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)

	c.logger.Info("Stream consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.consumerGroup),
		zap.String("consumer_name", c.consumerName),
	)
	return nil
}

func (c *StreamConsumer) run(ctx context.Context) {
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stream consumer stopped")
			return
		default:
		}

		if err := c.consumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("Failed to read from stream",
				zap.String("stream", c.stream),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
	}
}

// consumeOnce 读取一批消息并逐条处理。
// 持久化失败的消息不确认，留在pending列表等待重投。
func (c *StreamConsumer) consumeOnce(ctx context.Context) error {
	messages, err := redis.ReadFromStream(ctx, c.redisClient, c.stream, c.consumerGroup, c.consumerName, c.batchSize)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		if err := c.process(ctx, msg); err != nil {
			c.logger.Error("Failed to process telemetry event",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
			if errors.Is(err, models.ErrPersistence) {
				continue
			}
		}

		if err := redis.AckMessage(ctx, c.redisClient, c.stream, c.consumerGroup, msg.ID); err != nil {
			c.logger.Error("Failed to ack message",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (c *StreamConsumer) process(ctx context.Context, msg redis.StreamMessage) error {
	event, err := models.ParseTelemetryEvent(msg.Values)
	if err != nil {
		// 无法解析的消息重放也无济于事，记录后确认
		c.logger.Warn("Dropping malformed stream message",
			zap.String("stream_id", msg.ID),
			zap.Error(err),
		)
		return nil
	}

	if !event.IsAccelerometer() {
		return nil
	}

	eventTime := time.Unix(event.ReceivedAt, 0).In(c.location)
	wh := tracker.GetWorkHourDetails(eventTime)
	if !wh.IsDuringWorkHours {
		c.logger.Debug("Dropping telemetry outside work hours",
			zap.String("device_id", event.DeviceID),
			zap.Int("day_of_week", wh.DayOfWeek),
		)
		return nil
	}

	tags := tracker.ExtractTags(event.DeviceTags)
	if tags.Email == "" || tags.TeamID == "" {
		c.logger.Warn("Dropping telemetry without identity tags",
			zap.String("device_id", event.DeviceID),
			zap.String("device_tags", event.DeviceTags),
		)
		return nil
	}

	unlock := c.dispatcher.Lock(event.DeviceID)
	defer unlock()

	prior, err := c.beacons.GetBeacon(event.DeviceID)
	if err != nil {
		if errors.Is(err, repository.ErrBeaconNotFound) {
			_, err := c.runner.Enroll(ctx, event, tags, wh)
			return err
		}
		return fmt.Errorf("%w: load beacon %s: %v", models.ErrPersistence, event.DeviceID, err)
	}

	// 标签与存量状态不一致说明信标被重新分配，拒绝以免串账
	if prior.Email != tags.Email || prior.TeamID != tags.TeamID {
		c.logger.Warn("Telemetry identity mismatch",
			zap.String("device_id", event.DeviceID),
			zap.String("stored_email", prior.Email),
			zap.String("tag_email", tags.Email),
		)
		return nil
	}

	if tracker.TooSoon(prior.UpdatedAt, wh.CurrentTime) {
		c.logger.Debug("Dropping duplicate telemetry",
			zap.String("device_id", event.DeviceID),
			zap.Int64("gap", wh.CurrentTime-prior.UpdatedAt),
		)
		return nil
	}

	_, effects := c.tracker.Transition(*prior, event, wh)
	return c.runner.Execute(ctx, effects)
}
