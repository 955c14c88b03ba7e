package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/config"
	"github.com/ingeniumed/Sitsense/internal/consumer"
	"github.com/ingeniumed/Sitsense/internal/database"
	"github.com/ingeniumed/Sitsense/internal/mqtt"
	"github.com/ingeniumed/Sitsense/internal/notifier"
	"github.com/ingeniumed/Sitsense/internal/redis"
	"github.com/ingeniumed/Sitsense/internal/report"
	"github.com/ingeniumed/Sitsense/internal/repository"
	"github.com/ingeniumed/Sitsense/internal/tracker"
)

// TrackerService 遥测跟踪服务：MQTT入口、Redis流消费、状态转移与副作用执行
type TrackerService struct {
	cfg    *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client

	mqttConsumer   *consumer.MQTTConsumer
	streamConsumer *consumer.StreamConsumer

	cancel context.CancelFunc
}

// NewTrackerService 创建跟踪服务
func NewTrackerService(cfg *config.Config, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		cfg:    cfg,
		logger: logger,
	}
}

// Start 建立连接并启动消费
func (s *TrackerService) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	location, err := time.LoadLocation(s.cfg.Tracker.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %w", s.cfg.Tracker.Timezone, err)
	}

	db, err := database.NewPostgresDB(&s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	s.redisClient = redis.NewRedisClient(&s.cfg.Redis)
	if err := redis.Ping(ctx, s.redisClient); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	mqttClient, err := mqtt.NewClient(&s.cfg.MQTT, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	s.mqttClient = mqttClient

	beacons := repository.NewBeaconRepository(db, s.logger)
	reports := repository.NewReportRepository(db, s.logger)
	vaults := repository.NewTimeVaultRepository(db, s.logger)
	tokens := repository.NewSlackTokenRepository(db, s.logger)

	slackClient := notifier.NewClient(&s.cfg.Slack, s.logger)
	charts := report.NewChartRenderer(s.cfg.Tracker.MediaDir, s.logger)
	trk := tracker.New(s.logger)

	executor := NewEffectExecutor(
		beacons, reports, vaults, tokens,
		slackClient, charts, trk,
		s.cfg.Slack.MediaBaseURL,
		s.logger,
	)

	s.mqttConsumer = consumer.NewMQTTConsumer(
		mqttClient, s.redisClient,
		s.cfg.Tracker.Topic, s.cfg.MQTT.QoS, s.cfg.Tracker.Stream,
		s.logger,
	)

	s.streamConsumer = consumer.NewStreamConsumer(
		s.redisClient, beacons, executor, trk,
		consumer.NewDispatcher(),
		s.cfg.Tracker.Stream, s.cfg.Tracker.ConsumerGroup, s.cfg.Tracker.ConsumerName,
		s.cfg.Tracker.BatchSize, location,
		s.logger,
	)

	if err := s.streamConsumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start stream consumer: %w", err)
	}
	if err := s.mqttConsumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mqtt consumer: %w", err)
	}

	s.logger.Info("Tracker service started",
		zap.String("topic", s.cfg.Tracker.Topic),
		zap.String("stream", s.cfg.Tracker.Stream),
		zap.String("timezone", s.cfg.Tracker.Timezone),
	)
	return nil
}

// Stop 停止消费并释放连接
func (s *TrackerService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	if s.mqttConsumer != nil {
		s.mqttConsumer.Stop()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := redis.Close(s.redisClient); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Info("Tracker service stopped")
}
