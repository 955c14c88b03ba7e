package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// SlackConfig Slack集成配置
type SlackConfig struct {
	APIBaseURL        string // Slack Web API 地址
	ClientID          string // OAuth client_id
	ClientSecret      string // OAuth client_secret
	MonitorChannel    string // 监控消息发送的频道
	MonitorToken      string // 监控频道使用的Token
	MediaBaseURL      string // 渲染后图表的公开地址前缀
	DisableDelivery   bool   // 开发环境下跳过真实发送
}

// Config sitsense 服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Slack    SlackConfig

	// 跟踪服务特定配置
	Tracker struct {
		Topic         string // 信标遥测主题，如 "beacon/+/telemetry"
		Stream        string // Redis Streams 流名称
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int64
		Timezone      string // 工作时间判定使用的时区
		MediaDir      string // 图表规格文件输出目录
	}

	// API服务特定配置
	HTTP struct {
		Addr      string
		SecretKey string // /beacon 和 /monitor 端点的访问密钥
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "sitsense")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "sitsense-tracker")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Slack.APIBaseURL = getEnv("SLACK_API_BASE_URL", "https://slack.com/api")
	cfg.Slack.ClientID = getEnv("SLACK_CLIENT_ID", "")
	cfg.Slack.ClientSecret = getEnv("SLACK_CLIENT_SECRET", "")
	cfg.Slack.MonitorChannel = getEnv("SLACK_MONITOR_CHANNEL", "#monitoring")
	cfg.Slack.MonitorToken = getEnv("SLACK_MONITOR_TOKEN", "")
	cfg.Slack.MediaBaseURL = getEnv("SLACK_MEDIA_BASE_URL", "https://api.sitsense.ca/media")
	cfg.Slack.DisableDelivery = getEnv("SLACK_DISABLE_DELIVERY", "") != ""

	cfg.Tracker.Topic = getEnv("BEACON_TOPIC", "beacon/+/telemetry")
	cfg.Tracker.Stream = getEnv("BEACON_STREAM", "beacon:telemetry:stream")
	cfg.Tracker.ConsumerGroup = getEnv("BEACON_CONSUMER_GROUP", "sitsense-tracker")
	cfg.Tracker.ConsumerName = getEnv("BEACON_CONSUMER_NAME", "tracker-1")
	cfg.Tracker.BatchSize = int64(getEnvInt("BEACON_BATCH_SIZE", 10))
	cfg.Tracker.Timezone = getEnv("TRACKER_TIMEZONE", "America/Toronto")
	cfg.Tracker.MediaDir = getEnv("TRACKER_MEDIA_DIR", "media")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":4390")
	cfg.HTTP.SecretKey = getEnv("HTTP_SECRET_KEY", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
