package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config 接触监测服务配置
type Config struct {
	// Collision 碰撞检测配置
	Collision struct {
		IOUThreshold       float64 // 候选判定：IOU 下限
		DistanceThreshold  float64 // 候选判定：中心距离上限（像素）
		RequireBothCameras bool    // 告警是否要求两路摄像头同时检出
		MinRiskForAlert    float64 // 告警风险分下限
		AlertDurationSec   float64 // 告警持续时长下限（秒）
		AlertCooldownSec   float64 // 同一对人的告警冷却时间（秒）
		EnableAudio        bool    // 是否启用声音提示
		AlertLogDir        string  // 告警日志目录（按日期分文件）
	}

	// Contact 接触风险累积配置
	Contact struct {
		BaseRate         float64 // 确认接触时每秒的基础风险增量
		EventPenalty     float64 // 新接触开始时的一次性风险
		MaskEffect       float64 // 口罩对风险的削减强度
		MaskDecaySec     float64 // 口罩概率的有效期（秒）
		OverlapThreshold float64 // 进入近期接触缓存的风险分下限
		PairSyncWindow   float64 // 双摄像头同步窗口（秒）
		LedgerDir        string  // 接触台账目录（每人一个文件）
	}

	// Engine 主循环配置
	Engine struct {
		FrameInterval float64 // 固定帧间隔（秒）；0 表示使用实际流逝时间
		FrontView     string  // 前视标签
		SideView      string  // 侧视标签
	}

	// Source 检测输入来源配置
	Source struct {
		Backend       string // "redis" 或 "replay"
		FrontStream   string // 前视检测消息 Stream
		SideStream    string // 侧视检测消息 Stream
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int64
		FrontReplay   string // replay 模式：前视 JSONL 文件
		SideReplay    string // replay 模式：侧视 JSONL 文件
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// MQTT 告警外发配置（broker 为空则不启用）
	MQTT struct {
		Broker   string
		ClientID string
		Username string
		Password string
		QoS      byte
		Topic    string
	}

	// Ledger 台账后端配置
	Ledger struct {
		Backend string // "file"（默认）或 "postgres"
	}

	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Log struct {
		Level  string
		Format string
	}
}

// GetDSN 获取数据库连接字符串
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.Database, c.Database.SSLMode)
}

// Load 加载配置
// 环境变量名沿用既有部署的命名（COLLISION_*、CONTACT_*）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Collision.IOUThreshold = getEnvFloat("COLLISION_IOU_THRESHOLD", 0.1)
	cfg.Collision.DistanceThreshold = getEnvFloat("COLLISION_DISTANCE_THRESHOLD", 200.0)
	cfg.Collision.RequireBothCameras = getEnvBool("COLLISION_REQUIRE_BOTH_CAMERAS", true)
	cfg.Collision.MinRiskForAlert = getEnvFloat("COLLISION_MIN_RISK_FOR_ALERT", 0.4)
	cfg.Collision.AlertDurationSec = getEnvFloat("COLLISION_ALERT_DURATION", 10.0)
	cfg.Collision.AlertCooldownSec = getEnvFloat("COLLISION_ALERT_COOLDOWN", 12.0)
	cfg.Collision.EnableAudio = getEnvBool("COLLISION_ENABLE_AUDIO", false)
	cfg.Collision.AlertLogDir = getEnv("COLLISION_ALERT_LOG_DIR", "data/alerts")

	cfg.Contact.BaseRate = getEnvFloat("CONTACT_BASE_RATE", 0.02)
	cfg.Contact.EventPenalty = getEnvFloat("CONTACT_EVENT_PENALTY", 0.05)
	cfg.Contact.MaskEffect = getEnvFloat("CONTACT_MASK_EFFECT", 0.5)
	cfg.Contact.MaskDecaySec = getEnvFloat("CONTACT_MASK_DECAY_SECONDS", 8.0)
	cfg.Contact.OverlapThreshold = getEnvFloat("CONTACT_OVERLAP_THRESHOLD", 0.18)
	cfg.Contact.PairSyncWindow = getEnvFloat("CONTACT_SYNC_WINDOW", 0.5)
	cfg.Contact.LedgerDir = getEnv("CONTACT_LOG_DIR", "Contact_Details")

	cfg.Engine.FrameInterval = getEnvFloat("ENGINE_FRAME_INTERVAL", 1.0/30.0)
	cfg.Engine.FrontView = getEnv("ENGINE_FRONT_VIEW", "Front")
	cfg.Engine.SideView = getEnv("ENGINE_SIDE_VIEW", "Side")

	cfg.Source.Backend = getEnv("SOURCE_BACKEND", "redis")
	cfg.Source.FrontStream = getEnv("SOURCE_FRONT_STREAM", "detections:front")
	cfg.Source.SideStream = getEnv("SOURCE_SIDE_STREAM", "detections:side")
	cfg.Source.ConsumerGroup = getEnv("SOURCE_CONSUMER_GROUP", "contact-monitor")
	cfg.Source.ConsumerName = getEnv("SOURCE_CONSUMER_NAME", "contact-monitor-1")
	cfg.Source.BatchSize = int64(getEnvInt("SOURCE_BATCH_SIZE", 1))
	cfg.Source.FrontReplay = getEnv("SOURCE_FRONT_REPLAY", "")
	cfg.Source.SideReplay = getEnv("SOURCE_SIDE_REPLAY", "")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "contact-monitor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.Topic = getEnv("MQTT_ALERT_TOPIC", "contact-monitor/alerts")

	cfg.Ledger.Backend = getEnv("LEDGER_BACKEND", "file")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "contact_monitor")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Collision.IOUThreshold < 0 || c.Collision.IOUThreshold > 1 {
		return fmt.Errorf("COLLISION_IOU_THRESHOLD must be in [0,1], got %f", c.Collision.IOUThreshold)
	}
	if c.Collision.MinRiskForAlert < 0 || c.Collision.MinRiskForAlert > 1 {
		return fmt.Errorf("COLLISION_MIN_RISK_FOR_ALERT must be in [0,1], got %f", c.Collision.MinRiskForAlert)
	}
	if c.Contact.MaskEffect < 0 || c.Contact.MaskEffect > 1 {
		return fmt.Errorf("CONTACT_MASK_EFFECT must be in [0,1], got %f", c.Contact.MaskEffect)
	}
	if c.Source.Backend != "redis" && c.Source.Backend != "replay" {
		return fmt.Errorf("SOURCE_BACKEND must be \"redis\" or \"replay\", got %q", c.Source.Backend)
	}
	if c.Source.Backend == "replay" && (c.Source.FrontReplay == "" || c.Source.SideReplay == "") {
		return fmt.Errorf("replay backend requires SOURCE_FRONT_REPLAY and SOURCE_SIDE_REPLAY")
	}
	if c.Ledger.Backend != "file" && c.Ledger.Backend != "postgres" {
		return fmt.Errorf("LEDGER_BACKEND must be \"file\" or \"postgres\", got %q", c.Ledger.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return defaultValue
}
