// Package alert 实现接触告警
// 只有持续时长与风险分同时达标、且该对不在冷却期内的碰撞才触发告警；
// 告警事件写入按日分片的 JSON 文件，并可选推送到 MQTT
package alert

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contact-monitor/internal/models"
)

// Notifier 向外部系统推送告警事件，失败不阻断监控
type Notifier interface {
	Notify(event models.AlertEvent) error
}

// Options 告警系统参数
type Options struct {
	MinRisk           float64
	DurationThreshold time.Duration
	Cooldown          time.Duration
	EnableAudio       bool
}

// System 告警判定与分发
type System struct {
	opts      Options
	log       *Log
	notifiers []Notifier
	logger    *zap.Logger

	recent map[models.PairKey]time.Time
}

// NewSystem 创建告警系统，log 为 nil 时不写告警文件
func NewSystem(opts Options, log *Log, notifiers []Notifier, logger *zap.Logger) *System {
	return &System{
		opts:      opts,
		log:       log,
		notifiers: notifiers,
		logger:    logger,
		recent:    make(map[models.PairKey]time.Time),
	}
}

// ShouldAlert 判定某次碰撞是否触发告警
// 通过判定的同时记录冷却时间戳
func (s *System) ShouldAlert(collision *models.Collision, now time.Time) bool {
	if collision == nil {
		return false
	}
	if collision.Duration < s.opts.DurationThreshold {
		return false
	}
	if collision.RiskScore < s.opts.MinRisk {
		return false
	}
	pair := collision.PairKey()
	if last, ok := s.recent[pair]; ok && now.Sub(last) < s.opts.Cooldown {
		return false
	}
	s.recent[pair] = now
	return true
}

// TriggerAlert 根据双视角碰撞快照生成并分发告警事件
// front 与 side 至少一个非空，优先以 front 为主
func (s *System) TriggerAlert(front, side *models.Collision, frameNumber int, verified bool, now time.Time) *models.AlertEvent {
	active := front
	if active == nil {
		active = side
	}
	if active == nil {
		return nil
	}

	event := models.AlertEvent{
		EventID:               uuid.New().String(),
		Timestamp:             now.UTC().Format(time.RFC3339),
		Person1:               active.Person1,
		Person2:               active.Person2,
		RiskLevel:             active.RiskLevel,
		RiskScore:             active.RiskScore,
		VerifiedByBothCameras: verified,
		FrameNumber:           frameNumber,
	}
	if front != nil {
		iou := front.IOU
		event.Camera1IOU = &iou
	}
	if side != nil {
		iou := side.IOU
		event.Camera2IOU = &iou
	}

	s.logger.Warn("contact_alert",
		zap.String("event_id", event.EventID),
		zap.String("person_1", event.Person1),
		zap.String("person_2", event.Person2),
		zap.String("risk_level", string(event.RiskLevel)),
		zap.Float64("risk_score", event.RiskScore),
		zap.Duration("contact_duration", active.Duration),
		zap.Bool("verified_by_both_cameras", verified))

	if s.opts.EnableAudio {
		s.beep()
	}
	if s.log != nil {
		if err := s.log.Append(event, now); err != nil {
			s.logger.Error("failed_to_write_alert_log", zap.Error(err))
		}
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(event); err != nil {
			s.logger.Error("failed_to_notify_alert",
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}
	return &event
}

// beep 终端响铃，失败忽略
func (s *System) beep() {
	fmt.Fprint(os.Stdout, "\a")
}
