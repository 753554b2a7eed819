package engine

import (
	"time"

	"go.uber.org/zap"
)

// Metrics 会话运行计数
type Metrics struct {
	FramesProcessed   int64
	CollisionsFront   int64
	CollisionsSide    int64
	ConfirmedContacts int64
	AlertsTriggered   int64

	started    time.Time
	lastReport time.Time
}

func newMetrics(now time.Time) *Metrics {
	return &Metrics{started: now, lastReport: now}
}

// maybeReport 每隔 interval 输出一次运行统计
func (m *Metrics) maybeReport(logger *zap.Logger, now time.Time, interval time.Duration) {
	if now.Sub(m.lastReport) < interval {
		return
	}
	m.lastReport = now
	logger.Info("session_stats",
		zap.Int64("frames_processed", m.FramesProcessed),
		zap.Int64("collisions_front", m.CollisionsFront),
		zap.Int64("collisions_side", m.CollisionsSide),
		zap.Int64("confirmed_contacts", m.ConfirmedContacts),
		zap.Int64("alerts_triggered", m.AlertsTriggered),
		zap.Duration("uptime", now.Sub(m.started)))
}
