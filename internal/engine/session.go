// Package engine 实现双视角接触监控会话
// 每个节拍从前视角与侧视角各取一帧，依次执行碰撞检测、
// 跨视角确认、风险累计与告警判定；会话结束时结算全部
// 进行中的接触
package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"contact-monitor/internal/alert"
	"contact-monitor/internal/confirm"
	"contact-monitor/internal/detector"
	"contact-monitor/internal/models"
	"contact-monitor/internal/risk"
	"contact-monitor/internal/source"
)

// 帧间隔下限，防止时间戳异常时风险累计失真
const minDeltaT = 1.0 / 30.0

// statsInterval 运行统计输出间隔
const statsInterval = 30 * time.Second

// Options 会话参数
type Options struct {
	IOUThreshold       float64
	DistanceThreshold  float64
	OverlapThreshold   float64
	PairSyncWindow     time.Duration
	FrameInterval      float64 // 秒；为零时按帧时间戳实测
	RequireBothCameras bool
	FrontView          string
	SideView           string
}

// Session 一次监控运行的全部状态
type Session struct {
	opts        Options
	frontSource source.FrameSource
	sideSource  source.FrameSource
	accumulator *risk.PairRiskAccumulator
	masks       *risk.MaskMemory
	alerts      *alert.System
	logger      *zap.Logger

	frontTracker *detector.CollisionTracker
	sideTracker  *detector.CollisionTracker
	frontCache   *confirm.RecentContactCache
	sideCache    *confirm.RecentContactCache

	metrics  *Metrics
	lastTick time.Time
}

// NewSession 创建监控会话
func NewSession(
	opts Options,
	frontSource, sideSource source.FrameSource,
	accumulator *risk.PairRiskAccumulator,
	masks *risk.MaskMemory,
	alerts *alert.System,
	logger *zap.Logger,
) *Session {
	return &Session{
		opts:         opts,
		frontSource:  frontSource,
		sideSource:   sideSource,
		accumulator:  accumulator,
		masks:        masks,
		alerts:       alerts,
		logger:       logger,
		frontTracker: detector.NewCollisionTracker(),
		sideTracker:  detector.NewCollisionTracker(),
		frontCache:   confirm.NewRecentContactCache(opts.PairSyncWindow),
		sideCache:    confirm.NewRecentContactCache(opts.PairSyncWindow),
		metrics:      newMetrics(time.Now()),
	}
}

// Metrics 返回会话计数快照
func (s *Session) Metrics() Metrics {
	return *s.metrics
}

// Run 以锁步方式消费两路帧流直到耗尽或 ctx 取消
// 退出前结算全部进行中的接触
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		s.accumulator.FlushAll()
		s.logger.Info("session_stopped",
			zap.Int64("frames_processed", s.metrics.FramesProcessed),
			zap.Int64("alerts_triggered", s.metrics.AlertsTriggered))
	}()

	s.logger.Info("session_started",
		zap.String("front_view", s.opts.FrontView),
		zap.String("side_view", s.opts.SideView),
		zap.Bool("require_both_cameras", s.opts.RequireBothCameras))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		front, err := s.frontSource.Next(ctx)
		if err != nil {
			return s.sourceStop(s.opts.FrontView, err)
		}
		side, err := s.sideSource.Next(ctx)
		if err != nil {
			return s.sourceStop(s.opts.SideView, err)
		}

		now := front.Timestamp
		if now.IsZero() {
			now = time.Now()
		}
		s.Tick(front, side, now)
	}
}

// Tick 处理一对同节拍的帧
func (s *Session) Tick(front, side *models.FrameDetections, now time.Time) {
	deltaT := s.deltaT(now)
	s.metrics.FramesProcessed++

	s.masks.Update(front.Masks, now)
	s.masks.Update(side.Masks, now)

	frontCollisions := s.trackView(s.frontTracker, front, now)
	sideCollisions := s.trackView(s.sideTracker, side, now)
	s.metrics.CollisionsFront += int64(len(frontCollisions))
	s.metrics.CollisionsSide += int64(len(sideCollisions))

	s.frontCache.Update(confirm.PairsFromCollisions(frontCollisions, s.opts.OverlapThreshold), now)
	s.sideCache.Update(confirm.PairsFromCollisions(sideCollisions, s.opts.OverlapThreshold), now)

	confirmed := confirm.ConfirmedPairs(s.frontCache, s.sideCache)
	s.metrics.ConfirmedContacts += int64(len(confirmed))

	s.accumulator.Tick(confirmed, now, deltaT)

	s.evaluateAlerts(frontCollisions, sideCollisions, front.FrameNumber, now)
	s.metrics.maybeReport(s.logger, now, statsInterval)
}

// trackView 对一路视图做碰撞检测并更新持续时长
func (s *Session) trackView(tracker *detector.CollisionTracker, frame *models.FrameDetections, now time.Time) []models.Collision {
	opts := detector.Options{
		IOUThreshold:      s.opts.IOUThreshold,
		DistanceThreshold: s.opts.DistanceThreshold,
		FrameWidth:        frame.FrameWidth,
		FrameHeight:       frame.FrameHeight,
	}
	collisions := detector.DetectCollisions(frame.BoundingBoxes(), opts)
	return tracker.Update(collisions, now)
}

// evaluateAlerts 按人员对合并两路碰撞并逐对判定告警
// verified 只在本节拍两路视图同时检出该对时为真
func (s *Session) evaluateAlerts(frontCollisions, sideCollisions []models.Collision, frameNumber int, now time.Time) {
	matched := confirm.MatchCollisions(frontCollisions, sideCollisions)
	for _, key := range confirm.SortedKeys(matched) {
		pair := matched[key]
		verified := pair.InBoth()
		if s.opts.RequireBothCameras && !verified {
			continue
		}
		if !s.alerts.ShouldAlert(pair.Primary(), now) {
			continue
		}
		if event := s.alerts.TriggerAlert(pair.Front, pair.Side, frameNumber, verified, now); event != nil {
			s.metrics.AlertsTriggered++
		}
	}
}

// deltaT 计算与上一节拍的时间差（秒）
func (s *Session) deltaT(now time.Time) float64 {
	if s.opts.FrameInterval > 0 {
		s.lastTick = now
		return s.opts.FrameInterval
	}
	if s.lastTick.IsZero() {
		s.lastTick = now
		return minDeltaT
	}
	delta := now.Sub(s.lastTick).Seconds()
	s.lastTick = now
	if delta < minDeltaT {
		return minDeltaT
	}
	return delta
}

// sourceStop 区分正常耗尽与读取错误
func (s *Session) sourceStop(view string, err error) error {
	if errors.Is(err, io.EOF) {
		s.logger.Info("frame_source_exhausted", zap.String("view", view))
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	s.logger.Error("frame_source_failed", zap.String("view", view), zap.Error(err))
	return err
}
