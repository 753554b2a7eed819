package risk

import (
	"time"

	"go.uber.org/zap"

	"contact-monitor/internal/models"
)

// Recorder 接收一段接触结束后的累计风险
// person 为账页归属人，other 为接触对象
// start/end 为该段接触的开始与最后一次活跃时刻
type Recorder interface {
	Record(person, other string, risk float64, start, end time.Time) error
}

// pairState 一对人员正在进行中的接触
type pairState struct {
	accumulated float64
	since       time.Time
	until       time.Time // 最后一次活跃的节拍时刻，每个活跃拍刷新
}

// PairRiskAccumulator 按已确认接触对累计风险
// 接触激活时加入事件惩罚，持续期间按帧累计，
// 接触结束时把累计值双向写入账本并移除状态
type PairRiskAccumulator struct {
	baseRate     float64
	eventPenalty float64
	maskEffect   float64
	masks        *MaskMemory
	recorder     Recorder
	logger       *zap.Logger

	active map[models.PairKey]*pairState
}

// NewPairRiskAccumulator 创建风险累计器
func NewPairRiskAccumulator(baseRate, eventPenalty, maskEffect float64, masks *MaskMemory, recorder Recorder, logger *zap.Logger) *PairRiskAccumulator {
	return &PairRiskAccumulator{
		baseRate:     baseRate,
		eventPenalty: eventPenalty,
		maskEffect:   maskEffect,
		masks:        masks,
		recorder:     recorder,
		logger:       logger,
		active:       make(map[models.PairKey]*pairState),
	}
}

// Tick 处理一帧的已确认接触对集合
// deltaT 为与上一帧的时间间隔（秒）
func (a *PairRiskAccumulator) Tick(confirmed []models.PairKey, now time.Time, deltaT float64) {
	present := make(map[models.PairKey]bool, len(confirmed))
	for _, pair := range confirmed {
		present[pair] = true

		state, ok := a.active[pair]
		if !ok {
			state = &pairState{since: now}
			state.accumulated += a.eventPenalty
			a.active[pair] = state
			a.logger.Debug("contact_activated",
				zap.String("person_a", pair.A),
				zap.String("person_b", pair.B))
		}
		state.until = now
		modifier := a.masks.Modifier(pair.A, pair.B, a.maskEffect, now)
		state.accumulated += a.baseRate * modifier * deltaT
	}

	for pair := range a.active {
		if !present[pair] {
			a.flush(pair)
		}
	}
}

// FlushAll 结算全部进行中的接触，由会话退出路径调用
func (a *PairRiskAccumulator) FlushAll() {
	for pair := range a.active {
		a.flush(pair)
	}
}

// ActiveCount 返回进行中的接触对数量
func (a *PairRiskAccumulator) ActiveCount() int {
	return len(a.active)
}

// Accumulated 返回某对当前的累计风险，不存在时返回 0
func (a *PairRiskAccumulator) Accumulated(pair models.PairKey) float64 {
	if state, ok := a.active[pair]; ok {
		return state.accumulated
	}
	return 0
}

// flush 把累计风险双向写入账本并移除状态
// 累计为零的接触只移除状态，不落账
func (a *PairRiskAccumulator) flush(pair models.PairKey) {
	state := a.active[pair]
	delete(a.active, pair)

	if state.accumulated <= 0 {
		return
	}

	if err := a.recorder.Record(pair.A, pair.B, state.accumulated, state.since, state.until); err != nil {
		a.logger.Error("failed_to_record_contact",
			zap.String("person", pair.A),
			zap.String("other", pair.B),
			zap.Error(err))
	}
	if err := a.recorder.Record(pair.B, pair.A, state.accumulated, state.since, state.until); err != nil {
		a.logger.Error("failed_to_record_contact",
			zap.String("person", pair.B),
			zap.String("other", pair.A),
			zap.Error(err))
	}
	a.logger.Info("contact_flushed",
		zap.String("person_a", pair.A),
		zap.String("person_b", pair.B),
		zap.Float64("accumulated_risk", state.accumulated),
		zap.Duration("contact_duration", state.until.Sub(state.since)))
}
