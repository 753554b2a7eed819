// Package risk 实现口罩感知的风险累计
// 口罩记忆保存每人最近一次的佩戴概率并随时间线性衰减；
// 累计器按已确认接触对逐帧累计风险并在接触结束时落账
package risk

import (
	"time"
)

// maskObservation 某人最近一次口罩观察
type maskObservation struct {
	probability float64
	seen        time.Time
}

// MaskMemory 记录每人口罩佩戴概率
// 观察值在 decay 窗口内原样有效，超过窗口后视为未戴口罩
type MaskMemory struct {
	decay        time.Duration
	observations map[string]maskObservation
}

// NewMaskMemory 创建口罩记忆
func NewMaskMemory(decay time.Duration) *MaskMemory {
	return &MaskMemory{
		decay:        decay,
		observations: make(map[string]maskObservation),
	}
}

// Update 记录一帧的口罩观察结果
func (m *MaskMemory) Update(masks map[string]float64, now time.Time) {
	for person, probability := range masks {
		if probability < 0 {
			probability = 0
		}
		if probability > 1 {
			probability = 1
		}
		m.observations[person] = maskObservation{probability: probability, seen: now}
	}
	// 清除过期条目
	for person, obs := range m.observations {
		if now.Sub(obs.seen) > m.decay {
			delete(m.observations, person)
		}
	}
}

// Probability 返回某人当前的口罩佩戴概率
// 观察值在 decay 窗口内（含边界）按原值返回，过期返回 0
func (m *MaskMemory) Probability(person string, now time.Time) float64 {
	obs, ok := m.observations[person]
	if !ok {
		return 0
	}
	if now.Sub(obs.seen) > m.decay {
		return 0
	}
	return obs.probability
}

// Modifier 计算一对人员的风险调节因子
// 双方都戴口罩时传播风险相乘衰减，单侧下限 0.05
func (m *MaskMemory) Modifier(personA, personB string, effect float64, now time.Time) float64 {
	return maskFactor(m.Probability(personA, now), effect) * maskFactor(m.Probability(personB, now), effect)
}

func maskFactor(probability, effect float64) float64 {
	factor := 1 - probability*effect
	if factor < 0.05 {
		factor = 0.05
	}
	return factor
}
