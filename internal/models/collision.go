package models

import "time"

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLevelSafe     RiskLevel = "SAFE"
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// RiskLevelFor 按风险分映射风险等级
// 边界为左闭右开：[0,0.2)→SAFE, [0.2,0.4)→LOW, [0.4,0.6)→MEDIUM, [0.6,0.8)→HIGH, [0.8,∞)→CRITICAL
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score < 0.2:
		return RiskLevelSafe
	case score < 0.4:
		return RiskLevelLow
	case score < 0.6:
		return RiskLevelMedium
	case score < 0.8:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// PairKey 无序人员对的规范键
// (A,B) 与 (B,A) 归一为同一个键（按字典序排序）
type PairKey struct {
	A string
	B string
}

// NewPairKey 创建规范化的人员对键
func NewPairKey(person1, person2 string) PairKey {
	if person2 < person1 {
		person1, person2 = person2, person1
	}
	return PairKey{A: person1, B: person2}
}

// Collision 单路视图中一对人员的近距离接触候选
type Collision struct {
	Person1   string
	Person2   string
	Box1      BoundingBox
	Box2      BoundingBox
	IOU       float64
	Distance  float64
	RiskLevel RiskLevel
	RiskScore float64

	// 以下字段由 CollisionTracker 在跨帧跟踪时填充
	StartTime  time.Time
	Duration   time.Duration
	FrameCount int
}

// PairKey 返回该接触对的规范键
func (c *Collision) PairKey() PairKey {
	return NewPairKey(c.Person1, c.Person2)
}
