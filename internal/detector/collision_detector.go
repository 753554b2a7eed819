// Package detector 提供单路视图的碰撞检测
//
// 主要功能：
// - 对一帧内所有人员框做两两几何判定（IOU + 中心距离）
// - 候选判定是"或"关系：IOU 达标或距离达标即进入候选
//   （有意覆盖紧邻但不重叠的接触场景）
// - 风险分 = 0.7*IOU + 0.3*(1 - 距离/画面对角线)，重叠权重高于邻近
// - CollisionTracker 在连续帧之间维护接触时长
package detector

import (
	"math"
	"sort"
	"time"

	"contact-monitor/internal/models"
)

// Options 碰撞检测参数
type Options struct {
	IOUThreshold      float64 // 候选判定：IOU 下限
	DistanceThreshold float64 // 候选判定：中心距离上限（像素）
	FrameWidth        int
	FrameHeight       int
}

// CalculateIOU 计算两个矩形框的交并比
// 不重叠或任一框面积为零时返回 0；面积下限夹取为 1，避免除零
func CalculateIOU(a, b models.BoundingBox) float64 {
	ix1 := maxInt(a.X1, b.X1)
	iy1 := maxInt(a.Y1, b.Y1)
	ix2 := minInt(a.X2, b.X2)
	iy2 := minInt(a.Y2, b.Y2)

	interW := maxInt(0, ix2-ix1)
	interH := maxInt(0, iy2-iy1)
	if interW == 0 || interH == 0 {
		return 0.0
	}

	interArea := float64(interW * interH)
	areaA := float64(maxInt(1, a.Width()*a.Height()))
	areaB := float64(maxInt(1, b.Width()*b.Height()))
	union := areaA + areaB - interArea
	if union <= 0 {
		return 0.0
	}
	return interArea / union
}

// CalculateDistance 计算两个矩形框中心点的欧氏距离
func CalculateDistance(a, b models.BoundingBox) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	return math.Hypot(ax-bx, ay-by)
}

// CalculateRiskScore 计算风险分
// 按画面对角线归一化距离；结果夹取到 [0,1]
func CalculateRiskScore(iou, distance, frameDiagonal float64) float64 {
	normalizedDistance := 1.0
	if frameDiagonal > 0 {
		normalizedDistance = distance / frameDiagonal
	}

	const iouWeight = 0.7
	const distanceWeight = 0.3

	iouRisk := clamp01(iou)
	distanceRisk := math.Max(0.0, 1.0-normalizedDistance)

	return clamp01(iouWeight*iouRisk + distanceWeight*distanceRisk)
}

// DetectCollisions 检测一帧内的所有碰撞候选
// 按 i<j 的输入顺序两两判定，结果按风险分降序（稳定排序）
func DetectCollisions(boxes []models.BoundingBox, opts Options) []models.Collision {
	if len(boxes) == 0 {
		return nil
	}

	frameDiagonal := math.Hypot(float64(opts.FrameWidth), float64(opts.FrameHeight))

	var collisions []models.Collision
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			box1 := boxes[i]
			box2 := boxes[j]
			iou := CalculateIOU(box1, box2)
			distance := CalculateDistance(box1, box2)
			if iou < opts.IOUThreshold && distance > opts.DistanceThreshold {
				continue
			}
			riskScore := CalculateRiskScore(iou, distance, frameDiagonal)
			collisions = append(collisions, models.Collision{
				Person1:   box1.Person,
				Person2:   box2.Person,
				Box1:      box1,
				Box2:      box2,
				IOU:       iou,
				Distance:  distance,
				RiskScore: riskScore,
				RiskLevel: models.RiskLevelFor(riskScore),
			})
		}
	}

	sort.SliceStable(collisions, func(i, j int) bool {
		return collisions[i].RiskScore > collisions[j].RiskScore
	})
	return collisions
}

// CollisionTracker 单路视图的接触时长跟踪器
//
// 每个节拍用当前帧的碰撞集合更新：已有的对累加时长与帧数，
// 新出现的对从零开始；本帧未出现的对立即删除——
// 单帧丢失即会把该对的时长归零（无遮挡容忍，按既有行为保留）
type CollisionTracker struct {
	active map[models.PairKey]models.Collision
}

// NewCollisionTracker 创建接触时长跟踪器
func NewCollisionTracker() *CollisionTracker {
	return &CollisionTracker{
		active: make(map[models.PairKey]models.Collision),
	}
}

// Update 用当前帧的碰撞集合更新跟踪状态
// 返回填充了 StartTime/Duration/FrameCount 的碰撞列表，顺序与输入一致
func (t *CollisionTracker) Update(current []models.Collision, now time.Time) []models.Collision {
	currentKeys := make(map[models.PairKey]struct{}, len(current))
	updated := make([]models.Collision, 0, len(current))

	for _, collision := range current {
		key := collision.PairKey()
		currentKeys[key] = struct{}{}
		if existing, ok := t.active[key]; ok {
			collision.StartTime = existing.StartTime
			collision.Duration = now.Sub(existing.StartTime)
			collision.FrameCount = existing.FrameCount + 1
		} else {
			collision.StartTime = now
			collision.Duration = 0
			collision.FrameCount = 1
		}
		t.active[key] = collision
		updated = append(updated, collision)
	}

	for key := range t.active {
		if _, ok := currentKeys[key]; !ok {
			delete(t.active, key)
		}
	}

	return updated
}

// ActiveCount 当前跟踪中的接触对数量
func (t *CollisionTracker) ActiveCount() int {
	return len(t.active)
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
