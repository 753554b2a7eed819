// Package confirm 实现双视角接触确认
// 每个视角维护一个近期接触缓存（带 TTL），只有在两个视角的
// 同步窗口内都观察到的人员对才被视为已确认接触
package confirm

import (
	"sort"
	"time"

	"contact-monitor/internal/models"
)

// PairObservation 单一视角某一帧观察到的接触对及其重叠分
type PairObservation struct {
	Key     models.PairKey
	Overlap float64
}

// contactEntry 缓存条目：最近一次的重叠分与观察时刻
type contactEntry struct {
	overlap float64
	seen    time.Time
}

// RecentContactCache 记录单一视角内最近观察到的接触对
// 条目在 pair_sync_window 之后过期
type RecentContactCache struct {
	ttl     time.Duration
	entries map[models.PairKey]contactEntry
}

// NewRecentContactCache 创建接触缓存
func NewRecentContactCache(ttl time.Duration) *RecentContactCache {
	return &RecentContactCache{
		ttl:     ttl,
		entries: make(map[models.PairKey]contactEntry),
	}
}

// Update 记录当前帧观察到的接触对并清除过期条目
func (c *RecentContactCache) Update(observations []PairObservation, now time.Time) {
	for _, obs := range observations {
		c.entries[obs.Key] = contactEntry{overlap: obs.Overlap, seen: now}
	}
	for pair, entry := range c.entries {
		if now.Sub(entry.seen) > c.ttl {
			delete(c.entries, pair)
		}
	}
}

// Contains 判断接触对是否仍在同步窗口内
func (c *RecentContactCache) Contains(pair models.PairKey) bool {
	_, ok := c.entries[pair]
	return ok
}

// Overlap 返回接触对最近一次的重叠分，不在窗口内时第二个返回值为 false
func (c *RecentContactCache) Overlap(pair models.PairKey) (float64, bool) {
	entry, ok := c.entries[pair]
	return entry.overlap, ok
}

// Pairs 返回窗口内全部接触对（按键排序，保证遍历确定性）
func (c *RecentContactCache) Pairs() []models.PairKey {
	pairs := make([]models.PairKey, 0, len(c.entries))
	for pair := range c.entries {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// Len 返回窗口内接触对数量
func (c *RecentContactCache) Len() int {
	return len(c.entries)
}

// PairsFromCollisions 提取风险分达标的接触对观察
func PairsFromCollisions(collisions []models.Collision, minRisk float64) []PairObservation {
	observations := make([]PairObservation, 0, len(collisions))
	for _, collision := range collisions {
		if collision.RiskScore < minRisk {
			continue
		}
		observations = append(observations, PairObservation{
			Key:     collision.PairKey(),
			Overlap: collision.RiskScore,
		})
	}
	return observations
}

// ConfirmedPairs 返回两个视角缓存的交集
func ConfirmedPairs(front, side *RecentContactCache) []models.PairKey {
	confirmed := make([]models.PairKey, 0)
	for _, pair := range front.Pairs() {
		if side.Contains(pair) {
			confirmed = append(confirmed, pair)
		}
	}
	return confirmed
}

// MatchedPair 保存同一人员对在两个视角下的碰撞快照
// 任一视角可能缺席（为 nil）
type MatchedPair struct {
	Front *models.Collision
	Side  *models.Collision
}

// Primary 返回用于告警的主碰撞：优先取前视角
func (m MatchedPair) Primary() *models.Collision {
	if m.Front != nil {
		return m.Front
	}
	return m.Side
}

// InBoth 判断该对是否在两个视角同时出现
func (m MatchedPair) InBoth() bool {
	return m.Front != nil && m.Side != nil
}

// MatchCollisions 按人员对键合并两个视角的碰撞列表
func MatchCollisions(front, side []models.Collision) map[models.PairKey]MatchedPair {
	matched := make(map[models.PairKey]MatchedPair)
	for i := range front {
		key := front[i].PairKey()
		entry := matched[key]
		entry.Front = &front[i]
		matched[key] = entry
	}
	for i := range side {
		key := side[i].PairKey()
		entry := matched[key]
		entry.Side = &side[i]
		matched[key] = entry
	}
	return matched
}

// SortedKeys 返回匹配表的有序键，供告警循环确定性遍历
func SortedKeys(matched map[models.PairKey]MatchedPair) []models.PairKey {
	keys := make([]models.PairKey, 0, len(matched))
	for key := range matched {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}
