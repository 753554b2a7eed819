package confirm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-monitor/internal/models"
)

func pair(a, b string) models.PairKey {
	return models.NewPairKey(a, b)
}

func obs(a, b string, overlap float64) PairObservation {
	return PairObservation{Key: pair(a, b), Overlap: overlap}
}

func TestRecentContactCache_TTLExpiry(t *testing.T) {
	cache := NewRecentContactCache(500 * time.Millisecond)
	now := time.Now()

	cache.Update([]PairObservation{obs("Alice", "Bob", 0.4)}, now)
	assert.True(t, cache.Contains(pair("Alice", "Bob")))

	// 窗口边界内仍然有效
	cache.Update(nil, now.Add(500*time.Millisecond))
	assert.True(t, cache.Contains(pair("Alice", "Bob")))

	// 超过窗口后被清除
	cache.Update(nil, now.Add(501*time.Millisecond))
	assert.False(t, cache.Contains(pair("Alice", "Bob")))
	assert.Equal(t, 0, cache.Len())
}

func TestRecentContactCache_UpdateRefreshesTimestamp(t *testing.T) {
	cache := NewRecentContactCache(500 * time.Millisecond)
	now := time.Now()

	cache.Update([]PairObservation{obs("Alice", "Bob", 0.4)}, now)
	cache.Update([]PairObservation{obs("Alice", "Bob", 0.6)}, now.Add(400*time.Millisecond))

	// 以最近一次观察计时
	cache.Update(nil, now.Add(800*time.Millisecond))
	assert.True(t, cache.Contains(pair("Alice", "Bob")))
}

func TestRecentContactCache_OverlapTracksLatestObservation(t *testing.T) {
	cache := NewRecentContactCache(time.Second)
	now := time.Now()

	cache.Update([]PairObservation{obs("Alice", "Bob", 0.4)}, now)
	overlap, ok := cache.Overlap(pair("Alice", "Bob"))
	require.True(t, ok)
	assert.Equal(t, 0.4, overlap)

	cache.Update([]PairObservation{obs("Alice", "Bob", 0.7)}, now.Add(100*time.Millisecond))
	overlap, ok = cache.Overlap(pair("Alice", "Bob"))
	require.True(t, ok)
	assert.Equal(t, 0.7, overlap)

	_, ok = cache.Overlap(pair("Carol", "Dave"))
	assert.False(t, ok)
}

func TestRecentContactCache_PairsSorted(t *testing.T) {
	cache := NewRecentContactCache(time.Second)
	now := time.Now()
	cache.Update([]PairObservation{obs("Carol", "Dave", 0.2), obs("Alice", "Bob", 0.5), obs("Bob", "Carol", 0.3)}, now)

	pairs := cache.Pairs()
	require.Len(t, pairs, 3)
	assert.Equal(t, pair("Alice", "Bob"), pairs[0])
	assert.Equal(t, pair("Bob", "Carol"), pairs[1])
	assert.Equal(t, pair("Carol", "Dave"), pairs[2])
}

func TestPairsFromCollisions_MinRiskGate(t *testing.T) {
	collisions := []models.Collision{
		{Person1: "Alice", Person2: "Bob", RiskScore: 0.5},
		{Person1: "Carol", Person2: "Dave", RiskScore: 0.1},
	}

	observations := PairsFromCollisions(collisions, 0.18)
	require.Len(t, observations, 1)
	assert.Equal(t, pair("Alice", "Bob"), observations[0].Key)
	assert.Equal(t, 0.5, observations[0].Overlap)

	// 阈值为零时全部通过
	assert.Len(t, PairsFromCollisions(collisions, 0), 2)
}

func TestConfirmedPairs_Intersection(t *testing.T) {
	front := NewRecentContactCache(time.Second)
	side := NewRecentContactCache(time.Second)
	now := time.Now()

	front.Update([]PairObservation{obs("Alice", "Bob", 0.5), obs("Carol", "Dave", 0.4)}, now)
	side.Update([]PairObservation{obs("Alice", "Bob", 0.3), obs("Bob", "Carol", 0.2)}, now)

	confirmed := ConfirmedPairs(front, side)
	require.Len(t, confirmed, 1)
	assert.Equal(t, pair("Alice", "Bob"), confirmed[0])
}

func TestConfirmedPairs_OneSideEmpty(t *testing.T) {
	front := NewRecentContactCache(time.Second)
	side := NewRecentContactCache(time.Second)
	front.Update([]PairObservation{obs("Alice", "Bob", 0.5)}, time.Now())

	assert.Empty(t, ConfirmedPairs(front, side))
}

func TestMatchCollisions(t *testing.T) {
	front := []models.Collision{
		{Person1: "Alice", Person2: "Bob", IOU: 0.5, RiskScore: 0.8, RiskLevel: models.RiskLevelCritical},
	}
	side := []models.Collision{
		{Person1: "Bob", Person2: "Alice", IOU: 0.3, RiskScore: 0.6, RiskLevel: models.RiskLevelHigh},
		{Person1: "Carol", Person2: "Dave", IOU: 0.2, RiskScore: 0.4, RiskLevel: models.RiskLevelMedium},
	}

	matched := MatchCollisions(front, side)
	require.Len(t, matched, 2)

	// 名字顺序不同仍合并到同一键
	ab := matched[pair("Alice", "Bob")]
	require.NotNil(t, ab.Front)
	require.NotNil(t, ab.Side)
	assert.True(t, ab.InBoth())
	assert.Equal(t, 0.5, ab.Front.IOU)
	assert.Equal(t, 0.3, ab.Side.IOU)

	cd := matched[pair("Carol", "Dave")]
	assert.Nil(t, cd.Front)
	require.NotNil(t, cd.Side)
	assert.False(t, cd.InBoth())
}

func TestMatchedPair_Primary(t *testing.T) {
	frontCollision := &models.Collision{Person1: "Alice", Person2: "Bob", RiskScore: 0.5}
	sideCollision := &models.Collision{Person1: "Alice", Person2: "Bob", RiskScore: 0.9}

	assert.Equal(t, frontCollision, MatchedPair{Front: frontCollision, Side: sideCollision}.Primary())
	assert.Equal(t, sideCollision, MatchedPair{Side: sideCollision}.Primary())
	assert.Nil(t, MatchedPair{}.Primary())
}

func TestSortedKeys(t *testing.T) {
	matched := map[models.PairKey]MatchedPair{
		pair("Carol", "Dave"): {},
		pair("Alice", "Bob"):  {},
	}
	keys := SortedKeys(matched)
	require.Len(t, keys, 2)
	assert.Equal(t, pair("Alice", "Bob"), keys[0])
	assert.Equal(t, pair("Carol", "Dave"), keys[1])
}
