package alert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contact-monitor/internal/models"
)

func testOptions() Options {
	return Options{
		MinRisk:           0.4,
		DurationThreshold: 10 * time.Second,
		Cooldown:          12 * time.Second,
	}
}

func qualifyingCollision() *models.Collision {
	return &models.Collision{
		Person1:   "Alice",
		Person2:   "Bob",
		IOU:       0.5,
		RiskScore: 0.9,
		RiskLevel: models.RiskLevelCritical,
		Duration:  11 * time.Second,
	}
}

func TestShouldAlert_Gates(t *testing.T) {
	system := NewSystem(testOptions(), nil, nil, zap.NewNop())
	now := time.Now()

	assert.False(t, system.ShouldAlert(nil, now))

	short := qualifyingCollision()
	short.Duration = 9 * time.Second
	assert.False(t, system.ShouldAlert(short, now))

	lowRisk := qualifyingCollision()
	lowRisk.RiskScore = 0.39
	assert.False(t, system.ShouldAlert(lowRisk, now))

	assert.True(t, system.ShouldAlert(qualifyingCollision(), now))
}

func TestShouldAlert_Cooldown(t *testing.T) {
	system := NewSystem(testOptions(), nil, nil, zap.NewNop())
	now := time.Now()

	require.True(t, system.ShouldAlert(qualifyingCollision(), now))

	// 冷却期内压制
	assert.False(t, system.ShouldAlert(qualifyingCollision(), now.Add(11*time.Second)))

	// 冷却结束后再次触发
	assert.True(t, system.ShouldAlert(qualifyingCollision(), now.Add(12*time.Second)))
}

func TestShouldAlert_CooldownIgnoresNameOrder(t *testing.T) {
	system := NewSystem(testOptions(), nil, nil, zap.NewNop())
	now := time.Now()

	require.True(t, system.ShouldAlert(qualifyingCollision(), now))

	swapped := qualifyingCollision()
	swapped.Person1, swapped.Person2 = "Bob", "Alice"
	assert.False(t, system.ShouldAlert(swapped, now.Add(time.Second)))
}

func TestShouldAlert_SuppressedAttemptDoesNotRefreshCooldown(t *testing.T) {
	system := NewSystem(testOptions(), nil, nil, zap.NewNop())
	now := time.Now()

	require.True(t, system.ShouldAlert(qualifyingCollision(), now))
	assert.False(t, system.ShouldAlert(qualifyingCollision(), now.Add(11*time.Second)))
	// 被压制的尝试不刷新冷却起点
	assert.True(t, system.ShouldAlert(qualifyingCollision(), now.Add(12*time.Second)))
}

func TestTriggerAlert_EventFields(t *testing.T) {
	system := NewSystem(testOptions(), nil, nil, zap.NewNop())
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	front := qualifyingCollision()
	side := qualifyingCollision()
	side.IOU = 0.3

	event := system.TriggerAlert(front, side, 42, true, now)
	require.NotNil(t, event)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "2026-08-30T10:00:00Z", event.Timestamp)
	assert.Equal(t, "Alice", event.Person1)
	assert.Equal(t, "Bob", event.Person2)
	assert.Equal(t, models.RiskLevelCritical, event.RiskLevel)
	assert.Equal(t, 0.9, event.RiskScore)
	require.NotNil(t, event.Camera1IOU)
	assert.Equal(t, 0.5, *event.Camera1IOU)
	require.NotNil(t, event.Camera2IOU)
	assert.Equal(t, 0.3, *event.Camera2IOU)
	assert.True(t, event.VerifiedByBothCameras)
	assert.Equal(t, 42, event.FrameNumber)
}

func TestTriggerAlert_SideOnly(t *testing.T) {
	system := NewSystem(testOptions(), nil, nil, zap.NewNop())

	event := system.TriggerAlert(nil, qualifyingCollision(), 1, false, time.Now())
	require.NotNil(t, event)
	assert.Nil(t, event.Camera1IOU)
	require.NotNil(t, event.Camera2IOU)
	assert.False(t, event.VerifiedByBothCameras)
}

func TestTriggerAlert_BothNil(t *testing.T) {
	system := NewSystem(testOptions(), nil, nil, zap.NewNop())
	assert.Nil(t, system.TriggerAlert(nil, nil, 1, false, time.Now()))
}

type fakeNotifier struct {
	events []models.AlertEvent
	err    error
}

func (n *fakeNotifier) Notify(event models.AlertEvent) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func TestTriggerAlert_Notifies(t *testing.T) {
	notifier := &fakeNotifier{}
	system := NewSystem(testOptions(), nil, []Notifier{notifier}, zap.NewNop())

	system.TriggerAlert(qualifyingCollision(), nil, 1, false, time.Now())
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "Alice", notifier.events[0].Person1)
}

func TestTriggerAlert_NotifierErrorIsNonFatal(t *testing.T) {
	notifier := &fakeNotifier{err: assert.AnError}
	system := NewSystem(testOptions(), nil, []Notifier{notifier}, zap.NewNop())

	event := system.TriggerAlert(qualifyingCollision(), nil, 1, false, time.Now())
	assert.NotNil(t, event)
}

func TestLog_AppendAndReadDay(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir, zap.NewNop())
	require.NoError(t, err)

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	event := models.AlertEvent{EventID: "e1", Person1: "Alice", Person2: "Bob"}
	require.NoError(t, log.Append(event, now))
	require.NoError(t, log.Append(models.AlertEvent{EventID: "e2"}, now))

	events := log.ReadDay(now)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].EventID)

	// 文件名按 UTC 日期分片
	data, err := os.ReadFile(filepath.Join(dir, "alerts_2026-08-30.json"))
	require.NoError(t, err)
	var parsed []models.AlertEvent
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Len(t, parsed, 2)
}

func TestLog_DatePartitioning(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir, zap.NewNop())
	require.NoError(t, err)

	day1 := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append(models.AlertEvent{EventID: "e1"}, day1))
	require.NoError(t, log.Append(models.AlertEvent{EventID: "e2"}, day2))

	assert.Len(t, log.ReadDay(day1), 1)
	assert.Len(t, log.ReadDay(day2), 1)
}

func TestLog_CorruptFileResets(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir, zap.NewNop())
	require.NoError(t, err)

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alerts_2026-08-30.json"), []byte("{broken"), 0o644))

	require.NoError(t, log.Append(models.AlertEvent{EventID: "e1"}, now))
	events := log.ReadDay(now)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].EventID)
}
