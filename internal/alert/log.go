package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"contact-monitor/internal/models"
)

// Log 按日分片的告警文件
// 每个 UTC 日期一个 alerts_YYYY-MM-DD.json，内容为事件数组
type Log struct {
	dir    string
	logger *zap.Logger

	mu sync.Mutex
}

// NewLog 创建告警日志，目录不存在时自动创建
func NewLog(dir string, logger *zap.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create alert log directory: %w", err)
	}
	return &Log{dir: dir, logger: logger}, nil
}

// Append 把事件追加到当日分片
func (l *Log) Append(event models.AlertEvent, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.fileFor(now)
	events := l.readDay(path)
	events = append(events, event)

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal alert events: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write alert log: %w", err)
	}
	return nil
}

// ReadDay 返回某日的全部事件，文件缺失或损坏时返回空
func (l *Log) ReadDay(day time.Time) []models.AlertEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readDay(l.fileFor(day))
}

func (l *Log) fileFor(now time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("alerts_%s.json", now.UTC().Format("2006-01-02")))
}

func (l *Log) readDay(path string) []models.AlertEvent {
	data, err := os.ReadFile(path)
	if err != nil {
		return []models.AlertEvent{}
	}
	var events []models.AlertEvent
	if err := json.Unmarshal(data, &events); err != nil {
		// 损坏的分片从空数组重新开始
		l.logger.Warn("corrupt_alert_log_reset", zap.String("path", path), zap.Error(err))
		return []models.AlertEvent{}
	}
	return events
}
