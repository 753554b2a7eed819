package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"contact-monitor/internal/models"
)

// ReplaySource 从 JSONL 文件逐行回放检测帧
// 空行跳过，格式错误的行记日志后跳过，文件末尾返回 io.EOF
type ReplaySource struct {
	file    *os.File
	scanner *bufio.Scanner
	logger  *zap.Logger
	line    int
}

// NewReplaySource 打开回放文件
func NewReplaySource(path string, logger *zap.Logger) (*ReplaySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ReplaySource{file: file, scanner: scanner, logger: logger}, nil
}

// Next 返回文件中的下一帧
func (s *ReplaySource) Next(ctx context.Context) (*models.FrameDetections, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read replay file: %w", err)
			}
			return nil, io.EOF
		}
		s.line++

		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}
		var frame models.FrameDetections
		if err := json.Unmarshal([]byte(text), &frame); err != nil {
			s.logger.Warn("skipping_malformed_replay_line",
				zap.String("file", s.file.Name()),
				zap.Int("line", s.line),
				zap.Error(err))
			continue
		}
		return &frame, nil
	}
}

// Close 关闭回放文件
func (s *ReplaySource) Close() error {
	return s.file.Close()
}
