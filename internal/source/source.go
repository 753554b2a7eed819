// Package source 提供检测帧输入通道
// 生产环境从 Redis Streams 消费上游识别服务发布的检测帧；
// 离线回放从 JSONL 文件逐行读取，供复盘与测试使用
package source

import (
	"context"

	"contact-monitor/internal/models"
)

// FrameSource 单路视图的检测帧来源
// 帧耗尽时 Next 返回 io.EOF
type FrameSource interface {
	Next(ctx context.Context) (*models.FrameDetections, error)
	Close() error
}
