package source

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"contact-monitor/internal/models"
	"contact-monitor/pkg/redis"
)

// RedisSource 从 Redis Streams 消费检测帧
// 使用消费者组读取，成功解析后确认消息；格式错误的消息
// 确认后跳过，避免反复投递
type RedisSource struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	batch    int64
	logger   *zap.Logger

	pending []redis.StreamMessage
}

// NewRedisSource 创建流消费方并确保消费者组存在
func NewRedisSource(ctx context.Context, client *redis.Client, stream, group, consumer string, batch int64, logger *zap.Logger) (*RedisSource, error) {
	if err := redis.CreateConsumerGroup(ctx, client, stream, group); err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	if batch <= 0 {
		batch = 10
	}
	return &RedisSource{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		batch:    batch,
		logger:   logger,
	}, nil
}

// Next 返回下一个检测帧，阻塞直到有消息或 ctx 取消
func (s *RedisSource) Next(ctx context.Context) (*models.FrameDetections, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for len(s.pending) > 0 {
			msg := s.pending[0]
			s.pending = s.pending[1:]

			frame, err := s.parse(msg)
			s.ack(ctx, msg.ID)
			if err != nil {
				s.logger.Warn("skipping_malformed_frame",
					zap.String("stream", s.stream),
					zap.String("message_id", msg.ID),
					zap.Error(err))
				continue
			}
			return frame, nil
		}

		messages, err := redis.ReadFromStream(ctx, s.client, s.stream, s.group, s.consumer, s.batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read from stream: %w", err)
		}
		s.pending = messages
	}
}

// Close 流消费方不拥有连接，由调用方关闭客户端
func (s *RedisSource) Close() error {
	return nil
}

func (s *RedisSource) parse(msg redis.StreamMessage) (*models.FrameDetections, error) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("message missing data field")
	}
	var frame models.FrameDetections
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame: %w", err)
	}
	return &frame, nil
}

func (s *RedisSource) ack(ctx context.Context, id string) {
	if err := redis.AckMessage(ctx, s.client, s.stream, s.group, id); err != nil {
		s.logger.Warn("failed_to_ack_message",
			zap.String("stream", s.stream),
			zap.String("message_id", id),
			zap.Error(err))
	}
}
