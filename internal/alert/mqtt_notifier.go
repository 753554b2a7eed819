package alert

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"contact-monitor/internal/models"
	"contact-monitor/pkg/mqtt"
)

// MQTTNotifier 把告警事件以 JSON 发布到 MQTT 主题
// 连接断开时返回错误，由调用方记日志后继续
type MQTTNotifier struct {
	client *mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewMQTTNotifier 创建 MQTT 告警通道
func NewMQTTNotifier(client *mqtt.Client, topic string, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{client: client, topic: topic, logger: logger}
}

// Notify 发布一条告警事件
func (n *MQTTNotifier) Notify(event models.AlertEvent) error {
	if !n.client.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}
	if err := n.client.Publish(n.topic, false, payload); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	n.logger.Debug("alert_published",
		zap.String("topic", n.topic),
		zap.String("event_id", event.EventID))
	return nil
}
