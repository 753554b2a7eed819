package models

// AlertEvent 已触发告警的不可变记录（只追加，不修改）
type AlertEvent struct {
	EventID               string    `json:"event_id"`
	Timestamp             string    `json:"timestamp"` // ISO-8601 (UTC)
	Person1               string    `json:"person1"`
	Person2               string    `json:"person2"`
	RiskLevel             RiskLevel `json:"risk_level"`
	RiskScore             float64   `json:"risk_score"`
	Camera1IOU            *float64  `json:"camera1_iou"`
	Camera2IOU            *float64  `json:"camera2_iou"`
	VerifiedByBothCameras bool      `json:"verified_by_both_cameras"`
	FrameNumber           int       `json:"frame_number"`
}
