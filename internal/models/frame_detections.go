package models

import (
	"sort"
	"time"
)

// FrameDetections 单路视图每个节拍的检测输入
// 由外部的识别/跟踪协作方产生，boxes 按身份标签索引
// （"Unknown" 与空标签在转换时被剔除，不参与碰撞检测）
type FrameDetections struct {
	View        string             `json:"view"`
	FrameNumber int                `json:"frame_number"`
	FrameWidth  int                `json:"frame_width"`
	FrameHeight int                `json:"frame_height"`
	Timestamp   time.Time          `json:"timestamp"`
	Boxes       map[string]Rect    `json:"boxes"`
	Masks       map[string]float64 `json:"masks,omitempty"` // 身份 → 口罩佩戴概率 [0,1]
}

// BoundingBoxes 将 boxes 映射转换为有序的 BoundingBox 列表
// 按身份标签排序以保证处理顺序确定
func (f *FrameDetections) BoundingBoxes() []BoundingBox {
	names := make([]string, 0, len(f.Boxes))
	for name := range f.Boxes {
		if name == "" || name == "Unknown" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	boxes := make([]BoundingBox, 0, len(names))
	for _, name := range names {
		rect := f.Boxes[name]
		boxes = append(boxes, BoundingBox{
			Person:     name,
			X1:         rect.X1,
			Y1:         rect.Y1,
			X2:         rect.X2,
			Y2:         rect.Y2,
			Confidence: rect.Confidence,
		})
	}
	return boxes
}
