package models

// Rect 像素坐标矩形（x1,y1 左上角，x2,y2 右下角）
type Rect struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float64 `json:"confidence,omitempty"`
}

// BoundingBox 单个已识别人员的跟踪框
type BoundingBox struct {
	Person     string  `json:"person"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// Width 宽度（负值夹取为 0）
func (b BoundingBox) Width() int {
	if b.X2 < b.X1 {
		return 0
	}
	return b.X2 - b.X1
}

// Height 高度（负值夹取为 0）
func (b BoundingBox) Height() int {
	if b.Y2 < b.Y1 {
		return 0
	}
	return b.Y2 - b.Y1
}

// Center 中心点坐标
func (b BoundingBox) Center() (float64, float64) {
	return float64(b.X1+b.X2) / 2.0, float64(b.Y1+b.Y2) / 2.0
}
