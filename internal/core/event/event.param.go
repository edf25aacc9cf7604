package event

import (
	"fmt"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
)

// EventOutput /events 接口的单条输出
type EventOutput struct {
	Timestamp       string         `json:"timestamp"`        // ISO-8601
	ObjectsDetected []ObjectOutput `json:"objects_detected"` // 检测目标
}

// ObjectOutput 置信度保留两位小数的字符串
type ObjectOutput struct {
	Class      string `json:"class"`
	Confidence string `json:"confidence"`
}

// NewEventOutput 转换为接口输出格式
func NewEventOutput(e SecurityEvent) EventOutput {
	objs := make([]ObjectOutput, 0, len(e.ObjectsDetected))
	for _, o := range e.ObjectsDetected {
		objs = append(objs, ObjectOutput{
			Class:      o.Class,
			Confidence: fmt.Sprintf("%.2f", o.Confidence),
		})
	}
	return EventOutput{
		Timestamp:       e.Timestamp.Format(time.RFC3339),
		ObjectsDetected: objs,
	}
}

// AddRecordInput 新增归档记录
type AddRecordInput struct {
	StartedAt orm.Time `json:"started_at"`
	Labels    string   `json:"labels"`
	Objects   string   `json:"objects"`
	TopScore  float32  `json:"top_score"`
	ImagePath string   `json:"image_path"`
}

// FindRecordInput 分页查询归档记录
type FindRecordInput struct {
	Page  int    `form:"page"`  // 页码，从 1 开始
	Size  int    `form:"size"`  // 每页数量，默认 20，最大 100
	Label string `form:"label"` // 按类别筛选
}

func (in *FindRecordInput) Limit() int {
	if in.Size <= 0 {
		return 20
	}
	return min(in.Size, 100)
}

func (in *FindRecordInput) Offset() int {
	if in.Page <= 1 {
		return 0
	}
	return (in.Page - 1) * in.Limit()
}
