package event

import (
	"strings"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
)

// DetectedObject 单个检测目标
type DetectedObject struct {
	Class      string  `json:"class"`      // 类别，如 person
	Confidence float64 `json:"confidence"` // 置信度 0-1
}

// SecurityEvent 安防事件，创建后不再修改
type SecurityEvent struct {
	Timestamp       time.Time        `json:"timestamp"`
	ObjectsDetected []DetectedObject `json:"objects_detected"`
}

// Labels 返回去重后的类别，保持首次出现的顺序
func (e SecurityEvent) Labels() []string {
	out := make([]string, 0, len(e.ObjectsDetected))
	seen := make(map[string]struct{}, len(e.ObjectsDetected))
	for _, o := range e.ObjectsDetected {
		if _, ok := seen[o.Class]; ok {
			continue
		}
		seen[o.Class] = struct{}{}
		out = append(out, o.Class)
	}
	return out
}

// TopScore 最高置信度
func (e SecurityEvent) TopScore() float64 {
	var top float64
	for _, o := range e.ObjectsDetected {
		top = max(top, o.Confidence)
	}
	return top
}

// Record 事件归档记录
type Record struct {
	ID        int64    `gorm:"primaryKey" json:"id"`
	StartedAt orm.Time `gorm:"column:started_at;index;notNull" json:"started_at"` // 事件发生时间
	Labels    string   `gorm:"column:labels;notNull;default:''" json:"labels"`    // 逗号分隔的类别
	Objects   string   `gorm:"column:objects;notNull;default:''" json:"objects"`  // json 格式的目标列表
	TopScore  float32  `gorm:"column:top_score;notNull;default:0" json:"top_score"`
	ImagePath string   `gorm:"column:image_path;notNull;default:''" json:"image_path"` // 相对 snapshot_dir 的快照路径
	CreatedAt orm.Time `gorm:"column:created_at;notNull" json:"created_at"`
}

// TableName database table name
func (*Record) TableName() string {
	return "event_records"
}

// HasLabel 是否包含指定类别
func (r *Record) HasLabel(label string) bool {
	for _, l := range strings.Split(r.Labels, ",") {
		if l == label {
			return true
		}
	}
	return false
}
