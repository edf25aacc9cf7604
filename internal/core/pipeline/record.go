package pipeline

import (
	"slices"
	"time"

	"github.com/gowvp/sentinel/internal/core/event"
)

// Outcome 本帧画面的来源
type Outcome int

const (
	// Annotated 检测成功，画面带有检测框
	Annotated Outcome = iota
	// RawFallback 检测失败，发布原始画面
	RawFallback
)

func (o Outcome) String() string {
	if o == RawFallback {
		return "raw_fallback"
	}
	return "annotated"
}

// DetectionRecord 单帧处理结果，创建后不再修改
type DetectionRecord struct {
	Seq        uint64
	CapturedAt time.Time
	Objects    []event.DetectedObject
	Frame      []byte // JPEG
	Outcome    Outcome
}

func newRecord(f *Frame, objects []event.DetectedObject, jpeg []byte, outcome Outcome) DetectionRecord {
	return DetectionRecord{
		Seq:        f.Seq,
		CapturedAt: f.CapturedAt,
		Objects:    slices.Clone(objects),
		Frame:      jpeg,
		Outcome:    outcome,
	}
}
