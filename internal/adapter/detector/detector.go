// Package detector 对接目标检测服务
package detector

import (
	"image"
	"strings"

	"github.com/gowvp/sentinel/internal/core/event"
	"github.com/gowvp/sentinel/internal/core/pipeline"
	"github.com/gowvp/sentinel/pkg/annotate"
	"github.com/samber/lo"
)

// DefaultClasses 安防关注的类别
var DefaultClasses = []string{"person", "bicycle", "car", "motorcycle", "bus", "truck", "cat", "dog"}

// Detection 检测服务返回的单个目标
type Detection struct {
	Label      string      `json:"label"`      // 物体类别
	Confidence float64     `json:"confidence"` // 置信度 (0.0 - 1.0)
	Box        BoundingBox `json:"box"`        // 像素坐标边界框
}

// BoundingBox 像素坐标边界框
type BoundingBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

type predictOutput struct {
	Detections []Detection `json:"detections"`
}

// Result 一次检测的结果
type Result = pipeline.Detection

// Filter 过滤类别与置信度
type Filter struct {
	classes       map[string]struct{}
	minConfidence float64
}

// NewFilter classes 为空时使用 DefaultClasses
func NewFilter(classes []string, minConfidence float64) Filter {
	if len(classes) == 0 {
		classes = DefaultClasses
	}
	set := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return Filter{classes: set, minConfidence: minConfidence}
}

// Apply 保留允许的类别，且置信度不低于阈值
func (f Filter) Apply(dets []Detection) []Detection {
	return lo.Filter(dets, func(d Detection, _ int) bool {
		if d.Confidence < f.minConfidence {
			return false
		}
		_, ok := f.classes[strings.ToLower(d.Label)]
		return ok
	})
}

func toObjects(dets []Detection) []event.DetectedObject {
	return lo.Map(dets, func(d Detection, _ int) event.DetectedObject {
		return event.DetectedObject{Class: d.Label, Confidence: d.Confidence}
	})
}

func toBoxes(dets []Detection) []annotate.Box {
	return lo.Map(dets, func(d Detection, _ int) annotate.Box {
		return annotate.Box{Rect: d.Box.Rect(), Label: d.Label, Score: d.Confidence}
	})
}
