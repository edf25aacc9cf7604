// Package capture 视频采集源
package capture

import (
	"errors"
	"strings"

	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/internal/core/pipeline"
)

// ErrUnavailable 视频源无法打开
var ErrUnavailable = errors.New("capture: source unavailable")

// SchemeSynthetic 内置测试画面
const SchemeSynthetic = "synthetic://"

// Frame 一帧原始画面
type Frame = pipeline.Frame

// Source 视频源
// Read 在流结束时返回 io.EOF（可能被包装），其它错误视为不可恢复
type Source = pipeline.Source

// NewSource 根据配置创建视频源
func NewSource(cfg conf.Capture) Source {
	if strings.HasPrefix(cfg.Source, SchemeSynthetic) {
		return NewSynthetic(cfg.Width, cfg.Height, cfg.FPS, cfg.MaxFrames)
	}
	return NewFFmpeg(cfg)
}
