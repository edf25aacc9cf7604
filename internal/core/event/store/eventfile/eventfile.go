// Package eventfile 以单个 json 文件保存事件日志
package eventfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gowvp/sentinel/internal/core/event"
)

var _ event.Journal = (*File)(nil)

// File 整文件读写的事件日志
// 写入时先写临时文件并 fsync，再 rename 覆盖，进程崩溃不会留下半截文件
type File struct {
	path string
}

// New 创建事件日志文件
func New(path string) *File {
	return &File{path: path}
}

// Read implements event.Journal.
func (f *File) Read() ([]event.SecurityEvent, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var out []event.SecurityEvent
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return out, nil
}

// Write implements event.Journal.
func (f *File) Write(events []event.SecurityEvent) error {
	if events == nil {
		events = []event.SecurityEvent{}
	}
	b, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // rename 成功后该调用无副作用

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
