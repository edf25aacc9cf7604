package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetupConfigWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	bc, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if bc.Events.Cooldown.Duration() != 30*time.Second {
		t.Fatalf("cooldown = %s", bc.Events.Cooldown.Duration())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	// 重新读取写出的文件应得到相同配置
	again, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Stream.Buffer != bc.Stream.Buffer || again.Capture.Source != bc.Capture.Source {
		t.Fatalf("round trip mismatch: %+v != %+v", again.Stream, bc.Stream)
	}
}

func TestSetupConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[events]
cooldown = "45s"
path = "data/events.json"

[stream]
buffer = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_CAPTURE_SOURCE", "synthetic://")
	t.Setenv("SENTINEL_EVENTS_COOLDOWN", "1m")

	bc, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if bc.Events.Cooldown.Duration() != time.Minute {
		t.Fatalf("env should override file, got %s", bc.Events.Cooldown.Duration())
	}
	if bc.Events.Path != "data/events.json" {
		t.Fatalf("path = %s", bc.Events.Path)
	}
	if bc.Stream.Buffer != 2 {
		t.Fatalf("buffer = %d", bc.Stream.Buffer)
	}
	// 未出现在文件中的字段保留默认值
	if bc.Stream.JPEGQuality != 80 {
		t.Fatalf("jpeg_quality = %d", bc.Stream.JPEGQuality)
	}
	if bc.Capture.Source != "synthetic://" {
		t.Fatalf("source = %s", bc.Capture.Source)
	}
}

func TestSetupConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`[events]
cooldown = "soon"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := SetupConfig(path); err == nil {
		t.Fatal("expected decode error")
	}
}
