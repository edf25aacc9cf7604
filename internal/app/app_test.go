package app

import (
	"log/slog"
	"testing"

	"github.com/gowvp/sentinel/internal/conf"
)

func TestSetupLog(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	log := SetupLog(conf.Log{Level: "debug"})
	if !log.Enabled(t.Context(), slog.LevelDebug) {
		t.Fatal("debug should be enabled")
	}
	log = SetupLog(conf.Log{Level: "warn", JSON: true})
	if log.Enabled(t.Context(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	log = SetupLog(conf.Log{Level: "nonsense"})
	if !log.Enabled(t.Context(), slog.LevelInfo) {
		t.Fatal("unknown level falls back to info")
	}
}
