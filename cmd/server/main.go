package main

import (
	"expvar"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gowvp/sentinel/internal/app"
	"github.com/gowvp/sentinel/internal/conf"
)

// 编译时通过 -ldflags "-X main.buildVersion=..." 注入
var (
	buildVersion = "dev"
	gitBranch    = "unknown"
	gitHash      = "unknown"
)

var configDir = flag.String("conf", "./configs", "config directory, eg: -conf /configs/")

func main() {
	flag.Parse()

	expvar.NewString("git_branch").Set(gitBranch)
	expvar.NewString("git_hash").Set(gitHash)

	bc, err := conf.SetupConfig(filepath.Join(*configDir, "config.toml"))
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	bc.BuildVersion = buildVersion

	log := app.SetupLog(bc.Log)
	log.Info("sentinel starting", "version", buildVersion, "config", bc.ConfigDir, "source", bc.Capture.Source)

	if err := app.Run(bc); err != nil {
		log.Error("exit", "err", err)
		os.Exit(1)
	}
}
