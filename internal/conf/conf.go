package conf

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/pelletier/go-toml/v2"
)

// SetupConfig 加载配置文件并使用环境变量覆盖
// 配置文件不存在时写入默认配置，方便首次部署后修改
func SetupConfig(path string) (*Bootstrap, error) {
	bc := DefaultConfig()
	if !filepath.IsAbs(path) {
		path = filepath.Join(system.Getwd(), path)
	}
	bc.ConfigDir = filepath.Dir(path)

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := WriteConfig(&bc, path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.NewDecoder(bytes.NewReader(b)).Decode(&bc); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := env.Parse(&bc); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &bc, nil
}

// WriteConfig 将配置写入文件
func WriteConfig(bc *Bootstrap, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(bc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Abs 将相对路径转换为基于工作目录的绝对路径
func Abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(system.Getwd(), path)
}
