package conf

import "time"

// DefaultConfig 默认配置
func DefaultConfig() Bootstrap {
	return Bootstrap{
		Server: Server{
			HTTP: ServerHTTP{
				Port:            5000,
				ShutdownTimeout: Duration(5 * time.Second),
				PProf: PProf{
					AccessIps: []string{"::1", "127.0.0.1"},
				},
			},
		},
		Log: Log{
			Level: "info",
		},
		Capture: Capture{
			Source:       "/dev/video0",
			Format:       "v4l2",
			Width:        640,
			Height:       480,
			FPS:          10,
			Transport:    "tcp",
			ReadTimeout:  Duration(10 * time.Second),
			OpenAttempts: 1,
		},
		Detector: Detector{
			Endpoint:      "http://127.0.0.1:8000",
			Timeout:       Duration(2 * time.Second),
			MinConfidence: 0.5,
		},
		Events: Events{
			Path:      "configs/security_events.json",
			Cooldown:  Duration(30 * time.Second),
			ListLimit: 50,
		},
		Stream: Stream{
			Buffer:         3,
			ReceiveTimeout: Duration(5 * time.Second),
			MaxTimeouts:    3,
			WriteTimeout:   Duration(10 * time.Second),
			JPEGQuality:    80,
		},
		Archive: Archive{
			Enabled:     true,
			SnapshotDir: "configs/events",
			RetainDays:  30,
		},
		Data: Data{
			Database: Database{
				Dsn:             "configs/data.db",
				MaxIdleConns:    10,
				MaxOpenConns:    50,
				ConnMaxLifetime: Duration(6 * time.Hour),
				SlowThreshold:   Duration(200 * time.Millisecond),
			},
		},
	}
}
