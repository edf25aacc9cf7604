package conf

// Bootstrap 启动配置，对应 configs/config.toml
type Bootstrap struct {
	Server   Server   `toml:"server" comment:"服务配置"`
	Log      Log      `toml:"log" comment:"日志配置"`
	Capture  Capture  `toml:"capture" comment:"视频采集"`
	Detector Detector `toml:"detector" comment:"目标检测服务"`
	Events   Events   `toml:"events" comment:"安防事件日志"`
	Stream   Stream   `toml:"stream" comment:"MJPEG 推流"`
	Archive  Archive  `toml:"archive" comment:"事件归档"`
	Data     Data     `toml:"data" comment:"数据库"`

	BuildVersion string `toml:"-"`
	ConfigDir    string `toml:"-"`
}

type Server struct {
	Debug bool       `toml:"debug" env:"SENTINEL_DEBUG"`
	HTTP  ServerHTTP `toml:"http"`
}

type ServerHTTP struct {
	Port            int      `toml:"port" env:"SENTINEL_HTTP_PORT" comment:"http 端口"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" comment:"优雅退出等待时长"`
	PProf           PProf    `toml:"pprof"`
}

type PProf struct {
	Enabled   bool     `toml:"enabled"`
	AccessIps []string `toml:"access_ips"`
}

type Log struct {
	Level string `toml:"level" env:"SENTINEL_LOG_LEVEL" comment:"debug/info/warn/error"`
	JSON  bool   `toml:"json" env:"SENTINEL_LOG_JSON" comment:"是否以 json 格式输出"`
}

// Capture 视频源配置
// Source 支持 rtsp/http 地址、v4l2 设备路径（如 /dev/video0）以及 synthetic:// 测试源
type Capture struct {
	Source       string   `toml:"source" env:"SENTINEL_CAPTURE_SOURCE" comment:"视频源地址"`
	Format       string   `toml:"format" env:"SENTINEL_CAPTURE_FORMAT" comment:"ffmpeg 输入格式，摄像头设备填 v4l2，网络流留空"`
	Width        int      `toml:"width" comment:"输出宽度"`
	Height       int      `toml:"height" comment:"输出高度"`
	FPS          int      `toml:"fps" comment:"采集帧率"`
	Transport    string   `toml:"transport" comment:"rtsp 传输协议 tcp/udp"`
	HWAccel      string   `toml:"hwaccel" comment:"ffmpeg 硬件加速"`
	ReadTimeout  Duration `toml:"read_timeout" comment:"单帧读取超时，超时视为流中断"`
	MaxFrames    int      `toml:"max_frames" comment:"仅 synthetic 源有效，0 表示无限"`
	OpenAttempts int      `toml:"open_attempts" comment:"打开视频源的尝试次数"`
}

type Detector struct {
	Endpoint      string   `toml:"endpoint" env:"SENTINEL_DETECTOR_ENDPOINT" comment:"检测服务地址，POST {endpoint}/predict"`
	HealthAddr    string   `toml:"health_addr" env:"SENTINEL_DETECTOR_HEALTH_ADDR" comment:"grpc 健康检查地址，为空时使用 GET {endpoint}/health"`
	Timeout       Duration `toml:"timeout" comment:"单帧检测超时"`
	MinConfidence float64  `toml:"min_confidence" comment:"最低置信度"`
	Classes       []string `toml:"classes" comment:"允许上报的类别，为空时使用默认安防类别"`
}

type Events struct {
	Path      string   `toml:"path" env:"SENTINEL_EVENTS_PATH" comment:"事件日志文件"`
	Cooldown  Duration `toml:"cooldown" env:"SENTINEL_EVENTS_COOLDOWN" comment:"两次事件的最小间隔"`
	MaxEvents int      `toml:"max_events" comment:"内存与文件保留的最大事件数，0 表示不限制"`
	ListLimit int      `toml:"list_limit" comment:"/events 返回条数"`
}

type Stream struct {
	Buffer         int      `toml:"buffer" comment:"每个观看者的帧缓冲数量"`
	ReceiveTimeout Duration `toml:"receive_timeout" comment:"等待下一帧的超时"`
	MaxTimeouts    int      `toml:"max_timeouts" comment:"连续超时次数达到后断开连接"`
	WriteTimeout   Duration `toml:"write_timeout" comment:"单帧写出超时"`
	JPEGQuality    int      `toml:"jpeg_quality" comment:"jpeg 编码质量 1-100"`
}

type Archive struct {
	Enabled     bool   `toml:"enabled" env:"SENTINEL_ARCHIVE_ENABLED" comment:"是否将事件同步写入数据库"`
	SnapshotDir string `toml:"snapshot_dir" comment:"事件快照目录"`
	RetainDays  int    `toml:"retain_days" comment:"归档保留天数，0 表示不清理"`
}

type Data struct {
	Database Database `toml:"database"`
}

type Database struct {
	Dsn             string   `toml:"dsn" env:"SENTINEL_DATABASE_DSN" comment:"sqlite 文件路径，或 postgres:// mysql:// 连接串"`
	MaxIdleConns    int32    `toml:"max_idle_conns"`
	MaxOpenConns    int32    `toml:"max_open_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
	SlowThreshold   Duration `toml:"slow_threshold"`
}
