package api

import (
	"embed"
	"expvar"
	"html/template"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gowvp/sentinel/internal/core/event"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

var startRuntime = time.Now()

//go:embed templates/*.html
var templateFS embed.FS

func setupRouter(r *gin.Engine, uc *Usecase) {
	r.Use(
		// 格式化输出到控制台，然后记录到日志
		// 此处不做 recover，底层 http.server 也会 recover，但不会输出方便查看的格式
		gin.CustomRecovery(func(c *gin.Context, err any) {
			slog.ErrorContext(c.Request.Context(), "panic", "err", err, "stack", string(debug.Stack()))
			c.AbortWithStatus(http.StatusInternalServerError)
		}),
		web.Metrics(),
		web.Logger(
			web.IgnoreMethod(http.MethodOptions),
			web.IgnorePrefix("/video_feed"), // 长连接，结束时才有日志意义
			web.IgnorePrefix("/metrics"),
		),
	)
	go web.CountGoroutines(10*time.Minute, 20)

	r.Use(cors.New(cors.Config{
		AllowMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Accept", "Content-Length", "Content-Type", "Range", "Accept-Language",
			"Origin", "Authorization", "Referer", "User-Agent",
			"Accept-Encoding", "Cache-Control", "Pragma", "X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(_ string) bool {
			return true
		},
	}))
	// multipart 流与 prometheus 自带压缩，不走 gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/video_feed", "/metrics"})))

	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"msg": "来到了无人的荒漠"})
	})

	r.GET("/", uc.index)
	r.GET("/health", web.WrapH(uc.getHealth))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/app/metrics/api", web.WrapH(uc.getMetricsAPI))

	RegisterStream(r, uc.StreamAPI)
	RegisterEvent(r, uc.EventAPI)
}

type indexEvent struct {
	Time    string
	Objects string
}

// index 实时画面与最近事件
func (uc *Usecase) index(c *gin.Context) {
	recent := uc.EventAPI.events.ListRecent(uc.EventAPI.limit)
	items := make([]indexEvent, 0, len(recent))
	for _, ev := range recent {
		out := event.NewEventOutput(ev)
		objs := make([]string, 0, len(out.ObjectsDetected))
		for _, o := range out.ObjectsDetected {
			objs = append(objs, o.Class+" "+o.Confidence)
		}
		items = append(items, indexEvent{Time: ev.Timestamp.Format(time.DateTime), Objects: strings.Join(objs, ", ")})
	}

	var degraded string
	if uc.Runner.Degraded() {
		degraded = "视频分析未能启动"
		if err := uc.Runner.Err(); err != nil {
			degraded += ": " + err.Error()
		}
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Events":   items,
		"Degraded": degraded,
		"Cooldown": uc.EventAPI.events.Cooldown().String(),
	})
}

type getHealthOutput struct {
	Version     string    `json:"version"`
	StartAt     time.Time `json:"start_at"`
	GitBranch   string    `json:"git_branch"`
	GitHash     string    `json:"git_hash"`
	Pipeline    string    `json:"pipeline"`
	Error       string    `json:"error,omitempty"`
	Subscribers int       `json:"subscribers"`
	Buffer      int       `json:"buffer"` // 每个订阅者缓冲的帧数
	Events      int       `json:"events"`
	LastEventAt string    `json:"last_event_at,omitempty"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemPercent  float64   `json:"mem_percent"`
}

func (uc *Usecase) getHealth(c *gin.Context, _ *struct{}) (getHealthOutput, error) {
	out := getHealthOutput{
		Version:     uc.Conf.BuildVersion,
		GitBranch:   expvarString("git_branch"),
		GitHash:     expvarString("git_hash"),
		StartAt:     startRuntime,
		Pipeline:    uc.Runner.State().String(),
		Subscribers: uc.Hub.Len(),
		Buffer:      uc.Hub.Capacity(),
		Events:      uc.EventAPI.events.Len(),
	}
	if err := uc.Runner.Err(); err != nil {
		out.Error = err.Error()
	}
	if t, ok := uc.EventAPI.events.LastEventTime(); ok {
		out.LastEventAt = t.Format(time.RFC3339)
	}

	ctx := c.Request.Context()
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		out.CPUPercent = p[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemPercent = vm.UsedPercent
	}
	return out, nil
}

type getMetricsAPIOutput struct {
	RealTimeRequests int64  `json:"real_time_requests"` // 实时请求数
	TotalRequests    int64  `json:"total_requests"`     // 总请求数
	TotalResponses   int64  `json:"total_responses"`    // 总响应数
	RequestTop10     []KV   `json:"request_top10"`      // 请求TOP10
	StatusCodeTop10  []KV   `json:"status_code_top10"`  // 状态码TOP10
	Goroutines       any    `json:"goroutines"`         // 协程数量
	NumGC            uint32 `json:"num_gc"`             // gc 次数
	SysAlloc         uint64 `json:"sys_alloc"`          // 内存占用
	StartAt          string `json:"start_at"`           // 运行时间
}

func (uc *Usecase) getMetricsAPI(_ *gin.Context, _ *struct{}) (*getMetricsAPIOutput, error) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	out := getMetricsAPIOutput{
		RealTimeRequests: expvarInt("request"),
		TotalRequests:    expvarInt("requests"),
		TotalResponses:   expvarInt("responses"),
		Goroutines:       runtime.NumGoroutine(),
		NumGC:            stats.NumGC,
		SysAlloc:         stats.Sys,
		StartAt:          startRuntime.Format(time.DateTime),
	}
	if urls, ok := expvar.Get("requestURLs").(*expvar.Map); ok {
		out.RequestTop10 = sortExpvarMap(urls, 10)
	}
	if status, ok := expvar.Get("statusCodes").(*expvar.Map); ok {
		out.StatusCodeTop10 = sortExpvarMap(status, 10)
	}
	if g, ok := expvar.Get("goroutine_num").(expvar.Func); ok {
		out.Goroutines = g()
	}
	return &out, nil
}

type KV struct {
	Key   string
	Value int64
}

func sortExpvarMap(data *expvar.Map, top int) []KV {
	kvs := make([]KV, 0, 8)
	data.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok {
			kvs = append(kvs, KV{Key: kv.Key, Value: v.Value()})
		}
	})

	sort.Slice(kvs, func(i, j int) bool {
		return kvs[i].Value > kvs[j].Value
	})
	return kvs[:min(top, len(kvs))]
}

func expvarInt(name string) int64 {
	if v, ok := expvar.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

func expvarString(name string) string {
	v := expvar.Get(name)
	if v == nil {
		return ""
	}
	return strings.Trim(v.String(), `"`)
}
