package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/internal/core/event"
	"github.com/gowvp/sentinel/internal/core/event/store/eventdb"
	"github.com/gowvp/sentinel/internal/core/event/store/eventfile"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

// defaultListLimit /events 默认返回条数
const defaultListLimit = 50

// EventAPI 安防事件查询
type EventAPI struct {
	events  *event.Core
	archive event.ArchiveCore
	limit   int
}

// NewEventJournal 事件日志文件
func NewEventJournal(cfg *conf.Bootstrap) event.Journal {
	return eventfile.New(conf.Abs(cfg.Events.Path))
}

// NewEventCore 创建事件存储并从日志恢复历史事件
func NewEventCore(cfg *conf.Bootstrap, journal event.Journal) *event.Core {
	core := event.NewCore(journal,
		event.WithCooldown(cfg.Events.Cooldown.Duration()),
		event.WithMaxEvents(cfg.Events.MaxEvents),
		event.WithLogger(slog.Default()),
	)
	_ = core.Load(context.Background())
	return core
}

// NewRecordStore 事件归档表
func NewRecordStore(db *gorm.DB) event.RecordStorer {
	return eventdb.NewDB(db).AutoMigrate(true)
}

// NewArchiveCore 事件归档
func NewArchiveCore(store event.RecordStorer, cfg *conf.Bootstrap) event.ArchiveCore {
	return event.NewArchiveCore(store, conf.Abs(cfg.Archive.SnapshotDir))
}

func NewEventAPI(events *event.Core, archive event.ArchiveCore, cfg *conf.Bootstrap) EventAPI {
	limit := cfg.Events.ListLimit
	if limit <= 0 {
		limit = defaultListLimit
	}
	return EventAPI{events: events, archive: archive, limit: limit}
}

func RegisterEvent(g gin.IRouter, api EventAPI, handler ...gin.HandlerFunc) {
	{
		group := g.Group("/events", handler...)
		group.GET("", api.listEvents)
		group.GET("/archive", web.WrapH(api.findArchive))
		if dir := api.archive.SnapshotDir(); dir != "" {
			group.Static("/snapshots", dir)
		}
	}
}

// listEvents 最近的安防事件，新的在前，返回裸数组
func (a EventAPI) listEvents(c *gin.Context) {
	recent := a.events.ListRecent(a.limit)
	out := make([]event.EventOutput, 0, len(recent))
	for _, ev := range recent {
		out = append(out, event.NewEventOutput(ev))
	}
	c.JSON(http.StatusOK, out)
}

func (a EventAPI) findArchive(c *gin.Context, in *event.FindRecordInput) (any, error) {
	items, total, err := a.archive.FindRecords(c.Request.Context(), in)
	return gin.H{"items": items, "total": total}, err
}
