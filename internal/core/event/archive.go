package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/jinzhu/copier"
)

// RecordStorer 归档记录的持久化
type RecordStorer interface {
	Add(context.Context, *Record) error
	Find(ctx context.Context, out *[]*Record, label string, limit, offset int) (int64, error)
	FindBefore(ctx context.Context, out *[]*Record, cutoff time.Time, limit int) error
	DelByIDs(ctx context.Context, ids []int64) error
}

// ArchiveCore 将被接受的事件同步到数据库，并保存快照
type ArchiveCore struct {
	store       RecordStorer
	snapshotDir string
}

// NewArchiveCore create business domain
func NewArchiveCore(store RecordStorer, snapshotDir string) ArchiveCore {
	return ArchiveCore{store: store, snapshotDir: snapshotDir}
}

// SnapshotDir 快照根目录
func (a ArchiveCore) SnapshotDir() string {
	return a.snapshotDir
}

// Archive 写入一条归档记录，snapshot 为空时不保存图片
func (a ArchiveCore) Archive(ctx context.Context, ev SecurityEvent, snapshot []byte) error {
	objects, err := json.Marshal(ev.ObjectsDetected)
	if err != nil {
		return err
	}

	var imagePath string
	if len(snapshot) > 0 && a.snapshotDir != "" {
		imagePath, err = a.saveSnapshot(ev.Timestamp, snapshot)
		if err != nil {
			slog.ErrorContext(ctx, "save snapshot failed", "err", err)
		}
	}

	_, err = a.AddRecord(ctx, &AddRecordInput{
		StartedAt: orm.Time{Time: ev.Timestamp},
		Labels:    strings.Join(ev.Labels(), ","),
		Objects:   string(objects),
		TopScore:  float32(ev.TopScore()),
		ImagePath: imagePath,
	})
	return err
}

// AddRecord Insert into database
func (a ArchiveCore) AddRecord(ctx context.Context, in *AddRecordInput) (*Record, error) {
	var out Record
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}
	out.CreatedAt = orm.Now()

	if err := a.store.Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// FindRecords 分页查询归档记录，按发生时间倒序
func (a ArchiveCore) FindRecords(ctx context.Context, in *FindRecordInput) ([]*Record, int64, error) {
	items := make([]*Record, 0, in.Limit())
	total, err := a.store.Find(ctx, &items, in.Label, in.Limit(), in.Offset())
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find in[%+v] err[%s]`, in, err.Error())
	}
	return items, total, nil
}

// saveSnapshot 保存快照，返回相对 snapshotDir 的路径: 年月日/年月日时分秒_随机6位.jpg
func (a ArchiveCore) saveSnapshot(t time.Time, data []byte) (string, error) {
	filename := fmt.Sprintf("%s_%06d.jpg", t.Format("20060102150405"), rand.IntN(1000000))
	relativePath := filepath.Join(t.Format("20060102"), filename)
	fullPath := filepath.Join(a.snapshotDir, relativePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return relativePath, nil
}
