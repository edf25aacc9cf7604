// Package eventdb 事件归档的数据库实现
package eventdb

import (
	"context"
	"time"

	"github.com/gowvp/sentinel/internal/core/event"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

var _ event.RecordStorer = DB{}

// DB Related business namespaces
type DB struct {
	db *gorm.DB
}

// NewDB instance object
func NewDB(db *gorm.DB) DB {
	return DB{db: db}
}

// AutoMigrate sync database
func (d DB) AutoMigrate(ok bool) DB {
	if !ok {
		return d
	}
	if err := d.db.AutoMigrate(new(event.Record)); err != nil {
		panic(err)
	}
	return d
}

// Add implements event.RecordStorer.
func (d DB) Add(ctx context.Context, r *event.Record) error {
	return d.db.WithContext(ctx).Create(r).Error
}

// Find implements event.RecordStorer.
func (d DB) Find(ctx context.Context, out *[]*event.Record, label string, limit, offset int) (int64, error) {
	query := func() *gorm.DB {
		db := d.db.WithContext(ctx).Model(new(event.Record))
		if label != "" {
			// labels 为逗号分隔，按完整类别匹配
			db = db.Where("(labels = ? OR labels LIKE ? OR labels LIKE ? OR labels LIKE ?)",
				label, label+",%", "%,"+label, "%,"+label+",%")
		}
		return db
	}
	var total int64
	if err := query().Count(&total).Error; err != nil || total == 0 {
		return total, err
	}
	err := query().Order("started_at DESC").Limit(limit).Offset(offset).Find(out).Error
	return total, err
}

// FindBefore implements event.RecordStorer.
func (d DB) FindBefore(ctx context.Context, out *[]*event.Record, cutoff time.Time, limit int) error {
	return d.db.WithContext(ctx).
		Where("started_at < ?", orm.Time{Time: cutoff}).
		Order("started_at ASC").
		Limit(limit).
		Find(out).Error
}

// DelByIDs implements event.RecordStorer.
func (d DB) DelByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Where("id IN ?", ids).Delete(new(event.Record)).Error
}
