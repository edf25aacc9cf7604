package event

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// StartCleanupWorker 启动定时清理，启动时执行一次，之后每 24 小时执行一次
// days 指定归档保留天数，超过该天数的记录与快照将被删除；事件日志文件不受影响
func (a ArchiveCore) StartCleanupWorker(ctx context.Context, days int) {
	if days <= 0 {
		slog.Info("event archive cleanup disabled", "days", days)
		return
	}

	slog.Info("event archive cleanup worker started", "retain_days", days)
	a.CleanupExpired(ctx, time.Now().AddDate(0, 0, -days))

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.CleanupExpired(ctx, time.Now().AddDate(0, 0, -days))
		}
	}
}

// CleanupExpired 清理 cutoff 之前的归档，先删除快照文件，再删除数据库记录
func (a ArchiveCore) CleanupExpired(ctx context.Context, cutoff time.Time) (deleted int) {
	slog.InfoContext(ctx, "starting event archive cleanup", "cutoff_time", cutoff.Format(time.DateTime))

	// 分批查询并删除，避免一次性加载过多数据
	const batchSize = 100
	var filesDeleted int
	for {
		var records []*Record
		if err := a.store.FindBefore(ctx, &records, cutoff, batchSize); err != nil {
			slog.ErrorContext(ctx, "failed to query expired records", "err", err)
			break
		}
		if len(records) == 0 {
			break
		}

		ids := make([]int64, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
			if r.ImagePath == "" || a.snapshotDir == "" {
				continue
			}
			fullPath := filepath.Join(a.snapshotDir, r.ImagePath)
			if err := os.Remove(fullPath); err != nil {
				if !os.IsNotExist(err) {
					slog.WarnContext(ctx, "failed to delete snapshot", "path", fullPath, "err", err)
				}
			} else {
				filesDeleted++
			}
		}

		if err := a.store.DelByIDs(ctx, ids); err != nil {
			slog.WarnContext(ctx, "failed to batch delete records", "count", len(ids), "err", err)
			break
		}
		deleted += len(ids)
	}

	if a.snapshotDir != "" {
		cleanupEmptyDirs(a.snapshotDir)
	}

	slog.InfoContext(ctx, "event archive cleanup completed",
		"records_deleted", deleted,
		"files_deleted", filesDeleted,
	)
	return deleted
}

// cleanupEmptyDirs 递归删除空目录
func cleanupEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		subDir := filepath.Join(dir, entry.Name())
		cleanupEmptyDirs(subDir)

		subEntries, err := os.ReadDir(subDir)
		if err == nil && len(subEntries) == 0 {
			if err := os.Remove(subDir); err == nil {
				slog.Debug("removed empty directory", "path", subDir)
			}
		}
	}
}
