package event

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"time"
)

// Load 启动时从日志文件恢复事件
// 文件不存在、损坏或不可读时以空日志启动，仅记录告警
func (c *Core) Load(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	events, err := c.journal.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.log.InfoContext(ctx, "event log not found, starting empty")
		} else {
			c.log.WarnContext(ctx, "event log unreadable, starting empty", "err", err)
		}
		events = nil
	}

	var last time.Time
	ordered := true
	for i, e := range events {
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
		if i > 0 && e.Timestamp.Before(events[i-1].Timestamp) {
			ordered = false
		}
	}

	c.mu.Lock()
	c.events = events
	c.last = last
	c.hasAny = len(events) > 0
	c.ordered = ordered
	c.mu.Unlock()

	c.log.InfoContext(ctx, "event log loaded", "events", len(events))
	return nil
}

// Consider 判断本帧的检测结果是否构成新事件
// 仅当目标非空，且距上一次事件严格超过冷却时间（或尚无事件）时接受；
// 接受的事件先完整写入日志，成功后才对读者可见，写入失败时内存状态保持不变。
func (c *Core) Consider(ctx context.Context, objects []DetectedObject, at time.Time) (bool, error) {
	if len(objects) == 0 {
		return false, nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	current, last, hasAny, ordered := c.events, c.last, c.hasAny, c.ordered
	c.mu.RUnlock()

	if hasAny && at.Sub(last) <= c.cooldown {
		return false, nil
	}

	ev := SecurityEvent{
		Timestamp:       at,
		ObjectsDetected: slices.Clone(objects),
	}
	next := make([]SecurityEvent, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, ev)
	if c.maxEvents > 0 && len(next) > c.maxEvents {
		next = slices.Clone(next[len(next)-c.maxEvents:])
	}

	if err := c.journal.Write(next); err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	c.mu.Lock()
	c.events = next
	c.last = at
	c.hasAny = true
	c.ordered = ordered && (len(current) == 0 || !at.Before(current[len(current)-1].Timestamp))
	c.mu.Unlock()

	c.log.InfoContext(ctx, "security event recorded", "at", at.Format(time.RFC3339), "labels", ev.Labels())
	return true, nil
}

// ListRecent 返回最近的 limit 条事件，按时间倒序，时间相同时后写入的在前
func (c *Core) ListRecent(limit int) []SecurityEvent {
	if limit <= 0 {
		return []SecurityEvent{}
	}
	c.mu.RLock()
	snapshot, ordered := c.events, c.ordered
	c.mu.RUnlock()

	if ordered {
		out := make([]SecurityEvent, min(limit, len(snapshot)))
		for i := range out {
			out[i] = snapshot[len(snapshot)-1-i]
		}
		return out
	}

	// 历史日志可能乱序，退回完整排序
	out := make([]SecurityEvent, len(snapshot))
	for i, e := range snapshot {
		out[len(snapshot)-1-i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len 当前事件数量
func (c *Core) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// LastEventTime 最近一次被接受的事件时间
func (c *Core) LastEventTime() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.hasAny
}
