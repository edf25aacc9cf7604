package event

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrPersist 事件已通过冷却判断但未能持久化
var ErrPersist = errors.New("event: persist log failed")

// Journal 事件日志的持久化，每次写入都覆盖完整序列
type Journal interface {
	Read() ([]SecurityEvent, error)
	Write([]SecurityEvent) error
}

// Core 带冷却的安防事件日志
//
// 写操作由 writeMu 串行化，保证 "判断-追加" 的原子性；
// 读操作访问不可变快照，不会被磁盘写入阻塞。
type Core struct {
	journal   Journal
	cooldown  time.Duration
	maxEvents int
	log       *slog.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	events  []SecurityEvent
	last    time.Time
	hasAny  bool
	ordered bool // events 按时间非递减排列，ListRecent 可直接倒序截取
}

type Option func(*Core)

// WithCooldown 两次事件之间的最小间隔
func WithCooldown(d time.Duration) Option {
	return func(c *Core) {
		c.cooldown = d
	}
}

// WithMaxEvents 最多保留的事件数量，超出时淘汰最旧的事件，0 表示不限制
func WithMaxEvents(n int) Option {
	return func(c *Core) {
		c.maxEvents = max(n, 0)
	}
}

// WithLogger 指定日志
func WithLogger(log *slog.Logger) Option {
	return func(c *Core) {
		c.log = log
	}
}

// NewCore create business domain
func NewCore(journal Journal, opts ...Option) *Core {
	c := Core{
		journal:  journal,
		cooldown: 30 * time.Second,
		ordered:  true,
		log:      slog.With("component", "event"),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Cooldown 冷却时长
func (c *Core) Cooldown() time.Duration {
	return c.cooldown
}
