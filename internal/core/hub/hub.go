// Package hub 单生产者、多消费者的帧广播
//
// 每个订阅者拥有固定容量的缓冲，缓冲满时丢弃最旧的帧，Publish 永不阻塞。
package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultCapacity 默认每个订阅者缓冲的帧数
const DefaultCapacity = 3

var (
	// ErrTimeout 等待超时内没有新帧
	ErrTimeout = errors.New("hub: receive timeout")
	// ErrClosed 订阅已取消或 hub 已关闭
	ErrClosed = errors.New("hub: subscriber closed")
)

var (
	framesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_hub_frames_published_total",
		Help: "Frames handed to the hub by the producer.",
	})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_hub_frames_dropped_total",
		Help: "Buffered frames discarded because a subscriber fell behind.",
	})
	subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_hub_subscribers",
		Help: "Currently connected stream subscribers.",
	})
)

// Hub 帧广播器
type Hub struct {
	capacity int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New 创建广播器，capacity 为每个订阅者的缓冲帧数
func New(capacity int) *Hub {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Hub{
		capacity:    capacity,
		subscribers: make(map[string]*Subscriber),
	}
}

// Capacity 每个订阅者的缓冲容量
func (h *Hub) Capacity() int {
	return h.capacity
}

// Subscribe 注册新的订阅者，hub 已关闭时返回已关闭的订阅者
func (h *Hub) Subscribe() *Subscriber {
	s := newSubscriber(uuid.NewString(), h.capacity)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return s
	}
	h.subscribers[s.id] = s
	subscribersGauge.Inc()
	return s
}

// Unsubscribe 移除订阅者，可重复调用
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	s, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		subscribersGauge.Dec()
	}
	h.mu.Unlock()

	if ok {
		s.close()
	}
}

// Publish 将帧投递到所有订阅者的缓冲
// 调用方在 Publish 之后不得修改 frame
func (h *Hub) Publish(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	framesPublished.Inc()
	for _, s := range h.subscribers {
		if s.push(frame) {
			framesDropped.Inc()
		}
	}
}

// Len 当前订阅者数量
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close 关闭所有订阅者，之后的 Publish 不再投递
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subscribers
	h.subscribers = make(map[string]*Subscriber)
	subscribersGauge.Sub(float64(len(subs)))
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}
