package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Subscriber 一个观看者的帧缓冲
type Subscriber struct {
	id string

	mu     sync.Mutex
	buf    [][]byte // 环形缓冲
	head   int
	size   int
	closed bool

	notify  chan struct{}
	done    chan struct{}
	dropped atomic.Uint64
}

func newSubscriber(id string, capacity int) *Subscriber {
	return &Subscriber{
		id:     id,
		buf:    make([][]byte, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// ID 订阅标识，用于取消订阅
func (s *Subscriber) ID() string {
	return s.id
}

// Dropped 因缓冲满而被丢弃的帧数
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Buffered 当前缓冲中的帧数
func (s *Subscriber) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// push 写入一帧，缓冲满时覆盖最旧的帧，返回是否发生丢弃
func (s *Subscriber) push(frame []byte) (dropped bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	capacity := len(s.buf)
	if s.size == capacity {
		s.buf[s.head] = nil
		s.head = (s.head + 1) % capacity
		s.size--
		dropped = true
		s.dropped.Add(1)
	}
	s.buf[(s.head+s.size)%capacity] = frame
	s.size++
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return dropped
}

// pop 取出最旧的帧
func (s *Subscriber) pop() ([]byte, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size == 0 {
		return nil, false, s.closed
	}
	frame := s.buf[s.head]
	s.buf[s.head] = nil
	s.head = (s.head + 1) % len(s.buf)
	s.size--
	return frame, true, s.closed
}

// Receive 按发布顺序取出下一帧
// timeout 内没有新帧返回 ErrTimeout，订阅已取消返回 ErrClosed
func (s *Subscriber) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		frame, ok, closed := s.pop()
		if ok {
			return frame, nil
		}
		if closed {
			return nil, ErrClosed
		}

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrTimeout
		}
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for i := range s.buf {
		s.buf[i] = nil
	}
	s.size = 0
	close(s.done)
}
