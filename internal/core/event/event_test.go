package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJournal struct {
	mu      sync.Mutex
	saved   []SecurityEvent
	writes  int
	failing bool
	readErr error
}

func (m *memJournal) Read() ([]SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]SecurityEvent(nil), m.saved...), nil
}

func (m *memJournal) Write(events []SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("disk full")
	}
	m.writes++
	m.saved = append([]SecurityEvent(nil), events...)
	return nil
}

func person() []DetectedObject {
	return []DetectedObject{{Class: "person", Confidence: 0.9}}
}

func TestConsiderCooldownScenario(t *testing.T) {
	ctx := context.Background()
	j := &memJournal{}
	c := NewCore(j, WithCooldown(30*time.Second))
	require.NoError(t, c.Load(ctx))

	t0 := time.Date(2026, 5, 4, 12, 0, 0, 0, time.Local)
	cases := []struct {
		at      time.Duration
		objects []DetectedObject
		want    bool
	}{
		{0, person(), true},
		{5 * time.Second, person(), false},
		{31 * time.Second, []DetectedObject{{Class: "car", Confidence: 0.7}}, true},
	}
	for _, tc := range cases {
		got, err := c.Consider(ctx, tc.objects, t0.Add(tc.at))
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "at %s", tc.at)
	}

	events := c.ListRecent(10)
	require.Len(t, events, 2)
	require.True(t, events[0].Timestamp.Equal(t0.Add(31*time.Second)))
	require.Equal(t, "car", events[0].ObjectsDetected[0].Class)
	require.True(t, events[1].Timestamp.Equal(t0))
	require.Equal(t, 2, j.writes)
}

func TestConsiderBoundaryIsStrict(t *testing.T) {
	ctx := context.Background()
	c := NewCore(&memJournal{}, WithCooldown(30*time.Second))
	t0 := time.Now()

	ok, err := c.Consider(ctx, person(), t0)
	require.NoError(t, err)
	require.True(t, ok)

	// 恰好等于冷却时长不接受
	ok, err = c.Consider(ctx, person(), t0.Add(30*time.Second))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.Consider(ctx, person(), t0.Add(30*time.Second+time.Nanosecond))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConsiderEmptyObjects(t *testing.T) {
	j := &memJournal{}
	c := NewCore(j)
	ok, err := c.Consider(context.Background(), nil, time.Now())
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, c.Len())
	require.Zero(t, j.writes)
	_, has := c.LastEventTime()
	require.False(t, has)
}

func TestConsiderInvariantOverSequence(t *testing.T) {
	ctx := context.Background()
	cooldown := 7 * time.Second
	c := NewCore(&memJournal{}, WithCooldown(cooldown))
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)

	// 每秒一帧，夹杂空帧
	for i := range 200 {
		var objs []DetectedObject
		if i%4 != 3 {
			objs = person()
		}
		_, err := c.Consider(ctx, objs, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	events := c.ListRecent(c.Len())
	require.NotEmpty(t, events)
	for i := 0; i < len(events)-1; i++ {
		require.Greater(t, events[i].Timestamp.Sub(events[i+1].Timestamp), cooldown)
	}
	for _, e := range events {
		require.NotEmpty(t, e.ObjectsDetected)
	}
}

func TestConsiderPersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	j := &memJournal{}
	c := NewCore(j, WithCooldown(time.Second))
	t0 := time.Now()

	ok, err := c.Consider(ctx, person(), t0)
	require.NoError(t, err)
	require.True(t, ok)

	j.failing = true
	ok, err = c.Consider(ctx, person(), t0.Add(time.Minute))
	require.ErrorIs(t, err, ErrPersist)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
	last, _ := c.LastEventTime()
	require.True(t, last.Equal(t0))

	// 恢复后同一时刻的事件可以再次被接受
	j.failing = false
	ok, err = c.Consider(ctx, person(), t0.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestListRecent(t *testing.T) {
	ctx := context.Background()
	c := NewCore(&memJournal{}, WithCooldown(0))
	t0 := time.Date(2026, 2, 2, 9, 0, 0, 0, time.Local)
	for i := range 5 {
		_, err := c.Consider(ctx, []DetectedObject{{Class: "car", Confidence: float64(i) / 10}}, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	require.Empty(t, c.ListRecent(0))
	require.Empty(t, c.ListRecent(-1))
	require.Len(t, c.ListRecent(3), 3)
	require.Len(t, c.ListRecent(50), 5)

	out := c.ListRecent(50)
	for i := 0; i < len(out)-1; i++ {
		require.True(t, out[i].Timestamp.After(out[i+1].Timestamp))
	}
	require.Equal(t, 5, c.Len(), "ListRecent must not mutate state")
}

func TestListRecentTieBreak(t *testing.T) {
	ts := time.Date(2026, 2, 2, 9, 0, 0, 0, time.Local)
	j := &memJournal{saved: []SecurityEvent{
		{Timestamp: ts, ObjectsDetected: []DetectedObject{{Class: "cat"}}},
		{Timestamp: ts.Add(-time.Hour), ObjectsDetected: []DetectedObject{{Class: "bus"}}},
		{Timestamp: ts, ObjectsDetected: []DetectedObject{{Class: "dog"}}},
	}}
	c := NewCore(j)
	require.NoError(t, c.Load(context.Background()))

	out := c.ListRecent(3)
	require.Equal(t, "dog", out[0].ObjectsDetected[0].Class)
	require.Equal(t, "cat", out[1].ObjectsDetected[0].Class)
	require.Equal(t, "bus", out[2].ObjectsDetected[0].Class)

	last, ok := c.LastEventTime()
	require.True(t, ok)
	require.True(t, last.Equal(ts))
}

func TestListRecentAfterUnorderedHistory(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 2, 2, 9, 0, 0, 0, time.Local)
	j := &memJournal{saved: []SecurityEvent{
		{Timestamp: ts, ObjectsDetected: []DetectedObject{{Class: "cat"}}},
		{Timestamp: ts.Add(-time.Hour), ObjectsDetected: []DetectedObject{{Class: "bus"}}},
	}}
	c := NewCore(j, WithCooldown(0))
	require.NoError(t, c.Load(ctx))

	ok, err := c.Consider(ctx, []DetectedObject{{Class: "dog"}}, ts.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	out := c.ListRecent(2)
	require.Len(t, out, 2)
	require.Equal(t, "dog", out[0].ObjectsDetected[0].Class)
	require.Equal(t, "cat", out[1].ObjectsDetected[0].Class)
	require.Equal(t, "bus", c.ListRecent(3)[2].ObjectsDetected[0].Class)
}

func TestListRecentNewestWithinLimit(t *testing.T) {
	ctx := context.Background()
	c := NewCore(&memJournal{}, WithCooldown(0))
	t0 := time.Date(2026, 2, 2, 9, 0, 0, 0, time.Local)
	for i := range 100 {
		_, err := c.Consider(ctx, person(), t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	out := c.ListRecent(2)
	require.Len(t, out, 2)
	require.True(t, out[0].Timestamp.Equal(t0.Add(99*time.Second)))
	require.True(t, out[1].Timestamp.Equal(t0.Add(98*time.Second)))
}

func TestLoadUnreadableJournal(t *testing.T) {
	c := NewCore(&memJournal{readErr: errors.New("permission denied")})
	require.NoError(t, c.Load(context.Background()))
	require.Zero(t, c.Len())
}

func TestMaxEvents(t *testing.T) {
	ctx := context.Background()
	j := &memJournal{}
	c := NewCore(j, WithCooldown(0), WithMaxEvents(3))
	t0 := time.Now()
	for i := range 5 {
		_, err := c.Consider(ctx, person(), t0.Add(time.Duration(i+1)*time.Second))
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.Len())
	require.Len(t, j.saved, 3)
	require.True(t, j.saved[0].Timestamp.Equal(t0.Add(3*time.Second)))
}

func TestConcurrentConsiderAndList(t *testing.T) {
	ctx := context.Background()
	c := NewCore(&memJournal{}, WithCooldown(0))
	t0 := time.Now()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Go(func() {
			for i := range 50 {
				_, err := c.Consider(ctx, person(), t0.Add(time.Duration(w*1000+i+1)*time.Millisecond))
				assert.NoError(t, err)
				for _, e := range c.ListRecent(5) {
					assert.NotEmpty(t, e.ObjectsDetected)
				}
			}
		})
	}
	wg.Wait()

	// 冷却为 0 时只有严格晚于上一次的时间才会被接受
	events := c.ListRecent(c.Len())
	for i := 0; i < len(events)-1; i++ {
		require.True(t, events[i].Timestamp.After(events[i+1].Timestamp))
	}
}
