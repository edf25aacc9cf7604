package eventfile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gowvp/sentinel/internal/core/event"
	"github.com/stretchr/testify/require"
)

func TestReadMissing(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "events.json"))
	_, err := f.Read()
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "nested", "events.json"))

	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	in := []event.SecurityEvent{
		{Timestamp: t0, ObjectsDetected: []event.DetectedObject{{Class: "person", Confidence: 0.91}}},
		{Timestamp: t0.Add(time.Minute), ObjectsDetected: []event.DetectedObject{{Class: "car", Confidence: 0.66}, {Class: "dog", Confidence: 0.52}}},
	}
	require.NoError(t, f.Write(in))

	out, err := f.Read()
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		require.True(t, in[i].Timestamp.Equal(out[i].Timestamp))
		require.Equal(t, in[i].ObjectsDetected, out[i].ObjectsDetected)
	}

	// 覆盖写入，不应留下临时文件
	require.NoError(t, f.Write(in[:1]))
	out, err = f.Read()
	require.NoError(t, err)
	require.Len(t, out, 1)

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "events.json", entries[0].Name())
}

func TestWriteEmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, New(path).Write(nil))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]", string(b))
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"timestamp": "not a time"`), 0o644))

	f := New(path)
	_, err := f.Read()
	require.Error(t, err)

	core := event.NewCore(f, event.WithCooldown(30*time.Second))
	require.NoError(t, core.Load(context.Background()))
	require.Zero(t, core.Len())
	_, ok := core.LastEventTime()
	require.False(t, ok)
}

func TestSaveThenLoadReproducesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	ctx := context.Background()

	first := event.NewCore(New(path), event.WithCooldown(10*time.Second))
	require.NoError(t, first.Load(ctx))
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)
	for i, class := range []string{"person", "car", "bus"} {
		ok, err := first.Consider(ctx, []event.DetectedObject{{Class: class, Confidence: 0.8}}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
	}

	second := event.NewCore(New(path), event.WithCooldown(10*time.Second))
	require.NoError(t, second.Load(ctx))
	require.Equal(t, first.Len(), second.Len())

	a, b := first.ListRecent(10), second.ListRecent(10)
	for i := range a {
		require.True(t, a[i].Timestamp.Equal(b[i].Timestamp))
		require.Equal(t, a[i].ObjectsDetected, b[i].ObjectsDetected)
	}

	// 冷却状态随日志恢复
	last, ok := second.LastEventTime()
	require.True(t, ok)
	require.True(t, last.Equal(t0.Add(2*time.Minute)))
	accepted, err := second.Consider(ctx, []event.DetectedObject{{Class: "dog", Confidence: 0.7}}, t0.Add(2*time.Minute+5*time.Second))
	require.NoError(t, err)
	require.False(t, accepted)
}
