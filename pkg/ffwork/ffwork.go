package ffwork

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ixugo/goddd/pkg/queue"
)

// ErrTimeout 超时未读取到帧
var ErrTimeout = errors.New("ffwork: frame timeout")

type (
	Config struct {
		Width, Height int
		FPS           int
		Input         string // rtsp/http 地址或本地设备
		Format        string // 输入格式，例如 v4l2、avfoundation，为空由 ffmpeg 探测
		Transport     string
		UseWallClock  bool
		HWAccel       string
		Name          string
	}
	FrameData struct {
		FrameNum  uint64
		Timestamp time.Time
		Data      []byte // rgb24
	}
	FrameCapture struct {
		config                Config
		frameSize             int
		frameCh               chan *FrameData
		errCh                 chan error
		ctx                   context.Context
		cancel                context.CancelFunc
		m                     sync.Mutex
		started               bool
		cmd                   *exec.Cmd
		lastFrame             time.Time
		wg                    sync.WaitGroup
		ffmpegLog             *queue.CirQueue[string]
		frameCount, skipCount uint64
	}
	Stats struct {
		Name                  string
		FrameCount, SkipCount uint64
		LastFrame             time.Time
		FrameSize             int
		IsRunning             bool
	}
)

func NewFrameCapture(cfg Config) (*FrameCapture, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid resolution: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %d", cfg.FPS)
	}
	if cfg.Input == "" {
		return nil, fmt.Errorf("input is required")
	}
	if cfg.Transport == "" {
		cfg.Transport = "tcp"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FrameCapture{
		config:    cfg,
		frameSize: cfg.Width * cfg.Height * 3,
		frameCh:   make(chan *FrameData, 2),
		errCh:     make(chan error, 1),
		ctx:       ctx,
		cancel:    cancel,
		ffmpegLog: queue.NewCirQueue[string](100),
	}, nil
}

func (fc *FrameCapture) FrameSize() int {
	return fc.frameSize
}

func (fc *FrameCapture) buildFFmpegArgs() []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-threads", "2",
	}
	if strings.HasPrefix(fc.config.Input, "rtsp://") || strings.HasPrefix(fc.config.Input, "rtsps://") {
		args = append(args, "-user_agent", "FFmpeg Sentinel")
		args = append(args, "-avoid_negative_ts", "make_zero",
			"-fflags", "+genpts+discardcorrupt",
			"-rtsp_transport", fc.config.Transport,
			"-timeout", "10000000",
		)
	}
	if fc.config.UseWallClock {
		args = append(args, "-use_wallclock_as_timestamps", "1")
	}
	if fc.config.HWAccel != "" {
		args = append(args, "-hwaccel", fc.config.HWAccel)
	}
	if fc.config.Format != "" {
		args = append(args, "-f", fc.config.Format)
	}
	args = append(args, "-i", fc.config.Input)

	args = append(args,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-r", strconv.Itoa(fc.config.FPS),
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", fc.config.FPS, fc.config.Width, fc.config.Height),
		"pipe:1",
	)
	return args
}

func (fc *FrameCapture) Start() error {
	fc.m.Lock()
	defer fc.m.Unlock()
	if fc.started {
		return fmt.Errorf("frame capture already started")
	}

	args := fc.buildFFmpegArgs()
	fc.cmd = exec.CommandContext(fc.ctx, "ffmpeg", args...)
	stdout, err := fc.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := fc.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}
	if err := fc.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	fc.started = true
	fc.lastFrame = time.Now()

	fc.wg.Go(func() { fc.captureLoop(stdout) })
	fc.wg.Go(func() { fc.readStderr(stderr) })
	return nil
}

// captureLoop 从 ffmpeg 的 stdout 读取原始视频帧数据
// ffmpeg 输出的是固定大小的 rgb24 帧，需要按帧大小读取
// 消费方跟不上时丢弃新帧，保证读到的总是较新的画面
func (fc *FrameCapture) captureLoop(stdout io.Reader) {
	defer close(fc.frameCh)

	reader := bufio.NewReaderSize(stdout, fc.frameSize*2)
	for {
		select {
		case <-fc.ctx.Done():
			return
		default:
		}

		frameBytes := make([]byte, fc.frameSize)
		if _, err := io.ReadFull(reader, frameBytes); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("ffmpeg stream ended: %w", io.EOF)
			} else {
				err = fmt.Errorf("failed to read frame: %w", err)
			}
			select {
			case fc.errCh <- err:
			default:
			}
			return
		}

		frameNum := atomic.AddUint64(&fc.frameCount, 1)
		now := time.Now()
		fc.m.Lock()
		fc.lastFrame = now
		fc.m.Unlock()

		frame := FrameData{
			FrameNum:  frameNum,
			Timestamp: now,
			Data:      frameBytes,
		}
		select {
		case fc.frameCh <- &frame:
		case <-fc.ctx.Done():
			return
		default:
			atomic.AddUint64(&fc.skipCount, 1)
		}
	}
}

// readStderr 读取 ffmpeg 的 stderr 输出用于日志记录
// ffmpeg 的警告和错误信息都会输出到 stderr
func (fc *FrameCapture) readStderr(stderr io.Reader) {
	scan := bufio.NewScanner(stderr)
	for scan.Scan() {
		fc.ffmpegLog.Push(scan.Text())
	}
}

func (fc *FrameCapture) Log() []string {
	return fc.ffmpegLog.Range()
}

// GetFrame 读取下一帧，流结束时返回的错误满足 errors.Is(err, io.EOF)
func (fc *FrameCapture) GetFrame(ctx context.Context, timeout time.Duration) (*FrameData, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-fc.frameCh:
		if !ok {
			select {
			case err := <-fc.errCh:
				return nil, err
			default:
				return nil, fmt.Errorf("frame channel closed: %w", io.EOF)
			}
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fc.ctx.Done():
		return nil, fc.ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (fc *FrameCapture) Stop() error {
	fc.m.Lock()
	if !fc.started {
		fc.m.Unlock()
		return nil
	}
	fc.started = false
	fc.m.Unlock()

	if cancel := fc.cancel; cancel != nil {
		cancel()
	}
	fc.wg.Wait()

	if fc.cmd != nil && fc.cmd.Process != nil {
		done := make(chan error, 1)
		go func() {
			done <- fc.cmd.Wait()
		}()

		select {
		case <-time.After(5 * time.Second):
			if err := fc.cmd.Process.Kill(); err != nil {
				return fmt.Errorf("failed to kill ffmpeg: %w", err)
			}
			<-done
		case <-done:
		}
	}
	return nil
}

func (fc *FrameCapture) GetStats() Stats {
	fc.m.Lock()
	defer fc.m.Unlock()
	return Stats{
		Name:       fc.config.Name,
		FrameCount: atomic.LoadUint64(&fc.frameCount),
		SkipCount:  atomic.LoadUint64(&fc.skipCount),
		LastFrame:  fc.lastFrame,
		FrameSize:  fc.frameSize,
		IsRunning:  fc.started,
	}
}

// ToImage 将 rgb24 帧转换为 RGBA 图像
func ToImage(data []byte, width, height int) (*image.RGBA, error) {
	if len(data) != width*height*3 {
		return nil, fmt.Errorf("frame size %d does not match %dx%d rgb24", len(data), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(data); i, j = i+3, j+4 {
		img.Pix[j] = data[i]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}
