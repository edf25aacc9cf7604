package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/internal/core/pipeline"
	"github.com/gowvp/sentinel/internal/rpc"
	"github.com/gowvp/sentinel/pkg/annotate"
)

var _ pipeline.Detector = (*HTTPDetector)(nil)

// HTTPDetector 通过 HTTP /predict 接口检测画面
type HTTPDetector struct {
	endpoint   string
	healthAddr string
	client     *http.Client
	filter     Filter
	log        *slog.Logger
}

func NewHTTPDetector(cfg conf.Detector) *HTTPDetector {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPDetector{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		healthAddr: cfg.HealthAddr,
		client:     &http.Client{Timeout: timeout},
		filter:     NewFilter(cfg.Classes, cfg.MinConfidence),
		log:        slog.With("component", "detector", "endpoint", cfg.Endpoint),
	}
}

// Open 检查检测服务是否就绪
func (d *HTTPDetector) Open(ctx context.Context) error {
	if d.endpoint == "" {
		return errors.New("detector endpoint is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, d.client.Timeout)
	defer cancel()

	if d.healthAddr != "" {
		cli, err := rpc.NewHealthClient(d.healthAddr)
		if err != nil {
			return err
		}
		defer cli.Close()
		return cli.Check(ctx, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: bad status %s", resp.Status)
	}
	d.log.InfoContext(ctx, "detector ready")
	return nil
}

// Detect 上传 JPEG 到 /predict，返回过滤后的目标与标注图
func (d *HTTPDetector) Detect(ctx context.Context, img image.Image) (*Result, error) {
	var frame bytes.Buffer
	if err := jpeg.Encode(&frame, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(frame.Bytes()); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/predict", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bad status: %s, error: %s", resp.Status, b)
	}

	var out predictOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dets := d.filter.Apply(out.Detections)
	return &Result{
		Objects:   toObjects(dets),
		Annotated: annotate.Draw(img, toBoxes(dets), 2),
	}, nil
}

func (d *HTTPDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
