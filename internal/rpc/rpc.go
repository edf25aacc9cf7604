package rpc

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient 封装检测服务的 gRPC 健康检查
type HealthClient struct {
	addr string
	conn *grpc.ClientConn
	cli  grpc_health_v1.HealthClient
}

// NewHealthClient 创建健康检查客户端，连接在首次调用时建立
func NewHealthClient(addr string) (*HealthClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &HealthClient{addr: addr, conn: conn, cli: grpc_health_v1.NewHealthClient(conn)}, nil
}

// Check 服务状态不是 SERVING 时返回错误
func (h *HealthClient) Check(ctx context.Context, service string) error {
	resp, err := h.cli.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check %s: %w", h.addr, err)
	}
	if s := resp.GetStatus(); s != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("health check %s: status %s", h.addr, s)
	}
	slog.DebugContext(ctx, "HealthCheck OK", "addr", h.addr)
	return nil
}

func (h *HealthClient) Close() error {
	return h.conn.Close()
}
