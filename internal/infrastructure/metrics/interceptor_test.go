package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
)

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "response", nil
}

func TestUnaryServerInterceptor_RecordsRequest(t *testing.T) {
	collector := NewCollector()
	interceptor := UnaryServerInterceptor(NewRecorder(collector, nil))

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	if _, err := interceptor(context.Background(), "request", info, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opMetrics := collector.GetOperationMetrics()
	if count := opMetrics.RequestCounts["/grpc.health.v1.Health/Check"]; count != 1 {
		t.Errorf("expected request count 1, got %d", count)
	}
	if _, ok := opMetrics.TotalDurationSeconds["/grpc.health.v1.Health/Check"]; !ok {
		t.Error("expected duration to be recorded")
	}
	if count, ok := opMetrics.ErrorCounts["/grpc.health.v1.Health/Check"]; ok && count > 0 {
		t.Errorf("expected no error count, got %d", count)
	}
}

func TestUnaryServerInterceptor_RecordsError(t *testing.T) {
	collector := NewCollector()
	interceptor := UnaryServerInterceptor(NewRecorder(collector, nil))

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, expectedErr
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/ErrorMethod"}

	_, err := interceptor(context.Background(), "request", info, handler)
	if err != expectedErr {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}

	if count := collector.GetOperationMetrics().ErrorCounts["/test.Service/ErrorMethod"]; count != 1 {
		t.Errorf("expected error count 1, got %d", count)
	}
}

func TestUnaryServerInterceptor_NilRecorder(t *testing.T) {
	interceptor := UnaryServerInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/NilRecorder"}

	// must not panic
	if _, err := interceptor(context.Background(), "request", info, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnaryServerInterceptor_WithPrometheusExporter(t *testing.T) {
	collector := NewCollector()
	exporter := NewPrometheusExporter(collector, prometheus.NewRegistry())
	interceptor := UnaryServerInterceptor(NewRecorder(collector, exporter))

	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/PrometheusMethod"}
	for i := 0; i < 5; i++ {
		if _, err := interceptor(context.Background(), "request", info, okHandler); err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
	}

	if count := collector.GetOperationMetrics().RequestCounts["/test.Service/PrometheusMethod"]; count != 5 {
		t.Errorf("expected request count 5, got %d", count)
	}
	if got := testutil.ToFloat64(exporter.opRequests.WithLabelValues("/test.Service/PrometheusMethod")); got != 5 {
		t.Errorf("expected exported count 5, got %v", got)
	}
}
