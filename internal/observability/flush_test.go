package observability

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFlushTelemetry(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		logger  *zap.Logger
		wantErr error
	}{
		{"nil logger", context.Background(), nil, nil},
		{"observer core", context.Background(), zap.New(core), nil},
		{"cancelled", cancelled, zap.New(core), context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FlushTelemetry(tt.ctx, tt.logger)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FlushTelemetry() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
