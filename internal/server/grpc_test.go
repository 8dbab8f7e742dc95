package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestWatchHealth_FollowsProbe(t *testing.T) {
	gs, hs := NewGRPCServer()
	defer gs.Stop()

	var failing atomic.Bool
	probe := func(context.Context) error {
		if failing.Load() {
			return errors.New("db down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchHealth(ctx, hs, probe, 10*time.Millisecond, nil)
		close(done)
	}()

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		return resp.GetStatus()
	}
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status())

	failing.Store(true)
	assert.Eventually(t, func() bool {
		return status() == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)

	failing.Store(false)
	assert.Eventually(t, func() bool {
		return status() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
