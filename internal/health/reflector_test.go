package health

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/bayleafwalker/kiln/internal/addons"
)

func check(t *testing.T, r *Reflector, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := r.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestReflector_FollowsRegistry(t *testing.T) {
	ctx := context.Background()
	reg := addons.NewRegistry(nil)
	existing := addons.NewID("test:existing", "1.0")
	_, err := reg.AddAddon(ctx, existing)
	require.NoError(t, err)
	require.NoError(t, reg.SetStatus(ctx, existing, addons.StatusStarted))

	r := NewReflector(logr.Discard())
	detach, err := r.Attach(ctx, reg)
	require.NoError(t, err)
	defer detach()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, r, existing.String()))

	id := addons.NewID("test:new", "2.0")
	_, err = reg.AddAddon(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, r, id.String()))

	require.NoError(t, reg.SetStatus(ctx, id, addons.StatusStarted))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, r, id.String()))

	require.NoError(t, reg.SetStatus(ctx, id, addons.StatusFailed))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, r, id.String()))

	require.NoError(t, reg.RemoveAddon(ctx, id))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVICE_UNKNOWN, check(t, r, id.String()))
}

func TestReflector_DetachStopsUpdates(t *testing.T) {
	ctx := context.Background()
	reg := addons.NewRegistry(nil)
	r := NewReflector(logr.Discard())
	detach, err := r.Attach(ctx, reg)
	require.NoError(t, err)
	detach()

	_, err = reg.AddAddon(ctx, addons.NewID("test:late", "1.0"))
	require.NoError(t, err)

	_, err = r.Server().Check(ctx, &healthpb.HealthCheckRequest{Service: "test:late:1.0"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServingStatus(t *testing.T) {
	for _, s := range []addons.Status{addons.StatusNotStarted, addons.StatusStarting, addons.StatusStopping, addons.StatusStopped, addons.StatusFailed} {
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, ServingStatus(s), s.String())
	}
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, ServingStatus(addons.StatusStarted))
}
