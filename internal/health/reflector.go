// Package health mirrors addon lifecycle status into the standard gRPC health service,
// so probes can ask whether a given addon is started.
package health

import (
	"context"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/bayleafwalker/kiln/internal/addons"
)

// Reflector keeps a gRPC health server in step with an addon registry. The health
// service name of an addon is its "name:version" coordinate.
type Reflector struct {
	server *grpchealth.Server
	log    logr.Logger
}

var _ addons.Listener = (*Reflector)(nil)

// NewReflector returns a Reflector backed by a fresh health server. The overall ("")
// service reports SERVING.
func NewReflector(log logr.Logger) *Reflector {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Reflector{server: grpchealth.NewServer(), log: log}
}

// Server returns the health server, for registration on a grpc.Server.
func (r *Reflector) Server() *grpchealth.Server {
	return r.server
}

// Register adds the health service to s.
func (r *Reflector) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.server)
}

// Attach seeds the server from the addons already in reg and subscribes to further
// changes. The returned function unsubscribes.
func (r *Reflector) Attach(ctx context.Context, reg *addons.Registry) (detach func(), err error) {
	// Subscribe before seeding. Setting the same status twice is harmless.
	detach = reg.AddListener(r)
	current, err := reg.ListAddons(ctx, nil)
	if err != nil {
		detach()
		return nil, err
	}
	for _, a := range current {
		r.set(a.ID(), a.Status())
	}
	return detach, nil
}

func (r *Reflector) OnAddonEvent(e addons.Event) {
	id := e.Addon.ID()
	switch e.Type {
	case addons.EventRemoved:
		r.server.SetServingStatus(id.String(), healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
		r.log.V(1).Info("addon health removed", "addon", id.String())
	default:
		r.set(id, e.New)
	}
}

// Shutdown reports every service as NOT_SERVING and ignores later updates.
func (r *Reflector) Shutdown() {
	r.server.Shutdown()
}

func (r *Reflector) set(id addons.ID, s addons.Status) {
	st := ServingStatus(s)
	r.server.SetServingStatus(id.String(), st)
	r.log.V(1).Info("addon health updated", "addon", id.String(), "status", st.String())
}

// ServingStatus maps an addon status to a health status.
func ServingStatus(s addons.Status) healthpb.HealthCheckResponse_ServingStatus {
	if s == addons.StatusStarted {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
