package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/graph"
	"github.com/bayleafwalker/kiln/internal/health"
	"github.com/bayleafwalker/kiln/internal/resolver"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve <name:version>...",
	Short: "Install addons in a local registry and serve their status over gRPC health",
	Long: `Resolve the given addons, install their graphs in an in-process registry in
dependency order and serve each addon's status through the gRPC health service.
The health service name of an addon is its "name:version" coordinate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", ":50051", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ids := make([]addons.ID, 0, len(args))
	for _, a := range args {
		id, err := addons.ParseID(a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	res, err := newResolver()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := addons.NewRegistry(nil, addons.WithLogger(logger.WithName("registry")))
	reflector := health.NewReflector(logger.WithName("health"))
	detach, err := reflector.Attach(ctx, reg)
	if err != nil {
		return err
	}
	defer detach()

	order, err := installGraphs(ctx, reg, res, ids)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", serveListen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", serveListen, err)
	}
	grpcServer := grpc.NewServer()
	reflector.Register(grpcServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	logger.Info("serving addon health", "listen", lis.Addr().String(), "addons", len(order))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
	}

	// Stop in reverse install order so dependents go first.
	stopCtx := context.WithoutCancel(ctx)
	for _, id := range slices.Backward(order) {
		_ = reg.SetStatus(stopCtx, id, addons.StatusStopping)
		_ = reg.SetStatus(stopCtx, id, addons.StatusStopped)
	}
	reflector.Shutdown()
	grpcServer.GracefulStop()
	return nil
}

// installGraphs resolves each root, adds every addon of the graphs to reg in install
// order and marks them started. Addons shared between graphs are installed once. The
// returned slice is the overall install order.
func installGraphs(ctx context.Context, reg *addons.Registry, res resolver.Resolver, roots []addons.ID) ([]addons.ID, error) {
	g := graph.New()
	for _, root := range roots {
		info, err := res.ResolveGraph(ctx, root)
		if err != nil {
			return nil, err
		}
		g.AddInfo(info)
	}
	order, err := g.InstallOrder()
	if err != nil {
		return nil, err
	}

	for _, id := range order {
		if _, err := reg.AddAddon(ctx, id); err != nil && !errors.Is(err, addons.ErrAddonExists) {
			return nil, err
		}
	}
	for _, id := range order {
		if err := reg.SetStatus(ctx, id, addons.StatusStarting); err != nil {
			return nil, err
		}
		if err := reg.SetStatus(ctx, id, addons.StatusStarted); err != nil {
			return nil, err
		}
	}
	return order, nil
}
