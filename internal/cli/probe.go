package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

var (
	probeTarget  string
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe [name:version]",
	Short: "Query the health of an addon served by 'kiln serve'",
	Long: `Send a gRPC health check for an addon and print the response as JSON. Without an
argument the overall server health is checked. The command fails unless the
addon is SERVING.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeTarget, "target", "127.0.0.1:50051", "gRPC server address")
	probeCmd.Flags().DurationVar(&probeTimeout, "probe-timeout", 3*time.Second, "Timeout of the health check")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	service := ""
	if len(args) == 1 {
		service = args[0]
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
	defer cancel()

	conn, err := grpc.NewClient(probeTarget, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", probeTarget, err)
	}
	defer conn.Close()

	resp, err := checkHealth(ctx, healthpb.NewHealthClient(conn), service)
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s is %s", describeService(service), resp.GetStatus())
	}
	return nil
}

func checkHealth(ctx context.Context, c healthpb.HealthClient, service string) (*healthpb.HealthCheckResponse, error) {
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return nil, fmt.Errorf("health check of %s: %w", describeService(service), err)
	}
	return resp, nil
}

func describeService(service string) string {
	if service == "" {
		return "server"
	}
	return service
}
