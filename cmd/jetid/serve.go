package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/danielpatrickdp/jetid/internal/httpapi"
	"github.com/danielpatrickdp/jetid/internal/rpc"
	"github.com/danielpatrickdp/jetid/internal/runner"
	"github.com/danielpatrickdp/jetid/internal/store"
)

var (
	serveGRPCAddr string
	serveHTTPAddr string
	serveNoStore  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the selector over gRPC and HTTP",
	Long: `Start the jetid.v1.JetSelector gRPC service and the HTTP API.

HTTP routes:
  GET  /healthz
  GET  /v1/cuts
  GET  /v1/cutflow
  POST /v1/select   body {"jets": [...]}

Every Select call is recorded as a run unless --no-store is given. An empty
address disables that listener.

Example:
  jetid serve -q TIGHT --grpc-addr :50061 --http-addr :8088`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc-addr", "", "gRPC listen address (default from config)")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", "", "HTTP listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Do not record runs")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	grpcAddr, httpAddr := cfg.GRPCAddr, cfg.HTTPAddr
	if cmd.Flags().Changed("grpc-addr") {
		grpcAddr = serveGRPCAddr
	}
	if cmd.Flags().Changed("http-addr") {
		httpAddr = serveHTTPAddr
	}
	if grpcAddr == "" && httpAddr == "" {
		return errors.New("serve: both listeners disabled")
	}

	sel, err := cfg.Selector()
	if err != nil {
		return err
	}
	var st *store.Store
	if !serveNoStore {
		st, err = store.NewStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}
	r := runner.NewRunner(sel, st, logger)

	ctx := cmd.Context()
	errc := make(chan error, 2)

	var grpcSrv *grpc.Server
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", grpcAddr, err)
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(logger)))
		rpc.NewServer(r, logger).Register(grpcSrv)
		hs := health.NewServer()
		hs.SetServingStatus(rpc.ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcSrv, hs)

		logger.Info("grpc listening", "addr", lis.Addr().String())
		go func() { errc <- grpcSrv.Serve(lis) }()
	}

	var httpSrv *httpapi.Server
	if httpAddr != "" {
		httpSrv = httpapi.NewServer(httpAddr, r, logger)
		logger.Info("http listening", "addr", httpAddr)
		go func() { errc <- httpSrv.Run() }()
	}

	logger.Info("serving", "version", sel.Version().String(), "quality", sel.Quality().String(), "disabled", sel.Disabled())

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
		if err != nil {
			logger.Error("listener failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if httpSrv != nil {
		if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("http shutdown", "err", serr)
		}
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	total, selected := r.Totals()
	logger.Info("stopped", "jets", total, "selected", selected)
	return err
}
