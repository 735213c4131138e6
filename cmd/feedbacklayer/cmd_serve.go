package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/feedback-layer/internal/httpapi"
	"github.com/danielpatrickdp/feedback-layer/internal/journal"
	"github.com/danielpatrickdp/feedback-layer/internal/metrics"
	"github.com/danielpatrickdp/feedback-layer/internal/rpc"
)

const shutdownTimeout = 5 * time.Second

// #region serve-cmd

type serveOptions struct {
	grpcAddr string
	httpAddr string
	journal  string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one shared layer over gRPC and HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.grpcAddr, "grpc-addr", envOr("FEEDBACK_GRPC_ADDR", "localhost:50061"), "gRPC listen address (empty disables)")
	f.StringVar(&opts.httpAddr, "http-addr", envOr("FEEDBACK_HTTP_ADDR", "localhost:8080"), "HTTP listen address (empty disables)")
	f.StringVar(&opts.journal, "journal", envOr("FEEDBACK_JOURNAL", journal.MemoryDSN), "SQLite journal path")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	if opts.grpcAddr == "" && opts.httpAddr == "" {
		return errors.New("serve: at least one of --grpc-addr or --http-addr is required")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s, err := openSession(cmd, root, opts.journal, metrics.New(reg))
	if err != nil {
		return err
	}
	defer s.Close()
	logger := s.logger

	g, ctx := errgroup.WithContext(ctx)

	if opts.grpcAddr != "" {
		lis, err := net.Listen("tcp", opts.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", opts.grpcAddr, err)
		}
		srv := grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(logger)))
		rpc.Register(srv, rpc.NewServer(s.layer))
		g.Go(func() error {
			logger.Info("grpc listening", "addr", lis.Addr().String())
			return srv.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			srv.GracefulStop()
			return nil
		})
	}

	if opts.httpAddr != "" {
		hs := &http.Server{
			Addr:              opts.httpAddr,
			Handler:           httpapi.New(s.layer, reg, logger).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http listening", "addr", opts.httpAddr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// #endregion serve-cmd
