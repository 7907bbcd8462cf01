package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/eco-bazaar/internal/adapter/handler"
	"github.com/rl1809/eco-bazaar/internal/adapter/messaging"
	"github.com/rl1809/eco-bazaar/internal/port"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			// Start event workers
			var publisher port.EventPublisher
			if len(cfg.Kafka.Brokers) > 0 {
				kp := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
				a.closers = append(a.closers, kp.Close)
				publisher = kp
			} else {
				log.Warn("kafka not configured, order events are logged")
				publisher = messaging.NewLogPublisher(log)
			}
			workers := messaging.NewDispatcher(publisher, cfg.Order.Workers, log).Start(a.orders.GetEventQueue())

			// Initialize gRPC server
			grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(handler.AuthInterceptor(a.accounts, log)))
			handler.RegisterCheckoutServer(grpcServer, handler.NewGRPCHandler(a.carts, a.orders))
			healthServer := health.NewServer()
			healthpb.RegisterHealthServer(grpcServer, healthServer)

			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
				if err := grpcServer.Serve(lis); err != nil {
					log.Error("gRPC server error", "error", err)
				}
			}()

			// Initialize HTTP server
			if cfg.Env != "dev" {
				gin.SetMode(gin.ReleaseMode)
			}
			httpHandler := handler.NewHTTPHandler(a.accounts, a.catalog, a.carts, a.orders, log)
			httpServer := &http.Server{
				Addr:    cfg.HTTP.Addr,
				Handler: httpHandler.Router(cfg.HTTP.AllowOrigins),
			}
			go func() {
				log.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server error", "error", err)
					stop()
				}
			}()

			<-ctx.Done()
			log.Info("shutting down")
			healthServer.Shutdown()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("HTTP shutdown", "error", err)
			}
			log.Info("HTTP server stopped")

			grpcServer.GracefulStop()
			log.Info("gRPC server stopped")

			// Close event queue and wait for workers
			a.orders.Close()
			workers.Wait()
			log.Info("workers stopped")
			return nil
		},
	}
}
