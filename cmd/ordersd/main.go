package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/orders-intake/internal/async"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/core"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/ingest"
	"github.com/joseph-ayodele/orders-intake/internal/repository"
	"github.com/joseph-ayodele/orders-intake/internal/server"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()
	// core packages log through slog
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(slogger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), slogger)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer db.Close()

	// Healthcheck DB on startup
	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		log.Fatalf("DB health failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Infow("DB health OK")

	deps, err := core.Wire(cfg, db, slogger)
	if err != nil {
		log.Fatalf("wire: %v", err)
	}
	defer func() { _ = deps.Close() }()

	queue := async.NewProcessorQueue(deps.Processor, slogger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(64),
	)

	if cfg.Server.InboxDir != "" {
		inbox := ingest.NewInbox(ingest.JobStarterFunc(func(ctx context.Context, entries []entity.Entry) (string, error) {
			job, err := deps.Processor.CreateJob(ctx, entries)
			if err != nil {
				return "", err
			}
			return job.ID.String(), queue.Enqueue(ctx, async.Job{JobID: job.ID, SubmittedAt: time.Now()})
		}), slogger)
		go func() {
			err := inbox.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{cfg.Server.InboxDir},
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("inbox watcher stopped: %v", err)
			}
		}()
		log.Infof("watching inbox %s", cfg.Server.InboxDir)
	}

	// gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.LoggingInterceptor(logger)))
	// Health service
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	// Business service
	svc := server.NewReviewService(deps.Processor, queue, deps.Exporter, logger)
	server.RegisterReviewServer(grpcServer, svc)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Infof("gRPC serving on %s", cfg.Server.GRPCAddr)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	hs.Shutdown()
	grpcServer.GracefulStop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
	fmt.Println("stopped.")
}
