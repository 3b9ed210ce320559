package main

import (
	"context"
	"os"
	"time"

	catalogrpc "github.com/dmehra2102/campus-cafe/internal/catalog/infrastructure/grpc"
	"github.com/dmehra2102/campus-cafe/internal/catalog/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/pkg/logging"
	"github.com/dmehra2102/campus-cafe/pkg/shutdown"
)

func main() {
	log := logging.New(env("LOG_LEVEL", "info"))

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	grpcAddr := env("GRPC_ADDR", ":50051")

	src, err := memory.Load()
	if err != nil {
		log.Error("catalog load failed", "err", err)
		os.Exit(1)
	}

	gs, err := catalogrpc.Run(grpcAddr, catalogrpc.NewServer(log, src))
	if err != nil {
		log.Error("grpc server failed", "err", err)
		os.Exit(1)
	}
	log.Info("grpc listening", "addr", grpcAddr)

	<-ctx.Done()

	_ = shutdown.Run(10*time.Second, func(context.Context) error {
		gs.GracefulStop()
		return nil
	})
	log.Info("catalog-service shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
