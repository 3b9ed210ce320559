package grpc

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/campus-cafe/internal/catalog/application"
)

type Server struct {
	log *slog.Logger
	src application.Source
}

func NewServer(log *slog.Logger, src application.Source) *Server {
	return &Server{log: log, src: src}
}

func (s *Server) Locations(ctx context.Context, _ *LocationsRequest) (*LocationsResponse, error) {
	locs, err := s.src.Locations(ctx)
	if err != nil {
		s.log.Error("list locations failed", "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &LocationsResponse{Locations: locs}, nil
}

func (s *Server) Menu(ctx context.Context, req *MenuRequest) (*MenuResponse, error) {
	if req.LocationID == "" {
		return nil, status.Error(codes.InvalidArgument, "location id is required")
	}
	items, err := s.src.Menu(ctx, req.LocationID)
	if err != nil {
		s.log.Error("menu lookup failed", "location_id", req.LocationID, "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &MenuResponse{Items: items}, nil
}

// Register mounts the catalog and a health service on gs.
func Register(gs *grpc.Server, srv *Server) {
	RegisterCatalogServer(gs, srv)
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

func Run(addr string, srv *Server) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	Register(gs, srv)
	go func() {
		if err := gs.Serve(lis); err != nil {
			srv.log.Error("catalog grpc serve stopped", "err", err)
		}
	}()
	return gs, nil
}
