package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

const serviceName = "campuscafe.catalog.v1.Catalog"

type LocationsRequest struct{}

type LocationsResponse struct {
	Locations []domain.Location `json:"locations"`
}

type MenuRequest struct {
	LocationID string `json:"locationId"`
}

type MenuResponse struct {
	Items []domain.MenuItem `json:"items"`
}

type CatalogServer interface {
	Locations(ctx context.Context, req *LocationsRequest) (*LocationsResponse, error)
	Menu(ctx context.Context, req *MenuRequest) (*MenuResponse, error)
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Locations", Handler: locationsHandler},
		{MethodName: "Menu", Handler: menuHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog.json",
}

func locationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LocationsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).Locations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Locations"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).Locations(ctx, req.(*LocationsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func menuHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MenuRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).Menu(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Menu"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).Menu(ctx, req.(*MenuRequest))
	}
	return interceptor(ctx, in, info, handler)
}
