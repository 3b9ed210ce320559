package grpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

// Client implements application.Source against a remote catalog-service.
type Client struct {
	log *slog.Logger
	cc  *grpc.ClientConn
}

func NewClient(log *slog.Logger, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{log: log, cc: conn}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

func (c *Client) Locations(ctx context.Context) ([]domain.Location, error) {
	var resp LocationsResponse
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Locations", &LocationsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

func (c *Client) Menu(ctx context.Context, locationID string) ([]domain.MenuItem, error) {
	var resp MenuResponse
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Menu", &MenuRequest{LocationID: locationID}, &resp); err != nil {
		c.log.Warn("catalog menu call failed", "location_id", locationID, "err", err)
		return nil, err
	}
	return resp.Items, nil
}
