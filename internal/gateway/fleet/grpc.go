package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	methodQualification = "/fleet.v1.FleetService/CheckQualification"
	methodLicense       = "/fleet.v1.FleetService/CheckLicense"
)

// invoker is the unary part of grpc.ClientConnInterface.
type invoker interface {
	Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error
}

// GRPCGateway asks the fleet service whether a driver may operate a truck.
// Requests and replies are google.protobuf.Struct messages.
type GRPCGateway struct {
	conn invoker
}

// NewGRPCGateway returns nil when conn is nil.
func NewGRPCGateway(conn invoker) *GRPCGateway {
	if conn == nil {
		return nil
	}
	return &GRPCGateway{conn: conn}
}

// Dial opens a lazy plaintext client connection to the fleet service.
func Dial(target string) (*grpc.ClientConn, error) {
	if target == "" {
		return nil, errors.New("fleet gateway: empty target")
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("fleet gateway: dial %s: %w", target, err)
	}
	return conn, nil
}

// IsDriverQualifiedForTruck returns the fleet service verdict and its reason.
func (g *GRPCGateway) IsDriverQualifiedForTruck(ctx context.Context, driverID, truckID uuid.UUID) (bool, string, error) {
	req, err := structpb.NewStruct(map[string]any{
		"driver_id": driverID.String(),
		"truck_id":  truckID.String(),
	})
	if err != nil {
		return false, "", fmt.Errorf("fleet gateway: build request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, methodQualification, req, resp); err != nil {
		return false, "", fmt.Errorf("fleet gateway: CheckQualification: %w", err)
	}
	fields := resp.GetFields()
	return fields["qualified"].GetBoolValue(), fields["reason"].GetStringValue(), nil
}

// IsDriverLicenseValid reports whether the driver's license is current.
func (g *GRPCGateway) IsDriverLicenseValid(ctx context.Context, driverID uuid.UUID) (bool, error) {
	req, err := structpb.NewStruct(map[string]any{"driver_id": driverID.String()})
	if err != nil {
		return false, fmt.Errorf("fleet gateway: build request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, methodLicense, req, resp); err != nil {
		return false, fmt.Errorf("fleet gateway: CheckLicense: %w", err)
	}
	return resp.GetFields()["valid"].GetBoolValue(), nil
}
