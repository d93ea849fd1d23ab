package fleet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubConn struct {
	invokeFn func(ctx context.Context, method string, args, reply any) error
}

func (s *stubConn) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	return s.invokeFn(ctx, method, args, reply)
}

func fill(reply any, fields map[string]any) error {
	v, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	reply.(*structpb.Struct).Fields = v.Fields
	return nil
}

func TestNewGRPCGateway_NilConn(t *testing.T) {
	t.Parallel()

	if NewGRPCGateway(nil) != nil {
		t.Fatalf("expected nil gateway")
	}
}

func TestGRPCGateway_IsDriverQualifiedForTruck(t *testing.T) {
	t.Parallel()

	driverID, truckID := uuid.New(), uuid.New()
	conn := &stubConn{invokeFn: func(_ context.Context, method string, args, reply any) error {
		if method != methodQualification {
			t.Fatalf("method = %s", method)
		}
		req := args.(*structpb.Struct).GetFields()
		if req["driver_id"].GetStringValue() != driverID.String() || req["truck_id"].GetStringValue() != truckID.String() {
			t.Fatalf("unexpected request: %v", req)
		}
		return fill(reply, map[string]any{"qualified": false, "reason": "different carriers"})
	}}

	ok, reason, err := NewGRPCGateway(conn).IsDriverQualifiedForTruck(context.Background(), driverID, truckID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok || reason != "different carriers" {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestGRPCGateway_IsDriverLicenseValid(t *testing.T) {
	t.Parallel()

	conn := &stubConn{invokeFn: func(_ context.Context, method string, _, reply any) error {
		if method != methodLicense {
			t.Fatalf("method = %s", method)
		}
		return fill(reply, map[string]any{"valid": true})
	}}

	ok, err := NewGRPCGateway(conn).IsDriverLicenseValid(context.Background(), uuid.New())
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}
}

func TestGRPCGateway_WrapsErrorAndKeepsCode(t *testing.T) {
	t.Parallel()

	conn := &stubConn{invokeFn: func(context.Context, string, any, any) error {
		return status.Error(codes.Unavailable, "down")
	}}

	_, _, err := NewGRPCGateway(conn).IsDriverQualifiedForTruck(context.Background(), uuid.New(), uuid.New())
	if err == nil || !strings.HasPrefix(err.Error(), "fleet gateway:") {
		t.Fatalf("unexpected err: %v", err)
	}
	if !isRetryable(err) {
		t.Fatalf("wrapped unavailable must stay retryable")
	}
	if isRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are not retryable")
	}
}

func TestDial_EmptyTarget(t *testing.T) {
	t.Parallel()

	if _, err := Dial(""); err == nil {
		t.Fatalf("expected error")
	}
}
