package api

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-intel/internal/config"
	"github.com/miradorstack/mirador-intel/internal/models"
)

func TestEncodeDecodeKeepsPayload(t *testing.T) {
	req := ExecuteActionRequest{
		UserID: "u1",
		Action: models.ExecutableAction{
			ID:   "act-1",
			Type: models.ActionSetCostMode,
			Data: models.SetCostMode{RecipeID: "r1", Mode: models.CostModeReal},
		},
	}
	s, err := Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got ExecuteActionRequest
	if err := Decode(s, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	payload, ok := got.Action.Data.(models.SetCostMode)
	if !ok || payload.RecipeID != "r1" || payload.Mode != models.CostModeReal {
		t.Fatalf("payload lost in transit: %#v", got.Action.Data)
	}
}

func TestDecodeNil(t *testing.T) {
	var req ProfileRequest
	if err := Decode(nil, &req); err == nil {
		t.Fatalf("expected error for nil struct")
	}
}

func TestRequestValidation(t *testing.T) {
	if err := (ProfileRequest{}).Validate(); err == nil {
		t.Fatalf("expected missing user error")
	}
	eval := EvaluateRequest{UserID: "u1"}
	eval.Signals = []models.Signal{{}}
	if err := eval.Validate(); err == nil {
		t.Fatalf("expected missing signal id error")
	}
	if err := (CreateActionRequest{UserID: "u1"}).Validate(); err == nil {
		t.Fatalf("expected missing suggestion id error")
	}
}

type echoServer struct {
	IntelEngineServer
	calls int
}

func (e *echoServer) GetProfile(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e.calls++
	var req ProfileRequest
	if err := Decode(in, &req); err != nil {
		return nil, err
	}
	return Encode(ProfileResponse{Profile: models.DefaultProfile(req.UserID)})
}

func TestNewServerRequiresService(t *testing.T) {
	if _, err := NewServer(config.ServerConfig{Address: "127.0.0.1:0"}, nil, nil); err == nil {
		t.Fatalf("expected error without a service")
	}
}

func TestServerRoundTrip(t *testing.T) {
	srv := &echoServer{}
	server, err := NewServer(config.ServerConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second}, srv, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(runCtx) }()
	defer func() {
		stop()
		if err := <-done; err != nil {
			t.Errorf("run: %v", err)
		}
	}()

	conn, err := grpc.NewClient(server.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resp ProfileResponse
	if err := NewClient(conn).Call(ctx, MethodGetProfile, ProfileRequest{UserID: "u9"}, &resp); err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Profile.UserID != "u9" || srv.calls != 1 {
		t.Fatalf("unexpected response %+v after %d calls", resp.Profile, srv.calls)
	}

	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected serving, got %v", health.GetStatus())
	}
}
