package services

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-intel/internal/actions"
	"github.com/miradorstack/mirador-intel/internal/api"
	"github.com/miradorstack/mirador-intel/internal/engine"
	"github.com/miradorstack/mirador-intel/internal/learning"
	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/transparency"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// Dependencies wires the collaborators of IntelService.
type Dependencies struct {
	Pipeline  *engine.Pipeline
	Learning  *learning.Engine
	Changelog *transparency.Changelog
	Executor  *actions.Executor
	Auditor   *actions.Auditor
	Catalog   actions.Catalog
	Clock     utils.Clock
}

// IntelService implements the IntelEngine gRPC service.
type IntelService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	learning  *learning.Engine
	changelog *transparency.Changelog
	executor  *actions.Executor
	auditor   *actions.Auditor
	catalog   actions.Catalog
	clock     utils.Clock
	latencies *utils.LatencyTracker
}

var _ api.IntelEngineServer = (*IntelService)(nil)

// NewIntelService constructs the service facade.
func NewIntelService(logger *slog.Logger, deps Dependencies) *IntelService {
	if logger == nil {
		logger = slog.Default()
	}
	executor := deps.Executor
	if executor == nil {
		executor = actions.NewExecutor(logger)
	}
	return &IntelService{
		logger:    logger,
		pipeline:  deps.Pipeline,
		learning:  deps.Learning,
		changelog: deps.Changelog,
		executor:  executor,
		auditor:   deps.Auditor,
		catalog:   deps.Catalog,
		clock:     utils.ClockOrSystem(deps.Clock),
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Evaluate runs the pipeline for the user's current profile.
func (s *IntelService) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.EvaluateRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if s.pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}

	var profile *models.IntelProfile
	if s.learning != nil {
		p, err := s.learning.GetProfile(ctx, req.UserID)
		if err != nil {
			s.logger.Error("profile load failed", slog.String("user_id", req.UserID), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
			return nil, status.Error(codes.Internal, "failed to load profile")
		}
		profile = &p
	}

	start := time.Now()
	eval := s.pipeline.Evaluate(req.InsightInput, profile)
	s.latencies.Observe(time.Since(start))
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("evaluation latency", slog.Duration("p95", s.LatencyP95()), slog.Int("samples", count))
	}
	return encodeResponse(eval)
}

// CreateAction promotes a suggestion to an executable action and records
// the preview.
func (s *IntelService) CreateAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.CreateActionRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	action := actions.CreateExecutableAction(req.Suggestion)
	if action == nil {
		s.logger.Debug("suggestion not executable", slog.String("suggestion_id", req.Suggestion.ID))
		return encodeResponse(api.CreateActionResponse{Created: false})
	}
	s.track(ctx, req.UserID, models.EventActionPreviewed, action)
	return encodeResponse(api.CreateActionResponse{Created: true, Action: action})
}

// ExecuteAction applies a confirmed action, audits a success and records
// the outcome as a learning event.
func (s *IntelService) ExecuteAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.ExecuteActionRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	action := req.Action

	ok := s.executor.Execute(ctx, &action, actions.ExecutionContext{Catalog: s.catalog, UserID: req.UserID})
	resp := api.ExecuteActionResponse{ActionID: action.ID, Success: ok}
	if ok {
		resp.UndoCapability = string(actions.LocalUndoOnly)
		if s.auditor != nil {
			resp.Audited = s.auditor.LogActionExecution(ctx, &action, req.UserID, nil)
		}
		s.track(ctx, req.UserID, models.EventActionExecuted, &action)
	} else {
		s.track(ctx, req.UserID, models.EventActionFailed, &action)
	}
	return encodeResponse(resp)
}

// TrackEvents records interactions and returns the updated profile.
func (s *IntelService) TrackEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.TrackEventsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if s.learning == nil {
		return nil, status.Error(codes.FailedPrecondition, "learning engine not configured")
	}
	profile := s.learning.TrackEvents(ctx, req.UserID, req.Events)
	return encodeResponse(api.ProfileResponse{Profile: profile})
}

func (s *IntelService) GetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.ProfileRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if s.learning == nil {
		return nil, status.Error(codes.FailedPrecondition, "learning engine not configured")
	}
	profile, err := s.learning.GetProfile(ctx, req.UserID)
	if err != nil {
		s.logger.Error("get profile failed", slog.String("user_id", req.UserID), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to load profile")
	}
	return encodeResponse(api.ProfileResponse{Profile: profile})
}

func (s *IntelService) UpdateProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.UpdateProfileRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if s.learning == nil {
		return nil, status.Error(codes.FailedPrecondition, "learning engine not configured")
	}
	profile, err := s.learning.UpdateProfile(ctx, req.UserID, req.Patch)
	if err != nil {
		s.logger.Error("update profile failed", slog.String("user_id", req.UserID), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to update profile")
	}
	return encodeResponse(api.ProfileResponse{Profile: profile})
}

// ResetProfile restores defaults and restarts the user's changelog.
func (s *IntelService) ResetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.ProfileRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if s.learning == nil {
		return nil, status.Error(codes.FailedPrecondition, "learning engine not configured")
	}

	var (
		profile models.IntelProfile
		err     error
	)
	if s.changelog != nil {
		profile, err = s.changelog.ResetToDefaults(ctx, req.UserID, s.learning)
	} else {
		profile, err = s.learning.ResetProfile(ctx, req.UserID)
	}
	if err != nil {
		s.logger.Error("reset profile failed", slog.String("user_id", req.UserID), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to reset profile")
	}
	return encodeResponse(api.ProfileResponse{Profile: profile})
}

// GetTransparency summarises the profile and lists recent changes.
func (s *IntelService) GetTransparency(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.ProfileRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if s.learning == nil {
		return nil, status.Error(codes.FailedPrecondition, "learning engine not configured")
	}
	profile, err := s.learning.GetProfile(ctx, req.UserID)
	if err != nil {
		s.logger.Error("get profile failed", slog.String("user_id", req.UserID), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to load profile")
	}
	resp := api.TransparencyResponse{Summary: transparency.Summarize(profile, s.clock.Now())}
	if s.changelog != nil {
		entries, err := s.changelog.Entries(ctx, req.UserID)
		if err != nil {
			s.logger.Warn("changelog read failed", slog.String("user_id", req.UserID), slog.String("op", utils.OpOf(err)), slog.Any("error", err))
		}
		resp.Changelog = entries
	}
	return encodeResponse(resp)
}

// LatencyP95 returns the current p95 evaluation latency.
func (s *IntelService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *IntelService) track(ctx context.Context, userID string, eventType models.LearningEventType, action *models.ExecutableAction) {
	if s.learning == nil {
		return
	}
	s.learning.TrackEvent(ctx, userID, models.LearningEvent{
		Type:         eventType,
		Scope:        action.Scope,
		Entity:       entityOf(action.Data),
		SuggestionID: action.OriginSuggestionID,
		ActionID:     action.ID,
	})
}

func entityOf(p models.Payload) models.EventEntity {
	switch d := p.(type) {
	case models.SetReferenceSupplier:
		return models.EventEntity{IngredientID: d.IngredientID, SupplierID: d.SupplierID}
	case models.SetCostMode:
		return models.EventEntity{RecipeID: d.RecipeID}
	case models.LinkStockItem:
		return models.EventEntity{IngredientID: d.IngredientID}
	default:
		return models.EventEntity{}
	}
}

type validator interface {
	Validate() error
}

func decodeRequest(in *structpb.Struct, req validator) error {
	if in == nil {
		return status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if err := api.Decode(in, req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encodeResponse(v any) (*structpb.Struct, error) {
	out, err := api.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
