package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-intel/internal/actions"
	"github.com/miradorstack/mirador-intel/internal/api"
	"github.com/miradorstack/mirador-intel/internal/engine"
	"github.com/miradorstack/mirador-intel/internal/learning"
	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/repo"
	"github.com/miradorstack/mirador-intel/internal/suggest"
	"github.com/miradorstack/mirador-intel/internal/transparency"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service  *IntelService
	store    *repo.MemoryStore
	learning *learning.Engine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := utils.DiscardLogger()
	clock := utils.FixedClock{T: testNow}
	store := repo.NewMemoryStore()
	if err := store.Save(context.Background(), repo.Path(repo.CollectionIngredients, "ing_1"), map[string]any{"name": "Tomato"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	changelog := transparency.NewChangelog(store, 0, clock, logger)
	learn := learning.NewEngine(store, nil, changelog, learning.DefaultConfig(), clock, logger)
	pipeline := engine.NewPipeline(logger, nil, suggest.NewEngine(logger, nil, clock), clock)

	svc := NewIntelService(logger, Dependencies{
		Pipeline:  pipeline,
		Learning:  learn,
		Changelog: changelog,
		Auditor:   actions.NewAuditor(store, logger, clock),
		Catalog:   repo.NewCatalog(store, clock),
		Clock:     clock,
	})
	return fixture{service: svc, store: store, learning: learn}
}

func encode(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	s, err := api.Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return s
}

func decode(t *testing.T, s *structpb.Struct, out any) {
	t.Helper()
	if err := api.Decode(s, out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func savingsRequest() api.EvaluateRequest {
	return api.EvaluateRequest{
		UserID: "u1",
		InsightInput: engine.InsightInput{
			Signals: []models.Signal{{
				ID: engine.SignalMarketSavings,
				Meta: map[string]any{
					"deltaAbs": 2.5, "deltaPct": 15, "bestPrice": 10, "currentPrice": 12.5,
					"ingredientId": "ing_1", "bestSupplierId": "sup_b", "currentSupplierId": "sup_a",
				},
			}},
			ContextHints: []models.ContextHint{{
				Metadata: models.HintMetadata{SignalID: engine.SignalMarketSavings, RecipeIDs: []string{"r1", "r2", "r3", "r4"}},
			}},
		},
	}
}

func TestEvaluateCreateExecute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.service.Evaluate(ctx, encode(t, savingsRequest()))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	var eval engine.Evaluation
	decode(t, out, &eval)
	if len(eval.Suggestions) != 1 || eval.Suggestions[0].ID != suggest.SuggestSwitchProvider {
		t.Fatalf("expected switch provider suggestion, got %+v", eval.Suggestions)
	}
	if eval.Suggestions[0].ConfidenceScore != 85 {
		t.Fatalf("expected confidence 85, got %d", eval.Suggestions[0].ConfidenceScore)
	}

	out, err = f.service.CreateAction(ctx, encode(t, api.CreateActionRequest{UserID: "u1", Suggestion: eval.Suggestions[0]}))
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	var created api.CreateActionResponse
	decode(t, out, &created)
	if !created.Created || created.Action == nil || created.Action.Type != models.ActionSetReferenceSupplier {
		t.Fatalf("expected reference supplier action, got %+v", created)
	}

	out, err = f.service.ExecuteAction(ctx, encode(t, api.ExecuteActionRequest{UserID: "u1", Action: *created.Action}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var executed api.ExecuteActionResponse
	decode(t, out, &executed)
	if !executed.Success || !executed.Audited || executed.UndoCapability != string(actions.LocalUndoOnly) {
		t.Fatalf("unexpected execution response %+v", executed)
	}

	var ingredient map[string]any
	if err := f.store.Load(ctx, repo.Path(repo.CollectionIngredients, "ing_1"), &ingredient); err != nil {
		t.Fatalf("load ingredient: %v", err)
	}
	if ingredient["referenceSupplierId"] != "sup_b" {
		t.Fatalf("reference supplier not applied: %+v", ingredient)
	}
	if got := len(f.store.Records(actions.AuditCollection)); got != 1 {
		t.Fatalf("expected one audit record, got %d", got)
	}

	profile, _ := f.learning.GetProfile(ctx, "u1")
	if profile.History.TuningCounters[string(models.EventActionPreviewed)] != 1 ||
		profile.History.TuningCounters[string(models.EventActionExecuted)] != 1 {
		t.Fatalf("expected preview and execution events, got %+v", profile.History.TuningCounters)
	}
}

func TestExecuteActionFailureIsNotAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	action := models.ExecutableAction{
		ID:   "act-1",
		Type: models.ActionSetReferenceSupplier,
		Data: models.SetReferenceSupplier{IngredientID: "missing", SupplierID: "sup_b", Price: 10},
	}

	out, err := f.service.ExecuteAction(ctx, encode(t, api.ExecuteActionRequest{UserID: "u1", Action: action}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var resp api.ExecuteActionResponse
	decode(t, out, &resp)
	if resp.Success || resp.Audited {
		t.Fatalf("expected failed, unaudited execution: %+v", resp)
	}
	if len(f.store.Records(actions.AuditCollection)) != 0 {
		t.Fatalf("failed execution must not be audited")
	}
	profile, _ := f.learning.GetProfile(ctx, "u1")
	if profile.History.TuningCounters[string(models.EventActionFailed)] != 1 {
		t.Fatalf("expected action_failed event")
	}
}

func TestCreateActionBelowGate(t *testing.T) {
	f := newFixture(t)
	s := models.Suggestion{
		ID:              "s1",
		Type:            models.SuggestionSwitchProvider,
		ConfidenceScore: 79,
		Data:            models.SetReferenceSupplier{IngredientID: "ing_1", SupplierID: "sup_b", Price: 10},
	}
	out, err := f.service.CreateAction(context.Background(), encode(t, api.CreateActionRequest{UserID: "u1", Suggestion: s}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var resp api.CreateActionResponse
	decode(t, out, &resp)
	if resp.Created || resp.Action != nil {
		t.Fatalf("expected no action below confidence gate, got %+v", resp)
	}
}

func TestTrackEventsAndTransparency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dismiss := models.LearningEvent{Type: models.EventSuggestionDismissed, Entity: models.EventEntity{IngredientID: "ing_1"}}

	out, err := f.service.TrackEvents(ctx, encode(t, api.TrackEventsRequest{UserID: "u1", Events: []models.LearningEvent{dismiss, dismiss, dismiss}}))
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	var tracked api.ProfileResponse
	decode(t, out, &tracked)
	if _, ok := tracked.Profile.Snoozes.ByEntity["ing_1"]; !ok {
		t.Fatalf("expected auto snooze")
	}

	out, err = f.service.GetTransparency(ctx, encode(t, api.ProfileRequest{UserID: "u1"}))
	if err != nil {
		t.Fatalf("transparency: %v", err)
	}
	var tr api.TransparencyResponse
	decode(t, out, &tr)
	if len(tr.Changelog) != 1 || tr.Changelog[0].RuleID != learning.RuleAutoSnooze {
		t.Fatalf("expected auto snooze changelog, got %+v", tr.Changelog)
	}
	if len(tr.Summary.ActiveSnoozes) != 1 {
		t.Fatalf("expected active snooze in summary, got %+v", tr.Summary)
	}

	out, err = f.service.ResetProfile(ctx, encode(t, api.ProfileRequest{UserID: "u1"}))
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	var reset api.ProfileResponse
	decode(t, out, &reset)
	if len(reset.Profile.Snoozes.ByEntity) != 0 {
		t.Fatalf("expected snoozes cleared after reset")
	}
	entries, _ := transparency.NewChangelog(f.store, 0, nil, nil).Entries(ctx, "u1")
	if len(entries) != 1 || entries[0].RuleID != transparency.RuleManualReset {
		t.Fatalf("expected single reset entry, got %+v", entries)
	}
}

func TestUpdateProfileClamps(t *testing.T) {
	f := newFixture(t)
	threshold := 99
	req := api.UpdateProfileRequest{
		UserID: "u1",
		Patch:  learning.ProfilePatch{Visibility: &learning.VisibilityPatch{ActiveConfidenceThreshold: &threshold}},
	}
	out, err := f.service.UpdateProfile(context.Background(), encode(t, req))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	var resp api.ProfileResponse
	decode(t, out, &resp)
	if resp.Profile.Visibility.ActiveConfidenceThreshold != 90 {
		t.Fatalf("expected clamp to 90, got %d", resp.Profile.Visibility.ActiveConfidenceThreshold)
	}

	out, err = f.service.GetProfile(context.Background(), encode(t, api.ProfileRequest{UserID: "u1"}))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	decode(t, out, &resp)
	if resp.Profile.Visibility.ActiveConfidenceThreshold != 90 {
		t.Fatalf("update not persisted")
	}
}

func TestInvalidRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Evaluate(ctx, nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for nil request, got %v", err)
	}
	if _, err := f.service.GetProfile(ctx, encode(t, api.ProfileRequest{})); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for missing user, got %v", err)
	}
	bad := api.TrackEventsRequest{UserID: "u1", Events: []models.LearningEvent{{}}}
	if _, err := f.service.TrackEvents(ctx, encode(t, bad)); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for untyped event, got %v", err)
	}

	bare := NewIntelService(nil, Dependencies{})
	if _, err := bare.Evaluate(ctx, encode(t, savingsRequest())); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition without pipeline, got %v", err)
	}
}

type brokenStore struct {
	*repo.MemoryStore
}

func (brokenStore) Load(context.Context, string, any) error {
	return utils.NewAppError("sqlite.load", "profiles/u1", errors.New("database is locked"))
}

func TestProfileLoadFailureLogsStoreOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := utils.NewLoggerTo(&buf, "info", false)
	clock := utils.FixedClock{T: testNow}
	learn := learning.NewEngine(brokenStore{repo.NewMemoryStore()}, nil, nil, learning.DefaultConfig(), clock, logger)
	svc := NewIntelService(logger, Dependencies{
		Pipeline: engine.NewPipeline(logger, nil, nil, clock),
		Learning: learn,
		Clock:    clock,
	})

	_, err := svc.Evaluate(context.Background(), encode(t, savingsRequest()))
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if !strings.Contains(buf.String(), "op=sqlite.load") {
		t.Fatalf("expected store operation in log, got %s", buf.String())
	}
}

func TestEvaluateRecordsLatency(t *testing.T) {
	f := newFixture(t)
	if f.service.LatencyP95() != 0 {
		t.Fatalf("expected no latency before any evaluation")
	}
	for i := 0; i < 3; i++ {
		if _, err := f.service.Evaluate(context.Background(), encode(t, savingsRequest())); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if f.service.latencies.Count() != 3 {
		t.Fatalf("expected three latency samples, got %d", f.service.latencies.Count())
	}
}
