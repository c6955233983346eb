package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-intel/internal/engine"
	"github.com/miradorstack/mirador-intel/internal/learning"
	"github.com/miradorstack/mirador-intel/internal/models"
	"github.com/miradorstack/mirador-intel/internal/transparency"
)

var errUserRequired = errors.New("userId is required")

// EvaluateRequest asks for one pipeline pass for a user.
type EvaluateRequest struct {
	UserID string `json:"userId"`
	engine.InsightInput
}

func (r EvaluateRequest) Validate() error {
	if r.UserID == "" {
		return errUserRequired
	}
	for i, s := range r.Signals {
		if s.ID == "" {
			return fmt.Errorf("signals[%d].id is required", i)
		}
	}
	return nil
}

// CreateActionRequest promotes a surfaced suggestion to an action.
type CreateActionRequest struct {
	UserID     string            `json:"userId"`
	Suggestion models.Suggestion `json:"suggestion"`
}

func (r CreateActionRequest) Validate() error {
	if r.UserID == "" {
		return errUserRequired
	}
	if r.Suggestion.ID == "" {
		return errors.New("suggestion.id is required")
	}
	return nil
}

// CreateActionResponse carries the action, or Created=false when the
// suggestion cannot be executed.
type CreateActionResponse struct {
	Created bool                     `json:"created"`
	Action  *models.ExecutableAction `json:"action,omitempty"`
}

// ExecuteActionRequest confirms an action.
type ExecuteActionRequest struct {
	UserID string                  `json:"userId"`
	Action models.ExecutableAction `json:"action"`
}

func (r ExecuteActionRequest) Validate() error {
	if r.UserID == "" {
		return errUserRequired
	}
	if r.Action.ID == "" {
		return errors.New("action.id is required")
	}
	return nil
}

// ExecuteActionResponse reports the execution outcome.
type ExecuteActionResponse struct {
	ActionID       string `json:"actionId"`
	Success        bool   `json:"success"`
	Audited        bool   `json:"audited"`
	UndoCapability string `json:"undoCapability,omitempty"`
}

// TrackEventsRequest records a batch of interactions.
type TrackEventsRequest struct {
	UserID string                 `json:"userId"`
	Events []models.LearningEvent `json:"events"`
}

func (r TrackEventsRequest) Validate() error {
	if r.UserID == "" {
		return errUserRequired
	}
	for i, ev := range r.Events {
		if ev.Type == "" {
			return fmt.Errorf("events[%d].type is required", i)
		}
	}
	return nil
}

// ProfileRequest names the user a profile call is about.
type ProfileRequest struct {
	UserID string `json:"userId"`
}

func (r ProfileRequest) Validate() error {
	if r.UserID == "" {
		return errUserRequired
	}
	return nil
}

// UpdateProfileRequest applies a partial profile update.
type UpdateProfileRequest struct {
	UserID string                `json:"userId"`
	Patch  learning.ProfilePatch `json:"patch"`
}

func (r UpdateProfileRequest) Validate() error {
	if r.UserID == "" {
		return errUserRequired
	}
	return nil
}

// ProfileResponse wraps a profile.
type ProfileResponse struct {
	Profile models.IntelProfile `json:"profile"`
}

// TransparencyResponse explains the current profile and its recent changes.
type TransparencyResponse struct {
	Summary   transparency.Summary         `json:"summary"`
	Changelog []models.IntelChangeLogEntry `json:"changelog"`
}

// Decode converts a Struct message into the JSON message type out.
func Decode(in *structpb.Struct, out any) error {
	if in == nil {
		return errors.New("request is nil")
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// Encode converts a JSON message type into a Struct message.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return out, nil
}
