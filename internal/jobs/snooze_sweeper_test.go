package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miradorstack/mirador-intel/internal/cache"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

type fakePruner struct {
	users   []string
	removed map[string]int
	fail    map[string]bool
	calls   []string
}

func (f *fakePruner) ListUserIDs(context.Context) ([]string, error) {
	return f.users, nil
}

func (f *fakePruner) PruneExpiredSnoozes(_ context.Context, userID string) (int, error) {
	f.calls = append(f.calls, userID)
	if f.fail[userID] {
		return 0, errors.New("store down")
	}
	return f.removed[userID], nil
}

func TestSweepPrunesEveryUser(t *testing.T) {
	pruner := &fakePruner{
		users:   []string{"u1", "u2", "u3"},
		removed: map[string]int{"u1": 2, "u3": 1},
		fail:    map[string]bool{"u2": true},
	}
	clock := utils.FixedClock{T: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	sweeper, err := NewSnoozeSweeper(pruner, nil, time.Hour, clock, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	defer sweeper.Stop()

	if got := sweeper.Sweep(context.Background()); got != 3 {
		t.Fatalf("expected 3 removed, got %d", got)
	}
	if len(pruner.calls) != 3 {
		t.Fatalf("expected every user visited, got %v", pruner.calls)
	}
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	locks := cache.NewMemoryProvider(time.Minute, time.Minute)
	clock := utils.FixedClock{T: time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)}
	first := &fakePruner{users: []string{"u1"}, removed: map[string]int{"u1": 1}}
	second := &fakePruner{users: []string{"u1"}, removed: map[string]int{"u1": 1}}

	a, err := NewSnoozeSweeper(first, locks, time.Hour, clock, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	defer a.Stop()
	b, err := NewSnoozeSweeper(second, locks, time.Hour, clock, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	defer b.Stop()

	if a.Sweep(context.Background()) != 1 {
		t.Fatalf("first replica should sweep")
	}
	if b.Sweep(context.Background()) != 0 || len(second.calls) != 0 {
		t.Fatalf("second replica should skip the window")
	}
}

func TestNewSnoozeSweeperValidates(t *testing.T) {
	if _, err := NewSnoozeSweeper(nil, nil, time.Hour, nil, nil); err == nil {
		t.Fatalf("expected error without pruner")
	}
	if _, err := NewSnoozeSweeper(&fakePruner{}, nil, 0, nil, nil); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
