package learning

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-intel/internal/models"
)

// Rule identifiers written to the changelog.
const (
	RuleAutoSnooze   = "auto_snooze"
	RuleManualSnooze = "manual_snooze"
	RuleManualUpdate = "manual_update"
)

// Snooze reasons.
const (
	ReasonAuto = "auto"
	ReasonUser = "user"
)

// Rule mutates profile in response to one batch of events and describes
// every change it made.
type Rule func(events []models.LearningEvent, profile *models.IntelProfile, now time.Time, cfg Config) []models.IntelChangeLogEntry

// DefaultRules returns the auto-tuning rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{autoSnoozeRule, manualSnoozeRule}
}

// autoSnoozeRule snoozes an entity dismissed AutoSnoozeThreshold times in
// the batch. Earlier batches are not consulted.
func autoSnoozeRule(events []models.LearningEvent, profile *models.IntelProfile, now time.Time, cfg Config) []models.IntelChangeLogEntry {
	counts := make(map[string]int)
	scopes := make(map[string]models.Scope)
	for _, ev := range events {
		if ev.Type != models.EventSuggestionDismissed {
			continue
		}
		key := ev.Entity.Key()
		if key == "" {
			continue
		}
		counts[key]++
		if _, ok := scopes[key]; !ok {
			scopes[key] = ev.Scope
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var changes []models.IntelChangeLogEntry
	for _, key := range keys {
		if counts[key] < cfg.AutoSnoozeThreshold {
			continue
		}
		if _, active := profile.ActiveSnooze(key, now); active {
			continue
		}
		until := now.Add(cfg.AutoSnoozeDuration)
		profile.Snoozes.ByEntity[key] = models.Snooze{Until: until, Reason: ReasonAuto}
		changes = append(changes, changeEntry(now, RuleAutoSnooze,
			fmt.Sprintf("Suggestions about %s paused after %d dismissals", key, counts[key]),
			"", "until "+until.Format(time.RFC3339), scopes[key]))
	}
	return changes
}

// manualSnoozeRule honours explicit snooze requests. An existing snooze that
// lasts longer is kept.
func manualSnoozeRule(events []models.LearningEvent, profile *models.IntelProfile, now time.Time, cfg Config) []models.IntelChangeLogEntry {
	var changes []models.IntelChangeLogEntry
	for _, ev := range events {
		if ev.Type != models.EventSuggestionSnoozed {
			continue
		}
		key := ev.Entity.Key()
		if key == "" {
			continue
		}
		until := now.Add(cfg.ManualSnoozeDuration)
		before := ""
		if existing, ok := profile.ActiveSnooze(key, now); ok {
			if !existing.Until.Before(until) {
				continue
			}
			before = "until " + existing.Until.Format(time.RFC3339)
		}
		profile.Snoozes.ByEntity[key] = models.Snooze{Until: until, Reason: ReasonUser}
		changes = append(changes, changeEntry(now, RuleManualSnooze,
			fmt.Sprintf("Suggestions about %s paused on request", key),
			before, "until "+until.Format(time.RFC3339), ev.Scope))
	}
	return changes
}

func changeEntry(now time.Time, ruleID, description, before, after string, scope models.Scope) models.IntelChangeLogEntry {
	return models.IntelChangeLogEntry{
		ID:          uuid.New().String(),
		Timestamp:   now,
		RuleID:      ruleID,
		Description: description,
		Before:      before,
		After:       after,
		Scope:       string(scope),
		Reversible:  true,
	}
}
