package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-intel/internal/models"
)

// ChecklistPack appends operator-maintained checklist steps to matching
// insights. It never creates, scores or filters insights.
type ChecklistPack struct {
	entries []ChecklistEntry
	logger  *slog.Logger
}

// ChecklistEntry is one overlay loaded from YAML.
type ChecklistEntry struct {
	ID    string         `yaml:"id"`
	Match ChecklistMatch `yaml:"match"`
	Steps []string       `yaml:"steps"`
}

// ChecklistMatch defines optional attributes an insight must carry.
type ChecklistMatch struct {
	InsightID string `yaml:"insight_id"`
	Scope     string `yaml:"scope"`
	Severity  string `yaml:"severity"`
}

// ChecklistFile is the YAML root structure.
type ChecklistFile struct {
	Checklists []ChecklistEntry `yaml:"checklists"`
}

// LoadChecklistPack loads overlays from path. An empty path or a missing
// file yields a nil pack, which applies nothing.
func LoadChecklistPack(path string, logger *slog.Logger) (*ChecklistPack, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file ChecklistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("checklist pack loaded", slog.String("path", path), slog.Int("entries", len(file.Checklists)))
	return &ChecklistPack{entries: file.Checklists, logger: logger}, nil
}

// Apply returns insights with matching steps appended to their checklists.
func (c *ChecklistPack) Apply(insights []models.Insight) []models.Insight {
	if c == nil || len(c.entries) == 0 {
		return insights
	}
	out := make([]models.Insight, len(insights))
	for i, ins := range insights {
		checklist := append([]string(nil), ins.Checklist...)
		for _, entry := range c.entries {
			if entry.Match.matches(ins) {
				checklist = appendUnique(checklist, entry.Steps...)
			}
		}
		ins.Checklist = checklist
		out[i] = ins
	}
	return out
}

func (m ChecklistMatch) matches(ins models.Insight) bool {
	if m.InsightID != "" && !strings.EqualFold(m.InsightID, ins.ID) {
		return false
	}
	if m.Scope != "" && !strings.EqualFold(m.Scope, string(ins.Scope)) {
		return false
	}
	if m.Severity != "" && !strings.EqualFold(m.Severity, string(ins.Severity)) {
		return false
	}
	return true
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[item] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
