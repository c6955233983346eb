package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-intel/internal/api"
	"github.com/miradorstack/mirador-intel/internal/engine"
)

const signalsDoc = `{
  "signals": [{"id": "MARKET_SAVINGS_OPPORTUNITY", "meta": {"deltaAbs": 2.5, "deltaPct": 15, "bestPrice": 10, "ingredientId": "ing_1", "bestSupplierId": "sup_b"}}],
  "contextHints": [{"id": "h1", "metadata": {"signalId": "MARKET_SAVINGS_OPPORTUNITY", "recipeIds": ["r1", "r2", "r3", "r4"]}}]
}`

func sqliteEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INTEL_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("INTEL_CONFIG", "")
	t.Setenv("INTEL_STORE_DRIVER", "sqlite")
	t.Setenv("INTEL_SQLITE_PATH", filepath.Join(dir, "intel.db"))
	t.Setenv("INTEL_LOG_LEVEL", "error")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluateCommand(t *testing.T) {
	sqliteEnv(t)
	input := filepath.Join(t.TempDir(), "signals.json")
	if err := os.WriteFile(input, []byte(signalsDoc), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, err := run(t, "", "evaluate", "--input", input, "--user", "u1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	var eval engine.Evaluation
	if err := json.Unmarshal([]byte(out), &eval); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(eval.Insights) == 0 || eval.Insights[0].ID != engine.InsightMarketSavingsHighImpact {
		t.Fatalf("expected high impact insight, got %+v", eval.Insights)
	}
	if len(eval.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(eval.Suggestions))
	}
}

func TestEvaluateFromStdinRequiresUser(t *testing.T) {
	sqliteEnv(t)
	if _, err := run(t, signalsDoc, "evaluate"); err == nil {
		t.Fatalf("expected error without --user")
	}
}

func TestProfileShowAndReset(t *testing.T) {
	sqliteEnv(t)

	out, err := run(t, "", "profile", "show", "--user", "u1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var view struct {
		api.ProfileResponse
		api.TransparencyResponse
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode show: %v\n%s", err, out)
	}
	if view.Profile.UserID != "u1" || view.Summary.ConfidenceMode == "" {
		t.Fatalf("unexpected profile view %+v", view)
	}

	out, err = run(t, "", "profile", "reset", "--user", "u1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, `"userId": "u1"`) {
		t.Fatalf("unexpected reset output %s", out)
	}

	out, err = run(t, "", "profile", "show", "--user", "u1")
	if err != nil {
		t.Fatalf("show after reset: %v", err)
	}
	if !strings.Contains(out, "manual_reset") {
		t.Fatalf("expected reset entry in changelog, got %s", out)
	}
}
