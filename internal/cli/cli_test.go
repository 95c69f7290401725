package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/f3rmion/secagg/internal/simulate"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulateJSON(t *testing.T) {
	out, err := run(t, "simulate", "--clients", "6", "--threshold", "3", "--dropouts", "2,6", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var res simulate.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json output %q: %v", out, err)
	}
	if res.Clients != 6 || res.Threshold != 3 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.Recovered) != 2 || res.Recovered[0] != 2 || res.Recovered[1] != 6 {
		t.Errorf("recovered = %v, want [2 6]", res.Recovered)
	}
}

func TestSimulateConfigFileAndMetrics(t *testing.T) {
	file := filepath.Join(t.TempDir(), "round.yaml")
	if err := os.WriteFile(file, []byte("clients: 4\nthreshold: 2\ndropouts: [3]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "simulate", "--config", file, "--metrics")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Recovered:  [3]") {
		t.Errorf("missing recovery line in %q", out)
	}
	if !strings.Contains(out, `secagg_operations_total{operation="recover_seed",status="success"} 1`) {
		t.Errorf("missing recover_seed metric in %q", out)
	}
}

func TestSimulateRejectsInvalidConfig(t *testing.T) {
	if _, err := run(t, "simulate", "--clients", "3", "--threshold", "3", "--dropouts", "1"); err == nil {
		t.Error("expected error when survivors cannot reach the threshold")
	}
	if _, err := run(t, "simulate", "-o", "yaml"); err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatal(err)
	}
	if info["version"] != Version {
		t.Errorf("version = %q, want %q", info["version"], Version)
	}
}
