package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/swxsoc/swxingest/internal/config"
	"github.com/swxsoc/swxingest/internal/secrets"
	"github.com/swxsoc/swxingest/internal/storage"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)
	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

// writeLocalConfig writes a config using only local SQLite sinks.
func writeLocalConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "swx.db")
	body := `
service:
  log_level: error
  log_format: text
secrets:
  bundles: []
timeseries:
  backend: sqlite
  sqlite_path: ` + dbPath + `
annotations:
  backend: sqlite
  sqlite_path: ` + dbPath + `
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dbPath
}

func TestRunRulesListsAllRules(t *testing.T) {
	code, stdout, _ := captureOutputWithExitCode(t, func() int { return runRules(nil) })
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	for _, want := range []string{
		"import_GOES_data_to_timestream",
		"create_GOES_data_annotations",
		"import_UDL_REACH_to_timestream",
		"import_orbit_to_timestream",
		"create_code_line_count_report",
	} {
		if !strings.Contains(stdout, want+"\n") {
			t.Errorf("rules output missing %s:\n%s", want, stdout)
		}
	}
}

func TestConfigCheckAndLock(t *testing.T) {
	path, _ := writeLocalConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int { return runConfigNoun([]string{"check", "--config", path}) })
	if code != 0 {
		t.Fatalf("check exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "timeseries backend:  sqlite") {
		t.Errorf("unexpected check output:\n%s", stdout)
	}

	code, _, stderr = captureOutputWithExitCode(t, func() int { return runConfigNoun([]string{"lock", "--config", filepath.Dir(path)}) })
	if code != 0 {
		t.Fatalf("lock exit = %d, stderr = %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), ".checksums")); err != nil {
		t.Fatalf(".checksums not written: %v", err)
	}

	// Tampering after the lock is rejected.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("\n# edited\n")
	_ = f.Close()

	code, _, stderr = captureOutputWithExitCode(t, func() int { return runConfigNoun([]string{"check", "--config", path}) })
	if code == 0 {
		t.Fatalf("check should fail after tampering")
	}
	if stderr == "" {
		t.Error("expected an error message on stderr")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path, _ := writeLocalConfig(t)
	t.Setenv("INFLUXDB_TOKEN", "very-secret-token")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int { return runConfigNoun([]string{"show", "--config", path}) })
	if code != 0 {
		t.Fatalf("show exit = %d, stderr = %s", code, stderr)
	}
	if strings.Contains(stdout, "very-secret-token") {
		t.Error("token leaked in config show")
	}
	if !strings.Contains(stdout, "backend: sqlite") {
		t.Errorf("unexpected show output:\n%s", stdout)
	}
}

func TestConfigUnknownAction(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int { return runConfigNoun([]string{"frobnicate"}) })
	if code != 1 || !strings.Contains(stderr, "Unknown config action") {
		t.Errorf("code = %d, stderr = %s", code, stderr)
	}
}

func TestHandleUnknownRule(t *testing.T) {
	path, _ := writeLocalConfig(t)
	eventPath := filepath.Join(t.TempDir(), "event.json")
	event := `{"source":"aws.events","resources":["arn:aws:events:us-east-1:1:rule/not_a_rule"]}`
	if err := os.WriteFile(eventPath, []byte(event), 0o600); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runHandle([]string{"--config", path, "--event", eventPath})
	})
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stdout, `"statusCode": 500`) || !strings.Contains(stdout, "not_a_rule") {
		t.Errorf("unexpected response:\n%s", stdout)
	}
}

func TestHandleMissingResources(t *testing.T) {
	path, _ := writeLocalConfig(t)
	eventPath := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(eventPath, []byte(`{"source":"aws.events"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runHandle([]string{"--config", path, "--event", eventPath})
	})
	if code != 1 || !strings.Contains(stdout, "resources") {
		t.Errorf("code = %d, stdout = %s", code, stdout)
	}
}

func TestHandleRequiresEvent(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int { return runHandle(nil) })
	if code != 1 || !strings.Contains(stderr, "--event is required") {
		t.Errorf("code = %d, stderr = %s", code, stderr)
	}
}

func TestRunRuleRejectsUnknownName(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int { return runRule([]string{"bogus"}) })
	if code != 1 || !strings.Contains(stderr, "Function 'bogus' is not recognized.") {
		t.Errorf("code = %d, stderr = %s", code, stderr)
	}
}

func TestInspectSummarisesLocalSinks(t *testing.T) {
	path, dbPath := writeLocalConfig(t)

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	s := timeseries.New("GOES", "goes xrsa")
	s.Add(time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC), map[string]float64{"xrsa": 1e-8})
	if err := storage.NewSeriesStore(db).Record(ctx, *s); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	code, stdout, stderr := captureOutputWithExitCode(t, func() int { return runInspect([]string{"--config", path}) })
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "goes xrsa") || !strings.Contains(stdout, "2024-05-10T11:00:00Z") {
		t.Errorf("unexpected inspect output:\n%s", stdout)
	}
}

func TestNewRuntimeLocalBackendsShareDatabase(t *testing.T) {
	path, _ := writeLocalConfig(t)
	cfg, err := setup(path)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := newRuntime(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	if len(rt.db) != 1 {
		t.Errorf("databases opened = %d, want 1", len(rt.db))
	}
	if rt.store != nil {
		t.Error("no secret store expected without bundles")
	}
	if rt.uploader != nil {
		t.Error("no uploader expected without a bucket")
	}
	exec, err := rt.build(context.Background())
	if err != nil || exec == nil {
		t.Fatalf("build: %v", err)
	}
}

func TestNewRuntimeSurvivesUnloadableSecretStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "aws-config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "aws-credentials"))
	t.Setenv("AWS_PROFILE", "swxingest-test-profile-that-does-not-exist")

	path, _ := writeLocalConfig(t)
	cfg, err := setup(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Secrets.Bundles = []config.SecretSpec{
		{ID: "arn:aws:secretsmanager:us-east-1:1:secret:udl", Field: "basicauth"},
	}

	rt, err := newRuntime(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("newRuntime must not fail on secret store errors: %v", err)
	}
	defer rt.Close()
	if rt.store != nil {
		t.Error("secret store should be left unset")
	}

	exec, err := rt.build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = exec.Secrets().Get(secrets.BasicAuth)
	var perr *secrets.ProvisioningError
	if !errors.As(err, &perr) {
		t.Fatalf("Get error = %v, want *secrets.ProvisioningError", err)
	}
	if !strings.Contains(err.Error(), "no secret store configured") {
		t.Errorf("error = %q", err)
	}
}

func TestLambdaHandlerAlwaysReturnsEnvelope(t *testing.T) {
	path, _ := writeLocalConfig(t)
	cfg, err := setup(path)
	if err != nil {
		t.Fatal(err)
	}
	h, rt, err := newHandler(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()
	handle := lambdaHandler(h)

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "free-form time",
			payload: `{"time":"2024-05-10 12:00:00","resources":["arn:aws:events:us-east-1:1:rule/nope"]}`,
			want:    "Function 'nope' is not recognized.",
		},
		{
			name:    "empty time",
			payload: `{"time":"","resources":["arn:aws:events:us-east-1:1:rule/nope"]}`,
			want:    "Function 'nope' is not recognized.",
		},
		{
			name:    "resources of the wrong type",
			payload: `{"resources":[1,2]}`,
			want:    "resources",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handle(context.Background(), json.RawMessage(tt.payload))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if resp.StatusCode != 500 {
				t.Errorf("status = %d, want 500", resp.StatusCode)
			}
			if !strings.Contains(resp.Message(), tt.want) {
				t.Errorf("message = %q, want it to contain %q", resp.Message(), tt.want)
			}
		})
	}
}
