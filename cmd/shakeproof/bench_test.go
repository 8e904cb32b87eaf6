package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/langshake/shake-proof/internal/config"
	"github.com/langshake/shake-proof/internal/database"
	"github.com/langshake/shake-proof/internal/integrity"
	"github.com/langshake/shake-proof/internal/model"
	"github.com/langshake/shake-proof/internal/progress"
	"github.com/langshake/shake-proof/internal/report"
	"github.com/spf13/cobra"
)

// newSite serves a LangShake domain with one module whose page carries the
// same record. The manifest lives at manifestPath.
func newSite(t *testing.T, manifestPath string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	record := model.Record{
		"@context": "https://schema.org",
		"@type":    "Article",
		"url":      srv.URL + "/post",
		"headline": "Hello",
	}
	sum, err := integrity.ComputeChecksum([]model.Record{record})
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}

	module, err := json.Marshal([]any{record, map[string]any{"checksum": sum}})
	if err != nil {
		t.Fatal(err)
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}

	mux.HandleFunc(manifestPath, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"modules":["/langshake/post.json"],"verification":{"merkleRoot":%q}}`, sum)
	})
	mux.HandleFunc("/langshake/post.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(module)
	})
	mux.HandleFunc("/post", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><head><script type="application/ld+json">%s</script></head><body></body></html>`, recordJSON)
	})
	return srv
}

// runCmd executes the root command with args and returns stdout, stderr and
// the error.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeReports(t *testing.T, r io.Reader) []report.JSONReport {
	t.Helper()

	var reports []report.JSONReport
	dec := json.NewDecoder(r)
	for {
		var rep report.JSONReport
		err := dec.Decode(&rep)
		if errors.Is(err, io.EOF) {
			return reports
		}
		if err != nil {
			t.Fatalf("decode report: %v", err)
		}
		reports = append(reports, rep)
	}
}

func TestNewBenchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewBenchCmd()
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"concurrency", "n", "5"},
		{"timeout", "t", "10s"},
		{"attempts", "a", "3"},
		{"retry-delay", "", "500ms"},
		{"manifest", "", "llm.json"},
		{"rate", "", "0"},
		{"render", "", "false"},
		{"stealth", "", "false"},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
		{"no-save", "", "false"},
		{"no-progress", "", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("shorthand = %q, want %q", flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("default = %q, want %q", flag.DefValue, tt.defValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("flags are applied", func(t *testing.T) {
		t.Parallel()

		cmd := NewBenchCmd()
		if err := cmd.ParseFlags([]string{"-n", "7", "--attempts", "1", "--manifest", "ls.json", "--no-save", "-c", writeConfig(t, "defaults: {}\n")}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Concurrency != 7 || cfg.Attempts != 1 || cfg.ManifestName != "ls.json" || cfg.SaveToDB {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if len(cfg.Targets) != 1 || cfg.File == nil {
			t.Errorf("expected target and config file, got %+v", cfg)
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewBenchCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, nil); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".shakeproof")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBenchCommand(t *testing.T) {
	t.Parallel()

	t.Run("matching domain produces a JSON report and a stored run", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t, "/.well-known/llm.json")
		dir := t.TempDir()
		reportPath := filepath.Join(dir, "out", "report.json")
		dbDir := filepath.Join(dir, "db")

		_, _, err := runCmd(t, "bench", "--no-progress", "--json", "-o", reportPath,
			"--db-dir", dbDir, "-c", writeConfig(t, "defaults: {}\n"), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f, err := os.Open(reportPath)
		if err != nil {
			t.Fatalf("report not written: %v", err)
		}
		defer f.Close()

		reports := decodeReports(t, f)
		if len(reports) != 1 {
			t.Fatalf("expected 1 report, got %d", len(reports))
		}
		res := reports[0].Result
		if res.State != model.StateDone || !res.Summary.AllMatch || res.Summary.MatchedPages != 1 {
			t.Errorf("unexpected result: state=%s summary=%+v", res.State, res.Summary)
		}
		if _, ok := reports[0].Metrics[model.PhaseLangshake.String()]; !ok {
			t.Error("expected formatted metrics")
		}

		db, err := database.Open(dbDir, database.Options{})
		if err != nil {
			t.Fatalf("database not created: %v", err)
		}
		defer db.Close()
		stored, err := db.GetLatestResult(t.Context(), res.DomainRoot)
		if err != nil || stored == nil || stored.RunID != res.RunID {
			t.Errorf("expected stored run %s, got %v, %v", res.RunID, stored, err)
		}
	})

	t.Run("config file overrides the manifest name", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t, "/.well-known/langshake.json")
		cfgPath := writeConfig(t, fmt.Sprintf("domains:\n  %q:\n    manifest: langshake.json\n", srv.URL))

		stdout, _, err := runCmd(t, "bench", "--no-progress", "--no-save", "-c", cfgPath, srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "SHAKEPROOF BENCHMARK REPORT") {
			t.Errorf("expected text report, got %q", stdout)
		}
	})

	t.Run("unreachable manifest aborts with a report", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		stdout, _, err := runCmd(t, "bench", "--no-progress", "--no-save", "--json",
			"--attempts", "1", "-c", writeConfig(t, "defaults: {}\n"), srv.URL)
		if !errors.Is(err, errAborted) {
			t.Fatalf("expected errAborted, got %v", err)
		}

		reports := decodeReports(t, strings.NewReader(stdout))
		if len(reports) != 1 {
			t.Fatalf("expected 1 report, got %d", len(reports))
		}
		res := reports[0].Result
		if res.State != model.StateAborted || !errors.Is(res.Error, model.ManifestUnreachable) {
			t.Errorf("unexpected result: state=%s error=%v", res.State, res.Error)
		}
	})

	t.Run("invalid configuration is rejected before fetching", func(t *testing.T) {
		t.Parallel()

		_, _, err := runCmd(t, "bench", "--json", "--markdown", "--no-save", "example.com")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
		_, _, err = runCmd(t, "bench", "--no-save")
		if !errors.Is(err, config.ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})
}

func TestArtifactsDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target string
		want   string
	}{
		{"example.com", "example.com"},
		{"http://127.0.0.1:8080", "127.0.0.1_8080"},
		{"https://example.com/docs/", "example.com_docs"},
		{"ftp://example.com", "invalid"},
	}
	for _, tt := range tests {
		if got := artifactsDir("base", tt.target); got != filepath.Join("base", tt.want) {
			t.Errorf("artifactsDir(%q) = %q, want %q", tt.target, got, filepath.Join("base", tt.want))
		}
	}
}

func TestNewReporter(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})
	cfg := config.NewConfig()

	// A buffer is never a terminal.
	if _, ok := newReporter(cmd, cfg, setupLogger(io.Discard, cfg)).(*progress.LogReporter); !ok {
		t.Error("expected a log reporter for non-terminal output")
	}
}
