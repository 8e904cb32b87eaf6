package model

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestManifestURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		root string
		file string
		want string
	}{
		{name: "default name", root: "https://example.com", want: "https://example.com/.well-known/llm.json"},
		{name: "trailing slash", root: "https://example.com/", file: "llm.json", want: "https://example.com/.well-known/llm.json"},
		{name: "custom name", root: "https://example.com", file: "/langshake.json", want: "https://example.com/.well-known/langshake.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ManifestURL(tt.root, tt.file); got != tt.want {
				t.Errorf("ManifestURL(%q, %q) = %q, want %q", tt.root, tt.file, got, tt.want)
			}
		})
	}
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	t.Run("valid manifest", func(t *testing.T) {
		t.Parallel()

		m, err := ParseManifest([]byte(`{"modules":["a.json","b/c.json"],"verification":{"merkleRoot":"abc"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.Modules) != 2 || m.Modules[0] != "a.json" || m.Modules[1] != "b/c.json" {
			t.Errorf("unexpected modules: %v", m.Modules)
		}
		if m.DeclaredMerkleRoot != "abc" {
			t.Errorf("expected declared root 'abc', got %q", m.DeclaredMerkleRoot)
		}
	})

	t.Run("missing verification leaves root empty", func(t *testing.T) {
		t.Parallel()

		m, err := ParseManifest([]byte(`{"modules":["a.json"]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.DeclaredMerkleRoot != "" {
			t.Errorf("expected empty root, got %q", m.DeclaredMerkleRoot)
		}
	})

	errorCases := []struct {
		name string
		data string
		kind ErrorKind
	}{
		{name: "not json", data: `<html>`, kind: ManifestMalformed},
		{name: "missing modules", data: `{"verification":{}}`, kind: ManifestMalformed},
		{name: "null modules", data: `{"modules":null}`, kind: ManifestMalformed},
		{name: "modules not a list", data: `{"modules":"a.json"}`, kind: ManifestMalformed},
		{name: "non-string entry", data: `{"modules":["a.json",3]}`, kind: ManifestMalformed},
		{name: "empty modules", data: `{"modules":[]}`, kind: ManifestModulesEmpty},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseManifest([]byte(tt.data))
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
			if !strings.Contains(err.Error(), "manifest") {
				t.Errorf("expected error to mention manifest, got %q", err.Error())
			}
		})
	}

	t.Run("empty modules message", func(t *testing.T) {
		t.Parallel()

		_, err := ParseManifest([]byte(`{"modules":[]}`))
		if err == nil || !strings.Contains(err.Error(), "empty modules") {
			t.Errorf("expected message about empty modules, got %v", err)
		}
	})
}

func TestParsePayload(t *testing.T) {
	t.Parallel()

	t.Run("array with checksum trailer", func(t *testing.T) {
		t.Parallel()

		p, err := ParsePayload([]byte(`[{"@type":"Article","n":1},{"checksum":"ff"}]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		form, ok := p.(ArrayForm)
		if !ok {
			t.Fatalf("expected ArrayForm, got %T", p)
		}
		if !form.HasChecksum || form.Checksum != "ff" {
			t.Errorf("expected checksum 'ff', got %+v", form)
		}
		if len(form.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(form.Records))
		}
		if _, ok := form.Records[0]["n"].(json.Number); !ok {
			t.Errorf("expected json.Number, got %T", form.Records[0]["n"])
		}
	})

	t.Run("array without trailer", func(t *testing.T) {
		t.Parallel()

		p, err := ParsePayload([]byte(`[{"a":1},{"checksum":"ff","extra":true}]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		form := p.(ArrayForm)
		if form.HasChecksum {
			t.Error("object with extra fields must not be treated as the checksum trailer")
		}
		if len(form.AllRecords()) != 2 {
			t.Errorf("expected 2 records, got %d", len(form.AllRecords()))
		}
	})

	t.Run("single object", func(t *testing.T) {
		t.Parallel()

		p, err := ParsePayload([]byte(`{"@type":"WebPage"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := p.(SingleRecordForm); !ok {
			t.Fatalf("expected SingleRecordForm, got %T", p)
		}
		if len(p.AllRecords()) != 1 {
			t.Errorf("expected 1 record, got %d", len(p.AllRecords()))
		}
	})

	for _, data := range []string{`"text"`, `42`, `[1,2]`, `not json`, `{} {}`} {
		t.Run("invalid "+data, func(t *testing.T) {
			t.Parallel()

			if _, err := ParsePayload([]byte(data)); !errors.Is(err, ModuleStructureInvalid) {
				t.Errorf("expected ModuleStructureInvalid, got %v", err)
			}
		})
	}
}

func TestBenchError(t *testing.T) {
	t.Parallel()

	t.Run("unwraps kind and cause", func(t *testing.T) {
		t.Parallel()

		err := NewBenchError(RequestTimeout, "https://example.com/a", "", context.DeadlineExceeded)
		if !errors.Is(err, RequestTimeout) {
			t.Error("expected errors.Is to match the kind")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Error("expected errors.Is to match the cause")
		}
		if errors.Is(err, ModuleFetchError) {
			t.Error("unexpected match on another kind")
		}
		if !strings.Contains(err.Error(), "https://example.com/a") {
			t.Errorf("expected URL in message, got %q", err.Error())
		}
	})

	t.Run("AsBenchError keeps existing classification", func(t *testing.T) {
		t.Parallel()

		orig := NewBenchError(ModuleStructureInvalid, "u", "bad", nil)
		if got := AsBenchError(orig, ModuleFetchError, "u"); got != orig {
			t.Errorf("expected the original error, got %v", got)
		}
		if got := AsBenchError(errors.New("x"), ModuleFetchError, "u"); got.Kind != ModuleFetchError {
			t.Errorf("expected ModuleFetchError, got %s", got.Kind)
		}
		if AsBenchError(nil, ModuleFetchError, "u") != nil {
			t.Error("expected nil for nil error")
		}
	})

	t.Run("fatal kinds", func(t *testing.T) {
		t.Parallel()

		for _, k := range []ErrorKind{ManifestUnreachable, ManifestMalformed, ManifestModulesEmpty} {
			if !k.Fatal() {
				t.Errorf("%s should be fatal", k)
			}
		}
		for _, k := range []ErrorKind{ModuleFetchError, ModuleChecksumMismatch, PageExtractionError, RequestTimeout} {
			if k.Fatal() {
				t.Errorf("%s should not be fatal", k)
			}
		}
	})
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()

	if !StateAborted.Terminal() || !StateDone.Terminal() {
		t.Error("ABORTED and DONE are terminal")
	}
	if StateCompare.Terminal() {
		t.Error("COMPARE is not terminal")
	}
}
