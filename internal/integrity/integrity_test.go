package integrity

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "sorts object keys",
			input: map[string]any{"b": 1, "a": 2},
			want:  `{"a":2,"b":1}`,
		},
		{
			name:  "sorts nested keys and keeps array order",
			input: map[string]any{"z": []any{map[string]any{"y": true, "x": nil}, "s"}},
			want:  `{"z":[{"x":null,"y":true},"s"]}`,
		},
		{
			name:  "does not escape html characters",
			input: "a<b>&c",
			want:  `"a<b>&c"`,
		},
		{
			name:  "integral json number drops fraction",
			input: json.Number("1.0"),
			want:  "1",
		},
		{
			name:  "fractional float",
			input: 1.5,
			want:  "1.5",
		},
		{
			name:  "large integral float",
			input: 123456789.0,
			want:  "123456789",
		},
		{
			name:  "negative zero",
			input: -0.0,
			want:  "0",
		},
		{
			name:  "seven digit fraction stays in plain notation",
			input: 1234567.5,
			want:  "1234567.5",
		},
		{
			name:  "small fraction stays in plain notation",
			input: json.Number("0.00001"),
			want:  "0.00001",
		},
		{
			name:  "smallest plain fraction",
			input: 0.000001,
			want:  "0.000001",
		},
		{
			name:  "tiny number uses unpadded negative exponent",
			input: 1e-7,
			want:  "1e-7",
		},
		{
			name:  "huge number uses unpadded positive exponent",
			input: 1.5e21,
			want:  "1.5e+21",
		},
		{
			name:  "negative fraction",
			input: json.Number("-2.50"),
			want:  "-2.5",
		},
		{
			name:  "exponent literal normalized",
			input: json.Number("1e0"),
			want:  "1",
		},
		{
			name:  "big integer literal keeps every digit",
			input: json.Number("12345678901234567891"),
			want:  "12345678901234567891",
		},
		{
			name:  "negative big integer literal",
			input: json.Number("-9007199254740993"),
			want:  "-9007199254740993",
		},
		{
			name:  "negative zero literal",
			input: json.Number("-0"),
			want:  "0",
		},
		{
			name:  "struct is normalized through json",
			input: struct{ B, A string }{B: "b", A: "a"},
			want:  `{"A":"a","B":"b"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Canonicalize(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("distinct big identifiers stay distinct", func(t *testing.T) {
		t.Parallel()
		a, err := Canonicalize(map[string]any{"id": json.Number("12345678901234567891")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := Canonicalize(map[string]any{"id": json.Number("12345678901234567892")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a == b {
			t.Errorf("expected different canonical forms, both %s", a)
		}
	})

	t.Run("unsupported value returns error", func(t *testing.T) {
		t.Parallel()
		if _, err := Canonicalize(make(chan int)); err == nil {
			t.Error("expected error for channel value")
		}
	})
}

func TestHashHex(t *testing.T) {
	t.Parallel()

	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashHex("abc"); got != want {
		t.Errorf("HashHex(abc) = %s, want %s", got, want)
	}
}

func TestComputeChecksum(t *testing.T) {
	t.Parallel()

	t.Run("invariant to key order", func(t *testing.T) {
		t.Parallel()

		a := []map[string]any{{"@type": "WebPage", "name": "Home", "url": "https://example.com/"}}
		b := []map[string]any{{"url": "https://example.com/", "name": "Home", "@type": "WebPage"}}

		sumA, err := ComputeChecksum(a)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sumB, err := ComputeChecksum(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sumA != sumB {
			t.Errorf("checksums differ for reordered keys: %s vs %s", sumA, sumB)
		}
	})

	t.Run("sensitive to element order", func(t *testing.T) {
		t.Parallel()

		first := map[string]any{"name": "first"}
		second := map[string]any{"name": "second"}

		sumA, _ := ComputeChecksum([]map[string]any{first, second})
		sumB, _ := ComputeChecksum([]map[string]any{second, first})
		if sumA == sumB {
			t.Error("expected different checksums for reordered elements")
		}
	})

	t.Run("ignores top-level checksum field", func(t *testing.T) {
		t.Parallel()

		plain := []map[string]any{{"name": "x"}}
		tagged := []map[string]any{{"name": "x", "checksum": "deadbeef"}}

		sumA, _ := ComputeChecksum(plain)
		sumB, _ := ComputeChecksum(tagged)
		if sumA != sumB {
			t.Errorf("checksum field should be excluded: %s vs %s", sumA, sumB)
		}
		if _, ok := tagged[0]["checksum"]; !ok {
			t.Error("input record must not be modified")
		}
	})

	t.Run("matches hash of canonical text", func(t *testing.T) {
		t.Parallel()

		records := []map[string]any{{"b": 2, "a": 1}}
		got, err := ComputeChecksum(records)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := HashHex(`[{"a":1,"b":2}]`)
		if got != want {
			t.Errorf("ComputeChecksum() = %s, want %s", got, want)
		}
		if strings.ToLower(got) != got || len(got) != 64 {
			t.Errorf("expected 64 lowercase hex chars, got %q", got)
		}
	})
}

func TestComputeMerkleRoot(t *testing.T) {
	t.Parallel()

	h1 := HashHex("one")
	h2 := HashHex("two")
	h3 := HashHex("three")

	t.Run("empty list yields empty string", func(t *testing.T) {
		t.Parallel()
		if got := ComputeMerkleRoot(nil); got != "" {
			t.Errorf("expected empty root, got %q", got)
		}
	})

	t.Run("single leaf is returned unchanged", func(t *testing.T) {
		t.Parallel()
		if got := ComputeMerkleRoot([]string{h1}); got != h1 {
			t.Errorf("expected %s, got %s", h1, got)
		}
	})

	t.Run("two leaves hash their concatenation", func(t *testing.T) {
		t.Parallel()
		want := HashHex(h1 + h2)
		if got := ComputeMerkleRoot([]string{h1, h2}); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("odd level duplicates last leaf", func(t *testing.T) {
		t.Parallel()
		want := HashHex(HashHex(h1+h2) + HashHex(h3+h3))
		if got := ComputeMerkleRoot([]string{h1, h2, h3}); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		t.Parallel()
		leaves := []string{h1, h2, h3, h1, h2}
		first := ComputeMerkleRoot(leaves)
		for range 10 {
			if got := ComputeMerkleRoot(leaves); got != first {
				t.Fatalf("root changed between calls: %s vs %s", first, got)
			}
		}
	})

	t.Run("order sensitive", func(t *testing.T) {
		t.Parallel()
		if ComputeMerkleRoot([]string{h1, h2}) == ComputeMerkleRoot([]string{h2, h1}) {
			t.Error("expected different roots for reordered leaves")
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		t.Parallel()
		leaves := []string{h1, h2, h3}
		_ = ComputeMerkleRoot(leaves)
		if leaves[0] != h1 || leaves[1] != h2 || leaves[2] != h3 {
			t.Error("input slice was modified")
		}
	})
}
