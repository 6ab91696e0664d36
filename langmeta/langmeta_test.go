package langmeta

import (
	"sort"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "vi", want: "vi"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		got, ok := Lookup("vi")
		if !ok || got.English != "Vietnamese" || got.Native != "Tiếng Việt" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("normalized match", func(t *testing.T) {
		got, ok := Lookup("pt_br")
		if !ok || got.English != "Brazilian Portuguese" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("base fallback", func(t *testing.T) {
		got, ok := Lookup("te-IN")
		if !ok || got.English != "Telugu" || got.Flag != "🇮🇳" {
			t.Fatalf("unexpected fallback result: %#v", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, ok := Lookup("zz-ZZ"); ok {
			t.Fatal("zz-ZZ resolved")
		}
		got := Resolve("zz-ZZ")
		if got.English != "zz-ZZ" || got.Flag != "" {
			t.Fatalf("unexpected passthrough: %#v", got)
		}
	})
}

func TestEnglishName(t *testing.T) {
	if got := EnglishName("hi"); got != "Hindi" {
		t.Fatalf("EnglishName(hi) = %q", got)
	}
	if got := EnglishName("xx"); got != "xx" {
		t.Fatalf("EnglishName(xx) = %q", got)
	}
}

func TestCodesSorted(t *testing.T) {
	codes := Codes()
	if len(codes) != len(Registry) {
		t.Fatalf("got %d codes, want %d", len(codes), len(Registry))
	}
	if !sort.StringsAreSorted(codes) {
		t.Fatal("codes are not sorted")
	}
}
