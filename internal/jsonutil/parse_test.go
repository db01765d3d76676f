package jsonutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

type sample struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"too short", "```{}```", "```{}```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("StripMarkdownFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseObject(t *testing.T) {
	got, err := ParseObject[sample]("Here you go:\n```json\n{\"name\": \"hero\", \"tags\": [\"a\", \"b\"]}\n```")
	if err != nil {
		t.Fatalf("ParseObject() error: %v", err)
	}
	if got.Name != "hero" || len(got.Tags) != 2 {
		t.Errorf("ParseObject() = %+v", got)
	}
}

func TestParseObjectErrors(t *testing.T) {
	if _, err := ParseObject[sample]("no json here"); err == nil {
		t.Error("expected error for text without an object")
	}

	long := `{"name": 42, "pad": "` + strings.Repeat("x", 500) + `"}`
	_, err := ParseObject[sample](long)
	if err == nil {
		t.Fatal("expected error for mistyped field")
	}
	if !strings.Contains(err.Error(), "...") {
		t.Errorf("error should carry a truncated preview: %v", err)
	}
	if len(err.Error()) > 400 {
		t.Errorf("error preview not truncated (len %d)", len(err.Error()))
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("short", 200); got != "short" {
		t.Errorf("Snippet(short) = %q", got)
	}
	got := Snippet(strings.Repeat("a", 250), 200)
	if got != strings.Repeat("a", 200)+"..." {
		t.Errorf("Snippet(250 chars) length = %d", len(got))
	}
	turkish := strings.Repeat("ş", 300)
	got = Snippet(turkish, 200)
	if !utf8.ValidString(got) {
		t.Error("Snippet split a multi-byte character")
	}
	if utf8.RuneCountInString(got) != 203 {
		t.Errorf("rune count = %d, want 203", utf8.RuneCountInString(got))
	}
	if Snippet("abc", 0) != "" {
		t.Error("Snippet with zero limit should be empty")
	}
}

func TestMarshalVerbatim(t *testing.T) {
	data, err := MarshalVerbatim([]sample{{Name: "Gotik Fantazi <ağaç> & çiçek", Tags: []string{"Düşük Poligon"}}}, "    ")
	if err != nil {
		t.Fatalf("MarshalVerbatim() error: %v", err)
	}
	out := string(data)
	for _, want := range []string{"Gotik Fantazi <ağaç> & çiçek", "Düşük Poligon", "\n    {", "\n        \"name\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `\u`) {
		t.Errorf("output contains escapes:\n%s", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("output should not end with a newline")
	}
}
