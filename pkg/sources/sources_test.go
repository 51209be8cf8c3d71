package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}
	return file
}

func TestLoadRegistryYAML(t *testing.T) {
	file := writeFile(t, "sources.yaml", `
sources:
  - id: bbc
    name: BBC World
    url: https://feeds.bbci.co.uk/news/world/rss.xml
    config:
      accept_language: en-GB
  - id: go-blog
    url: " https://go.dev/blog/feed.atom "
`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 sources, got %d", reg.Len())
	}

	all := reg.All()
	if all[0].ID != "bbc" || all[1].ID != "go-blog" {
		t.Fatalf("sources out of order: %v", all)
	}

	src, ok := reg.ByID("go-blog")
	if !ok {
		t.Fatalf("expected source go-blog to be loaded")
	}
	if src.URL != "https://go.dev/blog/feed.atom" {
		t.Fatalf("url not trimmed: %q", src.URL)
	}
	if src.Name != "go-blog" {
		t.Fatalf("name should default to id, got %q", src.Name)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	file := writeFile(t, "sources.json", `{"sources":[{"id":"hn","url":"https://hnrss.org/frontpage"}]}`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := reg.ByID("hn"); !ok {
		t.Fatalf("expected hn source")
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	file := writeFile(t, "sources.yaml", `
sources:
  - id: duplicate
    url: https://a.example/feed
  - id: duplicate
    url: https://b.example/feed
`)

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate source error, got nil")
	}
}

func TestLoadRegistryMissingURL(t *testing.T) {
	file := writeFile(t, "sources.yaml", `
sources:
  - id: broken
`)
	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRegistryEmpty(t *testing.T) {
	file := writeFile(t, "sources.yaml", "sources: []\n")
	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected error for empty registry")
	}
}

func TestNilRegistryIsEmpty(t *testing.T) {
	var reg *Registry
	if reg.Len() != 0 || reg.All() != nil {
		t.Fatalf("nil registry should be empty")
	}
	if _, ok := reg.ByID("x"); ok {
		t.Fatalf("nil registry should not resolve ids")
	}
}

func TestHeadersFromConfig(t *testing.T) {
	src := Source{ID: "s", Config: map[string]any{
		ConfigUserAgentKey:      "agent/1.0",
		ConfigAcceptLanguageKey: " bn-IN ",
		ConfigCacheControlKey:   "",
		"unrelated":             42,
	}}

	headers := Headers(src)
	if headers["User-Agent"] != "agent/1.0" || headers["Accept-Language"] != "bn-IN" {
		t.Fatalf("unexpected headers %#v", headers)
	}
	if _, ok := headers["Cache-Control"]; ok {
		t.Fatalf("empty values must be skipped")
	}
	if ConfigString(src, "unrelated", "fallback") != "fallback" {
		t.Fatalf("non-string values should fall back")
	}
}
