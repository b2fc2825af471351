// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("anthropic-api-key", "sk-test-123\n")
	write("pubmed-api-key", "   ")
	write(".hidden", "ignored")

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := s["anthropic-api-key"]; got != "sk-test-123" {
		t.Errorf("anthropic-api-key = %q", got)
	}
	if _, ok := s["pubmed-api-key"]; ok {
		t.Error("blank secret should be dropped")
	}
	if _, ok := s[".hidden"]; ok {
		t.Error("dotfile should be skipped")
	}
}

func TestLoadMissingDir(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("expected empty map, got %v", s)
	}
}

func TestGet(t *testing.T) {
	s := Secrets{"key": "from-secrets"}
	if got := s.Get("key", "from-config"); got != "from-config" {
		t.Errorf("config value should win, got %q", got)
	}
	if got := s.Get("key", ""); got != "from-secrets" {
		t.Errorf("Get() = %q", got)
	}
	if got := s.Get("missing", ""); got != "" {
		t.Errorf("Get(missing) = %q", got)
	}
}
