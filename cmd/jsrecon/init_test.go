package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/jsrecon/internal/config"
)

func runInit(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewInitCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes the template", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "jsrecon.yaml")
		out, err := runInit(t, "-o", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Created configuration file: "+path) {
			t.Errorf("expected creation message, got %q", out)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read generated file: %v", err)
		}
		want, err := configTemplate.ReadFile(templatePath)
		if err != nil {
			t.Fatalf("failed to read template: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Error("generated file differs from the embedded template")
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".jsrecon")
		if err := os.WriteFile(path, []byte("sites: {}\n"), 0600); err != nil {
			t.Fatal(err)
		}

		_, err := runInit(t, "-o", path)
		if err == nil {
			t.Fatal("expected error for existing file")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected 'already exists' error, got %v", err)
		}

		got, _ := os.ReadFile(path)
		if string(got) != "sites: {}\n" {
			t.Error("existing file was modified")
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".jsrecon")
		if err := os.WriteFile(path, []byte("sites: {}\n"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := runInit(t, "-o", path, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, _ := os.ReadFile(path)
		if string(got) == "sites: {}\n" {
			t.Error("expected file to be overwritten")
		}
	})
}

func TestConfigTemplate_Loads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".jsrecon")
	if _, err := runInit(t, "-o", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("generated template does not load: %v", err)
	}
	for _, want := range []string{"*.pdf", "*.zip"} {
		if !slices.Contains(cf.Defaults.IgnorePatterns, want) {
			t.Errorf("expected default ignore pattern %q, got %v", want, cf.Defaults.IgnorePatterns)
		}
	}
	if cf.Defaults.Depth != 0 {
		t.Errorf("expected no default depth override, got %d", cf.Defaults.Depth)
	}
	if len(cf.Sites) != 0 {
		t.Errorf("expected no site entries, got %v", cf.Sites)
	}
}
