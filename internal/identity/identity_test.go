package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReviewersDir(t *testing.T) {
	t.Parallel()
	got := ReviewersDir("/home")
	if got != filepath.Join("/home", "reviewers") {
		t.Fatalf("ReviewersDir: got %q", got)
	}
}

func TestReviewerPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		home       string
		username   string
		wantSuffix string
	}{
		{"/home", "alice", "alice.yaml"},
		{"/home", "Alice Bob", "alice_bob.yaml"},
		{"/home", "  default  ", "default.yaml"},
		{"/home", "", "default.yaml"},
	}
	for _, tt := range tests {
		got := ReviewerPath(tt.home, tt.username)
		if filepath.Base(got) != tt.wantSuffix {
			t.Errorf("ReviewerPath(%q, %q) base = %q, want %q", tt.home, tt.username, filepath.Base(got), tt.wantSuffix)
		}
	}
}

func TestSave_Load(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	rv := &Reviewer{Name: "Test", Email: "test@example.com", Source: "git"}
	if err := Save(dir, "testuser", rv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(dir, "testuser")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.Name != "Test" || loaded.Email != "test@example.com" {
		t.Fatalf("Load: got %+v", loaded)
	}
}

func TestLoad_missingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	loaded, err := Load(dir, "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("Load missing file: expected nil, got %+v", loaded)
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	reviewersDir := filepath.Join(dir, "reviewers")
	if err := os.MkdirAll(reviewersDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(reviewersDir, "bad.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, "bad"); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestDetect_envWins(t *testing.T) {
	t.Setenv("ANNOQ_USER", "carol")
	rv, err := Detect("")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if rv.Name != "carol" || rv.Source != "env" {
		t.Fatalf("Detect env: %+v", rv)
	}
}
