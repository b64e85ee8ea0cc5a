package cli

import (
	"bytes"
	"regexp"
	"testing"
)

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	cmds := root.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "queue", "review", "identity", "apikey", "doctor"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
}

func TestNewRootCmd_hasHomeFlag(t *testing.T) {
	root := NewRootCmd("")
	f := root.PersistentFlags().Lookup("home")
	if f == nil {
		t.Fatal("expected --home persistent flag")
	}
}

func TestApikeyGenerate(t *testing.T) {
	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"apikey", "generate"})
	if err := root.Execute(); err != nil {
		t.Fatalf("apikey generate: %v", err)
	}
	out := buf.String()
	hexKey := regexp.MustCompile(`(?m)^  ([a-f0-9]{64})$`)
	if !hexKey.MatchString(out) {
		t.Errorf("output should contain a 64-char hex key on its own line; got:\n%s", out)
	}
	if !regexp.MustCompile(`ANNOQ_API_KEY`).MatchString(out) {
		t.Errorf("output should mention ANNOQ_API_KEY")
	}
	if !regexp.MustCompile(`X-API-Key`).MatchString(out) {
		t.Errorf("output should mention X-API-Key")
	}
}

func TestQueueAddList(t *testing.T) {
	home := t.TempDir()

	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--home", home, "queue", "add", "--name", "nightly", "--scope", "trace", "--scores", "clarity,tone"})
	if err := root.Execute(); err != nil {
		t.Fatalf("queue add: %v", err)
	}
	if !regexp.MustCompile(`Created queue "nightly"`).MatchString(buf.String()) {
		t.Fatalf("queue add output: %s", buf.String())
	}

	root2 := NewRootCmd("")
	var buf2 bytes.Buffer
	root2.SetOut(&buf2)
	root2.SetArgs([]string{"--home", home, "queue", "list"})
	if err := root2.Execute(); err != nil {
		t.Fatalf("queue list: %v", err)
	}
	out := buf2.String()
	if !regexp.MustCompile(`nightly \(scope=trace scores=clarity,tone\)`).MatchString(out) {
		t.Fatalf("queue list output: %s", out)
	}
}

func TestQueueAdd_requiresName(t *testing.T) {
	root := NewRootCmd("")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--home", t.TempDir(), "queue", "add"})
	if err := root.Execute(); err == nil {
		t.Fatal("queue add without --name should fail")
	}
}

func TestReview_requiresQueue(t *testing.T) {
	root := NewRootCmd("")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--home", t.TempDir(), "review"})
	if err := root.Execute(); err == nil {
		t.Fatal("review without --queue should fail")
	}
}
