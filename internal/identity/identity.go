// Package identity resolves the reviewer whose name is attached to comments
// and feedback scores. Authorship attribution is name-based, so an empty or
// wrong reviewer name makes items look unprocessed.
package identity

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reviewer holds a reviewer identity (name, email) for annotation attribution.
type Reviewer struct {
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Source string `yaml:"source,omitempty"` // e.g. "env", "git"
}

// Detect resolves the reviewer: ANNOQ_USER env wins, then git config
// user.name/user.email (in repoDir, or global if repoDir is empty). Fields
// that cannot be resolved stay empty; callers treat an empty name as
// no-identity and refuse to attribute work to it.
func Detect(repoDir string) (Reviewer, error) {
	if u := strings.TrimSpace(os.Getenv("ANNOQ_USER")); u != "" {
		return Reviewer{Name: u, Source: "env"}, nil
	}
	var rv Reviewer
	rv.Source = "git"
	if name, err := gitConfig(repoDir, "user.name"); err == nil {
		rv.Name = strings.TrimSpace(name)
	}
	if email, err := gitConfig(repoDir, "user.email"); err == nil {
		rv.Email = strings.TrimSpace(email)
	}
	return rv, nil
}

func gitConfig(repoDir, key string) (string, error) {
	cmd := exec.Command("git", "config", "--get", key)
	if repoDir != "" {
		cmd.Dir = repoDir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ReviewersDir returns the path to the reviewers directory: <home>/reviewers/.
func ReviewersDir(home string) string {
	return filepath.Join(home, "reviewers")
}

// ReviewerPath returns the path to a reviewer file: <home>/reviewers/<username>.yaml.
// Username is sanitized for filesystem (spaces -> _, lowercase for consistency).
func ReviewerPath(home, username string) string {
	safe := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(username), " ", "_"))
	if safe == "" {
		safe = "default"
	}
	return filepath.Join(ReviewersDir(home), safe+".yaml")
}

// Load reads a reviewer from <home>/reviewers/<username>.yaml. Missing file
// returns (nil, nil).
func Load(home, username string) (*Reviewer, error) {
	path := ReviewerPath(home, username)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rv Reviewer
	if err := yaml.Unmarshal(data, &rv); err != nil {
		return nil, err
	}
	return &rv, nil
}

// Save writes the reviewer to <home>/reviewers/<username>.yaml.
func Save(home, username string, rv *Reviewer) error {
	dir := ReviewersDir(home)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(rv)
	if err != nil {
		return err
	}
	return os.WriteFile(ReviewerPath(home, username), data, 0o644)
}

// DetectAndSave runs Detect and saves to reviewers/<username>.yaml.
// Username is derived from rv.Name or rv.Email (part before @) after detection.
func DetectAndSave(home, repoDir string) (*Reviewer, error) {
	rv, err := Detect(repoDir)
	if err != nil {
		return nil, err
	}
	username := rv.Name
	if username == "" {
		if idx := strings.Index(rv.Email, "@"); idx > 0 {
			username = rv.Email[:idx]
		}
	}
	if username == "" {
		username = "default"
	}
	if err := Save(home, username, &rv); err != nil {
		return nil, err
	}
	return &rv, nil
}
