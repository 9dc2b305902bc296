package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const unit = `{
	"unit": "calculus",
	"knowledge_points": [
		{"id": 1, "name": "Functions"},
		{"id": 2, "name": "Limits"},
		{"id": 3, "name": "Derivatives"}
	],
	"relations": [
		{"source": 1, "target": 2, "kind": "prerequisite", "confidence": 0.9},
		{"source": 2, "target": 3, "kind": "prerequisite", "confidence": 0.5},
		{"source": 3, "target": 1, "kind": "prerequisite", "confidence": 0.7}
	]
}`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("kpath %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	unitPath := filepath.Join(dir, "calculus.jsonc")
	if err := os.WriteFile(unitPath, []byte(unit), 0o644); err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(dir, "kpath.db")
	common := []string{"--db", db, "--log", "prod", "--plain"}

	if out := run(t, "version"); !strings.Contains(out, "kpath") {
		t.Errorf("version output: %q", out)
	}

	out := run(t, append([]string{"graph", "build", unitPath}, common...)...)
	if !strings.Contains(out, "Removed to break cycles") || !strings.Contains(out, "Limits -> Derivatives") {
		t.Errorf("graph build output:\n%s", out)
	}

	out = run(t, append([]string{"path", "generate", unitPath, "--learner", "ada"}, common...)...)
	if !strings.Contains(out, "Study path for ada") || !strings.Contains(out, "Next: Study Derivatives") {
		t.Errorf("path generate output:\n%s", out)
	}

	out = run(t, append([]string{"path", "adjust", "--learner", "ada", "--event", "difficult", "--kp", "3", "--unit", unitPath}, common...)...)
	if !strings.Contains(out, "Path adjusted") || !strings.Contains(out, "Next: Review Derivatives") {
		t.Errorf("path adjust output:\n%s", out)
	}

	out = run(t, append([]string{"path", "history", "--learner", "ada"}, common...)...)
	if !strings.Contains(out, "difficult") {
		t.Errorf("path history output:\n%s", out)
	}

	out = run(t, append([]string{"mastery", "list", "--learner", "ada"}, common...)...)
	if !strings.Contains(out, "Difficult") {
		t.Errorf("mastery list output:\n%s", out)
	}
}
