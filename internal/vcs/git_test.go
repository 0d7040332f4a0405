package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"promptopt/internal/testutil"
)

// TestDiscoverRepoRootAndSnapshot verifies repo discovery and snapshot parsing.
func TestDiscoverRepoRootAndSnapshot(t *testing.T) {
	ctx := testutil.Context(t, 0)
	root := filepath.Join(t.TempDir(), "repo")
	subdir := filepath.Join(root, "nested")

	fake := &fakeGitRunner{responses: map[string]string{
		"rev-parse --show-toplevel":   root,
		"rev-parse HEAD":              "3f2c9a1be0d4",
		"rev-parse --abbrev-ref HEAD": "main",
		"status --porcelain":          "",
	}}
	client := NewClient(fake)

	actualRoot, err := client.DiscoverRepoRoot(ctx, subdir)
	if err != nil {
		t.Fatalf("discover repo root: %v", err)
	}
	if actualRoot != root {
		t.Fatalf("expected root %q, got %q", root, actualRoot)
	}

	repo, err := client.Discover(ctx, subdir)
	if err != nil {
		t.Fatalf("discover repo: %v", err)
	}
	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Commit != "3f2c9a1be0d4" || snap.ShortCommit() != "3f2c9a1b" {
		t.Fatalf("unexpected commit %q (%q)", snap.Commit, snap.ShortCommit())
	}
	if snap.Branch != "main" {
		t.Fatalf("expected branch main, got %q", snap.Branch)
	}
	if snap.Dirty {
		t.Fatalf("expected clean repo, got dirty")
	}
	if snap.Name != filepath.Base(root) {
		t.Fatalf("expected name %q, got %q", filepath.Base(root), snap.Name)
	}

	fake.responses["status --porcelain"] = " M docs/openllmetry/introduction.mdx"
	snap, err = repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot dirty: %v", err)
	}
	if !snap.Dirty {
		t.Fatalf("expected dirty repo")
	}
}

// fakeGitRunner returns canned outputs for git commands in tests.
type fakeGitRunner struct {
	responses map[string]string
}

// Run satisfies gitRunner for test doubles.
func (f *fakeGitRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	if value, ok := f.responses[key]; ok {
		return value, nil
	}
	return "", fmt.Errorf("unexpected git args: %s", key)
}
