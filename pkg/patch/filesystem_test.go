package patch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const fixturePatch = "<<<<<<< SEARCH\none\n=======\ntwo\n>>>>>>> REPLACE\n"

func writeFixture(t *testing.T, dir, name, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestApplyFileUpdatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFixture(t, dir, "foo.txt", "one\n", 0o600)

	result, err := ApplyFile(context.Background(), "foo.txt", fixturePatch, FileOptions{WorkingDir: dir})
	if err != nil {
		t.Fatalf("ApplyFile returned error: %v", err)
	}
	if !result.Changed || !result.Written {
		t.Fatalf("unexpected result: %#v", result)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(content) != "two\n" {
		t.Fatalf("unexpected content: %q", content)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("permissions not preserved: %v", info.Mode().Perm())
	}
}

func TestApplyFileLeavesFileOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFixture(t, dir, "foo.txt", "one\nthree\n", 0o644)
	patchBody := fixturePatch + "<<<<<<< SEARCH\nfour\n=======\nFOUR\n>>>>>>> REPLACE\n"

	_, err := ApplyFile(context.Background(), path, patchBody, FileOptions{})
	if !IsUnmatched(err) {
		t.Fatalf("expected unmatched block error, got %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(content) != "one\nthree\n" {
		t.Fatalf("file was modified: %q", content)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("unexpected leftover files: %v", entries)
	}
}

func TestApplyFileDryRunAndBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFixture(t, dir, "foo.txt", "one\n", 0o644)

	result, err := ApplyFile(context.Background(), path, fixturePatch, FileOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run returned error: %v", err)
	}
	if result.Written || result.Patched != "two\n" {
		t.Fatalf("unexpected dry run result: %#v", result)
	}
	if content, _ := os.ReadFile(path); string(content) != "one\n" {
		t.Fatalf("dry run wrote the file: %q", content)
	}

	if _, err := ApplyFile(context.Background(), path, fixturePatch, FileOptions{BackupSuffix: ".orig"}); err != nil {
		t.Fatalf("ApplyFile returned error: %v", err)
	}
	backup, err := os.ReadFile(path + ".orig")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(backup) != "one\n" {
		t.Fatalf("unexpected backup content: %q", backup)
	}
}

func TestApplyFileRejectsMissingAndDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := ApplyFile(context.Background(), "missing.txt", fixturePatch, FileOptions{WorkingDir: dir}); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := ApplyFile(context.Background(), dir, fixturePatch, FileOptions{}); err == nil {
		t.Fatalf("expected error for directory target")
	}
}

func TestApplyFileHonorsCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFixture(t, dir, "foo.txt", "one\n", 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ApplyFile(ctx, path, fixturePatch, FileOptions{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if content, _ := os.ReadFile(path); string(content) != "one\n" {
		t.Fatalf("file modified after cancellation: %q", content)
	}
}
