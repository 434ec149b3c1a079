package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileOptions configure ApplyFile.
type FileOptions struct {
	// DryRun computes the patched content without writing it.
	DryRun bool
	// BackupSuffix, when set, keeps a copy of the original file at path+BackupSuffix.
	BackupSuffix string
	// WorkingDir resolves relative target paths. Defaults to the process working directory.
	WorkingDir string
}

// FileResult describes the outcome of ApplyFile.
type FileResult struct {
	Path     string
	Original string
	Patched  string
	Changed  bool
	Written  bool
	Statuses []BlockStatus
}

// ApplyFile parses patchText, applies it to the file at targetPath and, only when every block
// applies, writes the result back. The file's permission bits are preserved. On any failure the
// file on disk is left untouched.
func ApplyFile(ctx context.Context, targetPath, patchText string, opts FileOptions) (FileResult, error) {
	plan, err := Parse(patchText)
	if err != nil {
		return FileResult{}, err
	}
	return ApplyPlanToFile(ctx, targetPath, plan, opts)
}

// ApplyPlanToFile is ApplyFile for an already parsed plan.
func ApplyPlanToFile(ctx context.Context, targetPath string, plan Plan, opts FileOptions) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}

	abs, err := resolvePath(targetPath, opts.WorkingDir)
	if err != nil {
		return FileResult{}, err
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return FileResult{}, fmt.Errorf("failed to read %s: file does not exist", targetPath)
	case err != nil:
		return FileResult{}, fmt.Errorf("failed to stat %s: %w", targetPath, err)
	case info.IsDir():
		return FileResult{}, fmt.Errorf("cannot patch directory %s", targetPath)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to read %s: %w", targetPath, err)
	}
	original := string(content)

	report, err := ApplyWithReport(original, plan)
	if err != nil {
		return FileResult{}, err
	}

	result := FileResult{
		Path:     abs,
		Original: original,
		Patched:  report.Content,
		Changed:  report.Content != original,
		Statuses: report.Statuses,
	}
	if opts.DryRun || !result.Changed {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}

	if suffix := strings.TrimSpace(opts.BackupSuffix); suffix != "" {
		if err := writeFileAtomic(abs+suffix, content, info.Mode()); err != nil {
			return FileResult{}, fmt.Errorf("failed to write backup for %s: %w", targetPath, err)
		}
	}
	if err := writeFileAtomic(abs, []byte(report.Content), info.Mode()); err != nil {
		return FileResult{}, fmt.Errorf("failed to write %s: %w", targetPath, err)
	}
	result.Written = true
	return result, nil
}

// writeFileAtomic writes data to a temporary file beside path and renames it into place so a
// reader never observes a partially written file.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	perm := mode & fs.ModePerm
	if perm == 0 {
		perm = 0o644
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".blockpatch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}

	desired := perm | (mode & (fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky))
	if err := os.Chmod(tmpName, desired); err != nil {
		cleanup()
		return fmt.Errorf("failed to restore permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func resolvePath(target, workingDir string) (string, error) {
	rel := strings.TrimSpace(target)
	if rel == "" {
		return "", fmt.Errorf("invalid target path")
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return cleaned, nil
	}
	dir := strings.TrimSpace(workingDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}
	return filepath.Clean(filepath.Join(dir, cleaned)), nil
}
