package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/asynkron/blockpatch/internal/config"
	"github.com/asynkron/blockpatch/internal/logging"
	"github.com/asynkron/blockpatch/internal/render"
	"github.com/asynkron/blockpatch/internal/source"
	"github.com/asynkron/blockpatch/internal/ui"
	"github.com/asynkron/blockpatch/pkg/patch"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

const usageText = `Usage:
  blockpatch [flags] TARGET [PATCH]
  blockpatch batch [flags] PATCH TARGET...
  blockpatch dedupe [flags] TARGET FRAGMENT_FILE

PATCH defaults to stdin when piped and the clipboard otherwise. Use "-" for stdin.
`

// newProvider is replaced in tests.
var newProvider = source.New

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	logLevel   string
	logFile    string
	noColor    bool
	dryRun     bool
	diff       bool
	backup     string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to a YAML config file (default "+config.DefaultFile+" when present)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&c.logFile, "log-file", "", "append structured logs to this file")
	fs.BoolVar(&c.noColor, "no-color", false, "disable coloured output")
	fs.BoolVarP(&c.dryRun, "dry-run", "n", false, "print the result instead of writing it")
	fs.BoolVarP(&c.diff, "diff", "d", false, "print a unified diff of the change")
	fs.StringVar(&c.backup, "backup", "", "keep the original file at TARGET+SUFFIX")
}

// session bundles what a subcommand needs once flags and config are resolved.
type session struct {
	ctx      context.Context
	cfg      *config.Config
	flags    *commonFlags
	log      logging.Logger
	printer  *ui.Printer
	renderer *render.Renderer
	// diagnostics styles engine errors for stderr.
	diagnostics *render.Renderer
	stdout      io.Writer
	stderr      io.Writer
}

// Run executes blockpatch with the provided CLI arguments and returns a POSIX-style exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if len(args) > 0 {
		switch args[0] {
		case "batch":
			return runBatch(ctx, args[1:], stdout, stderr)
		case "dedupe":
			return runDedupe(ctx, args[1:], stdout, stderr)
		}
	}
	return runApply(ctx, args, stdout, stderr)
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) (bool, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, ExitOK
		}
		return false, ExitUsage
	}
	return true, ExitOK
}

func usageError(stderr io.Writer, format string, a ...any) int {
	fmt.Fprintf(stderr, format+"\n\n", a...)
	fmt.Fprint(stderr, usageText)
	return ExitUsage
}

func openSession(ctx context.Context, flags *commonFlags, stdout, stderr io.Writer) (*session, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags.configPath, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}
	if flags.noColor {
		cfg.Output.Color = config.ColorNever
	}
	if flags.backup == "" {
		flags.backup = cfg.Apply.BackupSuffix
	}
	if cfg.Output.Diff {
		flags.diff = true
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:   level,
		Path:    cfg.Log.File,
		Console: cfg.Log.Format == config.LogFormatConsole,
	})
	if err != nil {
		return nil, err
	}

	return &session{
		ctx:         logging.WithTraceID(ctx, logging.NewTraceID()),
		cfg:         cfg,
		flags:       flags,
		log:         logger,
		printer:     ui.New(stderr, useColor(cfg.Output.Color, stderr)),
		renderer:    render.New(stdout, useColor(cfg.Output.Color, stdout)),
		diagnostics: render.New(stderr, useColor(cfg.Output.Color, stderr)),
		stdout:      stdout,
		stderr:      stderr,
	}, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}

// useColor resolves a colour mode for w. Auto enables colour only for terminals.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if _, ok := w.(*os.File); !ok {
		return false
	}
	return !color.NoColor
}

// fail reports err and returns the failure exit code. Engine errors get the boxed diagnostic.
func (s *session) fail(msg string, err error) int {
	s.log.Error(s.ctx, msg, err, logging.Field("code", patch.CodeOf(err)))
	if patch.CodeOf(err) != "" {
		s.printer.Raw(s.diagnostics.Diagnostic(err) + "\n")
		return ExitFailure
	}
	s.printer.Error("Error: %v", err)
	return ExitFailure
}

func runApply(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("blockpatch", stderr)
	var flags commonFlags
	flags.register(fs)
	asJSON := fs.Bool("json", false, "PATCH is a JSON array of {\"search\", \"replace\"} objects")
	markdown := fs.BoolP("markdown", "m", false, "PATCH is markdown; SEARCH/REPLACE blocks are taken from fenced code blocks")
	showPlan := fs.Bool("plan", false, "render the parsed plan and exit without applying it")
	if ok, code := parseFlags(fs, args); !ok {
		return code
	}

	positional := fs.Args()
	if len(positional) < 1 || len(positional) > 2 {
		return usageError(stderr, "expected TARGET and an optional PATCH, got %d argument(s)", len(positional))
	}
	target := positional[0]
	patchPath := ""
	if len(positional) == 2 {
		patchPath = positional[1]
	}

	s, err := openSession(ctx, &flags, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
	defer s.close()

	plan, origin, err := s.loadPlan(patchPath, *asJSON, *markdown)
	if err != nil {
		return s.fail("failed to load patch", err)
	}
	s.log.Info(s.ctx, "patch parsed",
		logging.Field("source", string(origin)),
		logging.Field("blocks", len(plan)),
	)
	s.checkPlan(plan)

	if *showPlan {
		name := patchPath
		if name == "" || name == source.Stdin {
			name = string(origin)
		}
		out, err := s.renderer.Plan(name, plan)
		if err != nil {
			return s.fail("failed to render plan", err)
		}
		fmt.Fprint(stdout, out)
		return ExitOK
	}

	result, err := patch.ApplyPlanToFile(s.ctx, target, plan, patch.FileOptions{
		DryRun:       flags.dryRun,
		BackupSuffix: flags.backup,
	})
	if err != nil {
		return s.fail("failed to apply patch", err)
	}
	log := s.log.WithFields(logging.Field("target", result.Path))
	logStatuses(s.ctx, log, result.Statuses)
	log.Info(s.ctx, "patch applied",
		logging.Field("changed", result.Changed),
		logging.Field("written", result.Written),
	)

	switch {
	case flags.diff:
		if code := s.printDiff(target, result.Original, result.Patched); code != ExitOK {
			return code
		}
	case flags.dryRun:
		fmt.Fprint(stdout, result.Patched)
	}
	s.printer.PrintApplySummary(target, len(plan), result.Written, flags.dryRun)
	s.printBackup(result)
	return ExitOK
}

// checkPlan warns about plans that apply but are unlikely to be what the author meant.
func (s *session) checkPlan(plan patch.Plan) {
	if len(plan) == 0 {
		s.log.Warn(s.ctx, "patch contains no blocks")
		s.printer.Warning("Patch contains no SEARCH/REPLACE blocks; nothing will change.")
		return
	}
	for i, block := range plan {
		if block.Search == "" {
			s.log.Warn(s.ctx, "empty search inserts at document start", logging.Field("block", i+1))
			s.printer.Warning("Block %d has an empty search and inserts its replacement at the start of the file.", i+1)
		}
	}
}

func logStatuses(ctx context.Context, log logging.Logger, statuses []patch.BlockStatus) {
	for _, status := range statuses {
		log.Debug(ctx, "block status",
			logging.Field("block", status.Index+1),
			logging.Field("status", status.Status),
		)
	}
}

func (s *session) printBackup(result patch.FileResult) {
	suffix := strings.TrimSpace(s.flags.backup)
	if !result.Written || suffix == "" {
		return
	}
	s.printer.Path("backup: %s", result.Path+suffix)
}

// writeVerified replaces the file at path with after. The whole of before is the search text, so
// a file that changed since it was read fails instead of being overwritten.
func (s *session) writeVerified(path, before, after string) (patch.FileResult, error) {
	plan := patch.Plan{{Search: before, Replace: after}}
	return patch.ApplyPlanToFile(s.ctx, path, plan, patch.FileOptions{BackupSuffix: s.flags.backup})
}

// canonicalPath resolves target to an absolute path with symlinks evaluated, so aliases of one
// file compare equal.
func canonicalPath(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", target, err)
	}
	return resolved, nil
}

// loadPlan reads and parses the patch at path.
func (s *session) loadPlan(path string, asJSON, markdown bool) (patch.Plan, source.Origin, error) {
	text, origin, err := newProvider().Read(path)
	if err != nil {
		return nil, origin, err
	}
	if origin != source.OriginFile {
		s.printer.Header("--- Reading patch from %s ---", origin)
	}
	if asJSON {
		plan, err := patch.ParseJSON([]byte(text))
		return plan, origin, err
	}
	if markdown || isMarkdownPath(path) {
		text, err = source.ExtractPatch(text)
		if err != nil {
			return nil, origin, err
		}
	}
	plan, err := patch.Parse(text)
	return plan, origin, err
}

func isMarkdownPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func (s *session) printDiff(path, before, after string) int {
	diff, err := render.UnifiedDiff(filepath.ToSlash(path), before, after)
	if err != nil {
		return s.fail("failed to render diff", err)
	}
	fmt.Fprint(s.stdout, s.renderer.Diff(diff))
	return ExitOK
}

func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("blockpatch batch", stderr)
	var flags commonFlags
	flags.register(fs)
	asJSON := fs.Bool("json", false, "PATCH is a JSON array of {\"search\", \"replace\"} objects")
	markdown := fs.BoolP("markdown", "m", false, "PATCH is markdown; SEARCH/REPLACE blocks are taken from fenced code blocks")
	concurrency := fs.IntP("concurrency", "j", 0, "maximum number of targets patched at once")
	if ok, code := parseFlags(fs, args); !ok {
		return code
	}

	positional := fs.Args()
	if len(positional) < 2 {
		return usageError(stderr, "batch expects PATCH and at least one TARGET")
	}
	patchPath, targets := positional[0], positional[1:]

	s, err := openSession(ctx, &flags, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
	defer s.close()

	plan, _, err := s.loadPlan(patchPath, *asJSON, *markdown)
	if err != nil {
		return s.fail("failed to load patch", err)
	}

	s.checkPlan(plan)

	jobs := make([]patch.Job, 0, len(targets))
	display := make(map[string]string, len(targets))
	for _, target := range targets {
		path, err := canonicalPath(target)
		if err != nil {
			return s.fail("failed to resolve target", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return s.fail("failed to read target", fmt.Errorf("failed to read %s: %w", target, err))
		}
		if _, seen := display[path]; !seen {
			display[path] = target
		}
		jobs = append(jobs, patch.Job{Name: path, Content: string(data), Plan: plan})
	}

	limit := *concurrency
	if limit <= 0 {
		limit = s.cfg.Batch.Concurrency
	}
	results, err := patch.ApplyBatch(s.ctx, jobs, patch.BatchOptions{Concurrency: limit})
	if err != nil {
		var batchErr *patch.BatchError
		if errors.As(err, &batchErr) {
			s.printer.Error("Batch aborted at %s; no files were written.", display[batchErr.Name])
		}
		return s.fail("batch failed", err)
	}

	for i, res := range results {
		name := display[res.Name]
		log := s.log.WithFields(logging.Field("target", res.Name))
		if flags.diff {
			if code := s.printDiff(name, jobs[i].Content, res.Content); code != ExitOK {
				return code
			}
		}
		written := false
		if res.Changed && !flags.dryRun {
			fileResult, err := s.writeVerified(res.Name, jobs[i].Content, res.Content)
			if err != nil {
				return s.fail("failed to write target", err)
			}
			written = fileResult.Written
			s.printBackup(fileResult)
		}
		log.Info(s.ctx, "batch target patched",
			logging.Field("changed", res.Changed),
			logging.Field("written", written),
		)
		s.printer.PrintApplySummary(name, len(plan), written, flags.dryRun)
	}
	return ExitOK
}

func runDedupe(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("blockpatch dedupe", stderr)
	var flags commonFlags
	flags.register(fs)
	asRegex := fs.Bool("regex", false, "FRAGMENT_FILE holds a regular expression (dot matches newline)")
	if ok, code := parseFlags(fs, args); !ok {
		return code
	}

	positional := fs.Args()
	if len(positional) != 2 {
		return usageError(stderr, "dedupe expects TARGET and FRAGMENT_FILE")
	}
	target, fragmentPath := positional[0], positional[1]

	s, err := openSession(ctx, &flags, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
	defer s.close()

	fragment, _, err := newProvider().Read(fragmentPath)
	if err != nil {
		return s.fail("failed to read fragment", err)
	}
	fragment = strings.TrimRight(fragment, "\r\n")
	original, err := os.ReadFile(target)
	if err != nil {
		return s.fail("failed to read target", fmt.Errorf("failed to read %s: %w", target, err))
	}

	var (
		updated string
		removed int
	)
	if *asRegex {
		updated, removed, err = patch.DedupePattern(string(original), fragment)
		if err != nil {
			return s.fail("invalid dedupe pattern", err)
		}
	} else {
		updated, removed = patch.Dedupe(string(original), fragment)
	}
	s.log.Info(s.ctx, "dedupe scanned",
		logging.Field("target", target),
		logging.Field("removed", removed),
	)

	if flags.diff {
		if code := s.printDiff(target, string(original), updated); code != ExitOK {
			return code
		}
	} else if flags.dryRun {
		fmt.Fprint(stdout, updated)
	}

	if removed > 0 && !flags.dryRun {
		result, err := s.writeVerified(target, string(original), updated)
		if err != nil {
			return s.fail("failed to write target", err)
		}
		s.printer.PrintDedupeSummary(target, removed, false)
		s.printBackup(result)
		return ExitOK
	}
	s.printer.PrintDedupeSummary(target, removed, flags.dryRun)
	return ExitOK
}
