package patch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds ApplyBatch when BatchOptions.Concurrency is not set.
const DefaultBatchConcurrency = 8

// Job is one document and the plan to apply to it.
type Job struct {
	// Name identifies the document. Names must be unique within a batch and are compared as
	// given, so callers naming files should pass canonical paths.
	Name    string
	Content string
	Plan    Plan
}

// Result is the patched content for one Job.
type Result struct {
	Name    string
	Content string
	Changed bool
}

// BatchOptions configure ApplyBatch.
type BatchOptions struct {
	Concurrency int
}

// BatchError wraps the failure of a single job within a batch.
type BatchError struct {
	Name string
	Err  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ApplyBatch applies independent plans to distinct documents concurrently.
//
// The batch is all or nothing: if any job fails, no results are returned and the error of the
// failing job is reported as a *BatchError. Results are returned in job order.
func ApplyBatch(ctx context.Context, jobs []Job, opts BatchOptions) ([]Result, error) {
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		name := strings.TrimSpace(job.Name)
		if name == "" {
			return nil, fmt.Errorf("patch: batch job without a name")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("patch: document %s appears more than once in batch", name)
		}
		seen[name] = struct{}{}
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}

	results := make([]Result, len(jobs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, job := range jobs {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			content, err := Apply(job.Content, job.Plan)
			if err != nil {
				return &BatchError{Name: job.Name, Err: err}
			}
			results[i] = Result{Name: job.Name, Content: content, Changed: content != job.Content}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
