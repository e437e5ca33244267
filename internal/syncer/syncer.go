// Package syncer reconciles the local module working copy against the remote
// catalog repository. All git work is shelled out to the git CLI so the
// working copy stays usable with plain git from a shell.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Policy selects how local modifications are reconciled during a sync.
// Exactly one policy is live per deployment; they are never mixed in a run.
type Policy string

const (
	// PolicyPreserve stashes local edits, rebases onto the remote tip, and
	// reapplies the stash. A conflicting reapply is reported, not fatal.
	PolicyPreserve Policy = "preserve"

	// PolicyDiscard deletes the working copy and clones fresh. Local edits
	// are lost. For catalogs that are entirely externally owned.
	PolicyDiscard Policy = "discard"
)

// State describes the working copy before a sync.
type State string

const (
	StateAbsent State = "absent"
	StateClean  State = "clean"
	StateDirty  State = "dirty"
)

// SyncError is fatal: the remote is unreachable or the local path is
// unusable after all fallback attempts.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("syncer: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Result reports what a sync did. Path is threaded explicitly to later
// stages; the syncer never changes the process working directory.
type Result struct {
	Path          string
	Before        State
	Recloned      bool
	MergeConflict bool
}

// CommandRunner abstracts git invocation so tests can inject fakes.
// A non-empty dir runs the command inside that working copy.
type CommandRunner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

type gitRunner struct{}

func (gitRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("git %s: %w\noutput: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// Option customizes Syncer construction for tests and alternate runtimes.
type Option func(*Syncer)

// WithRunner overrides the git command runner.
func WithRunner(run CommandRunner) Option {
	return func(s *Syncer) {
		if run != nil {
			s.run = run
		}
	}
}

// WithRetryInterval overrides the initial backoff interval for network
// operations. Tests shrink it to keep retries fast.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

// Syncer guarantees that a target path holds a working copy matching the
// remote's current tip when Sync returns without error.
type Syncer struct {
	remote        string
	branch        string
	policy        Policy
	run           CommandRunner
	retryInterval time.Duration
	log           zerolog.Logger
}

// New builds a syncer for one remote/policy pair.
func New(remote, branch string, policy Policy, log zerolog.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		remote:        strings.TrimSpace(remote),
		branch:        strings.TrimSpace(branch),
		policy:        policy,
		run:           gitRunner{},
		retryInterval: 2 * time.Second,
		log:           log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sync reconciles path against the remote per the configured policy.
func (s *Syncer) Sync(ctx context.Context, path string) (Result, error) {
	if s.remote == "" {
		return Result{}, &SyncError{Op: "configure", Err: errors.New("remote repository is required")}
	}
	result := Result{Path: path, Before: StateAbsent}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.Info().Str("path", path).Str("remote", s.remote).Msg("working copy absent, cloning")
		if err := s.clone(ctx, path); err != nil {
			return Result{}, err
		}
		return result, nil
	case err != nil:
		return Result{}, &SyncError{Op: "stat " + path, Err: err}
	case !info.IsDir():
		return Result{}, &SyncError{Op: "inspect " + path, Err: errors.New("exists but is not a directory")}
	}

	if !s.isWorkingCopy(ctx, path) {
		s.log.Warn().Str("path", path).Msg("target is not a valid working copy, recloning")
		return s.reclone(ctx, result)
	}

	dirty, err := s.isDirty(ctx, path)
	if err != nil {
		return Result{}, err
	}
	result.Before = StateClean
	if dirty {
		result.Before = StateDirty
	}

	if s.policy == PolicyDiscard {
		s.log.Info().Str("path", path).Str("state", string(result.Before)).Msg("discard policy, recloning")
		return s.reclone(ctx, result)
	}
	return s.preserveAndMerge(ctx, result, dirty)
}

// preserveAndMerge implements PolicyPreserve: stash, rebase pull, reapply.
func (s *Syncer) preserveAndMerge(ctx context.Context, result Result, dirty bool) (Result, error) {
	path := result.Path
	if dirty {
		if _, err := s.run.Run(ctx, path, "stash", "push", "--include-untracked", "-m", "burrow sync"); err != nil {
			return Result{}, &SyncError{Op: "stash local modifications", Err: err}
		}
	}
	if err := s.pull(ctx, path); err != nil {
		return Result{}, err
	}
	if dirty {
		if _, err := s.run.Run(ctx, path, "stash", "pop"); err != nil {
			// Conflicting reapply is the operator's to resolve; the run
			// continues with whatever state resulted.
			result.MergeConflict = true
			s.log.Warn().Str("path", path).Err(err).Msg("local modifications could not be reapplied cleanly")
		}
	}
	return result, nil
}

func (s *Syncer) reclone(ctx context.Context, result Result) (Result, error) {
	if err := os.RemoveAll(result.Path); err != nil {
		return Result{}, &SyncError{Op: "remove " + result.Path, Err: err}
	}
	if err := s.clone(ctx, result.Path); err != nil {
		return Result{}, err
	}
	result.Recloned = true
	return result, nil
}

func (s *Syncer) clone(ctx context.Context, path string) error {
	args := []string{"clone"}
	if s.branch != "" {
		args = append(args, "--branch", s.branch)
	}
	args = append(args, s.remote, path)
	if err := s.retry(ctx, func() error {
		_, err := s.run.Run(ctx, "", args...)
		return err
	}); err != nil {
		return &SyncError{Op: "clone " + s.remote, Err: err}
	}
	return nil
}

func (s *Syncer) pull(ctx context.Context, path string) error {
	if err := s.retry(ctx, func() error {
		_, err := s.run.Run(ctx, path, "pull", "--rebase")
		return err
	}); err != nil {
		return &SyncError{Op: "pull latest history", Err: err}
	}
	return nil
}

// retry wraps network-facing git operations in a capped exponential backoff.
func (s *Syncer) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx))
}

func (s *Syncer) isWorkingCopy(ctx context.Context, path string) bool {
	_, err := s.run.Run(ctx, path, "rev-parse", "--git-dir")
	return err == nil
}

func (s *Syncer) isDirty(ctx context.Context, path string) (bool, error) {
	output, err := s.run.Run(ctx, path, "status", "--porcelain")
	if err != nil {
		return false, &SyncError{Op: "detect local modifications", Err: err}
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}
